package httpserver

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed views/*.html
var viewFS embed.FS

var views = template.Must(template.ParseFS(viewFS, "views/*.html"))

type pageData struct {
	Username string
}

type listData[T any] struct {
	Username string
	Records  []T
}

type formData[T any] struct {
	Title  string
	Action string
	Record T
}

// render buffers the page so a template error never leaves a partial response.
func render(w http.ResponseWriter, r *http.Request, deps Deps, name string, data any) {
	var buf bytes.Buffer
	if err := views.ExecuteTemplate(&buf, name, data); err != nil {
		deps.Logger.ErrorContext(r.Context(), "render view failed", "view", name, "error", err)
		writeText(w, http.StatusInternalServerError, "Error rendering page.")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
