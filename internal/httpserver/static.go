package httpserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// registerStaticHandlers serves regular files under dir at /public/.
// Directories are never listed.
func registerStaticHandlers(mux *http.ServeMux, dir string) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}

	fileServer := http.StripPrefix("/public/", http.FileServer(http.Dir(dir)))
	mux.HandleFunc("GET /public/", func(w http.ResponseWriter, r *http.Request) {
		cleanPath := path.Clean("/" + strings.TrimPrefix(r.URL.Path, "/public/"))
		fullPath := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(cleanPath, "/")))
		info, err := os.Stat(fullPath)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
