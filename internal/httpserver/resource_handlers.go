package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"staffdesk/portal/internal/audit"
	"staffdesk/portal/internal/resource"
)

// resourceRoutes serves the list/add/edit/delete pages for one record type.
type resourceRoutes[T any] struct {
	singular string
	plural   string
	label    string
	store    resource.Store[T]
	parse    func(url.Values) (T, error)
	listView string
	formView string
	deps     Deps
}

func (rr *resourceRoutes[T]) register(mux *http.ServeMux, gate func(http.Handler) http.Handler) {
	base := "/" + rr.plural
	mux.Handle("GET "+base, gate(http.HandlerFunc(rr.list)))
	mux.Handle("GET "+base+"/add", gate(http.HandlerFunc(rr.addForm)))
	mux.Handle("POST "+base+"/add", gate(http.HandlerFunc(rr.add)))
	mux.Handle("GET "+base+"/edit/{id}", gate(http.HandlerFunc(rr.editForm)))
	mux.Handle("POST "+base+"/edit/{id}", gate(http.HandlerFunc(rr.edit)))
	mux.Handle("GET "+base+"/delete/{id}", gate(http.HandlerFunc(rr.remove)))
}

func (rr *resourceRoutes[T]) notFound() string {
	return rr.label + " not found."
}

func (rr *resourceRoutes[T]) list(w http.ResponseWriter, r *http.Request) {
	records, err := rr.store.List(r.Context())
	if err != nil {
		rr.logFailure(r, "list", err)
		writeText(w, statusFor(err), fmt.Sprintf("Error loading %s.", rr.plural))
		return
	}
	username, _ := UsernameFromContext(r.Context())
	render(w, r, rr.deps, rr.listView, listData[T]{Username: username, Records: records})
}

func (rr *resourceRoutes[T]) addForm(w http.ResponseWriter, r *http.Request) {
	var zero T
	render(w, r, rr.deps, rr.formView, formData[T]{
		Title:  "Add " + rr.singular,
		Action: "/" + rr.plural + "/add",
		Record: zero,
	})
}

func (rr *resourceRoutes[T]) add(w http.ResponseWriter, r *http.Request) {
	rec, ok := rr.parseForm(w, r)
	if !ok {
		return
	}
	id, err := rr.store.Create(r.Context(), rec)
	if err != nil {
		rr.logFailure(r, "create", err)
		rr.audit(r, "create", "", audit.OutcomeFailure)
		writeText(w, statusFor(err), fmt.Sprintf("Error adding %s.", rr.singular))
		return
	}
	rr.audit(r, "create", formatID(id), audit.OutcomeSuccess)
	http.Redirect(w, r, "/"+rr.plural, http.StatusFound)
}

func (rr *resourceRoutes[T]) editForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeText(w, http.StatusNotFound, rr.notFound())
		return
	}
	rec, err := rr.store.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, resource.ErrNotFound) {
			rr.logFailure(r, "get", err)
		}
		writeText(w, statusFor(err), rr.notFound())
		return
	}
	render(w, r, rr.deps, rr.formView, formData[T]{
		Title:  "Edit " + rr.singular,
		Action: fmt.Sprintf("/%s/edit/%d", rr.plural, id),
		Record: rec,
	})
}

// edit replaces the record behind {id}. A missing or malformed id answers
// 404 with the not-found message instead of redirecting to the list.
func (rr *resourceRoutes[T]) edit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeText(w, http.StatusNotFound, rr.notFound())
		return
	}
	rec, ok := rr.parseForm(w, r)
	if !ok {
		return
	}
	found, err := rr.store.Update(r.Context(), id, rec)
	if err != nil {
		rr.logFailure(r, "update", err)
		rr.audit(r, "update", formatID(id), audit.OutcomeFailure)
		writeText(w, statusFor(err), fmt.Sprintf("Error updating %s.", rr.singular))
		return
	}
	if !found {
		writeText(w, http.StatusNotFound, rr.notFound())
		return
	}
	rr.audit(r, "update", formatID(id), audit.OutcomeSuccess)
	http.Redirect(w, r, "/"+rr.plural, http.StatusFound)
}

// remove deletes the record behind {id}. A missing or malformed id answers
// 404 with the not-found message instead of redirecting to the list.
func (rr *resourceRoutes[T]) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeText(w, http.StatusNotFound, rr.notFound())
		return
	}
	found, err := rr.store.Delete(r.Context(), id)
	if err != nil {
		rr.logFailure(r, "delete", err)
		rr.audit(r, "delete", formatID(id), audit.OutcomeFailure)
		writeText(w, statusFor(err), fmt.Sprintf("Error deleting %s.", rr.singular))
		return
	}
	if !found {
		writeText(w, http.StatusNotFound, rr.notFound())
		return
	}
	rr.audit(r, "delete", formatID(id), audit.OutcomeSuccess)
	http.Redirect(w, r, "/"+rr.plural, http.StatusFound)
}

// parseForm decodes the submitted record, answering the request itself
// when the form is unusable.
func (rr *resourceRoutes[T]) parseForm(w http.ResponseWriter, r *http.Request) (T, bool) {
	var zero T
	if err := r.ParseForm(); err != nil {
		writeText(w, http.StatusBadRequest, "Invalid form.")
		return zero, false
	}
	rec, err := rr.parse(r.PostForm)
	if err != nil {
		var fe *resource.FieldError
		if errors.As(err, &fe) {
			writeText(w, statusFor(err), "Invalid "+fe.Field+".")
			return zero, false
		}
		writeText(w, statusFor(err), "Invalid form.")
		return zero, false
	}
	return rec, true
}

func (rr *resourceRoutes[T]) audit(r *http.Request, op, target, outcome string) {
	username, _ := UsernameFromContext(r.Context())
	auditReq(rr.deps, r, audit.Event{
		Actor:   username,
		Action:  rr.singular + "." + op,
		Target:  target,
		Outcome: outcome,
	})
}

func (rr *resourceRoutes[T]) logFailure(r *http.Request, op string, err error) {
	rr.deps.Logger.ErrorContext(r.Context(), rr.singular+" "+op+" failed", "error", err)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
