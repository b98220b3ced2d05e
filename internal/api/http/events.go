package http

import (
	"net/http"

	"github.com/Luks9/SMS/internal/audit"
)

// ListEventsHandler exposes the transition log, newest first. ?key= scopes
// to one evaluation.
func ListEventsHandler(repo *audit.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := repo.Recent(r.Context(),
			r.URL.Query().Get("key"),
			parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}
