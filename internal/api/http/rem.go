package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Luks9/SMS/internal/rbac"
	"github.com/Luks9/SMS/internal/rem"
)

type remRequest struct {
	CompanyID  string         `json:"company_id"`
	Period     string         `json:"period"`
	Indicators rem.Indicators `json:"indicators"`
}

// CreateREMHandler files the monthly safety-indicator report. One report
// per company and month; duplicates are a conflict.
func CreateREMHandler(store rem.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req remRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if own := rbac.CompanyFromContext(r.Context()); own != "" {
			req.CompanyID = own
		}
		if req.CompanyID == "" {
			http.Error(w, "company_id required", http.StatusBadRequest)
			return
		}
		period, err := parseDate(req.Period)
		if err != nil || period.IsZero() {
			http.Error(w, "period: want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		saved, err := store.Create(r.Context(), rem.Report{
			CompanyID:  req.CompanyID,
			Period:     period,
			Indicators: req.Indicators,
		})
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func UpdateREMHandler(store rem.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := store.Get(r.Context(), chi.URLParam(r, "reportID"))
		if err != nil {
			httpError(w, err)
			return
		}
		if own := rbac.CompanyFromContext(r.Context()); own != "" && own != rep.CompanyID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var req struct {
			Indicators rem.Indicators `json:"indicators"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		rep.Indicators = req.Indicators
		saved, err := store.Update(r.Context(), rep)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func GetREMHandler(store rem.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := store.Get(r.Context(), chi.URLParam(r, "reportID"))
		if err != nil {
			httpError(w, err)
			return
		}
		if own := rbac.CompanyFromContext(r.Context()); own != "" && own != rep.CompanyID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// ListREMHandler returns reports, newest period first. Company users are
// scoped to their own reports; evaluators and admins may filter by
// ?company_id or see everything.
func ListREMHandler(store rem.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID := r.URL.Query().Get("company_id")
		if own := rbac.CompanyFromContext(r.Context()); own != "" {
			companyID = own
		}
		reports, err := store.List(r.Context(), companyID)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reports)
	}
}

func DeleteREMHandler(store rem.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Delete(r.Context(), chi.URLParam(r, "reportID")); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
