package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Luks9/SMS/internal/company"
	"github.com/Luks9/SMS/internal/rbac"
)

func PutCompanyHandler(store company.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c company.Company
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if c.Name == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		if c.CNPJ != "" {
			c.CNPJ = company.CleanCNPJ(c.CNPJ)
			if !company.ValidCNPJ(c.CNPJ) {
				http.Error(w, "invalid cnpj", http.StatusBadRequest)
				return
			}
		}
		if id := chi.URLParam(r, "companyID"); id != "" {
			c.ID = id
		}
		saved, err := store.Put(r.Context(), c)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func GetCompanyHandler(store company.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "companyID")
		// Company users may only read their own record.
		if own := rbac.CompanyFromContext(r.Context()); own != "" && own != id {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		c, err := store.Get(r.Context(), id)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func ListCompaniesHandler(store company.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := r.URL.Query().Get("is_active") == "true"
		cs, err := store.List(r.Context(), activeOnly)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cs)
	}
}
