package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Luks9/SMS/internal/evaluation"
)

// Catalog handlers: categories, subcategories, questions and forms. These
// are plain CRUD; weights and activity flags drive the scoring and status
// engines elsewhere.

func PutCategoryHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c evaluation.Category
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if c.Name == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		if c.Weight < 0 {
			http.Error(w, "weight must not be negative", http.StatusBadRequest)
			return
		}
		if id := chi.URLParam(r, "categoryID"); id != "" {
			c.ID = id
		}
		saved, err := store.PutCategory(r.Context(), c)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func ListCategoriesHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := store.ListCategories(r.Context())
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cats)
	}
}

func PutSubcategoryHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s evaluation.Subcategory
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if s.Name == "" || s.CategoryID == "" {
			http.Error(w, "name and category_id required", http.StatusBadRequest)
			return
		}
		if id := chi.URLParam(r, "subcategoryID"); id != "" {
			s.ID = id
		}
		saved, err := store.PutSubcategory(r.Context(), s)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func ListSubcategoriesHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := store.ListSubcategories(r.Context(), r.URL.Query().Get("category_id"))
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, subs)
	}
}

func PutQuestionHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q evaluation.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if q.Text == "" || q.CategoryID == "" {
			http.Error(w, "text and category_id required", http.StatusBadRequest)
			return
		}
		if id := chi.URLParam(r, "questionID"); id != "" {
			q.ID = id
		}
		saved, err := store.PutQuestion(r.Context(), q)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func ListQuestionsHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := store.ListQuestions(r.Context(), r.URL.Query().Get("category_id"))
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

func PutFormHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f evaluation.Form
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if f.Name == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		if id := chi.URLParam(r, "formID"); id != "" {
			f.ID = id
		}
		saved, err := store.PutForm(r.Context(), f)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func GetFormHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := store.GetForm(r.Context(), chi.URLParam(r, "formID"))
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	}
}

func ListFormsHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forms, err := store.ListForms(r.Context())
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, forms)
	}
}
