package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Luks9/SMS/internal/evaluation"
	"github.com/Luks9/SMS/internal/rbac"
)

// ownEvaluation loads the evaluation and enforces that company users only
// touch evaluations of their own company.
func ownEvaluation(r *http.Request, store evaluation.Store, id string) (evaluation.Evaluation, int) {
	ev, err := store.GetEvaluation(r.Context(), id)
	if err != nil {
		return evaluation.Evaluation{}, storeErrStatus(err)
	}
	if own := rbac.CompanyFromContext(r.Context()); own != "" && own != ev.CompanyID {
		return evaluation.Evaluation{}, http.StatusForbidden
	}
	return ev, 0
}

// parseCreateEvaluation decodes and validates the creation payload. The
// deadline is mandatory: an evaluation without valid_until would never
// expire.
func parseCreateEvaluation(body io.Reader) (evaluation.Evaluation, error) {
	var req struct {
		CompanyID   string `json:"company_id"`
		EvaluatorID string `json:"evaluator_id"`
		FormID      string `json:"form_id"`
		ValidUntil  string `json:"valid_until"`
		Period      string `json:"period"`
	}
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return evaluation.Evaluation{}, errors.New("bad json")
	}
	if req.CompanyID == "" || req.FormID == "" {
		return evaluation.Evaluation{}, errors.New("company_id and form_id required")
	}
	validUntil, err := parseDate(req.ValidUntil)
	if err != nil || validUntil.IsZero() {
		return evaluation.Evaluation{}, errors.New("valid_until required, want YYYY-MM-DD")
	}
	period, err := parseDate(req.Period)
	if err != nil {
		return evaluation.Evaluation{}, errors.New("period: want YYYY-MM-DD")
	}
	ev := evaluation.Evaluation{
		CompanyID:   req.CompanyID,
		EvaluatorID: req.EvaluatorID,
		FormID:      req.FormID,
		ValidUntil:  validUntil,
		Status:      evaluation.StatusPending,
		IsActive:    true,
	}
	if !period.IsZero() {
		ev.Period = &period
	}
	return ev, nil
}

func CreateEvaluationHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, err := parseCreateEvaluation(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		saved, err := store.CreateEvaluation(r.Context(), ev)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func ListEvaluationsHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := evaluation.ListOpts{
			CompanyID: q.Get("company_id"),
			Limit:     parseIntDefault(q.Get("limit"), 50),
			Offset:    parseIntDefault(q.Get("offset"), 0),
		}
		if v := q.Get("is_active"); v == "true" || v == "false" {
			active := v == "true"
			opts.ActiveOnly = &active
		}
		// Company users see only their own evaluations.
		if own := rbac.CompanyFromContext(r.Context()); own != "" {
			opts.CompanyID = own
		}
		evs, err := store.ListEvaluations(r.Context(), opts)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, evs)
	}
}

func GetEvaluationHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, code := ownEvaluation(r, store, chi.URLParam(r, "evaluationID"))
		if code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

// EvaluationDetailsHandler returns the evaluation plus every question of
// its form joined with the answer given so far, if any.
func EvaluationDetailsHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "evaluationID")
		ev, code := ownEvaluation(r, store, id)
		if code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
		qa, err := store.ListFormQuestionsWithAnswers(r.Context(), id)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"evaluation": ev,
			"questions":  qa,
		})
	}
}

func EvaluationProgressHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "evaluationID")
		if _, code := ownEvaluation(r, store, id); code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
		p, err := evaluation.GetProgress(r.Context(), store, id)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// CalculateScoreHandler runs the scoring engine and persists the result.
// Scoring is always explicit; answer writes never trigger it.
func CalculateScoreHandler(scorer *evaluation.Scorer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "evaluationID")
		score, err := scorer.Compute(r.Context(), id)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"evaluation_id": id,
			"score":         score,
		})
	}
}

func RefreshStatusHandler(machine *evaluation.StatusMachine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := machine.Refresh(r.Context(), chi.URLParam(r, "evaluationID"))
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// EvaluationsByCompanyHandler lists a company's evaluations, refreshing
// each derived status on the way out so deadline flips are visible
// without a write endpoint being hit first.
func EvaluationsByCompanyHandler(store evaluation.Store, machine *evaluation.StatusMachine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID := chi.URLParam(r, "companyID")
		if own := rbac.CompanyFromContext(r.Context()); own != "" && own != companyID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		evs, err := store.ListEvaluations(r.Context(), evaluation.ListOpts{CompanyID: companyID})
		if err != nil {
			httpError(w, err)
			return
		}
		for i := range evs {
			res, err := machine.Refresh(r.Context(), evs[i].ID)
			if err != nil {
				httpError(w, err)
				return
			}
			if res.Changed {
				evs[i].Status = res.Status
				evs[i].CompletedAt = res.CompletedAt
			}
		}
		writeJSON(w, http.StatusOK, evs)
	}
}

// SetEvaluationActiveHandler soft-deletes or restores an evaluation.
// Inactive evaluations drop out of default listings and of the
// duplicate-period check.
func SetEvaluationActiveHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "evaluationID")
		var req struct {
			IsActive bool `json:"is_active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := store.SetEvaluationActive(r.Context(), id, req.IsActive); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": req.IsActive})
	}
}

// CancelEvaluationHandler parks the evaluation in CANCELLED, where the
// status machine will not touch it.
func CancelEvaluationHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "evaluationID")
		ev, err := store.GetEvaluation(r.Context(), id)
		if err != nil {
			httpError(w, err)
			return
		}
		if err := store.SetEvaluationStatus(r.Context(), id, evaluation.StatusCancelled, ev.CompletedAt); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": evaluation.StatusCancelled})
	}
}

// UncancelEvaluationHandler lifts a cancellation and immediately
// re-derives the status from the answer counts and deadline.
func UncancelEvaluationHandler(store evaluation.Store, machine *evaluation.StatusMachine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "evaluationID")
		ev, err := store.GetEvaluation(r.Context(), id)
		if err != nil {
			httpError(w, err)
			return
		}
		if ev.Status != evaluation.StatusCancelled {
			http.Error(w, "evaluation is not cancelled", http.StatusConflict)
			return
		}
		if err := store.SetEvaluationStatus(r.Context(), id, evaluation.StatusPending, ev.CompletedAt); err != nil {
			httpError(w, err)
			return
		}
		res, err := machine.Refresh(r.Context(), id)
		if err != nil {
			httpError(w, err)
			return
		}
		status := evaluation.StatusPending
		if res.Changed {
			status = res.Status
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
	}
}
