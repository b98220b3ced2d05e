package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Luks9/SMS/internal/actionplan"
	"github.com/Luks9/SMS/internal/company"
	"github.com/Luks9/SMS/internal/evaluation"
	"github.com/Luks9/SMS/internal/rem"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// parseDate accepts "2006-01-02"; the zero time means absent.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

// storeErrStatus maps domain errors to HTTP status codes. Anything
// unrecognized is a 500.
func storeErrStatus(err error) int {
	switch {
	case errors.Is(err, evaluation.ErrNotFound),
		errors.Is(err, company.ErrNotFound),
		errors.Is(err, actionplan.ErrNotFound),
		errors.Is(err, rem.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, evaluation.ErrDuplicateAnswer),
		errors.Is(err, evaluation.ErrDuplicateEvaluation),
		errors.Is(err, rem.ErrDuplicatePeriod),
		errors.Is(err, actionplan.ErrPlanExpired):
		return http.StatusConflict
	case errors.Is(err, evaluation.ErrNoAnswers):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func httpError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), storeErrStatus(err))
}
