package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Luks9/SMS/internal/evaluation"
	"github.com/Luks9/SMS/internal/rbac"
	"github.com/Luks9/SMS/internal/storage"
)

type answerRequest struct {
	EvaluationID string `json:"evaluation_id"`
	QuestionID   string `json:"question_id"`
	Respondent   string `json:"answer_respondent"`
	Evaluator    string `json:"answer_evaluator"`
	Note         string `json:"note"`
}

// answerWriteGuard checks ownership and the deadline. Writes on an expired
// evaluation are rejected for everyone but admins, who may correct records
// after the fact.
func answerWriteGuard(r *http.Request, store evaluation.Store, evaluationID string) (evaluation.Evaluation, int, string) {
	ev, code := ownEvaluation(r, store, evaluationID)
	if code != 0 {
		return ev, code, http.StatusText(code)
	}
	role := rbac.RoleFromContext(r.Context())
	if role != "admin" {
		if ev.Status == evaluation.StatusExpired || evaluation.DeadlinePassed(ev.ValidUntil, time.Now()) {
			return ev, http.StatusConflict, "evaluation deadline has passed"
		}
		if ev.Status == evaluation.StatusCancelled {
			return ev, http.StatusConflict, "evaluation is cancelled"
		}
	}
	return ev, 0, ""
}

// applyVerdicts copies the requested verdicts onto the answer, restricted
// by role: company users write the respondent side only.
func applyVerdicts(a *evaluation.Answer, req answerRequest, role string, now time.Time) string {
	if req.Respondent != "" {
		v := evaluation.Verdict(req.Respondent)
		if !v.IsValid() {
			return "invalid answer_respondent"
		}
		a.Respondent = v
		a.RespondentDate = &now
	}
	if req.Evaluator != "" {
		if role == "company" {
			return "company users cannot set the evaluator verdict"
		}
		v := evaluation.Verdict(req.Evaluator)
		if !v.IsValid() {
			return "invalid answer_evaluator"
		}
		a.Evaluator = v
		a.EvaluatorDate = &now
	}
	if req.Note != "" {
		a.Note = req.Note
	}
	return ""
}

func CreateAnswerHandler(store evaluation.Store, machine *evaluation.StatusMachine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.EvaluationID == "" || req.QuestionID == "" {
			http.Error(w, "evaluation_id and question_id required", http.StatusBadRequest)
			return
		}
		ev, code, msg := answerWriteGuard(r, store, req.EvaluationID)
		if code != 0 {
			http.Error(w, msg, code)
			return
		}
		a := evaluation.Answer{
			EvaluationID: req.EvaluationID,
			QuestionID:   req.QuestionID,
			CompanyID:    ev.CompanyID,
		}
		if msg := applyVerdicts(&a, req, rbac.RoleFromContext(r.Context()), time.Now()); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		saved, err := store.CreateAnswer(r.Context(), a)
		if err != nil {
			httpError(w, err)
			return
		}
		if _, err := machine.Refresh(r.Context(), req.EvaluationID); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func UpdateAnswerHandler(store evaluation.Store, machine *evaluation.StatusMachine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.GetAnswer(r.Context(), chi.URLParam(r, "answerID"))
		if err != nil {
			httpError(w, err)
			return
		}
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if _, code, msg := answerWriteGuard(r, store, a.EvaluationID); code != 0 {
			http.Error(w, msg, code)
			return
		}
		if msg := applyVerdicts(&a, req, rbac.RoleFromContext(r.Context()), time.Now()); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		saved, err := store.UpdateAnswer(r.Context(), a)
		if err != nil {
			httpError(w, err)
			return
		}
		if _, err := machine.Refresh(r.Context(), a.EvaluationID); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func ListAnswersHandler(store evaluation.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "evaluationID")
		if _, code := ownEvaluation(r, store, id); code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
		answers, err := store.ListAnswers(r.Context(), id)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, answers)
	}
}

// UploadAnswerAttachmentHandler stores evidence for one side of an answer.
// PUT /answers/{answerID}/attachment?side=respondent|evaluator with a
// multipart "file" part, capped at MaxAttachmentSize.
func UploadAnswerAttachmentHandler(store evaluation.Store, blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.GetAnswer(r.Context(), chi.URLParam(r, "answerID"))
		if err != nil {
			httpError(w, err)
			return
		}
		if _, code, msg := answerWriteGuard(r, store, a.EvaluationID); code != 0 {
			http.Error(w, msg, code)
			return
		}

		side := r.URL.Query().Get("side")
		role := rbac.RoleFromContext(r.Context())
		var kind string
		switch side {
		case "", "respondent":
			kind = storage.KindRespondent
		case "evaluator":
			if role == "company" {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			kind = storage.KindEvaluator
		default:
			http.Error(w, "side must be respondent or evaluator", http.StatusBadRequest)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, storage.MaxAttachmentSize)
		if err := r.ParseMultipartForm(storage.MaxAttachmentSize); err != nil {
			http.Error(w, "file too large or bad multipart body", http.StatusRequestEntityTooLarge)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file part", http.StatusBadRequest)
			return
		}
		defer file.Close()

		key, err := blobs.Put(storage.AttachmentKey(kind, header.Filename, time.Now()), file)
		if err != nil {
			http.Error(w, "store attachment", http.StatusInternalServerError)
			return
		}
		if kind == storage.KindEvaluator {
			a.EvaluatorAttachment = key
		} else {
			a.RespondentAttachment = key
		}
		saved, err := store.UpdateAnswer(r.Context(), a)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

// DownloadAnswerAttachmentHandler streams the stored evidence file.
func DownloadAnswerAttachmentHandler(store evaluation.Store, blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.GetAnswer(r.Context(), chi.URLParam(r, "answerID"))
		if err != nil {
			httpError(w, err)
			return
		}
		if _, code := ownEvaluation(r, store, a.EvaluationID); code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
		key := a.RespondentAttachment
		if r.URL.Query().Get("side") == "evaluator" {
			key = a.EvaluatorAttachment
		}
		if key == "" {
			http.Error(w, "no attachment", http.StatusNotFound)
			return
		}
		rc, err := blobs.Get(key)
		if err != nil {
			http.Error(w, "attachment unavailable", http.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.Copy(w, rc)
	}
}
