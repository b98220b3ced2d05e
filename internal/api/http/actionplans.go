package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Luks9/SMS/internal/actionplan"
	"github.com/Luks9/SMS/internal/rbac"
	"github.com/Luks9/SMS/internal/storage"
)

func ownPlan(r *http.Request, svc *actionplan.Service, id string) (actionplan.Plan, int) {
	p, err := svc.Get(r.Context(), id)
	if err != nil {
		return actionplan.Plan{}, storeErrStatus(err)
	}
	if own := rbac.CompanyFromContext(r.Context()); own != "" && own != p.CompanyID {
		return actionplan.Plan{}, http.StatusForbidden
	}
	return p, 0
}

func CreateActionPlanHandler(svc *actionplan.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CompanyID     string `json:"company_id"`
			EvaluationID  string `json:"evaluation_id"`
			Description   string `json:"description"`
			StartDate     string `json:"start_date"`
			EndDate       string `json:"end_date"`
			ResponsibleID string `json:"responsible_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.CompanyID == "" || req.Description == "" {
			http.Error(w, "company_id and description required", http.StatusBadRequest)
			return
		}
		start, err := parseDate(req.StartDate)
		if err != nil {
			http.Error(w, "start_date: want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		end, err := parseDate(req.EndDate)
		if err != nil {
			http.Error(w, "end_date: want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		p := actionplan.Plan{
			CompanyID:     req.CompanyID,
			EvaluationID:  req.EvaluationID,
			Description:   req.Description,
			StartDate:     start,
			ResponsibleID: req.ResponsibleID,
		}
		if !end.IsZero() {
			p.EndDate = &end
		}
		saved, err := svc.Create(r.Context(), p)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func GetActionPlanHandler(svc *actionplan.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, code := ownPlan(r, svc, chi.URLParam(r, "planID"))
		if code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// RespondActionPlanHandler records the company's answer to a plan. Accepts
// JSON {"response": "..."} or a multipart form with a "response" field and
// an optional "file" attachment. A response after end_date completes the
// plan without recording the answer.
func RespondActionPlanHandler(svc *actionplan.Service, blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "planID")
		if _, code := ownPlan(r, svc, id); code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}

		var resp actionplan.Response
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			r.Body = http.MaxBytesReader(w, r.Body, storage.MaxAttachmentSize)
			if err := r.ParseMultipartForm(storage.MaxAttachmentSize); err != nil {
				http.Error(w, "file too large or bad multipart body", http.StatusRequestEntityTooLarge)
				return
			}
			resp.Text = r.FormValue("response")
			resp.Choice = r.FormValue("response_choice")
			if file, header, err := r.FormFile("file"); err == nil {
				defer file.Close()
				key, err := blobs.Put(storage.AttachmentKey(storage.KindActionPlan, header.Filename, time.Now()), file)
				if err != nil {
					http.Error(w, "store attachment", http.StatusInternalServerError)
					return
				}
				resp.Attachment = key
			}
		} else {
			var req struct {
				Response string `json:"response"`
				Choice   string `json:"response_choice"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad json", http.StatusBadRequest)
				return
			}
			resp.Text = req.Response
			resp.Choice = req.Choice
		}
		if resp.Text == "" {
			http.Error(w, "response required", http.StatusBadRequest)
			return
		}

		p, err := svc.Respond(r.Context(), id, resp)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func UpdateActionPlanHandler(svc *actionplan.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Get(r.Context(), chi.URLParam(r, "planID"))
		if err != nil {
			httpError(w, err)
			return
		}
		var req struct {
			Description   *string `json:"description"`
			EndDate       *string `json:"end_date"`
			ResponsibleID *string `json:"responsible_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.EndDate != nil {
			end, err := parseDate(*req.EndDate)
			if err != nil {
				http.Error(w, "end_date: want YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			if end.IsZero() {
				p.EndDate = nil
			} else {
				p.EndDate = &end
			}
		}
		if req.ResponsibleID != nil {
			p.ResponsibleID = *req.ResponsibleID
		}
		saved, err := svc.Update(r.Context(), p)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func ListActionPlansByCompanyHandler(svc *actionplan.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID := chi.URLParam(r, "companyID")
		if own := rbac.CompanyFromContext(r.Context()); own != "" && own != companyID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		plans, err := svc.ListByCompany(r.Context(), companyID)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plans)
	}
}

func ListActionPlansByEvaluationHandler(svc *actionplan.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := svc.ListByEvaluation(r.Context(), chi.URLParam(r, "evaluationID"))
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plans)
	}
}

func DownloadActionPlanAttachmentHandler(svc *actionplan.Service, blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, code := ownPlan(r, svc, chi.URLParam(r, "planID"))
		if code != 0 {
			http.Error(w, http.StatusText(code), code)
			return
		}
		if p.Attachment == "" {
			http.Error(w, "no attachment", http.StatusNotFound)
			return
		}
		rc, err := blobs.Get(p.Attachment)
		if err != nil {
			http.Error(w, "attachment unavailable", http.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.Copy(w, rc)
	}
}
