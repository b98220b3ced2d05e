package actionplan

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

var (
	ErrNotFound = errors.New("action plan not found")

	// ErrPlanExpired rejects company responses after end_date has passed;
	// the plan is forced to COMPLETED at that point.
	ErrPlanExpired = errors.New("action plan deadline has passed")
)

// Plan is the remediation record attached to an evaluation. The company
// answers with ResponseCompany and an optional attachment; passing EndDate
// completes the plan.
type Plan struct {
	ID              string     `json:"id"`
	CompanyID       string     `json:"company_id"`
	EvaluationID    string     `json:"evaluation_id"`
	Description     string     `json:"description"`
	ResponseCompany string     `json:"response_company,omitempty"`
	ResponseChoice  string     `json:"response_choice,omitempty"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	ResponsibleID   string     `json:"responsible_id,omitempty"`
	Status          Status     `json:"status"`
	Attachment      string     `json:"attachment,omitempty"`
}
