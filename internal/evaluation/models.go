package evaluation

import "time"

// Status is the lifecycle state of an Evaluation. Except for CANCELLED it is
// always derivable from answer counts and the valid_until deadline.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusExpired    Status = "EXPIRED"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusExpired, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Verdict is a single respondent or evaluator judgement on one question.
type Verdict string

const (
	VerdictNone          Verdict = ""   // not answered yet
	VerdictNotApplicable Verdict = "NA" // Não Aplicável
	VerdictConforming    Verdict = "C"  // Conforme
	VerdictNonConforming Verdict = "NC" // Não Conforme
	VerdictUnderAnalysis Verdict = "A"  // Em Análise
)

func (v Verdict) IsValid() bool {
	switch v {
	case VerdictNotApplicable, VerdictConforming, VerdictNonConforming, VerdictUnderAnalysis:
		return true
	}
	return false
}

// Category groups questions and carries the deduction weight applied per
// non-conforming answer. The weight is an opaque magnitude, not a fraction.
type Category struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Weight   float64 `json:"weight"`
	IsActive bool    `json:"is_active"`
}

type Subcategory struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"category_id"`
	IsActive   bool   `json:"is_active"`
}

type Question struct {
	ID             string `json:"id"`
	CategoryID     string `json:"category_id"`
	SubcategoryID  string `json:"subcategory_id,omitempty"`
	Text           string `json:"text"`
	Recommendation string `json:"recommendation,omitempty"`
	IsActive       bool   `json:"is_active"`
}

// Form is a named set of categories; the active questions of those
// categories are the question universe of every evaluation built on it.
type Form struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	IsActive    bool     `json:"is_active"`
	CategoryIDs []string `json:"categories"`
}

type Evaluation struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	EvaluatorID string     `json:"evaluator_id"`
	FormID      string     `json:"form_id"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ValidUntil  time.Time  `json:"valid_until"` // date precision
	Score       *float64   `json:"score,omitempty"`
	Status      Status     `json:"status"`
	Period      *time.Time `json:"period,omitempty"` // date precision
	IsActive    bool       `json:"is_active"`
}

// Answer holds the independent respondent and evaluator verdicts for one
// question of one evaluation. CompanyID is denormalized from the evaluation.
type Answer struct {
	ID           string `json:"id"`
	EvaluationID string `json:"evaluation_id"`
	QuestionID   string `json:"question_id"`
	CompanyID    string `json:"company_id"`

	Respondent           Verdict    `json:"answer_respondent,omitempty"`
	RespondentAttachment string     `json:"attachment_respondent,omitempty"`
	RespondentDate       *time.Time `json:"date_respondent,omitempty"`

	Evaluator           Verdict    `json:"answer_evaluator,omitempty"`
	EvaluatorAttachment string     `json:"attachment_evaluator,omitempty"`
	EvaluatorDate       *time.Time `json:"date_evaluator,omitempty"`

	Note string `json:"note,omitempty"`
}

// Progress is the answer-count snapshot served to clients.
type Progress struct {
	EvaluationID        string `json:"evaluation_id"`
	TotalQuestions      int    `json:"total_questions"`
	AnsweredQuestions   int    `json:"answered_questions"`
	UnansweredQuestions int    `json:"unanswered_questions"`
}

// WeightedVerdict is the minimal per-answer view the scoring engine needs.
type WeightedVerdict struct {
	Evaluator      Verdict
	CategoryWeight float64
}

// QuestionWithAnswer joins one form question with its answer, if any, for
// the evaluation details view.
type QuestionWithAnswer struct {
	Question Question `json:"question"`
	Answer   *Answer  `json:"answer"`
}
