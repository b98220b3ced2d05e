package evaluation

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicateAnswer maps the UNIQUE(evaluation_id, question_id)
	// constraint; the storage layer enforces it atomically.
	ErrDuplicateAnswer = errors.New("answer already exists for this question")

	// ErrDuplicateEvaluation rejects a second active evaluation for the
	// same company and period month.
	ErrDuplicateEvaluation = errors.New("active evaluation already exists for this company and period")
)

type ListOpts struct {
	CompanyID  string
	ActiveOnly *bool // nil: no filter
	Limit      int
	Offset     int
}

// Store is the persistence surface of the evaluation domain. SQLStore is
// the production implementation; tests use fakes.
type Store interface {
	CountSource
	ScoreSource

	// catalog
	PutCategory(ctx context.Context, c Category) (Category, error)
	GetCategory(ctx context.Context, id string) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	PutSubcategory(ctx context.Context, s Subcategory) (Subcategory, error)
	ListSubcategories(ctx context.Context, categoryID string) ([]Subcategory, error)
	PutQuestion(ctx context.Context, q Question) (Question, error)
	GetQuestion(ctx context.Context, id string) (Question, error)
	ListQuestions(ctx context.Context, categoryID string) ([]Question, error)
	PutForm(ctx context.Context, f Form) (Form, error)
	GetForm(ctx context.Context, id string) (Form, error)
	ListForms(ctx context.Context) ([]Form, error)

	// evaluations
	CreateEvaluation(ctx context.Context, ev Evaluation) (Evaluation, error)
	ListEvaluations(ctx context.Context, opts ListOpts) ([]Evaluation, error)
	SetEvaluationActive(ctx context.Context, id string, active bool) error

	// answers
	CreateAnswer(ctx context.Context, a Answer) (Answer, error)
	UpdateAnswer(ctx context.Context, a Answer) (Answer, error)
	GetAnswer(ctx context.Context, id string) (Answer, error)
	ListAnswers(ctx context.Context, evaluationID string) ([]Answer, error)

	// detail/progress views
	ListFormQuestionsWithAnswers(ctx context.Context, evaluationID string) ([]QuestionWithAnswer, error)
}

// Progress assembles the count snapshot served by the progress endpoint.
func GetProgress(ctx context.Context, store CountSource, evaluationID string) (Progress, error) {
	ev, err := store.GetEvaluation(ctx, evaluationID)
	if err != nil {
		return Progress{}, err
	}
	total, err := store.CountActiveQuestions(ctx, ev.FormID)
	if err != nil {
		return Progress{}, err
	}
	answered, err := store.CountRespondentAnswers(ctx, evaluationID)
	if err != nil {
		return Progress{}, err
	}
	return Progress{
		EvaluationID:        evaluationID,
		TotalQuestions:      total,
		AnsweredQuestions:   answered,
		UnansweredQuestions: total - answered,
	}, nil
}
