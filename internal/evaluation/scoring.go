package evaluation

import (
	"context"
	"errors"
	"fmt"
)

// BaseScore is the starting compliance score before deductions.
const BaseScore = 100.0

// ErrNoAnswers is returned when an evaluation has no answers to score.
// Expected and user-visible; no score is persisted in that case.
var ErrNoAnswers = errors.New("evaluation has no answers")

// ScoreSource is what the scoring engine reads and writes.
type ScoreSource interface {
	ListWeightedVerdicts(ctx context.Context, evaluationID string) ([]WeightedVerdict, error)
	SetEvaluationScore(ctx context.Context, id string, score float64) error
}

// Scorer computes the weighted compliance score of one evaluation from
// evaluator verdicts. It runs on demand, not on answer writes.
type Scorer struct {
	store ScoreSource
}

func NewScorer(store ScoreSource) *Scorer { return &Scorer{store: store} }

// Compute deducts each non-conforming answer's category weight from the
// base score and persists the result. Weights are read per answer, so two
// NC answers in the same category each deduct that category's weight. The
// result is not clamped and can go below zero.
func (s *Scorer) Compute(ctx context.Context, evaluationID string) (float64, error) {
	answers, err := s.store.ListWeightedVerdicts(ctx, evaluationID)
	if err != nil {
		return 0, fmt.Errorf("list answers: %w", err)
	}
	if len(answers) == 0 {
		return 0, ErrNoAnswers
	}
	score := Score(answers)
	if err := s.store.SetEvaluationScore(ctx, evaluationID, score); err != nil {
		return 0, err
	}
	return score, nil
}

// Score is the pure deduction rule over an answer snapshot.
func Score(answers []WeightedVerdict) float64 {
	total := BaseScore
	for _, a := range answers {
		if a.Evaluator == VerdictNonConforming {
			total -= a.CategoryWeight
		}
	}
	return total
}
