package evaluation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Luks9/SMS/internal/evaluation"
)

type fakeScoreStore struct {
	answers []evaluation.WeightedVerdict
	listErr error
	setErr  error

	persisted *float64
}

func (f *fakeScoreStore) ListWeightedVerdicts(context.Context, string) ([]evaluation.WeightedVerdict, error) {
	return f.answers, f.listErr
}

func (f *fakeScoreStore) SetEvaluationScore(_ context.Context, _ string, score float64) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.persisted = &score
	return nil
}

func wv(v evaluation.Verdict, weight float64) evaluation.WeightedVerdict {
	return evaluation.WeightedVerdict{Evaluator: v, CategoryWeight: weight}
}

func TestComputeDeductsNonConformingWeights(t *testing.T) {
	f := &fakeScoreStore{answers: []evaluation.WeightedVerdict{
		wv(evaluation.VerdictNonConforming, 10),
		wv(evaluation.VerdictConforming, 20),
		wv(evaluation.VerdictNonConforming, 5),
	}}
	got, err := evaluation.NewScorer(f).Compute(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if got != 85 {
		t.Fatalf("score = %v, want 85", got)
	}
	if f.persisted == nil || *f.persisted != 85 {
		t.Fatalf("persisted = %v, want 85", f.persisted)
	}
}

func TestComputeNoDeductions(t *testing.T) {
	f := &fakeScoreStore{answers: []evaluation.WeightedVerdict{
		wv(evaluation.VerdictConforming, 10),
		wv(evaluation.VerdictNotApplicable, 20),
		wv(evaluation.VerdictUnderAnalysis, 30),
		wv(evaluation.VerdictNone, 40),
	}}
	got, err := evaluation.NewScorer(f).Compute(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if got != 100 {
		t.Fatalf("score = %v, want 100", got)
	}
}

func TestComputeWeightCountedPerAnswer(t *testing.T) {
	// two NC answers in the same category each deduct the category weight
	f := &fakeScoreStore{answers: []evaluation.WeightedVerdict{
		wv(evaluation.VerdictNonConforming, 30),
		wv(evaluation.VerdictNonConforming, 30),
	}}
	got, err := evaluation.NewScorer(f).Compute(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if got != 40 {
		t.Fatalf("score = %v, want 40", got)
	}
}

func TestComputeCanGoNegative(t *testing.T) {
	f := &fakeScoreStore{answers: []evaluation.WeightedVerdict{
		wv(evaluation.VerdictNonConforming, 60),
		wv(evaluation.VerdictNonConforming, 70),
	}}
	got, err := evaluation.NewScorer(f).Compute(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if got != -30 {
		t.Fatalf("score = %v, want -30 (deductions are not clamped)", got)
	}
}

func TestComputeEmptyAnswerSet(t *testing.T) {
	f := &fakeScoreStore{}
	_, err := evaluation.NewScorer(f).Compute(context.Background(), "ev1")
	if !errors.Is(err, evaluation.ErrNoAnswers) {
		t.Fatalf("got %v, want ErrNoAnswers", err)
	}
	if f.persisted != nil {
		t.Fatal("no score may be persisted without answers")
	}
}

func TestComputeListFailureWritesNothing(t *testing.T) {
	f := &fakeScoreStore{listErr: errors.New("db down")}
	if _, err := evaluation.NewScorer(f).Compute(context.Background(), "ev1"); err == nil {
		t.Fatal("expected error")
	}
	if f.persisted != nil {
		t.Fatal("no score may be persisted when the answer query fails")
	}
}
