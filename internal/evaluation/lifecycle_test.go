package evaluation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Luks9/SMS/internal/evaluation"
)

/* ---------------- fake CountSource ---------------- */

type fakeCounts struct {
	ev         evaluation.Evaluation
	total      int
	respondent int
	evaluator  int

	countErr error

	setCalls  int
	lastSet   evaluation.Status
	lastStamp *time.Time

	scopes   int
	inScope  bool
	unscoped int // accesses outside a Serialize scope
}

func (f *fakeCounts) touch() {
	if !f.inScope {
		f.unscoped++
	}
}

func (f *fakeCounts) Serialize(_ context.Context, _ string, fn func(evaluation.CountSource) error) error {
	f.scopes++
	f.inScope = true
	defer func() { f.inScope = false }()
	return fn(f)
}

func (f *fakeCounts) GetEvaluation(_ context.Context, id string) (evaluation.Evaluation, error) {
	f.touch()
	if id != f.ev.ID {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	return f.ev, nil
}

func (f *fakeCounts) CountActiveQuestions(context.Context, string) (int, error) {
	f.touch()
	return f.total, f.countErr
}

func (f *fakeCounts) CountRespondentAnswers(context.Context, string) (int, error) {
	f.touch()
	return f.respondent, f.countErr
}

func (f *fakeCounts) CountEvaluatorAnswers(context.Context, string) (int, error) {
	f.touch()
	return f.evaluator, f.countErr
}

func (f *fakeCounts) SetEvaluationStatus(_ context.Context, _ string, st evaluation.Status, completedAt *time.Time) error {
	f.touch()
	f.setCalls++
	f.lastSet = st
	f.lastStamp = completedAt
	f.ev.Status = st
	f.ev.CompletedAt = completedAt
	return nil
}

var (
	today     = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	tomorrow  = today.AddDate(0, 0, 1)
	yesterday = today.AddDate(0, 0, -1)
)

func newMachine(f *fakeCounts) *evaluation.StatusMachine {
	return evaluation.NewStatusMachine(f, evaluation.WithClock(func() time.Time { return today }))
}

func baseEval(status evaluation.Status, validUntil time.Time) evaluation.Evaluation {
	return evaluation.Evaluation{
		ID:         "ev1",
		CompanyID:  "co1",
		FormID:     "f1",
		Status:     status,
		ValidUntil: validUntil,
		IsActive:   true,
	}
}

/* ---------------- transition rules ---------------- */

func TestRefreshPendingWithoutAnswers(t *testing.T) {
	f := &fakeCounts{ev: baseEval(evaluation.StatusPending, tomorrow), total: 5}
	res, err := newMachine(f).Refresh(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed || res.Status != evaluation.StatusPending {
		t.Fatalf("got changed=%v status=%s", res.Changed, res.Status)
	}
	if f.setCalls != 0 {
		t.Fatalf("no write expected, got %d", f.setCalls)
	}
}

func TestRefreshMovesToInProgress(t *testing.T) {
	f := &fakeCounts{ev: baseEval(evaluation.StatusPending, tomorrow), total: 5, respondent: 2}
	res, err := newMachine(f).Refresh(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed || res.Status != evaluation.StatusInProgress {
		t.Fatalf("got changed=%v status=%s", res.Changed, res.Status)
	}
}

func TestRefreshRespondentCompletion(t *testing.T) {
	f := &fakeCounts{ev: baseEval(evaluation.StatusInProgress, tomorrow), total: 3, respondent: 3}
	res, err := newMachine(f).Refresh(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != evaluation.StatusCompleted {
		t.Fatalf("status = %s", res.Status)
	}
	if res.CompletedAt == nil || !res.CompletedAt.Equal(today) {
		t.Fatalf("completed_at = %v", res.CompletedAt)
	}
}

func TestEvaluatorReviewOverridesExpiry(t *testing.T) {
	f := &fakeCounts{ev: baseEval(evaluation.StatusInProgress, yesterday), total: 5, respondent: 2, evaluator: 5}
	res, err := newMachine(f).Refresh(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != evaluation.StatusCompleted {
		t.Fatalf("full evaluator review must complete even when expired, got %s", res.Status)
	}
}

func TestRespondentCompletionBlockedByExpiry(t *testing.T) {
	f := &fakeCounts{ev: baseEval(evaluation.StatusInProgress, yesterday), total: 5, respondent: 5}
	res, err := newMachine(f).Refresh(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != evaluation.StatusExpired {
		t.Fatalf("got %s, want EXPIRED", res.Status)
	}
	if res.CompletedAt != nil {
		t.Fatalf("completed_at must stay unset, got %v", res.CompletedAt)
	}
}

func TestExpiredWithPartialAnswers(t *testing.T) {
	f := &fakeCounts{ev: baseEval(evaluation.StatusInProgress, yesterday), total: 3, respondent: 3, evaluator: 0}
	res, err := newMachine(f).Refresh(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != evaluation.StatusExpired || res.CompletedAt != nil {
		t.Fatalf("got status=%s completed_at=%v", res.Status, res.CompletedAt)
	}
}

func TestZeroQuestionsNeverComplete(t *testing.T) {
	for _, tc := range []struct {
		respondent, evaluator int
		validUntil            time.Time
		want                  evaluation.Status
	}{
		{0, 0, tomorrow, evaluation.StatusPending},
		{2, 0, tomorrow, evaluation.StatusInProgress},
		{0, 2, tomorrow, evaluation.StatusInProgress},
		{5, 5, yesterday, evaluation.StatusExpired},
	} {
		f := &fakeCounts{
			ev:         baseEval(evaluation.StatusPending, tc.validUntil),
			total:      0,
			respondent: tc.respondent,
			evaluator:  tc.evaluator,
		}
		res, err := newMachine(f).Refresh(context.Background(), "ev1")
		if err != nil {
			t.Fatal(err)
		}
		if res.Status != tc.want {
			t.Errorf("resp=%d eval=%d: got %s, want %s", tc.respondent, tc.evaluator, res.Status, tc.want)
		}
		if res.Status == evaluation.StatusCompleted {
			t.Error("zero-question evaluation must never complete")
		}
	}
}

/* ---------------- contracts ---------------- */

func TestRefreshIsIdempotent(t *testing.T) {
	f := &fakeCounts{ev: baseEval(evaluation.StatusPending, tomorrow), total: 3, respondent: 1}
	m := newMachine(f)

	first, err := m.Refresh(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if !first.Changed {
		t.Fatal("first refresh should change")
	}
	second, err := m.Refresh(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if second.Changed {
		t.Fatal("second refresh with same counts must report unchanged")
	}
	if second.Status != first.Status {
		t.Fatalf("status drifted: %s -> %s", first.Status, second.Status)
	}
	if f.setCalls != 1 {
		t.Fatalf("expected exactly one write, got %d", f.setCalls)
	}
}

func TestCompletedAtIsSticky(t *testing.T) {
	stamp := today.Add(-48 * time.Hour)
	ev := baseEval(evaluation.StatusCompleted, tomorrow)
	ev.CompletedAt = &stamp
	f := &fakeCounts{ev: ev, total: 3, respondent: 3, evaluator: 3}

	res, err := newMachine(f).Refresh(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed {
		t.Fatal("still complete, nothing should change")
	}
	if res.CompletedAt == nil || !res.CompletedAt.Equal(stamp) {
		t.Fatalf("completed_at must not move: got %v, want %v", res.CompletedAt, stamp)
	}
}

func TestCompletionClearedWhenAnswersRetracted(t *testing.T) {
	stamp := yesterday
	ev := baseEval(evaluation.StatusCompleted, tomorrow)
	ev.CompletedAt = &stamp
	f := &fakeCounts{ev: ev, total: 3, respondent: 2}

	res, err := newMachine(f).Refresh(context.Background(), "ev1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != evaluation.StatusInProgress || res.CompletedAt != nil {
		t.Fatalf("got status=%s completed_at=%v", res.Status, res.CompletedAt)
	}
}

func TestCancelledIsAbsorbing(t *testing.T) {
	for _, tc := range []struct {
		total, respondent, evaluator int
		validUntil                   time.Time
	}{
		{5, 5, 5, tomorrow},
		{5, 5, 5, yesterday},
		{5, 0, 0, yesterday},
		{0, 0, 0, tomorrow},
	} {
		f := &fakeCounts{
			ev:         baseEval(evaluation.StatusCancelled, tc.validUntil),
			total:      tc.total,
			respondent: tc.respondent,
			evaluator:  tc.evaluator,
		}
		res, err := newMachine(f).Refresh(context.Background(), "ev1")
		if err != nil {
			t.Fatal(err)
		}
		if res.Changed || res.Status != evaluation.StatusCancelled {
			t.Fatalf("cancelled must be a no-op, got changed=%v status=%s", res.Changed, res.Status)
		}
		if f.setCalls != 0 {
			t.Fatal("cancelled evaluation must never be written")
		}
	}
}

func TestCountFailureAppliesNothing(t *testing.T) {
	f := &fakeCounts{ev: baseEval(evaluation.StatusPending, tomorrow), countErr: errors.New("db down")}
	_, err := newMachine(f).Refresh(context.Background(), "ev1")
	if err == nil {
		t.Fatal("expected error")
	}
	if f.setCalls != 0 {
		t.Fatal("no transition may be applied when counting fails")
	}
}

func TestRefreshUnknownEvaluation(t *testing.T) {
	f := &fakeCounts{ev: baseEval(evaluation.StatusPending, tomorrow)}
	_, err := newMachine(f).Refresh(context.Background(), "missing")
	if !errors.Is(err, evaluation.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

type recorderFunc func(id string, from, to evaluation.Status)

func (fn recorderFunc) StatusChanged(_ context.Context, id string, from, to evaluation.Status) {
	fn(id, from, to)
}

func TestRecorderSeesPersistedTransitions(t *testing.T) {
	f := &fakeCounts{ev: baseEval(evaluation.StatusPending, tomorrow), total: 2, respondent: 1}
	var got []evaluation.Status
	m := evaluation.NewStatusMachine(f,
		evaluation.WithClock(func() time.Time { return today }),
		evaluation.WithRecorder(recorderFunc(func(_ string, _, to evaluation.Status) {
			got = append(got, to)
		})))

	if _, err := m.Refresh(context.Background(), "ev1"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Refresh(context.Background(), "ev1"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != evaluation.StatusInProgress {
		t.Fatalf("recorder calls = %v", got)
	}
}

func TestRefreshRunsInsideSerializedScope(t *testing.T) {
	f := &fakeCounts{ev: baseEval(evaluation.StatusPending, tomorrow), total: 3, respondent: 1}
	if _, err := newMachine(f).Refresh(context.Background(), "ev1"); err != nil {
		t.Fatal(err)
	}
	if f.scopes != 1 {
		t.Fatalf("expected one serialized scope per refresh, got %d", f.scopes)
	}
	if f.unscoped != 0 {
		t.Fatalf("%d store accesses happened outside the serialized scope", f.unscoped)
	}
}

func TestRecorderNotifiedOutsideScope(t *testing.T) {
	f := &fakeCounts{ev: baseEval(evaluation.StatusPending, tomorrow), total: 2, respondent: 1}
	var duringScope bool
	m := evaluation.NewStatusMachine(f,
		evaluation.WithClock(func() time.Time { return today }),
		evaluation.WithRecorder(recorderFunc(func(string, evaluation.Status, evaluation.Status) {
			duringScope = f.inScope
		})))
	if _, err := m.Refresh(context.Background(), "ev1"); err != nil {
		t.Fatal(err)
	}
	if duringScope {
		t.Fatal("recorder must fire after the scope has committed")
	}
}

func TestDeadlinePassedUsesCalendarDate(t *testing.T) {
	// deadline today at midnight, clock late in the day: not expired
	now := time.Date(2024, 6, 15, 23, 59, 0, 0, time.UTC)
	deadline := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if evaluation.DeadlinePassed(deadline, now) {
		t.Fatal("same calendar day must not count as expired")
	}
	if !evaluation.DeadlinePassed(deadline.AddDate(0, 0, -1), now) {
		t.Fatal("previous day must count as expired")
	}
	if evaluation.DeadlinePassed(time.Time{}, now) {
		t.Fatal("zero deadline never expires")
	}
}
