package evaluation

import (
	"context"
	"fmt"
	"time"
)

// CountSource is what the status machine reads and writes. Counts must be
// computed fresh against the store on every call; the machine never caches
// them across invocations.
type CountSource interface {
	GetEvaluation(ctx context.Context, id string) (Evaluation, error)
	CountActiveQuestions(ctx context.Context, formID string) (int, error)
	CountRespondentAnswers(ctx context.Context, evaluationID string) (int, error)
	CountEvaluatorAnswers(ctx context.Context, evaluationID string) (int, error)
	SetEvaluationStatus(ctx context.Context, id string, status Status, completedAt *time.Time) error

	// Serialize runs fn with exclusive access to the evaluation: two
	// refreshes of the same evaluation must not interleave, or the later
	// write could persist a status derived from stale counts. SQLStore
	// runs fn in a transaction, holding the row lock on postgres;
	// in-memory fakes may call fn directly.
	Serialize(ctx context.Context, evaluationID string, fn func(CountSource) error) error
}

// StatusRecorder receives a notification after a persisted status change.
// Used to append to the event log; a nil recorder disables it.
type StatusRecorder interface {
	StatusChanged(ctx context.Context, evaluationID string, from, to Status)
}

// RefreshResult reports the outcome of one status recomputation.
type RefreshResult struct {
	Changed     bool       `json:"changed"`
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StatusMachine derives an evaluation's lifecycle state from answer counts
// and the valid_until deadline. It is deterministic and idempotent: calling
// Refresh twice with no intervening answer write is a no-op the second time.
type StatusMachine struct {
	store    CountSource
	recorder StatusRecorder
	now      func() time.Time
}

type MachineOption func(*StatusMachine)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) MachineOption {
	return func(m *StatusMachine) { m.now = now }
}

// WithRecorder wires an event-log recorder for persisted transitions.
func WithRecorder(r StatusRecorder) MachineOption {
	return func(m *StatusMachine) { m.recorder = r }
}

func NewStatusMachine(store CountSource, opts ...MachineOption) *StatusMachine {
	m := &StatusMachine{store: store, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Refresh recomputes the status of one evaluation from the current counts
// and persists it when it changed. Callers invoke it after every durable
// answer write. If any count query fails nothing is applied. The whole
// read-count-write sequence runs inside the store's serialized scope; the
// recorder is notified only after the scope has committed.
func (m *StatusMachine) Refresh(ctx context.Context, evaluationID string) (RefreshResult, error) {
	var res RefreshResult
	var from Status
	err := m.store.Serialize(ctx, evaluationID, func(store CountSource) error {
		var err error
		res, from, err = m.refresh(ctx, store, evaluationID)
		return err
	})
	if err != nil {
		return RefreshResult{}, err
	}
	if res.Changed && m.recorder != nil {
		m.recorder.StatusChanged(ctx, evaluationID, from, res.Status)
	}
	return res, nil
}

func (m *StatusMachine) refresh(ctx context.Context, store CountSource, evaluationID string) (RefreshResult, Status, error) {
	ev, err := store.GetEvaluation(ctx, evaluationID)
	if err != nil {
		return RefreshResult{}, "", err
	}

	// Cancellation is absorbing: an out-of-band administrative state the
	// machine must never override.
	if ev.Status == StatusCancelled {
		return RefreshResult{Changed: false, Status: StatusCancelled, CompletedAt: ev.CompletedAt}, ev.Status, nil
	}

	total, err := store.CountActiveQuestions(ctx, ev.FormID)
	if err != nil {
		return RefreshResult{}, "", fmt.Errorf("count questions: %w", err)
	}
	respondent, err := store.CountRespondentAnswers(ctx, evaluationID)
	if err != nil {
		return RefreshResult{}, "", fmt.Errorf("count respondent answers: %w", err)
	}
	evaluator, err := store.CountEvaluatorAnswers(ctx, evaluationID)
	if err != nil {
		return RefreshResult{}, "", fmt.Errorf("count evaluator answers: %w", err)
	}

	now := m.now()
	target, completedAt := resolveStatus(ev, counts{
		total:      total,
		respondent: respondent,
		evaluator:  evaluator,
		expired:    DeadlinePassed(ev.ValidUntil, now),
	}, now)

	if target == ev.Status {
		return RefreshResult{Changed: false, Status: target, CompletedAt: completedAt}, ev.Status, nil
	}
	if err := store.SetEvaluationStatus(ctx, evaluationID, target, completedAt); err != nil {
		return RefreshResult{}, "", err
	}
	return RefreshResult{Changed: true, Status: target, CompletedAt: completedAt}, ev.Status, nil
}

type counts struct {
	total      int
	respondent int
	evaluator  int
	expired    bool
}

// resolveStatus applies the transition rules in priority order. A full
// evaluator review completes the evaluation even past the deadline; a full
// respondent round only completes it while the deadline has not passed.
// Evaluations with zero questions can never complete through the count path.
func resolveStatus(ev Evaluation, c counts, now time.Time) (Status, *time.Time) {
	switch {
	case c.total > 0 && (c.evaluator >= c.total || (c.respondent >= c.total && !c.expired)):
		// completed_at is sticky while the evaluation stays COMPLETED
		if ev.CompletedAt != nil {
			return StatusCompleted, ev.CompletedAt
		}
		ts := now
		return StatusCompleted, &ts
	case c.expired:
		return StatusExpired, nil
	case c.respondent > 0 || c.evaluator > 0:
		return StatusInProgress, nil
	default:
		return StatusPending, nil
	}
}

// DeadlinePassed reports whether validUntil lies strictly before now's
// calendar date. Time of day never factors in.
func DeadlinePassed(validUntil, now time.Time) bool {
	if validUntil.IsZero() {
		return false
	}
	vy, vm, vd := validUntil.Date()
	ny, nm, nd := now.Date()
	v := time.Date(vy, vm, vd, 0, 0, 0, 0, time.UTC)
	n := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return v.Before(n)
}
