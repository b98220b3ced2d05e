package actionplan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Luks9/SMS/internal/actionplan"
)

type fakePlanStore struct {
	plans map[string]actionplan.Plan
}

func newFakePlanStore() *fakePlanStore {
	return &fakePlanStore{plans: map[string]actionplan.Plan{}}
}

func (f *fakePlanStore) Create(_ context.Context, p actionplan.Plan) (actionplan.Plan, error) {
	if p.ID == "" {
		p.ID = "plan1"
	}
	f.plans[p.ID] = p
	return p, nil
}

func (f *fakePlanStore) Get(_ context.Context, id string) (actionplan.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return actionplan.Plan{}, actionplan.ErrNotFound
	}
	return p, nil
}

func (f *fakePlanStore) Update(_ context.Context, p actionplan.Plan) (actionplan.Plan, error) {
	if _, ok := f.plans[p.ID]; !ok {
		return actionplan.Plan{}, actionplan.ErrNotFound
	}
	f.plans[p.ID] = p
	return p, nil
}

func (f *fakePlanStore) ListByCompany(_ context.Context, companyID string) ([]actionplan.Plan, error) {
	out := []actionplan.Plan{}
	for _, p := range f.plans {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlanStore) ListByEvaluation(_ context.Context, evaluationID string) ([]actionplan.Plan, error) {
	out := []actionplan.Plan{}
	for _, p := range f.plans {
		if p.EvaluationID == evaluationID {
			out = append(out, p)
		}
	}
	return out, nil
}

var planToday = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newService(f *fakePlanStore) *actionplan.Service {
	return actionplan.NewService(f, actionplan.WithClock(func() time.Time { return planToday }))
}

func datePtr(t time.Time) *time.Time { return &t }

func TestCreateDefaultsToPending(t *testing.T) {
	f := newFakePlanStore()
	p, err := newService(f).Create(context.Background(), actionplan.Plan{
		CompanyID:    "co1",
		EvaluationID: "ev1",
		Description:  "fix fire exits",
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != actionplan.StatusPending {
		t.Fatalf("status = %s", p.Status)
	}
	if !p.StartDate.Equal(planToday) {
		t.Fatalf("start date = %v", p.StartDate)
	}
}

func TestRespondMovesToInProgress(t *testing.T) {
	f := newFakePlanStore()
	svc := newService(f)
	p, _ := svc.Create(context.Background(), actionplan.Plan{
		ID: "plan1", CompanyID: "co1", EvaluationID: "ev1",
		Description: "fix", EndDate: datePtr(planToday.AddDate(0, 0, 7)),
	})

	p, err := svc.Respond(context.Background(), p.ID, actionplan.Response{Text: "exits remarked"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != actionplan.StatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", p.Status)
	}
	if p.ResponseCompany != "exits remarked" {
		t.Fatalf("response = %q", p.ResponseCompany)
	}
}

func TestRespondAfterDeadline(t *testing.T) {
	f := newFakePlanStore()
	svc := newService(f)
	p, _ := svc.Create(context.Background(), actionplan.Plan{
		ID: "plan1", CompanyID: "co1", EvaluationID: "ev1",
		Description: "fix", EndDate: datePtr(planToday.AddDate(0, 0, -1)),
	})

	_, err := svc.Respond(context.Background(), p.ID, actionplan.Response{Text: "too late"})
	if !errors.Is(err, actionplan.ErrPlanExpired) {
		t.Fatalf("got %v, want ErrPlanExpired", err)
	}
	stored := f.plans[p.ID]
	if stored.Status != actionplan.StatusCompleted {
		t.Fatalf("expired plan must be forced to COMPLETED, got %s", stored.Status)
	}
	if stored.ResponseCompany != "" {
		t.Fatal("late response must not be stored")
	}
}

func TestRespondOnDeadlineDayStillAllowed(t *testing.T) {
	f := newFakePlanStore()
	svc := newService(f)
	p, _ := svc.Create(context.Background(), actionplan.Plan{
		ID: "plan1", CompanyID: "co1", EvaluationID: "ev1",
		Description: "fix", EndDate: datePtr(planToday),
	})

	p, err := svc.Respond(context.Background(), p.ID, actionplan.Response{Text: "done today"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != actionplan.StatusInProgress {
		t.Fatalf("status = %s", p.Status)
	}
}

func TestGetSettlesExpiredPlan(t *testing.T) {
	f := newFakePlanStore()
	svc := newService(f)
	p, _ := svc.Create(context.Background(), actionplan.Plan{
		ID: "plan1", CompanyID: "co1", EvaluationID: "ev1",
		Description: "fix", EndDate: datePtr(planToday.AddDate(0, 0, -3)),
	})

	got, err := svc.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != actionplan.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}
}
