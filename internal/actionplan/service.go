package actionplan

import (
	"context"
	"time"
)

type Store interface {
	Create(ctx context.Context, p Plan) (Plan, error)
	Get(ctx context.Context, id string) (Plan, error)
	Update(ctx context.Context, p Plan) (Plan, error)
	ListByCompany(ctx context.Context, companyID string) ([]Plan, error)
	ListByEvaluation(ctx context.Context, evaluationID string) ([]Plan, error)
}

// Service applies the plan's lifecycle rules on top of the store:
// PENDING -> IN_PROGRESS when the company responds before the deadline,
// -> COMPLETED once the deadline passes.
type Service struct {
	store Store
	now   func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, p Plan) (Plan, error) {
	if p.Status == "" {
		p.Status = StatusPending
	}
	if p.StartDate.IsZero() {
		p.StartDate = s.now()
	}
	return s.store.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id string) (Plan, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	return s.settle(ctx, p)
}

// Response is the company's reply to a plan: free text, an optional
// fixed-choice answer, and an optional attachment key.
type Response struct {
	Text       string
	Choice     string
	Attachment string
}

// Respond records the company's answer. An expired deadline forces
// COMPLETED and rejects the response.
func (s *Service) Respond(ctx context.Context, id string, r Response) (Plan, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	if s.deadlinePassed(p) {
		if p.Status != StatusCompleted {
			p.Status = StatusCompleted
			if p, err = s.store.Update(ctx, p); err != nil {
				return Plan{}, err
			}
		}
		return p, ErrPlanExpired
	}
	p.ResponseCompany = r.Text
	if r.Choice != "" {
		p.ResponseChoice = r.Choice
	}
	if r.Attachment != "" {
		p.Attachment = r.Attachment
	}
	if p.ResponseCompany != "" {
		p.Status = StatusInProgress
	}
	return s.store.Update(ctx, p)
}

// Update applies an evaluator-side edit (description, dates, responsible).
func (s *Service) Update(ctx context.Context, p Plan) (Plan, error) {
	updated, err := s.store.Update(ctx, p)
	if err != nil {
		return Plan{}, err
	}
	return s.settle(ctx, updated)
}

func (s *Service) ListByCompany(ctx context.Context, companyID string) ([]Plan, error) {
	plans, err := s.store.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return s.settleAll(ctx, plans)
}

func (s *Service) ListByEvaluation(ctx context.Context, evaluationID string) ([]Plan, error) {
	plans, err := s.store.ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	return s.settleAll(ctx, plans)
}

// settle completes a plan whose deadline has passed.
func (s *Service) settle(ctx context.Context, p Plan) (Plan, error) {
	if s.deadlinePassed(p) && p.Status != StatusCompleted {
		p.Status = StatusCompleted
		return s.store.Update(ctx, p)
	}
	return p, nil
}

func (s *Service) settleAll(ctx context.Context, plans []Plan) ([]Plan, error) {
	for i := range plans {
		p, err := s.settle(ctx, plans[i])
		if err != nil {
			return nil, err
		}
		plans[i] = p
	}
	return plans, nil
}

func (s *Service) deadlinePassed(p Plan) bool {
	if p.EndDate == nil {
		return false
	}
	ey, em, ed := p.EndDate.Date()
	ny, nm, nd := s.now().Date()
	end := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return end.Before(today)
}
