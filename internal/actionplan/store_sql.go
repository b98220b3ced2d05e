package actionplan

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type SQLStore struct{ db *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Create(ctx context.Context, p Plan) (Plan, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO action_plans
		(id,company_id,evaluation_id,description,response_company,response_choice,start_date,end_date,responsible_id,status,attachment)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.CompanyID, p.EvaluationID, p.Description, p.ResponseCompany, p.ResponseChoice,
		p.StartDate.Format(dateLayout), datePtr(p.EndDate), nullIfEmpty(p.ResponsibleID),
		string(p.Status), p.Attachment)
	if err != nil {
		return Plan{}, err
	}
	return p, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Plan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,company_id,evaluation_id,description,response_company,response_choice,
		start_date,end_date,responsible_id,status,attachment FROM action_plans WHERE id=$1`, id)
	p, err := scanPlan(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, ErrNotFound
	}
	return p, err
}

func (s *SQLStore) Update(ctx context.Context, p Plan) (Plan, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE action_plans SET
		description=$1, response_company=$2, response_choice=$3, end_date=$4, responsible_id=$5, status=$6, attachment=$7
		WHERE id=$8`,
		p.Description, p.ResponseCompany, p.ResponseChoice, datePtr(p.EndDate), nullIfEmpty(p.ResponsibleID),
		string(p.Status), p.Attachment, p.ID)
	if err != nil {
		return Plan{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Plan{}, err
	}
	if n == 0 {
		return Plan{}, ErrNotFound
	}
	return s.Get(ctx, p.ID)
}

func (s *SQLStore) ListByCompany(ctx context.Context, companyID string) ([]Plan, error) {
	return s.list(ctx, `SELECT id,company_id,evaluation_id,description,response_company,response_choice,
		start_date,end_date,responsible_id,status,attachment FROM action_plans
		WHERE company_id=$1 ORDER BY start_date DESC`, companyID)
}

func (s *SQLStore) ListByEvaluation(ctx context.Context, evaluationID string) ([]Plan, error) {
	return s.list(ctx, `SELECT id,company_id,evaluation_id,description,response_company,response_choice,
		start_date,end_date,responsible_id,status,attachment FROM action_plans
		WHERE evaluation_id=$1 ORDER BY start_date DESC`, evaluationID)
}

func (s *SQLStore) list(ctx context.Context, q string, args ...any) ([]Plan, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Plan{}
	for rows.Next() {
		p, err := scanPlan(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPlan(scan func(...any) error) (Plan, error) {
	var p Plan
	var start string
	var end, responsible sql.NullString
	var status string
	if err := scan(&p.ID, &p.CompanyID, &p.EvaluationID, &p.Description, &p.ResponseCompany,
		&p.ResponseChoice, &start, &end, &responsible, &status, &p.Attachment); err != nil {
		return Plan{}, err
	}
	if t, err := time.Parse(dateLayout, start); err == nil {
		p.StartDate = t
	}
	if end.Valid && end.String != "" {
		if t, err := time.Parse(dateLayout, end.String); err == nil {
			p.EndDate = &t
		}
	}
	p.ResponsibleID = responsible.String
	p.Status = Status(status)
	return p, nil
}

func datePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
