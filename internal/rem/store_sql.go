package rem

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type Store interface {
	Create(ctx context.Context, r Report) (Report, error)
	Update(ctx context.Context, r Report) (Report, error)
	Get(ctx context.Context, id string) (Report, error)
	List(ctx context.Context, companyID string) ([]Report, error)
	Delete(ctx context.Context, id string) error
}

type SQLStore struct{ db *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Create(ctx context.Context, r Report) (Report, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	data, err := json.Marshal(r.Indicators)
	if err != nil {
		return Report{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO rem_reports (id,company_id,period,data_json)
		VALUES ($1,$2,$3,$4)`,
		r.ID, r.CompanyID, r.Period.Format(dateLayout), string(data))
	if err != nil {
		if isUniqueViolation(err) {
			return Report{}, ErrDuplicatePeriod
		}
		return Report{}, err
	}
	return r, nil
}

func (s *SQLStore) Update(ctx context.Context, r Report) (Report, error) {
	data, err := json.Marshal(r.Indicators)
	if err != nil {
		return Report{}, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE rem_reports SET period=$1, data_json=$2 WHERE id=$3`,
		r.Period.Format(dateLayout), string(data), r.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Report{}, ErrDuplicatePeriod
		}
		return Report{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Report{}, err
	}
	if n == 0 {
		return Report{}, ErrNotFound
	}
	return s.Get(ctx, r.ID)
}

func (s *SQLStore) Get(ctx context.Context, id string) (Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,company_id,period,data_json FROM rem_reports WHERE id=$1`, id)
	r, err := scanReport(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	return r, err
}

func (s *SQLStore) List(ctx context.Context, companyID string) ([]Report, error) {
	q := `SELECT id,company_id,period,data_json FROM rem_reports ORDER BY period DESC`
	args := []any{}
	if companyID != "" {
		q = `SELECT id,company_id,period,data_json FROM rem_reports WHERE company_id=$1 ORDER BY period DESC`
		args = append(args, companyID)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Report{}
	for rows.Next() {
		r, err := scanReport(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rem_reports WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanReport(scan func(...any) error) (Report, error) {
	var r Report
	var period, data string
	if err := scan(&r.ID, &r.CompanyID, &period, &data); err != nil {
		return Report{}, err
	}
	if t, err := time.Parse(dateLayout, period); err == nil {
		r.Period = t
	}
	if err := json.Unmarshal([]byte(data), &r.Indicators); err != nil {
		r.Indicators = Indicators{}
	}
	return r, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
