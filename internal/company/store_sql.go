package company

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

type Store interface {
	Put(ctx context.Context, c Company) (Company, error)
	Get(ctx context.Context, id string) (Company, error)
	List(ctx context.Context, activeOnly bool) ([]Company, error)
	// FindByDomain returns the active company registered for an email
	// domain, or ErrNotFound.
	FindByDomain(ctx context.Context, domain string) (Company, error)
	FindByUser(ctx context.Context, userID string) (Company, error)
	AssignUser(ctx context.Context, companyID, userID string) error
}

type SQLStore struct{ db *sql.DB }

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Put(ctx context.Context, c Company) (Company, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CNPJ = CleanCNPJ(c.CNPJ)
	_, err := s.db.ExecContext(ctx, `INSERT INTO companies (id,name,cnpj,domain,user_id,is_active)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, cnpj=EXCLUDED.cnpj,
			domain=EXCLUDED.domain, user_id=EXCLUDED.user_id, is_active=EXCLUDED.is_active`,
		c.ID, c.Name, c.CNPJ, c.Domain, nullIfEmpty(c.UserID), c.IsActive)
	return c, err
}

func (s *SQLStore) Get(ctx context.Context, id string) (Company, error) {
	return s.one(ctx, `SELECT id,name,cnpj,domain,user_id,is_active FROM companies WHERE id=$1`, id)
}

func (s *SQLStore) FindByDomain(ctx context.Context, domain string) (Company, error) {
	return s.one(ctx, `SELECT id,name,cnpj,domain,user_id,is_active FROM companies
		WHERE domain=$1 AND is_active`, domain)
}

func (s *SQLStore) FindByUser(ctx context.Context, userID string) (Company, error) {
	return s.one(ctx, `SELECT id,name,cnpj,domain,user_id,is_active FROM companies
		WHERE user_id=$1 AND is_active`, userID)
}

func (s *SQLStore) one(ctx context.Context, q string, args ...any) (Company, error) {
	row := s.db.QueryRowContext(ctx, q, args...)
	c, err := scanCompany(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Company{}, ErrNotFound
	}
	return c, err
}

func (s *SQLStore) List(ctx context.Context, activeOnly bool) ([]Company, error) {
	q := `SELECT id,name,cnpj,domain,user_id,is_active FROM companies ORDER BY name`
	if activeOnly {
		q = `SELECT id,name,cnpj,domain,user_id,is_active FROM companies WHERE is_active ORDER BY name`
	}
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Company{}
	for rows.Next() {
		c, err := scanCompany(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) AssignUser(ctx context.Context, companyID, userID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE companies SET user_id=$1 WHERE id=$2`, userID, companyID)
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

func scanCompany(scan func(...any) error) (Company, error) {
	var c Company
	var userID sql.NullString
	if err := scan(&c.ID, &c.Name, &c.CNPJ, &c.Domain, &userID, &c.IsActive); err != nil {
		return Company{}, err
	}
	c.UserID = userID.String
	return c, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
