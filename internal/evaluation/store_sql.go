package evaluation

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// dbtx is the query surface shared by *sql.DB and *sql.Tx, so every store
// method works both on the bare handle and inside a Serialize scope.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLStore struct {
	db     *sql.DB // nil inside a Serialize scope
	q      dbtx
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, q: db, driver: driver}
}

// Serialize runs fn against a transaction-scoped copy of the store. On
// postgres the evaluation row is locked for the duration, so concurrent
// refreshes of the same evaluation queue up instead of overwriting each
// other with stale counts; sqlite serializes writers at the file level.
func (s *SQLStore) Serialize(ctx context.Context, evaluationID string, fn func(CountSource) error) error {
	if s.db == nil { // already scoped, reuse the transaction
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if s.driver == "postgres" {
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id FROM evaluations WHERE id=$1 FOR UPDATE`, evaluationID).Scan(&id)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
	}
	if err := fn(&SQLStore{q: tx, driver: s.driver}); err != nil {
		return err
	}
	return tx.Commit()
}

// ---- catalog ----

func (s *SQLStore) PutCategory(ctx context.Context, c Category) (Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO categories (id,name,weight,is_active)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, weight=EXCLUDED.weight, is_active=EXCLUDED.is_active`,
		c.ID, c.Name, c.Weight, c.IsActive)
	return c, err
}

func (s *SQLStore) GetCategory(ctx context.Context, id string) (Category, error) {
	row := s.q.QueryRowContext(ctx, `SELECT id,name,weight,is_active FROM categories WHERE id=$1`, id)
	var c Category
	if err := row.Scan(&c.ID, &c.Name, &c.Weight, &c.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Category{}, ErrNotFound
		}
		return Category{}, err
	}
	return c, nil
}

func (s *SQLStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id,name,weight,is_active FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Weight, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutSubcategory(ctx context.Context, sc Subcategory) (Subcategory, error) {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO subcategories (id,name,category_id,is_active)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, category_id=EXCLUDED.category_id, is_active=EXCLUDED.is_active`,
		sc.ID, sc.Name, sc.CategoryID, sc.IsActive)
	return sc, err
}

func (s *SQLStore) ListSubcategories(ctx context.Context, categoryID string) ([]Subcategory, error) {
	q := `SELECT id,name,category_id,is_active FROM subcategories ORDER BY name`
	args := []any{}
	if categoryID != "" {
		q = `SELECT id,name,category_id,is_active FROM subcategories WHERE category_id=$1 ORDER BY name`
		args = append(args, categoryID)
	}
	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Subcategory{}
	for rows.Next() {
		var sc Subcategory
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.CategoryID, &sc.IsActive); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutQuestion(ctx context.Context, q Question) (Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO questions (id,category_id,subcategory_id,text,recommendation,is_active)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET category_id=EXCLUDED.category_id, subcategory_id=EXCLUDED.subcategory_id,
			text=EXCLUDED.text, recommendation=EXCLUDED.recommendation, is_active=EXCLUDED.is_active`,
		q.ID, q.CategoryID, nullIfEmpty(q.SubcategoryID), q.Text, q.Recommendation, q.IsActive)
	return q, err
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id,category_id,subcategory_id,text,recommendation,is_active FROM questions WHERE id=$1`, id)
	q, err := scanQuestion(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrNotFound
	}
	return q, err
}

func (s *SQLStore) ListQuestions(ctx context.Context, categoryID string) ([]Question, error) {
	q := `SELECT id,category_id,subcategory_id,text,recommendation,is_active FROM questions ORDER BY id`
	args := []any{}
	if categoryID != "" {
		q = `SELECT id,category_id,subcategory_id,text,recommendation,is_active FROM questions WHERE category_id=$1 ORDER BY id`
		args = append(args, categoryID)
	}
	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		qu, err := scanQuestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, qu)
	}
	return out, rows.Err()
}

func scanQuestion(scan func(...any) error) (Question, error) {
	var q Question
	var sub, rec sql.NullString
	if err := scan(&q.ID, &q.CategoryID, &sub, &q.Text, &rec, &q.IsActive); err != nil {
		return Question{}, err
	}
	q.SubcategoryID = sub.String
	q.Recommendation = rec.String
	return q, nil
}

func (s *SQLStore) PutForm(ctx context.Context, f Form) (Form, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Form{}, err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `INSERT INTO forms (id,name,is_active) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, is_active=EXCLUDED.is_active`,
		f.ID, f.Name, f.IsActive); err != nil {
		return Form{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM form_categories WHERE form_id=$1`, f.ID); err != nil {
		return Form{}, err
	}
	for _, cid := range f.CategoryIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO form_categories (form_id,category_id) VALUES ($1,$2)`, f.ID, cid); err != nil {
			return Form{}, err
		}
	}
	return f, tx.Commit()
}

func (s *SQLStore) GetForm(ctx context.Context, id string) (Form, error) {
	row := s.q.QueryRowContext(ctx, `SELECT id,name,is_active FROM forms WHERE id=$1`, id)
	var f Form
	if err := row.Scan(&f.ID, &f.Name, &f.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Form{}, ErrNotFound
		}
		return Form{}, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT category_id FROM form_categories WHERE form_id=$1`, id)
	if err != nil {
		return Form{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return Form{}, err
		}
		f.CategoryIDs = append(f.CategoryIDs, cid)
	}
	return f, rows.Err()
}

func (s *SQLStore) ListForms(ctx context.Context) ([]Form, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id,name,is_active FROM forms ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Form{}
	for rows.Next() {
		var f Form
		if err := rows.Scan(&f.ID, &f.Name, &f.IsActive); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		full, err := s.GetForm(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].CategoryIDs = full.CategoryIDs
	}
	return out, nil
}

// ---- evaluations ----

func (s *SQLStore) CreateEvaluation(ctx context.Context, ev Evaluation) (Evaluation, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Status == "" {
		ev.Status = StatusPending
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	// Only one active evaluation per company and period month. Periods are
	// TEXT ISO dates, so the month is a lexical range on both drivers.
	if ev.Period != nil {
		monthStart := time.Date(ev.Period.Year(), ev.Period.Month(), 1, 0, 0, 0, 0, time.UTC)
		var one int
		err := s.q.QueryRowContext(ctx, `SELECT 1 FROM evaluations
			WHERE company_id=$1 AND is_active=$2 AND period>=$3 AND period<$4 LIMIT 1`,
			ev.CompanyID, true,
			monthStart.Format(dateLayout), monthStart.AddDate(0, 1, 0).Format(dateLayout)).Scan(&one)
		switch {
		case err == nil:
			return Evaluation{}, ErrDuplicateEvaluation
		case !errors.Is(err, sql.ErrNoRows):
			return Evaluation{}, err
		}
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO evaluations
		(id,company_id,evaluator_id,form_id,created_at,completed_at,valid_until,score,status,period,is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		ev.ID, ev.CompanyID, ev.EvaluatorID, ev.FormID, ev.CreatedAt.Unix(),
		unixPtr(ev.CompletedAt), ev.ValidUntil.Format(dateLayout), ev.Score,
		string(ev.Status), datePtr(ev.Period), ev.IsActive)
	if err != nil {
		return Evaluation{}, err
	}
	return ev, nil
}

func (s *SQLStore) GetEvaluation(ctx context.Context, id string) (Evaluation, error) {
	row := s.q.QueryRowContext(ctx, `SELECT id,company_id,evaluator_id,form_id,created_at,completed_at,
		valid_until,score,status,period,is_active FROM evaluations WHERE id=$1`, id)
	ev, err := scanEvaluation(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Evaluation{}, ErrNotFound
	}
	return ev, err
}

func (s *SQLStore) ListEvaluations(ctx context.Context, opts ListOpts) ([]Evaluation, error) {
	q := `SELECT id,company_id,evaluator_id,form_id,created_at,completed_at,
		valid_until,score,status,period,is_active FROM evaluations`
	where := []string{}
	args := []any{}
	if opts.CompanyID != "" {
		args = append(args, opts.CompanyID)
		where = append(where, "company_id=$"+strconv.Itoa(len(args)))
	}
	if opts.ActiveOnly != nil {
		args = append(args, *opts.ActiveOnly)
		where = append(where, "is_active=$"+strconv.Itoa(len(args)))
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY period DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += " LIMIT $" + strconv.Itoa(len(args))
		args = append(args, opts.Offset)
		q += " OFFSET $" + strconv.Itoa(len(args))
	}
	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Evaluation{}
	for rows.Next() {
		ev, err := scanEvaluation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func scanEvaluation(scan func(...any) error) (Evaluation, error) {
	var ev Evaluation
	var created int64
	var completed sql.NullInt64
	var validUntil string
	var score sql.NullFloat64
	var status string
	var period sql.NullString
	if err := scan(&ev.ID, &ev.CompanyID, &ev.EvaluatorID, &ev.FormID, &created, &completed,
		&validUntil, &score, &status, &period, &ev.IsActive); err != nil {
		return Evaluation{}, err
	}
	ev.CreatedAt = time.Unix(created, 0)
	if completed.Valid {
		t := time.Unix(completed.Int64, 0)
		ev.CompletedAt = &t
	}
	if t, err := time.Parse(dateLayout, validUntil); err == nil {
		ev.ValidUntil = t
	}
	if score.Valid {
		v := score.Float64
		ev.Score = &v
	}
	ev.Status = Status(status)
	if period.Valid && period.String != "" {
		if t, err := time.Parse(dateLayout, period.String); err == nil {
			ev.Period = &t
		}
	}
	return ev, nil
}

func (s *SQLStore) SetEvaluationStatus(ctx context.Context, id string, status Status, completedAt *time.Time) error {
	res, err := s.q.ExecContext(ctx, `UPDATE evaluations SET status=$1, completed_at=$2 WHERE id=$3`,
		string(status), unixPtr(completedAt), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLStore) SetEvaluationScore(ctx context.Context, id string, score float64) error {
	res, err := s.q.ExecContext(ctx, `UPDATE evaluations SET score=$1 WHERE id=$2`, score, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLStore) SetEvaluationActive(ctx context.Context, id string, active bool) error {
	res, err := s.q.ExecContext(ctx, `UPDATE evaluations SET is_active=$1 WHERE id=$2`, active, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ---- counts ----

func (s *SQLStore) CountActiveQuestions(ctx context.Context, formID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions q
		JOIN form_categories fc ON fc.category_id = q.category_id
		WHERE fc.form_id=$1 AND q.is_active`, formID).Scan(&n)
	return n, err
}

func (s *SQLStore) CountRespondentAnswers(ctx context.Context, evaluationID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers
		WHERE evaluation_id=$1 AND answer_respondent <> ''`, evaluationID).Scan(&n)
	return n, err
}

func (s *SQLStore) CountEvaluatorAnswers(ctx context.Context, evaluationID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers
		WHERE evaluation_id=$1 AND answer_evaluator <> ''`, evaluationID).Scan(&n)
	return n, err
}

func (s *SQLStore) ListWeightedVerdicts(ctx context.Context, evaluationID string) ([]WeightedVerdict, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT a.answer_evaluator, c.weight FROM answers a
		JOIN questions q ON q.id = a.question_id
		JOIN categories c ON c.id = q.category_id
		WHERE a.evaluation_id=$1`, evaluationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WeightedVerdict{}
	for rows.Next() {
		var wv WeightedVerdict
		var verdict string
		if err := rows.Scan(&verdict, &wv.CategoryWeight); err != nil {
			return nil, err
		}
		wv.Evaluator = Verdict(verdict)
		out = append(out, wv)
	}
	return out, rows.Err()
}

// ---- answers ----

func (s *SQLStore) CreateAnswer(ctx context.Context, a Answer) (Answer, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO answers
		(id,evaluation_id,question_id,company_id,
		 answer_respondent,attachment_respondent,date_respondent,
		 answer_evaluator,attachment_evaluator,date_evaluator,note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.EvaluationID, a.QuestionID, a.CompanyID,
		string(a.Respondent), a.RespondentAttachment, datePtr(a.RespondentDate),
		string(a.Evaluator), a.EvaluatorAttachment, datePtr(a.EvaluatorDate), a.Note)
	if err != nil {
		if isUniqueViolation(err) {
			return Answer{}, ErrDuplicateAnswer
		}
		return Answer{}, err
	}
	return a, nil
}

func (s *SQLStore) UpdateAnswer(ctx context.Context, a Answer) (Answer, error) {
	res, err := s.q.ExecContext(ctx, `UPDATE answers SET
		answer_respondent=$1, attachment_respondent=$2, date_respondent=$3,
		answer_evaluator=$4, attachment_evaluator=$5, date_evaluator=$6, note=$7
		WHERE id=$8`,
		string(a.Respondent), a.RespondentAttachment, datePtr(a.RespondentDate),
		string(a.Evaluator), a.EvaluatorAttachment, datePtr(a.EvaluatorDate), a.Note, a.ID)
	if err != nil {
		return Answer{}, err
	}
	if err := requireRow(res); err != nil {
		return Answer{}, err
	}
	return s.GetAnswer(ctx, a.ID)
}

func (s *SQLStore) GetAnswer(ctx context.Context, id string) (Answer, error) {
	row := s.q.QueryRowContext(ctx, `SELECT id,evaluation_id,question_id,company_id,
		answer_respondent,attachment_respondent,date_respondent,
		answer_evaluator,attachment_evaluator,date_evaluator,note
		FROM answers WHERE id=$1`, id)
	a, err := scanAnswer(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Answer{}, ErrNotFound
	}
	return a, err
}

func (s *SQLStore) ListAnswers(ctx context.Context, evaluationID string) ([]Answer, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id,evaluation_id,question_id,company_id,
		answer_respondent,attachment_respondent,date_respondent,
		answer_evaluator,attachment_evaluator,date_evaluator,note
		FROM answers WHERE evaluation_id=$1 ORDER BY id`, evaluationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAnswer(scan func(...any) error) (Answer, error) {
	var a Answer
	var respondent, evaluator string
	var respDate, evalDate sql.NullString
	if err := scan(&a.ID, &a.EvaluationID, &a.QuestionID, &a.CompanyID,
		&respondent, &a.RespondentAttachment, &respDate,
		&evaluator, &a.EvaluatorAttachment, &evalDate, &a.Note); err != nil {
		return Answer{}, err
	}
	a.Respondent = Verdict(respondent)
	a.Evaluator = Verdict(evaluator)
	a.RespondentDate = parseDatePtr(respDate)
	a.EvaluatorDate = parseDatePtr(evalDate)
	return a, nil
}

func (s *SQLStore) ListFormQuestionsWithAnswers(ctx context.Context, evaluationID string) ([]QuestionWithAnswer, error) {
	ev, err := s.GetEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	form, err := s.GetForm(ctx, ev.FormID)
	if err != nil {
		return nil, err
	}
	byQuestion := map[string]Answer{}
	answers, err := s.ListAnswers(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}
	out := []QuestionWithAnswer{}
	for _, cid := range form.CategoryIDs {
		questions, err := s.ListQuestions(ctx, cid)
		if err != nil {
			return nil, err
		}
		for _, q := range questions {
			if !q.IsActive {
				continue
			}
			item := QuestionWithAnswer{Question: q}
			if a, ok := byQuestion[q.ID]; ok {
				ans := a
				item.Answer = &ans
			}
			out = append(out, item)
		}
	}
	return out, nil
}

// ---- helpers ----

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value") // postgres
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func unixPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func datePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseDatePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, ns.String)
	if err != nil {
		return nil
	}
	return &t
}
