package evaluation_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Luks9/SMS/internal/company"
	"github.com/Luks9/SMS/internal/db"
	"github.com/Luks9/SMS/internal/evaluation"
)

// openStore boots a throwaway sqlite database with the real schema.
func openStore(t *testing.T) *evaluation.SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "sms_test.db") + "?cache=shared&mode=rwc"
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })

	if _, err := company.NewSQLStore(dbh).Put(context.Background(),
		company.Company{ID: "co1", Name: "Supplier One", IsActive: true}); err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return evaluation.NewSQLStore(dbh, "sqlite")
}

// seedEvaluation creates a category, one question, a form over the
// category and an evaluation on that form.
func seedEvaluation(t *testing.T, store *evaluation.SQLStore) evaluation.Evaluation {
	t.Helper()
	ctx := context.Background()
	cat, err := store.PutCategory(ctx, evaluation.Category{ID: "cat1", Name: "Safety", Weight: 10, IsActive: true})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	if _, err := store.PutQuestion(ctx, evaluation.Question{ID: "q1", CategoryID: cat.ID, Text: "Fire extinguishers present?", IsActive: true}); err != nil {
		t.Fatalf("seed question: %v", err)
	}
	if _, err := store.PutForm(ctx, evaluation.Form{ID: "f1", Name: "Base audit", IsActive: true, CategoryIDs: []string{cat.ID}}); err != nil {
		t.Fatalf("seed form: %v", err)
	}
	ev, err := store.CreateEvaluation(ctx, evaluation.Evaluation{
		ID:         "ev1",
		CompanyID:  "co1",
		FormID:     "f1",
		ValidUntil: time.Date(2030, 1, 31, 0, 0, 0, 0, time.UTC),
		Status:     evaluation.StatusPending,
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("seed evaluation: %v", err)
	}
	return ev
}

func TestCreateAnswerDuplicatePairConflicts(t *testing.T) {
	store := openStore(t)
	ev := seedEvaluation(t, store)
	ctx := context.Background()

	first, err := store.CreateAnswer(ctx, evaluation.Answer{
		EvaluationID: ev.ID,
		QuestionID:   "q1",
		CompanyID:    ev.CompanyID,
		Respondent:   evaluation.VerdictConforming,
	})
	if err != nil {
		t.Fatalf("first answer: %v", err)
	}

	_, err = store.CreateAnswer(ctx, evaluation.Answer{
		EvaluationID: ev.ID,
		QuestionID:   "q1",
		CompanyID:    ev.CompanyID,
		Respondent:   evaluation.VerdictNonConforming,
	})
	if !errors.Is(err, evaluation.ErrDuplicateAnswer) {
		t.Fatalf("second answer for the same question: got %v, want ErrDuplicateAnswer", err)
	}

	// The first row must be untouched.
	answers, err := store.ListAnswers(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(answers) != 1 {
		t.Fatalf("answer count = %d, want 1", len(answers))
	}
	if answers[0].ID != first.ID || answers[0].Respondent != evaluation.VerdictConforming {
		t.Fatalf("surviving answer = %+v, want the original C verdict", answers[0])
	}
}

func TestCreateEvaluationDuplicatePeriodMonth(t *testing.T) {
	store := openStore(t)
	seedEvaluation(t, store)
	ctx := context.Background()

	june := time.Date(2030, 6, 10, 0, 0, 0, 0, time.UTC)
	base := evaluation.Evaluation{
		CompanyID:  "co1",
		FormID:     "f1",
		ValidUntil: time.Date(2030, 6, 30, 0, 0, 0, 0, time.UTC),
		IsActive:   true,
	}

	ev := base
	ev.Period = &june
	if _, err := store.CreateEvaluation(ctx, ev); err != nil {
		t.Fatalf("first june evaluation: %v", err)
	}

	// Same month, different day: conflict.
	lateJune := june.AddDate(0, 0, 15)
	dup := base
	dup.Period = &lateJune
	if _, err := store.CreateEvaluation(ctx, dup); !errors.Is(err, evaluation.ErrDuplicateEvaluation) {
		t.Fatalf("same-month duplicate: got %v, want ErrDuplicateEvaluation", err)
	}

	// Next month is fine.
	july := june.AddDate(0, 1, 0)
	next := base
	next.Period = &july
	if _, err := store.CreateEvaluation(ctx, next); err != nil {
		t.Fatalf("next-month evaluation: %v", err)
	}

	// Deactivating the june evaluation frees its month.
	var juneID string
	evs, err := store.ListEvaluations(ctx, evaluation.ListOpts{CompanyID: "co1"})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range evs {
		if e.Period != nil && e.Period.Month() == time.June {
			juneID = e.ID
		}
	}
	if err := store.SetEvaluationActive(ctx, juneID, false); err != nil {
		t.Fatal(err)
	}
	retry := base
	retry.Period = &june
	if _, err := store.CreateEvaluation(ctx, retry); err != nil {
		t.Fatalf("june again after deactivation: %v", err)
	}
}
