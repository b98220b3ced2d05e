package http

import (
	"strings"
	"testing"
)

func TestParseCreateEvaluationRequiresValidUntil(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing", `{"company_id":"co1","form_id":"f1"}`},
		{"empty", `{"company_id":"co1","form_id":"f1","valid_until":""}`},
		{"garbage", `{"company_id":"co1","form_id":"f1","valid_until":"not-a-date"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseCreateEvaluation(strings.NewReader(tc.body))
			if err == nil {
				t.Fatal("want error, got nil")
			}
			if !strings.Contains(err.Error(), "valid_until") {
				t.Fatalf("error %q does not mention valid_until", err)
			}
		})
	}
}

func TestParseCreateEvaluationValidPayload(t *testing.T) {
	body := `{"company_id":"co1","evaluator_id":"ev9","form_id":"f1","valid_until":"2024-07-31","period":"2024-06-01"}`
	ev, err := parseCreateEvaluation(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.CompanyID != "co1" || ev.FormID != "f1" || ev.EvaluatorID != "ev9" {
		t.Fatalf("unexpected evaluation %+v", ev)
	}
	if got := ev.ValidUntil.Format("2006-01-02"); got != "2024-07-31" {
		t.Fatalf("valid_until = %s", got)
	}
	if ev.Period == nil || ev.Period.Format("2006-01-02") != "2024-06-01" {
		t.Fatalf("period = %v", ev.Period)
	}
	if !ev.IsActive {
		t.Fatal("new evaluation should be active")
	}
}

func TestParseCreateEvaluationPeriodOptional(t *testing.T) {
	body := `{"company_id":"co1","form_id":"f1","valid_until":"2024-07-31"}`
	ev, err := parseCreateEvaluation(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Period != nil {
		t.Fatalf("period = %v, want nil", ev.Period)
	}
}
