package company_test

import (
	"testing"

	"github.com/Luks9/SMS/internal/company"
)

func TestCleanCNPJ(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"12.345.678/0001-95", "12345678000195"},
		{"12345678000195", "12345678000195"},
		{"", ""},
		{"ab.12-cd", "12"},
	} {
		if got := company.CleanCNPJ(tc.in); got != tc.want {
			t.Errorf("CleanCNPJ(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatCNPJ(t *testing.T) {
	if got := company.FormatCNPJ("12345678000195"); got != "12.345.678/0001-95" {
		t.Fatalf("got %q", got)
	}
	// short input stays bare
	if got := company.FormatCNPJ("1234"); got != "1234" {
		t.Fatalf("got %q", got)
	}
}

func TestValidCNPJ(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want bool
	}{
		{"12.345.678/0001-95", true},
		{"12345678000195", true},
		{"11111111111111", false}, // repeated digits
		{"123", false},
		{"", false},
	} {
		if got := company.ValidCNPJ(tc.in); got != tc.want {
			t.Errorf("ValidCNPJ(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
