package auth

import "testing"

func TestDomainOfUsername(t *testing.T) {
	cases := []struct {
		username, want string
	}{
		{"ana@BravaEnergia.com", "bravaenergia.com"},
		{"ops@supplier.com.br", "supplier.com.br"},
		{"localadmin", ""},
		{"broken@", ""},
	}
	for _, c := range cases {
		if got := DomainOfUsername(c.username); got != c.want {
			t.Errorf("DomainOfUsername(%q) = %q, want %q", c.username, got, c.want)
		}
	}
}

func TestClassifyDomain(t *testing.T) {
	privileged := []string{"bravaenergia.com"}

	if got := ClassifyDomain("bravaenergia.com", privileged); got != RoleAdmin {
		t.Fatalf("privileged domain: got %q, want %q", got, RoleAdmin)
	}
	if got := ClassifyDomain("BRAVAENERGIA.COM", privileged); got != RoleAdmin {
		t.Fatalf("privileged domain should match case-insensitively, got %q", got)
	}
	if got := ClassifyDomain("supplier.com.br", privileged); got != RoleCompany {
		t.Fatalf("unknown domain: got %q, want %q", got, RoleCompany)
	}
	if got := ClassifyDomain("", nil); got != RoleCompany {
		t.Fatalf("empty domain defaults to %q, got %q", RoleCompany, got)
	}
}
