package rbac

import "testing"

func TestCheckerAllowed(t *testing.T) {
	c := NewChecker(nil)

	cases := []struct {
		role, perm string
		want       bool
	}{
		{"admin", "anything:at-all", true},
		{"evaluator", "evaluation:cancel", true}, // via evaluation:*
		{"evaluator", "catalog:edit", true},
		{"evaluator", "rem:submit", false},
		{"company", "answer:respond", true},
		{"company", "evaluation:cancel", false},
		{"company", "rem:view-own", true},
		{"", "evaluation:view-own", false}, // unauthenticated role
		{"ghost", "anything", false},
	}
	for _, tc := range cases {
		if got := c.Allowed(tc.role, tc.perm); got != tc.want {
			t.Errorf("Allowed(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestMatchPermWildcardBoundaries(t *testing.T) {
	if !matchPerm("evaluation:*", "evaluation:view-own") {
		t.Fatal("resource wildcard should cover its operations")
	}
	if matchPerm("evaluation:*", "evaluations:create") {
		t.Fatal("wildcard must not match a different resource prefix")
	}
	if !matchPerm("evaluation:*", "evaluation") {
		t.Fatal("wildcard covers the bare resource name")
	}
}
