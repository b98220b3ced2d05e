package rbac

import (
	"context"
	"strings"
)

type ctxKey int

const (
	roleKey ctxKey = iota
	subjectKey
	companyKey
)

// WithRole stores the caller's role in the request context.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey, role)
}

// RoleFromContext returns the role set by the auth middleware, or "".
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// WithSubject stores the authenticated username in the request context.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey, sub)
}

// SubjectFromContext returns the authenticated username, or "".
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey).(string)
	return sub
}

// WithCompany stores the caller's company ID, when their account is
// associated with one.
func WithCompany(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, companyKey, companyID)
}

// CompanyFromContext returns the caller's company ID, or "".
func CompanyFromContext(ctx context.Context) string {
	id, _ := ctx.Value(companyKey).(string)
	return id
}

// Checker answers permission queries against a role -> permissions table.
type Checker struct {
	perms map[string][]string
}

func NewChecker(perms map[string][]string) *Checker {
	if perms == nil {
		perms = RolePermissions
	}
	return &Checker{perms: perms}
}

// Allowed reports whether role grants perm. Grants may end in ":*" to
// cover a whole resource, or be "*" for everything.
func (c *Checker) Allowed(role, perm string) bool {
	for _, granted := range c.perms[role] {
		if matchPerm(granted, perm) {
			return true
		}
	}
	return false
}

func matchPerm(granted, perm string) bool {
	if granted == "*" || granted == perm {
		return true
	}
	if prefix, ok := strings.CutSuffix(granted, ":*"); ok {
		return perm == prefix || strings.HasPrefix(perm, prefix+":")
	}
	return false
}
