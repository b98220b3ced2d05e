package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/Luks9/SMS/internal/rbac"
)

// AttachRoleFromDB overrides the token's role claim with the user row in
// the database, which is authoritative. allowClaimFallback=true keeps the
// claimed role when the user row is missing (dev/bootstrap); in prod only
// the env-admin keeps its claim.
func AttachRoleFromDB(db *sql.DB, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := rbac.SubjectFromContext(ctx)
			claimRole := rbac.RoleFromContext(ctx)

			var userID, role string
			err := db.QueryRowContext(ctx,
				`SELECT id, role FROM users WHERE id=$1 OR username=$1`,
				sub,
			).Scan(&userID, &role)

			switch {
			case err == nil && role != "":
				ctx = rbac.WithRole(ctx, role)
				if role == "company" {
					ctx = attachCompany(ctx, db, userID)
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return

			case errors.Is(err, sql.ErrNoRows) || isUsersTableMissing(err):
				if claimRole == "admin" || (allowClaimFallback && claimRole != "") {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
				return

			default:
				if allowClaimFallback && claimRole != "" {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		})
	}
}

// attachCompany resolves which supplier the user belongs to. A company
// user without an assigned company just gets no company in context; the
// ownership checks downstream will deny cross-company access.
func attachCompany(ctx context.Context, db *sql.DB, userID string) context.Context {
	var companyID string
	err := db.QueryRowContext(ctx,
		`SELECT id FROM companies WHERE user_id=$1 AND is_active=$2`,
		userID, true,
	).Scan(&companyID)
	if err != nil {
		return ctx
	}
	return rbac.WithCompany(ctx, companyID)
}

func isUsersTableMissing(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table: users") || // sqlite
		strings.Contains(msg, `relation "users" does not exist`) // postgres
}
