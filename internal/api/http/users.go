package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Luks9/SMS/internal/auth"
	"github.com/Luks9/SMS/internal/company"
	"github.com/Luks9/SMS/internal/rbac"
)

type userRow struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"` // plaintext on create only
}

// CreateUserHandler registers an account. When no role is supplied the
// username's mail domain decides it: privileged domains get admin,
// everything else is a supplier account tied to the company registered
// for that domain, when one exists.
func CreateUserHandler(db *sql.DB, companies company.Store, privileged []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userRow
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Password == "" {
			http.Error(w, "username and password required", http.StatusBadRequest)
			return
		}
		domain := auth.DomainOfUsername(req.Username)
		if req.Role == "" {
			req.Role = auth.ClassifyDomain(domain, privileged)
		}
		switch req.Role {
		case auth.RoleAdmin, auth.RoleEvaluator, auth.RoleCompany:
		default:
			http.Error(w, "unknown role", http.StatusBadRequest)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "hash password", http.StatusInternalServerError)
			return
		}
		id := uuid.NewString()
		if _, err := db.ExecContext(r.Context(),
			`INSERT INTO users (id, username, role, password_hash) VALUES ($1,$2,$3,$4)`,
			id, req.Username, req.Role, string(hash),
		); err != nil {
			http.Error(w, "username already exists", http.StatusConflict)
			return
		}

		// Supplier accounts are linked to the company registered for their
		// mail domain. No match is fine; an admin assigns one later.
		if req.Role == auth.RoleCompany && domain != "" {
			if c, err := companies.FindByDomain(r.Context(), domain); err == nil {
				_ = companies.AssignUser(r.Context(), c.ID, id)
			}
		}

		writeJSON(w, http.StatusCreated, userRow{ID: id, Username: req.Username, Role: req.Role})
	}
}

func ListUsersHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := r.URL.Query().Get("role")
		var rows *sql.Rows
		var err error
		if role == "" {
			rows, err = db.QueryContext(r.Context(), `SELECT id, username, role FROM users ORDER BY username`)
		} else {
			rows, err = db.QueryContext(r.Context(), `SELECT id, username, role FROM users WHERE role=$1 ORDER BY username`, role)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer rows.Close()
		out := []userRow{}
		for rows.Next() {
			var u userRow
			if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			out = append(out, u)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func UpdateUserRoleHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		switch req.Role {
		case auth.RoleAdmin, auth.RoleEvaluator, auth.RoleCompany:
		default:
			http.Error(w, "unknown role", http.StatusBadRequest)
			return
		}
		res, err := db.ExecContext(r.Context(),
			`UPDATE users SET role=$1 WHERE id=$2`,
			req.Role, chi.URLParam(r, "userID"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// UpdateUserPasswordHandler lets a user change their own password, or an
// admin reset anyone's.
func UpdateUserPasswordHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		ctx := r.Context()
		if rbac.RoleFromContext(ctx) != auth.RoleAdmin {
			var username string
			err := db.QueryRowContext(ctx, `SELECT username FROM users WHERE id=$1`, userID).Scan(&username)
			if errors.Is(err, sql.ErrNoRows) || (err == nil && username != rbac.SubjectFromContext(ctx)) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		var req struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
			http.Error(w, "password required", http.StatusBadRequest)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "hash password", http.StatusInternalServerError)
			return
		}
		if _, err := db.ExecContext(ctx,
			`UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), userID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
