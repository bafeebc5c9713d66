package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type SQLRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const listColumns = `u.id, u.email, u.first_name, u.last_name, u.role_id, r.name AS role_name,
	u.is_active, u.is_banned, u.ban_reason, u.require_password_reset, u.last_login, u.created_at, u.updated_at`

func whereClause(f ListFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		like := "%" + s + "%"
		conds = append(conds, "(LOWER(u.email) LIKE ? OR LOWER(u.first_name) LIKE ? OR LOWER(u.last_name) LIKE ?)")
		args = append(args, like, like, like)
	}
	switch f.Status {
	case StatusActive:
		conds = append(conds, "u.is_active = ? AND u.is_banned = ?")
		args = append(args, true, false)
	case StatusInactive:
		conds = append(conds, "u.is_active = ? AND u.is_banned = ?")
		args = append(args, false, false)
	case StatusBanned:
		conds = append(conds, "u.is_banned = ?")
		args = append(args, true)
	}
	if f.Role != "" {
		conds = append(conds, "(u.role_id = ? OR LOWER(r.name) = ?)")
		args = append(args, f.Role, strings.ToLower(f.Role))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of users and the total matching count. f must be normalized.
func (r *SQLRepository) List(ctx context.Context, f ListFilter) ([]User, int, error) {
	where, args := whereClause(f)
	from := " FROM users u LEFT JOIN roles r ON r.id = u.role_id"

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*)"+from+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := "SELECT " + listColumns + from + where +
		" ORDER BY " + allowedSorts[f.Sort] + " LIMIT ? OFFSET ?"
	pageArgs := append(args, f.Limit, (f.Page-1)*f.Limit)

	users := []User{}
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *SQLRepository) Roles(ctx context.Context) ([]Role, error) {
	roles := []Role{}
	if err := r.db.SelectContext(ctx, &roles, "SELECT id, name, description FROM roles ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}
