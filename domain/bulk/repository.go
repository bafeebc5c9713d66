package bulk

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Repository implements Store on top of sqlx.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// UpdateUsers applies u to every id in one statement. updated_at is always
// written so rows that already hold the target values still count as matched.
func (r *Repository) UpdateUsers(ctx context.Context, ids []string, u Update) (int64, error) {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}

	if u.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *u.IsActive)
	}
	if u.IsBanned != nil {
		sets = append(sets, "is_banned = ?")
		args = append(args, *u.IsBanned)
	}
	switch {
	case u.ClearBanReason:
		sets = append(sets, "ban_reason = NULL")
	case u.BanReason != nil:
		sets = append(sets, "ban_reason = ?")
		args = append(args, nullString(*u.BanReason))
	}
	if u.RoleID != "" {
		sets = append(sets, "role_id = ?")
		args = append(args, u.RoleID)
	}

	query, inArgs, err := sqlx.In("UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id IN (?)", append(args, ids)...)
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), inArgs...)
	if err != nil {
		return 0, fmt.Errorf("exec update: %w", err)
	}
	return res.RowsAffected()
}

// DeleteUser removes one user inside its own transaction.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return tx.Commit()
}

// FindEmails returns id -> email for the ids that exist.
func (r *Repository) FindEmails(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In("SELECT id, email FROM users WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var rows []struct {
		ID    string `db:"id"`
		Email string `db:"email"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select emails: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row.Email
	}
	return out, nil
}

func (r *Repository) RoleExists(ctx context.Context, roleID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, r.db.Rebind("SELECT EXISTS(SELECT 1 FROM roles WHERE id = ?)"), roleID)
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return exists, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
