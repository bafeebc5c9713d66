package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const emailLookupBatch = 500

// SQLRepository implements Repository with sqlx.
type SQLRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// FindByEmails returns existing users keyed by lowercased email.
func (r *SQLRepository) FindByEmails(ctx context.Context, emails []string) (map[string]ExistingUser, error) {
	out := make(map[string]ExistingUser, len(emails))
	for start := 0; start < len(emails); start += emailLookupBatch {
		end := start + emailLookupBatch
		if end > len(emails) {
			end = len(emails)
		}
		query, args, err := sqlx.In("SELECT id, email FROM users WHERE LOWER(email) IN (?)", emails[start:end])
		if err != nil {
			return nil, fmt.Errorf("build email lookup: %w", err)
		}
		var users []ExistingUser
		if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("lookup emails: %w", err)
		}
		for _, u := range users {
			out[strings.ToLower(u.Email)] = u
		}
	}
	return out, nil
}

func (r *SQLRepository) Roles(ctx context.Context) ([]Role, error) {
	var roles []Role
	if err := r.db.SelectContext(ctx, &roles, "SELECT id, name FROM roles ORDER BY name"); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

func (r *SQLRepository) CreateUser(ctx context.Context, u NewUser) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (
			id, email, first_name, last_name, password, role_id, is_active,
			birthday, address, locale, sex, slack_webhook_url, require_password_reset,
			created_at, updated_at
		) VALUES (
			:id, :email, :first_name, :last_name, :password, :role_id, :is_active,
			:birthday, :address, :locale, :sex, :slack_webhook_url, :require_password_reset,
			NOW(), NOW()
		)`, u)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", u.Email, err)
	}
	return nil
}

func (r *SQLRepository) UpdateUser(ctx context.Context, id string, u UserUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().UTC()}
	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if u.FirstName != nil {
		add("first_name", *u.FirstName)
	}
	if u.LastName != nil {
		add("last_name", *u.LastName)
	}
	if u.Password != nil {
		add("password", *u.Password)
	}
	if u.RoleID != nil {
		add("role_id", *u.RoleID)
	}
	if u.IsActive != nil {
		add("is_active", *u.IsActive)
	}
	if u.Birthday != nil {
		add("birthday", *u.Birthday)
	}
	if u.Address != nil {
		add("address", *u.Address)
	}
	if u.Locale != nil {
		add("locale", *u.Locale)
	}
	if u.Sex != nil {
		add("sex", *u.Sex)
	}
	if u.SlackWebhookURL != nil {
		add("slack_webhook_url", *u.SlackWebhookURL)
	}
	if u.RequirePasswordReset != nil {
		add("require_password_reset", *u.RequirePasswordReset)
	}

	args = append(args, id)
	query := r.db.Rebind("UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	return nil
}

func (r *SQLRepository) RecordJob(ctx context.Context, job Job) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO import_jobs (id, actor_id, file_name, archive_key, total_rows, created, updated, skipped, invalid_rows)
		VALUES (:id, :actor_id, :file_name, :archive_key, :total_rows, :created, :updated, :skipped, :invalid_rows)`, job)
	if err != nil {
		return fmt.Errorf("insert import job: %w", err)
	}
	return nil
}
