package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Triaksa-Space/be-admin-console/config"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/Triaksa-Space/be-admin-console/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

// Role ids inserted by the first migration.
const (
	adminRoleID   = "00000000-0000-0000-0000-000000000001"
	managerRoleID = "00000000-0000-0000-0000-000000000002"
	userRoleID    = "00000000-0000-0000-0000-000000000003"
)

type seedUser struct {
	ID        string     `db:"id"`
	Email     string     `db:"email"`
	FirstName string     `db:"first_name"`
	LastName  string     `db:"last_name"`
	Password  string     `db:"password"`
	RoleID    string     `db:"role_id"`
	IsActive  bool       `db:"is_active"`
	IsBanned  bool       `db:"is_banned"`
	BanReason *string    `db:"ban_reason"`
	LastLogin *time.Time `db:"last_login"`
}

func newSeedCmd() *cobra.Command {
	var (
		adminEmail string
		demo       bool
		tokenTTL   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create an admin account, optional demo users, and print an admin token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is required")
			}
			if err := config.InitDB(cfg); err != nil {
				return err
			}
			defer config.CloseDB()

			hasher := utils.NewPasswordHasher(cfg.JWTSecret, 0)
			users, adminPassword, err := seedUsers(hasher, adminEmail, demo, time.Now())
			if err != nil {
				return err
			}
			if err := insertSeedUsers(cmd.Context(), config.DB, users); err != nil {
				return err
			}

			admin := users[0]
			token, err := utils.GenerateAccessToken(cfg.JWTSecret, admin.ID, admin.Email, admin.RoleID, tokenTTL)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Admin: %s\nPassword: %s\n", admin.Email, adminPassword)
			fmt.Fprintf(out, "CONSOLE_TOKEN=%s\n", token)
			return nil
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@example.com", "Email of the admin account")
	cmd.Flags().BoolVar(&demo, "demo", false, "Also create demo users in every status")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "Lifetime of the printed admin token")
	return cmd
}

type hasher interface {
	Hash(password string) (string, error)
}

// seedUsers builds the admin account first, followed by demo users covering
// active, inactive, banned and never-logged-in accounts.
func seedUsers(h hasher, adminEmail string, demo bool, now time.Time) ([]seedUser, string, error) {
	adminPassword, err := utils.GeneratePassword(16)
	if err != nil {
		return nil, "", err
	}
	users := []seedUser{{
		Email: adminEmail, FirstName: "Console", LastName: "Admin",
		Password: adminPassword, RoleID: adminRoleID, IsActive: true,
	}}

	if demo {
		ago := func(d time.Duration) *time.Time {
			t := now.Add(-d)
			return &t
		}
		banned := "Spam"
		users = append(users,
			seedUser{Email: "online@example.com", FirstName: "Olive", LastName: "Online", RoleID: userRoleID, IsActive: true, LastLogin: ago(5 * time.Minute)},
			seedUser{Email: "recent@example.com", FirstName: "Rita", LastName: "Recent", RoleID: managerRoleID, IsActive: true, LastLogin: ago(2 * time.Hour)},
			seedUser{Email: "dormant@example.com", FirstName: "Dora", LastName: "Dormant", RoleID: userRoleID, IsActive: true, LastLogin: ago(200 * 24 * time.Hour)},
			seedUser{Email: "never@example.com", FirstName: "Nev", LastName: "Never", RoleID: userRoleID, IsActive: true},
			seedUser{Email: "inactive@example.com", FirstName: "Ina", LastName: "Active", RoleID: userRoleID, IsActive: false, LastLogin: ago(30 * 24 * time.Hour)},
			seedUser{Email: "banned@example.com", FirstName: "Ben", LastName: "Banned", RoleID: userRoleID, IsActive: false, IsBanned: true, BanReason: &banned, LastLogin: ago(48 * time.Hour)},
		)
	}

	for i := range users {
		users[i].ID = uuid.NewString()
		if users[i].Password == "" {
			users[i].Password = "ChangeMe123!"
		}
		hashed, err := h.Hash(users[i].Password)
		if err != nil {
			return nil, "", fmt.Errorf("hash password for %s: %w", users[i].Email, err)
		}
		users[i].Password = hashed
	}
	return users, adminPassword, nil
}

func insertSeedUsers(ctx context.Context, db *sqlx.DB, users []seedUser) error {
	log := logger.Get().WithComponent("seed")
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO users (id, email, first_name, last_name, password, role_id, is_active, is_banned, ban_reason, last_login)
		VALUES (:id, :email, :first_name, :last_name, :password, :role_id, :is_active, :is_banned, :ban_reason, :last_login)`
	for _, u := range users {
		if _, err := tx.NamedExecContext(ctx, q, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		log.Info("Seeded user", logger.Email(u.Email))
	}
	return tx.Commit()
}
