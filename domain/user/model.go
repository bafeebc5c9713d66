package user

import (
	"fmt"
	"time"
)

// Activity statuses derived at read time.
const (
	ActivityOnline  = "online"
	ActivityOffline = "offline"
	ActivityNever   = "never"
)

// Account status filters accepted by List.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusBanned   = "banned"
)

const (
	defaultLimit = 10
	maxLimit     = 100
	defaultSort  = "created_at desc"
)

// OnlineWindow is how recent a heartbeat or login must be to count as online.
const OnlineWindow = 15 * time.Minute

type User struct {
	ID                   string     `db:"id" json:"id"`
	Email                string     `db:"email" json:"email"`
	FirstName            string     `db:"first_name" json:"first_name"`
	LastName             string     `db:"last_name" json:"last_name"`
	RoleID               string     `db:"role_id" json:"role_id"`
	RoleName             *string    `db:"role_name" json:"role_name"`
	IsActive             bool       `db:"is_active" json:"is_active"`
	IsBanned             bool       `db:"is_banned" json:"is_banned"`
	BanReason            *string    `db:"ban_reason" json:"ban_reason,omitempty"`
	RequirePasswordReset bool       `db:"require_password_reset" json:"require_password_reset"`
	LastLogin            *time.Time `db:"last_login" json:"last_login"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
	ActivityStatus       string     `db:"-" json:"activity_status"`
}

type Role struct {
	ID          string  `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
}

// ListFilter selects one page of users.
type ListFilter struct {
	Search string `query:"search"`
	Status string `query:"status"`
	Role   string `query:"role"`
	Sort   string `query:"sort"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

var allowedSorts = map[string]string{
	"created_at desc": "u.created_at DESC",
	"created_at asc":  "u.created_at ASC",
	"last_login desc": "u.last_login DESC",
	"last_login asc":  "u.last_login ASC",
	"email asc":       "u.email ASC",
	"email desc":      "u.email DESC",
}

// Normalize clamps paging and replaces unknown sorts with the default.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if _, ok := allowedSorts[f.Sort]; !ok {
		f.Sort = defaultSort
	}
	return f
}

// Key identifies a normalized filter in the list cache.
func (f ListFilter) Key() string {
	return fmt.Sprintf("users|%s|%s|%s|%s|%d|%d", f.Search, f.Status, f.Role, f.Sort, f.Page, f.Limit)
}

type ListResult struct {
	Users      []User `json:"users"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"total_pages"`
}
