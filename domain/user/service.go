package user

import (
	"context"
	"time"

	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
)

type Repository interface {
	List(ctx context.Context, f ListFilter) ([]User, int, error)
	Roles(ctx context.Context) ([]Role, error)
}

// ActivitySource reports recent heartbeats per user id.
type ActivitySource interface {
	LastActive(ctx context.Context, ids []string) (map[string]time.Time, error)
}

type Service struct {
	repo     Repository
	activity ActivitySource
	cache    *Cache
	now      func() time.Time
	log      logger.Logger
}

// NewService wires the list service. activity and cache may be nil.
func NewService(repo Repository, activity ActivitySource, cache *Cache, log logger.Logger) *Service {
	if log == nil {
		log = logger.Get()
	}
	return &Service{
		repo:     repo,
		activity: activity,
		cache:    cache,
		now:      time.Now,
		log:      log.WithComponent("users"),
	}
}

func (s *Service) List(ctx context.Context, f ListFilter) (*ListResult, error) {
	f = f.Normalize()
	switch f.Status {
	case "", StatusActive, StatusInactive, StatusBanned:
	default:
		return nil, apperrors.NewBadRequest(apperrors.ErrCodeValidation, "status must be active, inactive or banned")
	}

	key := f.Key()
	p, ok := s.cache.getPage(key)
	if !ok {
		users, total, err := s.repo.List(ctx, f)
		if err != nil {
			return nil, apperrors.NewInternal(apperrors.ErrCodeInternal, "Failed to list users", err)
		}
		p = page{users: users, total: total}
		s.cache.setPage(key, p)
	}

	// Cached pages are shared, so activity is derived on a copy.
	users := make([]User, len(p.users))
	copy(users, p.users)
	s.deriveActivity(ctx, users)

	return &ListResult{
		Users:      users,
		Total:      p.total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: (p.total + f.Limit - 1) / f.Limit,
	}, nil
}

func (s *Service) deriveActivity(ctx context.Context, users []User) {
	var heartbeats map[string]time.Time
	if s.activity != nil && len(users) > 0 {
		ids := make([]string, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		var err error
		heartbeats, err = s.activity.LastActive(ctx, ids)
		if err != nil {
			s.log.Warn("Failed to read last-active timestamps", logger.Err(err))
		}
	}

	now := s.now()
	for i := range users {
		users[i].ActivityStatus = ActivityStatus(users[i].LastLogin, heartbeats[users[i].ID], now)
	}
}

// ActivityStatus is online when the newer of lastLogin and heartbeat falls
// inside OnlineWindow, never when neither exists, and offline otherwise.
func ActivityStatus(lastLogin *time.Time, heartbeat, now time.Time) string {
	latest := heartbeat
	if lastLogin != nil && lastLogin.After(latest) {
		latest = *lastLogin
	}
	switch {
	case latest.IsZero():
		return ActivityNever
	case now.Sub(latest) <= OnlineWindow:
		return ActivityOnline
	default:
		return ActivityOffline
	}
}

func (s *Service) Roles(ctx context.Context) ([]Role, error) {
	if roles, ok := s.cache.getRoles(); ok {
		return roles, nil
	}
	roles, err := s.repo.Roles(ctx)
	if err != nil {
		return nil, apperrors.NewInternal(apperrors.ErrCodeInternal, "Failed to list roles", err)
	}
	s.cache.setRoles(roles)
	return roles, nil
}

// Invalidate drops cached pages so the next List reads through.
func (s *Service) Invalidate() {
	s.cache.Invalidate()
	s.log.Debug("User cache invalidated")
}
