package user

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	users     []User
	roles     []Role
	listCalls int
	roleCalls int
	gotFilter ListFilter
	err       error
}

func (r *fakeRepo) List(_ context.Context, f ListFilter) ([]User, int, error) {
	r.listCalls++
	r.gotFilter = f
	if r.err != nil {
		return nil, 0, r.err
	}
	return r.users, len(r.users) + 20, nil
}

func (r *fakeRepo) Roles(context.Context) ([]Role, error) {
	r.roleCalls++
	return r.roles, r.err
}

type fakeActivity map[string]time.Time

func (a fakeActivity) LastActive(_ context.Context, ids []string) (map[string]time.Time, error) {
	out := map[string]time.Time{}
	for _, id := range ids {
		if t, ok := a[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func TestActivityStatus(t *testing.T) {
	tests := []struct {
		name      string
		lastLogin *time.Time
		heartbeat time.Time
		want      string
	}{
		{"never logged in", nil, time.Time{}, ActivityNever},
		{"recent login", timePtr(now.Add(-5 * time.Minute)), time.Time{}, ActivityOnline},
		{"login at the window edge", timePtr(now.Add(-OnlineWindow)), time.Time{}, ActivityOnline},
		{"old login", timePtr(now.Add(-2 * time.Hour)), time.Time{}, ActivityOffline},
		{"old login recent heartbeat", timePtr(now.Add(-2 * time.Hour)), now.Add(-time.Minute), ActivityOnline},
		{"heartbeat only", nil, now.Add(-time.Hour), ActivityOffline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ActivityStatus(tt.lastLogin, tt.heartbeat, now))
		})
	}
}

func newTestService(repo *fakeRepo, activity ActivitySource) *Service {
	svc := NewService(repo, activity, NewCache(16, time.Minute), logger.Nop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestList_DerivesActivityAndPaging(t *testing.T) {
	repo := &fakeRepo{users: []User{
		{ID: "u1", LastLogin: timePtr(now.Add(-3 * time.Hour))},
		{ID: "u2"},
		{ID: "u3", LastLogin: timePtr(now.Add(-3 * time.Hour))},
	}}
	svc := newTestService(repo, fakeActivity{"u1": now.Add(-2 * time.Minute)})

	res, err := svc.List(context.Background(), ListFilter{Limit: 500, Sort: "password asc"})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.gotFilter.Page)
	assert.Equal(t, maxLimit, repo.gotFilter.Limit)
	assert.Equal(t, defaultSort, repo.gotFilter.Sort)

	assert.Equal(t, 23, res.Total)
	assert.Equal(t, 1, res.TotalPages)
	require.Len(t, res.Users, 3)
	assert.Equal(t, ActivityOnline, res.Users[0].ActivityStatus)
	assert.Equal(t, ActivityNever, res.Users[1].ActivityStatus)
	assert.Equal(t, ActivityOffline, res.Users[2].ActivityStatus)
	assert.Empty(t, repo.users[0].ActivityStatus, "cached rows are not mutated")
}

func TestList_CachesUntilInvalidated(t *testing.T) {
	repo := &fakeRepo{users: []User{{ID: "u1"}}}
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.List(ctx, ListFilter{Search: "ann"})
	require.NoError(t, err)
	_, err = svc.List(ctx, ListFilter{Search: "ann", Page: 1, Limit: defaultLimit})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls, "equivalent filters share a cache entry")

	_, err = svc.List(ctx, ListFilter{Search: "bob"})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)

	svc.Invalidate()
	_, err = svc.List(ctx, ListFilter{Search: "ann"})
	require.NoError(t, err)
	assert.Equal(t, 3, repo.listCalls)
}

func TestList_Errors(t *testing.T) {
	svc := newTestService(&fakeRepo{}, nil)
	_, err := svc.List(context.Background(), ListFilter{Status: "sleeping"})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)

	svc = newTestService(&fakeRepo{err: errors.New("db down")}, nil)
	_, err = svc.List(context.Background(), ListFilter{})
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
}

func TestRoles_Cached(t *testing.T) {
	repo := &fakeRepo{roles: []Role{{ID: "r1", Name: "admin"}}}
	svc := newTestService(repo, nil)

	for i := 0; i < 3; i++ {
		roles, err := svc.Roles(context.Background())
		require.NoError(t, err)
		assert.Equal(t, repo.roles, roles)
	}
	assert.Equal(t, 1, repo.roleCalls)

	svc.Invalidate()
	_, err := svc.Roles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.roleCalls)
}

func TestNilCacheReadsThrough(t *testing.T) {
	repo := &fakeRepo{users: []User{{ID: "u1"}}}
	svc := NewService(repo, nil, nil, logger.Nop())

	_, err := svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	_, err = svc.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
	svc.Invalidate()
}
