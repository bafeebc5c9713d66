package console

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Triaksa-Space/be-admin-console/domain/user"
	"github.com/Triaksa-Space/be-admin-console/pkg/querycache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsersAPI struct {
	mu      sync.Mutex
	filters []user.ListFilter
}

func (f *fakeUsersAPI) ListUsers(_ context.Context, filter user.ListFilter) (*user.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return &user.ListResult{
		Users: []user.User{
			{ID: "u1", Email: "one@example.com"},
			{ID: "u2", Email: "two@example.com"},
		},
		Total:      2,
		Page:       filter.Page,
		Limit:      10,
		TotalPages: 1,
	}, nil
}

func (f *fakeUsersAPI) calls() []user.ListFilter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]user.ListFilter(nil), f.filters...)
}

func newUserList(t *testing.T, delay time.Duration) (*UserList, *fakeUsersAPI, *querycache.Cache) {
	api := &fakeUsersAPI{}
	cache := querycache.New(16, time.Minute)
	l := NewUserList(api, cache, delay, nil)
	t.Cleanup(l.Close)
	return l, api, cache
}

func TestUserList_LoadIsCached(t *testing.T) {
	l, api, _ := newUserList(t, time.Millisecond)

	res, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Users, 2)
	_, err = l.Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, api.calls(), 1)
	assert.Same(t, res, l.Page())
}

func TestUserList_FiltersResetPage(t *testing.T) {
	l, api, _ := newUserList(t, time.Millisecond)

	_, err := l.SetPage(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Filter().Page)

	_, err = l.SetStatus(context.Background(), user.StatusBanned)
	require.NoError(t, err)
	_, err = l.SetRole(context.Background(), "manager")
	require.NoError(t, err)

	calls := api.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, user.ListFilter{Status: user.StatusBanned, Role: "manager", Page: 1}, calls[2])
}

func TestUserList_InvalidationReloads(t *testing.T) {
	l, api, cache := newUserList(t, time.Millisecond)

	_, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	cache.Invalidate(UsersQueryPrefix)
	assert.Len(t, api.calls(), 2, "the subscription refetches the current page")
	assert.Equal(t, 1, cache.Len())
}

func TestUserList_SearchIsDebounced(t *testing.T) {
	l, api, _ := newUserList(t, 20*time.Millisecond)

	l.SetSearch("a")
	l.SetSearch("al")
	l.SetSearch("ali")

	assert.Eventually(t, func() bool { return len(api.calls()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	calls := api.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "ali", calls[0].Search)
	assert.Equal(t, 1, calls[0].Page)
}

func TestUserList_CancelledSearchDoesNotLoad(t *testing.T) {
	l, api, _ := newUserList(t, 20*time.Millisecond)

	tok := l.SetSearch("bob")
	assert.True(t, tok.Cancel())
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, api.calls())
	assert.Equal(t, "bob", l.Filter().Search)
}

func TestUserList_Selection(t *testing.T) {
	l, _, _ := newUserList(t, time.Millisecond)

	l.SelectPage()
	assert.Empty(t, l.Selected(), "no page loaded yet")

	_, err := l.Load(context.Background())
	require.NoError(t, err)

	l.Toggle(user.User{ID: "u9", Email: "nine@example.com"})
	l.SelectPage()
	assert.Equal(t, []Target{
		{ID: "u9", Email: "nine@example.com"},
		{ID: "u1", Email: "one@example.com"},
		{ID: "u2", Email: "two@example.com"},
	}, l.Selected())

	l.Toggle(user.User{ID: "u1"})
	assert.Equal(t, []string{"u9", "u2"}, []string{l.Selected()[0].ID, l.Selected()[1].ID})

	l.ClearSelection()
	assert.Empty(t, l.Selected())
}

func TestUserList_SetFilter(t *testing.T) {
	l, api, _ := newUserList(t, time.Millisecond)

	_, err := l.SetFilter(context.Background(), user.ListFilter{Search: "ann", Status: user.StatusActive})
	require.NoError(t, err)

	assert.Equal(t, []user.ListFilter{{Search: "ann", Status: user.StatusActive, Page: 1}}, api.calls())
}
