package console

import (
	"context"
	"sync"
	"time"

	"github.com/Triaksa-Space/be-admin-console/client"
	"github.com/Triaksa-Space/be-admin-console/domain/user"
	"github.com/Triaksa-Space/be-admin-console/pkg/debounce"
	"github.com/Triaksa-Space/be-admin-console/pkg/querycache"
)

type UsersAPI interface {
	ListUsers(ctx context.Context, f user.ListFilter) (*user.ListResult, error)
}

// UserList is the state behind the user table: filters, the current page and
// the selection. Pages are read through the query cache and reloaded when
// the users prefix is invalidated.
type UserList struct {
	api      UsersAPI
	cache    *querycache.Cache
	debounce *debounce.Debouncer
	onChange func(*user.ListResult, error)

	mu          sync.Mutex
	filter      user.ListFilter
	page        *user.ListResult
	selected    map[string]Target
	order       []string
	unsubscribe func()
}

// NewUserList subscribes to invalidations of the users prefix. onChange, if
// set, is called after every load. Close releases the subscription.
func NewUserList(api UsersAPI, cache *querycache.Cache, searchDelay time.Duration, onChange func(*user.ListResult, error)) *UserList {
	l := &UserList{
		api:      api,
		cache:    cache,
		debounce: debounce.New(searchDelay),
		onChange: onChange,
		filter:   user.ListFilter{Page: 1},
		selected: map[string]Target{},
	}
	l.unsubscribe = cache.Subscribe(UsersQueryPrefix, func(string) {
		_, _ = l.Load(context.Background())
	})
	return l
}

func (l *UserList) Close() {
	l.unsubscribe()
	l.debounce.Stop()
}

func usersKey(f user.ListFilter) string {
	return UsersQueryPrefix + "?" + client.UsersQuery(f)
}

// Load fetches the page for the current filter.
func (l *UserList) Load(ctx context.Context) (*user.ListResult, error) {
	l.mu.Lock()
	f := l.filter
	l.mu.Unlock()

	res, err := querycache.Fetch(ctx, l.cache, usersKey(f), func(ctx context.Context) (*user.ListResult, error) {
		return l.api.ListUsers(ctx, f)
	})

	l.mu.Lock()
	if err == nil && l.filter == f {
		l.page = res
	}
	l.mu.Unlock()

	if l.onChange != nil {
		l.onChange(res, err)
	}
	return res, err
}

// SetSearch updates the search text and loads once typing pauses.
func (l *UserList) SetSearch(q string) debounce.Token {
	l.mu.Lock()
	l.filter.Search = q
	l.filter.Page = 1
	l.mu.Unlock()

	return l.debounce.Trigger(func() {
		_, _ = l.Load(context.Background())
	})
}

func (l *UserList) SetStatus(ctx context.Context, status string) (*user.ListResult, error) {
	return l.update(ctx, func(f *user.ListFilter) {
		f.Status = status
		f.Page = 1
	})
}

func (l *UserList) SetRole(ctx context.Context, role string) (*user.ListResult, error) {
	return l.update(ctx, func(f *user.ListFilter) {
		f.Role = role
		f.Page = 1
	})
}

// SetFilter replaces every filter at once and loads the result.
func (l *UserList) SetFilter(ctx context.Context, f user.ListFilter) (*user.ListResult, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	return l.update(ctx, func(cur *user.ListFilter) { *cur = f })
}

func (l *UserList) SetPage(ctx context.Context, page int) (*user.ListResult, error) {
	return l.update(ctx, func(f *user.ListFilter) { f.Page = page })
}

func (l *UserList) update(ctx context.Context, fn func(*user.ListFilter)) (*user.ListResult, error) {
	l.mu.Lock()
	fn(&l.filter)
	l.mu.Unlock()
	return l.Load(ctx)
}

func (l *UserList) Filter() user.ListFilter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// Page is the last page loaded for the current filter.
func (l *UserList) Page() *user.ListResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

func (l *UserList) Toggle(u user.User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.selected[u.ID]; ok {
		l.deselect(u.ID)
		return
	}
	l.selectUser(u)
}

// SelectPage adds every user on the current page to the selection.
func (l *UserList) SelectPage() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.page == nil {
		return
	}
	for _, u := range l.page.Users {
		if _, ok := l.selected[u.ID]; !ok {
			l.selectUser(u)
		}
	}
}

func (l *UserList) ClearSelection() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = map[string]Target{}
	l.order = nil
}

// Selected returns the selection in the order users were picked.
func (l *UserList) Selected() []Target {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Target, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.selected[id])
	}
	return out
}

func (l *UserList) selectUser(u user.User) {
	l.selected[u.ID] = Target{ID: u.ID, Email: u.Email}
	l.order = append(l.order, u.ID)
}

func (l *UserList) deselect(id string) {
	delete(l.selected, id)
	for i, o := range l.order {
		if o == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}
