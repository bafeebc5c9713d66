package bulk

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActor struct {
	id    string
	perms map[string]bool
}

func (a fakeActor) UserID() string { return a.id }

func (a fakeActor) Can(action, subject string) bool {
	return a.perms["manage all"] || a.perms[action+" "+subject]
}

func admin() fakeActor {
	return fakeActor{id: "admin", perms: map[string]bool{"manage all": true}}
}

type fakeUser struct {
	email     string
	active    bool
	banReason string
	banned    bool
	roleID    string
}

type fakeStore struct {
	users      map[string]*fakeUser
	roles      map[string]bool
	deleted    []string
	deleteErr  map[string]error
	updateErr  error
	updateCall int
}

func newFakeStore(ids ...string) *fakeStore {
	s := &fakeStore{users: map[string]*fakeUser{}, roles: map[string]bool{"r-editor": true}, deleteErr: map[string]error{}}
	for _, id := range ids {
		s.users[id] = &fakeUser{email: id + "@example.com", active: true}
	}
	return s
}

func (s *fakeStore) UpdateUsers(_ context.Context, ids []string, u Update) (int64, error) {
	s.updateCall++
	if s.updateErr != nil {
		return 0, s.updateErr
	}
	var n int64
	for _, id := range ids {
		user, ok := s.users[id]
		if !ok {
			continue
		}
		n++
		if u.IsActive != nil {
			user.active = *u.IsActive
		}
		if u.IsBanned != nil {
			user.banned = *u.IsBanned
		}
		if u.ClearBanReason {
			user.banReason = ""
		} else if u.BanReason != nil {
			user.banReason = *u.BanReason
		}
		if u.RoleID != "" {
			user.roleID = u.RoleID
		}
	}
	return n, nil
}

func (s *fakeStore) DeleteUser(_ context.Context, id string) error {
	if err := s.deleteErr[id]; err != nil {
		return err
	}
	if _, ok := s.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) FindEmails(_ context.Context, ids []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u.email
		}
	}
	return out, nil
}

func (s *fakeStore) RoleExists(_ context.Context, roleID string) (bool, error) {
	return s.roles[roleID], nil
}

type countingCache struct{ n int }

func (c *countingCache) Invalidate() { c.n++ }

func newTestService(store Store) (*Service, *countingCache, *MemoryProgressStore) {
	cache := &countingCache{}
	progress := NewMemoryProgressStore(16, progressTTL)
	return NewService(store, progress, cache, logger.Nop()), cache, progress
}

func requireAppError(t *testing.T, err error, status int, code string) {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, status, appErr.HTTPStatus)
	assert.Equal(t, code, appErr.Code)
}

func TestExecute_ValidationOrder(t *testing.T) {
	store := newFakeStore("u1")
	svc, _, _ := newTestService(store)
	ctx := context.Background()

	tests := []struct {
		name   string
		actor  Actor
		req    Request
		status int
		code   string
	}{
		{"no actor", nil, Request{Operation: OpBan, UserIDs: []string{"u1"}}, http.StatusUnauthorized, apperrors.ErrCodeUnauthorized},
		{"unknown operation", admin(), Request{Operation: "explode", UserIDs: []string{"u1"}}, http.StatusBadRequest, apperrors.ErrCodeValidation},
		{"empty ids", admin(), Request{Operation: OpBan}, http.StatusBadRequest, apperrors.ErrCodeValidation},
		{"blank ids", admin(), Request{Operation: OpBan, UserIDs: []string{" ", ""}}, http.StatusBadRequest, apperrors.ErrCodeValidation},
		{"validation before permission", fakeActor{id: "x"}, Request{Operation: OpBan}, http.StatusBadRequest, apperrors.ErrCodeValidation},
		{"missing update permission", fakeActor{id: "x", perms: map[string]bool{"read User": true}}, Request{Operation: OpUnban, UserIDs: []string{"u1"}}, http.StatusForbidden, apperrors.ErrCodeInsufficientPermissions},
		{"update does not grant delete", fakeActor{id: "x", perms: map[string]bool{"update User": true}}, Request{Operation: OpDelete, UserIDs: []string{"u1"}}, http.StatusForbidden, apperrors.ErrCodeInsufficientPermissions},
		{"ban only self", admin(), Request{Operation: OpBan, UserIDs: []string{"admin"}}, http.StatusBadRequest, apperrors.ErrCodeCannotBanSelf},
		{"deactivate only self", admin(), Request{Operation: OpDeactivate, UserIDs: []string{"admin"}}, http.StatusBadRequest, apperrors.ErrCodeCannotBanSelf},
		{"delete only self", admin(), Request{Operation: OpDelete, UserIDs: []string{"admin", "admin"}}, http.StatusBadRequest, apperrors.ErrCodeCannotDeleteSelf},
		{"assign role without role", admin(), Request{Operation: OpAssignRole, UserIDs: []string{"u1"}}, http.StatusBadRequest, apperrors.ErrCodeValidation},
		{"assign unknown role", admin(), Request{Operation: OpAssignRole, UserIDs: []string{"u1"}, RoleID: "nope"}, http.StatusBadRequest, apperrors.ErrCodeInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Execute(ctx, tt.actor, tt.req)
			assert.Nil(t, result)
			requireAppError(t, err, tt.status, tt.code)
		})
	}
	assert.Zero(t, store.updateCall, "no mutation may happen before validation passes")
	assert.Empty(t, store.deleted)
}

func TestExecute_BanThreeUsers(t *testing.T) {
	store := newFakeStore("u1", "u2", "u3")
	svc, cache, _ := newTestService(store)

	result, err := svc.Execute(context.Background(), admin(), Request{
		Operation: OpBan,
		UserIDs:   []string{"u1", "u2", "u3"},
		Reason:    "spam",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Success)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)
	assert.Equal(t, http.StatusOK, result.HTTPStatus())
	assert.Equal(t, 1, store.updateCall)
	assert.Equal(t, 1, cache.n)
	for _, id := range []string{"u1", "u2", "u3"} {
		assert.False(t, store.users[id].active)
		assert.Equal(t, "spam", store.users[id].banReason)
	}
}

func TestExecute_BanWithoutReasonStillBans(t *testing.T) {
	store := newFakeStore("u1")
	svc, _, _ := newTestService(store)

	result, err := svc.Execute(context.Background(), admin(), Request{Operation: OpBan, UserIDs: []string{"u1"}, Reason: "  "})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.True(t, store.users["u1"].banned)
	assert.False(t, store.users["u1"].active)
	assert.Empty(t, store.users["u1"].banReason)

	_, err = svc.Execute(context.Background(), admin(), Request{Operation: OpDeactivate, UserIDs: []string{"u1"}})
	require.NoError(t, err)
	assert.True(t, store.users["u1"].banned, "deactivate keeps the ban")

	_, err = svc.Execute(context.Background(), admin(), Request{Operation: OpActivate, UserIDs: []string{"u1"}})
	require.NoError(t, err)
	assert.False(t, store.users["u1"].banned, "activate lifts the ban")
	assert.True(t, store.users["u1"].active)
	assert.Empty(t, store.users["u1"].banReason)
}

func TestUpdateFor(t *testing.T) {
	ban := updateFor(Request{Operation: OpBan, Reason: " spam "})
	require.NotNil(t, ban.IsBanned)
	assert.True(t, *ban.IsBanned)
	assert.False(t, *ban.IsActive)
	assert.Equal(t, "spam", *ban.BanReason)

	for _, op := range []Operation{OpUnban, OpActivate} {
		u := updateFor(Request{Operation: op})
		require.NotNil(t, u.IsBanned, op)
		assert.False(t, *u.IsBanned, op)
		assert.True(t, *u.IsActive, op)
		assert.True(t, u.ClearBanReason, op)
	}

	deactivate := updateFor(Request{Operation: OpDeactivate})
	assert.Nil(t, deactivate.IsBanned)
	assert.False(t, *deactivate.IsActive)
}

func TestExecute_BanSkipsSelf(t *testing.T) {
	store := newFakeStore("u1", "admin")
	svc, _, _ := newTestService(store)

	result, err := svc.Execute(context.Background(), admin(), Request{Operation: OpBan, UserIDs: []string{"u1", "admin"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "admin", result.Errors[0].UserID)
	assert.Equal(t, apperrors.ErrCodeCannotBanSelf, result.Errors[0].Code)
	assert.True(t, store.users["admin"].active)
	assert.Equal(t, http.StatusOK, result.HTTPStatus())
}

func TestExecute_UnbanIsIdempotent(t *testing.T) {
	store := newFakeStore("u1", "u2")
	svc, _, _ := newTestService(store)
	req := Request{Operation: OpUnban, UserIDs: []string{"u1", "u2"}}

	for i := 0; i < 2; i++ {
		result, err := svc.Execute(context.Background(), admin(), req)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Success)
		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, http.StatusOK, result.HTTPStatus())
	}
}

func TestExecute_SetBasedReportsMissingUsers(t *testing.T) {
	store := newFakeStore("u1")
	svc, _, _ := newTestService(store)

	result, err := svc.Execute(context.Background(), admin(), Request{Operation: OpActivate, UserIDs: []string{"u1", "ghost", "u1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Success+result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "ghost", result.Errors[0].UserID)
	assert.Equal(t, apperrors.ErrCodeUserNotFound, result.Errors[0].Code)
	assert.Equal(t, http.StatusMultiStatus, result.HTTPStatus())
}

func TestExecute_DeleteWithSelf(t *testing.T) {
	store := newFakeStore("u1", "admin")
	svc, cache, progress := newTestService(store)

	result, err := svc.Execute(context.Background(), admin(), Request{
		Operation:   OpDelete,
		UserIDs:     []string{"u1", "admin"},
		OperationID: "op-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "admin", result.Errors[0].UserID)
	assert.Equal(t, "admin@example.com", result.Errors[0].UserEmail)
	assert.Equal(t, "Cannot delete your own account", result.Errors[0].Error)
	assert.Equal(t, apperrors.ErrCodeCannotDeleteSelf, result.Errors[0].Code)
	assert.Equal(t, []string{"u1"}, store.deleted)
	assert.Equal(t, http.StatusMultiStatus, result.HTTPStatus())
	assert.Equal(t, 1, cache.n)

	p, err := progress.Get(context.Background(), "op-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, 100, p.Progress)
	assert.Equal(t, 2, p.Processed)
	assert.Equal(t, result, p.Result)
}

func TestExecute_DeleteContinuesAfterFailure(t *testing.T) {
	store := newFakeStore("u1", "u2", "u3")
	store.deleteErr["u2"] = errors.New("fk violation")
	svc, _, _ := newTestService(store)

	result, err := svc.Execute(context.Background(), admin(), Request{Operation: OpDelete, UserIDs: []string{"u1", "u2", "missing", "u3"}})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, []string{"u1", "u3"}, store.deleted)
	assert.Equal(t, []string{"u2", "missing"}, result.FailedUserIDs())
	assert.Equal(t, apperrors.ErrCodeInternal, result.Errors[0].Code)
	assert.Equal(t, apperrors.ErrCodeUserNotFound, result.Errors[1].Code)
}

func TestExecute_TotalFailure(t *testing.T) {
	store := newFakeStore()
	svc, cache, _ := newTestService(store)

	result, err := svc.Execute(context.Background(), admin(), Request{Operation: OpDelete, UserIDs: []string{"a", "b"}, OperationID: "op-2"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Success)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, http.StatusInternalServerError, result.HTTPStatus())
	assert.Zero(t, cache.n)

	p, err := svc.Progress(context.Background(), "op-2")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, p.Status)
}

func TestExecute_AssignRole(t *testing.T) {
	store := newFakeStore("u1", "u2")
	svc, _, _ := newTestService(store)

	result, err := svc.Execute(context.Background(), admin(), Request{Operation: OpAssignRole, UserIDs: []string{"u1", "u2"}, RoleID: "r-editor"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Success)
	assert.Equal(t, "r-editor", store.users["u1"].roleID)
	assert.Equal(t, "Assign Role completed for 2 user(s)", result.Message)
}

func TestExecute_StoreErrorIsInternal(t *testing.T) {
	store := newFakeStore("u1")
	store.updateErr = errors.New("connection reset")
	svc, cache, _ := newTestService(store)

	_, err := svc.Execute(context.Background(), admin(), Request{Operation: OpBan, UserIDs: []string{"u1"}})
	requireAppError(t, err, http.StatusInternalServerError, apperrors.ErrCodeInternal)
	assert.Zero(t, cache.n)
}

func TestProgressNotFound(t *testing.T) {
	svc, _, _ := newTestService(newFakeStore())
	_, err := svc.Progress(context.Background(), "nope")
	requireAppError(t, err, http.StatusNotFound, apperrors.ErrCodeNotFound)
}

func TestOperationTitle(t *testing.T) {
	assert.Equal(t, "Ban", OpBan.Title())
	assert.Equal(t, "Assign Role", OpAssignRole.Title())
}
