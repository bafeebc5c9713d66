package console

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Triaksa-Space/be-admin-console/client"
	"github.com/Triaksa-Space/be-admin-console/domain/bulk"
	"github.com/Triaksa-Space/be-admin-console/domain/user"
	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBulkAPI struct {
	mu      sync.Mutex
	reqs    []bulk.Request
	result  *bulk.Result
	err     error
	called  chan struct{}
	release chan struct{}
}

func (f *fakeBulkAPI) ExecuteBulk(_ context.Context, req bulk.Request) (*bulk.Result, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.called != nil {
		f.called <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func (f *fakeBulkAPI) last() bulk.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

type fakeInvalidator struct {
	mu       sync.Mutex
	prefixes []string
}

func (f *fakeInvalidator) Invalidate(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefixes = append(f.prefixes, prefix)
	return 1
}

func (f *fakeInvalidator) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prefixes...)
}

var targets = []Target{
	{ID: "u1", Email: "one@example.com"},
	{ID: "u2", Email: "two@example.com"},
	{ID: "u3", Email: "three@example.com"},
}

func newBulk(api *fakeBulkAPI) (*BulkController, *fakeInvalidator, *Recorder) {
	cache := &fakeInvalidator{}
	rec := &Recorder{}
	return NewBulkController(api, cache, rec, nil), cache, rec
}

func TestBulk_HappyPath(t *testing.T) {
	api := &fakeBulkAPI{result: &bulk.Result{Operation: bulk.OpBan, Success: 3}}
	b, cache, toasts := newBulk(api)

	require.NoError(t, b.Start(Ban{}, targets))
	snap := b.Snapshot()
	assert.Equal(t, BulkConfirmOpen, snap.State)
	require.NotNil(t, snap.Confirm)
	assert.Equal(t, "Ban users", snap.Confirm.Title)
	assert.Contains(t, snap.Confirm.Message, "3 user(s)")

	res, err := b.Confirm(context.Background(), "spam", ConfirmOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Success)

	req := api.last()
	assert.Equal(t, bulk.OpBan, req.Operation)
	assert.Equal(t, []string{"u1", "u2", "u3"}, req.UserIDs)
	assert.Equal(t, "spam", req.Reason)
	assert.Contains(t, req.OperationID, "bulk-")

	snap = b.Snapshot()
	assert.Equal(t, BulkResultOpen, snap.State)
	require.NotNil(t, snap.Progress)
	assert.Equal(t, bulk.StatusCompleted, snap.Progress.Status)
	assert.Equal(t, 100, snap.Progress.Progress)
	assert.Equal(t, []string{UsersQueryPrefix}, cache.calls())

	last, _ := toasts.Last()
	assert.Equal(t, SeveritySuccess, last.Severity)
	assert.Equal(t, "Ban completed", last.Title)

	b.CloseResult()
	snap = b.Snapshot()
	assert.Equal(t, BulkIdle, snap.State)
	assert.Nil(t, snap.Action)
	assert.Empty(t, snap.Targets)
	assert.Nil(t, snap.Result)
}

func TestBulk_AssignRoleSendsRole(t *testing.T) {
	api := &fakeBulkAPI{result: &bulk.Result{Success: 1}}
	b, _, _ := newBulk(api)

	require.NoError(t, b.Start(AssignRole{Role: user.Role{ID: "r-manager", Name: "manager"}}, targets[:1]))
	assert.Contains(t, b.Snapshot().Confirm.Message, "manager")

	_, err := b.Confirm(context.Background(), "", ConfirmOptions{})
	require.NoError(t, err)
	assert.Equal(t, "r-manager", api.last().RoleID)
	assert.Equal(t, bulk.OpAssignRole, api.last().Operation)
}

func TestBulk_PartialThenRetryFailed(t *testing.T) {
	api := &fakeBulkAPI{result: &bulk.Result{
		Operation: bulk.OpDelete,
		Success:   1,
		Failed:    2,
		Errors: []bulk.ItemError{
			{UserID: "u3", Error: "User not found", Code: apperrors.ErrCodeUserNotFound},
			{UserID: "u1", Error: "Cannot delete your own account", Code: apperrors.ErrCodeCannotDeleteSelf},
		},
	}}
	b, _, toasts := newBulk(api)

	require.NoError(t, b.Start(Delete{}, targets))
	_, err := b.Confirm(context.Background(), "", ConfirmOptions{Force: true})
	require.NoError(t, err)
	assert.True(t, api.last().Force)

	last, _ := toasts.Last()
	assert.Equal(t, SeverityWarning, last.Severity)

	require.NoError(t, b.RetryFailed())
	snap := b.Snapshot()
	assert.Equal(t, BulkConfirmOpen, snap.State)
	assert.Equal(t, []Target{targets[0], targets[2]}, snap.Targets, "selection order is kept")
	assert.Nil(t, snap.Result)

	api.result = &bulk.Result{Operation: bulk.OpDelete, Success: 2}
	_, err = b.Confirm(context.Background(), "", ConfirmOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u3"}, api.last().UserIDs)
	assert.ErrorIs(t, b.RetryFailed(), ErrNothingToRetry)
}

func TestBulk_TransportErrorClosesDialogs(t *testing.T) {
	api := &fakeBulkAPI{err: &client.APIError{Status: 403, Code: apperrors.ErrCodeInsufficientPermissions, Message: "Missing permission: delete User"}}
	b, cache, toasts := newBulk(api)

	require.NoError(t, b.Start(Delete{}, targets))
	_, err := b.Confirm(context.Background(), "", ConfirmOptions{})
	require.Error(t, err)

	assert.Equal(t, BulkIdle, b.Snapshot().State)
	assert.Empty(t, cache.calls())
	last, _ := toasts.Last()
	assert.Equal(t, SeverityError, last.Severity)
	assert.Equal(t, "Delete failed", last.Title)
	assert.Equal(t, "Missing permission: delete User", last.Message)
}

func TestBulk_TotalFailureStillShowsResult(t *testing.T) {
	details := []byte(`{"operation":"unban","success":0,"failed":2,"skipped":0,"errors":[{"userId":"u1","error":"User not found","code":"USER_NOT_FOUND","timestamp":"2026-01-01T00:00:00Z"}],"message":"Unban failed for all 2 user(s)"}`)
	api := &fakeBulkAPI{err: &client.APIError{Status: 500, Code: apperrors.ErrCodeBulkOperationFailed, Details: details}}
	b, cache, toasts := newBulk(api)

	require.NoError(t, b.Start(Unban{}, targets[:2]))
	res, err := b.Confirm(context.Background(), "", ConfirmOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Failed)

	snap := b.Snapshot()
	assert.Equal(t, BulkResultOpen, snap.State)
	assert.Equal(t, bulk.StatusFailed, snap.Progress.Status)
	assert.Len(t, cache.calls(), 1)
	last, _ := toasts.Last()
	assert.Equal(t, SeverityError, last.Severity)
	assert.Equal(t, "Unban failed", last.Title)
}

func TestBulk_CancelLeavesRequestRunning(t *testing.T) {
	api := &fakeBulkAPI{
		result:  &bulk.Result{Operation: bulk.OpActivate, Success: 3},
		called:  make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	b, cache, toasts := newBulk(api)
	require.NoError(t, b.Start(Activate{}, targets))

	done := make(chan error, 1)
	go func() {
		_, err := b.Confirm(context.Background(), "", ConfirmOptions{})
		done <- err
	}()

	<-api.called
	assert.Equal(t, BulkProgressOpen, b.Snapshot().State)

	b.Cancel()
	assert.Equal(t, BulkIdle, b.Snapshot().State)
	last, _ := toasts.Last()
	assert.Equal(t, SeverityInfo, last.Severity)

	close(api.release)
	require.NoError(t, <-done)

	assert.Equal(t, BulkIdle, b.Snapshot().State, "late completion does not reopen the result dialog")
	assert.Equal(t, []string{UsersQueryPrefix}, cache.calls(), "late completion still invalidates")
	assert.Len(t, toasts.Toasts(), 1)
}

func TestBulk_InvalidTransitions(t *testing.T) {
	b, _, _ := newBulk(&fakeBulkAPI{result: &bulk.Result{Success: 1}})

	_, err := b.Confirm(context.Background(), "", ConfirmOptions{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, b.Start(Ban{}, nil), ErrNoTargets)
	assert.ErrorIs(t, b.RetryFailed(), ErrInvalidTransition)
	assert.ErrorIs(t, b.DownloadReport(&bytes.Buffer{}), ErrInvalidTransition)

	require.NoError(t, b.Start(Ban{}, targets))
	assert.ErrorIs(t, b.Start(Unban{}, targets), ErrInvalidTransition)

	b.CloseResult()
	assert.Equal(t, BulkConfirmOpen, b.Snapshot().State, "closing a dialog that is not open does nothing")
	b.CloseConfirm()
	assert.Equal(t, BulkIdle, b.Snapshot().State)
}

func TestBulk_DownloadReport(t *testing.T) {
	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	api := &fakeBulkAPI{result: &bulk.Result{
		Operation: bulk.OpBan,
		Success:   1,
		Failed:    1,
		Errors:    []bulk.ItemError{{UserID: "u2", UserEmail: "two@example.com", Error: "User not found", Code: "USER_NOT_FOUND", Timestamp: ts}},
	}}
	b, _, _ := newBulk(api)
	clock := []time.Time{ts, ts.Add(1500 * time.Millisecond)}
	b.now = func() time.Time {
		now := clock[0]
		if len(clock) > 1 {
			clock = clock[1:]
		}
		return now
	}

	require.NoError(t, b.Start(Ban{}, targets[:2]))
	_, err := b.Confirm(context.Background(), "", ConfirmOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, b.DownloadReport(&buf))
	assert.Equal(t, "Operation,Total,Success,Failed,Skipped,Duration\n"+
		"Ban,2,1,1,0,1.5s\n"+
		"\nErrors:\n"+
		"User,Error,Code,Timestamp\n"+
		"two@example.com,User not found,USER_NOT_FOUND,2026-02-03T04:05:06Z\n", buf.String())
	assert.Equal(t, BulkResultOpen, b.Snapshot().State)
}

func TestDescribeConfirm(t *testing.T) {
	tests := []struct {
		action      Action
		title       string
		destructive bool
		reason      bool
	}{
		{Ban{}, "Ban users", true, true},
		{Unban{}, "Unban users", false, false},
		{Activate{}, "Activate users", false, false},
		{Deactivate{}, "Deactivate users", false, true},
		{Delete{}, "Delete users", true, false},
		{AssignRole{Role: user.Role{ID: "r1", Name: "admin"}}, "Assign role", false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.action.Operation()), func(t *testing.T) {
			c := DescribeConfirm(tt.action, 2)
			assert.Equal(t, tt.title, c.Title)
			assert.Equal(t, tt.destructive, c.Destructive)
			assert.Equal(t, tt.reason, c.AsksReason)
			assert.Contains(t, c.Message, "2 user(s)")
		})
	}
}

func TestActionFor(t *testing.T) {
	for _, op := range bulk.Operations {
		a, err := ActionFor(op, user.Role{ID: "r1"})
		require.NoError(t, err)
		assert.Equal(t, op, a.Operation())
	}
	_, err := ActionFor(bulk.OpAssignRole, user.Role{})
	assert.Error(t, err)
	_, err = ActionFor("archive", user.Role{})
	assert.Error(t, err)
}

func TestBulkResultToast(t *testing.T) {
	tests := []struct {
		name   string
		result bulk.Result
		want   Severity
	}{
		{"all success", bulk.Result{Success: 3}, SeveritySuccess},
		{"success with self skipped", bulk.Result{Success: 2, Skipped: 1}, SeveritySuccess},
		{"partial", bulk.Result{Success: 2, Failed: 1}, SeverityWarning},
		{"total failure", bulk.Result{Failed: 3}, SeverityError},
		{"only skipped", bulk.Result{Skipped: 1}, SeverityError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toast := BulkResultToast(bulk.OpAssignRole, &tt.result)
			assert.Equal(t, tt.want, toast.Severity)
			assert.Contains(t, toast.Title, "Assign Role")
		})
	}
}

func TestLogNotifierDoesNotPanic(t *testing.T) {
	n := NotifierFunc(func(Toast) {})
	n.Notify(Toast{})
	assert.NotPanics(t, func() {
		for _, s := range []Severity{SeveritySuccess, SeverityWarning, SeverityError, SeverityInfo} {
			LogNotifier{Log: logger.Nop()}.Notify(Toast{Severity: s, Message: "m"})
		}
	})
}
