package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/Triaksa-Space/be-admin-console/client"
	"github.com/Triaksa-Space/be-admin-console/domain/bulk"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
)

// UsersQueryPrefix is the query cache prefix for every user list page.
const UsersQueryPrefix = "users"

var (
	ErrInvalidTransition = errors.New("action not allowed in the current state")
	ErrNoTargets         = errors.New("no users selected")
	ErrNothingToRetry    = errors.New("no failed users to retry")
)

type BulkState int

const (
	BulkIdle BulkState = iota
	BulkConfirmOpen
	BulkProgressOpen
	BulkResultOpen
)

func (s BulkState) String() string {
	switch s {
	case BulkConfirmOpen:
		return "confirm"
	case BulkProgressOpen:
		return "progress"
	case BulkResultOpen:
		return "result"
	default:
		return "idle"
	}
}

// Target is a selected user.
type Target struct {
	ID    string
	Email string
}

type BulkAPI interface {
	ExecuteBulk(ctx context.Context, req bulk.Request) (*bulk.Result, error)
}

// Invalidator drops cached queries by key prefix.
type Invalidator interface {
	Invalidate(prefix string) int
}

type ConfirmOptions struct {
	Force bool
}

// BulkSnapshot is a copy of the controller state for rendering.
type BulkSnapshot struct {
	State    BulkState
	Action   Action
	Targets  []Target
	Confirm  *Confirm
	Progress *bulk.Progress
	Result   *bulk.Result
}

// BulkController drives the bulk dialogs:
// Idle -> ConfirmOpen -> ProgressOpen -> ResultOpen -> Idle.
type BulkController struct {
	api    BulkAPI
	cache  Invalidator
	notify Notifier
	log    logger.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    BulkState
	action   Action
	targets  []Target
	progress *bulk.Progress
	result   *bulk.Result
	finished time.Time
	// gen changes whenever the dialogs move on, so a request that completes
	// after Cancel or Close no longer owns them.
	gen uint64
}

func NewBulkController(api BulkAPI, cache Invalidator, notify Notifier, log logger.Logger) *BulkController {
	if log == nil {
		log = logger.Nop()
	}
	return &BulkController{
		api:    api,
		cache:  cache,
		notify: notify,
		log:    log.WithComponent("bulk-console"),
		now:    time.Now,
	}
}

func (b *BulkController) Snapshot() BulkSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := BulkSnapshot{State: b.state, Action: b.action, Targets: append([]Target(nil), b.targets...), Result: b.result}
	if b.action != nil {
		c := DescribeConfirm(b.action, len(b.targets))
		s.Confirm = &c
	}
	if b.progress != nil {
		p := *b.progress
		s.Progress = &p
	}
	return s
}

// Start opens the confirm dialog for action over targets.
func (b *BulkController) Start(action Action, targets []Target) error {
	if action == nil {
		return fmt.Errorf("%w: no action", ErrInvalidTransition)
	}
	if len(targets) == 0 {
		return ErrNoTargets
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BulkIdle {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, b.state)
	}
	b.action = action
	b.targets = append([]Target(nil), targets...)
	b.state = BulkConfirmOpen
	return nil
}

// Confirm sends the request and blocks until it completes. On an in-band
// result, including a total failure, the result dialog opens. On any other
// error the dialogs close. If Cancel or Close happened meanwhile the dialogs
// are left alone, but the user cache is still invalidated.
func (b *BulkController) Confirm(ctx context.Context, reason string, opts ConfirmOptions) (*bulk.Result, error) {
	b.mu.Lock()
	if b.state != BulkConfirmOpen {
		state := b.state
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, state)
	}

	started := b.now()
	op := b.action.Operation()
	req := bulk.Request{
		Operation:   op,
		UserIDs:     make([]string, len(b.targets)),
		Reason:      reason,
		Force:       opts.Force,
		OperationID: "bulk-" + strconv.FormatInt(started.UnixMilli(), 10),
	}
	for i, t := range b.targets {
		req.UserIDs[i] = t.ID
	}
	if a, ok := b.action.(AssignRole); ok {
		req.RoleID = a.Role.ID
	}
	b.progress = &bulk.Progress{
		OperationID: req.OperationID,
		Operation:   op,
		Status:      bulk.StatusInProgress,
		Total:       len(req.UserIDs),
		StartedAt:   started,
	}
	b.state = BulkProgressOpen
	b.gen++
	gen := b.gen
	b.mu.Unlock()

	log := b.log.WithFields(logger.Operation(string(op)), logger.OperationID(req.OperationID))
	log.Info("Bulk operation sent", logger.Count(len(req.UserIDs)))

	res, err := b.api.ExecuteBulk(ctx, req)
	if err != nil {
		if inBand, ok := client.BulkResultFromError(err); ok {
			res, err = inBand, nil
		}
	}
	if res != nil && b.cache != nil {
		b.cache.Invalidate(UsersQueryPrefix)
	}

	b.mu.Lock()
	if b.gen != gen {
		b.mu.Unlock()
		log.Info("Bulk operation finished after its dialog was closed")
		return res, err
	}

	if err != nil {
		b.reset()
		b.mu.Unlock()
		log.Warn("Bulk operation failed", logger.Err(err))
		b.toast(Toast{Severity: SeverityError, Title: op.Title() + " failed", Message: errorMessage(err)})
		return nil, err
	}

	b.finished = b.now()
	b.progress.Finish(res)
	b.result = res
	b.state = BulkResultOpen
	b.mu.Unlock()

	log.Info("Bulk operation finished", logger.Int("success", res.Success), logger.Int("failed", res.Failed))
	b.toast(BulkResultToast(op, res))
	return res, nil
}

// Cancel closes the progress dialog. The request is not aborted.
func (b *BulkController) Cancel() {
	b.mu.Lock()
	if b.state != BulkProgressOpen {
		b.mu.Unlock()
		return
	}
	op := b.action.Operation()
	b.reset()
	b.mu.Unlock()

	b.toast(Toast{
		Severity: SeverityInfo,
		Title:    op.Title() + " dismissed",
		Message:  "The request was already sent and may still complete",
	})
}

// RetryFailed reopens the confirm dialog for the selected users that failed
// or were skipped.
func (b *BulkController) RetryFailed() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BulkResultOpen {
		return fmt.Errorf("%w: retry from %s", ErrInvalidTransition, b.state)
	}

	failed := map[string]bool{}
	for _, id := range b.result.FailedUserIDs() {
		failed[id] = true
	}
	var retry []Target
	for _, t := range b.targets {
		if failed[t.ID] {
			retry = append(retry, t)
		}
	}
	if len(retry) == 0 {
		return ErrNothingToRetry
	}

	b.targets = retry
	b.result = nil
	b.progress = nil
	b.state = BulkConfirmOpen
	b.gen++
	return nil
}

// DownloadReport writes the CSV report of the open result.
func (b *BulkController) DownloadReport(w io.Writer) error {
	b.mu.Lock()
	if b.state != BulkResultOpen {
		state := b.state
		b.mu.Unlock()
		return fmt.Errorf("%w: report from %s", ErrInvalidTransition, state)
	}
	report := bulk.Report{
		Operation: b.action.Operation(),
		Total:     len(b.targets),
		Duration:  b.finished.Sub(b.progress.StartedAt),
		Result:    b.result,
	}
	b.mu.Unlock()
	return bulk.WriteReport(w, report)
}

func (b *BulkController) CloseConfirm() {
	b.closeFrom(BulkConfirmOpen)
}

// CloseProgress is Cancel.
func (b *BulkController) CloseProgress() {
	b.Cancel()
}

func (b *BulkController) CloseResult() {
	b.closeFrom(BulkResultOpen)
}

func (b *BulkController) closeFrom(s BulkState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == s {
		b.reset()
	}
}

// reset clears every operation-scoped field. Callers hold mu.
func (b *BulkController) reset() {
	b.state = BulkIdle
	b.action = nil
	b.targets = nil
	b.progress = nil
	b.result = nil
	b.finished = time.Time{}
	b.gen++
}

// toast must be called without mu held.
func (b *BulkController) toast(t Toast) {
	if b.notify != nil {
		b.notify.Notify(t)
	}
}

func errorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
