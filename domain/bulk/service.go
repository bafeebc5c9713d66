package bulk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/google/uuid"
)

// ErrUserNotFound is returned by Store.DeleteUser when the id does not exist.
var ErrUserNotFound = errors.New("user not found")

// Actor is the authenticated caller.
type Actor interface {
	UserID() string
	Can(action, subject string) bool
}

// Update describes a set-based change applied to many users.
type Update struct {
	IsActive       *bool
	IsBanned       *bool
	BanReason      *string
	ClearBanReason bool
	RoleID         string
}

// Store is the persistence surface used by the orchestrator.
type Store interface {
	UpdateUsers(ctx context.Context, ids []string, u Update) (int64, error)
	DeleteUser(ctx context.Context, id string) error
	FindEmails(ctx context.Context, ids []string) (map[string]string, error)
	RoleExists(ctx context.Context, roleID string) (bool, error)
}

// ProgressTracker persists operation progress for polling clients.
type ProgressTracker interface {
	Save(ctx context.Context, p *Progress) error
	Get(ctx context.Context, operationID string) (*Progress, error)
}

// CacheInvalidator drops cached user listings after a mutation.
type CacheInvalidator interface {
	Invalidate()
}

// Service orchestrates bulk operations over user records.
type Service struct {
	store    Store
	progress ProgressTracker
	cache    CacheInvalidator
	log      logger.Logger
	now      func() time.Time
}

func NewService(store Store, progress ProgressTracker, cache CacheInvalidator, log logger.Logger) *Service {
	if log == nil {
		log = logger.Get()
	}
	return &Service{
		store:    store,
		progress: progress,
		cache:    cache,
		log:      log.WithComponent("bulk"),
		now:      time.Now,
	}
}

// Execute validates req for actor and applies it. Request-level failures are
// returned as *apperrors.AppError before any mutation; per-user failures are
// collected in the Result.
func (s *Service) Execute(ctx context.Context, actor Actor, req Request) (*Result, error) {
	if actor == nil || actor.UserID() == "" {
		return nil, apperrors.NewUnauthorized("Authentication required")
	}

	req.UserIDs = dedupe(req.UserIDs)
	if !req.Operation.Valid() {
		return nil, apperrors.NewBadRequest(apperrors.ErrCodeValidation,
			fmt.Sprintf("Unknown operation %q", req.Operation))
	}
	if len(req.UserIDs) == 0 {
		return nil, apperrors.NewBadRequest(apperrors.ErrCodeValidation, "userIds must not be empty")
	}

	action, subject := req.Operation.RequiredPermission()
	if !actor.Can(action, subject) {
		return nil, apperrors.NewForbidden(fmt.Sprintf("Missing permission: %s %s", action, subject))
	}

	selfID := actor.UserID()
	result := &Result{
		OperationID: req.OperationID,
		Operation:   req.Operation,
		Errors:      []ItemError{},
	}
	if result.OperationID == "" {
		result.OperationID = uuid.NewString()
	}

	targets := req.UserIDs
	switch req.Operation {
	case OpBan, OpDeactivate:
		targets = without(req.UserIDs, selfID)
		if len(targets) == 0 {
			return nil, apperrors.NewBadRequest(apperrors.ErrCodeCannotBanSelf,
				fmt.Sprintf("You cannot %s your own account", req.Operation))
		}
		if len(targets) < len(req.UserIDs) {
			result.Skipped++
			result.Errors = append(result.Errors, ItemError{
				UserID:    selfID,
				Error:     fmt.Sprintf("Cannot %s your own account", req.Operation),
				Code:      apperrors.ErrCodeCannotBanSelf,
				Timestamp: s.now().UTC(),
			})
		}
	case OpDelete:
		if len(req.UserIDs) == 1 && req.UserIDs[0] == selfID {
			return nil, apperrors.NewBadRequest(apperrors.ErrCodeCannotDeleteSelf, "You cannot delete your own account")
		}
	case OpAssignRole:
		if strings.TrimSpace(req.RoleID) == "" {
			return nil, apperrors.NewBadRequest(apperrors.ErrCodeValidation, "roleId is required for assign_role")
		}
		exists, err := s.store.RoleExists(ctx, req.RoleID)
		if err != nil {
			return nil, apperrors.NewInternal(apperrors.ErrCodeInternal, "Failed to resolve role", err)
		}
		if !exists {
			return nil, apperrors.NewBadRequest(apperrors.ErrCodeInvalidRole, "Role not found")
		}
	}

	log := s.log.WithUserID(selfID).WithFields(
		logger.Operation(string(req.Operation)),
		logger.OperationID(result.OperationID),
	)
	log.Info("Bulk operation started", logger.Count(len(req.UserIDs)))
	start := s.now()

	progress := &Progress{
		OperationID: result.OperationID,
		Operation:   req.Operation,
		Status:      StatusInProgress,
		Total:       len(req.UserIDs),
		StartedAt:   start.UTC(),
	}
	s.saveProgress(ctx, progress)

	var err error
	if req.Operation == OpDelete {
		err = s.deleteEach(ctx, selfID, targets, result, progress)
	} else {
		err = s.updateSet(ctx, req, targets, result)
	}
	if err != nil {
		progress.Status = StatusFailed
		s.saveProgress(ctx, progress)
		observeOperation(req.Operation, "error", s.now().Sub(start))
		log.Error("Bulk operation aborted", err)
		return nil, apperrors.NewInternal(apperrors.ErrCodeInternal, "Bulk operation failed", err)
	}

	result.Message = summarize(req.Operation, result)
	progress.Finish(result)
	s.saveProgress(ctx, progress)

	if result.Success > 0 && s.cache != nil {
		s.cache.Invalidate()
	}

	observeOperation(req.Operation, outcome(result), s.now().Sub(start))
	observeItems(req.Operation, result)
	log.Info("Bulk operation finished",
		logger.Int("success", result.Success),
		logger.Int("failed", result.Failed),
		logger.Int("skipped", result.Skipped),
		logger.Duration("duration", s.now().Sub(start)),
	)
	return result, nil
}

// Progress returns the tracked state of an operation.
func (s *Service) Progress(ctx context.Context, operationID string) (*Progress, error) {
	p, err := s.progress.Get(ctx, operationID)
	if err != nil {
		if errors.Is(err, ErrProgressNotFound) {
			return nil, apperrors.NewNotFound(apperrors.ErrCodeNotFound, "Operation not found")
		}
		return nil, apperrors.NewInternal(apperrors.ErrCodeInternal, "Failed to load operation progress", err)
	}
	return p, nil
}

// updateSet runs one statement over the whole id set. RowsAffected counts
// matched rows, so ids that did not match are the ones missing from the table.
func (s *Service) updateSet(ctx context.Context, req Request, ids []string, result *Result) error {
	update := updateFor(req)
	affected, err := s.store.UpdateUsers(ctx, ids, update)
	if err != nil {
		return fmt.Errorf("update users: %w", err)
	}

	result.Success = int(affected)
	if result.Success > len(ids) {
		result.Success = len(ids)
	}
	result.Failed = len(ids) - result.Success
	if result.Failed == 0 {
		return nil
	}

	found, err := s.store.FindEmails(ctx, ids)
	if err != nil {
		s.log.Warn("Could not identify failed users", logger.Err(err))
		return nil
	}
	ts := s.now().UTC()
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		result.Errors = append(result.Errors, ItemError{
			UserID:    id,
			Error:     "User not found",
			Code:      apperrors.ErrCodeUserNotFound,
			Timestamp: ts,
		})
	}
	return nil
}

// deleteEach removes users one at a time in request order. A failure on one
// id never stops the loop.
func (s *Service) deleteEach(ctx context.Context, selfID string, ids []string, result *Result, progress *Progress) error {
	emails, err := s.store.FindEmails(ctx, ids)
	if err != nil {
		s.log.Warn("Could not resolve user emails", logger.Err(err))
		emails = map[string]string{}
	}

	for i, id := range ids {
		itemErr := ItemError{UserID: id, UserEmail: emails[id]}
		switch {
		case id == selfID:
			itemErr.Error = "Cannot delete your own account"
			itemErr.Code = apperrors.ErrCodeCannotDeleteSelf
		default:
			err := s.store.DeleteUser(ctx, id)
			switch {
			case err == nil:
				result.Success++
			case errors.Is(err, ErrUserNotFound):
				itemErr.Error = "User not found"
				itemErr.Code = apperrors.ErrCodeUserNotFound
			default:
				s.log.Warn("Failed to delete user", logger.UserID(id), logger.Err(err))
				itemErr.Error = "Failed to delete user"
				itemErr.Code = apperrors.ErrCodeInternal
			}
		}
		if itemErr.Code != "" {
			itemErr.Timestamp = s.now().UTC()
			result.Failed++
			result.Errors = append(result.Errors, itemErr)
		}

		progress.Advance(i+1, s.now())
		s.saveProgress(ctx, progress)
	}
	return nil
}

func (s *Service) saveProgress(ctx context.Context, p *Progress) {
	if s.progress == nil {
		return
	}
	if err := s.progress.Save(ctx, p); err != nil {
		s.log.Warn("Failed to save progress", logger.OperationID(p.OperationID), logger.Err(err))
	}
}

func updateFor(req Request) Update {
	yes, no := true, false
	switch req.Operation {
	case OpBan:
		reason := strings.TrimSpace(req.Reason)
		return Update{IsActive: &no, IsBanned: &yes, BanReason: &reason}
	case OpUnban, OpActivate:
		// Activation lifts a ban so a user never matches both active and banned.
		return Update{IsActive: &yes, IsBanned: &no, ClearBanReason: true}
	case OpDeactivate:
		return Update{IsActive: &no}
	case OpAssignRole:
		return Update{RoleID: req.RoleID}
	}
	return Update{}
}

func summarize(op Operation, r *Result) string {
	switch {
	case r.Failed == 0 && r.Skipped == 0:
		return fmt.Sprintf("%s completed for %d user(s)", op.Title(), r.Success)
	case r.Success == 0 && r.Failed > 0:
		return fmt.Sprintf("%s failed for all %d user(s)", op.Title(), r.Failed)
	default:
		return fmt.Sprintf("%s completed: %d succeeded, %d failed, %d skipped", op.Title(), r.Success, r.Failed, r.Skipped)
	}
}

func outcome(r *Result) string {
	switch r.HTTPStatus() {
	case http.StatusOK:
		return "success"
	case http.StatusMultiStatus:
		return "partial"
	default:
		return "failed"
	}
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
