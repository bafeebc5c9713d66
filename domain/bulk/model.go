package bulk

import (
	"net/http"
	"strings"
	"time"
)

// Operation is one of the bulk actions an admin can apply to many users at once.
type Operation string

const (
	OpBan        Operation = "ban"
	OpUnban      Operation = "unban"
	OpActivate   Operation = "activate"
	OpDeactivate Operation = "deactivate"
	OpDelete     Operation = "delete"
	OpAssignRole Operation = "assign_role"
)

// Operations lists every supported operation in display order.
var Operations = []Operation{OpBan, OpUnban, OpActivate, OpDeactivate, OpDelete, OpAssignRole}

func (o Operation) Valid() bool {
	for _, op := range Operations {
		if op == o {
			return true
		}
	}
	return false
}

// RequiredPermission returns the (action, subject) grant the actor needs.
func (o Operation) RequiredPermission() (string, string) {
	if o == OpDelete {
		return "delete", "User"
	}
	return "update", "User"
}

// Title renders the operation name for people: "assign_role" -> "Assign Role".
func (o Operation) Title() string {
	parts := strings.Split(string(o), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// Request is the body of POST /bulk-operations.
type Request struct {
	Operation   Operation `json:"operation"`
	UserIDs     []string  `json:"userIds"`
	RoleID      string    `json:"roleId,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Force       bool      `json:"force,omitempty"`
	OperationID string    `json:"operationId,omitempty"`
}

// ItemError records why a single target was not processed.
type ItemError struct {
	UserID    string    `json:"userId"`
	UserEmail string    `json:"userEmail,omitempty"`
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// Result aggregates the outcome of a bulk operation.
type Result struct {
	OperationID string      `json:"operationId"`
	Operation   Operation   `json:"operation"`
	Success     int         `json:"success"`
	Failed      int         `json:"failed"`
	Skipped     int         `json:"skipped"`
	Errors      []ItemError `json:"errors"`
	Message     string      `json:"message"`
}

// Total is the number of targets the result accounts for.
func (r *Result) Total() int {
	return r.Success + r.Failed + r.Skipped
}

// FailedUserIDs returns the ids of every target that failed or was skipped,
// in the order they were reported.
func (r *Result) FailedUserIDs() []string {
	ids := make([]string, 0, len(r.Errors))
	seen := make(map[string]struct{}, len(r.Errors))
	for _, e := range r.Errors {
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		ids = append(ids, e.UserID)
	}
	return ids
}

// HTTPStatus applies the response policy: 200 when nothing failed, 207 on a
// partial outcome, 500 when every attempted target failed.
func (r *Result) HTTPStatus() int {
	switch {
	case r.Failed == 0:
		return http.StatusOK
	case r.Success > 0:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

// Status is the lifecycle state of a tracked operation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Progress is the operation-scoped state exposed by GET /bulk-operations/:id.
type Progress struct {
	OperationID         string     `json:"operationId"`
	Operation           Operation  `json:"operation"`
	Status              Status     `json:"status"`
	Progress            int        `json:"progress"`
	Processed           int        `json:"processed"`
	Total               int        `json:"total"`
	StartedAt           time.Time  `json:"startedAt"`
	EstimatedCompletion *time.Time `json:"estimatedCompletion,omitempty"`
	Result              *Result    `json:"result,omitempty"`
}

// Advance records processed items and refreshes the percentage and estimate.
func (p *Progress) Advance(processed int, now time.Time) {
	p.Processed = processed
	if p.Total > 0 {
		p.Progress = processed * 100 / p.Total
	}
	if processed > 0 && processed < p.Total {
		perItem := now.Sub(p.StartedAt) / time.Duration(processed)
		eta := now.Add(perItem * time.Duration(p.Total-processed))
		p.EstimatedCompletion = &eta
	} else {
		p.EstimatedCompletion = nil
	}
}

// Finish moves the progress into its terminal state.
func (p *Progress) Finish(result *Result) {
	p.Result = result
	p.Processed = p.Total
	p.Progress = 100
	p.EstimatedCompletion = nil
	p.Status = StatusCompleted
	if result.Success == 0 && result.Failed > 0 {
		p.Status = StatusFailed
	}
}
