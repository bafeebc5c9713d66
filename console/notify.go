// Package console holds the client-side controllers behind the admin
// console: the bulk operation dialogs, the import wizard and the user list.
// Controllers own their state explicitly and are safe for concurrent use.
package console

import (
	"fmt"
	"sync"

	"github.com/Triaksa-Space/be-admin-console/domain/bulk"
	"github.com/Triaksa-Space/be-admin-console/domain/importer"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Toast is a user-visible notification.
type Toast struct {
	Severity Severity
	Title    string
	Message  string
}

type Notifier interface {
	Notify(t Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

// LogNotifier writes toasts to a logger.
type LogNotifier struct {
	Log logger.Logger
}

func (n LogNotifier) Notify(t Toast) {
	fields := []logger.Field{logger.String("severity", string(t.Severity)), logger.String("title", t.Title)}
	switch t.Severity {
	case SeverityError:
		n.Log.Error(t.Message, nil, fields...)
	case SeverityWarning:
		n.Log.Warn(t.Message, fields...)
	default:
		n.Log.Info(t.Message, fields...)
	}
}

// Recorder keeps every toast it receives.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Notify(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// Last returns the most recent toast.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}

// BulkResultToast picks severity from the counts: nothing failed is a
// success, a mix is a warning and no successes at all is an error.
func BulkResultToast(op bulk.Operation, r *bulk.Result) Toast {
	title := op.Title()
	switch {
	case r.Failed == 0 && (r.Success > 0 || r.Skipped == 0):
		msg := fmt.Sprintf("%s completed for %d user(s)", title, r.Success)
		if r.Skipped > 0 {
			msg += fmt.Sprintf(", %d skipped", r.Skipped)
		}
		return Toast{Severity: SeveritySuccess, Title: title + " completed", Message: msg}
	case r.Success > 0:
		return Toast{
			Severity: SeverityWarning,
			Title:    title + " partially completed",
			Message:  fmt.Sprintf("%s succeeded for %d user(s) and failed for %d", title, r.Success, r.Failed+r.Skipped),
		}
	default:
		return Toast{
			Severity: SeverityError,
			Title:    title + " failed",
			Message:  fmt.Sprintf("%s failed for all %d user(s)", title, r.Failed+r.Skipped),
		}
	}
}

// ImportToast summarises a finished import or dry run.
func ImportToast(r *importer.Response) Toast {
	s := r.Summary
	counts := fmt.Sprintf("%d created, %d updated, %d skipped, %d invalid", s.Created, s.Updated, s.Skipped, s.InvalidRows)
	switch {
	case r.ValidateOnly:
		sev := SeverityInfo
		if s.InvalidRows > 0 {
			sev = SeverityWarning
		}
		return Toast{Severity: sev, Title: "Validation finished", Message: counts}
	case s.InvalidRows == 0:
		return Toast{Severity: SeveritySuccess, Title: "Import completed", Message: counts}
	case s.Created+s.Updated > 0:
		return Toast{Severity: SeverityWarning, Title: "Import partially completed", Message: counts}
	default:
		return Toast{Severity: SeverityError, Title: "Import failed", Message: counts}
	}
}
