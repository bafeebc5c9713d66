package console

import (
	"context"
	"fmt"
	"sync"

	"github.com/Triaksa-Space/be-admin-console/client"
	"github.com/Triaksa-Space/be-admin-console/domain/importer"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
)

type ImportState int

const (
	ImportIdle ImportState = iota
	ImportPreviewing
	ImportPreviewed
	ImportImporting
	ImportCompleted
	ImportFailed
)

func (s ImportState) String() string {
	return [...]string{"idle", "previewing", "previewed", "importing", "completed", "failed"}[s]
}

type ImportAPI interface {
	PreviewImport(ctx context.Context, up importer.Upload, mapping importer.FieldMapping) (*importer.PreviewResponse, error)
	CommitImport(ctx context.Context, up importer.Upload, mapping importer.FieldMapping, opts importer.Options) (*importer.Response, error)
}

type ImportSnapshot struct {
	State    ImportState
	FileName string
	Preview  *importer.PreviewResponse
	Mapping  importer.FieldMapping
	Options  importer.Options
	Response *importer.Response
	Err      error
}

// ImportController drives the import wizard:
// Idle -> Previewing -> Previewed -> Importing -> Completed, with Failed
// reachable from either request.
type ImportController struct {
	api    ImportAPI
	cache  Invalidator
	notify Notifier
	log    logger.Logger

	mu       sync.Mutex
	state    ImportState
	upload   importer.Upload
	preview  *importer.PreviewResponse
	mapping  importer.FieldMapping
	explicit bool
	opts     importer.Options
	response *importer.Response
	err      error
	gen      uint64
}

// DefaultImportOptions match the wizard's initial checkboxes.
var DefaultImportOptions = importer.Options{
	SkipDuplicates: true,
	DefaultStatus:  "active",
}

func NewImportController(api ImportAPI, cache Invalidator, notify Notifier, log logger.Logger) *ImportController {
	if log == nil {
		log = logger.Nop()
	}
	return &ImportController{
		api:    api,
		cache:  cache,
		notify: notify,
		log:    log.WithComponent("import-console"),
		opts:   DefaultImportOptions,
	}
}

func (c *ImportController) Snapshot() ImportSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ImportSnapshot{
		State:    c.state,
		FileName: c.upload.FileName,
		Preview:  c.preview,
		Mapping:  copyMapping(c.mapping),
		Options:  c.opts,
		Response: c.response,
		Err:      c.err,
	}
}

// SelectFile replaces any current upload and previews it with the suggested mapping.
func (c *ImportController) SelectFile(ctx context.Context, name string, content []byte) (*importer.PreviewResponse, error) {
	c.mu.Lock()
	if c.state == ImportPreviewing || c.state == ImportImporting {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: select file while %s", ErrInvalidTransition, state)
	}
	c.clear()
	c.upload = importer.Upload{FileName: name, ContentType: importer.ContentTypeFor(name), Data: content}
	c.mu.Unlock()

	return c.runPreview(ctx, nil)
}

// SetMapping maps header onto field and previews again with the explicit
// mapping. An empty field unmaps the header. Mapping onto a field that
// another header holds moves it.
func (c *ImportController) SetMapping(ctx context.Context, header, field string) (*importer.PreviewResponse, error) {
	c.mu.Lock()
	if c.state != ImportPreviewed {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: map columns while %s", ErrInvalidTransition, state)
	}
	mapping := copyMapping(c.mapping)
	if field == "" {
		delete(mapping, header)
	} else {
		for h, f := range mapping {
			if f == field && h != header {
				delete(mapping, h)
			}
		}
		mapping[header] = field
	}
	c.mu.Unlock()

	return c.runPreview(ctx, mapping)
}

func (c *ImportController) runPreview(ctx context.Context, mapping importer.FieldMapping) (*importer.PreviewResponse, error) {
	c.mu.Lock()
	c.state = ImportPreviewing
	c.gen++
	gen := c.gen
	up := c.upload
	c.mu.Unlock()

	resp, err := c.api.PreviewImport(ctx, up, mapping)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return resp, err
	}
	if err != nil {
		c.state = ImportFailed
		c.err = err
		c.mu.Unlock()
		c.log.Warn("Import preview failed", logger.FileName(up.FileName), logger.Err(err))
		c.toast(Toast{Severity: SeverityError, Title: "Preview failed", Message: errorMessage(err)})
		return nil, err
	}
	c.state = ImportPreviewed
	c.preview = resp
	c.err = nil
	c.explicit = mapping != nil
	c.mapping = copyMapping(resp.Mapping)
	c.mu.Unlock()
	return resp, nil
}

// SetOptions stores the options used by Commit.
func (c *ImportController) SetOptions(opts importer.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ImportPreviewed {
		return fmt.Errorf("%w: set options while %s", ErrInvalidTransition, c.state)
	}
	c.opts = opts
	return nil
}

// Commit sends the full file. A rejected import moves to Failed with the
// server's report available through Errors and Warnings.
func (c *ImportController) Commit(ctx context.Context) (*importer.Response, error) {
	c.mu.Lock()
	if c.state != ImportPreviewed {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: commit while %s", ErrInvalidTransition, state)
	}
	c.state = ImportImporting
	c.gen++
	gen := c.gen
	up, opts := c.upload, c.opts
	var mapping importer.FieldMapping
	if c.explicit {
		mapping = copyMapping(c.mapping)
	}
	c.mu.Unlock()

	resp, err := c.api.CommitImport(ctx, up, mapping, opts)
	if err == nil && !resp.ValidateOnly && resp.Summary.Created+resp.Summary.Updated > 0 && c.cache != nil {
		c.cache.Invalidate(UsersQueryPrefix)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return resp, err
	}
	if err != nil {
		c.state = ImportFailed
		c.err = err
		if report, ok := client.ImportResponseFromError(err); ok {
			c.response = report
		}
		c.mu.Unlock()
		c.log.Warn("Import failed", logger.FileName(up.FileName), logger.Err(err))
		c.toast(Toast{Severity: SeverityError, Title: "Import failed", Message: errorMessage(err)})
		return nil, err
	}
	c.state = ImportCompleted
	c.response = resp
	c.mu.Unlock()

	c.toast(ImportToast(resp))
	return resp, nil
}

// Reset returns to Idle. A request still in flight is ignored when it completes.
func (c *ImportController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
}

func (c *ImportController) clear() {
	c.state = ImportIdle
	c.upload = importer.Upload{}
	c.preview = nil
	c.mapping = nil
	c.explicit = false
	c.opts = DefaultImportOptions
	c.response = nil
	c.err = nil
	c.gen++
}

// Errors lists blocking issues: the commit report when there is one,
// otherwise the preview sample.
func (c *ImportController) Errors() []importer.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.response != nil:
		return c.response.Errors
	case c.preview != nil:
		return c.preview.Validation.Errors
	}
	return nil
}

// Warnings lists advisory issues from the same source as Errors.
func (c *ImportController) Warnings() []importer.Issue {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.response != nil:
		return c.response.Warnings
	case c.preview != nil:
		return c.preview.Validation.Warnings
	}
	return nil
}

func (c *ImportController) toast(t Toast) {
	if c.notify != nil {
		c.notify.Notify(t)
	}
}

func copyMapping(m importer.FieldMapping) importer.FieldMapping {
	if m == nil {
		return nil
	}
	out := make(importer.FieldMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
