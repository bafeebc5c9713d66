package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/Triaksa-Space/be-admin-console/domain/bulk"
	"github.com/Triaksa-Space/be-admin-console/domain/importer"
	"github.com/Triaksa-Space/be-admin-console/domain/user"
	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
)

// ExecuteBulk runs a bulk operation. It is sent once. A total failure comes
// back as an *APIError with code BULK_OPERATION_FAILED whose details decode
// into a bulk.Result; see BulkResultFromError.
func (c *Client) ExecuteBulk(ctx context.Context, req bulk.Request) (*bulk.Result, error) {
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}
	var res bulk.Result
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/bulk-operations",
		body:        body,
		contentType: "application/json",
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// BulkResultFromError extracts the result carried by a BULK_OPERATION_FAILED error.
func BulkResultFromError(err error) (*bulk.Result, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != apperrors.ErrCodeBulkOperationFailed {
		return nil, false
	}
	var res bulk.Result
	if !apiErr.DecodeDetails(&res) {
		return nil, false
	}
	return &res, true
}

func (c *Client) BulkProgress(ctx context.Context, operationID string) (*bulk.Progress, error) {
	var p bulk.Progress
	err := c.do(ctx, request{
		method:     http.MethodGet,
		path:       "/bulk-operations/" + url.PathEscape(operationID),
		idempotent: true,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UsersQuery renders f as a query string. It is also the cache key suffix.
func UsersQuery(f user.ListFilter) string {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("search", f.Search)
	set("status", f.Status)
	set("role", f.Role)
	set("sort", f.Sort)
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q.Encode()
}

func (c *Client) ListUsers(ctx context.Context, f user.ListFilter) (*user.ListResult, error) {
	path := "/users"
	if q := UsersQuery(f); q != "" {
		path += "?" + q
	}
	var res user.ListResult
	if err := c.do(ctx, request{method: http.MethodGet, path: path, idempotent: true}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ListRoles(ctx context.Context) ([]user.Role, error) {
	var res struct {
		Roles []user.Role `json:"roles"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/roles", idempotent: true}, &res); err != nil {
		return nil, err
	}
	return res.Roles, nil
}

// PreviewImport has no side effects on the server and is retried.
func (c *Client) PreviewImport(ctx context.Context, up importer.Upload, mapping importer.FieldMapping) (*importer.PreviewResponse, error) {
	body, contentType, err := importForm(up, mapping, nil)
	if err != nil {
		return nil, err
	}
	var res importer.PreviewResponse
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/users/import/preview",
		body:        body,
		contentType: contentType,
		idempotent:  true,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CommitImport is sent once. Rejected imports (IMPORT_DATA_INVALID) carry an
// importer.Response in their details; see ImportResponseFromError.
func (c *Client) CommitImport(ctx context.Context, up importer.Upload, mapping importer.FieldMapping, opts importer.Options) (*importer.Response, error) {
	body, contentType, err := importForm(up, mapping, &opts)
	if err != nil {
		return nil, err
	}
	var res importer.Response
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/users/import",
		body:        body,
		contentType: contentType,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ImportResponseFromError extracts the validation report of a rejected import.
func ImportResponseFromError(err error) (*importer.Response, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != apperrors.ErrCodeImportDataInvalid {
		return nil, false
	}
	var res importer.Response
	if !apiErr.DecodeDetails(&res) {
		return nil, false
	}
	return &res, true
}

// DownloadTemplate fetches the sample import file as CSV or XLSX bytes.
func (c *Client) DownloadTemplate(ctx context.Context, xlsx bool) ([]byte, error) {
	path := "/users/import/template"
	if xlsx {
		path += "?format=xlsx"
	}
	var data []byte
	if err := c.do(ctx, request{method: http.MethodGet, path: path, idempotent: true}, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func importForm(up importer.Upload, mapping importer.FieldMapping, opts *importer.Options) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	contentType := up.ContentType
	if contentType == "" {
		contentType = importer.ContentTypeFor(up.FileName)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, up.FileName))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(up.Data); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}

	if len(mapping) > 0 {
		if err := writeJSONField(w, "fieldMapping", mapping); err != nil {
			return nil, "", err
		}
	}
	if opts != nil {
		if err := writeJSONField(w, "options", opts); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeJSONField(w *multipart.Writer, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return w.WriteField(name, string(data))
}
