package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Triaksa-Space/be-admin-console/domain/bulk"
	"github.com/Triaksa-Space/be-admin-console/domain/importer"
	"github.com/Triaksa-Space/be-admin-console/domain/user"
	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/Triaksa-Space/be-admin-console/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "token-123", WithRetryPolicy(fastRetry))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	writeJSON(w, status, apperrors.ErrorResponse{Success: false, Error: msg, Code: code, Details: details})
}

func TestExecuteBulk(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bulk-operations", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		var req bulk.Request
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"u1", "u2"}, req.UserIDs)
		writeJSON(w, http.StatusMultiStatus, bulk.Result{Operation: req.Operation, Success: 1, Failed: 1})
	})

	res, err := c.ExecuteBulk(context.Background(), bulk.Request{Operation: bulk.OpBan, UserIDs: []string{"u1", "u2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, int32(1), hits.Load())
}

func TestExecuteBulk_TotalFailureIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeError(w, http.StatusInternalServerError, apperrors.ErrCodeBulkOperationFailed, "Delete failed for all 1 user(s)",
			bulk.Result{Operation: bulk.OpDelete, Failed: 1, Errors: []bulk.ItemError{{UserID: "u1", Code: apperrors.ErrCodeUserNotFound}}})
	})

	_, err := c.ExecuteBulk(context.Background(), bulk.Request{Operation: bulk.OpDelete, UserIDs: []string{"u1"}})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "mutations are sent once")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)

	res, ok := BulkResultFromError(err)
	require.True(t, ok)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, "u1", res.Errors[0].UserID)
}

func TestListUsers_RetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			writeError(w, http.StatusServiceUnavailable, "", "try later", nil)
			return
		}
		assert.Equal(t, "ann", r.URL.Query().Get("search"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		writeJSON(w, http.StatusOK, user.ListResult{Users: []user.User{{ID: "u1"}}, Total: 1, Page: 2, Limit: 10})
	})

	res, err := c.ListUsers(context.Background(), user.ListFilter{Search: "ann", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, "u1", res.Users[0].ID)
}

func TestListUsers_ClientErrorsAreFinal(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeValidation, "status must be active, inactive or banned", nil)
	})

	_, err := c.ListUsers(context.Background(), user.ListFilter{Status: "sleeping"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apperrors.ErrCodeValidation, apiErr.Code)
	assert.Equal(t, "status must be active, inactive or banned", apiErr.Message)
	assert.Equal(t, int32(1), hits.Load())
}

func TestListRolesAndProgress(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/roles":
			writeJSON(w, http.StatusOK, map[string]interface{}{"roles": []user.Role{{ID: "r1", Name: "admin"}}})
		case "/bulk-operations/op-1":
			writeJSON(w, http.StatusOK, bulk.Progress{OperationID: "op-1", Status: bulk.StatusCompleted, Progress: 100})
		default:
			writeError(w, http.StatusNotFound, apperrors.ErrCodeNotFound, "not found", nil)
		}
	})

	roles, err := c.ListRoles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "admin", roles[0].Name)

	p, err := c.BulkProgress(context.Background(), "op-1")
	require.NoError(t, err)
	assert.Equal(t, 100, p.Progress)

	_, err = c.BulkProgress(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestPreviewImport_SendsMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		f, fh, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)

		assert.Equal(t, "users.xlsx", fh.Filename)
		assert.Equal(t, importer.MIMEXLSX, fh.Header.Get("Content-Type"))
		assert.Equal(t, "payload", string(data))
		assert.JSONEq(t, `{"Mail":"email"}`, r.FormValue("fieldMapping"))
		assert.Empty(t, r.FormValue("options"))
		writeJSON(w, http.StatusOK, importer.PreviewResponse{Success: true, Preview: importer.Preview{TotalRows: 4}})
	})

	res, err := c.PreviewImport(context.Background(),
		importer.Upload{FileName: "users.xlsx", Data: []byte("payload")},
		importer.FieldMapping{"Mail": "email"})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Preview.TotalRows)
}

func TestCommitImport_RejectedCarriesReport(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.JSONEq(t, `{"skipDuplicates":true,"updateExisting":false,"skipInvalidRows":false,"sendWelcomeEmail":false,"requirePasswordReset":false,"validateOnly":true}`,
			r.FormValue("options"))
		writeError(w, http.StatusBadRequest, apperrors.ErrCodeImportDataInvalid, "1 of 2 row(s) failed validation",
			importer.Response{Summary: importer.Summary{TotalRows: 2, InvalidRows: 1}})
	})

	_, err := c.CommitImport(context.Background(),
		importer.Upload{FileName: "users.csv", Data: []byte("email\n")}, nil,
		importer.Options{SkipDuplicates: true, ValidateOnly: true})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())

	report, ok := ImportResponseFromError(err)
	require.True(t, ok)
	assert.Equal(t, 1, report.Summary.InvalidRows)

	_, ok = BulkResultFromError(err)
	assert.False(t, ok)
}

func TestDownloadTemplate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") == "xlsx" {
			_, _ = w.Write([]byte("xlsx-bytes"))
			return
		}
		_, _ = w.Write([]byte(importer.GenerateSampleCSV()))
	})

	data, err := c.DownloadTemplate(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, importer.GenerateSampleCSV(), string(data))

	data, err = c.DownloadTemplate(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "xlsx-bytes", string(data))
}

func TestUsersQuery(t *testing.T) {
	assert.Equal(t, "", UsersQuery(user.ListFilter{}))
	assert.Equal(t, "limit=25&page=3&role=manager&search=a+b", UsersQuery(user.ListFilter{Search: "a b", Role: "manager", Page: 3, Limit: 25}))
}
