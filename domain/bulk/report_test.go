package bulk

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReport(t *testing.T) {
	ts := time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	result := &Result{
		Operation: OpDelete,
		Success:   1,
		Failed:    2,
		Errors: []ItemError{
			{UserID: "admin", UserEmail: "admin@example.com", Error: "Cannot delete your own account", Code: "CANNOT_DELETE_SELF", Timestamp: ts},
			{UserID: "ghost", Error: "User not found, really", Code: "USER_NOT_FOUND", Timestamp: ts},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, Report{Operation: OpDelete, Total: 3, Duration: 1500 * time.Millisecond, Result: result}))

	want := "Operation,Total,Success,Failed,Skipped,Duration\n" +
		"Delete,3,1,2,0,1.5s\n" +
		"\n" +
		"Errors:\n" +
		"User,Error,Code,Timestamp\n" +
		"admin@example.com,Cannot delete your own account,CANNOT_DELETE_SELF,2026-10-15T09:30:00Z\n" +
		"ghost,\"User not found, really\",USER_NOT_FOUND,2026-10-15T09:30:00Z\n"
	assert.Equal(t, want, buf.String())

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	// the blank separator line is skipped by encoding/csv
	assert.Len(t, records, 6)
}

func TestWriteReport_DefaultsTotalAndRequiresResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, Report{Operation: OpAssignRole, Result: &Result{Success: 2, Skipped: 1}}))
	assert.Contains(t, buf.String(), "Assign Role,3,2,0,1,0s\n")

	assert.Error(t, WriteReport(&buf, Report{Operation: OpBan}))
}
