package count

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestColumnsMatchWrittenSchema(t *testing.T) {
	var names []string
	for _, col := range strings.Split(RequestColumns, ",") {
		names = append(names, strings.TrimSpace(col))
	}
	// InsertRequest writes request_type; every reader, including the sweep's
	// overdue scan, must select the same spelling in ScanRequest order.
	require.Equal(t, []string{
		"id", "number", "request_type", "center_ids", "status", "comment",
		"due_at", "created_by", "created_at", "sent_at", "completed_at", "cancelled_at",
	}, names)
}
