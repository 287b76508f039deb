package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// jobs.group_id is a uuid column. Coalescing it with a text default only
// parses when the column is cast to text first; the uncast form makes
// Postgres coerce '' through the uuid input function and the worker could
// never load a job definition.
func TestGetJobQuery_GroupIDCastBeforeCoalesce(t *testing.T) {
	assert.Contains(t, getJobQuery, "COALESCE(group_id::text, '')")
	assert.NotContains(t, getJobQuery, "COALESCE(group_id,")
}
