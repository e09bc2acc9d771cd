package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRange(t *testing.T) {
	from, to, err := parseTimeRange(timeParam{"created_from", "2026-07-01"}, timeParam{"created_to", "2026-07-31"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), *from)
	assert.Equal(t, time.Date(2026, 7, 31, 23, 59, 59, 999999999, time.UTC), *to)

	from, to, err = parseTimeRange(timeParam{"start_at", "2026-07-01T08:30:00Z"}, timeParam{"end_at", ""})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 1, 8, 30, 0, 0, time.UTC), *from)
	assert.Nil(t, to)

	_, _, err = parseTimeRange(timeParam{"start_at", ""}, timeParam{"end_at", "last week"})
	vErr := asValidationErrors(err)
	require.NotNil(t, vErr)
	assert.Equal(t, "end_at", vErr.Errors[0].Field)
	assert.Equal(t, "invalid_end_at", vErr.Errors[0].Code)
}
