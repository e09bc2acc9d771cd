package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct{ id int64 }

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2026-01-02T03:04:05Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestCollect(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := []*row{{3}, nil, {1}}
	key := func(r *row) Cursor { return SeekCursor(r.id, created) }

	out, info := Collect(rows, 2, key)
	assert.Equal(t, []row{{3}}, out)
	require.True(t, info.HasMore)
	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "3", cursor.ID)

	out, info = Collect(rows[:1], 1, key)
	assert.Len(t, out, 1)
	assert.False(t, info.HasMore)

	out, info = Collect([]*row{{3}, {2}, {1}}, 2, key)
	assert.Len(t, out, 2)
	require.True(t, info.HasMore)
	cursor, err = DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "2", cursor.ID)
	assert.NoError(t, Pagination{PageToken: info.NextPageToken}.Validate())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Pagination{}.Validate())
	assert.ErrorIs(t, Pagination{PageToken: "%%%"}.Validate(), ErrInvalidPageToken)

	token, err := EncodeCursor(Cursor{ID: "abc", CreatedAt: "2026-01-02T03:04:05Z"})
	require.NoError(t, err)
	assert.ErrorIs(t, Pagination{PageToken: token}.Validate(), ErrInvalidPageToken)

	token, err = EncodeCursor(Cursor{ID: "7", CreatedAt: "yesterday"})
	require.NoError(t, err)
	assert.ErrorIs(t, Pagination{PageToken: token}.Validate(), ErrInvalidPageToken)
}

func TestSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Size())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Size())
	assert.Equal(t, 5, Pagination{PageSize: 5}.Size())
}
