package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", Timestamp: "2026-10-16T10:00:00Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)

	empty, err := DecodeCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestTrim(t *testing.T) {
	rows := []int{5, 4, 3}
	extract := func(v int) Cursor { return Cursor{ID: string(rune('0' + v))} }

	page, info, err := Trim(rows, 2, extract)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 4}, page)
	assert.True(t, info.HasMore)
	assert.NotEmpty(t, info.NextPageToken)

	page, info, err = Trim(rows, 3, extract)
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
}

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Limit())
}
