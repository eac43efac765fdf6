package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-5))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(5000))
	assert.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := uuid.New()
	encoded := EncodeCursor(Cursor{CreatedAt: now, ID: id})

	parsed, err := ParseCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, parsed)
	assert.True(t, parsed.CreatedAt.Equal(now))
	assert.Equal(t, id, parsed.ID)
}

func TestParseCursorInvalid(t *testing.T) {
	parsed, err := ParseCursor("   ")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	_, err = ParseCursor("not-base64!!")
	assert.Error(t, err)

	_, err = ParseCursor("bm8tcGlwZQ==") // "no-pipe"
	assert.Error(t, err)
}

type pageRow struct {
	id        uuid.UUID
	createdAt time.Time
}

func TestPage(t *testing.T) {
	base := time.Now().UTC()
	rows := make([]pageRow, 4)
	for i := range rows {
		rows[i] = pageRow{id: uuid.New(), createdAt: base.Add(time.Duration(i) * time.Second)}
	}

	visible, next := Page(rows, 3, func(r pageRow) time.Time { return r.createdAt }, func(r pageRow) uuid.UUID { return r.id })
	require.Len(t, visible, 3)
	require.NotEmpty(t, next)

	cursor, err := ParseCursor(next)
	require.NoError(t, err)
	assert.Equal(t, rows[2].id, cursor.ID)

	visible, next = Page(rows, 10, func(r pageRow) time.Time { return r.createdAt }, func(r pageRow) uuid.UUID { return r.id })
	assert.Len(t, visible, 4)
	assert.Empty(t, next)
}
