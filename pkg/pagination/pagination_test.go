package pagination_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/pagination"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, pagination.DefaultLimit, pagination.NormalizeLimit(0))
	assert.Equal(t, pagination.DefaultLimit, pagination.NormalizeLimit(-3))
	assert.Equal(t, 10, pagination.NormalizeLimit(10))
	assert.Equal(t, pagination.MaxLimit, pagination.NormalizeLimit(5000))
	assert.Equal(t, 11, pagination.LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	original := pagination.Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		ID:        uuid.New(),
	}

	encoded := pagination.EncodeCursor(original)
	decoded, err := pagination.ParseCursor(encoded)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, decoded.CreatedAt.Equal(original.CreatedAt))
	assert.Equal(t, original.ID, decoded.ID)
}

func TestParseCursorEmpty(t *testing.T) {
	decoded, err := pagination.ParseCursor("   ")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestParseCursorMalformed(t *testing.T) {
	_, err := pagination.ParseCursor("not base64!!")
	assert.Error(t, err)

	// valid base64, no separator inside
	_, err = pagination.ParseCursor("bm8tc2VwYXJhdG9yLWhlcmU")
	assert.Error(t, err)

	// separator present but the timestamp half is not numeric
	_, err = pagination.ParseCursor("c29vbi4xMjM0")
	assert.Error(t, err)
}
