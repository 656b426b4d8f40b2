package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)

	for _, in := range []string{"20240501", "2024-05-01", " 20240501 "} {
		got, err := ParseDate(in, loc)
		require.NoError(t, err, in)
		assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, loc), got, in)
	}

	for _, in := range []string{"", "2024-5-1", "202405011", "20241301", "2024/05/01", "abcdefgh"} {
		_, err := ParseDate(in, loc)
		assert.ErrorIs(t, err, ErrInvalidDate, in)
	}
}

func TestCompactDate(t *testing.T) {
	assert.Equal(t, "20240229", CompactDate(time.Date(2024, 2, 29, 18, 0, 0, 0, time.UTC)))
}

func TestStartOfDayAndSameDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	instant := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, loc), StartOfDay(instant, loc))
	assert.True(t, SameDay(instant, time.Date(2024, 5, 2, 8, 0, 0, 0, loc), loc))
	assert.False(t, SameDay(instant, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), loc))
	assert.True(t, SameDay(instant, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), time.UTC))
}
