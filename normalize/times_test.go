package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRange(t *testing.T) {
	start, end := ParseTimeRange("marzo 5 @ 20:30 - 22:00")
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, "20:30", *start)
	assert.Equal(t, "22:00", *end)

	start, end = ParseTimeRange("Todo el día")
	assert.Nil(t, start)
	assert.Nil(t, end)
}

func TestISODate(t *testing.T) {
	got, ok := ISODate("2025-03-05")
	require.True(t, ok)
	assert.Equal(t, date(2025, time.March, 5), got)

	got, ok = ISODate("2025-11-21T19:00:00+00:00")
	require.True(t, ok)
	assert.Equal(t, date(2025, time.November, 21), got)

	_, ok = ISODate("mañana")
	assert.False(t, ok)
}
