package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantFrom time.Time
		wantTo   *time.Time
	}{
		{
			name:     "single date",
			text:     "5 mar 2025",
			wantFrom: date(2025, time.March, 5),
		},
		{
			name:     "range",
			text:     "5 mar 2025 > 10 mar 2025",
			wantFrom: date(2025, time.March, 5),
			wantTo:   ptr(date(2025, time.March, 10)),
		},
		{
			name:     "full month names and surrounding text",
			text:     "Del 12 Diciembre 2024 > 3 Enero 2025 en la sala",
			wantFrom: date(2024, time.December, 12),
			wantTo:   ptr(date(2025, time.January, 3)),
		},
		{
			name:     "upper case and no spaces around separator",
			text:     "01 AGO 2025>02 AGO 2025",
			wantFrom: date(2025, time.August, 1),
			wantTo:   ptr(date(2025, time.August, 2)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDateRange(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.wantFrom, got.From)
			if tt.wantTo == nil {
				assert.Nil(t, got.To)
				assert.Equal(t, got.From, got.End())
			} else {
				require.NotNil(t, got.To)
				assert.Equal(t, *tt.wantTo, *got.To)
			}
		})
	}
}

func TestParseDateRange_Miss(t *testing.T) {
	for _, text := range []string{
		"próximamente",
		"",
		"5 xyz 2025",
		"31 feb 2025",
		"5 mar 2025 > 10 qqq 2025",
	} {
		got, ok := ParseDateRange(text)
		assert.False(t, ok, text)
		assert.Nil(t, got, text)
	}
}

func TestMonthIndexAndLabel(t *testing.T) {
	m, ok := MonthIndex("Septiembre")
	require.True(t, ok)
	assert.Equal(t, time.September, m)

	_, ok = MonthIndex("ab")
	assert.False(t, ok)

	assert.Equal(t, "Ene", MonthLabel(time.January))
	assert.Equal(t, "Dic", MonthLabel(time.December))
}

func ptr(t time.Time) *time.Time { return &t }
