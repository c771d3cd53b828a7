package floq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWeek(t *testing.T) {
	tests := []struct {
		date   string
		monday string
		sunday string
	}{
		{"2026-10-12", "2026-10-12", "2026-10-18"}, // Monday
		{"2026-10-14", "2026-10-12", "2026-10-18"},
		{"2026-10-18", "2026-10-12", "2026-10-18"}, // Sunday
		{"2026-12-31", "2026-12-28", "2027-01-03"},
	}

	for _, tt := range tests {
		date, err := ParseDate(tt.date)
		require.NoError(t, err)

		monday, sunday := Week(date)
		require.Equal(t, tt.monday, monday.Format(DateLayout), tt.date)
		require.Equal(t, tt.sunday, sunday.Format(DateLayout), tt.date)
	}
}

func TestDay(t *testing.T) {
	oslo := time.FixedZone("CEST", 2*60*60)
	got := Day(time.Date(2026, 10, 14, 0, 30, 0, 0, oslo))
	require.Equal(t, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate("14.10.2026")
	require.ErrorContains(t, err, "expected YYYY-MM-DD")
}
