package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTripDuration(t *testing.T) {
	tests := []struct {
		name     string
		from, to time.Time
		want     string
	}{
		{"single day", date(2023, 4, 1), date(2023, 4, 1), "1 day"},
		{"range", date(2023, 4, 1), date(2023, 4, 5), "5 days"},
		{"across months", date(2023, 3, 30), date(2023, 4, 2), "4 days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TripDuration(tt.from, tt.to))
		})
	}
}

func TestDateRange(t *testing.T) {
	assert.Equal(t, "Apr 1 - Apr 5", DateRange(date(2023, 4, 1), date(2023, 4, 5)))
}

func TestActivityFormatting(t *testing.T) {
	from := time.Date(2023, 4, 1, 9, 0, 0, 0, time.UTC)
	to := time.Date(2023, 4, 1, 13, 30, 0, 0, time.UTC)

	assert.Equal(t, "1:30 PM", ActivityTime(to))
	assert.Equal(t, "9:00 AM - 1:30 PM", ActivityTimes(from, to))
	assert.Equal(t, "4h", ActivityDuration(from, to))
	assert.Equal(t, "Sat, Apr 1", ActivityDate(from))
}

func TestCheckTime(t *testing.T) {
	assert.Equal(t, "3:00 PM", CheckTime("15:00"))
	assert.Equal(t, "later", CheckTime("later"))
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2023, 4, 1, 23, 0, 0, 0, time.UTC)
	to := time.Date(2023, 4, 3, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, DaysBetween(from, to))
	assert.Equal(t, "2023-04-03", DayKey(to))
	assert.Equal(t, date(2023, 4, 3), Day(to))
}
