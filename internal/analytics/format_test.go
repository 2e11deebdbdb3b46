package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1,000", FormatNumber(1000))
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
}

func TestFormatRelativeTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, "Just now"},
		{59 * time.Second, "Just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{time.Hour, "1 hour ago"},
		{23 * time.Hour, "23 hours ago"},
		{day, "1 day ago"},
		{30 * day, "30 days ago"},
		{31 * day, "1 months ago"},
		{95 * day, "3 months ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRelativeTime(baseTime.Add(-tt.ago), baseTime), tt.ago.String())
	}
}

func TestPercentage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, Percentage(3, 0))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 100, Percentage(5, 5))
}
