package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatNumber 按千位分隔格式化计数，例如 1234567 -> 1,234,567。
func FormatNumber(n int) string {
	return humanize.Comma(int64(n))
}

// FormatRelativeTime 返回 t 相对 now 的粗略描述。超过 30 天按 30 天一个月折算。
func FormatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	minutes := int(diff / time.Minute)
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 30:
		return fmt.Sprintf("%d months ago", days/30)
	case days > 0:
		return plural(days, "day")
	case hours > 0:
		return plural(hours, "hour")
	case minutes > 0:
		return plural(minutes, "minute")
	default:
		return "Just now"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// Percentage 返回 count 占 total 的百分比（四舍五入），total 为 0 时返回 0。
func Percentage(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}
