package analytics

import (
	"time"

	"github.com/liangyou/zoodb-landing/pkg/models"
)

const (
	day = 24 * time.Hour
	// Window 是参与聚合的事件时间窗口。
	Window = 90 * day
	week   = 7 * day
	month  = 30 * day
)

// Aggregate 统计 now 之前 90 天内（严格晚于截止时间）的下载事件。
// 平台或来源不合法的事件被跳过，不计入任何计数。
func Aggregate(events []models.DownloadEvent, now time.Time) models.AggregatedStats {
	stats := models.AggregatedStats{
		ByPlatform: make(map[models.Platform]int, 3),
		BySource:   make(map[models.Source]int, 3),
	}
	for _, p := range models.AllPlatforms() {
		stats.ByPlatform[p] = 0
	}
	for _, s := range models.AllSources() {
		stats.BySource[s] = 0
	}

	cutoff := now.Add(-Window)
	for _, e := range events {
		if !e.Timestamp.After(cutoff) || !e.Platform.Valid() || !e.Source.Valid() {
			continue
		}
		stats.TotalDownloads++
		stats.ByPlatform[e.Platform]++
		stats.BySource[e.Source]++

		age := now.Sub(e.Timestamp)
		if age < day {
			stats.TodayDownloads++
		}
		if age < week {
			stats.WeekDownloads++
		}
		if age < month {
			stats.MonthDownloads++
		}
	}
	return stats
}

// Prune 返回仍在时间窗口内的事件，输入切片不被修改。
func Prune(events []models.DownloadEvent, now time.Time) []models.DownloadEvent {
	cutoff := now.Add(-Window)
	kept := make([]models.DownloadEvent, 0, len(events))
	for _, e := range events {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}
