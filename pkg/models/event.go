package models

import "time"

// Source 表示触发下载的入口。
type Source string

const (
	SourceButton  Source = "button"
	SourceLink    Source = "link"
	SourceCommand Source = "command"
)

// AllSources 返回全部下载来源。
func AllSources() []Source {
	return []Source{SourceButton, SourceLink, SourceCommand}
}

// Valid 判断来源是否合法。
func (s Source) Valid() bool {
	switch s {
	case SourceButton, SourceLink, SourceCommand:
		return true
	default:
		return false
	}
}

// DownloadEvent 记录一次下载行为。
type DownloadEvent struct {
	ID        string    `json:"id"`
	Platform  Platform  `json:"platform"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalyticsData 是持久化到本地的分析数据，下载事件只追加不修改。
type AnalyticsData struct {
	Downloads  []DownloadEvent `json:"downloads"`
	FirstVisit time.Time       `json:"firstVisit"`
	LastVisit  time.Time       `json:"lastVisit"`
	VisitCount int             `json:"visitCount"`
}

// AggregatedStats 是最近 90 天下载事件的聚合结果。
type AggregatedStats struct {
	TotalDownloads int              `json:"totalDownloads"`
	ByPlatform     map[Platform]int `json:"byPlatform"`
	BySource       map[Source]int   `json:"bySource"`
	TodayDownloads int              `json:"todayDownloads"`
	WeekDownloads  int              `json:"weekDownloads"`
	MonthDownloads int              `json:"monthDownloads"`
}
