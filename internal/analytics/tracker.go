// Package analytics 记录落地页的访问与下载事件，并基于本地存储做聚合统计。
package analytics

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liangyou/zoodb-landing/internal/storage"
	"github.com/liangyou/zoodb-landing/pkg/models"
)

var (
	// ErrInvalidPlatform 表示下载事件的平台不在 windows/macos/linux 之内。
	ErrInvalidPlatform = errors.New("analytics: invalid platform")
	// ErrInvalidSource 表示下载事件的来源不合法。
	ErrInvalidSource = errors.New("analytics: invalid source")
)

// Export 是导出的完整快照，字段与持久化数据平铺在同一层。
type Export struct {
	models.AnalyticsData
	Stats      models.AggregatedStats `json:"stats"`
	ExportedAt time.Time              `json:"exportedAt"`
}

// Option 用于配置 Tracker。
type Option func(*Tracker)

// WithLogger 设置日志记录器。
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.log = logger
		}
	}
}

// WithClock 替换时间来源。
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithPruneOnWrite 为真时每次写入都会丢弃 90 天窗口之外的事件。
func WithPruneOnWrite(enabled bool) Option {
	return func(t *Tracker) { t.pruneOnWrite = enabled }
}

// Tracker 在内存中维护分析数据并写穿到 Store。存储失败只记录日志，不影响调用方。
type Tracker struct {
	store        storage.Store
	log          *zap.Logger
	now          func() time.Time
	newID        func() string
	pruneOnWrite bool

	mu      sync.Mutex
	data    models.AnalyticsData
	loaded  bool
	fresh   bool
	visited bool
}

// NewTracker 创建统计器。首次读写时才访问存储，只有 Open 会记录访问。
func NewTracker(store storage.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		log:   zap.NewNop(),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open 载入已有数据并记录一次访问。没有数据或存储不可用时从全新记录开始。
// 同一个 Tracker 只记录一次访问。
func (t *Tracker) Open() models.AnalyticsData {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadLocked()
	if !t.visited {
		t.visited = true
		if !t.fresh {
			t.data.LastVisit = t.now()
			t.data.VisitCount++
			if t.data.FirstVisit.IsZero() {
				t.data.FirstVisit = t.data.LastVisit
			}
			t.saveLocked()
		}
	}
	return t.snapshotLocked()
}

// loadLocked 首次调用时从存储载入数据，不记录访问。
func (t *Tracker) loadLocked() {
	if t.loaded {
		return
	}
	t.loaded = true

	data, err := t.store.Load()
	switch {
	case err == nil:
		t.data = data
		return
	case errors.Is(err, storage.ErrNoData):
	default:
		t.log.Warn("load analytics failed, starting fresh", zap.Error(err))
	}
	t.data = initialData(t.now())
	t.fresh = true
	t.saveLocked()
}

// TrackDownload 记录一次下载，source 为空时视为 button。
func (t *Tracker) TrackDownload(platform models.Platform, source models.Source) (models.DownloadEvent, error) {
	if !platform.Valid() {
		return models.DownloadEvent{}, fmt.Errorf("%w: %q", ErrInvalidPlatform, platform)
	}
	if source == "" {
		source = models.SourceButton
	}
	if !source.Valid() {
		return models.DownloadEvent{}, fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadLocked()

	now := t.now()
	event := models.DownloadEvent{
		ID:        t.newID(),
		Platform:  platform,
		Source:    source,
		Timestamp: now,
	}
	t.data.Downloads = append(t.data.Downloads, event)

	if t.pruneOnWrite {
		t.data.Downloads = Prune(t.data.Downloads, now)
		t.saveLocked()
	} else if err := t.store.Append(event); err != nil {
		t.log.Warn("persist download failed", zap.String("id", event.ID), zap.Error(err))
	}

	t.log.Debug("download tracked",
		zap.String("platform", string(platform)),
		zap.String("source", string(source)))
	return event, nil
}

// Clear 丢弃全部数据，从一条全新的访问记录重新开始。
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loaded, t.visited = true, true
	t.data = initialData(t.now())
	t.saveLocked()
}

// Stats 返回最近 90 天的聚合统计。
func (t *Tracker) Stats() models.AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadLocked()
	return Aggregate(t.data.Downloads, t.now())
}

// Export 返回数据、统计与导出时间。
func (t *Tracker) Export() Export {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadLocked()
	now := t.now()
	return Export{
		AnalyticsData: t.snapshotLocked(),
		Stats:         Aggregate(t.data.Downloads, now),
		ExportedAt:    now,
	}
}

// Data 返回当前数据的副本。
func (t *Tracker) Data() models.AnalyticsData {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadLocked()
	return t.snapshotLocked()
}

// VisitCount 返回累计访问次数。
func (t *Tracker) VisitCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadLocked()
	return t.data.VisitCount
}

// FirstVisit 返回首次访问时间。
func (t *Tracker) FirstVisit() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadLocked()
	return t.data.FirstVisit
}

// LastDownload 返回最近一次下载事件。
func (t *Tracker) LastDownload() (models.DownloadEvent, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadLocked()
	if len(t.data.Downloads) == 0 {
		return models.DownloadEvent{}, false
	}
	return t.data.Downloads[len(t.data.Downloads)-1], true
}

func (t *Tracker) saveLocked() {
	if err := t.store.Save(t.data); err != nil {
		t.log.Warn("persist analytics failed", zap.Error(err))
	}
}

func (t *Tracker) snapshotLocked() models.AnalyticsData {
	out := t.data
	out.Downloads = make([]models.DownloadEvent, len(t.data.Downloads))
	copy(out.Downloads, t.data.Downloads)
	return out
}

func initialData(now time.Time) models.AnalyticsData {
	return models.AnalyticsData{
		Downloads:  []models.DownloadEvent{},
		FirstVisit: now,
		LastVisit:  now,
		VisitCount: 1,
	}
}
