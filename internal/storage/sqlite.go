package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/liangyou/zoodb-landing/pkg/models"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS download_events (
	id TEXT PRIMARY KEY,
	platform TEXT NOT NULL,
	source TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_download_events_timestamp ON download_events(timestamp);

CREATE TABLE IF NOT EXISTS visits (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	first_visit INTEGER NOT NULL,
	last_visit INTEGER NOT NULL,
	visit_count INTEGER NOT NULL
);
`

// SQLiteStorage 使用 SQLite 保存分析数据，时间戳以 Unix 毫秒存储。
type SQLiteStorage struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLiteStorage 打开（必要时创建）path 处的数据库。
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create tables: %w", err)
	}
	return &SQLiteStorage{db: db, path: path}, nil
}

// Path 返回数据库文件路径。
func (s *SQLiteStorage) Path() string {
	return s.path
}

func (s *SQLiteStorage) Load() (models.AnalyticsData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		data                  models.AnalyticsData
		firstVisit, lastVisit int64
		hasVisit              = true
	)
	err := s.db.QueryRow(`SELECT first_visit, last_visit, visit_count FROM visits WHERE id = 1`).
		Scan(&firstVisit, &lastVisit, &data.VisitCount)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		hasVisit = false
	case err != nil:
		return models.AnalyticsData{}, fmt.Errorf("storage: query visits: %w", err)
	default:
		data.FirstVisit = fromMillis(firstVisit)
		data.LastVisit = fromMillis(lastVisit)
	}

	rows, err := s.db.Query(`SELECT id, platform, source, timestamp FROM download_events ORDER BY timestamp, rowid`)
	if err != nil {
		return models.AnalyticsData{}, fmt.Errorf("storage: query downloads: %w", err)
	}
	defer rows.Close()

	data.Downloads = []models.DownloadEvent{}
	for rows.Next() {
		var (
			event    models.DownloadEvent
			platform string
			source   string
			ts       int64
		)
		if err := rows.Scan(&event.ID, &platform, &source, &ts); err != nil {
			return models.AnalyticsData{}, fmt.Errorf("storage: scan download: %w", err)
		}
		event.Platform = models.Platform(platform)
		event.Source = models.Source(source)
		event.Timestamp = fromMillis(ts)
		data.Downloads = append(data.Downloads, event)
	}
	if err := rows.Err(); err != nil {
		return models.AnalyticsData{}, fmt.Errorf("storage: iterate downloads: %w", err)
	}

	if !hasVisit && len(data.Downloads) == 0 {
		return models.AnalyticsData{}, ErrNoData
	}
	return data, nil
}

func (s *SQLiteStorage) Save(data models.AnalyticsData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM download_events`); err != nil {
		return fmt.Errorf("storage: clear downloads: %w", err)
	}
	for _, event := range data.Downloads {
		if err := insertEvent(tx, event); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO visits (id, first_visit, last_visit, visit_count) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET first_visit = excluded.first_visit,
		 last_visit = excluded.last_visit, visit_count = excluded.visit_count`,
		data.FirstVisit.UnixMilli(), data.LastVisit.UnixMilli(), data.VisitCount,
	); err != nil {
		return fmt.Errorf("storage: save visits: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Append(event models.DownloadEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertEvent(s.db, event)
}

// Close 关闭数据库连接。
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertEvent(db execer, event models.DownloadEvent) error {
	_, err := db.Exec(
		`INSERT OR REPLACE INTO download_events (id, platform, source, timestamp) VALUES (?, ?, ?, ?)`,
		event.ID, string(event.Platform), string(event.Source), event.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("storage: insert download %s: %w", event.ID, err)
	}
	return nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
