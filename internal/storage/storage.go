package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/liangyou/zoodb-landing/pkg/models"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	dataFileName   = "zoodb-analytics.json"
	sqliteFileName = "zoodb-analytics.db"
)

// ErrNoData 表示存储中还没有任何分析数据。
var ErrNoData = errors.New("storage: no analytics data")

// Store 定义分析数据的读写接口。
type Store interface {
	Load() (models.AnalyticsData, error)
	Save(data models.AnalyticsData) error
	Append(event models.DownloadEvent) error
	Close() error
}

// NewStore 根据配置选择存储后端，未设置时使用文件存储。
func NewStore(cfg models.Config) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Analytics.Backend))
	switch backend {
	case "", BackendFile:
		return NewFileStorage(cfg), nil
	case BackendSQLite:
		return NewSQLiteStorage(filepath.Join(resolveDataDir(cfg.DataDir), sqliteFileName))
	case BackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Analytics.Backend)
	}
}

func resolveDataDir(dir string) string {
	if dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".zoodb-landing")
	}
	return filepath.Join(os.TempDir(), "zoodb-landing")
}

// FileStorage 把分析数据以 JSON 形式保存在数据目录下。
type FileStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileStorage 构造一个文件系统存储实例。
func NewFileStorage(cfg models.Config) *FileStorage {
	return &FileStorage{path: filepath.Join(resolveDataDir(cfg.DataDir), dataFileName)}
}

// Path 返回数据文件路径。
func (s *FileStorage) Path() string {
	return s.path
}

// Load 读取全部分析数据，文件不存在或为空时返回 ErrNoData。
func (s *FileStorage) Load() (models.AnalyticsData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// Save 覆盖写入全部分析数据。
func (s *FileStorage) Save(data models.AnalyticsData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(data)
}

// Append 追加一条下载事件。
func (s *FileStorage) Append(event models.DownloadEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readLocked()
	if err != nil && !errors.Is(err, ErrNoData) {
		return err
	}
	data.Downloads = append(data.Downloads, event)
	return s.writeLocked(data)
}

// Close 对文件存储无实际操作。
func (s *FileStorage) Close() error {
	return nil
}

func (s *FileStorage) readLocked() (models.AnalyticsData, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.AnalyticsData{}, ErrNoData
		}
		return models.AnalyticsData{}, fmt.Errorf("storage: open %s: %w", s.path, err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return models.AnalyticsData{}, fmt.Errorf("storage: read %s: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(bytes))) == 0 {
		return models.AnalyticsData{}, ErrNoData
	}

	var data models.AnalyticsData
	if err := json.Unmarshal(bytes, &data); err != nil {
		return models.AnalyticsData{}, fmt.Errorf("storage: decode %s: %w", s.path, err)
	}
	if data.Downloads == nil {
		data.Downloads = []models.DownloadEvent{}
	}
	return data, nil
}

func (s *FileStorage) writeLocked(data models.AnalyticsData) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("storage: create data dir: %w", err)
	}
	if data.Downloads == nil {
		data.Downloads = []models.DownloadEvent{}
	}

	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode analytics: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, bytes, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("storage: replace %s: %w", s.path, err)
	}
	return nil
}

// MemoryStorage 把分析数据保存在进程内存中，适用于测试与一次性会话。
type MemoryStorage struct {
	mu      sync.Mutex
	data    models.AnalyticsData
	present bool
}

// NewMemoryStorage 创建空的内存存储。
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Load() (models.AnalyticsData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present {
		return models.AnalyticsData{}, ErrNoData
	}
	return cloneData(s.data), nil
}

func (s *MemoryStorage) Save(data models.AnalyticsData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = cloneData(data)
	s.present = true
	return nil
}

func (s *MemoryStorage) Append(event models.DownloadEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Downloads = append(s.data.Downloads, event)
	s.present = true
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

func cloneData(data models.AnalyticsData) models.AnalyticsData {
	out := data
	out.Downloads = make([]models.DownloadEvent, len(data.Downloads))
	copy(out.Downloads, data.Downloads)
	return out
}
