// Package config 负责加载、校验与保存 zoodb-landing 的 YAML 配置。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/liangyou/zoodb-landing/pkg/models"
)

const (
	EnvDataDir          = "ZOODB_DATA_DIR"
	EnvLogLevel         = "ZOODB_LOG_LEVEL"
	EnvReducedMotion    = "ZOODB_REDUCED_MOTION"
	EnvAnalyticsBackend = "ZOODB_ANALYTICS_BACKEND"

	defaultTransition = 700 * time.Millisecond
)

// ErrInvalid 表示配置未通过校验。
var ErrInvalid = errors.New("config: invalid")

// ValidBackends 列出支持的分析存储后端。
var ValidBackends = []string{"file", "sqlite", "memory"}

// ValidLogLevels 列出支持的日志级别。
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Config 包装 models.Config，附带加载与校验逻辑。
type Config struct {
	models.Config `yaml:",inline"`
}

// DefaultDir 返回默认数据目录 ~/.zoodb-landing。
func DefaultDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".zoodb-landing")
	}
	return filepath.Join(os.TempDir(), "zoodb-landing")
}

// DefaultPath 返回默认配置文件路径。
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{Config: models.Config{
		DataDir:  DefaultDir(),
		LogLevel: "info",
		Analytics: models.AnalyticsConfig{
			Backend: "file",
		},
		Slides: models.SlidesConfig{
			Total:              2,
			TransitionDuration: defaultTransition.String(),
			SwipeThreshold:     50,
			WheelThreshold:     30,
		},
		Requirements: models.RequirementsConfig{
			WindowsMinMajor: 10,
			MacOSMinMajor:   11,
			LinuxMinMajor:   20,
			MinMemoryGB:     2,
		},
		Downloads: models.DownloadLinks{
			Windows: "/downloads/ZooDB-Setup.exe",
			MacOS:   "/downloads/ZooDB.dmg",
			Linux:   "/downloads/ZooDB.AppImage",
		},
	}}
}

// Load 从 YAML 文件加载配置。文件不存在时使用默认值，环境变量始终覆盖文件内容。
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save 把配置写入 YAML 文件。
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		c.DataDir = dir
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.LogLevel = strings.ToLower(level)
	}
	if raw := os.Getenv(EnvReducedMotion); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			c.Slides.ReducedMotion = v
		}
	}
	if backend := os.Getenv(EnvAnalyticsBackend); backend != "" {
		c.Analytics.Backend = strings.ToLower(backend)
	}
}

// TransitionDuration 返回过渡时长，无法解析时回退到 700ms。
func (c *Config) TransitionDuration() time.Duration {
	d, err := time.ParseDuration(c.Slides.TransitionDuration)
	if err != nil || d < 0 {
		return defaultTransition
	}
	return d
}

// Validate 校验配置。
func (c *Config) Validate() error {
	if !contains(ValidBackends, c.Analytics.Backend) {
		return fmt.Errorf("%w: analytics backend %q (valid: %v)", ErrInvalid, c.Analytics.Backend, ValidBackends)
	}
	if !contains(ValidLogLevels, c.LogLevel) {
		return fmt.Errorf("%w: log level %q (valid: %v)", ErrInvalid, c.LogLevel, ValidLogLevels)
	}
	if c.Slides.Total < 1 {
		return fmt.Errorf("%w: slides.total must be at least 1, got %d", ErrInvalid, c.Slides.Total)
	}
	if c.Slides.TransitionDuration != "" {
		if _, err := time.ParseDuration(c.Slides.TransitionDuration); err != nil {
			return fmt.Errorf("%w: slides.transition_duration: %v", ErrInvalid, err)
		}
	}
	if c.Slides.SwipeThreshold < 0 || c.Slides.WheelThreshold < 0 {
		return fmt.Errorf("%w: input thresholds must not be negative", ErrInvalid)
	}
	if c.Requirements.MinMemoryGB < 0 {
		return fmt.Errorf("%w: requirements.min_memory_gb must not be negative", ErrInvalid)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
