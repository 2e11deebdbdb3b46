package models

// Config 保存 zoodb-landing 的全局配置，对应 ~/.zoodb-landing/config.yaml。
type Config struct {
	DataDir      string             `yaml:"data_dir"`  // 数据目录，默认 ~/.zoodb-landing
	LogLevel     string             `yaml:"log_level"` // debug/info/warn/error
	LogJSON      bool               `yaml:"log_json"`
	Analytics    AnalyticsConfig    `yaml:"analytics"`
	Slides       SlidesConfig       `yaml:"slides"`
	Requirements RequirementsConfig `yaml:"requirements"`
	Downloads    DownloadLinks      `yaml:"downloads"`
}

// AnalyticsConfig 配置下载统计的存储后端。
type AnalyticsConfig struct {
	Backend      string `yaml:"backend"` // file、sqlite 或 memory
	PruneOnWrite bool   `yaml:"prune_on_write"`
}

// SlidesConfig 配置幻灯片导航。
type SlidesConfig struct {
	Total              int     `yaml:"total"`
	TransitionDuration string  `yaml:"transition_duration"` // 例如 700ms
	ReducedMotion      bool    `yaml:"reduced_motion"`
	SwipeThreshold     float64 `yaml:"swipe_threshold"`
	WheelThreshold     float64 `yaml:"wheel_threshold"`
}

// RequirementsConfig 配置各平台的最低系统要求。
type RequirementsConfig struct {
	WindowsMinMajor int     `yaml:"windows_min_major"`
	MacOSMinMajor   int     `yaml:"macos_min_major"`
	LinuxMinMajor   int     `yaml:"linux_min_major"`
	MinMemoryGB     float64 `yaml:"min_memory_gb"`
}

// DownloadLinks 是各平台的静态下载地址。
type DownloadLinks struct {
	Windows string `yaml:"windows"`
	MacOS   string `yaml:"macos"`
	Linux   string `yaml:"linux"`
}

// For 返回指定平台的下载地址。
func (d DownloadLinks) For(p Platform) string {
	switch p {
	case PlatformWindows:
		return d.Windows
	case PlatformMacOS:
		return d.MacOS
	case PlatformLinux:
		return d.Linux
	default:
		return ""
	}
}
