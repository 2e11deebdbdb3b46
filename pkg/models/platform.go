package models

import "strings"

// Platform 表示站点支持的桌面操作系统家族。
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
	// PlatformUnknown 表示无法识别的环境。
	PlatformUnknown Platform = ""
)

// AllPlatforms 返回按展示顺序排列的全部平台。
func AllPlatforms() []Platform {
	return []Platform{PlatformWindows, PlatformMacOS, PlatformLinux}
}

// Valid 判断平台是否属于受支持的集合。
func (p Platform) Valid() bool {
	switch p {
	case PlatformWindows, PlatformMacOS, PlatformLinux:
		return true
	default:
		return false
	}
}

// DisplayName 返回平台的展示名称。
func (p Platform) DisplayName() string {
	switch p {
	case PlatformWindows:
		return "Windows"
	case PlatformMacOS:
		return "macOS"
	case PlatformLinux:
		return "Linux"
	default:
		return "Unknown"
	}
}

func (p Platform) String() string {
	if p == PlatformUnknown {
		return "unknown"
	}
	return string(p)
}

// ParsePlatform 解析用户输入的平台名称，大小写不敏感，支持常见别名。
func ParsePlatform(input string) (Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "windows", "win", "win32", "win64":
		return PlatformWindows, true
	case "macos", "mac", "osx", "darwin":
		return PlatformMacOS, true
	case "linux", "ubuntu":
		return PlatformLinux, true
	default:
		return PlatformUnknown, false
	}
}
