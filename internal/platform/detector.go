package platform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/liangyou/zoodb-landing/pkg/models"
)

const (
	// calibrationOffset 是浏览器引擎版本与 macOS 版本之间的经验差值。
	calibrationOffset = 3
	// estimateFloor 是估算 macOS 版本时的下限。
	estimateFloor = 15
	// misattributedMajor 以上的 macOS 主版本号视为误识别的引擎版本。
	misattributedMajor = 20
)

var (
	windowsNTPattern     = regexp.MustCompile(`Windows NT (\d+)\.(\d+)`)
	macOSXPattern        = regexp.MustCompile(`(?i)Mac OS X (\d+)[_.](\d+)(?:[_.](\d+))?`)
	macOSPattern         = regexp.MustCompile(`(?i)macOS\s*(\d+)[._](\d+)`)
	engineVersionPattern = regexp.MustCompile(`Version/(\d+)[._](\d+)`)
	genericMacPattern    = regexp.MustCompile(`(?i)(?:Mac|macOS)\D*(\d+)[._](\d+)`)
	ubuntuPattern        = regexp.MustCompile(`Ubuntu/(\d+)\.(\d+)`)
)

// Environment 是对一次标识字符串解析的结果，不做缓存。
type Environment struct {
	Platform models.Platform
	Major    int
	Minor    int
	Version  string // 展示用的版本串：10.0 为解析值，15.x 为估算值，15+ 为假定值
}

// Label 返回环境的展示文本，用作检查结果的观测值。
func (e Environment) Label() string {
	switch e.Platform {
	case models.PlatformWindows:
		return "Windows " + e.Version
	case models.PlatformMacOS:
		return "macOS " + e.Version
	case models.PlatformLinux:
		if e.Major == 0 {
			return "Linux"
		}
		return fmt.Sprintf("Ubuntu %d.%02d", e.Major, e.Minor)
	default:
		return "Unknown"
	}
}

// ParseEnvironment 按固定顺序解析浏览器标识字符串，首个命中的规则生效。
// 任何输入都不会 panic，无法识别时返回 PlatformUnknown。
// 只有 Mac 标记而没有任何版本号时，版本是假定的下限 15，Version 记为 "15+"
// 以区别于解析出的版本。
func ParseEnvironment(ua string) Environment {
	if m := windowsNTPattern.FindStringSubmatch(ua); m != nil {
		return versioned(models.PlatformWindows, m[1], m[2])
	}

	if m := macOSXPattern.FindStringSubmatch(ua); m != nil {
		return versioned(models.PlatformMacOS, m[1], m[2])
	}
	if m := macOSPattern.FindStringSubmatch(ua); m != nil {
		return versioned(models.PlatformMacOS, m[1], m[2])
	}

	// 引擎版本只能近似推断系统版本，超出校准范围时会误判。
	if m := engineVersionPattern.FindStringSubmatch(ua); m != nil && strings.Contains(ua, "Macintosh") {
		estimated := estimateFromEngine(atoi(m[1]))
		return Environment{
			Platform: models.PlatformMacOS,
			Major:    estimated,
			Minor:    0,
			Version:  fmt.Sprintf("%d.x", estimated),
		}
	}

	if hasMacMarker(ua) {
		if m := genericMacPattern.FindStringSubmatch(ua); m != nil {
			major := atoi(m[1])
			if major > misattributedMajor {
				major = estimateFromEngine(major)
			}
			minor := atoi(m[2])
			return Environment{
				Platform: models.PlatformMacOS,
				Major:    major,
				Minor:    minor,
				Version:  fmt.Sprintf("%d.%d", major, minor),
			}
		}
		return Environment{Platform: models.PlatformMacOS, Major: estimateFloor, Minor: 0, Version: fmt.Sprintf("%d+", estimateFloor)}
	}

	if m := ubuntuPattern.FindStringSubmatch(ua); m != nil {
		return versioned(models.PlatformLinux, m[1], m[2])
	}

	if strings.Contains(ua, "Linux") {
		return Environment{Platform: models.PlatformLinux, Version: "unknown"}
	}

	return Environment{Platform: models.PlatformUnknown, Version: "unknown"}
}

// DetectPlatform 粗略判断当前平台，用于选择首选下载包。
// 与 ParseEnvironment 不同，无法判断时回退到 Windows。
func DetectPlatform(ua, navigatorPlatform string) models.Platform {
	lowerUA := strings.ToLower(ua)
	lowerPlatform := strings.ToLower(navigatorPlatform)

	if strings.Contains(lowerPlatform, "mac") || strings.Contains(lowerUA, "mac") {
		return models.PlatformMacOS
	}
	if strings.Contains(lowerPlatform, "linux") || strings.Contains(lowerUA, "linux") {
		return models.PlatformLinux
	}
	return models.PlatformWindows
}

func versioned(p models.Platform, major, minor string) Environment {
	maj, mnr := atoi(major), atoi(minor)
	return Environment{
		Platform: p,
		Major:    maj,
		Minor:    mnr,
		Version:  fmt.Sprintf("%d.%d", maj, mnr),
	}
}

func estimateFromEngine(engineMajor int) int {
	estimated := engineMajor - calibrationOffset
	if estimated < estimateFloor {
		return estimateFloor
	}
	return estimated
}

func hasMacMarker(ua string) bool {
	return strings.Contains(ua, "Macintosh") ||
		strings.Contains(ua, "Mac OS X") ||
		strings.Contains(ua, "macOS")
}

// atoi 在溢出或非法输入时返回 0。
func atoi(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
