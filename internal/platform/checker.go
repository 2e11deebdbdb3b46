package platform

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/liangyou/zoodb-landing/pkg/models"
)

const (
	labelOS      = "Operating System"
	labelMemory  = "Memory"
	valueUnknown = "Unknown"

	fallbackWindowsID = "Windows NT 10.0"
)

// Requirements 描述各平台的最低版本与内存要求。
type Requirements struct {
	WindowsMinMajor int
	MacOSMinMajor   int
	LinuxMinMajor   int
	MinMemoryGB     float64
}

// DefaultRequirements 返回桌面客户端的默认系统要求：Windows 10+、macOS 11+、Ubuntu 20.04+、2GB 内存。
func DefaultRequirements() Requirements {
	return Requirements{
		WindowsMinMajor: 10,
		MacOSMinMajor:   11,
		LinuxMinMajor:   20,
		MinMemoryGB:     2,
	}
}

// RequirementsFromConfig 合并配置与默认值，未设置（零值）的字段沿用默认值。
func RequirementsFromConfig(cfg models.RequirementsConfig) Requirements {
	req := DefaultRequirements()
	if cfg.WindowsMinMajor > 0 {
		req.WindowsMinMajor = cfg.WindowsMinMajor
	}
	if cfg.MacOSMinMajor > 0 {
		req.MacOSMinMajor = cfg.MacOSMinMajor
	}
	if cfg.LinuxMinMajor > 0 {
		req.LinuxMinMajor = cfg.LinuxMinMajor
	}
	if cfg.MinMemoryGB > 0 {
		req.MinMemoryGB = cfg.MinMemoryGB
	}
	return req
}

// Describe 返回平台要求的展示文本。
func (r Requirements) Describe(p models.Platform) string {
	switch p {
	case models.PlatformWindows:
		return fmt.Sprintf("Windows %d+", r.WindowsMinMajor)
	case models.PlatformMacOS:
		return fmt.Sprintf("macOS %d+", r.MacOSMinMajor)
	case models.PlatformLinux:
		return fmt.Sprintf("Ubuntu %d.04+", r.LinuxMinMajor)
	default:
		return valueUnknown
	}
}

// DescribeMemory 返回内存要求的展示文本。
func (r Requirements) DescribeMemory() string {
	return formatGB(r.MinMemoryGB) + "+"
}

// CheckResult 是单项检查的结果。
type CheckResult struct {
	Passed bool   `json:"passed"`
	Label  string `json:"label"`
	Value  string `json:"value"`
}

// Report 汇总平台与内存两项检查，调用方可以分别展示部分通过的情况。
type Report struct {
	Required models.Platform `json:"required"`
	Platform CheckResult     `json:"platform"`
	Memory   CheckResult     `json:"memory"`
	Passed   bool            `json:"passed"`
}

// Checker 根据 Requirements 校验运行环境。Checker 无共享可变状态，可并发使用。
type Checker struct {
	req Requirements

	goos      func() string
	readFile  func(string) ([]byte, error)
	osVersion func() (major, minor int, ok bool)
}

// NewChecker 创建能力检测器。
func NewChecker(req Requirements) *Checker {
	return &Checker{
		req:      req,
		goos:      func() string { return runtime.GOOS },
		readFile:  os.ReadFile,
		osVersion: hostOSVersion,
	}
}

var defaultChecker = NewChecker(DefaultRequirements())

// Requirements 返回检测器使用的阈值。
func (c *Checker) Requirements() Requirements {
	return c.req
}

// CheckPlatform 校验标识字符串对应的环境是否满足 required 平台的版本要求。
func (c *Checker) CheckPlatform(required models.Platform, ua string) CheckResult {
	env := ParseEnvironment(ua)
	result := CheckResult{Label: labelOS, Value: env.Label()}

	if env.Platform == models.PlatformUnknown || env.Platform != required {
		return result
	}

	switch required {
	case models.PlatformWindows:
		result.Passed = env.Major >= c.req.WindowsMinMajor
	case models.PlatformMacOS:
		result.Passed = env.Major >= c.req.MacOSMinMajor
	case models.PlatformLinux:
		// 无法解析发行版版本时视为兼容。
		result.Passed = env.Major == 0 || env.Major >= c.req.LinuxMinMajor
	}
	return result
}

// CheckMemory 校验内存容量，signal 为 nil 表示环境未提供该信息，此时视为通过。
func (c *Checker) CheckMemory(signal *float64) CheckResult {
	if signal == nil {
		return CheckResult{Passed: true, Label: labelMemory, Value: valueUnknown}
	}
	return CheckResult{
		Passed: *signal >= c.req.MinMemoryGB,
		Label:  labelMemory,
		Value:  formatGB(*signal),
	}
}

// Evaluate 同时执行平台与内存检查。
func (c *Checker) Evaluate(required models.Platform, ua string, signal *float64) Report {
	osResult := c.CheckPlatform(required, ua)
	memResult := c.CheckMemory(signal)
	return Report{
		Required: required,
		Platform: osResult,
		Memory:   memResult,
		Passed:   osResult.Passed && memResult.Passed,
	}
}

// HostIdentification 为本机生成一个可被 ParseEnvironment 识别的标识字符串，
// 以及内存容量信号（无法获取时为 nil）。
func (c *Checker) HostIdentification() (string, *float64) {
	switch c.goos() {
	case "linux":
		ua := "X11; Linux"
		if id, ok := c.ubuntuVersion(); ok {
			ua = "X11; Ubuntu/" + id + "; Linux"
		}
		return ua, c.linuxMemoryGB()
	case "darwin":
		return "Macintosh; Mac OS X", nil
	case "windows":
		if major, minor, ok := c.osVersion(); ok {
			return fmt.Sprintf("Windows NT %d.%d", major, minor), nil
		}
		// 当前工具链只支持 Windows 10 及以上，能运行即至少是 10.0。
		return fallbackWindowsID, nil
	default:
		return c.goos(), nil
	}
}

func (c *Checker) ubuntuVersion() (string, bool) {
	data, err := c.readFile("/etc/os-release")
	if err != nil {
		return "", false
	}
	fields := parseKeyValues(data)
	if !strings.EqualFold(fields["ID"], "ubuntu") {
		return "", false
	}
	version := fields["VERSION_ID"]
	if version == "" {
		return "", false
	}
	return version, true
}

// linuxMemoryGB 读取 /proc/meminfo，按浏览器 deviceMemory 的习惯向下取整到 GB。
func (c *Checker) linuxMemoryGB() *float64 {
	data, err := c.readFile("/proc/meminfo")
	if err != nil {
		return nil
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		parts := strings.Fields(strings.TrimPrefix(line, "MemTotal:"))
		if len(parts) == 0 {
			return nil
		}
		kb, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil
		}
		gb := float64(int64(kb / (1024 * 1024)))
		return &gb
	}
	return nil
}

func parseKeyValues(data []byte) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		fields[key] = strings.Trim(value, `"'`)
	}
	return fields
}

func formatGB(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " GB"
}

// CheckPlatform 使用默认要求执行平台检查。
func CheckPlatform(required models.Platform, ua string) CheckResult {
	return defaultChecker.CheckPlatform(required, ua)
}

// CheckMemory 使用默认要求执行内存检查。
func CheckMemory(signal *float64) CheckResult {
	return defaultChecker.CheckMemory(signal)
}

// Evaluate 使用默认要求执行全部检查。
func Evaluate(required models.Platform, ua string, signal *float64) Report {
	return defaultChecker.Evaluate(required, ua, signal)
}
