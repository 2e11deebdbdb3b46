//go:build windows

package platform

import "golang.org/x/sys/windows"

// hostOSVersion 通过 RtlGetVersion 读取真实版本号，不受应用兼容性清单影响。
func hostOSVersion() (int, int, bool) {
	info := windows.RtlGetVersion()
	if info == nil || info.MajorVersion == 0 {
		return 0, 0, false
	}
	return int(info.MajorVersion), int(info.MinorVersion), true
}
