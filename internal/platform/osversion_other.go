//go:build !windows

package platform

func hostOSVersion() (int, int, bool) {
	return 0, 0, false
}
