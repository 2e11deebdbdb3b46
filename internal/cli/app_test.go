package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/liangyou/zoodb-landing/internal/analytics"
	"github.com/liangyou/zoodb-landing/internal/deck"
	"github.com/liangyou/zoodb-landing/internal/platform"
	"github.com/liangyou/zoodb-landing/internal/storage"
	"github.com/liangyou/zoodb-landing/pkg/models"
)

const (
	windowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	macUA     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2_1) AppleWebKit/605.1.15 (KHTML, like Gecko)"
)

const analyticsFile = "zoodb-analytics.json"

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

// hostChecker 使用真实规则，但固定本机标识，避免依赖运行测试的机器。
type hostChecker struct {
	*platform.Checker
	ua     string
	memory *float64
}

func (h hostChecker) HostIdentification() (string, *float64) {
	return h.ua, h.memory
}

func newHostChecker(ua string, memory float64) hostChecker {
	return hostChecker{Checker: platform.NewChecker(platform.DefaultRequirements()), ua: ua, memory: &memory}
}

func newTestApp(t *testing.T, buf *bytes.Buffer, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{
		WithLogger(zaptest.NewLogger(t)),
		WithClock(func() time.Time { return fixedNow }),
		WithChecker(newHostChecker("X11; Ubuntu/22.04; Linux", 8)),
	}, opts...)
	return NewApp(buf, "test", opts...)
}

// baseArgs 指向临时目录中不存在的配置文件，使用默认配置。
func baseArgs(t *testing.T, dataDir string, args ...string) []string {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	return append([]string{"--config", cfg, "--data-dir", dataDir}, args...)
}

func TestCheckCompatible(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	app := newTestApp(t, buf)
	if err := app.Run(baseArgs(t, t.TempDir(), "check", "--user-agent", windowsUA, "--memory", "8")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Windows (requires Windows 10+, 2 GB+ RAM)",
		"✓ Operating System: Windows 10.0",
		"✓ Memory: 8 GB",
		"Result: compatible",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestCheckIncompatibleReturnsError(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	app := newTestApp(t, buf)
	err := app.Run(baseArgs(t, t.TempDir(), "check", "--user-agent", windowsUA, "--memory", "1"))
	if !errors.Is(err, ErrIncompatible) {
		t.Fatalf("Run() error = %v, want ErrIncompatible", err)
	}
	if !strings.Contains(buf.String(), "✗ Memory: 1 GB") {
		t.Errorf("expected failed memory line, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Result: not compatible") {
		t.Errorf("expected not compatible result, got:\n%s", buf.String())
	}
}

func TestCheckPlatformMismatch(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	app := newTestApp(t, buf)
	err := app.Run(baseArgs(t, t.TempDir(), "check", "--user-agent", windowsUA, "--platform", "macos"))
	if !errors.Is(err, ErrIncompatible) {
		t.Fatalf("Run() error = %v, want ErrIncompatible", err)
	}
	if !strings.Contains(err.Error(), "macOS") {
		t.Errorf("error should name the target platform: %v", err)
	}
	// 未提供 --memory 且给出了标识字符串时，内存检查视为通过。
	if !strings.Contains(buf.String(), "✓ Memory: Unknown") {
		t.Errorf("expected unknown memory to pass, got:\n%s", buf.String())
	}
}

func TestCheckUsesHostIdentification(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	app := newTestApp(t, buf)
	if err := app.Run(baseArgs(t, t.TempDir(), "check")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Ubuntu 22.04") {
		t.Errorf("expected host environment in output, got:\n%s", buf.String())
	}
}

func TestCheckUnknownPlatform(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, &bytes.Buffer{})
	err := app.Run(baseArgs(t, t.TempDir(), "check", "--platform", "beos"))
	if err == nil || !strings.Contains(err.Error(), "unknown platform") {
		t.Fatalf("Run() error = %v, want unknown platform", err)
	}
}

func TestCheckAllJSON(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	app := newTestApp(t, buf)
	if err := app.Run(baseArgs(t, t.TempDir(), "check", "--all", "--json", "--user-agent", macUA, "--memory", "4")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var reports []platform.Report
	if err := json.Unmarshal(buf.Bytes(), &reports); err != nil {
		t.Fatalf("decode output: %v\n%s", err, buf.String())
	}
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}
	want := []models.Platform{models.PlatformWindows, models.PlatformMacOS, models.PlatformLinux}
	for i, r := range reports {
		if r.Required != want[i] {
			t.Errorf("reports[%d].Required = %s, want %s", i, r.Required, want[i])
		}
	}
	if !reports[1].Passed {
		t.Errorf("macOS 14 should pass: %+v", reports[1])
	}
	if reports[0].Passed || reports[2].Passed {
		t.Errorf("mismatched platforms should fail: %+v", reports)
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	app := newTestApp(t, buf)
	if err := app.Run(baseArgs(t, t.TempDir(), "detect", "--user-agent", macUA)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	output := buf.String()
	for _, want := range []string{"Platform:    macOS", "Environment: macOS 14.2", "Download:    /downloads/ZooDB-Setup.dmg"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestAnalyticsTrackStatsAndClear(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()

	buf := &bytes.Buffer{}
	if err := newTestApp(t, buf).Run(baseArgs(t, dataDir, "analytics", "track", "linux", "--source", "link")); err != nil {
		t.Fatalf("track error = %v", err)
	}
	if !strings.Contains(buf.String(), "Tracked download") || !strings.Contains(buf.String(), "linux via link") {
		t.Errorf("unexpected track output:\n%s", buf.String())
	}
	if _, err := os.Stat(filepath.Join(dataDir, analyticsFile)); err != nil {
		t.Fatalf("analytics file not written: %v", err)
	}

	buf.Reset()
	if err := newTestApp(t, buf).Run(baseArgs(t, dataDir, "analytics", "stats")); err != nil {
		t.Fatalf("stats error = %v", err)
	}
	output := buf.String()
	for _, want := range []string{"Downloads (last 90 days): 1", "Linux", "100%", "Last download: Linux, Just now"} {
		if !strings.Contains(output, want) {
			t.Errorf("stats output missing %q:\n%s", want, output)
		}
	}

	buf.Reset()
	if err := newTestApp(t, buf).Run(baseArgs(t, dataDir, "analytics", "clear")); err != nil {
		t.Fatalf("clear error = %v", err)
	}

	buf.Reset()
	if err := newTestApp(t, buf).Run(baseArgs(t, dataDir, "analytics", "stats")); err != nil {
		t.Fatalf("stats error = %v", err)
	}
	if !strings.Contains(buf.String(), "Downloads (last 90 days): 0") {
		t.Errorf("expected empty stats after clear:\n%s", buf.String())
	}
	if strings.Contains(buf.String(), "Last download") {
		t.Errorf("no last download expected after clear:\n%s", buf.String())
	}
}

func TestAnalyticsTrackRejectsUnknownPlatform(t *testing.T) {
	t.Parallel()

	err := newTestApp(t, &bytes.Buffer{}).Run(baseArgs(t, t.TempDir(), "analytics", "track", "amiga"))
	if err == nil || !strings.Contains(err.Error(), "unknown platform") {
		t.Fatalf("Run() error = %v, want unknown platform", err)
	}
}

func TestAnalyticsTrackRejectsUnknownSource(t *testing.T) {
	t.Parallel()

	err := newTestApp(t, &bytes.Buffer{}).Run(baseArgs(t, t.TempDir(), "analytics", "track", "windows", "--source", "banner"))
	if !errors.Is(err, analytics.ErrInvalidSource) {
		t.Fatalf("Run() error = %v, want ErrInvalidSource", err)
	}
}

func TestAnalyticsExport(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	if err := newTestApp(t, &bytes.Buffer{}).Run(baseArgs(t, dataDir, "analytics", "track", "windows")); err != nil {
		t.Fatalf("track error = %v", err)
	}

	out := filepath.Join(t.TempDir(), "nested", "export.json")
	buf := &bytes.Buffer{}
	if err := newTestApp(t, buf).Run(baseArgs(t, dataDir, "analytics", "export", "--output", out)); err != nil {
		t.Fatalf("export error = %v", err)
	}
	if !strings.Contains(buf.String(), "Exported 1 downloads") {
		t.Errorf("unexpected export output:\n%s", buf.String())
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var exp analytics.Export
	if err := json.Unmarshal(raw, &exp); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if exp.Stats.TotalDownloads != 1 || exp.Stats.BySource[models.SourceButton] != 1 {
		t.Errorf("unexpected export stats: %+v", exp.Stats)
	}
	if !exp.ExportedAt.Equal(fixedNow) {
		t.Errorf("ExportedAt = %v, want %v", exp.ExportedAt, fixedNow)
	}
}

func TestAnalyticsMemoryBackendFromConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("analytics:\n  backend: memory\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	buf := &bytes.Buffer{}
	app := newTestApp(t, buf)
	if err := app.Run([]string{"--config", cfgPath, "--data-dir", dir, "analytics", "track", "macos"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, analyticsFile)); !os.IsNotExist(err) {
		t.Errorf("memory backend should not write %s", analyticsFile)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("analytics:\n  backend: redis\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	err := newTestApp(t, &bytes.Buffer{}).Run([]string{"--config", cfgPath, "version"})
	if err == nil {
		t.Fatal("expected invalid backend error")
	}
}

func TestDeckBuildsOptions(t *testing.T) {
	t.Parallel()

	var got deck.Options
	runner := func(ctx context.Context, opts deck.Options) error {
		got = opts
		return nil
	}

	dataDir := t.TempDir()
	app := newTestApp(t, &bytes.Buffer{},
		WithChecker(newHostChecker(macUA, 16)),
		WithDeckRunner(runner),
	)
	if err := app.Run(baseArgs(t, dataDir, "deck", "--reduced-motion")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got.Platform != models.PlatformMacOS {
		t.Errorf("Platform = %s, want macos", got.Platform)
	}
	if !got.Report.Passed {
		t.Errorf("expected compatible report: %+v", got.Report)
	}
	if !got.ReducedMotion {
		t.Error("expected reduced motion")
	}
	if got.TotalSlides != 2 || got.TransitionDuration != 700*time.Millisecond {
		t.Errorf("unexpected slide options: total=%d duration=%v", got.TotalSlides, got.TransitionDuration)
	}
	if got.SwipeThreshold != 50 || got.WheelThreshold != 30 {
		t.Errorf("unexpected thresholds: swipe=%v wheel=%v", got.SwipeThreshold, got.WheelThreshold)
	}
	if got.Links.MacOS != "/downloads/ZooDB-Setup.dmg" {
		t.Errorf("Links.MacOS = %q", got.Links.MacOS)
	}
	if got.Tracker == nil {
		t.Fatal("expected tracker")
	}

	// deck 打开统计时记录一次访问。
	store := storage.NewFileStorage(models.Config{DataDir: dataDir})
	data, err := store.Load()
	if err != nil {
		t.Fatalf("load analytics: %v", err)
	}
	if data.VisitCount != 1 {
		t.Errorf("VisitCount = %d, want 1", data.VisitCount)
	}
}

func TestDeckRunnerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("no tty")
	app := newTestApp(t, &bytes.Buffer{},
		WithDeckRunner(func(context.Context, deck.Options) error { return boom }),
	)
	if err := app.Run(baseArgs(t, t.TempDir(), "deck")); !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want %v", err, boom)
	}
	if app.closeStore != nil || app.tracker != nil {
		t.Error("store should be closed after a failed deck run")
	}
}

func TestFailedCommandClosesStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("analytics:\n  backend: sqlite\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	args := []string{"--config", cfgPath, "--data-dir", dir, "analytics", "track", "windows", "--source", "banner"}

	app := newTestApp(t, &bytes.Buffer{})
	if err := app.Run(args); !errors.Is(err, analytics.ErrInvalidSource) {
		t.Fatalf("Run() error = %v, want ErrInvalidSource", err)
	}
	if app.closeStore != nil || app.tracker != nil {
		t.Fatal("store should be closed after a failed command")
	}

	// 同一个 App 再次运行会重新打开存储。
	buf := &bytes.Buffer{}
	app.out = buf
	args[len(args)-1] = "link"
	if err := app.Run(args); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if !strings.Contains(buf.String(), "windows via link") {
		t.Errorf("unexpected track output:\n%s", buf.String())
	}
	if app.closeStore != nil {
		t.Error("store should be closed after a successful command")
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	app := newTestApp(t, buf)
	if err := app.Run(baseArgs(t, t.TempDir(), "version")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(buf.String(), "zoodb-landing version test") {
		t.Errorf("unexpected version output: %q", buf.String())
	}
}
