package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/liangyou/zoodb-landing/internal/analytics"
	"github.com/liangyou/zoodb-landing/internal/config"
	"github.com/liangyou/zoodb-landing/internal/deck"
	"github.com/liangyou/zoodb-landing/internal/logging"
	"github.com/liangyou/zoodb-landing/internal/platform"
	"github.com/liangyou/zoodb-landing/internal/storage"
	"github.com/liangyou/zoodb-landing/pkg/models"
)

// ErrIncompatible 表示当前环境不满足目标平台的系统要求。
var ErrIncompatible = errors.New("system requirements not met")

// CapabilityService 描述环境能力检测。
type CapabilityService interface {
	Evaluate(required models.Platform, ua string, memory *float64) platform.Report
	HostIdentification() (string, *float64)
	Requirements() platform.Requirements
}

// AnalyticsService 描述下载统计能力。
type AnalyticsService interface {
	Open() models.AnalyticsData
	TrackDownload(models.Platform, models.Source) (models.DownloadEvent, error)
	Stats() models.AggregatedStats
	Clear()
	Export() analytics.Export
	VisitCount() int
	FirstVisit() time.Time
	LastDownload() (models.DownloadEvent, bool)
}

// DeckRunner 运行终端演示，直到用户退出或 ctx 结束。
type DeckRunner func(ctx context.Context, opts deck.Options) error

// Option 用于注入依赖，未注入的依赖按配置构建。
type Option func(*App)

// WithChecker 注入能力检测服务。
func WithChecker(c CapabilityService) Option {
	return func(a *App) { a.checker = c }
}

// WithTracker 注入下载统计服务。
func WithTracker(t AnalyticsService) Option {
	return func(a *App) { a.tracker = t }
}

// WithDeckRunner 替换终端演示的运行方式。
func WithDeckRunner(r DeckRunner) Option {
	return func(a *App) { a.runDeck = r }
}

// WithLogger 注入日志记录器，忽略 --log-level。
func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithClock 替换时间来源。
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// App 负责 CLI 命令解析与分发。
type App struct {
	out     io.Writer
	version string
	now     func() time.Time

	cfgPath  string
	logLevel string
	dataDir  string

	cfg        *config.Config
	log        *zap.Logger
	checker    CapabilityService
	tracker    AnalyticsService
	closeStore func() error
	runDeck    DeckRunner
}

// NewApp 创建 CLI 应用实例。
func NewApp(out io.Writer, version string, opts ...Option) *App {
	if out == nil {
		out = os.Stdout
	}
	a := &App{
		out:     out,
		version: version,
		now:     time.Now,
		runDeck: runProgram,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run 解析参数并执行命令。
func (a *App) Run(args []string) error {
	return a.RunContext(context.Background(), args)
}

// RunContext 与 Run 相同，ctx 结束时终端演示随之退出。
// 无论命令是否出错，返回前都会关闭存储并刷新日志。
func (a *App) RunContext(ctx context.Context, args []string) (err error) {
	defer func() {
		if cerr := a.teardown(); err == nil {
			err = cerr
		}
	}()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.out)
	return root.ExecuteContext(ctx)
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "zoodb-landing",
		Short: "ZooDB landing experience in the terminal",
		Long: `zoodb-landing - ZooDB desktop download companion

Checks whether this machine can run the ZooDB desktop app, records
download analytics locally, and presents the landing slides in the terminal.`,
		Version:           a.version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup() },
	}
	root.SetVersionTemplate("zoodb-landing version {{.Version}}\n")

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default is $HOME/.zoodb-landing/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory for analytics data")

	root.AddCommand(
		a.checkCommand(),
		a.detectCommand(),
		a.analyticsCommand(),
		a.deckCommand(),
		a.versionCommand(),
	)
	return root
}

func (a *App) setup() error {
	path := a.cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if a.log == nil {
		logger, err := logging.New(cfg.LogLevel, cfg.LogJSON)
		if err != nil {
			return err
		}
		a.log = logger
	}
	if a.checker == nil {
		a.checker = platform.NewChecker(platform.RequirementsFromConfig(cfg.Requirements))
	}
	return nil
}

// analytics 按需打开存储，只读命令之外的命令不会创建数据文件。
func (a *App) analytics() (AnalyticsService, error) {
	if a.tracker != nil {
		return a.tracker, nil
	}
	store, err := storage.NewStore(a.cfg.Config)
	if err != nil {
		return nil, err
	}
	a.closeStore = store.Close
	a.tracker = analytics.NewTracker(store,
		analytics.WithLogger(a.log.Named("analytics")),
		analytics.WithClock(a.now),
		analytics.WithPruneOnWrite(a.cfg.Analytics.PruneOnWrite),
	)
	a.log.Debug("analytics store opened", zap.String("backend", a.cfg.Analytics.Backend))
	return a.tracker, nil
}

func (a *App) teardown() error {
	var err error
	if a.closeStore != nil {
		err = a.closeStore()
		a.closeStore = nil
		a.tracker = nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return err
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "zoodb-landing version %s\n", a.version)
		},
	}
}
