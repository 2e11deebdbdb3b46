// Package deck 在终端中呈现落地页幻灯片，把键盘、滚轮、拖拽输入交给幻灯片导航器处理。
package deck

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/liangyou/zoodb-landing/internal/palette"
	"github.com/liangyou/zoodb-landing/internal/platform"
	"github.com/liangyou/zoodb-landing/internal/slides"
	"github.com/liangyou/zoodb-landing/pkg/models"
)

const (
	SlideHero = iota
	SlideDownload
)

const (
	// cellWidth 把终端列换算成与滑动阈值同一量纲的距离。
	cellWidth = 8.0
	// wheelNotch 是单次终端滚轮事件折算的幅度，足以越过默认滚轮阈值。
	wheelNotch = 40.0
	// settleSlack 保证重绘发生在锁存清除之后。
	settleSlack = 20 * time.Millisecond
)

// DownloadTracker 记录下载事件。
type DownloadTracker interface {
	TrackDownload(models.Platform, models.Source) (models.DownloadEvent, error)
}

// Options 是终端演示的构造参数。
type Options struct {
	TotalSlides        int
	TransitionDuration time.Duration
	ReducedMotion      bool
	SwipeThreshold     float64
	WheelThreshold     float64

	Platform     models.Platform
	Requirements platform.Requirements
	Report       platform.Report
	Links        models.DownloadLinks
	Tracker      DownloadTracker
	Logger       *zap.Logger
}

type settledMsg struct{}

// Model 是 bubbletea 模型。
type Model struct {
	nav     *slides.Navigator
	ctrl    *slides.Controller
	palette *palette.Palette
	log     *zap.Logger

	platform     models.Platform
	requirements platform.Requirements
	report       platform.Report
	links        models.DownloadLinks
	tracker      DownloadTracker

	width    int
	height   int
	status   string
	quitting bool
}

// New 创建终端演示模型。
func New(o Options) *Model {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	total := o.TotalSlides
	if total <= 0 {
		total = 2
	}
	if !o.Platform.Valid() {
		o.Platform = models.PlatformWindows
	}
	if o.Requirements == (platform.Requirements{}) {
		o.Requirements = platform.DefaultRequirements()
	}

	m := &Model{
		log:          log,
		platform:     o.Platform,
		requirements: o.Requirements,
		report:       o.Report,
		links:        o.Links,
		tracker:      o.Tracker,
	}

	reduced := o.ReducedMotion
	m.nav = slides.NewNavigator(
		slides.Options{TotalSlides: total, TransitionDuration: o.TransitionDuration},
		slides.WithReducedMotion(func() bool { return reduced }),
		slides.WithLogger(log.Named("slides")),
	)
	m.palette = palette.New(m.commands(), palette.WithLogger(log.Named("palette")))
	m.ctrl = slides.NewController(m.nav,
		slides.WithSwipeThreshold(o.SwipeThreshold),
		slides.WithWheelThreshold(o.WheelThreshold),
		slides.WithModalSignal(m.palette.IsOpen),
		slides.WithControllerLogger(log.Named("input")),
	)
	return m
}

func (m *Model) commands() []palette.Command {
	return []palette.Command{
		{
			ID:       "download",
			Label:    "Download for " + m.platform.DisplayName(),
			Shortcut: "D",
			Action:   func() error { return m.download(models.SourceCommand) },
		},
		{
			ID:       "next",
			Label:    "Next slide",
			Shortcut: "→",
			Action:   func() error { m.nav.Next(); return nil },
		},
		{
			ID:       "prev",
			Label:    "Previous slide",
			Shortcut: "←",
			Action:   func() error { m.nav.Prev(); return nil },
		},
		{
			ID:     "goto-download",
			Label:  "Go to download",
			Action: func() error { m.nav.GoTo(SlideDownload); return nil },
		},
		{
			ID:       "quit",
			Label:    "Quit",
			Shortcut: "Q",
			Action:   func() error { m.quitting = true; return nil },
		},
	}
}

// Navigator 返回底层导航器。
func (m *Model) Navigator() *slides.Navigator {
	return m.nav
}

// Palette 返回命令面板。
func (m *Model) Palette() *palette.Palette {
	return m.palette
}

// Status 返回最近一条状态信息。
func (m *Model) Status() string {
	return m.status
}

// Close 释放导航器的挂起回调。
func (m *Model) Close() {
	m.nav.Close()
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case settledMsg:
		return m, nil
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	case tea.MouseMsg:
		return m, m.handleMouse(msg)
	}
	return m, nil
}

func (m *Model) handleKey(key string) tea.Cmd {
	if key == "ctrl+c" {
		return m.quit()
	}
	if palette.IsShortcut(key) {
		m.palette.Toggle()
		return nil
	}

	if m.palette.IsOpen() {
		pending := m.nav.IsTransitioning()
		if _, err := m.palette.HandleKey(key); err != nil {
			m.status = err.Error()
			m.log.Warn("palette command failed", zap.Error(err))
		}
		if m.quitting {
			return m.quit()
		}
		if !pending && m.nav.IsTransitioning() {
			return m.settleCmd()
		}
		return nil
	}

	switch key {
	case "q", "esc":
		return m.quit()
	case "d":
		if err := m.download(models.SourceButton); err != nil {
			m.status = err.Error()
		}
		return nil
	}

	if m.ctrl.HandleKey(key) {
		return m.settleCmd()
	}
	return nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	event := tea.MouseEvent(msg)
	if event.IsWheel() {
		var dx, dy float64
		switch event.Button {
		case tea.MouseButtonWheelDown:
			dy = wheelNotch
		case tea.MouseButtonWheelUp:
			dy = -wheelNotch
		case tea.MouseButtonWheelRight:
			dx = wheelNotch
		case tea.MouseButtonWheelLeft:
			dx = -wheelNotch
		}
		if m.ctrl.HandleWheel(dx, dy) {
			return m.settleCmd()
		}
		return nil
	}

	switch event.Action {
	case tea.MouseActionPress:
		if event.Button == tea.MouseButtonLeft {
			m.ctrl.SwipeStart(float64(event.X) * cellWidth)
		}
	case tea.MouseActionRelease:
		if m.ctrl.SwipeEnd(float64(event.X) * cellWidth) {
			return m.settleCmd()
		}
	}
	return nil
}

func (m *Model) download(source models.Source) error {
	link := m.links.For(m.platform)
	m.status = fmt.Sprintf("Downloading ZooDB for %s: %s", m.platform.DisplayName(), link)
	if m.tracker == nil {
		return nil
	}
	if _, err := m.tracker.TrackDownload(m.platform, source); err != nil {
		return fmt.Errorf("deck: track download: %w", err)
	}
	return nil
}

// settleCmd 在过渡结束后触发一次重绘。
func (m *Model) settleCmd() tea.Cmd {
	d := m.nav.Duration()
	if d <= 0 {
		return nil
	}
	return tea.Tick(d+settleSlack, func(time.Time) tea.Msg { return settledMsg{} })
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	m.nav.Close()
	return tea.Quit
}
