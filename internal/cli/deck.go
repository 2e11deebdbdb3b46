package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/liangyou/zoodb-landing/internal/deck"
	"github.com/liangyou/zoodb-landing/internal/platform"
)

func (a *App) deckCommand() *cobra.Command {
	var reducedMotion bool
	cmd := &cobra.Command{
		Use:     "deck",
		Aliases: []string{"slides"},
		Short:   "Present the landing slides in the terminal",
		Long: `Present the landing slides in the terminal.

Navigate with ←/→ or space, the mouse wheel, or by dragging. Press d to
download, ctrl+k for the command palette, and q to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.deckOptions(reducedMotion || a.cfg.Slides.ReducedMotion)
			if err != nil {
				return err
			}
			return a.runDeck(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&reducedMotion, "reduced-motion", false, "switch slides without transition delay")
	return cmd
}

func (a *App) deckOptions(reducedMotion bool) (deck.Options, error) {
	tracker, err := a.analytics()
	if err != nil {
		return deck.Options{}, err
	}
	tracker.Open()

	ua, memory := a.checker.HostIdentification()
	detected := platform.DetectPlatform(ua, "")
	report := a.checker.Evaluate(detected, ua, memory)
	a.log.Info("starting deck",
		zap.String("platform", string(detected)),
		zap.Bool("compatible", report.Passed),
		zap.Bool("reduced_motion", reducedMotion))

	return deck.Options{
		TotalSlides:        a.cfg.Slides.Total,
		TransitionDuration: a.cfg.TransitionDuration(),
		ReducedMotion:      reducedMotion,
		SwipeThreshold:     a.cfg.Slides.SwipeThreshold,
		WheelThreshold:     a.cfg.Slides.WheelThreshold,
		Platform:           detected,
		Requirements:       a.checker.Requirements(),
		Report:             report,
		Links:              a.cfg.Downloads,
		Tracker:            tracker,
		Logger:             a.log.Named("deck"),
	}, nil
}

// runProgram 在备用屏幕中运行终端演示。
func runProgram(ctx context.Context, opts deck.Options) error {
	m := deck.New(opts)
	defer m.Close()

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run deck: %w", err)
	}
	return nil
}
