package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/liangyou/zoodb-landing/internal/platform"
	"github.com/liangyou/zoodb-landing/pkg/models"
)

type checkOptions struct {
	platform          string
	userAgent         string
	navigatorPlatform string
	memory            float64
	all               bool
	json              bool
}

func (a *App) checkCommand() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check system requirements for the desktop app",
		Long: `Check whether an environment can run the ZooDB desktop app.

Without --user-agent the local machine is inspected. --memory supplies the
memory signal in GB; when it is absent and a user agent is given the memory
check passes, matching browsers that do not report device memory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var memory *float64
			if cmd.Flags().Changed("memory") {
				m := opts.memory
				memory = &m
			}
			return a.handleCheck(cmd.Context(), opts, memory)
		},
	}
	cmd.Flags().StringVar(&opts.platform, "platform", "", "target platform: windows, macos, linux (default: detected)")
	cmd.Flags().StringVar(&opts.userAgent, "user-agent", "", "environment identification string (default: this machine)")
	cmd.Flags().StringVar(&opts.navigatorPlatform, "navigator-platform", "", "navigator platform hint used for detection")
	cmd.Flags().Float64Var(&opts.memory, "memory", 0, "device memory in GB")
	cmd.Flags().BoolVar(&opts.all, "all", false, "check against every platform")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the report as JSON")
	return cmd
}

func (a *App) handleCheck(ctx context.Context, opts *checkOptions, memory *float64) error {
	ua := opts.userAgent
	if ua == "" {
		hostUA, hostMemory := a.checker.HostIdentification()
		ua = hostUA
		if memory == nil {
			memory = hostMemory
		}
	}

	if opts.all {
		return a.checkAll(ctx, ua, memory, opts.json)
	}

	target := platform.DetectPlatform(ua, opts.navigatorPlatform)
	if opts.platform != "" {
		p, ok := models.ParsePlatform(opts.platform)
		if !ok {
			return fmt.Errorf("unknown platform %q (valid: windows, macos, linux)", opts.platform)
		}
		target = p
	}

	report := a.checker.Evaluate(target, ua, memory)
	a.log.Debug("system check evaluated",
		zap.String("platform", string(report.Required)),
		zap.Bool("passed", report.Passed))
	if opts.json {
		if err := a.writeJSON(report); err != nil {
			return err
		}
	} else {
		a.printReport(report)
	}
	if !report.Passed {
		return fmt.Errorf("%w for %s", ErrIncompatible, report.Required.DisplayName())
	}
	return nil
}

// checkAll 并发评估三个平台，按固定顺序输出。
func (a *App) checkAll(ctx context.Context, ua string, memory *float64, asJSON bool) error {
	platforms := models.AllPlatforms()
	reports := make([]platform.Report, len(platforms))

	g, ctx := errgroup.WithContext(ctx)
	for i, p := range platforms {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = a.checker.Evaluate(p, ua, memory)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if asJSON {
		return a.writeJSON(reports)
	}
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(a.out)
		}
		a.printReport(r)
	}
	return nil
}

func (a *App) printReport(r platform.Report) {
	req := a.checker.Requirements()
	fmt.Fprintf(a.out, "%s (requires %s, %s RAM)\n", r.Required.DisplayName(), req.Describe(r.Required), req.DescribeMemory())
	fmt.Fprintf(a.out, "  %s %s: %s\n", mark(r.Platform.Passed), r.Platform.Label, r.Platform.Value)
	fmt.Fprintf(a.out, "  %s %s: %s\n", mark(r.Memory.Passed), r.Memory.Label, r.Memory.Value)
	if r.Passed {
		fmt.Fprintln(a.out, "Result: compatible")
	} else {
		fmt.Fprintln(a.out, "Result: not compatible")
	}
}

func mark(passed bool) string {
	if passed {
		return "✓"
	}
	return "✗"
}

func (a *App) writeJSON(v any) error {
	return encodeJSON(a.out, v)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type detectOptions struct {
	userAgent         string
	navigatorPlatform string
}

func (a *App) detectCommand() *cobra.Command {
	opts := &detectOptions{}
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect the platform and pick the download",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.handleDetect(opts)
		},
	}
	cmd.Flags().StringVar(&opts.userAgent, "user-agent", "", "environment identification string (default: this machine)")
	cmd.Flags().StringVar(&opts.navigatorPlatform, "navigator-platform", "", "navigator platform hint")
	return cmd
}

func (a *App) handleDetect(opts *detectOptions) error {
	ua := opts.userAgent
	if ua == "" {
		ua, _ = a.checker.HostIdentification()
	}
	p := platform.DetectPlatform(ua, opts.navigatorPlatform)
	env := platform.ParseEnvironment(ua)

	fmt.Fprintf(a.out, "Platform:    %s\n", p.DisplayName())
	fmt.Fprintf(a.out, "Environment: %s\n", env.Label())
	if link := a.cfg.Downloads.For(p); link != "" {
		fmt.Fprintf(a.out, "Download:    %s\n", link)
	}
	return nil
}
