package deck

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/liangyou/zoodb-landing/internal/platform"
	"github.com/liangyou/zoodb-landing/pkg/models"
)

var (
	accent = lipgloss.Color("#ffe0c2")
	muted  = lipgloss.Color("#888888")
	pass   = lipgloss.Color("#8BC34A")
	fail   = lipgloss.Color("#e53935")

	tagStyle      = lipgloss.NewStyle().Foreground(muted).Italic(true)
	titleStyle    = lipgloss.NewStyle().Bold(true)
	accentStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(muted)
	passStyle     = lipgloss.NewStyle().Foreground(pass)
	failStyle     = lipgloss.NewStyle().Foreground(fail)
	slideStyle    = lipgloss.NewStyle().Padding(1, 4)
	paletteStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1).Width(48)
	selectedStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
)

var heroStats = []struct{ value, label string }{
	{"26", "Lessons"},
	{"68+", "Tasks"},
	{"3", "Platforms"},
}

var included = []string{
	"Pre-loaded zoo database with realistic data",
	"Instant query feedback & error explanations",
	"No internet required after download",
	"Your progress saved locally, always private",
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.nav.Current() {
	case SlideDownload:
		body = m.downloadView()
	default:
		body = heroView()
	}

	sections := []string{slideStyle.Render(body), m.footerView()}
	if m.palette.IsOpen() {
		sections = append(sections, m.paletteView())
	}
	if m.status != "" {
		sections = append(sections, mutedStyle.Render(m.status))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func heroView() string {
	var b strings.Builder
	b.WriteString(tagStyle.Render("Free & Offline"))
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("Learn SQL ") + accentStyle.Render("interactively."))
	b.WriteString("\n\n")
	b.WriteString("Practice SQL with a real database. 26 lessons, 68+ tasks. No account needed.")
	b.WriteString("\n\n")

	stats := make([]string, 0, len(heroStats))
	for _, s := range heroStats {
		stats = append(stats, lipgloss.JoinVertical(lipgloss.Center,
			accentStyle.Render(s.value), mutedStyle.Render(s.label)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, spaced(stats)...))
	return b.String()
}

func (m *Model) downloadView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Download for ") + accentStyle.Render(m.platform.DisplayName()))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.links.For(m.platform)))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("System Requirements"))
	b.WriteString("  " + mutedStyle.Render(m.requirements.Describe(m.platform)+", "+m.requirements.DescribeMemory()))
	b.WriteString("\n")
	if m.report.Required == m.platform {
		b.WriteString(checkLine(m.report.Platform))
		b.WriteString(checkLine(m.report.Memory))
	} else {
		b.WriteString(mutedStyle.Render("  system check unavailable") + "\n")
	}
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("What's Included"))
	b.WriteString("\n")
	for _, item := range included {
		b.WriteString("  • " + item + "\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Also available for " + strings.Join(otherPlatforms(m.platform), ", ")))
	return b.String()
}

func checkLine(r platform.CheckResult) string {
	mark := passStyle.Render("✓")
	if !r.Passed {
		mark = failStyle.Render("✗")
	}
	return "  " + mark + " " + r.Label + ": " + r.Value + "\n"
}

func (m *Model) footerView() string {
	state := m.nav.Snapshot()
	dots := make([]string, state.Total)
	for i := range dots {
		if i == state.Current {
			dots[i] = accentStyle.Render("●")
		} else {
			dots[i] = mutedStyle.Render("○")
		}
	}
	hint := mutedStyle.Render("←/→ navigate · ctrl+k commands · d download · q quit")
	return "    " + strings.Join(dots, " ") + "   " + hint
}

func (m *Model) paletteView() string {
	var b strings.Builder
	b.WriteString("> " + m.palette.Query())
	if m.palette.Query() == "" {
		b.WriteString(mutedStyle.Render("Type a command or search..."))
	}
	b.WriteString("\n")

	commands := m.palette.Filtered()
	if len(commands) == 0 {
		b.WriteString(mutedStyle.Render("No commands found"))
	}
	selected := m.palette.Selected()
	for i, cmd := range commands {
		line := cmd.Label
		if cmd.Shortcut != "" {
			line += "  " + mutedStyle.Render(cmd.Shortcut)
		}
		if i == selected {
			line = selectedStyle.Render("› ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		if i < len(commands)-1 {
			b.WriteString("\n")
		}
	}
	return paletteStyle.Render(b.String())
}

func otherPlatforms(current models.Platform) []string {
	var out []string
	for _, p := range models.AllPlatforms() {
		if p != current {
			out = append(out, p.DisplayName())
		}
	}
	return out
}

func spaced(items []string) []string {
	out := make([]string, 0, len(items)*2)
	for i, item := range items {
		if i > 0 {
			out = append(out, "    ")
		}
		out = append(out, item)
	}
	return out
}
