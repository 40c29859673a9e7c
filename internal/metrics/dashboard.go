package metrics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Dashboard renders a Snapshot for the terminal.
type Dashboard struct {
	styles DashboardStyles
	width  int
}

// DashboardStyles defines the styling for the dashboard.
type DashboardStyles struct {
	Border    lipgloss.Style
	Header    lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
}

// NewDashboard creates a dashboard renderer.
func NewDashboard() *Dashboard {
	return &Dashboard{width: 80, styles: defaultDashboardStyles()}
}

func defaultDashboardStyles() DashboardStyles {
	return DashboardStyles{
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Label:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Value:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")),
		Success:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82")),
		Error:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Highlight: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
	}
}

// SetWidth sets the dashboard width.
func (d *Dashboard) SetWidth(w int) {
	d.width = max(w, 20)
}

// Render returns the bordered multi-line view.
func (d *Dashboard) Render(s Snapshot) string {
	var content strings.Builder

	content.WriteString(d.styles.Header.Render("METRICS"))
	content.WriteString("\n")

	fmt.Fprintf(&content, "%s %s │ %s %s │ %s %s\n",
		d.styles.Label.Render("Turns:"),
		d.styles.Value.Render(fmt.Sprintf("%d", s.Turns)),
		d.styles.Label.Render("Fallbacks:"),
		d.formatFallbackRate(s.FallbackRate()),
		d.styles.Label.Render("Latency:"),
		d.styles.Value.Render(fmt.Sprintf("%.1fms avg", s.AvgLatencyMs())),
	)

	fmt.Fprintf(&content, "%s %s │ %s %s │ %s %s\n",
		d.styles.Label.Render("Memory:"),
		d.styles.Value.Render(fmt.Sprintf("%d written", s.MemoryWrites)),
		d.styles.Label.Render("Failed:"),
		d.formatFailures(s.MemoryFailures),
		d.styles.Label.Render("Reaped:"),
		d.styles.Value.Render(fmt.Sprintf("%d sessions", s.SessionsReaped)),
	)

	fmt.Fprintf(&content, "%s %s\n", d.styles.Label.Render("Emotions:"), d.renderTop(s.ByEmotion, 4))
	fmt.Fprintf(&content, "%s %s\n", d.styles.Label.Render("Categories:"), d.renderTop(s.ByCategory, 4))

	lastEvent := s.LastEvent
	if lastEvent == "" {
		lastEvent = "none"
	}
	fmt.Fprintf(&content, "%s %s",
		d.styles.Label.Render("Last:"),
		d.styles.Value.Render(fmt.Sprintf("%s (%s)", lastEvent, since(s.LastEventTime))),
	)

	return d.styles.Border.Width(d.width - 4).Render(content.String())
}

// RenderCompact returns a single-line summary.
func (d *Dashboard) RenderCompact(s Snapshot) string {
	return fmt.Sprintf("[Metrics] %d turns │ %d fallbacks │ %.1fms avg │ %d/%d memory",
		s.Turns, s.Fallbacks, s.AvgLatencyMs(), s.MemoryWrites, s.MemoryWrites+s.MemoryFailures)
}

func (d *Dashboard) formatFallbackRate(rate float64) string {
	formatted := fmt.Sprintf("%.0f%%", rate*100)
	if rate <= 0.01 {
		return d.styles.Success.Render(formatted)
	} else if rate <= 0.1 {
		return d.styles.Highlight.Render(formatted)
	}
	return d.styles.Error.Render(formatted)
}

func (d *Dashboard) formatFailures(n int) string {
	if n == 0 {
		return d.styles.Success.Render("0")
	}
	return d.styles.Error.Render(fmt.Sprintf("%d", n))
}

// renderTop lists the n highest counts, ties broken by name.
func (d *Dashboard) renderTop(counts map[string]int, n int) string {
	if len(counts) == 0 {
		return d.styles.Value.Render("none")
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = d.styles.Highlight.Render(k) + " " + d.styles.Value.Render(fmt.Sprintf("%d", counts[k]))
	}
	return strings.Join(parts, "  ")
}

func since(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	elapsed := time.Since(t)
	switch {
	case elapsed < time.Second:
		return "now"
	case elapsed < time.Minute:
		return fmt.Sprintf("%.0fs", elapsed.Seconds())
	default:
		return fmt.Sprintf("%.0fm", elapsed.Minutes())
	}
}
