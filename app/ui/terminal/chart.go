package terminal

import (
	"fmt"
	"math"
	"strings"

	"moviemate/app/service/interpret"

	"github.com/charmbracelet/lipgloss"
)

const (
	maxBarWidth   = 40
	maxLabelWidth = 24
)

var (
	chartTitleStyle = lipgloss.NewStyle().Bold(true)
	chartBarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	chartNoteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type bar struct {
	label string
	value float64
}

// RenderChart draws the series as horizontal bars. Traces that carry no
// numeric x/y pairs are summarized in a single line.
func RenderChart(chart *interpret.Chart) string {
	if chart == nil {
		return ""
	}

	var sb strings.Builder

	if title := chartTitle(chart.Layout); title != "" {
		sb.WriteString(chartTitleStyle.Render(title))
		sb.WriteString("\n")
	}

	bars := chartBars(chart.Series)
	if len(bars) == 0 {
		kind, _ := chart.Series["type"].(string)
		if kind == "" {
			kind = "unknown"
		}
		sb.WriteString(chartNoteStyle.Render(fmt.Sprintf("[%s chart]", kind)))
		return sb.String()
	}

	labelWidth := 0
	peak := 0.0
	for _, b := range bars {
		labelWidth = max(labelWidth, lipgloss.Width(b.label))
		peak = max(peak, math.Abs(b.value))
	}
	labelWidth = min(labelWidth, maxLabelWidth)

	for i, b := range bars {
		width := 0
		if peak > 0 {
			width = int(math.Round(math.Abs(b.value) / peak * maxBarWidth))
		}

		if i > 0 {
			sb.WriteString("\n")
		}
		label := truncate(b.label, labelWidth)
		sb.WriteString(label + strings.Repeat(" ", labelWidth-lipgloss.Width(label)+1))
		sb.WriteString(chartBarStyle.Render(strings.Repeat("█", width)))
		sb.WriteString(" " + formatValue(b.value))
	}

	return sb.String()
}

func chartTitle(layout map[string]any) string {
	switch title := layout["title"].(type) {
	case string:
		return title
	case map[string]any:
		text, _ := title["text"].(string)
		return text
	default:
		return ""
	}
}

// chartBars pairs labels and values. Horizontal traces carry the values on x.
func chartBars(series map[string]any) []bar {
	labels, _ := series["x"].([]any)
	values, _ := series["y"].([]any)
	if orientation, _ := series["orientation"].(string); orientation == "h" {
		labels, values = values, labels
	}

	n := min(len(labels), len(values))
	bars := make([]bar, 0, n)

	for i := 0; i < n; i++ {
		value, ok := values[i].(float64)
		if !ok {
			continue
		}
		bars = append(bars, bar{label: fmt.Sprint(labels[i]), value: value})
	}

	return bars
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// truncate shortens s to at most n terminal cells.
func truncate(s string, n int) string {
	if lipgloss.Width(s) <= n {
		return s
	}

	suffix := "..."
	if n <= len(suffix) {
		suffix = ""
	}

	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+len(suffix) > n {
		runes = runes[:len(runes)-1]
	}

	return string(runes) + suffix
}
