// Package display prints session overviews to the terminal: one bordered
// panel per device class with a sparkline and stats per device.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/heatlog/internal/chart"
	"github.com/luki/heatlog/internal/history"
	"github.com/luki/heatlog/internal/sensor"
)

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorClass    = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorOk       = lipgloss.Color("78")
	colorWarn     = lipgloss.Color("220")
	colorHigh     = lipgloss.Color("208")
	colorCrit     = lipgloss.Color("196")
)

// Session is what one overview shows.
type Session struct {
	Index  int
	Series *history.Store
	Table  string
}

// Options controls overview rendering.
type Options struct {
	Width   int
	Aliases sensor.Aliases
	Thresh  chart.Thresholds
}

// Render writes an overview of every session followed by a colour legend.
func Render(w io.Writer, sessions []Session, opts Options) error {
	width := opts.Width
	if width < 40 {
		width = 40
	}

	var sections []string
	for _, s := range sessions {
		sections = append(sections, renderTitleBar(s, width))
		if s.Series == nil || s.Series.Len() == 0 {
			sections = append(sections, lipgloss.NewStyle().
				Foreground(colorDim).
				Width(width).
				Align(lipgloss.Center).
				Padding(1, 0).
				Render("No readings in this session."))
			continue
		}
		sections = append(sections, RenderPanels(s.Series, width, opts)...)
	}
	sections = append(sections, renderFooter(width))

	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, sections...))
	return err
}

func renderTitleBar(s Session, width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render(fmt.Sprintf("SESSION %d", s.Index))

	var statusParts []string
	if s.Series != nil && s.Series.Len() > 0 {
		first, last := s.Series.Span()
		statusParts = append(statusParts, lipgloss.NewStyle().
			Foreground(colorDim).
			Render(fmt.Sprintf("%s - %s (%s)", first.Format("Jan _2 15:04:05"), last.Format("15:04:05"), fmtDuration(last.Sub(first)))))
		statusParts = append(statusParts, lipgloss.NewStyle().
			Foreground(colorDim).
			Render(fmt.Sprintf("%d devices", s.Series.Len())))
	}
	if s.Table != "" {
		statusParts = append(statusParts, lipgloss.NewStyle().Foreground(colorDim).Render(s.Table))
	}

	sep := lipgloss.NewStyle().Foreground(colorDim).Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

// RenderPanels draws one panel per device class. Each device row shows the
// last reading, a sparkline of the whole session and min/avg/peak.
func RenderPanels(series *history.Store, totalWidth int, opts Options) []string {
	type classGroup struct {
		class   string
		devices []string
	}
	groups := make(map[string]*classGroup)
	var classOrder []string
	for _, device := range series.Order {
		class := sensor.Class(device)
		g, ok := groups[class]
		if !ok {
			g = &classGroup{class: class}
			groups[class] = g
			classOrder = append(classOrder, class)
		}
		g.devices = append(g.devices, device)
	}

	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}
	chartWidth := innerWidth - 60
	if chartWidth < 15 {
		chartWidth = 15
	}
	if chartWidth > 140 {
		chartWidth = 140
	}

	labelW := 16
	tempW := 8

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var panels []string
	for _, class := range classOrder {
		g := groups[class]

		rows := []string{lipgloss.NewStyle().Bold(true).Foreground(colorClass).Render(g.class)}

		var lastPts []history.Point
		for _, device := range g.devices {
			buf := series.Get(device)

			label := lipgloss.NewStyle().
				Foreground(colorLabel).
				Width(labelW).
				Render(Truncate(opts.Aliases.Name(device), labelW))

			if !buf.HasData() {
				rows = append(rows, label+" "+lipgloss.NewStyle().Width(tempW).Align(lipgloss.Right).Render(chart.RenderMissing())+
					dimS.Render(fmt.Sprintf("  no readings, %d missing", buf.Gaps)))
				continue
			}

			rangeMin, rangeMax := chart.Bounds(buf.Min, buf.Peak, opts.Thresh)

			temp := lipgloss.NewStyle().
				Width(tempW).
				Align(lipgloss.Right).
				Render(chart.RenderTempValue(buf.Last(), opts.Thresh))

			pts := buf.Sample(chartWidth)
			lastPts = pts
			spark := chart.RenderSparklinePoints(pts, chartWidth, rangeMin, rangeMax, opts.Thresh)

			stats := dimS.Render(" avg") + valS.Render(fmt.Sprintf("%5.1f", buf.Avg())) +
				dimS.Render(" lo") + valS.Render(fmt.Sprintf("%5.1f", buf.Min)) +
				dimS.Render(" pk") + valS.Render(fmt.Sprintf("%5.1f", buf.Peak))
			if buf.Gaps > 0 {
				stats += dimS.Render(fmt.Sprintf(" miss %d", buf.Gaps))
			}

			rows = append(rows, label+" "+temp+" "+frameL+spark+frameR+stats)
		}

		if lastPts != nil {
			timeline := chart.RenderTimeline(lastPts, chartWidth)
			if strings.TrimSpace(timeline) != "" {
				rows = append(rows, strings.Repeat(" ", labelW+tempW+2)+" "+timeline)
			}
		}

		panels = append(panels, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			Width(totalWidth).
			Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	}

	return panels
}

func renderFooter(width int) string {
	okS := lipgloss.NewStyle().Foreground(colorOk).Render("██")
	warnS := lipgloss.NewStyle().Foreground(colorWarn).Render("██")
	highS := lipgloss.NewStyle().Foreground(colorHigh).Render("██")
	critS := lipgloss.NewStyle().Foreground(colorCrit).Render("██")
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render("│")
	gapS := lipgloss.NewStyle().Foreground(colorDim).Render("·")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	legend := okS + dimS.Render(" ok ") +
		warnS + dimS.Render(" warm ") +
		highS + dimS.Render(" high ") +
		critS + dimS.Render(" crit ") +
		tickS + dimS.Render(" 1min ") +
		gapS + dimS.Render(" missing")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend)
}

// Truncate shortens s to w cells with an ellipsis.
func Truncate(s string, w int) string {
	if len(s) <= w {
		return s
	}
	if w <= 3 {
		return s[:w]
	}
	return s[:w-1] + "…"
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
