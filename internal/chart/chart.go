// Package chart renders session series: colour-coded terminal sparklines
// with minute ticks and timelines, and PNG line charts.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/heatlog/internal/history"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

const (
	padRune = '╌'
	gapRune = '·'
)

// Thresholds are optional warning levels used for colouring.
type Thresholds struct {
	High    float64
	Crit    float64
	HasHigh bool
	HasCrit bool
}

// NewThresholds treats zero as "not set".
func NewThresholds(high, crit float64) Thresholds {
	return Thresholds{High: high, Crit: crit, HasHigh: high > 0, HasCrit: crit > 0}
}

// TempColor returns the colour for a temperature value given thresholds.
func TempColor(v float64, th Thresholds) lipgloss.Color {
	switch {
	case th.HasCrit && v >= th.Crit:
		return lipgloss.Color("196") // red
	case th.HasHigh && v >= th.High:
		return lipgloss.Color("208") // orange
	case th.HasHigh && v >= th.High*0.85:
		return lipgloss.Color("220") // yellow
	default:
		return lipgloss.Color("78") // soft green
	}
}

// RenderSparkline renders plain values without timestamps.
func RenderSparkline(values []float64, width int, rangeMin, rangeMax float64, th Thresholds) string {
	if width <= 0 {
		return ""
	}
	pts := make([]history.Point, len(values))
	for i, v := range values {
		pts[i] = history.Point{Temp: v}
	}
	return RenderSparklinePoints(pts, width, rangeMin, rangeMax, th)
}

// RenderSparklinePoints renders a sparkline with a subtle pipe at each
// minute boundary. Missing readings are drawn as dots.
func RenderSparklinePoints(points []history.Point, width int, rangeMin, rangeMax float64, th Thresholds) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	if len(points) == 0 {
		return dim.Render(strings.Repeat(string(padRune), width))
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)
	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	for i := 0; i < padLen; i++ {
		sb.WriteString(dim.Render(string(padRune)))
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	gapStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	for i, p := range points {
		switch {
		case isMinuteTick(points, i):
			sb.WriteString(tickStyle.Render("│"))
		case p.Missing:
			sb.WriteString(gapStyle.Render(string(gapRune)))
		default:
			norm := (p.Temp - rangeMin) / span
			norm = math.Max(0, math.Min(1, norm))
			idx := int(norm * 7)
			if idx > 7 {
				idx = 7
			}

			style := lipgloss.NewStyle().Foreground(TempColor(p.Temp, th))
			if th.HasCrit && p.Temp >= th.Crit {
				style = style.Bold(true)
			}
			sb.WriteString(style.Render(string(sparkBlocks[idx])))
		}
	}

	return sb.String()
}

func isMinuteTick(points []history.Point, i int) bool {
	p := points[i]
	if p.Time.IsZero() {
		return false
	}
	if p.Time.Second() == 0 {
		return true
	}
	return i > 0 && !points[i-1].Time.IsZero() && p.Time.Minute() != points[i-1].Time.Minute()
}

// RenderTimeline renders HH:MM labels under the sparkline at minute ticks.
func RenderTimeline(points []history.Point, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	type tick struct {
		pos   int
		label string
	}
	var ticks []tick
	for i, p := range points {
		if isMinuteTick(points, i) {
			ticks = append(ticks, tick{pos: padLen + i, label: p.Time.Format("15:04")})
		}
	}

	lastEnd := -1
	for _, t := range ticks {
		start := t.pos - 2
		if start < 0 {
			start = 0
		}
		end := start + len(t.label)
		if end > width || start <= lastEnd+1 {
			continue
		}
		for j, ch := range t.label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	return lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Render(string(line))
}

// RenderThresholdScale renders a bar showing the current value against
// the thresholds.
func RenderThresholdScale(current, rangeMin, rangeMax float64, th Thresholds, width int) string {
	if width <= 0 {
		return ""
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}
	pos := func(v float64) int {
		return int(float64(width-1) * (v - rangeMin) / span)
	}

	highPos, critPos := -1, -1
	if th.HasHigh && th.High > rangeMin {
		highPos = pos(th.High)
	}
	if th.HasCrit && th.Crit > rangeMin {
		critPos = pos(th.Crit)
	}

	curPos := pos(current)
	if curPos < 0 {
		curPos = 0
	}
	if curPos >= width {
		curPos = width - 1
	}

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch i {
		case curPos:
			style := lipgloss.NewStyle().Foreground(TempColor(current, th)).Bold(true)
			sb.WriteString(style.Render("◆"))
		case critPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("▪"))
		case highPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Render("▪"))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("236")).Render("·"))
		}
	}

	return sb.String()
}

// RenderTempValue renders a temperature with colour coding.
func RenderTempValue(temp float64, th Thresholds) string {
	s := fmt.Sprintf("%5.1f°C", temp)
	style := lipgloss.NewStyle().Foreground(TempColor(temp, th))
	if th.HasCrit && temp >= th.Crit {
		style = style.Bold(true)
	}
	return style.Render(s)
}

// RenderMissing renders the placeholder for a missing reading, padded to
// the width of RenderTempValue.
func RenderMissing() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("   --°C")
}

// Bounds pads a series range for display and widens it to include any
// thresholds. Non-negative series are not padded below zero.
func Bounds(lo, hi float64, th Thresholds) (float64, float64) {
	rangeMin := lo - 5
	if lo >= 0 && rangeMin < 0 {
		rangeMin = 0
	}
	rangeMax := hi + 5
	if th.HasCrit && th.Crit > rangeMax {
		rangeMax = th.Crit + 5
	}
	if th.HasHigh && th.High > rangeMax {
		rangeMax = th.High + 5
	}
	return rangeMin, rangeMax
}
