// Package viewer implements the session table browser TUI with time
// scrubbing, session navigation and sparkline windows.
package viewer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/heatlog/internal/chart"
	"github.com/luki/heatlog/internal/display"
	"github.com/luki/heatlog/internal/history"
	"github.com/luki/heatlog/internal/sensor"
	"github.com/luki/heatlog/internal/store"
)

// ErrNoTables is returned when the directory holds no session tables.
var ErrNoTables = errors.New("no session tables found")

// Options configures the viewer.
type Options struct {
	Aliases sensor.Aliases
	Thresh  chart.Thresholds
}

// Run launches the viewer over the session tables of name in dir.
func Run(dir, name string, opts Options) error {
	tables, err := store.ListTables(dir, name)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		return fmt.Errorf("%w in %s", ErrNoTables, dir)
	}

	p := tea.NewProgram(
		initModel(tables, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = p.Run()
	return err
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorClass    = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorCrit     = lipgloss.Color("196")
	colorAccent   = lipgloss.Color("214")
)

// ── Model ────────────────────────────────────────────────────────────

type model struct {
	tables   []store.Table
	tableIdx int
	opts     Options
	rows     int
	series   *history.Store
	cursor   int // index into timeSlots
	scroll   int
	width    int
	height   int
	err      error

	timeSlots []time.Time // unique timestamps, sorted
}

func initModel(tables []store.Table, opts Options) model {
	m := model{tables: tables, opts: opts}
	m.loadTable()
	return m
}

func (m *model) loadTable() {
	rows, err := store.LoadFile(m.tables[m.tableIdx].Path)
	if err != nil {
		m.err = err
		m.series = history.NewStore(0)
		m.timeSlots = nil
		m.rows = 0
		return
	}
	m.err = nil
	m.rows = len(rows)
	m.series = history.FromRows(rows)
	m.timeSlots = timeSlots(rows)
	m.cursor = 0
	if len(m.timeSlots) > 0 {
		m.cursor = len(m.timeSlots) - 1
	}
	m.scroll = 0
}

func timeSlots(rows []sensor.Row) []time.Time {
	seen := make(map[int64]bool)
	var times []time.Time
	for _, r := range rows {
		if !seen[r.Time.Unix()] {
			seen[r.Time.Unix()] = true
			times = append(times, r.Time)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}

// ── Init / Update ────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "left", "h":
			if m.cursor > 0 {
				m.cursor--
			}
		case "right", "l":
			if m.cursor < len(m.timeSlots)-1 {
				m.cursor++
			}
		case "shift+left", "H":
			m.cursor -= 60
			if m.cursor < 0 {
				m.cursor = 0
			}
		case "shift+right", "L":
			m.cursor += 60
			if m.cursor >= len(m.timeSlots) {
				m.cursor = len(m.timeSlots) - 1
			}
		case "home":
			m.cursor = 0
		case "end":
			if len(m.timeSlots) > 0 {
				m.cursor = len(m.timeSlots) - 1
			}

		case "[":
			if m.tableIdx > 0 {
				m.tableIdx--
				m.loadTable()
			}
		case "]":
			if m.tableIdx < len(m.tables)-1 {
				m.tableIdx++
				m.loadTable()
			}

		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// ── View ─────────────────────────────────────────────────────────────

func (m model) View() string {
	if m.width == 0 {
		return "  Loading..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	sections := []string{m.renderTitle(contentWidth)}

	if m.err != nil {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("ERROR: %v", m.err)))
	}

	if len(m.timeSlots) == 0 {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(2, 0).
			Align(lipgloss.Center).
			Width(contentWidth).
			Render("No rows in this session."))
	} else {
		sections = append(sections, m.renderCursorInfo(contentWidth))
		sections = append(sections, m.renderPanels(contentWidth)...)
	}

	sections = append(sections, m.renderFooter(contentWidth))

	lines := strings.Split(lipgloss.JoinVertical(lipgloss.Left, sections...), "\n")
	visibleLines := m.height
	if visibleLines < 5 {
		visibleLines = 5
	}
	maxScroll := len(lines) - visibleLines
	if maxScroll < 0 {
		maxScroll = 0
	}
	start := m.scroll
	if start > maxScroll {
		start = maxScroll
	}
	end := start + visibleLines
	if end > len(lines) {
		end = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}

func (m model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("HEATLOG SESSIONS")

	tb := m.tables[m.tableIdx]
	tableText := lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true).
		Render(fmt.Sprintf("%s #%d", tb.Name, tb.Session))

	nav := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  [ %d/%d ]", m.tableIdx+1, len(m.tables)))

	dataInfo := ""
	if len(m.timeSlots) > 0 {
		first := m.timeSlots[0].Format("Jan _2 15:04:05")
		last := m.timeSlots[len(m.timeSlots)-1].Format("15:04:05")
		dataInfo = lipgloss.NewStyle().
			Foreground(colorDim).
			Render(fmt.Sprintf("  %s - %s  (%d rows, %d devices)",
				first, last, m.rows, m.series.Len()))
	}

	right := tableText + nav + dataInfo

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

func (m model) renderCursorInfo(width int) string {
	if m.cursor < 0 || m.cursor >= len(m.timeSlots) {
		return ""
	}

	ts := lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true).
		Render(m.timeSlots[m.cursor].Format("15:04:05"))

	pos := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(m.timeSlots)))

	barWidth := width - 30
	if barWidth < 10 {
		barWidth = 10
	}

	return lipgloss.NewStyle().
		Padding(0, 1).
		Render("  " + ts + pos + "  " + m.renderScrubber(barWidth))
}

func (m model) renderScrubber(width int) string {
	if len(m.timeSlots) == 0 || width <= 0 {
		return ""
	}

	pos := 0
	if len(m.timeSlots) > 1 {
		pos = m.cursor * (width - 1) / (len(m.timeSlots) - 1)
	}
	if pos >= width {
		pos = width - 1
	}

	var sb strings.Builder
	dimS := lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	curS := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i := 0; i < width; i++ {
		if i == pos {
			sb.WriteString(curS.Render("◆"))
			continue
		}
		slotIdx := 0
		if len(m.timeSlots) > 1 && width > 1 {
			slotIdx = i * (len(m.timeSlots) - 1) / (width - 1)
		}
		if slotIdx > 0 && slotIdx < len(m.timeSlots) &&
			m.timeSlots[slotIdx].Hour() != m.timeSlots[slotIdx-1].Hour() {
			sb.WriteString(tickS.Render("│"))
			continue
		}
		sb.WriteString(dimS.Render("─"))
	}

	return sb.String()
}

func (m model) renderPanels(totalWidth int) []string {
	cursorTime := m.timeSlots[m.cursor]

	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}
	chartWidth := innerWidth - 73
	if chartWidth < 15 {
		chartWidth = 15
	}
	if chartWidth > 140 {
		chartWidth = 140
	}

	labelW := 16
	tempW := 8
	scaleW := 12

	type classGroup struct {
		class   string
		devices []string
	}
	groups := make(map[string]*classGroup)
	var classOrder []string
	for _, device := range m.series.Order {
		class := sensor.Class(device)
		g, ok := groups[class]
		if !ok {
			g = &classGroup{class: class}
			groups[class] = g
			classOrder = append(classOrder, class)
		}
		g.devices = append(g.devices, device)
	}

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")

	var panels []string
	for _, class := range classOrder {
		g := groups[class]

		rows := []string{lipgloss.NewStyle().Bold(true).Foreground(colorClass).Render(g.class)}

		colLabel := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Width(labelW).Render("device")
		colVal := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Width(tempW).Align(lipgloss.Right).Render("value")
		colHist := lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(strings.Repeat(" ", chartWidth/2-3) + "history")
		rows = append(rows, colLabel+" "+colVal+"  "+colHist)
		rows = append(rows, lipgloss.NewStyle().
			Foreground(lipgloss.Color("237")).
			Render(strings.Repeat("─", innerWidth)))

		for _, device := range g.devices {
			buf := m.series.Get(device)

			label := lipgloss.NewStyle().
				Foreground(colorLabel).
				Bold(true).
				Width(labelW).
				Render(display.Truncate(m.opts.Aliases.Name(device), labelW))

			if !buf.HasData() {
				temp := lipgloss.NewStyle().Width(tempW).Align(lipgloss.Right).Render(chart.RenderMissing())
				rows = append(rows, label+" "+temp+dimS.Render(fmt.Sprintf("  no readings, %d missing", buf.Gaps)))
				continue
			}

			rangeMin, rangeMax := chart.Bounds(buf.Min, buf.Peak, m.opts.Thresh)

			value := chart.RenderMissing()
			scale := dimS.Render(strings.Repeat(" ", scaleW))
			if p, ok := buf.At(cursorTime); ok && !p.Missing {
				value = chart.RenderTempValue(p.Temp, m.opts.Thresh)
				scale = chart.RenderThresholdScale(p.Temp, rangeMin, rangeMax, m.opts.Thresh, scaleW)
			}
			temp := lipgloss.NewStyle().Width(tempW).Align(lipgloss.Right).Render(value)

			sparkPts := buildSparkWindow(buf, m.cursor, chartWidth, m.timeSlots)
			spark := chart.RenderSparklinePoints(sparkPts, chartWidth, rangeMin, rangeMax, m.opts.Thresh)

			stats := dimS.Render("avg") + valS.Render(fmt.Sprintf("%5.1f", buf.Avg())) +
				dimS.Render(" lo") + valS.Render(fmt.Sprintf("%5.1f", buf.Min)) +
				dimS.Render(" pk") + valS.Render(fmt.Sprintf("%5.1f", buf.Peak))

			rows = append(rows, label+" "+temp+" "+scale+" "+frameL+spark+frameR+" "+stats)

			timeline := chart.RenderTimeline(sparkPts, chartWidth)
			if strings.TrimSpace(timeline) != "" {
				rows = append(rows, strings.Repeat(" ", labelW+tempW+scaleW+3)+" "+timeline)
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

func (m model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  h/l") + keyS.Render(":scrub") +
		dimS.Render("  H/L") + keyS.Render(":skip 60") +
		dimS.Render("  home/end") + keyS.Render(":jump") +
		dimS.Render("  [/]") + keyS.Render(":session") +
		dimS.Render("  j/k") + keyS.Render(":scroll")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(keys)
}

// ── Helpers ──────────────────────────────────────────────────────────

// buildSparkWindow returns the device's points for the width slots ending
// at the cursor. Slots where the device did not report are left out.
func buildSparkWindow(buf *history.Buffer, cursorIdx, width int, slots []time.Time) []history.Point {
	if buf == nil || len(buf.Points) == 0 || len(slots) == 0 {
		return nil
	}

	byTime := make(map[int64]history.Point, len(buf.Points))
	for _, p := range buf.Points {
		byTime[p.Time.Unix()] = p
	}

	var result []history.Point
	for i := width - 1; i >= 0; i-- {
		slotIdx := cursorIdx - i
		if slotIdx < 0 || slotIdx >= len(slots) {
			continue
		}
		if p, ok := byTime[slots[slotIdx].Unix()]; ok {
			result = append(result, p)
		}
	}
	return result
}
