package viewer

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/heatlog/internal/chart"
	"github.com/luki/heatlog/internal/history"
	"github.com/luki/heatlog/internal/sensor"
	"github.com/luki/heatlog/internal/store"
)

var base = time.Date(2024, 1, 5, 10, 0, 0, 0, time.Local)

func writeSessions(t *testing.T, dir string) {
	t.Helper()
	ds, err := store.NewDiskStore(dir, "temps", false)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	defer ds.Close()

	ds.Open(0)
	var rows []sensor.Row
	for i := 0; i < 120; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		rows = append(rows, sensor.Row{Time: ts, Device: "cpu0", Temp: sensor.Float(float64(40 + i%6))})
		if i%2 == 0 {
			rows = append(rows, sensor.Row{Time: ts, Device: "sensor1"})
		}
	}
	if err := ds.WriteBatch(rows); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	ds.Open(1)
}

func press(m tea.Model, key string) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	return m
}

func TestModelNavigation(t *testing.T) {
	dir := t.TempDir()
	writeSessions(t, dir)

	tables, err := store.ListTables(dir, "temps")
	if err != nil || len(tables) != 2 {
		t.Fatalf("ListTables: %v (%d tables)", err, len(tables))
	}

	var m tea.Model = initModel(tables, Options{})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})

	vm := m.(model)
	if len(vm.timeSlots) != 120 || vm.cursor != 119 {
		t.Fatalf("slots=%d cursor=%d, want 120/119", len(vm.timeSlots), vm.cursor)
	}

	m = press(m, "h")
	m = press(m, "H")
	if got := m.(model).cursor; got != 58 {
		t.Errorf("cursor after h,H = %d, want 58", got)
	}

	view := m.View()
	for _, want := range []string{"HEATLOG SESSIONS", "temps #0", "CPU", "10:00:58"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m = press(m, "]")
	if got := m.(model).tableIdx; got != 1 {
		t.Fatalf("tableIdx after ] = %d, want 1", got)
	}
	if !strings.Contains(m.View(), "No rows in this session.") {
		t.Error("empty session should say so")
	}

	m = press(m, "]")
	if got := m.(model).tableIdx; got != 1 {
		t.Errorf("tableIdx should stay at last table, got %d", got)
	}
}

func TestPanelsShowThresholdScale(t *testing.T) {
	dir := t.TempDir()
	writeSessions(t, dir)
	tables, err := store.ListTables(dir, "temps")
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}

	m := initModel(tables, Options{Thresh: chart.NewThresholds(43, 45)})
	panels := strings.Join(m.renderPanels(120), "\n")
	if !strings.Contains(panels, "▪") {
		t.Error("panel should mark thresholds on the cursor scale")
	}
	if !strings.Contains(panels, "◆") {
		t.Error("panel should mark the cursor value on the scale")
	}
}

func TestBuildSparkWindow(t *testing.T) {
	buf := history.NewBuffer(0)
	var slots []time.Time
	for i := 0; i < 10; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		slots = append(slots, ts)
		if i != 7 {
			buf.Push(float64(i), ts)
		}
	}

	pts := buildSparkWindow(buf, 8, 4, slots)
	if len(pts) != 3 {
		t.Fatalf("expected 3 points (slot 7 absent), got %d", len(pts))
	}
	if pts[len(pts)-1].Temp != 8 {
		t.Errorf("window should end at the cursor, got %v", pts[len(pts)-1].Temp)
	}
}

func TestRunWithoutTables(t *testing.T) {
	err := Run(t.TempDir(), "temps", Options{})
	if !errors.Is(err, ErrNoTables) {
		t.Errorf("got %v, want ErrNoTables", err)
	}
}
