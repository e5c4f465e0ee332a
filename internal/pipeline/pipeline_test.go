package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/heatlog/internal/chart"
	"github.com/luki/heatlog/internal/metrics"
	"github.com/luki/heatlog/internal/sensor"
	"github.com/luki/heatlog/internal/source"
	"github.com/luki/heatlog/internal/store"
)

func testParser() *sensor.Parser {
	p := sensor.NewParser(sensor.DefaultMarker, sensor.DefaultExclude)
	p.Now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local) }
	return p
}

func stdin(lines ...string) source.Source {
	return &source.File{Path: "-", Stdin: strings.NewReader(strings.Join(lines, "\n"))}
}

func run(t *testing.T, lines ...string) (*Summary, *store.DiskStore, *metrics.Metrics) {
	t.Helper()
	ds, err := store.NewDiskStore(t.TempDir(), "temps", false)
	require.NoError(t, err)
	m := metrics.New()
	sum, err := New(testParser(), ds, 20*time.Minute, m, nil).Run(context.Background(), stdin(lines...))
	require.NoError(t, err)
	return sum, ds, m
}

func load(t *testing.T, ds *store.DiskStore, session int) []sensor.Row {
	t.Helper()
	rows, err := store.LoadFile(ds.Location(session))
	require.NoError(t, err)
	return rows
}

func TestRunSingleRecord(t *testing.T) {
	sum, ds, _ := run(t, `Jan 5 10:00:01 host heatmon[1]: [{"A":"sensor1","T":21.5},{"A":"sensor2","T":null}]`)

	require.Len(t, sum.Sessions, 1)
	assert.Equal(t, 2, sum.Rows)
	assert.Equal(t, 1, sum.Missing)

	rows := load(t, ds, 0)
	require.Len(t, rows, 2)
	ts := time.Date(2024, 1, 5, 10, 0, 1, 0, time.Local)
	assert.True(t, rows[0].Time.Equal(ts))
	assert.Equal(t, "sensor1", rows[0].Device)
	assert.Equal(t, 21.5, *rows[0].Temp)
	assert.Equal(t, "sensor2", rows[1].Device)
	assert.Nil(t, rows[1].Temp)
}

func TestRunGapStartsSession(t *testing.T) {
	sum, ds, m := run(t,
		`Jan 5 10:00:00 host heatmon: [{"A":"a","T":1}]`,
		`Jan 5 10:25:00 host heatmon: [{"A":"a","T":2}]`,
	)

	require.Len(t, sum.Sessions, 2)
	assert.Equal(t, 1, sum.Sessions[0].Rows)
	assert.Equal(t, 1, sum.Sessions[1].Rows)
	assert.Len(t, load(t, ds, 0), 1)
	assert.Len(t, load(t, ds, 1), 1)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Sessions))
}

func TestRunErrorLineIgnored(t *testing.T) {
	sum, ds, m := run(t,
		`Jan 5 10:00:00 host heatmon: [{"A":"a","T":1}]`,
		`Jan 5 11:00:00 host heatmon: ERROR [{"A":"a","T":2}]`,
		`Jan 5 10:10:00 host heatmon: [{"A":"a","T":3}]`,
	)

	// The ERROR line must not move the previous timestamp, so no new session.
	require.Len(t, sum.Sessions, 1)
	assert.Len(t, load(t, ds, 0), 2)
	assert.Equal(t, 1, sum.Skipped["not_record"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Skipped.WithLabelValues("not_record")))
}

func TestRunMalformedRecordContinues(t *testing.T) {
	sum, ds, _ := run(t,
		`Jan 5 10:00:00 host heatmon: [{"A":"a","T":1},{"A":"b"}]`,
		`Feb 31 10:00:00 host heatmon: [{"A":"a","T":1}]`,
		`Jan 5 10:00:05 host heatmon: [{"A":"a","T":2}]`,
	)

	assert.Equal(t, 1, sum.Skipped["malformed_record"])
	assert.Equal(t, 1, sum.Skipped["malformed_timestamp"])
	assert.Equal(t, 3, sum.Lines)
	assert.Equal(t, 1, sum.Records)
	assert.Len(t, load(t, ds, 0), 1)
}

func TestRunOverlongLineSkipped(t *testing.T) {
	sum, ds, m := run(t,
		`Jan 5 10:00:00 host heatmon: [{"A":"a","T":1}]`,
		"Jan 5 10:00:01 host kernel: "+strings.Repeat("z", 2<<20),
		`Jan 5 10:00:05 host heatmon: [{"A":"a","T":2}]`,
	)

	assert.Equal(t, 3, sum.Lines)
	assert.Equal(t, 2, sum.Records)
	assert.Equal(t, 1, sum.Skipped["too_long"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Skipped.WithLabelValues("too_long")))
	assert.Len(t, load(t, ds, 0), 2)
}

func TestRunEmptyInputCreatesSessionZero(t *testing.T) {
	sum, ds, _ := run(t, "")

	require.Len(t, sum.Sessions, 1)
	_, err := os.Stat(ds.Location(0))
	require.NoError(t, err)
	assert.Empty(t, load(t, ds, 0))
}

func TestRunBatching(t *testing.T) {
	var lines []string
	for i := 0; i < 7; i++ {
		lines = append(lines, fmt.Sprintf(`Jan 5 10:00:%02d host heatmon: [{"A":"a","T":1},{"A":"b","T":2}]`, i))
	}
	ds, err := store.NewDiskStore(t.TempDir(), "temps", false)
	require.NoError(t, err)

	p := New(testParser(), ds, 20*time.Minute, nil, nil)
	p.BatchSize = 3
	sum, err := p.Run(context.Background(), stdin(lines...))
	require.NoError(t, err)

	assert.Equal(t, 14, sum.Rows)
	rows := load(t, ds, 0)
	require.Len(t, rows, 14)
	assert.Equal(t, "a", rows[12].Device)
	assert.Equal(t, "b", rows[13].Device)
}

type failingSink struct {
	openErr error
}

func (f failingSink) Open(int) error                { return f.openErr }
func (f failingSink) Location(int) string           { return "nowhere" }
func (f failingSink) Name() string                  { return "failing" }
func (f failingSink) Close() error                  { return nil }
func (f failingSink) WriteBatch([]sensor.Row) error { return nil }

func TestRunSinkFailureIsFatal(t *testing.T) {
	boom := errors.New("disk full")
	_, err := New(testParser(), failingSink{openErr: boom}, time.Minute, nil, nil).
		Run(context.Background(), stdin(""))
	assert.ErrorIs(t, err, boom)
}

func TestRunInputFailureIsFatal(t *testing.T) {
	ds, err := store.NewDiskStore(t.TempDir(), "temps", false)
	require.NoError(t, err)
	_, err = New(testParser(), ds, time.Minute, nil, nil).
		Run(context.Background(), source.NewFile(filepath.Join(t.TempDir(), "missing.log")))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	ds, err := store.NewDiskStore(dir, "temps", false)
	require.NoError(t, err)

	sum, err := New(testParser(), ds, 20*time.Minute, nil, nil).Run(context.Background(), stdin(
		`Jan 5 10:00:00 host heatmon: [{"A":"a","T":20},{"A":"b","T":null}]`,
		`Jan 5 10:01:00 host heatmon: [{"A":"a","T":21},{"A":"b","T":30}]`,
		`Jan 5 10:02:00 host heatmon: [{"A":"a","T":22},{"A":"b","T":31}]`,
		`Jan 5 11:00:00 host heatmon: started`,
	))
	require.NoError(t, err)
	require.Len(t, sum.Sessions, 2)

	var shown strings.Builder
	out := Render(sum, RenderOptions{
		Dir:    dir,
		Name:   "temps",
		Charts: true,
		Report: true,
		Show:   &shown,
		Width:  100,
		Plot:   chart.PlotOptions{MaxLegend: 4},
		Load:   store.LoadFile,
	}, nil)

	assert.Equal(t, []string{filepath.Join(dir, "temps_session0.png")}, out.Charts)
	assert.Equal(t, filepath.Join(dir, "temps.html"), out.Report)
	assert.Contains(t, shown.String(), "SESSION 1")

	html, err := os.ReadFile(out.Report)
	require.NoError(t, err)
	assert.Contains(t, string(html), `src="temps_session0.png"`)
	assert.Contains(t, string(html), "Session 1")
}
