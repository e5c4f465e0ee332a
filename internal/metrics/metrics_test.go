package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Lines.Add(5)
	m.Records.Inc()
	m.Rows.Add(3)
	m.Missing.Inc()
	m.Skip("not_record")
	m.Skip("not_record")
	m.Skip("malformed_record")
	m.Sessions.Set(2)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.Lines))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Rows))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Skipped.WithLabelValues("not_record")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Skipped.WithLabelValues("malformed_record")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Sessions))
}

func TestIndependentRuns(t *testing.T) {
	a, b := New(), New()
	a.Lines.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Lines))
}

func TestWriteFile(t *testing.T) {
	m := New()
	m.Rows.Add(7)

	path := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, m.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "heatlog_rows_total 7")
}
