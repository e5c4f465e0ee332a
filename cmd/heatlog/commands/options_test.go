package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/heatlog/internal/config"
)

func changedSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(name string) bool { return set[name] }
}

func TestApplyOnlyChangedFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Name = "fromfile"

	o := &parseOptions{Cutoff: 2.5, Name: "ignored", Exclude: "", Sink: "postgres"}
	o.apply(cfg, changedSet("cutoff", "exclude"))

	assert.Equal(t, 150*time.Second, cfg.Session.Cutoff)
	assert.Equal(t, "fromfile", cfg.Output.Name)
	assert.Equal(t, "csv", cfg.Output.Sink)
	assert.Equal(t, "", cfg.Parser.ExcludeMarker())
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name  string
		group string
		opts  parseOptions
		args  []string
		ok    bool
	}{
		{name: "file", args: []string{"a.log"}, ok: true},
		{name: "none", ok: false},
		{name: "group", group: "/syslog", ok: true},
		{name: "file and group", group: "/syslog", args: []string{"a.log"}, ok: false},
		{name: "window without group", opts: parseOptions{StartRFC3339: "2024-01-05T00:00:00Z"}, args: []string{"a.log"}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.CloudWatch.Group = tt.group
			err := tt.opts.validate(cfg, tt.args)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, 2, exitCode(err))
		})
	}
}

func TestWindow(t *testing.T) {
	o := &parseOptions{StartRFC3339: "2024-01-05T10:00:00Z", EndRFC3339: "2024-01-05T12:00:00Z"}
	start, end, err := o.window()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, end.Sub(start))

	o.EndRFC3339 = "2024-01-05T09:00:00Z"
	_, _, err = o.window()
	assert.Error(t, err)

	o.StartRFC3339 = "yesterday"
	_, _, err = o.window()
	assert.Error(t, err)

	start, end, err = (&parseOptions{}).window()
	require.NoError(t, err)
	assert.True(t, start.IsZero() && end.IsZero())
}
