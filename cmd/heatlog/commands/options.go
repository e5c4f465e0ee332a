package commands

import (
	"time"

	"github.com/luki/heatlog/internal/config"
)

// parseOptions holds the flag values of the parse command. Flags override
// the config file only when set on the command line.
type parseOptions struct {
	Cutoff      float64 // minutes
	OutDir      string
	Name        string
	Compress    bool
	Sink        string
	DSN         string
	TablePrefix string
	Save        bool
	Show        bool
	Report      bool
	MaxLegend   int
	MetricsFile bool
	Marker      string
	Exclude     string

	CloudWatchGroup string
	Region          string
	Profile         string
	StartRFC3339    string
	EndRFC3339      string
	MessagePath     string
}

// apply copies every changed flag onto cfg.
func (o *parseOptions) apply(cfg *config.Config, changed func(name string) bool) {
	if changed("cutoff") {
		cfg.Session.Cutoff = time.Duration(o.Cutoff * float64(time.Minute))
	}
	if changed("out-dir") {
		cfg.Output.Dir = o.OutDir
	}
	if changed("name") {
		cfg.Output.Name = o.Name
	}
	if changed("compress") {
		cfg.Output.Compress = o.Compress
	}
	if changed("sink") {
		cfg.Output.Sink = o.Sink
	}
	if changed("dsn") {
		cfg.Postgres.ConnString = o.DSN
	}
	if changed("table-prefix") {
		cfg.Postgres.TablePrefix = o.TablePrefix
	}
	if changed("save") {
		cfg.Output.Charts = o.Save
	}
	if changed("report") {
		cfg.Output.Report = o.Report
	}
	if changed("max-legend") {
		cfg.Chart.MaxLegend = o.MaxLegend
	}
	if changed("marker") {
		cfg.Parser.Marker = o.Marker
	}
	if changed("exclude") {
		exclude := o.Exclude
		cfg.Parser.Exclude = &exclude
	}
	if changed("cloudwatch-group") {
		cfg.CloudWatch.Group = o.CloudWatchGroup
	}
	if changed("region") {
		cfg.CloudWatch.Region = o.Region
	}
	if changed("profile") {
		cfg.CloudWatch.Profile = o.Profile
	}
	if changed("message-path") {
		cfg.CloudWatch.MessagePath = o.MessagePath
	}
}

// window parses the --start and --end bounds. Empty values leave that side
// open.
func (o *parseOptions) window() (start, end time.Time, err error) {
	if o.StartRFC3339 != "" {
		if start, err = time.Parse(time.RFC3339, o.StartRFC3339); err != nil {
			return start, end, usagef("invalid --start: %v", err)
		}
	}
	if o.EndRFC3339 != "" {
		if end, err = time.Parse(time.RFC3339, o.EndRFC3339); err != nil {
			return start, end, usagef("invalid --end: %v", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		return start, end, usagef("--end must be after --start")
	}
	return start, end, nil
}

// validate checks the combination of positional input and the final config.
func (o *parseOptions) validate(cfg *config.Config, args []string) error {
	if o.Cutoff < 0 {
		return usagef("--cutoff must be positive, got %g", o.Cutoff)
	}
	switch {
	case len(args) == 0 && cfg.CloudWatch.Group == "":
		return usagef("an input path or --cloudwatch-group is required")
	case len(args) == 1 && cfg.CloudWatch.Group != "":
		return usagef("an input path and --cloudwatch-group are mutually exclusive")
	}
	if cfg.CloudWatch.Group == "" && (o.StartRFC3339 != "" || o.EndRFC3339 != "") {
		return usagef("--start and --end require --cloudwatch-group")
	}
	return cfg.Validate()
}
