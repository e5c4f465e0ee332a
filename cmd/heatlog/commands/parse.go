package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/luki/heatlog/internal/chart"
	"github.com/luki/heatlog/internal/config"
	"github.com/luki/heatlog/internal/logger"
	"github.com/luki/heatlog/internal/metrics"
	"github.com/luki/heatlog/internal/pipeline"
	"github.com/luki/heatlog/internal/sensor"
	"github.com/luki/heatlog/internal/source"
	"github.com/luki/heatlog/internal/store"
)

const defaultName = "heatlog"

func newParseCmd(g *globals) *cobra.Command {
	o := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [input]",
		Short: "Split a heatmon log into session tables",
		Long: `Parse reads a heatmon log (a file, "-" for stdin, or a CloudWatch log group)
and writes one table per session. A session ends when two consecutive records
are more than --cutoff minutes apart.`,
		Example: `  heatlog parse /var/log/syslog --name rack1 --save --report
  zcat syslog.2.gz | heatlog parse - --cutoff 10 --show
  heatlog parse --cloudwatch-group /hosts/syslog --start 2024-01-05T00:00:00Z`,
		Args: maximumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg
			o.apply(cfg, cmd.Flags().Changed)
			if err := o.validate(cfg, args); err != nil {
				return err
			}
			return runParse(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cfg, o, args)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&o.Cutoff, "cutoff", 20, "Gap in minutes that starts a new session")
	f.StringVarP(&o.OutDir, "out-dir", "o", ".", "Directory for tables, charts and the report")
	f.StringVarP(&o.Name, "name", "n", "", "Output name (default: input file stem)")
	f.BoolVar(&o.Compress, "compress", false, "Write zstd-compressed CSV tables")
	f.StringVar(&o.Sink, "sink", "csv", "Table sink: csv or postgres")
	f.StringVar(&o.DSN, "dsn", "", "Postgres connection string for --sink postgres")
	f.StringVar(&o.TablePrefix, "table-prefix", "heatmon", "Postgres table name prefix")
	f.BoolVar(&o.Save, "save", false, "Save one PNG chart per session")
	f.BoolVar(&o.Show, "show", false, "Print session charts to the terminal")
	f.BoolVar(&o.Report, "report", false, "Write an HTML report embedding the charts")
	f.IntVar(&o.MaxLegend, "max-legend", chart.DefaultMaxLegend, "Hide the chart legend above this many devices (0 always hides it)")
	f.BoolVar(&o.MetricsFile, "metrics-file", false, "Write run counters in Prometheus textfile format")
	f.StringVar(&o.Marker, "marker", sensor.DefaultMarker, "Substring every record line must contain")
	f.StringVar(&o.Exclude, "exclude", sensor.DefaultExclude, `Substring that rejects a line ("" disables)`)

	f.StringVar(&o.CloudWatchGroup, "cloudwatch-group", "", "Read events from this CloudWatch log group")
	f.StringVar(&o.Region, "region", "", "AWS region (falls back to AWS defaults)")
	f.StringVar(&o.Profile, "profile", "", "AWS shared config profile")
	f.StringVar(&o.StartRFC3339, "start", "", "Start time RFC3339 (e.g., 2024-01-05T10:00:00Z)")
	f.StringVar(&o.EndRFC3339, "end", "", "End time RFC3339")
	f.StringVar(&o.MessagePath, "message-path", "", "JMESPath selecting the log line from JSON events")

	return cmd
}

func runParse(ctx context.Context, in io.Reader, w io.Writer, cfg *config.Config, o *parseOptions, args []string) error {
	log := logger.Get(ctx)

	src, stem, err := buildSource(ctx, in, cfg, o, args)
	if err != nil {
		return err
	}
	name := cfg.Output.Name
	if name == "" {
		name = stem
	}
	if name == "" {
		name = defaultName
	}

	sink, closeDB, err := buildSink(ctx, cfg, name)
	if err != nil {
		return err
	}
	defer closeDB()

	parser := sensor.NewParser(cfg.Parser.Marker, cfg.Parser.ExcludeMarker())
	m := metrics.New()

	log.Infow("parsing", "source", src.Name(), "sink", sink.Name(), "cutoff", cfg.Session.Cutoff.String())
	sum, err := pipeline.New(parser, sink, cfg.Session.Cutoff, m, log).Run(ctx, src)
	if err != nil {
		return err
	}

	ropts := pipeline.RenderOptions{
		Dir:    cfg.Output.Dir,
		Name:   name,
		Charts: cfg.Output.Charts,
		Report: cfg.Output.Report,
		Plot: chart.PlotOptions{
			MaxLegend: cfg.Chart.MaxLegend,
			Width:     vg.Length(cfg.Chart.WidthIn) * vg.Inch,
			Height:    vg.Length(cfg.Chart.HeightIn) * vg.Inch,
			Thresh:    chart.NewThresholds(cfg.Chart.High, cfg.Chart.Crit),
		},
		Aliases: sensor.Aliases(cfg.Devices.Aliases),
	}
	if o.Show {
		ropts.Show = w
	}
	if cfg.Output.Sink == "csv" {
		ropts.Load = store.LoadFile
	} else if ropts.Charts || ropts.Report || o.Show {
		log.Warnw("charts are only drawn from csv tables, skipping", "sink", cfg.Output.Sink)
	}
	out := pipeline.Render(sum, ropts, log)

	if o.MetricsFile {
		path := filepath.Join(cfg.Output.Dir, name+".prom")
		if err := m.WriteFile(path); err != nil {
			log.Warnw("cannot write metrics file", "path", path, "error", err)
		} else {
			log.Infow("metrics written", "path", path)
		}
	}

	printSummary(w, sum, out)
	return nil
}

// buildSource returns the configured input and the stem used as default
// output name.
func buildSource(ctx context.Context, in io.Reader, cfg *config.Config, o *parseOptions, args []string) (source.Source, string, error) {
	if cfg.CloudWatch.Group == "" {
		f := source.NewFile(args[0])
		f.Stdin = in
		return f, f.Stem(), nil
	}

	start, end, err := o.window()
	if err != nil {
		return nil, "", err
	}
	client, err := source.NewCloudWatchClient(ctx, cfg.CloudWatch.Region, cfg.CloudWatch.Profile)
	if err != nil {
		return nil, "", fmt.Errorf("load AWS config: %w", err)
	}
	cw := source.NewCloudWatch(client, cfg.CloudWatch.Group, start, end)
	cw.Filter = cfg.Parser.Marker
	cw.MessagePath = cfg.CloudWatch.MessagePath

	stem := strings.Trim(strings.ReplaceAll(cfg.CloudWatch.Group, "/", "_"), "_")
	return cw, stem, nil
}

// buildSink opens the configured table sink. The returned func releases the
// database handle, if any.
func buildSink(ctx context.Context, cfg *config.Config, name string) (store.Sink, func(), error) {
	switch cfg.Output.Sink {
	case "csv":
		ds, err := store.NewDiskStore(cfg.Output.Dir, name, cfg.Output.Compress)
		if err != nil {
			return nil, nil, err
		}
		return ds, func() {}, nil
	case "postgres":
		db, err := store.OpenPostgres(ctx, cfg.Postgres.ConnString)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Get(ctx).Warnw("closing database", "error", err)
			}
		}
		return store.NewPostgresSink(db, cfg.Postgres.TablePrefix), closeDB, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", store.ErrUnknownSink, cfg.Output.Sink)
	}
}

func printSummary(w io.Writer, sum *pipeline.Summary, out pipeline.Rendered) {
	fmt.Fprintf(w, "run %s: %d lines, %d records, %d rows (%d missing)\n",
		sum.RunID, sum.Lines, sum.Records, sum.Rows, sum.Missing)

	if len(sum.Skipped) > 0 {
		reasons := make([]string, 0, len(sum.Skipped))
		for r := range sum.Skipped {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		parts := make([]string, len(reasons))
		for i, r := range reasons {
			parts[i] = fmt.Sprintf("%s=%d", r, sum.Skipped[r])
		}
		fmt.Fprintf(w, "skipped: %s\n", strings.Join(parts, " "))
	}

	for _, s := range sum.Sessions {
		span := "empty"
		if s.Records > 0 {
			span = s.Start.Format("Jan _2 15:04:05") + " - " + s.End.Format("Jan _2 15:04:05")
		}
		fmt.Fprintf(w, "session %d: %d rows  %s  %s\n", s.Index, s.Rows, span, s.Location)
	}
	for _, c := range out.Charts {
		fmt.Fprintf(w, "chart: %s\n", c)
	}
	if out.Report != "" {
		fmt.Fprintf(w, "report: %s\n", out.Report)
	}
}
