package pipeline

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/luki/heatlog/internal/chart"
	"github.com/luki/heatlog/internal/display"
	"github.com/luki/heatlog/internal/history"
	"github.com/luki/heatlog/internal/report"
	"github.com/luki/heatlog/internal/sensor"
)

// RenderOptions selects the outputs produced after the pass.
type RenderOptions struct {
	Dir     string
	Name    string
	Charts  bool // save one PNG per session
	Report  bool // write <name>.html embedding the charts
	Show    io.Writer
	Width   int // terminal width for Show
	Plot    chart.PlotOptions
	Aliases sensor.Aliases
	// Load reads a finished session table back by its location.
	Load func(location string) ([]sensor.Row, error)
}

// Rendered lists the files written by Render.
type Rendered struct {
	Charts []string
	Report string
}

// Render draws the session tables of a finished run. Failures for a single
// session are logged and skipped; the tables themselves are already complete.
func Render(sum *Summary, opts RenderOptions, log *zap.SugaredLogger) Rendered {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	var out Rendered
	if opts.Load == nil || (!opts.Charts && !opts.Report && opts.Show == nil) {
		return out
	}

	var shown []display.Session
	var sections []report.Section
	for _, s := range sum.Sessions {
		rows, err := opts.Load(s.Location)
		if err != nil {
			log.Warnw("cannot load session table", "session", s.Index, "table", s.Location, "error", err)
			continue
		}
		series := history.FromRows(rows)

		sec := report.Section{
			Index:   s.Index,
			Table:   filepath.Base(s.Location),
			Start:   s.Start,
			End:     s.End,
			Rows:    len(rows),
			Devices: report.Stats(series, opts.Aliases),
		}

		if opts.Charts || opts.Report {
			path := filepath.Join(opts.Dir, fmt.Sprintf("%s_session%d.png", opts.Name, s.Index))
			plotOpts := opts.Plot
			plotOpts.Title = fmt.Sprintf("%s session %d", opts.Name, s.Index)
			plotOpts.Label = opts.Aliases.Name
			switch err := chart.SavePNG(series, path, plotOpts); {
			case errors.Is(err, chart.ErrNoData):
				log.Infow("session has no readings, chart skipped", "session", s.Index)
			case err != nil:
				log.Warnw("chart failed", "session", s.Index, "path", path, "error", err)
			default:
				out.Charts = append(out.Charts, path)
				sec.Chart = path
				log.Debugw("chart saved", "session", s.Index, "path", path)
			}
		}

		sections = append(sections, sec)
		shown = append(shown, display.Session{Index: s.Index, Series: series, Table: sec.Table})
	}

	if opts.Show != nil {
		err := display.Render(opts.Show, shown, display.Options{
			Width:   opts.Width,
			Aliases: opts.Aliases,
			Thresh:  opts.Plot.Thresh,
		})
		if err != nil {
			log.Warnw("display failed", "error", err)
		}
	}

	if opts.Report {
		path := filepath.Join(opts.Dir, opts.Name+".html")
		err := report.Write(path, report.Report{
			Title:     opts.Name,
			RunID:     sum.RunID,
			Source:    sum.Source,
			Generated: time.Now(),
			Sessions:  sections,
		})
		if err != nil {
			log.Warnw("report failed", "path", path, "error", err)
		} else {
			out.Report = path
			log.Infow("report written", "path", path)
		}
	}

	return out
}
