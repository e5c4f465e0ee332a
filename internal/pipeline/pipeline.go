// Package pipeline runs one single-pass transformation of a heatmon log
// into session tables.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luki/heatlog/internal/metrics"
	"github.com/luki/heatlog/internal/sensor"
	"github.com/luki/heatlog/internal/session"
	"github.com/luki/heatlog/internal/source"
	"github.com/luki/heatlog/internal/store"
)

// DefaultBatchSize is how many rows are buffered before a sink write.
const DefaultBatchSize = 500

// Pipeline owns the components of a run.
type Pipeline struct {
	parser    *sensor.Parser
	sink      store.Sink
	cutoff    time.Duration
	metrics   *metrics.Metrics
	log       *zap.SugaredLogger
	BatchSize int
}

// Summary reports what a run produced.
type Summary struct {
	RunID    string
	Source   string
	Lines    int
	Records  int
	Rows     int
	Missing  int
	Skipped  map[string]int
	Sessions []SessionSummary
}

// SessionSummary describes one session table.
type SessionSummary struct {
	Index    int
	Location string
	Rows     int
	Records  int
	Start    time.Time
	End      time.Time
}

// New builds a pipeline. A nil metrics or logger is replaced by a private
// registry or a no-op logger.
func New(parser *sensor.Parser, sink store.Sink, cutoff time.Duration, m *metrics.Metrics, log *zap.SugaredLogger) *Pipeline {
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Pipeline{
		parser:    parser,
		sink:      sink,
		cutoff:    cutoff,
		metrics:   m,
		log:       log,
		BatchSize: DefaultBatchSize,
	}
}

// Run reads src to the end. Session 0's table is created before the first
// line is read. Per-line failures are counted and skipped; input and sink
// failures abort the run.
func (p *Pipeline) Run(ctx context.Context, src source.Source) (*Summary, error) {
	sum := &Summary{
		RunID:   uuid.New().String(),
		Source:  src.Name(),
		Skipped: make(map[string]int),
	}
	log := p.log.With("run", sum.RunID)

	seg := session.New(p.cutoff)
	if err := p.sink.Open(0); err != nil {
		return nil, fmt.Errorf("create session 0 table: %w", err)
	}
	sum.Sessions = append(sum.Sessions, SessionSummary{Index: 0, Location: p.sink.Location(0)})
	log.Infow("session opened", "session", 0, "table", p.sink.Location(0), "sink", p.sink.Name())

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batch := make([]sensor.Row, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.sink.WriteBatch(batch); err != nil {
			return fmt.Errorf("write session %d: %w", seg.Index(), err)
		}
		batch = batch[:0]
		return nil
	}

	lineNo := 0
	err := src.Each(ctx, func(line string) error {
		lineNo++
		sum.Lines++
		p.metrics.Lines.Inc()

		var rec sensor.Record
		var err error
		if len(line) >= source.MaxLineSize {
			err = fmt.Errorf("%w: %d bytes or more", sensor.ErrLineTooLong, len(line))
		} else {
			rec, err = p.parser.Parse(line)
		}
		if err != nil {
			reason := sensor.Reason(err)
			sum.Skipped[reason]++
			p.metrics.Skip(reason)
			if !errors.Is(err, sensor.ErrNotRecord) {
				log.Debugw("line skipped", "error", &sensor.LineError{Line: lineNo, Err: err})
			}
			return nil
		}

		idx, rows, started := seg.Assign(rec)
		if started {
			if err := flush(); err != nil {
				return err
			}
			if err := p.sink.Open(idx); err != nil {
				return fmt.Errorf("create session %d table: %w", idx, err)
			}
			prev := sum.Sessions[len(sum.Sessions)-1]
			log.Infow("session opened", "session", idx, "table", p.sink.Location(idx),
				"gap", rec.Time.Sub(prev.End).String(), "line", lineNo)
			sum.Sessions = append(sum.Sessions, SessionSummary{Index: idx, Location: p.sink.Location(idx)})
		}

		cur := &sum.Sessions[len(sum.Sessions)-1]
		if cur.Records == 0 {
			cur.Start = rec.Time
		}
		cur.End = rec.Time
		cur.Records++
		cur.Rows += len(rows)

		sum.Records++
		sum.Rows += len(rows)
		p.metrics.Records.Inc()
		p.metrics.Rows.Add(float64(len(rows)))
		for _, r := range rows {
			if r.Temp == nil {
				sum.Missing++
				p.metrics.Missing.Inc()
			}
		}

		batch = append(batch, rows...)
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if cerr := p.sink.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close session %d table: %w", seg.Index(), cerr)
	}
	p.metrics.Sessions.Set(float64(len(sum.Sessions)))
	if err != nil {
		return sum, err
	}

	log.Infow("run finished", "lines", sum.Lines, "records", sum.Records, "rows", sum.Rows,
		"sessions", len(sum.Sessions), "skipped", sum.Skipped)
	return sum, nil
}
