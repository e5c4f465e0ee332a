package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/luki/heatlog/internal/sensor"
)

// maxRowsPerInsert keeps a single INSERT under the 65535 parameter limit.
const maxRowsPerInsert = 1000

// PostgresSink writes each session into its own table <prefix>_s<k>. Rows
// carry a row_no numbered from 1 per table; ORDER BY row_no gives them back
// in input order.
type PostgresSink struct {
	db     *sql.DB
	prefix string
	table  string
	rowNo  int64
}

// OpenPostgres opens and pings a database handle for the given DSN.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// NewPostgresSink returns a sink writing tables named prefix_s<k>. The
// caller owns db.
func NewPostgresSink(db *sql.DB, prefix string) *PostgresSink {
	return &PostgresSink{db: db, prefix: prefix}
}

func (p *PostgresSink) Name() string { return "postgres" }

// Location returns the table name for a session.
func (p *PostgresSink) Location(session int) string {
	return fmt.Sprintf("%s_s%d", p.prefix, session)
}

// Open creates the session table, emptying it if an earlier run left rows.
func (p *PostgresSink) Open(session int) error {
	table := pq.QuoteIdentifier(p.Location(session))

	create := "CREATE TABLE IF NOT EXISTS " + table +
		" (row_no BIGINT PRIMARY KEY, datetime TIMESTAMP NOT NULL, device TEXT NOT NULL, temperature DOUBLE PRECISION)"
	if _, err := p.db.Exec(create); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	if _, err := p.db.Exec("TRUNCATE " + table); err != nil {
		return fmt.Errorf("truncate table %s: %w", table, err)
	}

	p.table = table
	p.rowNo = 0
	return nil
}

// WriteBatch inserts rows into the open session table. Missing temperatures
// become NULL.
func (p *PostgresSink) WriteBatch(rows []sensor.Row) error {
	if p.table == "" {
		return ErrNoSession
	}
	for len(rows) > 0 {
		n := len(rows)
		if n > maxRowsPerInsert {
			n = maxRowsPerInsert
		}
		if err := p.insert(rows[:n]); err != nil {
			return err
		}
		rows = rows[n:]
	}
	return nil
}

func (p *PostgresSink) insert(rows []sensor.Row) error {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.table)
	b.WriteString(" (row_no, datetime, device, temperature) VALUES ")

	args := make([]any, 0, len(rows)*4)
	rowNo := p.rowNo
	for i, r := range rows {
		if i > 0 {
			b.WriteString(",")
		}
		n := len(args)
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4))

		var temp any
		if r.Temp != nil {
			temp = *r.Temp
		}
		rowNo++
		args = append(args, rowNo, r.Time, r.Device, temp)
	}

	if _, err := p.db.Exec(b.String(), args...); err != nil {
		return err
	}
	p.rowNo = rowNo
	return nil
}

// Close ends the current session table. The database handle stays open.
func (p *PostgresSink) Close() error {
	p.table = ""
	return nil
}

var _ Sink = (*PostgresSink)(nil)
