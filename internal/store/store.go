// Package store persists session tables. DiskStore writes one CSV file per
// session (optionally zstd-compressed); PostgresSink writes one table per
// session.
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/luki/heatlog/internal/sensor"
)

const (
	csvExt  = ".csv"
	zstdExt = ".zst"
)

var sessionFileRe = regexp.MustCompile(`^(.+)_session(\d+)\.csv(\.zst)?$`)

// DiskStore writes session tables as CSV files named
// <dir>/<name>_session<k>.csv with the format:
//
//	datetime,device,temperature
type DiskStore struct {
	dir      string
	name     string
	compress bool

	current *os.File
	enc     *zstd.Encoder
	writer  *csv.Writer
}

// Table is a session table found on disk.
type Table struct {
	Name    string
	Session int
	Path    string
}

// NewDiskStore creates the output directory if needed.
func NewDiskStore(dir, name string, compress bool) (*DiskStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create output dir: %w", err)
	}
	return &DiskStore{dir: dir, name: name, compress: compress}, nil
}

func (d *DiskStore) Name() string { return "csv" }

// Location returns the file path of a session table.
func (d *DiskStore) Location(session int) string {
	file := fmt.Sprintf("%s_session%d%s", d.name, session, csvExt)
	if d.compress {
		file += zstdExt
	}
	return filepath.Join(d.dir, file)
}

// Open finishes the current table and starts a fresh one for session,
// truncating any file left by an earlier run.
func (d *DiskStore) Open(session int) error {
	if err := d.Close(); err != nil {
		return err
	}

	f, err := os.Create(d.Location(session))
	if err != nil {
		return err
	}
	d.current = f

	var w io.Writer = f
	if d.compress {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			d.Close()
			return err
		}
		d.enc = enc
		w = enc
	}

	d.writer = csv.NewWriter(w)
	d.writer.Write(Header)
	d.writer.Flush()
	return d.writer.Error()
}

// WriteBatch appends rows to the open session table.
func (d *DiskStore) WriteBatch(rows []sensor.Row) error {
	if d.writer == nil {
		return ErrNoSession
	}
	for _, r := range rows {
		if err := d.writer.Write(formatRow(r)); err != nil {
			return err
		}
	}
	d.writer.Flush()
	return d.writer.Error()
}

// Close flushes and closes the current file.
func (d *DiskStore) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if d.writer != nil {
		d.writer.Flush()
		keep(d.writer.Error())
		d.writer = nil
	}
	if d.enc != nil {
		keep(d.enc.Close())
		d.enc = nil
	}
	if d.current != nil {
		keep(d.current.Close())
		d.current = nil
	}
	return firstErr
}

// ListTables returns the session tables in dir ordered by name then session.
// An empty name matches every run in the directory.
func ListTables(dir, name string) ([]Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var tables []Table
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := sessionFileRe.FindStringSubmatch(e.Name())
		if m == nil || (name != "" && m[1] != name) {
			continue
		}
		k, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		tables = append(tables, Table{Name: m[1], Session: k, Path: filepath.Join(dir, e.Name())})
	}

	sort.Slice(tables, func(i, j int) bool {
		if tables[i].Name != tables[j].Name {
			return tables[i].Name < tables[j].Name
		}
		return tables[i].Session < tables[j].Session
	})
	return tables, nil
}

// LoadFile reads all rows from a session table. Files ending in .zst are
// decompressed. Rows with an unparseable timestamp are skipped.
func LoadFile(path string) ([]sensor.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, zstdExt) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}

	return ReadRows(r)
}

// ReadRows parses CSV table content.
func ReadRows(r io.Reader) ([]sensor.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var rows []sensor.Row
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == Header[0] {
			continue
		}
		if len(rec) < 3 {
			continue
		}

		t, err := time.ParseInLocation(timeLayout, rec[0], time.Local)
		if err != nil {
			continue
		}

		row := sensor.Row{Time: t, Device: rec[1]}
		if rec[2] != "" {
			v, err := strconv.ParseFloat(rec[2], 64)
			if err != nil {
				continue
			}
			row.Temp = &v
		}
		rows = append(rows, row)
	}

	return rows, nil
}

var _ Sink = (*DiskStore)(nil)
