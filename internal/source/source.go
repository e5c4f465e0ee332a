// Package source yields raw log lines in input order from files, stdin or
// CloudWatch Logs.
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// MaxLineSize bounds a single log line. Longer lines are cut to this many
// bytes and the rest is discarded; a delivered line of exactly MaxLineSize
// bytes has reached the limit.
const MaxLineSize = 1 << 20

// Source streams lines to fn one at a time. Iteration stops at the first
// error returned by fn, a read failure, or context cancellation.
type Source interface {
	Each(ctx context.Context, fn func(line string) error) error
	Name() string
}

// File reads a local log, transparently decompressing .gz and .zst files.
// The path "-" reads stdin.
type File struct {
	Path  string
	Stdin io.Reader // used for "-"; defaults to os.Stdin
}

// NewFile returns a file source for path.
func NewFile(path string) *File {
	return &File{Path: path}
}

func (f *File) Name() string {
	if f.Path == "-" {
		return "stdin"
	}
	return f.Path
}

// Stem returns the input file name without directory and extensions, used
// as the default output name.
func (f *File) Stem() string {
	if f.Path == "-" || f.Path == "" {
		return ""
	}
	base := filepath.Base(f.Path)
	for _, ext := range []string{".gz", ".zst", ".log", ".txt"} {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

func (f *File) Each(ctx context.Context, fn func(line string) error) error {
	r, closeFn, err := f.open()
	if err != nil {
		return err
	}
	defer closeFn()

	return Scan(ctx, r, fn)
}

func (f *File) open() (io.Reader, func(), error) {
	if f.Path == "-" {
		in := f.Stdin
		if in == nil {
			in = os.Stdin
		}
		return in, func() {}, nil
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}

	switch {
	case strings.HasSuffix(f.Path, ".gz"):
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("open gzip input: %w", err)
		}
		return gz, func() { gz.Close(); file.Close() }, nil
	case strings.HasSuffix(f.Path, ".zst"):
		dec, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("open zstd input: %w", err)
		}
		return dec, func() { dec.Close(); file.Close() }, nil
	}
	return file, func() { file.Close() }, nil
}

// Scan feeds each line of r to fn, trimming a trailing carriage return.
// Lines longer than MaxLineSize are truncated rather than failing the read.
func Scan(ctx context.Context, r io.Reader, fn func(line string) error) error {
	br := bufio.NewReaderSize(r, 64*1024)
	buf := make([]byte, 0, 4096)
	for {
		chunk, err := br.ReadSlice('\n')
		if room := MaxLineSize + 1 - len(buf); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
			}
			buf = append(buf, chunk...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil && err != io.EOF {
			return fmt.Errorf("read input: %w", err)
		}
		if err == nil || len(buf) > 0 {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			line := strings.TrimSuffix(string(buf), "\n")
			if len(line) > MaxLineSize {
				line = line[:MaxLineSize]
			}
			if ferr := fn(strings.TrimSuffix(line, "\r")); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		buf = buf[:0]
	}
}
