package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const logText = "Jan 5 10:00:01 host heatmon[1]: [{\"A\":\"s1\",\"T\":21.5}]\r\n" +
	"Jan 5 10:00:02 host kernel: noise\n" +
	"Jan 5 10:00:03 host heatmon[1]: [{\"A\":\"s1\",\"T\":null}]"

func collect(t *testing.T, src Source) []string {
	t.Helper()
	var lines []string
	err := src.Each(context.Background(), func(line string) error {
		lines = append(lines, line)
		return nil
	})
	require.NoError(t, err)
	return lines
}

func TestFilePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temps.log")
	require.NoError(t, os.WriteFile(path, []byte(logText), 0o644))

	lines := collect(t, NewFile(path))
	require.Len(t, lines, 3)
	assert.False(t, strings.HasSuffix(lines[0], "\r"))
	assert.Contains(t, lines[2], "null")
}

func TestFileGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temps.log.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(logText))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	assert.Len(t, collect(t, NewFile(path)), 3)
}

func TestFileZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "temps.log.zst")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = enc.Write([]byte(logText))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	assert.Len(t, collect(t, NewFile(path)), 3)
}

func TestFileStdin(t *testing.T) {
	src := &File{Path: "-", Stdin: strings.NewReader(logText)}
	assert.Equal(t, "stdin", src.Name())
	assert.Len(t, collect(t, src), 3)
}

func TestFileMissing(t *testing.T) {
	err := NewFile(filepath.Join(t.TempDir(), "nope.log")).Each(context.Background(), func(string) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "temps", NewFile("/var/log/temps.log.gz").Stem())
	assert.Equal(t, "heatmon-2024", NewFile("heatmon-2024.txt").Stem())
	assert.Equal(t, "", NewFile("-").Stem())
}

func TestScanStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	n := 0
	err := Scan(context.Background(), strings.NewReader("a\nb\nc\n"), func(string) error {
		n++
		if n == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, n)
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Scan(ctx, strings.NewReader("a\n"), func(string) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanOverlongLine(t *testing.T) {
	long := "Jan 5 10:00:02 host kernel: " + strings.Repeat("x", 2<<20)
	input := "first\n" + long + "\nlast\n\nend"

	var lines []string
	err := Scan(context.Background(), strings.NewReader(input), func(line string) error {
		lines = append(lines, line)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, lines, 5)
	assert.Equal(t, "first", lines[0])
	assert.Len(t, lines[1], MaxLineSize)
	assert.True(t, strings.HasPrefix(lines[1], "Jan 5 10:00:02 host kernel: xxx"))
	assert.Equal(t, []string{"last", "", "end"}, lines[2:])
}

func TestScanLineAtLimit(t *testing.T) {
	exact := strings.Repeat("y", MaxLineSize-1)

	var lines []string
	err := Scan(context.Background(), strings.NewReader(exact+"\r\nnext\n"), func(line string) error {
		lines = append(lines, line)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, exact, lines[0])
	assert.Equal(t, "next", lines[1])
}
