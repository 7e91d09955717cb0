package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Tailer follows one log file. Each Lines call reads only the bytes
// appended since the previous call and keeps the newest maxLines lines.
// A file that shrinks or is replaced, as on rotation, is read again from
// the start.
type Tailer struct {
	path     string
	maxLines int

	mu      sync.Mutex
	info    os.FileInfo
	offset  int64
	lines   []string
	partial string // bytes after the last newline
}

// NewTailer returns a Tailer for path. A non-positive maxLines keeps every
// line.
func NewTailer(path string, maxLines int) *Tailer {
	return &Tailer{path: path, maxLines: maxLines}
}

// Path returns the followed file.
func (t *Tailer) Path() string {
	return t.path
}

// Lines returns the newest lines, oldest first. A trailing line without a
// newline is included. A missing file yields no lines.
func (t *Tailer) Lines() ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	file, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.reset(nil)
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log: %w", err)
	}
	if t.info == nil || !os.SameFile(t.info, info) || info.Size() < t.offset {
		t.reset(info)
	}
	t.info = info

	if info.Size() > t.offset {
		if _, err := file.Seek(t.offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek log: %w", err)
		}
		n, err := t.consume(file)
		t.offset += n
		if err != nil {
			return nil, err
		}
	}
	return t.snapshot(), nil
}

func (t *Tailer) reset(info os.FileInfo) {
	t.info = info
	t.offset = 0
	t.lines = nil
	t.partial = ""
}

func (t *Tailer) consume(r io.Reader) (int64, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var n int64
	for {
		chunk, err := br.ReadString('\n')
		n += int64(len(chunk))
		if strings.HasSuffix(chunk, "\n") {
			t.push(strings.TrimRight(t.partial+chunk, "\r\n"))
			t.partial = ""
		} else {
			t.partial += chunk
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, fmt.Errorf("read log: %w", err)
		}
	}
}

func (t *Tailer) push(line string) {
	t.lines = append(t.lines, line)
	if t.maxLines > 0 && len(t.lines) > t.maxLines {
		t.lines = t.lines[len(t.lines)-t.maxLines:]
	}
}

func (t *Tailer) snapshot() []string {
	out := append([]string(nil), t.lines...)
	if t.partial != "" {
		out = append(out, strings.TrimRight(t.partial, "\r"))
		if t.maxLines > 0 && len(out) > t.maxLines {
			out = out[len(out)-t.maxLines:]
		}
	}
	return out
}

// Read returns at most maxLines from the end of the file at path in one
// pass. A non-positive maxLines returns every line. A missing file yields
// no lines.
func Read(path string, maxLines int) ([]string, error) {
	return NewTailer(path, maxLines).Lines()
}
