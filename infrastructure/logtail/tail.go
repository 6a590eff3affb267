// Package logtail keeps the last lines of the bridge log file in memory
// for the /status endpoint.
package logtail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Tailer watches a log file via fsnotify and retains the last Max lines.
// A missing file is not an error; the tail stays empty until it appears.
type Tailer struct {
	Path string
	Max  int

	mu      sync.RWMutex
	lines   []string
	offset  int64
	partial []byte
}

func New(path string, max int) *Tailer {
	if max <= 0 {
		max = 20
	}
	return &Tailer{Path: path, Max: max}
}

// Start loads the existing tail and follows appends until ctx is done.
func (t *Tailer) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: the file may not exist yet, and rotation
	// replaces the inode.
	dir := filepath.Dir(t.Path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	t.catchUp()

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != t.Path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					t.catchUp()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Lines returns a snapshot of the retained tail, oldest first.
func (t *Tailer) Lines() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

// catchUp reads bytes appended since the last read. Truncation or
// rotation resets the offset.
func (t *Tailer) catchUp() {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.Path)
	if err != nil {
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}
	if info.Size() < t.offset {
		t.offset = 0
		t.partial = nil
	}
	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return
	}
	raw, err := io.ReadAll(f)
	if err != nil && len(raw) == 0 {
		return
	}
	t.offset += int64(len(raw))

	buf := append(t.partial, raw...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(buf[:i], "\r"))
		buf = buf[i+1:]
		if line == "" {
			continue
		}
		t.lines = append(t.lines, line)
		if len(t.lines) > t.Max {
			t.lines = t.lines[len(t.lines)-t.Max:]
		}
	}
	t.partial = append([]byte(nil), buf...)
}
