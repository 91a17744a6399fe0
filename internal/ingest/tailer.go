// Package ingest feeds the analytics engine from JSONL spool
// files. The chat frontend appends one JSON object per line;
// the tailer consumes appended lines in arrival order and
// applies them to the engine.
//
// Spool line shapes:
//
//	{"type":"turn_start"}
//	{"sender":"user","text":"..."}
//	{"sender":"bot","text":"..."}
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/chatlens/chatlens/internal/analytics"
)

const spoolExt = ".jsonl"

// Tailer tracks a byte offset per spool file so each appended
// event is applied to the engine exactly once per process.
// Offsets only move forward; a shrunken file is treated as
// rotated and read from the start.
type Tailer struct {
	engine *analytics.Engine
	dir    string

	mu      sync.Mutex
	offsets map[string]int64
}

// NewTailer creates a tailer over the spool directory.
func NewTailer(engine *analytics.Engine, dir string) *Tailer {
	return &Tailer{
		engine:  engine,
		dir:     dir,
		offsets: make(map[string]int64),
	}
}

// ScanAll tails every spool file in the directory, returning the
// number of events applied. A missing spool directory is not an
// error; it simply yields no events.
func (t *Tailer) ScanAll() (int, error) {
	entries, err := os.ReadDir(t.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading spool dir: %w", err)
	}

	applied := 0
	for _, entry := range entries {
		if entry.IsDir() ||
			filepath.Ext(entry.Name()) != spoolExt {
			continue
		}
		path := filepath.Join(t.dir, entry.Name())
		n, err := t.tailFile(path)
		if err != nil {
			log.Printf("tailing %s: %v", path, err)
			continue
		}
		applied += n
	}
	return applied, nil
}

// ScanPaths tails only the given files, skipping non-spool
// paths. Used by the watcher callback.
func (t *Tailer) ScanPaths(paths []string) int {
	applied := 0
	for _, path := range paths {
		if filepath.Ext(path) != spoolExt {
			continue
		}
		n, err := t.tailFile(path)
		if err != nil {
			log.Printf("tailing %s: %v", path, err)
			continue
		}
		applied += n
	}
	return applied
}

// tailFile applies all complete lines appended since the last
// scan. A trailing fragment without a newline is left for the
// next scan.
func (t *Tailer) tailFile(path string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}

	offset := t.offsets[path]
	if info.Size() < offset {
		// Shorter than where we left off: rotated file.
		offset = 0
	}
	if info.Size() == offset {
		return 0, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek: %w", err)
	}

	r := bufio.NewReader(f)
	consumed := offset
	applied := 0
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			// Partial line; wait for the rest.
			break
		}
		if err != nil {
			t.offsets[path] = consumed
			return applied, fmt.Errorf("read: %w", err)
		}
		consumed += int64(len(line))
		if t.applyLine(strings.TrimSpace(line)) {
			applied++
		}
	}

	t.offsets[path] = consumed
	return applied, nil
}

// applyLine parses one spool line and applies it to the engine.
// Blank and malformed lines are skipped, not fatal: the spool is
// written by an external frontend we do not control.
func (t *Tailer) applyLine(line string) bool {
	if line == "" {
		return false
	}
	if !gjson.Valid(line) {
		log.Printf("skipping invalid spool line")
		return false
	}

	if gjson.Get(line, "type").Str == "turn_start" {
		t.engine.StartTurn()
		return true
	}

	text := gjson.Get(line, "text").Str
	switch gjson.Get(line, "sender").Str {
	case "user":
		t.engine.RecordUserMessage(text)
		return true
	case "bot":
		t.engine.RecordBotMessage(text)
		return true
	default:
		return false
	}
}
