package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gigurra/cwtrainer/cmd/common"
)

// FileName is the event log inside the data directory.
const FileName = "events.jsonl"

// DefaultPath returns ~/.cwtrainer/events.jsonl.
func DefaultPath() string {
	dir := common.DataDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, FileName)
}

// Writer appends events as JSON Lines. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Open appends to the log at path, creating it and its directory if needed.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return &Writer{w: f, closer: f}, nil
}

func (w *Writer) Write(ev Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.Type(), err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.w.Write(line)
	return err
}

func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// Read decodes every event in r. Blank lines are skipped; the first
// malformed line fails the read with its line number.
func Read(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := Unmarshal(line)
		if err != nil {
			return events, fmt.Errorf("line %d: %w", n, err)
		}
		events = append(events, ev)
	}
	return events, scanner.Err()
}

// ReadFile reads the log at path. A missing file is an empty log.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
