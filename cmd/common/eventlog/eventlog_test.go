package eventlog

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMarshal_FlatWithType(t *testing.T) {
	id := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "correct",
			ev:   Correct{ID: id, Char: "A", Latency: 120, At: 900},
			want: `{"type":"correct","id":"7d444840-9dc0-11d1-b245-5ffdce74fad2","char":"A","latencyMs":120,"atMs":900}`,
		},
		{
			name: "timeout",
			ev:   Timeout{ID: id, Char: "K", At: 2500},
			want: `{"type":"timeout","id":"7d444840-9dc0-11d1-b245-5ffdce74fad2","char":"K","atMs":2500}`,
		},
		{
			name: "session end",
			ev:   SessionEnd{Epoch: 2, Reason: "completed", Emitted: 3, Correct: 2, Timeouts: 1, At: 60000},
			want: `{"type":"sessionEnd","epoch":2,"reason":"completed","emitted":3,"correct":2,"incorrect":0,"timeouts":1,"atMs":60000}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.ev)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUnmarshal_UnknownType(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"type":"bogus"}`)); err == nil {
		t.Error("Unmarshal() expected error for unknown type")
	}
	if _, err := Unmarshal([]byte(`not json`)); err == nil {
		t.Error("Unmarshal() expected error for invalid JSON")
	}
}

func TestWriterRead(t *testing.T) {
	id := uuid.New()
	events := []Event{
		SessionStart{Epoch: 1, Mode: "practice", WPM: 20, FarnsworthWPM: 10, SpeedTier: "fast", Length: 60000, Alphabet: "KM"},
		Emission{ID: id, Mode: "practice", Char: "K", At: 0},
		Incorrect{ID: id, Char: "K", Pressed: "M", Latency: ToMillis(450 * time.Millisecond), At: 450},
		SessionEnd{Epoch: 2, Reason: "stopped", Emitted: 1, Incorrect: 1, At: 1000},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, ev := range events {
		if err := w.Write(ev); err != nil {
			t.Fatalf("Write(%s) error = %v", ev.Type(), err)
		}
	}
	if n := strings.Count(buf.String(), "\n"); n != len(events) {
		t.Errorf("wrote %d lines, want %d", n, len(events))
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("Read() returned %d events, want %d", len(got), len(events))
	}
	for i := range events {
		if got[i] != events[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], events[i])
		}
	}
	if inc := got[2].(Incorrect); inc.Latency.Duration() != 450*time.Millisecond {
		t.Errorf("latency = %v, want 450ms", inc.Latency.Duration())
	}
}

func TestRead_ReportsBadLine(t *testing.T) {
	input := `{"type":"timeout","char":"E","atMs":1}` + "\n\n" + `{"type":"nope"}` + "\n"
	events, err := Read(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("Read() error = %v, want line 3 failure", err)
	}
	if len(events) != 1 {
		t.Errorf("Read() kept %d events before the bad line, want 1", len(events))
	}
}

func TestOpen_AppendsConcurrently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Write(Timeout{Char: "T", At: Millis(i)})
		}()
	}
	wg.Wait()
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if len(got) != 20 {
		t.Errorf("ReadFile() returned %d events, want 20", len(got))
	}
}

func TestReadFile_Missing(t *testing.T) {
	got, err := ReadFile(filepath.Join(t.TempDir(), "none.jsonl"))
	if err != nil || got != nil {
		t.Errorf("ReadFile(missing) = %v, %v, want nil, nil", got, err)
	}
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CWTRAINER_HOME", dir)
	if got, want := DefaultPath(), filepath.Join(dir, FileName); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}
