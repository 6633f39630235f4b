package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogger_Log(t *testing.T) {
	tests := []struct {
		name    string
		level   Level
		message string
		fields  Fields
		err     error
		want    bool // should log
	}{
		{
			name:    "info message",
			level:   LevelInfo,
			message: "source unchanged",
			fields:  Fields{"url": "https://example.com"},
			want:    true,
		},
		{
			name:    "debug below threshold",
			level:   LevelDebug,
			message: "missing heading",
			want:    false,
		},
		{
			name:    "error with err",
			level:   LevelError,
			message: "skipping source",
			err:     errors.New("wait timed out"),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(LevelInfo, &buf)

			l.log(tt.level, tt.message, tt.fields, tt.err)

			logged := buf.Len() > 0
			if logged != tt.want {
				t.Errorf("log() logged = %v, want %v", logged, tt.want)
			}
		})
	}
}

func TestLogger_JSONShape(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelDebug, &buf)

	l.Error("skipping source", Fields{"url": "https://example.com/a", "attempt": 1}, errors.New("boom"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}

	if entry["message"] != "skipping source" {
		t.Errorf("message = %v, want 'skipping source'", entry["message"])
	}
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", entry["level"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v, want boom", entry["error"])
	}
	if _, err := time.Parse(time.RFC3339, entry["timestamp"].(string)); err != nil {
		t.Errorf("timestamp %v is not RFC3339: %v", entry["timestamp"], err)
	}

	fields, ok := entry["fields"].(map[string]interface{})
	if !ok {
		t.Fatalf("fields missing from %q", buf.String())
	}
	if fields["url"] != "https://example.com/a" {
		t.Errorf("fields.url = %v", fields["url"])
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelWarn, &buf)

	l.Info("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("info logged at WARN level: %q", buf.String())
	}

	l.SetLevel(LevelDebug)
	l.Debug("shown", nil)
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("debug not logged after SetLevel: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warn ", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMetrics_Counter(t *testing.T) {
	m := NewMetrics()

	m.IncrCounter("sources.changed")
	m.IncrCounter("sources.changed")
	m.AddCounter("records.extracted", 5)

	snapshot := m.GetSnapshot()

	if snapshot.Counters["sources.changed"] != 2 {
		t.Errorf("sources.changed = %v, want 2", snapshot.Counters["sources.changed"])
	}
	if m.Counter("records.extracted") != 5 {
		t.Errorf("records.extracted = %v, want 5", m.Counter("records.extracted"))
	}
}

func TestMetrics_Timing(t *testing.T) {
	m := NewMetrics()

	m.RecordTiming("source.process", 100*time.Millisecond)
	m.RecordTiming("source.process", 300*time.Millisecond)

	stats, ok := m.GetSnapshot().Timings["source.process"]
	if !ok {
		t.Fatal("timing stats missing")
	}

	if stats.Count != 2 {
		t.Errorf("Count = %d, want 2", stats.Count)
	}
	if stats.Average != (200 * time.Millisecond).String() {
		t.Errorf("Average = %s, want 200ms", stats.Average)
	}
	if stats.Min != (100 * time.Millisecond).String() {
		t.Errorf("Min = %s, want 100ms", stats.Min)
	}
	if stats.Max != (300 * time.Millisecond).String() {
		t.Errorf("Max = %s, want 300ms", stats.Max)
	}
}

func TestMetrics_SnapshotIsCopy(t *testing.T) {
	m := NewMetrics()
	m.IncrCounter("a")

	snap := m.GetSnapshot()
	snap.Counters["a"] = 99

	if m.Counter("a") != 1 {
		t.Errorf("snapshot mutation leaked into metrics: %d", m.Counter("a"))
	}
}
