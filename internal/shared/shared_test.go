package shared

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestSetLogLevelString(t *testing.T) {
	tc := []struct {
		name  string
		level string
		want  log.Level
	}{
		{name: "debug", level: "debug", want: log.DebugLevel},
		{name: "warn", level: "warn", want: log.WarnLevel},
		{name: "empty keeps current", level: "", want: log.InfoLevel},
		{name: "unknown keeps current", level: "chatty", want: log.InfoLevel},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLogger(&bytes.Buffer{})
			l.SetLevel(log.InfoLevel)
			SetLogLevelString(l, tt.level)
			if got := l.GetLevel(); got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := WithLogger(NewLogger(&buf), "run", "abc", "entity", "tracks")
	l.Info("fetched")

	out := buf.String()
	if !strings.Contains(out, "run=abc") || !strings.Contains(out, "entity=tracks") {
		t.Errorf("expected child logger fields in output, got %q", out)
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected distinct ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string, got %q", a)
	}
}

func TestMarshalJSON(t *testing.T) {
	data := map[string]int{"inserted": 2}

	compact, err := MarshalJSON(data, false)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if string(compact) != `{"inserted":2}` {
		t.Errorf("unexpected compact output %s", compact)
	}

	pretty, err := MarshalJSON(data, true)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if !strings.Contains(string(pretty), "\n  \"inserted\": 2") {
		t.Errorf("unexpected pretty output %s", pretty)
	}
}
