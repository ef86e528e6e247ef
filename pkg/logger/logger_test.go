package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestCriticalLevelRendered(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, FormatJSON)

	log.Critical("db: unreachable", "attempt", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected json record, got %q: %v", buf.String(), err)
	}
	if record["level"] != "CRITICAL" {
		t.Fatalf("expected CRITICAL level, got %v", record["level"])
	}
}

func TestBusinessErrorSkipsNil(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelDebug, FormatText)

	log.BusinessError("ignored", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	log.BusinessError("approvals.respond: duplicate vote", errors.New("already voted"), "request_id", "r-1")
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "request_id=r-1") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	tests := []struct {
		value string
		env   string
		want  slog.Level
	}{
		{"", "development", slog.LevelDebug},
		{"", "production", slog.LevelInfo},
		{"warning", "production", slog.LevelWarn},
		{"fatal", "production", LevelCritical},
		{"bogus", "production", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.value, tt.env); got != tt.want {
			t.Fatalf("ParseLevel(%q, %q) = %v, want %v", tt.value, tt.env, got, tt.want)
		}
	}

	if ParseFormat(" Pretty ") != FormatPretty {
		t.Fatalf("expected pretty format")
	}
	if ParseFormat("xml") != FormatJSON {
		t.Fatalf("expected json fallback")
	}
}
