package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/raysh454/eddy/internal/logging"
)

func TestWriterLogger_EmitsJSONLines(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := logging.NewWriterLogger("engine", &buf)

	logger.Info("applied", logging.Field{Key: "cursor", Value: 2})

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if entry["level"] != "info" || entry["msg"] != "applied" || entry["component"] != "engine" {
		t.Errorf("unexpected entry: %v", entry)
	}
	fields, _ := entry["fields"].(map[string]any)
	if fields["cursor"] != float64(2) {
		t.Errorf("expected cursor field 2, got %v", fields["cursor"])
	}
}

func TestWriterLogger_WithKeepsFieldsAndComponent(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := logging.NewWriterLogger("root", &buf).
		With(logging.Field{Key: "component", Value: "history"}, logging.Field{Key: "session", Value: "s1"})

	logger.Warn("boundary")

	line := buf.String()
	if !strings.Contains(line, `"component":"history"`) {
		t.Errorf("expected component override, got %s", line)
	}
	if !strings.Contains(line, `"session":"s1"`) {
		t.Errorf("expected persistent session field, got %s", line)
	}
}
