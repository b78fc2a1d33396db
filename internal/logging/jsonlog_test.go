package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestLogWritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Error("fetch_failed", map[string]any{"query": "golang", "attempt": 2})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not json: %v (%s)", err, buf.String())
	}
	if line["level"] != "ERROR" || line["msg"] != "fetch_failed" {
		t.Fatalf("unexpected line: %v", line)
	}
	if line["query"] != "golang" || line["attempt"] != float64(2) {
		t.Fatalf("fields missing: %v", line)
	}
}
