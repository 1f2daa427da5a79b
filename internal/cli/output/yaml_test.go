package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestYAMLFormatter_Format(t *testing.T) {
	data := map[string]any{
		"owner": "alice",
		"count": 3,
	}

	var buf bytes.Buffer
	f := &YAMLFormatter{}

	if err := f.Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "owner: alice") {
		t.Errorf("Format() = %q, want it to contain %q", output, "owner: alice")
	}
	if !strings.Contains(output, "count: 3") {
		t.Errorf("Format() = %q, want it to contain %q", output, "count: 3")
	}
}

func TestYAMLFormatter_Format_Slice(t *testing.T) {
	data := []string{"a", "b", "c"}

	var buf bytes.Buffer
	f := &YAMLFormatter{}

	if err := f.Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "- a") {
		t.Errorf("Format() = %q, want it to contain list items", output)
	}
}
