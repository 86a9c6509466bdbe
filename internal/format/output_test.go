package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Tags  []string `json:"tags,omitempty"`
	Level int      `json:"level"`
}

func TestWrite_JSONEnvelope(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, map[string]any{"data": sample{ID: "wp1", Name: "Civil", Level: 1}}, "json", false)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := `{"data":{"id":"wp1","name":"Civil","level":1}}` + "\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}

func TestWrite_YAMLUsesJSONNamesAndOrder(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, map[string]any{"data": []sample{{ID: "wp1", Name: "Civil works", Tags: []string{"a"}, Level: 1}}}, "yaml", false)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := strings.Join([]string{
		"data:",
		"  - id: wp1",
		"    name: Civil works",
		"    tags:",
		"      - a",
		"    level: 1",
		"",
	}, "\n")
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, 1, "edn", false); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
