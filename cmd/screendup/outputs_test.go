package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/breeze-rmm/screendup/pkg/duplication"
	"gopkg.in/yaml.v3"
)

var sampleOutputs = []duplication.OutputInfo{
	{Adapter: 0, Output: 0, Name: `\\.\DISPLAY1`, Width: 1920, Height: 1080, Rotation: duplication.RotationIdentity, Primary: true},
	{Adapter: 0, Output: 1, Name: `\\.\DISPLAY2`, Left: 1920, Width: 1080, Height: 1920, Rotation: duplication.Rotation90, SourceIndex: 1},
}

func TestWriteOutputsText(t *testing.T) {
	var buf bytes.Buffer
	if err := writeOutputs(&buf, "text", sampleOutputs); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got:\n%s", buf.String())
	}
	if !strings.Contains(lines[2], "rotate90") || !strings.Contains(lines[2], "1080x1920") {
		t.Fatalf("unexpected row: %q", lines[2])
	}
}

func TestWriteOutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeOutputs(&buf, "json", sampleOutputs); err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(got) != 2 || got[1]["rotation"] != "rotate90" || got[1]["sourceIndex"] != float64(1) {
		t.Fatalf("unexpected JSON: %v", got)
	}
}

func TestWriteOutputsYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := writeOutputs(&buf, "yaml", sampleOutputs); err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, buf.String())
	}
	if len(got) != 2 || got[0]["primary"] != true || got[0]["rotation"] != "identity" {
		t.Fatalf("unexpected YAML: %v", got)
	}
}

func TestWriteOutputsEmptyJSONIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := writeOutputs(&buf, "json", nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("got %q, want []", buf.String())
	}
}

func TestWriteOutputsUnknownFormat(t *testing.T) {
	if err := writeOutputs(&bytes.Buffer{}, "xml", sampleOutputs); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
