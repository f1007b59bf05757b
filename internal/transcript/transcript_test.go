package transcript

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

func TestParse(t *testing.T) {
	input := `{
		"text": "Hola. Si tuviera tiempo, iría al cine.",
		"language": "es",
		"segments": [
			{"id": 0, "text": " Hola. ", "start": 0.0, "end": 1.2},
			{"id": 1, "text": "Si tuviera tiempo, iría al cine.", "start": 1.2, "end": 4.8},
			{"id": 2, "text": "   ", "start": 4.8, "end": 5.0}
		]
	}`

	tr, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tr.Language != "es" {
		t.Errorf("Language = %q", tr.Language)
	}
	if len(tr.Segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(tr.Segments))
	}

	first := tr.Segments[0]
	if first.Number != 1 || first.Text != "Hola." || first.Start != 0 || first.End != 1.2 {
		t.Errorf("first segment = %+v", first)
	}
	if tr.Segments[1].Number != 2 || tr.Segments[1].End != 4.8 {
		t.Errorf("second segment = %+v", tr.Segments[1])
	}
	if tr.Segments[2].Text != "" {
		t.Errorf("blank segment text = %q, want empty", tr.Segments[2].Text)
	}
}

func TestParseDuration(t *testing.T) {
	tr, err := Parse(strings.NewReader(`{"segments":[{"text":"hola","start":2,"duration":1.5}]}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if tr.Segments[0].End != 3.5 {
		t.Errorf("End = %v, want 3.5", tr.Segments[0].End)
	}
}

func TestParseEmptySegments(t *testing.T) {
	tr, err := Parse(strings.NewReader(`{"segments":[]}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(tr.Segments) != 0 {
		t.Errorf("got %d segments", len(tr.Segments))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"not json", `nope`, domain.ErrNoSegmentData},
		{"missing segments", `{"text":"hola"}`, domain.ErrNoSegmentData},
		{"missing text", `{"segments":[{"start":0,"end":1}]}`, domain.ErrNoSegmentData},
		{"missing start", `{"segments":[{"text":"a","end":1}]}`, domain.ErrNoSegmentData},
		{"missing end", `{"segments":[{"text":"a","start":0}]}`, domain.ErrNoSegmentData},
		{"reversed times", `{"segments":[{"text":"a","start":3,"end":1}]}`, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.json")
	if err := os.WriteFile(path, []byte(`{"segments":[{"text":"hola","start":0,"end":1}]}`), 0644); err != nil {
		t.Fatal(err)
	}
	tr, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(tr.Segments) != 1 {
		t.Errorf("got %d segments", len(tr.Segments))
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
