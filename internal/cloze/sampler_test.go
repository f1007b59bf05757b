package cloze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/felixgeelhaar/comprende/internal/annotate"
	"github.com/felixgeelhaar/comprende/internal/domain"
)

// scriptedAnnotator fails for texts containing "FAIL" and otherwise
// delegates to the lexicon
type scriptedAnnotator struct {
	lex   *annotate.Lexicon
	calls atomic.Int32
}

func (a *scriptedAnnotator) Name() string { return "scripted" }

func (a *scriptedAnnotator) Annotate(ctx context.Context, text string) ([]domain.Token, error) {
	a.calls.Add(1)
	if strings.Contains(text, "FAIL") {
		return nil, errors.New("model crashed")
	}
	return a.lex.Annotate(ctx, text)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSampler(t *testing.T, ratio float64, workers int) (*Sampler, *scriptedAnnotator) {
	t.Helper()
	ann := &scriptedAnnotator{lex: annotate.NewLexicon()}
	s, err := NewSampler(ann, SamplerConfig{Ratio: ratio, Workers: workers, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}
	return s, ann
}

func transcript(n int) []domain.Segment {
	lines := []string{
		"Si tuviera tiempo, iría al cine.",
		"Me levanto temprano porque tengo que trabajar.",
		"Aunque llovía, salimos a caminar por el parque.",
		"Ella se lo dijo ayer.",
		"Quiero que vengas conmigo.",
	}
	segs := make([]domain.Segment, n)
	for i := range segs {
		segs[i] = domain.Segment{
			Number: i + 1,
			Text:   lines[i%len(lines)],
			Start:  float64(i) * 2,
			End:    float64(i)*2 + 2,
		}
	}
	return segs
}

func TestNewSamplerRatio(t *testing.T) {
	tests := []struct {
		ratio   float64
		want    float64
		wantErr bool
	}{
		{0, DefaultSampleRatio, false},
		{0.5, 0.5, false},
		{1, 1, false},
		{-0.1, 0, true},
		{1.5, 0, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.ratio), func(t *testing.T) {
			s, err := NewSampler(annotate.NewLexicon(), SamplerConfig{Ratio: tt.ratio})
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidSampleRatio) {
					t.Errorf("error = %v, want ErrInvalidSampleRatio", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSampler() error = %v", err)
			}
			if s.Ratio() != tt.want {
				t.Errorf("Ratio() = %v, want %v", s.Ratio(), tt.want)
			}
		})
	}
}

func TestSampleSize(t *testing.T) {
	tests := []struct {
		total int
		ratio float64
		want  int
	}{
		{0, 0.1, 0},
		{1, 0.1, 1},
		{9, 0.1, 1},
		{10, 0.1, 1},
		{25, 0.1, 2},
		{100, 0.1, 10},
		{7, 1, 7},
		{3, 0.5, 1},
	}

	for _, tt := range tests {
		if got := SampleSize(tt.total, tt.ratio); got != tt.want {
			t.Errorf("SampleSize(%d, %v) = %d, want %d", tt.total, tt.ratio, got, tt.want)
		}
	}
}

func TestSampleEmpty(t *testing.T) {
	s, ann := newTestSampler(t, 1, 4)
	batch, err := s.Sample(t.Context(), nil, mustProfile(t, domain.TierMedium), newRand(1))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if len(batch.Exercises) != 0 {
		t.Errorf("got %d exercises, want 0", len(batch.Exercises))
	}
	if ann.calls.Load() != 0 {
		t.Error("annotator called for empty input")
	}
}

func TestSampleAllSegments(t *testing.T) {
	s, _ := newTestSampler(t, 1, 4)
	segs := transcript(12)

	batch, err := s.Sample(t.Context(), segs, mustProfile(t, domain.TierEasy), newRand(3))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if batch.Stats.Sampled != 12 || batch.Stats.Generated != 12 {
		t.Errorf("stats = %+v, want 12 sampled and generated", batch.Stats)
	}
	for i, ex := range batch.Exercises {
		if ex.SegmentNumber != i+1 {
			t.Errorf("exercise %d has segment %d; want segment order", i, ex.SegmentNumber)
		}
	}
}

func TestSampleRatio(t *testing.T) {
	s, ann := newTestSampler(t, 0.1, 4)
	segs := transcript(100)

	batch, err := s.Sample(t.Context(), segs, mustProfile(t, domain.TierHard), newRand(9))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if batch.Stats.Sampled != 10 {
		t.Errorf("Sampled = %d, want 10", batch.Stats.Sampled)
	}
	if got := ann.calls.Load(); got != 10 {
		t.Errorf("annotator called %d times, want 10", got)
	}

	seen := make(map[int]bool)
	for _, ex := range batch.Exercises {
		if seen[ex.SegmentNumber] {
			t.Errorf("segment %d sampled twice", ex.SegmentNumber)
		}
		seen[ex.SegmentNumber] = true
	}
}

func TestSampleSkipsFailures(t *testing.T) {
	s, _ := newTestSampler(t, 1, 2)
	segs := []domain.Segment{
		{Number: 1, Text: "Si tuviera tiempo, iría al cine."},
		{Number: 2, Text: "FAIL here"},
		{Number: 3, Text: "La casa blanca."},
		{Number: 4, Text: "Ella se lo dijo ayer."},
	}

	batch, err := s.Sample(t.Context(), segs, mustProfile(t, domain.TierEasy), newRand(5))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if batch.Stats.Generated != 2 {
		t.Errorf("Generated = %d, want 2", batch.Stats.Generated)
	}
	if batch.Stats.Skipped.AnnotationFailures != 1 {
		t.Errorf("AnnotationFailures = %d, want 1", batch.Stats.Skipped.AnnotationFailures)
	}
	if batch.Stats.Skipped.NoCandidates != 1 {
		t.Errorf("NoCandidates = %d, want 1", batch.Stats.Skipped.NoCandidates)
	}
	if batch.Exercises[0].SegmentNumber != 1 || batch.Exercises[1].SegmentNumber != 4 {
		t.Errorf("unexpected segments: %d, %d", batch.Exercises[0].SegmentNumber, batch.Exercises[1].SegmentNumber)
	}
}

func TestSampleCountsDegraded(t *testing.T) {
	s, _ := newTestSampler(t, 1, 1)
	// one verb only: dificil asks for at least three blanks
	segs := []domain.Segment{{Number: 1, Text: "Quiero café."}}

	batch, err := s.Sample(t.Context(), segs, mustProfile(t, domain.TierHard), newRand(1))
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if batch.Stats.Generated != 1 || batch.Stats.Degraded != 1 {
		t.Errorf("stats = %+v, want one degraded exercise", batch.Stats)
	}
}

func TestSampleDeterministicAcrossWorkers(t *testing.T) {
	segs := transcript(40)
	profile := mustProfile(t, domain.TierMedium)

	run := func(workers int) []string {
		s, _ := newTestSampler(t, 0.5, workers)
		batch, err := s.Sample(t.Context(), segs, profile, newRand(2024))
		if err != nil {
			t.Fatalf("Sample() error = %v", err)
		}
		out := make([]string, len(batch.Exercises))
		for i, ex := range batch.Exercises {
			out[i] = fmt.Sprintf("%d:%s", ex.SegmentNumber, ex.Text)
		}
		return out
	}

	serial, parallel := run(1), run(8)
	if len(serial) != len(parallel) {
		t.Fatalf("batch sizes differ: %d vs %d", len(serial), len(parallel))
	}
	for i := range serial {
		if serial[i] != parallel[i] {
			t.Errorf("exercise %d differs: %q vs %q", i, serial[i], parallel[i])
		}
	}
}

func TestSampleCancelled(t *testing.T) {
	s, _ := newTestSampler(t, 1, 2)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := s.Sample(ctx, transcript(5), mustProfile(t, domain.TierEasy), newRand(1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestGenerateWrapsAnnotatorErrors(t *testing.T) {
	s, _ := newTestSampler(t, 1, 1)
	_, err := s.Generate(t.Context(), domain.Segment{Text: "FAIL"}, mustProfile(t, domain.TierEasy), newRand(1))
	if !errors.Is(err, domain.ErrAnnotationUnavailable) {
		t.Errorf("error = %v, want ErrAnnotationUnavailable", err)
	}
}
