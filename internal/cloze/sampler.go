package cloze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/comprende/internal/annotate"
	"github.com/felixgeelhaar/comprende/internal/domain"
)

// DefaultSampleRatio is the share of segments turned into exercises
const DefaultSampleRatio = 0.1

// Stats counts what happened to the segments of a batch
type Stats struct {
	Segments  int               `json:"segments"`
	Sampled   int               `json:"sampled"`
	Generated int               `json:"generated"`
	Degraded  int               `json:"degraded"`
	Skipped   domain.SkipCounts `json:"skipped"`
}

// Batch is the set of exercises generated for one transcript
type Batch struct {
	Exercises []*domain.Exercise `json:"exercises"`
	Stats     Stats              `json:"stats"`
}

// SamplerConfig holds sampler settings
type SamplerConfig struct {
	// Ratio of segments to sample (default: 0.1)
	Ratio float64

	// Workers bounds concurrent segment processing (default: 4)
	Workers int

	Logger *slog.Logger
}

// DefaultSamplerConfig returns sensible defaults
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Ratio:   DefaultSampleRatio,
		Workers: 4,
	}
}

// Sampler picks a random subset of a transcript's segments and builds one
// exercise per sampled segment.
type Sampler struct {
	annotator annotate.Annotator
	ratio     float64
	workers   int
	logger    *slog.Logger
}

// NewSampler creates a sampler. A zero ratio selects the default; ratios
// outside (0, 1] are rejected.
func NewSampler(annotator annotate.Annotator, cfg SamplerConfig) (*Sampler, error) {
	ratio := cfg.Ratio
	if ratio == 0 {
		ratio = DefaultSampleRatio
	}
	if err := ValidateRatio(ratio); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{
		annotator: annotator,
		ratio:     ratio,
		workers:   cfg.Workers,
		logger:    logger,
	}, nil
}

// ValidateRatio rejects ratios outside (0, 1]
func ValidateRatio(ratio float64) error {
	if math.IsNaN(ratio) || ratio <= 0 || ratio > 1 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSampleRatio, ratio)
	}
	return nil
}

// Ratio returns the configured sample ratio
func (s *Sampler) Ratio() float64 {
	return s.ratio
}

// SampleSize returns how many of total segments are sampled at ratio
func SampleSize(total int, ratio float64) int {
	if total == 0 {
		return 0
	}
	n := max(1, int(math.Floor(float64(total)*ratio)))
	return min(n, total)
}

// Sample draws segments without replacement and builds their exercises.
// Exercises come back in segment order. Per-segment random sources are
// derived from rng before any work starts, so the batch depends only on
// the input and the seed, not on scheduling.
func (s *Sampler) Sample(ctx context.Context, segments []domain.Segment, profile domain.DifficultyProfile, rng *rand.Rand) (*Batch, error) {
	batch := &Batch{Stats: Stats{Segments: len(segments)}}
	if len(segments) == 0 {
		return batch, nil
	}

	n := SampleSize(len(segments), s.ratio)
	picked := rng.Perm(len(segments))[:n]
	slices.Sort(picked)

	type work struct {
		seg  domain.Segment
		seed [2]uint64
	}
	jobs := make([]work, n)
	for i, idx := range picked {
		jobs[i] = work{seg: segments[idx], seed: [2]uint64{rng.Uint64(), rng.Uint64()}}
	}

	results := make([]*domain.Exercise, n)
	failures := make([]error, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range jobs {
		w := jobs[i]
		g.Go(func() error {
			segRng := rand.New(rand.NewPCG(w.seed[0], w.seed[1]))
			ex, err := s.Generate(gctx, w.seg, profile, segRng)
			if err != nil {
				if cerr := gctx.Err(); cerr != nil {
					return cerr
				}
				failures[i] = err
				return nil
			}
			results[i] = ex
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sample segments: %w", err)
	}

	batch.Stats.Sampled = n
	for i, ex := range results {
		if ex == nil {
			switch {
			case errors.Is(failures[i], ErrNoCandidates):
				batch.Stats.Skipped.NoCandidates++
			default:
				batch.Stats.Skipped.AnnotationFailures++
			}
			continue
		}
		if ex.BlankCount() < profile.Blanks.Min {
			batch.Stats.Degraded++
		}
		batch.Exercises = append(batch.Exercises, ex)
	}
	batch.Stats.Generated = len(batch.Exercises)

	s.logger.Info("sampled transcript",
		"tier", profile.Tier,
		"segments", batch.Stats.Segments,
		"sampled", batch.Stats.Sampled,
		"generated", batch.Stats.Generated,
		"degraded", batch.Stats.Degraded,
		"skipped_no_candidates", batch.Stats.Skipped.NoCandidates,
		"skipped_annotation", batch.Stats.Skipped.AnnotationFailures,
	)

	return batch, nil
}

// Generate annotates one segment and builds its exercise. Annotator errors
// are reported as domain.ErrAnnotationUnavailable; segments without
// candidates return ErrNoCandidates.
func (s *Sampler) Generate(ctx context.Context, seg domain.Segment, profile domain.DifficultyProfile, rng *rand.Rand) (*domain.Exercise, error) {
	tokens, err := s.annotator.Annotate(ctx, seg.Text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("annotation failed",
			"annotator", s.annotator.Name(),
			"segment", seg.Number,
			"error", err,
		)
		if !errors.Is(err, domain.ErrAnnotationUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrAnnotationUnavailable, err)
		}
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: segment %d produced no tokens", domain.ErrAnnotationUnavailable, seg.Number)
	}

	ex, err := Build(seg, tokens, profile, rng)
	if err != nil {
		s.logger.Debug("segment skipped", "segment", seg.Number, "reason", err)
		return nil, err
	}
	return ex, nil
}
