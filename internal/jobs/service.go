// Package jobs runs exercise generation for imported transcripts and keeps
// track of each run's state.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/comprende/internal/annotate"
	"github.com/felixgeelhaar/comprende/internal/cloze"
	"github.com/felixgeelhaar/comprende/internal/domain"
)

// Dispatcher hands a persisted job to whatever will run it
type Dispatcher interface {
	Dispatch(ctx context.Context, job *domain.Job) error
}

// Config holds service dependencies and defaults
type Config struct {
	Annotator annotate.Annotator
	Stores    Stores

	// Dispatcher sends submitted jobs to workers. Nil runs jobs in-process.
	Dispatcher Dispatcher

	// SampleRatio used when a request leaves it unset (default: 0.1)
	SampleRatio float64

	// Workers bounds concurrent segment processing per job (default: 4)
	Workers int

	Logger *slog.Logger

	// Seed draws job seeds; defaults to math/rand/v2's global source
	Seed func() uint64
}

// Service manages transcripts, generation jobs, exercises and attempts
type Service struct {
	annotator  annotate.Annotator
	stores     Stores
	dispatcher Dispatcher
	ratio      float64
	workers    int
	logger     *slog.Logger
	seed       func() uint64

	// inline jobs run on baseCtx so they outlive the submitting request
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// SubmitRequest describes a generation run
type SubmitRequest struct {
	VideoID     string  `json:"video_id"`
	Difficulty  string  `json:"difficulty"`
	SampleRatio float64 `json:"sample_ratio,omitempty"`
	Seed        *uint64 `json:"seed,omitempty"`
}

// NewService creates a new generation service
func NewService(cfg Config) (*Service, error) {
	if cfg.Annotator == nil {
		return nil, errors.New("jobs: annotator is required")
	}
	if cfg.Stores.Segments == nil || cfg.Stores.Exercises == nil || cfg.Stores.Jobs == nil || cfg.Stores.Attempts == nil {
		return nil, errors.New("jobs: all stores are required")
	}

	ratio := cfg.SampleRatio
	if ratio == 0 {
		ratio = cloze.DefaultSampleRatio
	}
	if err := cloze.ValidateRatio(ratio); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Seed == nil {
		cfg.Seed = rand.Uint64
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		annotator:  cfg.Annotator,
		stores:     cfg.Stores,
		dispatcher: cfg.Dispatcher,
		ratio:      ratio,
		workers:    cfg.Workers,
		logger:     cfg.Logger,
		seed:       cfg.Seed,
		baseCtx:    ctx,
		cancel:     cancel,
	}, nil
}

// Annotator returns the configured annotation backend
func (s *Service) Annotator() annotate.Annotator {
	return s.annotator
}

// ImportTranscript replaces the stored segments of a video
func (s *Service) ImportTranscript(ctx context.Context, videoID string, segs []domain.Segment) error {
	if err := validateVideoID(videoID); err != nil {
		return err
	}
	if len(segs) == 0 {
		return domain.ErrNoSegmentData
	}
	if err := s.stores.Segments.ReplaceSegments(ctx, videoID, segs); err != nil {
		return fmt.Errorf("store segments: %w", err)
	}
	s.logger.Info("transcript imported", "video_id", videoID, "segments", len(segs))
	return nil
}

// Segments returns the stored segments of a video
func (s *Service) Segments(ctx context.Context, videoID string) ([]domain.Segment, error) {
	if err := validateVideoID(videoID); err != nil {
		return nil, err
	}
	return s.stores.Segments.ListSegments(ctx, videoID)
}

// Submit validates the request, records a pending job and dispatches it.
// Unknown tiers and bad ratios fail before anything is stored.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.Job, error) {
	if err := validateVideoID(req.VideoID); err != nil {
		return nil, err
	}
	profile, err := domain.LookupProfile(req.Difficulty)
	if err != nil {
		return nil, err
	}
	ratio := req.SampleRatio
	if ratio == 0 {
		ratio = s.ratio
	}
	if err := cloze.ValidateRatio(ratio); err != nil {
		return nil, err
	}
	seed := s.seed()
	if req.Seed != nil {
		seed = *req.Seed
	}

	job := domain.NewJob(req.VideoID, profile.Tier, ratio, seed)
	if err := s.stores.Jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.logger.Info("job submitted",
		"job_id", job.ID,
		"video_id", job.VideoID,
		"difficulty", job.Difficulty,
		"sample_ratio", job.SampleRatio,
		"seed", job.Seed,
	)

	if s.dispatcher == nil {
		s.runInline(job.ID)
		return job, nil
	}

	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		job.Fail(err)
		if uerr := s.stores.Jobs.UpdateJob(context.WithoutCancel(ctx), job); uerr != nil {
			s.logger.Error("failed to record dispatch failure", "job_id", job.ID, "error", uerr)
		}
		return nil, fmt.Errorf("dispatch job: %w", err)
	}
	return job, nil
}

func (s *Service) runInline(id uuid.UUID) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Run(s.baseCtx, id); err != nil {
			s.logger.Error("inline job failed", "job_id", id, "error", err)
		}
	}()
}

// Run executes a job: it loads the video's segments, samples them with the
// job's seed and replaces the video's exercises. The job ends COMPLETED
// with its counts or FAILED with the error. Completed jobs are returned
// unchanged so redelivered queue messages are harmless.
func (s *Service) Run(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := s.stores.Jobs.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	if job.Status == domain.JobCompleted {
		return job, nil
	}

	job.Start()
	if err := s.stores.Jobs.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("mark job running: %w", err)
	}

	start := time.Now()
	batch, err := s.generate(ctx, job)
	if err != nil {
		job.Fail(err)
		if uerr := s.stores.Jobs.UpdateJob(context.WithoutCancel(ctx), job); uerr != nil {
			s.logger.Error("failed to record job failure", "job_id", job.ID, "error", uerr)
		}
		s.logger.Error("job failed", "job_id", job.ID, "video_id", job.VideoID, "error", err)
		return job, err
	}

	st := batch.Stats
	job.Complete(st.Sampled, st.Generated, st.Degraded, st.Skipped)
	if err := s.stores.Jobs.UpdateJob(ctx, job); err != nil {
		return job, fmt.Errorf("mark job completed: %w", err)
	}
	s.logger.Info("job completed",
		"job_id", job.ID,
		"video_id", job.VideoID,
		"generated", st.Generated,
		"skipped", st.Skipped.Total(),
		"duration", time.Since(start),
	)
	return job, nil
}

func (s *Service) generate(ctx context.Context, job *domain.Job) (*cloze.Batch, error) {
	profile, err := domain.LookupProfile(string(job.Difficulty))
	if err != nil {
		return nil, err
	}
	segs, err := s.stores.Segments.ListSegments(ctx, job.VideoID)
	if err != nil {
		return nil, fmt.Errorf("load segments: %w", err)
	}

	sampler, err := cloze.NewSampler(s.annotator, cloze.SamplerConfig{
		Ratio:   job.SampleRatio,
		Workers: s.workers,
		Logger:  s.logger.With("job_id", job.ID),
	})
	if err != nil {
		return nil, err
	}

	batch, err := sampler.Sample(ctx, segs, profile, SeededRand(job.Seed))
	if err != nil {
		return nil, err
	}
	if err := s.stores.Exercises.SaveExercises(ctx, job.VideoID, batch.Exercises); err != nil {
		return nil, fmt.Errorf("save exercises: %w", err)
	}
	return batch, nil
}

// SeededRand returns the random source used for a job seed
func SeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Job returns a job by id
func (s *Service) Job(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return s.stores.Jobs.GetJob(ctx, id)
}

// Jobs lists jobs newest first; an empty videoID lists all
func (s *Service) Jobs(ctx context.Context, videoID string) ([]*domain.Job, error) {
	return s.stores.Jobs.ListJobs(ctx, videoID)
}

// Exercises returns a video's exercises ordered by start time
func (s *Service) Exercises(ctx context.Context, videoID string) ([]*domain.Exercise, error) {
	if err := validateVideoID(videoID); err != nil {
		return nil, err
	}
	return s.stores.Exercises.ListExercises(ctx, videoID)
}

// Check grades responses for an exercise and records the attempt
func (s *Service) Check(ctx context.Context, exerciseID string, responses map[string]string) (*domain.CheckResult, error) {
	ex, err := s.stores.Exercises.GetExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}

	res := ex.Check(responses)
	attempt := &domain.Attempt{
		ExerciseID: ex.ID,
		VideoID:    ex.VideoID,
		Responses:  responses,
		Correct:    res.Correct,
		Total:      res.Total,
		AllCorrect: res.AllCorrect,
		AnsweredAt: time.Now().UTC(),
	}
	if err := s.stores.Attempts.SaveAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}
	return &res, nil
}

// Progress summarizes the learner's attempts for a video
func (s *Service) Progress(ctx context.Context, videoID string) (domain.ProgressSummary, error) {
	if err := validateVideoID(videoID); err != nil {
		return domain.ProgressSummary{}, err
	}
	return s.stores.Attempts.AttemptSummary(ctx, videoID)
}

// Preview builds a single exercise from free text without storing it
func (s *Service) Preview(ctx context.Context, text, tier string, seed uint64) (*domain.Exercise, error) {
	return Preview(ctx, s.annotator, text, tier, seed)
}

// Preview annotates text and builds one exercise for tier
func Preview(ctx context.Context, annotator annotate.Annotator, text, tier string, seed uint64) (*domain.Exercise, error) {
	profile, err := domain.LookupProfile(tier)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}

	sampler, err := cloze.NewSampler(annotator, cloze.DefaultSamplerConfig())
	if err != nil {
		return nil, err
	}
	seg := domain.Segment{Number: 1, Text: strings.TrimSpace(text)}
	return sampler.Generate(ctx, seg, profile, SeededRand(seed))
}

// Wait blocks until inline jobs have finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close cancels running inline jobs and waits for them
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

func validateVideoID(videoID string) error {
	if strings.TrimSpace(videoID) == "" {
		return fmt.Errorf("%w: video id is required", domain.ErrInvalidInput)
	}
	return nil
}
