package jobs

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// MemoryStore keeps everything in process memory. It backs offline CLI runs
// where nothing needs to outlive the command.
type MemoryStore struct {
	mu        sync.RWMutex
	segments  map[string][]domain.Segment
	exercises map[string][]*domain.Exercise
	jobs      map[uuid.UUID]domain.Job
	attempts  map[string]domain.Attempt
}

// Ensure MemoryStore implements the storage interfaces
var (
	_ SegmentStore  = (*MemoryStore)(nil)
	_ ExerciseStore = (*MemoryStore)(nil)
	_ JobStore      = (*MemoryStore)(nil)
	_ AttemptStore  = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		segments:  make(map[string][]domain.Segment),
		exercises: make(map[string][]*domain.Exercise),
		jobs:      make(map[uuid.UUID]domain.Job),
		attempts:  make(map[string]domain.Attempt),
	}
}

// Stores exposes m through the service's store bundle
func (m *MemoryStore) Stores() Stores {
	return Stores{Segments: m, Exercises: m, Jobs: m, Attempts: m}
}

func (m *MemoryStore) ReplaceSegments(ctx context.Context, videoID string, segs []domain.Segment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments[videoID] = slices.Clone(segs)
	return nil
}

func (m *MemoryStore) ListSegments(ctx context.Context, videoID string) ([]domain.Segment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	segs := slices.Clone(m.segments[videoID])
	slices.SortFunc(segs, func(a, b domain.Segment) int { return cmp.Compare(a.Number, b.Number) })
	return segs, nil
}

func (m *MemoryStore) SaveExercises(ctx context.Context, videoID string, exs []*domain.Exercise) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropAttempts(videoID)
	stored := make([]*domain.Exercise, 0, len(exs))
	for _, ex := range exs {
		ex.Stamp(videoID)
		cp := *ex
		stored = append(stored, &cp)
	}
	m.exercises[videoID] = stored
	return nil
}

func (m *MemoryStore) ListExercises(ctx context.Context, videoID string) ([]*domain.Exercise, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Exercise, 0, len(m.exercises[videoID]))
	for _, ex := range m.exercises[videoID] {
		cp := *ex
		out = append(out, &cp)
	}
	slices.SortStableFunc(out, func(a, b *domain.Exercise) int {
		return cmp.Or(cmp.Compare(a.Start, b.Start), cmp.Compare(a.SegmentNumber, b.SegmentNumber))
	})
	return out, nil
}

func (m *MemoryStore) GetExercise(ctx context.Context, id string) (*domain.Exercise, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, exs := range m.exercises {
		for _, ex := range exs {
			if ex.ID == id {
				cp := *ex
				return &cp, nil
			}
		}
	}
	return nil, domain.ErrExerciseNotFound
}

func (m *MemoryStore) DeleteExercises(ctx context.Context, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropAttempts(videoID)
	delete(m.exercises, videoID)
	return nil
}

// dropAttempts mirrors the cascade of the SQL stores. Callers hold mu.
func (m *MemoryStore) dropAttempts(videoID string) {
	for _, ex := range m.exercises[videoID] {
		delete(m.attempts, ex.ID)
	}
}

func (m *MemoryStore) CreateJob(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *MemoryStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return &job, nil
}

func (m *MemoryStore) UpdateJob(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *MemoryStore) ListJobs(ctx context.Context, videoID string) ([]*domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Job
	for _, job := range m.jobs {
		if videoID == "" || job.VideoID == videoID {
			out = append(out, &job)
		}
	}
	slices.SortFunc(out, func(a, b *domain.Job) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *MemoryStore) SaveAttempt(ctx context.Context, a *domain.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	cp.Responses = maps.Clone(a.Responses)
	m.attempts[a.ExerciseID] = cp
	return nil
}

func (m *MemoryStore) AttemptSummary(ctx context.Context, videoID string) (domain.ProgressSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sum domain.ProgressSummary
	for _, a := range m.attempts {
		if a.VideoID != videoID {
			continue
		}
		sum.Answered++
		if a.AllCorrect {
			sum.Correct++
		}
	}
	sum.Incorrect = sum.Answered - sum.Correct
	return sum, nil
}
