package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a generation job
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// IsTerminal reports whether the job will not change state again
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// SkipCounts records why sampled segments produced no exercise
type SkipCounts struct {
	NoCandidates       int `json:"no_candidates"`
	AnnotationFailures int `json:"annotation_failures"`
}

// Total returns the number of skipped segments
func (s SkipCounts) Total() int {
	return s.NoCandidates + s.AnnotationFailures
}

// Job tracks one exercise generation run for a video
type Job struct {
	ID          uuid.UUID  `json:"id"`
	VideoID     string     `json:"video_id"`
	Difficulty  Tier       `json:"difficulty"`
	SampleRatio float64    `json:"sample_ratio"`
	Seed        uint64     `json:"seed"`
	Status      JobStatus  `json:"status"`
	Sampled     int        `json:"sampled"`
	Generated   int        `json:"generated"`
	Degraded    int        `json:"degraded"`
	Skipped     SkipCounts `json:"skipped"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewJob creates a pending job
func NewJob(videoID string, tier Tier, ratio float64, seed uint64) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		VideoID:     videoID,
		Difficulty:  tier,
		SampleRatio: ratio,
		Seed:        seed,
		Status:      JobPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Start marks the job running
func (j *Job) Start() {
	j.Status = JobRunning
	j.Error = ""
	j.UpdatedAt = time.Now().UTC()
}

// Complete marks the job completed with its batch counts
func (j *Job) Complete(sampled, generated, degraded int, skipped SkipCounts) {
	j.Status = JobCompleted
	j.Sampled = sampled
	j.Generated = generated
	j.Degraded = degraded
	j.Skipped = skipped
	j.UpdatedAt = time.Now().UTC()
}

// Fail marks the job failed
func (j *Job) Fail(err error) {
	j.Status = JobFailed
	if err != nil {
		j.Error = err.Error()
	}
	j.UpdatedAt = time.Now().UTC()
}

// Attempt is a learner's latest submission for an exercise
type Attempt struct {
	ExerciseID string            `json:"exercise_id"`
	VideoID    string            `json:"video_id"`
	Responses  map[string]string `json:"responses"`
	Correct    int               `json:"correct"`
	Total      int               `json:"total"`
	AllCorrect bool              `json:"all_correct"`
	AnsweredAt time.Time         `json:"answered_at"`
}

// ProgressSummary aggregates attempts for a video
type ProgressSummary struct {
	Answered  int `json:"answered"`
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}
