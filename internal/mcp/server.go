package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/comprende/internal/domain"
	"github.com/felixgeelhaar/comprende/internal/jobs"
)

// Server exposes exercise generation and checking as MCP tools
type Server struct {
	mcpServer   *server.Server
	service     *jobs.Service
	defaultTier string
}

// Config contains configuration for the MCP server
type Config struct {
	Service     *jobs.Service
	DefaultTier string
	Version     string
}

// NewServer creates a new MCP server
func NewServer(cfg Config) *Server {
	s := &Server{
		service:     cfg.Service,
		defaultTier: cfg.DefaultTier,
	}
	if s.defaultTier == "" {
		s.defaultTier = string(domain.TierMedium)
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s.mcpServer = server.New(server.Info{
		Name:    "comprende",
		Version: version,
	}, server.WithInstructions(`
Comprende builds Spanish fill-in-the-blank exercises from transcript text.

Available tools:
- cloze_tiers: List difficulty tiers with their word categories and blank counts
- cloze_preview: Turn a sentence into an exercise for a tier
- cloze_exercises: List the stored exercises of a video
- cloze_check: Grade answers for a stored exercise
- cloze_progress: Summarize answered exercises of a video

Tiers: facil (verbs, pronouns), medio (adds prepositions),
dificil (adds conjunctions). Blanks appear as ___ and are numbered
blank_0, blank_1, ... from left to right.
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("cloze_tiers").
		Description("List difficulty tiers with allowed word categories and blank ranges.").
		Handler(s.handleTiers)

	s.mcpServer.Tool("cloze_preview").
		Description("Build a fill-in-the-blank exercise from a Spanish sentence.").
		Handler(s.handlePreview)

	s.mcpServer.Tool("cloze_exercises").
		Description("List the generated exercises of a video.").
		Handler(s.handleExercises)

	s.mcpServer.Tool("cloze_check").
		Description("Check answers for a stored exercise and record the attempt.").
		Handler(s.handleCheck)

	s.mcpServer.Tool("cloze_progress").
		Description("Summarize how many exercises of a video were answered correctly.").
		Handler(s.handleProgress)
}

// Input/Output types for tools

type TiersInput struct{}

type TiersOutput struct {
	Default string                  `json:"default"`
	Tiers   []domain.ProfileSummary `json:"tiers"`
}

type PreviewInput struct {
	Text       string  `json:"text" jsonschema:"description=Spanish sentence to turn into an exercise"`
	Difficulty string  `json:"difficulty,omitempty" jsonschema:"description=Difficulty tier,enum=facil,enum=medio,enum=dificil"`
	Seed       *uint64 `json:"seed,omitempty" jsonschema:"description=Random seed for a reproducible exercise"`
}

type PreviewOutput struct {
	Seed         uint64          `json:"seed"`
	Difficulty   string          `json:"difficulty"`
	ExerciseText string          `json:"exercise_text"`
	Answers      domain.BlankMap `json:"answers"`
	Hints        domain.BlankMap `json:"hints"`
	Blanks       int             `json:"blanks"`
	Original     string          `json:"original_text"`
}

type ExercisesInput struct {
	VideoID string `json:"video_id" jsonschema:"description=Video whose exercises to list"`
}

type ExerciseSummary struct {
	ID           string          `json:"id"`
	ExerciseText string          `json:"exercise_text"`
	Hints        domain.BlankMap `json:"hints"`
	Start        float64         `json:"start_time"`
	End          float64         `json:"end_time"`
}

type ExercisesOutput struct {
	VideoID   string            `json:"video_id"`
	Exercises []ExerciseSummary `json:"exercises"`
}

type CheckInput struct {
	ExerciseID string            `json:"exercise_id" jsonschema:"description=Exercise ID from cloze_exercises"`
	Responses  map[string]string `json:"responses" jsonschema:"description=Answers as blank id -> word map"`
}

type CheckOutput struct {
	Correct    int                  `json:"correct"`
	Total      int                  `json:"total"`
	AllCorrect bool                 `json:"all_correct"`
	Blanks     []domain.BlankResult `json:"blanks"`
}

type ProgressInput struct {
	VideoID string `json:"video_id" jsonschema:"description=Video to summarize"`
}

type ProgressOutput struct {
	VideoID   string `json:"video_id"`
	Answered  int    `json:"answered"`
	Correct   int    `json:"correct"`
	Incorrect int    `json:"incorrect"`
}

// Tool handlers

func (s *Server) handleTiers(ctx context.Context, input TiersInput) (TiersOutput, error) {
	out := TiersOutput{Default: s.defaultTier}
	for _, p := range domain.Profiles() {
		out.Tiers = append(out.Tiers, p.Summary())
	}
	return out, nil
}

func (s *Server) handlePreview(ctx context.Context, input PreviewInput) (PreviewOutput, error) {
	tier := input.Difficulty
	if tier == "" {
		tier = s.defaultTier
	}
	seed := uint64(time.Now().UnixNano())
	if input.Seed != nil {
		seed = *input.Seed
	}

	ex, err := s.service.Preview(ctx, input.Text, tier, seed)
	if err != nil {
		return PreviewOutput{}, fmt.Errorf("build exercise: %w", err)
	}
	return PreviewOutput{
		Seed:         seed,
		Difficulty:   string(ex.Difficulty),
		ExerciseText: ex.Text,
		Answers:      ex.Answers,
		Hints:        ex.Hints,
		Blanks:       ex.BlankCount(),
		Original:     ex.OriginalText,
	}, nil
}

func (s *Server) handleExercises(ctx context.Context, input ExercisesInput) (ExercisesOutput, error) {
	exs, err := s.service.Exercises(ctx, input.VideoID)
	if err != nil {
		return ExercisesOutput{}, fmt.Errorf("list exercises: %w", err)
	}

	out := ExercisesOutput{VideoID: input.VideoID, Exercises: make([]ExerciseSummary, 0, len(exs))}
	for _, ex := range exs {
		// answers stay hidden; learners submit them through cloze_check
		out.Exercises = append(out.Exercises, ExerciseSummary{
			ID:           ex.ID,
			ExerciseText: ex.Text,
			Hints:        ex.Hints,
			Start:        ex.Start,
			End:          ex.End,
		})
	}
	return out, nil
}

func (s *Server) handleCheck(ctx context.Context, input CheckInput) (CheckOutput, error) {
	if input.ExerciseID == "" {
		return CheckOutput{}, errors.New("exercise_id is required")
	}
	res, err := s.service.Check(ctx, input.ExerciseID, input.Responses)
	if err != nil {
		return CheckOutput{}, fmt.Errorf("check answers: %w", err)
	}
	return CheckOutput{
		Correct:    res.Correct,
		Total:      res.Total,
		AllCorrect: res.AllCorrect,
		Blanks:     res.Blanks,
	}, nil
}

func (s *Server) handleProgress(ctx context.Context, input ProgressInput) (ProgressOutput, error) {
	sum, err := s.service.Progress(ctx, input.VideoID)
	if err != nil {
		return ProgressOutput{}, fmt.Errorf("load progress: %w", err)
	}
	return ProgressOutput{
		VideoID:   input.VideoID,
		Answered:  sum.Answered,
		Correct:   sum.Correct,
		Incorrect: sum.Incorrect,
	}, nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
