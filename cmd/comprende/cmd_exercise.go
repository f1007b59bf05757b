package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/felixgeelhaar/comprende/internal/app"
	"github.com/felixgeelhaar/comprende/internal/config"
	"github.com/felixgeelhaar/comprende/internal/domain"
	"github.com/felixgeelhaar/comprende/internal/jobs"
	"github.com/felixgeelhaar/comprende/internal/transcript"
)

// cmdTiers lists the difficulty tiers
func cmdTiers() error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("Difficulty Tiers")
	fmt.Println("================")
	for _, p := range domain.Profiles() {
		s := p.Summary()
		allowed := make([]string, len(s.Allowed))
		for i, pos := range s.Allowed {
			allowed[i] = string(pos)
		}
		marker := " "
		if string(s.Tier) == cfg.Exercises.DefaultTier {
			marker = "*"
		}
		fmt.Printf("%s %-8s blanks %d-%d  %s\n", marker, s.Tier, s.Blanks.Min, s.Blanks.Max, strings.Join(allowed, ", "))
	}
	fmt.Println("\n* default tier")
	return nil
}

// cmdPreview builds one exercise from a sentence
func cmdPreview(args []string) error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	tier := fs.String("difficulty", cfg.Exercises.DefaultTier, "difficulty tier (facil, medio, dificil)")
	seed := fs.Uint64("seed", 0, "random seed (default: random)")
	asJSON := fs.Bool("json", false, "print the exercise as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.Join(fs.Args(), " ")
	if text == "" {
		return fmt.Errorf("text required (e.g., comprende preview \"Hoy comemos pan.\")")
	}
	if !flagSet(fs, "seed") {
		*seed = rand.Uint64()
	}

	annotator, err := app.NewAnnotator(cfg.Annotator, nil)
	if err != nil {
		return fmt.Errorf("init annotator: %w", err)
	}

	ex, err := jobs.Preview(context.Background(), annotator, text, *tier, *seed)
	if err != nil {
		return err
	}

	if *asJSON {
		return writeJSON(os.Stdout, map[string]any{"seed": *seed, "exercise": ex})
	}

	fmt.Printf("Exercise (%s, seed %d):\n  %s\n\n", ex.Difficulty, *seed, ex.Text)
	for _, entry := range ex.Answers {
		hint, _ := ex.Hints.Get(entry.ID)
		fmt.Printf("  %-8s %-14s %s\n", entry.ID, entry.Value, hint)
	}
	return nil
}

// cmdGenerate runs one generation job over a transcript file
func cmdGenerate(args []string) error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	tier := fs.String("difficulty", cfg.Exercises.DefaultTier, "difficulty tier (facil, medio, dificil)")
	videoID := fs.String("video", "", "video id (default: file name)")
	ratio := fs.Float64("ratio", 0, "fraction of segments to sample (default: from config)")
	seed := fs.Uint64("seed", 0, "random seed (default: random)")
	out := fs.String("out", "", "write exercises to this file instead of stdout")
	persist := fs.Bool("store", false, "save into the configured storage instead of memory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("transcript file required (e.g., comprende generate clase1.json)")
	}
	path := fs.Arg(0)
	if *videoID == "" {
		*videoID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	t, err := transcript.ParseFile(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dir, err := config.EnsureComprendeDir()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, app.AppConfig{Config: withoutQueue(cfg), Dir: dir, Offline: !*persist})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Service.ImportTranscript(ctx, *videoID, t.Segments); err != nil {
		return err
	}

	req := jobs.SubmitRequest{VideoID: *videoID, Difficulty: *tier, SampleRatio: *ratio}
	if flagSet(fs, "seed") {
		req.Seed = seed
	}
	job, err := a.Service.Submit(ctx, req)
	if err != nil {
		return err
	}
	a.Service.Wait()

	job, err = a.Service.Job(ctx, job.ID)
	if err != nil {
		return err
	}
	if job.Status == domain.JobFailed {
		return fmt.Errorf("generation failed: %s", job.Error)
	}
	exs, err := a.Service.Exercises(ctx, *videoID)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%d segments, %d sampled, %d exercises (%d without candidates, %d annotation failures), seed %d\n",
		len(t.Segments), job.Sampled, job.Generated, job.Skipped.NoCandidates, job.Skipped.AnnotationFailures, job.Seed)

	result := map[string]any{"video_id": *videoID, "job": job, "exercises": exs}
	if *out == "" {
		return writeJSON(os.Stdout, result)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	return writeJSON(f, result)
}

// cmdProgress shows a video's answered exercises from the daemon
func cmdProgress(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("video id required")
	}
	if !isRunning() {
		return fmt.Errorf("daemon not running (run 'comprende start' first)")
	}

	resp, err := http.Get(daemonAddr() + "/v1/videos/" + url.PathEscape(args[0]) + "/progress")
	if err != nil {
		return fmt.Errorf("get progress: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get progress: status %d", resp.StatusCode)
	}

	var result struct {
		Progress domain.ProgressSummary `json:"progress"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	p := result.Progress
	rate := 0.0
	if p.Answered > 0 {
		rate = float64(p.Correct) / float64(p.Answered)
	}
	fmt.Printf("Video %s\n", args[0])
	fmt.Printf("Answered:  %d\n", p.Answered)
	fmt.Printf("Correct:   %d %s %.0f%%\n", p.Correct, renderProgressBar(rate, 20), rate*100)
	fmt.Printf("Incorrect: %d\n", p.Incorrect)
	return nil
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
