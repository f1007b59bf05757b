package cloze

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/felixgeelhaar/comprende/internal/annotate"
	"github.com/felixgeelhaar/comprende/internal/domain"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func TestPlanBlanksBounds(t *testing.T) {
	ranked := make([]Candidate, 10)
	for i := range ranked {
		ranked[i] = Candidate{TokenIndex: i, Priority: 10 - i}
	}

	tests := []struct {
		name   string
		ranked []Candidate
		blanks domain.BlankRange
		lo, hi int
	}{
		{"within range", ranked, domain.BlankRange{Min: 3, Max: 6}, 3, 6},
		{"fixed", ranked, domain.BlankRange{Min: 2, Max: 2}, 2, 2},
		{"capped by candidates", ranked[:2], domain.BlankRange{Min: 3, Max: 6}, 2, 2},
		{"single candidate", ranked[:1], domain.BlankRange{Min: 1, Max: 2}, 1, 1},
		{"empty", nil, domain.BlankRange{Min: 1, Max: 2}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := range uint64(50) {
				got := PlanBlanks(tt.ranked, tt.blanks, newRand(seed))
				if len(got) < tt.lo || len(got) > tt.hi {
					t.Fatalf("seed %d: %d blanks, want [%d, %d]", seed, len(got), tt.lo, tt.hi)
				}
				for i, c := range got {
					if c != tt.ranked[i] {
						t.Fatalf("seed %d: blank %d is not the %d-th ranked candidate", seed, i, i)
					}
				}
			}
		})
	}
}

func TestPlanBlanksCoversRange(t *testing.T) {
	ranked := make([]Candidate, 10)
	seen := make(map[int]bool)
	for seed := range uint64(200) {
		seen[len(PlanBlanks(ranked, domain.BlankRange{Min: 3, Max: 6}, newRand(seed)))] = true
	}
	for k := 3; k <= 6; k++ {
		if !seen[k] {
			t.Errorf("blank count %d never drawn", k)
		}
	}
}

func TestPlanBlanksDrawsNothingWithoutCandidates(t *testing.T) {
	a, b := newRand(7), newRand(7)
	PlanBlanks(nil, domain.BlankRange{Min: 1, Max: 2}, a)
	if a.Uint64() != b.Uint64() {
		t.Error("PlanBlanks consumed randomness with no candidates")
	}
}

func TestRender(t *testing.T) {
	tokens := siTuviera()
	selected := []Candidate{
		{TokenIndex: 4, Text: "iría", POS: domain.POSVerb},
		{TokenIndex: 1, Text: "tuviera", POS: domain.POSVerb},
		{TokenIndex: 0, Text: "Si", POS: domain.POSSConj},
	}

	text, answers, hints := Render(tokens, selected)

	if want := "___ ___ tiempo, ___ desde el cine"; text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
	wantAnswers := domain.BlankMap{
		{ID: "blank_0", Value: "Si"},
		{ID: "blank_1", Value: "tuviera"},
		{ID: "blank_2", Value: "iría"},
	}
	if len(answers) != len(wantAnswers) {
		t.Fatalf("answers = %v", answers)
	}
	for i := range wantAnswers {
		if answers[i] != wantAnswers[i] {
			t.Errorf("answers[%d] = %v, want %v", i, answers[i], wantAnswers[i])
		}
	}
	if !answers.SameKeys(hints) {
		t.Errorf("hint keys %v differ from answer keys %v", hints.Keys(), answers.Keys())
	}
	if h, _ := hints.Get("blank_1"); h != "verbo - subjuntivo" {
		t.Errorf("hint for tuviera = %q", h)
	}
	if h, _ := hints.Get("blank_0"); h != "palabra funcional" {
		t.Errorf("hint for Si = %q", h)
	}
}

func TestRenderPreservesWhitespace(t *testing.T) {
	tokens := []domain.Token{
		tok(0, "Ella", " ", domain.POSPron, domain.DepSubject, ""),
		tok(1, "se", "  ", domain.POSPron, domain.DepExpletive, ""),
		tok(2, "fue", "", domain.POSVerb, domain.DepRoot, "Tense=Past"),
		tok(3, ".", " ", domain.POSPunct, domain.DepPunct, ""),
	}
	text, _, _ := Render(tokens, []Candidate{{TokenIndex: 1}, {TokenIndex: 2}})
	if want := "Ella ___  ___."; text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestHint(t *testing.T) {
	tests := []struct {
		tok  domain.Token
		want string
	}{
		{tok(0, "come", "", domain.POSVerb, "", "Mood=Ind"), "verbo"},
		{tok(0, "coma", "", domain.POSVerb, "", "Mood=Sub"), "verbo - subjuntivo"},
		{tok(0, "para", "", domain.POSAdp, "", ""), "preposición"},
		{tok(0, "lo", "", domain.POSPron, domain.DepDirectObject, ""), "pronombre"},
		{tok(0, "aunque", "", domain.POSSConj, "", ""), "palabra funcional"},
		{tok(0, "pero", "", domain.POSCConj, "", ""), "palabra funcional"},
	}

	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.tok.Text, func(t *testing.T) {
			got := Hint(tt.tok)
			if got != tt.want {
				t.Errorf("Hint() = %q, want %q", got, tt.want)
			}
			if strings.Contains(strings.ToLower(got), strings.ToLower(tt.tok.Text)) {
				t.Errorf("hint %q reveals the answer", got)
			}
		})
	}
}

func TestBuildProperties(t *testing.T) {
	lex := annotate.NewLexicon()
	texts := []string{
		"Si tuviera tiempo, iría al cine",
		"Me levanto temprano porque tengo que trabajar para mi familia.",
		"Aunque llovía, salimos a caminar por el parque y nos mojamos.",
		"Ella se lo dijo ayer, pero él no quiso escuchar.",
		"Quiero que vengas conmigo.",
	}

	for _, text := range texts {
		tokens, err := lex.Annotate(t.Context(), text)
		if err != nil {
			t.Fatalf("Annotate(%q) error = %v", text, err)
		}
		seg := domain.Segment{Number: 3, Text: text, Start: 1.5, End: 4}

		for _, profile := range domain.Profiles() {
			for seed := range uint64(25) {
				ex, err := Build(seg, tokens, profile, newRand(seed))
				if err != nil {
					t.Fatalf("Build(%q, %s) error = %v", text, profile.Tier, err)
				}

				if ex.BlankCount() < 1 || ex.BlankCount() > profile.Blanks.Max {
					t.Errorf("%s %q: %d blanks, outside [1, %d]", profile.Tier, text, ex.BlankCount(), profile.Blanks.Max)
				}
				if got := strings.Count(ex.Text, domain.BlankMarker); got != ex.BlankCount() {
					t.Errorf("%q has %d markers for %d answers", ex.Text, got, ex.BlankCount())
				}
				if !ex.Answers.SameKeys(ex.Hints) {
					t.Errorf("answer keys %v != hint keys %v", ex.Answers.Keys(), ex.Hints.Keys())
				}
				filled, err := ex.Fill(ex.Answers.Map())
				if err != nil {
					t.Fatalf("Fill() error = %v", err)
				}
				if filled != ex.OriginalText {
					t.Errorf("Fill() = %q, want %q", filled, ex.OriginalText)
				}
				for _, e := range ex.Answers {
					idx := tokenIndexOf(tokens, e.Value)
					if idx < 0 || !profile.Allowed.Contains(tokens[idx].POS) {
						t.Errorf("%s: answer %q is not an allowed category", profile.Tier, e.Value)
					}
				}
				if ex.SegmentNumber != 3 || ex.Start != 1.5 || ex.End != 4 || ex.Difficulty != profile.Tier {
					t.Errorf("segment metadata not carried over: %+v", ex)
				}
			}
		}
	}
}

func tokenIndexOf(tokens []domain.Token, text string) int {
	for i, t := range tokens {
		if t.Text == text {
			return i
		}
	}
	return -1
}

func TestBuildEasyTierNeverBlanksConnectors(t *testing.T) {
	tokens, err := annotate.NewLexicon().Annotate(t.Context(), "Si tuviera tiempo, iría al cine")
	if err != nil {
		t.Fatal(err)
	}
	profile := mustProfile(t, domain.TierEasy)
	seg := domain.Segment{Number: 1, Text: "Si tuviera tiempo, iría al cine"}

	for seed := range uint64(100) {
		ex, err := Build(seg, tokens, profile, newRand(seed))
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		for _, e := range ex.Answers {
			if e.Value == "Si" || e.Value == "al" {
				t.Fatalf("seed %d: %q blanked under facil", seed, e.Value)
			}
		}
		if !strings.HasPrefix(ex.Text, "Si ") {
			t.Errorf("seed %d: text = %q", seed, ex.Text)
		}
	}
}

func TestBuildHardTier(t *testing.T) {
	text := "Si tuviera tiempo, iría al cine"
	tokens, err := annotate.NewLexicon().Annotate(t.Context(), text)
	if err != nil {
		t.Fatal(err)
	}
	ex, err := Build(domain.Segment{Text: text}, tokens, mustProfile(t, domain.TierHard), newRand(1))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	// "Si" and "al" are too short to blank, leaving two candidates
	if want := "Si ___ tiempo, ___ al cine"; ex.Text != want {
		t.Errorf("Text = %q, want %q", ex.Text, want)
	}
	if v, _ := ex.Answers.Get("blank_0"); v != "tuviera" {
		t.Errorf("blank_0 = %q, want tuviera", v)
	}
}

func TestBuildDeterministic(t *testing.T) {
	text := "Aunque llovía, salimos a caminar por el parque y nos mojamos."
	tokens, err := annotate.NewLexicon().Annotate(t.Context(), text)
	if err != nil {
		t.Fatal(err)
	}
	profile := mustProfile(t, domain.TierHard)
	seg := domain.Segment{Text: text}

	a, err := Build(seg, tokens, profile, newRand(42))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(seg, tokens, profile, newRand(42))
	if err != nil {
		t.Fatal(err)
	}
	if a.Text != b.Text {
		t.Errorf("same seed produced %q and %q", a.Text, b.Text)
	}
}

func TestBuildNoCandidates(t *testing.T) {
	tokens := []domain.Token{
		tok(0, "La", " ", domain.POSDet, domain.DepDeterminer, ""),
		tok(1, "casa", "", domain.POSNoun, domain.DepRoot, ""),
		tok(2, ".", "", domain.POSPunct, domain.DepPunct, ""),
	}
	_, err := Build(domain.Segment{Text: "La casa."}, tokens, mustProfile(t, domain.TierHard), newRand(1))
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("error = %v, want ErrNoCandidates", err)
	}
}
