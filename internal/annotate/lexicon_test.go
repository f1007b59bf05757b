package annotate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

func annotate(t *testing.T, l *Lexicon, text string) []domain.Token {
	t.Helper()
	tokens, err := l.Annotate(context.Background(), text)
	if err != nil {
		t.Fatalf("Annotate(%q) error = %v", text, err)
	}
	return tokens
}

func TestLexiconRoundTrip(t *testing.T) {
	l := NewLexicon()
	tests := []string{
		"Si tuviera tiempo, iría al cine",
		"¿Qué  haces   mañana?",
		"Se lo dije ayer.\n",
		"Hola",
		"El niño, que corría, se cayó.",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			tokens := annotate(t, l, text)
			if got := domain.JoinTokens(tokens); got != text {
				t.Errorf("JoinTokens() = %q, want %q", got, text)
			}
			for i, tok := range tokens {
				if tok.Index != i {
					t.Errorf("token %d has Index %d", i, tok.Index)
				}
			}
		})
	}
}

func TestLexiconDropsLeadingWhitespace(t *testing.T) {
	tokens := annotate(t, NewLexicon(), "   Hola mundo")
	if got := domain.JoinTokens(tokens); got != "Hola mundo" {
		t.Errorf("JoinTokens() = %q, want %q", got, "Hola mundo")
	}
}

func TestLexiconTags(t *testing.T) {
	tokens := annotate(t, NewLexicon(), "Si tuviera tiempo, iría al cine")

	want := []struct {
		text string
		pos  domain.POS
	}{
		{"Si", domain.POSSConj},
		{"tuviera", domain.POSVerb},
		{"tiempo", domain.POSNoun},
		{",", domain.POSPunct},
		{"iría", domain.POSVerb},
		{"al", domain.POSAdp},
		{"cine", domain.POSNoun},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, w := range want {
		if tokens[i].Text != w.text || tokens[i].POS != w.pos {
			t.Errorf("token %d = %q/%s, want %q/%s", i, tokens[i].Text, tokens[i].POS, w.text, w.pos)
		}
	}

	if !tokens[1].Morph.Has(domain.MorphMood, domain.MoodSubjunctive) {
		t.Errorf("tuviera morph = %v, want Mood=Sub", tokens[1].Morph)
	}
	if !tokens[3].IsPunct {
		t.Error("comma should be punctuation")
	}
}

func TestLexiconSuffixHeuristics(t *testing.T) {
	tests := []struct {
		word  string
		pos   domain.POS
		key   domain.MorphKey
		value string
	}{
		{"hablara", domain.POSVerb, domain.MorphMood, domain.MoodSubjunctive},
		{"comiese", domain.POSVerb, domain.MorphMood, domain.MoodSubjunctive},
		{"hablaron", domain.POSVerb, domain.MorphTense, domain.TensePast},
		{"comió", domain.POSVerb, domain.MorphTense, domain.TensePast},
		{"cantaba", domain.POSVerb, domain.MorphTense, domain.TenseImperfect},
		{"comería", domain.POSVerb, domain.MorphMood, domain.MoodConditional},
		{"rápidamente", domain.POSAdv, "", ""},
		{"casa", domain.POSNoun, "", ""},
		{"día", domain.POSNoun, "", ""},
	}

	l := NewLexicon()
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			tokens := annotate(t, l, "y "+tt.word)
			tok := tokens[1]
			if tok.POS != tt.pos {
				t.Errorf("POS = %s, want %s", tok.POS, tt.pos)
			}
			if tt.key != "" && !tok.Morph.Has(tt.key, tt.value) {
				t.Errorf("Morph = %v, want %s=%s", tok.Morph, tt.key, tt.value)
			}
		})
	}
}

func TestLexiconClitics(t *testing.T) {
	l := NewLexicon()

	tokens := annotate(t, l, "Ella se lo dijo")
	if tokens[1].POS != domain.POSPron || tokens[1].Dep != domain.DepExpletive {
		t.Errorf("se = %s/%s, want PRON/expl", tokens[1].POS, tokens[1].Dep)
	}
	if tokens[2].POS != domain.POSPron || tokens[2].Dep != domain.DepDirectObject {
		t.Errorf("lo = %s/%s, want PRON/obj", tokens[2].POS, tokens[2].Dep)
	}

	tokens = annotate(t, l, "la casa")
	if tokens[0].POS != domain.POSDet {
		t.Errorf("la before noun = %s, want DET", tokens[0].POS)
	}

	tokens = annotate(t, l, "la vi")
	if tokens[0].POS != domain.POSPron {
		t.Errorf("la before verb = %s, want PRON", tokens[0].POS)
	}

	tokens = annotate(t, l, "le dijo")
	if tokens[0].Dep != domain.DepIndirectObject {
		t.Errorf("le = %s, want iobj", tokens[0].Dep)
	}
}

func TestLexiconProperNouns(t *testing.T) {
	tokens := annotate(t, NewLexicon(), "Vivo en Madrid")
	if tokens[2].POS != domain.POSPropN {
		t.Errorf("Madrid = %s, want PROPN", tokens[2].POS)
	}
}

func TestLexiconNormalizesDecomposedAccents(t *testing.T) {
	decomposed := "iri\u0301a"
	tokens := annotate(t, NewLexicon(), decomposed)
	if len(tokens) != 1 {
		t.Fatalf("got %d tokens, want 1", len(tokens))
	}
	if tokens[0].POS != domain.POSVerb {
		t.Errorf("POS = %s, want VERB", tokens[0].POS)
	}
	if tokens[0].Text != decomposed {
		t.Errorf("surface text changed to %q", tokens[0].Text)
	}
}

func TestLexiconEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := NewLexicon().Annotate(context.Background(), text)
		if !errors.Is(err, domain.ErrAnnotationUnavailable) {
			t.Errorf("Annotate(%q) error = %v, want ErrAnnotationUnavailable", text, err)
		}
	}
}

func TestLexiconCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLexicon().Annotate(ctx, "hola"); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestLoadLexiconFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	content := `words:
  guay:
    pos: ADJ
  cine:
    pos: VERB
    morph: "Mood=Ind|Tense=Pres"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := LoadLexiconFile(path)
	if err != nil {
		t.Fatalf("LoadLexiconFile() error = %v", err)
	}
	if l.Len() <= NewLexicon().Len() {
		t.Errorf("Len() = %d, expected the file to add entries", l.Len())
	}

	tokens := annotate(t, l, "muy guay el cine")
	if tokens[1].POS != domain.POSAdj {
		t.Errorf("guay = %s, want ADJ", tokens[1].POS)
	}
	if tokens[3].POS != domain.POSVerb {
		t.Errorf("cine = %s, want VERB override", tokens[3].POS)
	}
}

func TestLoadLexiconFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadLexiconFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("words:\n  foo:\n    pos: NOPE\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadLexiconFile(bad); err == nil {
		t.Error("expected error for unknown pos")
	}
}
