package cloze

import (
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// ErrNoCandidates is returned by Build when a segment has no token eligible
// for redaction under the requested profile.
var ErrNoCandidates = errors.New("no redaction candidates")

// PlanBlanks draws the blank count uniformly from the range, caps it at the
// number of candidates and takes that many from the front of ranked.
// No random value is drawn when ranked is empty.
func PlanBlanks(ranked []Candidate, blanks domain.BlankRange, rng *rand.Rand) []Candidate {
	if len(ranked) == 0 {
		return nil
	}

	k := blanks.Min
	if blanks.Max > blanks.Min {
		k += rng.IntN(blanks.Max - blanks.Min + 1)
	}
	k = min(k, len(ranked))
	if k <= 0 {
		return nil
	}

	selected := make([]Candidate, k)
	copy(selected, ranked[:k])
	return selected
}

// Render rebuilds the segment text with the selected tokens replaced by the
// blank marker. Blank ids follow reading order: blank_0 is the leftmost.
func Render(tokens []domain.Token, selected []Candidate) (text string, answers, hints domain.BlankMap) {
	chosen := make(map[int]bool, len(selected))
	for _, c := range selected {
		chosen[c.TokenIndex] = true
	}

	var b strings.Builder
	answers = make(domain.BlankMap, 0, len(selected))
	hints = make(domain.BlankMap, 0, len(selected))
	for _, tok := range tokens {
		if !chosen[tok.Index] {
			b.WriteString(tok.TextWithWhitespace())
			continue
		}
		id := domain.BlankID(len(answers))
		b.WriteString(domain.BlankMarker)
		b.WriteString(tok.Whitespace)
		answers = append(answers, domain.BlankEntry{ID: id, Value: tok.Text})
		hints = append(hints, domain.BlankEntry{ID: id, Value: Hint(tok)})
	}
	return strings.TrimSpace(b.String()), answers, hints
}

// Hint describes a blank by its grammar without giving the word away
func Hint(tok domain.Token) string {
	var parts []string
	switch tok.POS {
	case domain.POSVerb:
		parts = append(parts, "verbo")
		if tok.Morph.Has(domain.MorphMood, domain.MoodSubjunctive) {
			parts = append(parts, "subjuntivo")
		}
	case domain.POSAdp:
		parts = append(parts, "preposición")
	case domain.POSPron:
		parts = append(parts, "pronombre")
	}
	if len(parts) == 0 {
		return "palabra funcional"
	}
	return strings.Join(parts, " - ")
}

// Build runs selection, scoring, planning and rendering for one segment.
// The returned exercise carries no ID or creation time; callers stamp it
// when they persist it.
func Build(seg domain.Segment, tokens []domain.Token, profile domain.DifficultyProfile, rng *rand.Rand) (*domain.Exercise, error) {
	cands := SelectCandidates(tokens, profile.Allowed)
	if len(cands) == 0 {
		return nil, ErrNoCandidates
	}

	selected := PlanBlanks(Rank(cands), profile.Blanks, rng)
	text, answers, hints := Render(tokens, selected)

	return &domain.Exercise{
		SegmentNumber: seg.Number,
		OriginalText:  strings.TrimSpace(seg.Text),
		Text:          text,
		Answers:       answers,
		Hints:         hints,
		Start:         seg.Start,
		End:           seg.End,
		Difficulty:    profile.Tier,
	}, nil
}
