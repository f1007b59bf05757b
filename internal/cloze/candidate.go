// Package cloze builds fill-in-the-blank exercises from annotated transcript
// segments. Every function here is pure apart from the random source the
// caller passes in.
package cloze

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// Candidate is a token eligible for redaction under a profile
type Candidate struct {
	TokenIndex int
	Text       string
	POS        domain.POS
	Priority   int
}

// minFreeLength is the surface length a non-verb, non-pronoun token must
// exceed to be blanked. It keeps articles and short particles out.
const minFreeLength = 2

// SelectCandidates filters tokens down to redaction candidates, in token order.
func SelectCandidates(tokens []domain.Token, allowed domain.POSSet) []Candidate {
	var out []Candidate
	for _, tok := range tokens {
		if !isCandidate(tok, allowed) {
			continue
		}
		out = append(out, Candidate{
			TokenIndex: tok.Index,
			Text:       tok.Text,
			POS:        tok.POS,
			Priority:   Score(tok),
		})
	}
	return out
}

func isCandidate(tok domain.Token, allowed domain.POSSet) bool {
	if !allowed.Contains(tok.POS) {
		return false
	}
	if utf8.RuneCountInString(tok.Text) <= minFreeLength && tok.POS != domain.POSVerb && tok.POS != domain.POSPron {
		return false
	}
	return !tok.IsPunct
}

var (
	hardPrepositions = map[string]bool{"por": true, "para": true, "a": true}
	keyConnectors    = map[string]bool{"que": true, "aunque": true, "si": true, "porque": true}
)

// Priority weights
const (
	weightReflexive       = 10
	weightSubjunctive     = 8
	weightHardPreposition = 7
	weightPastVerb        = 6
	weightObjectPronoun   = 6
	weightVerb            = 5
	weightConnector       = 5
	weightPreposition     = 4
)

// Score assigns a candidate its pedagogical priority. Higher scores mark
// items learners find harder: mood and tense, idiomatic prepositions,
// object and reflexive pronouns, key connectors.
func Score(tok domain.Token) int {
	word := strings.ToLower(tok.Text)

	switch tok.POS {
	case domain.POSVerb:
		switch {
		case tok.Morph.Has(domain.MorphMood, domain.MoodSubjunctive):
			return weightSubjunctive
		case tok.Morph.Has(domain.MorphTense, domain.TensePast):
			return weightPastVerb
		default:
			return weightVerb
		}

	case domain.POSAdp:
		if hardPrepositions[word] {
			return weightHardPreposition
		}
		return weightPreposition

	case domain.POSPron:
		switch tok.Dep {
		case domain.DepExpletive:
			return weightReflexive
		case domain.DepDirectObject, domain.DepIndirectObject:
			return weightObjectPronoun
		}
		return 0

	case domain.POSSConj, domain.POSCConj:
		if keyConnectors[word] {
			return weightConnector
		}
		return 0
	}
	return 0
}

// Rank returns the candidates ordered by descending priority. Ties keep
// token order.
func Rank(cands []Candidate) []Candidate {
	ranked := make([]Candidate, len(cands))
	copy(ranked, cands)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Priority > ranked[j].Priority
	})
	return ranked
}
