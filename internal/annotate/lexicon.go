package annotate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// entry is the lexical knowledge attached to a word form
type entry struct {
	POS   domain.POS
	Morph string
	Dep   domain.DepLabel
}

// Lexicon is a rule-based Spanish annotator: a closed-class word list plus
// verb ending heuristics. It needs no model and is deterministic, which makes
// it the default for tests and offline generation.
type Lexicon struct {
	entries map[string]entry
}

// NewLexicon creates a lexicon seeded with the built-in Spanish word list
func NewLexicon() *Lexicon {
	l := &Lexicon{entries: make(map[string]entry, len(builtinEntries))}
	for w, e := range builtinEntries {
		l.entries[foldKey(w)] = e
	}
	return l
}

// LexiconFile is the YAML layout for extra lexicon entries
type LexiconFile struct {
	Words map[string]struct {
		POS   string `yaml:"pos"`
		Morph string `yaml:"morph"`
		Dep   string `yaml:"dep"`
	} `yaml:"words"`
}

// LoadLexiconFile extends the built-in lexicon with entries from a YAML file.
// File entries override built-in ones.
func LoadLexiconFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon file: %w", err)
	}

	var file LexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse lexicon file: %w", err)
	}

	l := NewLexicon()
	for word, w := range file.Words {
		pos := domain.ParsePOS(w.POS)
		if pos == domain.POSOther && !strings.EqualFold(w.POS, string(domain.POSOther)) {
			return nil, fmt.Errorf("lexicon word %q: unknown pos %q", word, w.POS)
		}
		l.Add(word, pos, w.Morph, domain.ParseDepLabel(w.Dep))
	}
	return l, nil
}

// Add registers or replaces a word form
func (l *Lexicon) Add(word string, pos domain.POS, morph string, dep domain.DepLabel) {
	l.entries[foldKey(word)] = entry{POS: pos, Morph: morph, Dep: dep}
}

// Len returns the number of known word forms
func (l *Lexicon) Len() int {
	return len(l.entries)
}

func (l *Lexicon) Name() string {
	return "lexicon"
}

// Annotate tokenizes text and tags each token
func (l *Lexicon) Annotate(ctx context.Context, text string) ([]domain.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrAnnotationUnavailable)
	}

	tokens := tokenize(text)
	for i := range tokens {
		l.tag(tokens, i)
	}
	l.assignClitics(tokens)
	return tokens, nil
}

// tokenize splits text into words and single-rune punctuation, attaching
// trailing whitespace to the preceding token. Leading whitespace is dropped.
func tokenize(text string) []domain.Token {
	var tokens []domain.Token
	text = strings.TrimLeftFunc(text, unicode.IsSpace)

	for len(text) > 0 {
		r, size := utf8.DecodeRuneInString(text)
		end := size
		if isWordRune(r) {
			for end < len(text) {
				r2, s2 := utf8.DecodeRuneInString(text[end:])
				if !isWordRune(r2) {
					break
				}
				end += s2
			}
		}
		word := text[:end]
		text = text[end:]

		ws := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
		tokens = append(tokens, domain.Token{
			Index:      len(tokens),
			Text:       word,
			Whitespace: text[:ws],
		})
		text = text[ws:]
	}
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

func (l *Lexicon) tag(tokens []domain.Token, i int) {
	tok := &tokens[i]
	r, _ := utf8.DecodeRuneInString(tok.Text)

	switch {
	case !isWordRune(r):
		tok.POS = domain.POSPunct
		tok.Dep = domain.DepPunct
		tok.IsPunct = true
		return
	case unicode.IsDigit(r):
		tok.POS = domain.POSNum
		tok.Dep = "nummod"
		return
	}

	key := foldKey(tok.Text)
	if e, ok := l.entries[key]; ok {
		tok.POS = e.POS
		tok.Morph = domain.ParseMorph(e.Morph)
		tok.Dep = e.Dep
		if tok.Dep == "" {
			tok.Dep = defaultDep(e.POS)
		}
		return
	}

	if unicode.IsUpper(r) && !sentenceInitial(tokens, i) {
		tok.POS = domain.POSPropN
		tok.Dep = "flat"
		return
	}

	pos, morph := guessBySuffix(key)
	tok.POS = pos
	tok.Morph = domain.ParseMorph(morph)
	tok.Dep = defaultDep(pos)
}

// assignClitics resolves object and reflexive clitics. "la", "lo", "los"
// and "las" before a verb are pronouns, not articles.
func (l *Lexicon) assignClitics(tokens []domain.Token) {
	for i := range tokens {
		tok := &tokens[i]
		key := foldKey(tok.Text)
		dep, ok := cliticDeps[key]
		if !ok || !nextIsVerb(tokens, i) {
			continue
		}
		tok.POS = domain.POSPron
		tok.Dep = dep
		if tok.Morph == nil {
			tok.Morph = domain.Morph{}
		}
		tok.Morph[domain.MorphPronType] = "Prs"
	}
}

func nextIsVerb(tokens []domain.Token, i int) bool {
	for j := i + 1; j < len(tokens); j++ {
		switch tokens[j].POS {
		case domain.POSVerb, domain.POSAux:
			return true
		case domain.POSPron:
			// clitic clusters: "se lo dijo"
			if _, ok := cliticDeps[foldKey(tokens[j].Text)]; ok {
				continue
			}
		}
		return false
	}
	return false
}

func sentenceInitial(tokens []domain.Token, i int) bool {
	if i == 0 {
		return true
	}
	prev := tokens[i-1].Text
	return prev == "." || prev == "!" || prev == "?" || prev == "¿" || prev == "¡" || prev == "\"" || prev == "«"
}

func defaultDep(pos domain.POS) domain.DepLabel {
	switch pos {
	case domain.POSAdp:
		return domain.DepCase
	case domain.POSSConj:
		return domain.DepMark
	case domain.POSCConj:
		return domain.DepCoordinator
	case domain.POSDet:
		return domain.DepDeterminer
	case domain.POSPunct:
		return domain.DepPunct
	case domain.POSVerb:
		return domain.DepRoot
	case domain.POSPron:
		return domain.DepSubject
	default:
		return "dep"
	}
}

// foldKey lower-cases and NFC-normalizes a word so decomposed accents from
// transcription output match the lexicon.
func foldKey(word string) string {
	return norm.NFC.String(strings.ToLower(word))
}

type suffixRule struct {
	suffix string
	pos    domain.POS
	morph  string
}

// suffixRules are checked in order; the first match wins
var suffixRules = []suffixRule{
	{"mente", domain.POSAdv, ""},
	{"iéramos", domain.POSVerb, "Mood=Sub|Tense=Imp"},
	{"áramos", domain.POSVerb, "Mood=Sub|Tense=Imp"},
	{"iesen", domain.POSVerb, "Mood=Sub|Tense=Imp"},
	{"ieran", domain.POSVerb, "Mood=Sub|Tense=Imp"},
	{"ieras", domain.POSVerb, "Mood=Sub|Tense=Imp"},
	{"iese", domain.POSVerb, "Mood=Sub|Tense=Imp"},
	{"iera", domain.POSVerb, "Mood=Sub|Tense=Imp"},
	{"asen", domain.POSVerb, "Mood=Sub|Tense=Imp"},
	{"aran", domain.POSVerb, "Mood=Sub|Tense=Imp"},
	{"aras", domain.POSVerb, "Mood=Sub|Tense=Imp"},
	{"ase", domain.POSVerb, "Mood=Sub|Tense=Imp"},
	{"ara", domain.POSVerb, "Mood=Sub|Tense=Imp"},
	{"ríamos", domain.POSVerb, "Mood=Cnd"},
	{"rían", domain.POSVerb, "Mood=Cnd"},
	{"rías", domain.POSVerb, "Mood=Cnd"},
	{"ría", domain.POSVerb, "Mood=Cnd"},
	{"ábamos", domain.POSVerb, "Mood=Ind|Tense=Imp"},
	{"aban", domain.POSVerb, "Mood=Ind|Tense=Imp"},
	{"abas", domain.POSVerb, "Mood=Ind|Tense=Imp"},
	{"aba", domain.POSVerb, "Mood=Ind|Tense=Imp"},
	{"íamos", domain.POSVerb, "Mood=Ind|Tense=Imp"},
	{"ían", domain.POSVerb, "Mood=Ind|Tense=Imp"},
	{"ías", domain.POSVerb, "Mood=Ind|Tense=Imp"},
	{"ía", domain.POSVerb, "Mood=Ind|Tense=Imp"},
	{"ieron", domain.POSVerb, "Mood=Ind|Tense=Past"},
	{"aron", domain.POSVerb, "Mood=Ind|Tense=Past"},
	{"aste", domain.POSVerb, "Mood=Ind|Tense=Past"},
	{"iste", domain.POSVerb, "Mood=Ind|Tense=Past"},
	{"ió", domain.POSVerb, "Mood=Ind|Tense=Past"},
	{"ó", domain.POSVerb, "Mood=Ind|Tense=Past"},
	{"ando", domain.POSVerb, "VerbForm=Ger"},
	{"iendo", domain.POSVerb, "VerbForm=Ger"},
	{"amos", domain.POSVerb, "Mood=Ind|Tense=Pres"},
	{"emos", domain.POSVerb, "Mood=Ind|Tense=Pres"},
	{"imos", domain.POSVerb, "Mood=Ind|Tense=Pres"},
	{"ado", domain.POSVerb, "VerbForm=Part"},
	{"ido", domain.POSVerb, "VerbForm=Part"},
	{"ar", domain.POSVerb, "VerbForm=Inf"},
	{"er", domain.POSVerb, "VerbForm=Inf"},
	{"ir", domain.POSVerb, "VerbForm=Inf"},
}

// minSuffixWord keeps short nouns ("día", "mar") out of the verb rules
const minSuffixWord = 4

func guessBySuffix(word string) (domain.POS, string) {
	if utf8.RuneCountInString(word) >= minSuffixWord {
		for _, rule := range suffixRules {
			if strings.HasSuffix(word, rule.suffix) {
				return rule.pos, rule.morph
			}
		}
	}
	return domain.POSNoun, ""
}
