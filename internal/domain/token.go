package domain

import (
	"sort"
	"strings"
)

// POS is a Universal Dependencies part-of-speech tag
type POS string

const (
	POSAdj   POS = "ADJ"
	POSAdp   POS = "ADP"
	POSAdv   POS = "ADV"
	POSAux   POS = "AUX"
	POSCConj POS = "CCONJ"
	POSDet   POS = "DET"
	POSIntj  POS = "INTJ"
	POSNoun  POS = "NOUN"
	POSNum   POS = "NUM"
	POSPart  POS = "PART"
	POSPron  POS = "PRON"
	POSPropN POS = "PROPN"
	POSPunct POS = "PUNCT"
	POSSConj POS = "SCONJ"
	POSSym   POS = "SYM"
	POSVerb  POS = "VERB"
	POSOther POS = "X"
)

var knownPOS = map[POS]bool{
	POSAdj: true, POSAdp: true, POSAdv: true, POSAux: true, POSCConj: true,
	POSDet: true, POSIntj: true, POSNoun: true, POSNum: true, POSPart: true,
	POSPron: true, POSPropN: true, POSPunct: true, POSSConj: true, POSSym: true,
	POSVerb: true, POSOther: true,
}

// ParsePOS maps an annotator tag onto the closed POS set.
// Unrecognized tags become POSOther.
func ParsePOS(tag string) POS {
	p := POS(strings.ToUpper(strings.TrimSpace(tag)))
	if knownPOS[p] {
		return p
	}
	return POSOther
}

// IsValid reports whether p belongs to the closed tag set
func (p POS) IsValid() bool {
	return knownPOS[p]
}

// POSSet is an immutable-by-convention set of POS tags
type POSSet map[POS]struct{}

// NewPOSSet builds a set from the given tags
func NewPOSSet(tags ...POS) POSSet {
	s := make(POSSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports whether tag is in the set
func (s POSSet) Contains(tag POS) bool {
	_, ok := s[tag]
	return ok
}

// Sorted returns the tags in lexical order
func (s POSSet) Sorted() []POS {
	out := make([]POS, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DepLabel is a Universal Dependencies relation label
type DepLabel string

const (
	DepExpletive      DepLabel = "expl"
	DepDirectObject   DepLabel = "obj"
	DepIndirectObject DepLabel = "iobj"
	DepSubject        DepLabel = "nsubj"
	DepRoot           DepLabel = "ROOT"
	DepMark           DepLabel = "mark"
	DepCase           DepLabel = "case"
	DepCoordinator    DepLabel = "cc"
	DepDeterminer     DepLabel = "det"
	DepPunct          DepLabel = "punct"
)

// ParseDepLabel normalizes annotator relation labels. Subtyped labels such
// as "expl:pv" or "obl:arg" collapse to their universal base relation.
func ParseDepLabel(label string) DepLabel {
	label = strings.TrimSpace(label)
	if strings.EqualFold(label, "root") {
		return DepRoot
	}
	if i := strings.IndexByte(label, ':'); i > 0 {
		label = label[:i]
	}
	return DepLabel(strings.ToLower(label))
}

// MorphKey is one of the recognized morphological feature categories
type MorphKey string

const (
	MorphMood     MorphKey = "Mood"
	MorphTense    MorphKey = "Tense"
	MorphPerson   MorphKey = "Person"
	MorphNumber   MorphKey = "Number"
	MorphGender   MorphKey = "Gender"
	MorphVerbForm MorphKey = "VerbForm"
	MorphPronType MorphKey = "PronType"
	MorphReflex   MorphKey = "Reflex"
	MorphCase     MorphKey = "Case"
)

var knownMorphKeys = map[MorphKey]bool{
	MorphMood: true, MorphTense: true, MorphPerson: true, MorphNumber: true,
	MorphGender: true, MorphVerbForm: true, MorphPronType: true,
	MorphReflex: true, MorphCase: true,
}

// Morphology values the scoring and hint rules look at
const (
	MoodSubjunctive = "Sub"
	MoodIndicative  = "Ind"
	MoodConditional = "Cnd"
	TensePast       = "Past"
	TensePresent    = "Pres"
	TenseImperfect  = "Imp"
	TenseFuture     = "Fut"
)

// Morph holds morphological features. Multi-valued features are stored
// comma separated, as in UD ("PronType=Int,Rel").
type Morph map[MorphKey]string

// ParseMorph parses the UD feature string "Mood=Sub|Tense=Imp".
// Unknown feature keys are dropped.
func ParseMorph(s string) Morph {
	m := Morph{}
	for _, part := range strings.Split(s, "|") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || v == "" {
			continue
		}
		key := MorphKey(k)
		if !knownMorphKeys[key] {
			continue
		}
		m[key] = v
	}
	return m
}

// Has reports whether feature key carries value among its values
func (m Morph) Has(key MorphKey, value string) bool {
	for _, v := range strings.Split(m[key], ",") {
		if v == value {
			return true
		}
	}
	return false
}

// String renders the features in UD order-independent canonical form
func (m Morph) String() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[MorphKey(k)])
	}
	return strings.Join(parts, "|")
}

// Token is one annotated unit of a segment's text
type Token struct {
	Index      int      `json:"index"`
	Text       string   `json:"text"`
	Whitespace string   `json:"whitespace"`
	POS        POS      `json:"pos"`
	Dep        DepLabel `json:"dep"`
	Morph      Morph    `json:"morph,omitempty"`
	IsPunct    bool     `json:"is_punct"`
}

// TextWithWhitespace returns the surface text followed by its trailing whitespace
func (t Token) TextWithWhitespace() string {
	return t.Text + t.Whitespace
}

// JoinTokens reconstructs the annotated text
func JoinTokens(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.TextWithWhitespace())
	}
	return b.String()
}
