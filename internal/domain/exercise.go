package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlankMarker replaces each redacted word in exercise text
const BlankMarker = "___"

// BlankID returns the identifier of the n-th blank, counted left to right
func BlankID(n int) string {
	return fmt.Sprintf("blank_%d", n)
}

// Segment is a time-bounded span of transcript text
type Segment struct {
	Number int     `json:"segment_number"`
	Text   string  `json:"text"`
	Start  float64 `json:"start_time"`
	End    float64 `json:"end_time"`
}

// BlankEntry pairs a blank identifier with a value
type BlankEntry struct {
	ID    string
	Value string
}

// BlankMap is an ordered blank-id -> value mapping. It marshals to a JSON
// object whose keys keep their order.
type BlankMap []BlankEntry

// Get returns the value for id
func (m BlankMap) Get(id string) (string, bool) {
	for _, e := range m {
		if e.ID == id {
			return e.Value, true
		}
	}
	return "", false
}

// Keys returns the blank ids in order
func (m BlankMap) Keys() []string {
	keys := make([]string, len(m))
	for i, e := range m {
		keys[i] = e.ID
	}
	return keys
}

// Map returns an unordered copy
func (m BlankMap) Map() map[string]string {
	out := make(map[string]string, len(m))
	for _, e := range m {
		out[e.ID] = e.Value
	}
	return out
}

// SameKeys reports whether both maps hold the same ids in the same order
func (m BlankMap) SameKeys(other BlankMap) bool {
	if len(m) != len(other) {
		return false
	}
	for i := range m {
		if m[i].ID != other[i].ID {
			return false
		}
	}
	return true
}

// MarshalJSON writes the entries as an ordered JSON object
func (m BlankMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.ID)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order
func (m *BlankMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("blank map: expected object, got %v", tok)
	}

	out := BlankMap{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("blank map: expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("blank map: value for %s: %w", key, err)
		}
		out = append(out, BlankEntry{ID: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// Exercise is a fill-in-the-blank exercise built from one transcript segment
type Exercise struct {
	ID            string    `json:"id"`
	VideoID       string    `json:"video_id,omitempty"`
	SegmentNumber int       `json:"segment_number"`
	OriginalText  string    `json:"original_text"`
	Text          string    `json:"exercise_text"`
	Answers       BlankMap  `json:"answers"`
	Hints         BlankMap  `json:"hints"`
	Start         float64   `json:"start_time"`
	End           float64   `json:"end_time"`
	Difficulty    Tier      `json:"difficulty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Stamp assigns an ID (when missing), the owning video and the creation time
func (e *Exercise) Stamp(videoID string) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.VideoID = videoID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
}

// BlankCount returns the number of blanks
func (e *Exercise) BlankCount() int {
	return len(e.Answers)
}

// Fill substitutes values into the blanks, left to right. Filling with the
// exercise's own answers reproduces the original text.
func (e *Exercise) Fill(values map[string]string) (string, error) {
	parts := strings.Split(e.Text, BlankMarker)
	if len(parts)-1 != len(e.Answers) {
		return "", fmt.Errorf("%w: %d blanks, %d answers", ErrBlankMismatch, len(parts)-1, len(e.Answers))
	}

	var b strings.Builder
	b.WriteString(parts[0])
	for i, entry := range e.Answers {
		b.WriteString(values[entry.ID])
		b.WriteString(parts[i+1])
	}
	return b.String(), nil
}

// BlankResult is the outcome for a single blank
type BlankResult struct {
	ID       string `json:"id"`
	Expected string `json:"expected"`
	Given    string `json:"given"`
	Correct  bool   `json:"correct"`
}

// CheckResult summarizes a learner's responses
type CheckResult struct {
	ExerciseID string        `json:"exercise_id"`
	Blanks     []BlankResult `json:"blanks"`
	Correct    int           `json:"correct"`
	Total      int           `json:"total"`
	AllCorrect bool          `json:"all_correct"`
}

// Check compares responses with the answers. Comparison ignores case and
// surrounding whitespace; missing responses count as wrong.
func (e *Exercise) Check(responses map[string]string) CheckResult {
	result := CheckResult{
		ExerciseID: e.ID,
		Blanks:     make([]BlankResult, 0, len(e.Answers)),
		Total:      len(e.Answers),
	}
	for _, entry := range e.Answers {
		given := responses[entry.ID]
		ok := normalizeAnswer(given) == normalizeAnswer(entry.Value)
		if ok {
			result.Correct++
		}
		result.Blanks = append(result.Blanks, BlankResult{
			ID:       entry.ID,
			Expected: entry.Value,
			Given:    given,
			Correct:  ok,
		})
	}
	result.AllCorrect = result.Correct == result.Total
	return result
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
