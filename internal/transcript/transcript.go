// Package transcript reads transcription output into numbered segments.
package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// rawSegment is one entry of the transcription "segments" array. Snippet
// style sources give a duration instead of an end time.
type rawSegment struct {
	Text     *string  `json:"text"`
	Start    *float64 `json:"start"`
	End      *float64 `json:"end"`
	Duration *float64 `json:"duration"`
}

type document struct {
	Text     string        `json:"text,omitempty"`
	Language string        `json:"language,omitempty"`
	Segments *[]rawSegment `json:"segments"`
}

// Transcript is a parsed transcription
type Transcript struct {
	Language string
	Text     string
	Segments []domain.Segment
}

// Parse decodes a transcription document. Segments are numbered from 1 in
// document order and their text is trimmed. Empty-text segments are kept.
func Parse(r io.Reader) (*Transcript, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode transcript: %w", domain.ErrNoSegmentData, err)
	}
	if doc.Segments == nil {
		return nil, fmt.Errorf("%w: missing segments", domain.ErrNoSegmentData)
	}

	segs := make([]domain.Segment, 0, len(*doc.Segments))
	for i, raw := range *doc.Segments {
		seg, err := raw.toSegment(i + 1)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}

	return &Transcript{
		Language: doc.Language,
		Text:     doc.Text,
		Segments: segs,
	}, nil
}

// ParseFile reads and parses a transcription file
func ParseFile(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func (r rawSegment) toSegment(number int) (domain.Segment, error) {
	if r.Text == nil {
		return domain.Segment{}, fmt.Errorf("%w: segment %d has no text", domain.ErrNoSegmentData, number)
	}
	if r.Start == nil {
		return domain.Segment{}, fmt.Errorf("%w: segment %d has no start", domain.ErrNoSegmentData, number)
	}

	var end float64
	switch {
	case r.End != nil:
		end = *r.End
	case r.Duration != nil:
		end = *r.Start + *r.Duration
	default:
		return domain.Segment{}, fmt.Errorf("%w: segment %d has no end", domain.ErrNoSegmentData, number)
	}
	if end < *r.Start {
		return domain.Segment{}, fmt.Errorf("%w: segment %d ends before it starts", domain.ErrInvalidInput, number)
	}

	return domain.Segment{
		Number: number,
		Text:   strings.TrimSpace(*r.Text),
		Start:  *r.Start,
		End:    end,
	}, nil
}
