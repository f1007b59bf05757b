package annotate

import (
	"context"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// Annotator turns text into an ordered, annotated token stream.
// Implementations fail with an error wrapping domain.ErrAnnotationUnavailable
// when the text cannot be processed.
type Annotator interface {
	// Name identifies the backend in logs
	Name() string

	// Annotate tokenizes and tags text. Joining the tokens' text and
	// whitespace must reproduce the input minus leading whitespace.
	Annotate(ctx context.Context, text string) ([]domain.Token, error)
}

// Ensure implementations satisfy Annotator
var (
	_ Annotator = (*Lexicon)(nil)
	_ Annotator = (*HTTPAnnotator)(nil)
	_ Annotator = (*ResilientAnnotator)(nil)
)
