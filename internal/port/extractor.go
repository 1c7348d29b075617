package port

import (
	"context"

	"github.com/okhta/vidlink/internal/domain"
)

// Extractor resolves a media URL into raw structured metadata. The adapter
// bounds every call with a hard timeout; a deadline hit surfaces as an
// error carrying a timeout-indicating message.
type Extractor interface {
	Extract(ctx context.Context, sourceURL string) (*domain.RawMetadata, error)
}
