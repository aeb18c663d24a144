package interfaces

import (
	"context"

	"github.com/docflowhq/docstack/dto"
)

// ExtractionService invokes the vision-capable model on page images (or plain
// text) and returns typed field candidates. The service is slow, unreliable
// and non-deterministic; failures degrade the record, never the pipeline.
type ExtractionService interface {
	ExtractFromImages(ctx context.Context, pages [][]byte, prompt string) (*dto.ExtractionResult, error)
	ExtractFromText(ctx context.Context, text string, prompt string) (*dto.ExtractionResult, error)
}
