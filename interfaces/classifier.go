package interfaces

import (
	"context"

	"github.com/docflowhq/docstack/dto"
)

// AttachmentClassifier decides which attachments of a raw email are relevant
// for ingestion and rasterizes PDFs into page images for extraction.
type AttachmentClassifier interface {
	Classify(ctx context.Context, attachments []dto.ProviderAttachment) []dto.ProviderAttachment
	Rasterize(ctx context.Context, pdf []byte, maxPages int) ([][]byte, error)
}
