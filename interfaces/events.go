package interfaces

import (
	"context"

	"github.com/docflowhq/docstack/internal/models"
)

// EventsPublisher announces terminal pipeline transitions to interested
// consumers. Publishing is best-effort; a publish failure never fails
// ingestion.
type EventsPublisher interface {
	PublishEmailProcessed(ctx context.Context, email *models.InboundEmail) error
	PublishDocumentCreated(ctx context.Context, record *models.DocumentRecord) error
	Close() error
}
