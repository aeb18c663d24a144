package events

import (
	"context"

	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/models"
)

// noopPublisher is used when no RABBITMQ_URL is configured. Ingestion runs
// fully without a broker; events are simply not emitted.
type noopPublisher struct{}

func NewNoopPublisher() interfaces.EventsPublisher {
	return noopPublisher{}
}

func (noopPublisher) PublishEmailProcessed(ctx context.Context, email *models.InboundEmail) error {
	return nil
}

func (noopPublisher) PublishDocumentCreated(ctx context.Context, record *models.DocumentRecord) error {
	return nil
}

func (noopPublisher) Close() error {
	return nil
}
