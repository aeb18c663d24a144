package interfaces

import (
	"context"
	"time"

	"github.com/docflowhq/docstack/dto"
)

// MailProviderClient is the HTTP contract of the external mail-receiving
// provider. All three calls run with bounded timeouts; a timeout is the
// corresponding failure path of the caller, never an indefinite block.
type MailProviderClient interface {
	FetchEmail(ctx context.Context, emailID string) (*dto.ProviderEmail, error)
	FetchAttachments(ctx context.Context, emailID string) ([]dto.ProviderAttachment, error)
	DownloadAttachment(ctx context.Context, url string) ([]byte, error)
	// ListInboundEmails backs the poller: summaries of emails delivered to the
	// given address since the cutoff, in the same shape as webhook events.
	ListInboundEmails(ctx context.Context, address string, since time.Time) ([]dto.InboundEventData, error)
}
