package interfaces

import (
	"context"

	"github.com/docflowhq/docstack/internal/enum"
	"github.com/docflowhq/docstack/internal/models"
)

type InboundEmailRepository interface {
	// Create inserts the email and returns errs.ErrDuplicateEmail when the
	// (pipeline, external_email_id) uniqueness constraint fires. Callers must
	// not read-before-insert; the constraint is the dedup gate.
	Create(ctx context.Context, email *models.InboundEmail) error
	GetByID(ctx context.Context, id string) (*models.InboundEmail, error)
	GetByExternalID(ctx context.Context, pipeline enum.Pipeline, externalEmailID string) (*models.InboundEmail, error)
	Update(ctx context.Context, email *models.InboundEmail) error
	ListByStatus(ctx context.Context, pipeline enum.Pipeline, status enum.EmailStatus, limit int) ([]*models.InboundEmail, error)
	CountByStatus(ctx context.Context, pipeline enum.Pipeline, tenantID string) (map[enum.EmailStatus]int64, error)
}
