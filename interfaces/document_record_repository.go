package interfaces

import (
	"context"

	"github.com/docflowhq/docstack/internal/models"
)

type DocumentRecordRepository interface {
	Create(ctx context.Context, record *models.DocumentRecord) error
	GetByID(ctx context.Context, id string) (*models.DocumentRecord, error)
	Update(ctx context.Context, record *models.DocumentRecord) error
	CountBySourceEmail(ctx context.Context, sourceEmailID string) (int64, error)
}
