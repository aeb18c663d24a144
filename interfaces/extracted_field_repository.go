package interfaces

import (
	"context"

	"github.com/docflowhq/docstack/internal/models"
)

type ExtractedFieldRepository interface {
	// CreateBatch inserts all field rows of one extraction call in a single
	// batch; rows are never updated in place.
	CreateBatch(ctx context.Context, fields []models.ExtractedField) error
	ListByRecord(ctx context.Context, recordID string) ([]*models.ExtractedField, error)
}
