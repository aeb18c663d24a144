package interfaces

import (
	"context"

	"github.com/docflowhq/docstack/internal/models"
)

type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	ListBySubject(ctx context.Context, subjectID string) ([]*models.ActivityLog, error)
}
