package interfaces

import (
	"context"

	"github.com/docflowhq/docstack/internal/enum"
	"github.com/docflowhq/docstack/internal/models"
)

type InboxSettingsRepository interface {
	GetByPipelineAndTenant(ctx context.Context, pipeline enum.Pipeline, tenantID string) (*models.InboxSettings, error)
	ListEnabled(ctx context.Context) ([]*models.InboxSettings, error)
	ListEnabledByPipeline(ctx context.Context, pipeline enum.Pipeline) ([]*models.InboxSettings, error)
	Upsert(ctx context.Context, settings *models.InboxSettings) error
}
