package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/enum"
	"github.com/docflowhq/docstack/internal/models"
	"github.com/docflowhq/docstack/internal/tracing"
	"github.com/docflowhq/docstack/internal/utils"
)

type inboxSettingsRepository struct {
	db *gorm.DB
}

func NewInboxSettingsRepository(db *gorm.DB) interfaces.InboxSettingsRepository {
	return &inboxSettingsRepository{
		db: db,
	}
}

func (r *inboxSettingsRepository) GetByPipelineAndTenant(ctx context.Context, pipeline enum.Pipeline, tenantID string) (*models.InboxSettings, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "inboxSettingsRepository.GetByPipelineAndTenant")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var settings models.InboxSettings
	if err := r.db.WithContext(ctx).
		Where("pipeline = ? AND tenant_id = ?", pipeline, tenantID).
		First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &settings, nil
}

func (r *inboxSettingsRepository) ListEnabled(ctx context.Context) ([]*models.InboxSettings, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "inboxSettingsRepository.ListEnabled")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var settings []*models.InboxSettings
	err := r.db.WithContext(ctx).
		Where("is_enabled = ?", true).
		Find(&settings).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return settings, nil
}

func (r *inboxSettingsRepository) ListEnabledByPipeline(ctx context.Context, pipeline enum.Pipeline) ([]*models.InboxSettings, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "inboxSettingsRepository.ListEnabledByPipeline")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var settings []*models.InboxSettings
	err := r.db.WithContext(ctx).
		Where("pipeline = ? AND is_enabled = ?", pipeline, true).
		Find(&settings).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return settings, nil
}

func (r *inboxSettingsRepository) Upsert(ctx context.Context, settings *models.InboxSettings) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "inboxSettingsRepository.Upsert")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	existing, err := r.GetByPipelineAndTenant(ctx, settings.Pipeline, settings.TenantID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if existing != nil {
		settings.ID = existing.ID
		settings.CreatedAt = existing.CreatedAt
		settings.UpdatedAt = utils.Now()
		return r.db.WithContext(ctx).Save(settings).Error
	}
	return r.db.WithContext(ctx).Create(settings).Error
}
