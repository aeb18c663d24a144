package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/models"
	"github.com/docflowhq/docstack/internal/tracing"
)

type activityLogRepository struct {
	db *gorm.DB
}

func NewActivityLogRepository(db *gorm.DB) interfaces.ActivityLogRepository {
	return &activityLogRepository{
		db: db,
	}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "activityLogRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *activityLogRepository) ListBySubject(ctx context.Context, subjectID string) ([]*models.ActivityLog, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "activityLogRepository.ListBySubject")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var entries []*models.ActivityLog
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return entries, nil
}
