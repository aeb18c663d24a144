package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/models"
	"github.com/docflowhq/docstack/internal/tracing"
)

type extractedFieldRepository struct {
	db *gorm.DB
}

func NewExtractedFieldRepository(db *gorm.DB) interfaces.ExtractedFieldRepository {
	return &extractedFieldRepository{
		db: db,
	}
}

func (r *extractedFieldRepository) CreateBatch(ctx context.Context, fields []models.ExtractedField) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "extractedFieldRepository.CreateBatch")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("fields", len(fields))

	if len(fields) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Create(&fields).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *extractedFieldRepository) ListByRecord(ctx context.Context, recordID string) ([]*models.ExtractedField, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "extractedFieldRepository.ListByRecord")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var fields []*models.ExtractedField
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("created_at ASC").
		Find(&fields).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return fields, nil
}
