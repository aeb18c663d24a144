package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/models"
	"github.com/docflowhq/docstack/internal/tracing"
	"github.com/docflowhq/docstack/internal/utils"
)

type documentRecordRepository struct {
	db *gorm.DB
}

func NewDocumentRecordRepository(db *gorm.DB) interfaces.DocumentRecordRepository {
	return &documentRecordRepository{
		db: db,
	}
}

func (r *documentRecordRepository) Create(ctx context.Context, record *models.DocumentRecord) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "documentRecordRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *documentRecordRepository) GetByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "documentRecordRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var record models.DocumentRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &record, nil
}

func (r *documentRecordRepository) Update(ctx context.Context, record *models.DocumentRecord) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "documentRecordRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	record.UpdatedAt = utils.Now()
	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *documentRecordRepository) CountBySourceEmail(ctx context.Context, sourceEmailID string) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "documentRecordRepository.CountBySourceEmail")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DocumentRecord{}).
		Where("source_email_id = ?", sourceEmailID).
		Count(&count).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}
	return count, nil
}
