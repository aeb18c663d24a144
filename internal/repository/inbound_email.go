package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/enum"
	errs "github.com/docflowhq/docstack/internal/errors"
	"github.com/docflowhq/docstack/internal/models"
	"github.com/docflowhq/docstack/internal/tracing"
	"github.com/docflowhq/docstack/internal/utils"
)

type inboundEmailRepository struct {
	db *gorm.DB
}

func NewInboundEmailRepository(db *gorm.DB) interfaces.InboundEmailRepository {
	return &inboundEmailRepository{
		db: db,
	}
}

// Create inserts the email row. Two concurrent deliveries of the same
// external id race on the (pipeline, external_email_id) uniqueness
// constraint; the loser gets ErrDuplicateEmail, which callers treat as
// success-no-op.
func (r *inboundEmailRepository) Create(ctx context.Context, email *models.InboundEmail) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "inboundEmailRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	err := r.db.WithContext(ctx).Create(email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			span.SetTag("duplicate", true)
			return errs.ErrDuplicateEmail
		}
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *inboundEmailRepository) GetByID(ctx context.Context, id string) (*models.InboundEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "inboundEmailRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.InboundEmail
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

func (r *inboundEmailRepository) GetByExternalID(ctx context.Context, pipeline enum.Pipeline, externalEmailID string) (*models.InboundEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "inboundEmailRepository.GetByExternalID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.InboundEmail
	if err := r.db.WithContext(ctx).
		Where("pipeline = ? AND external_email_id = ?", pipeline, externalEmailID).
		First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

func (r *inboundEmailRepository) Update(ctx context.Context, email *models.InboundEmail) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "inboundEmailRepository.Update")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	email.UpdatedAt = utils.Now()
	if err := r.db.WithContext(ctx).Save(email).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *inboundEmailRepository) ListByStatus(ctx context.Context, pipeline enum.Pipeline, status enum.EmailStatus, limit int) ([]*models.InboundEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "inboundEmailRepository.ListByStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var emails []*models.InboundEmail
	err := r.db.WithContext(ctx).
		Where("pipeline = ? AND status = ?", pipeline, status).
		Order("received_at ASC").
		Limit(limit).
		Find(&emails).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return emails, nil
}

func (r *inboundEmailRepository) CountByStatus(ctx context.Context, pipeline enum.Pipeline, tenantID string) (map[enum.EmailStatus]int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "inboundEmailRepository.CountByStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	type statusCount struct {
		Status enum.EmailStatus
		Count  int64
	}

	var rows []statusCount
	query := r.db.WithContext(ctx).
		Model(&models.InboundEmail{}).
		Select("status, count(*) as count").
		Where("pipeline = ?", pipeline)
	if tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	counts := make(map[enum.EmailStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
