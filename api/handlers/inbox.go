package handlers

import (
	"context"
	"net/http"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/docflowhq/docstack/dto"
	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/enum"
	errs "github.com/docflowhq/docstack/internal/errors"
	"github.com/docflowhq/docstack/internal/models"
	"github.com/docflowhq/docstack/internal/tracing"
	"github.com/docflowhq/docstack/internal/utils"
	"github.com/docflowhq/docstack/services/poller"
)

// InboxHandler serves the per-pipeline inbox management endpoints. Each route
// is registered once per pipeline; the pipeline arrives as a closure argument,
// not a path parameter.
type InboxHandler struct {
	settingsRepo interfaces.InboxSettingsRepository
	emailRepo    interfaces.InboundEmailRepository
	poller       *poller.Service
}

func NewInboxHandler(settingsRepo interfaces.InboxSettingsRepository, emailRepo interfaces.InboundEmailRepository, pollerService *poller.Service) *InboxHandler {
	return &InboxHandler{
		settingsRepo: settingsRepo,
		emailRepo:    emailRepo,
		poller:       pollerService,
	}
}

func (h *InboxHandler) GetSettings(pipeline enum.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "InboxHandler.GetSettings")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)
		tracing.TagPipeline(span, pipeline)

		tenant := utils.GetTenantFromContext(ctx)
		if tenant == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing tenant"})
			return
		}

		settings, err := h.settingsRepo.GetByPipelineAndTenant(ctx, pipeline, tenant)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
			return
		}
		if settings == nil {
			// Not configured yet; answer the defaults instead of a 404 so the
			// settings page always has something to render.
			settings = &models.InboxSettings{
				Pipeline:      pipeline,
				TenantID:      tenant,
				AutoExtract:   true,
				DefaultStatus: enum.RecordStatusDraft,
			}
		}

		c.JSON(http.StatusOK, toSettingsResponse(settings))
	}
}

func (h *InboxHandler) UpdateSettings(pipeline enum.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "InboxHandler.UpdateSettings")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)
		tracing.TagPipeline(span, pipeline)

		tenant := utils.GetTenantFromContext(ctx)
		if tenant == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing tenant"})
			return
		}

		var request dto.InboxSettingsRequest
		if err := c.BindJSON(&request); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
			return
		}

		address := utils.NormalizeEmailAddress(request.InboundEmailAddress)
		if address != "" {
			validation := mailvalidate.ValidateEmailSyntax(address)
			if !validation.IsValid {
				tracing.TraceErr(span, errs.ErrInvalidInboundAddress)
				c.JSON(http.StatusBadRequest, gin.H{"error": errs.ErrInvalidInboundAddress.Error()})
				return
			}
		}

		defaultStatus := enum.DecodeRecordStatus(request.DefaultStatus)
		if request.DefaultStatus != "" && defaultStatus == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid defaultStatus"})
			return
		}

		settings := &models.InboxSettings{
			Pipeline:            pipeline,
			TenantID:            tenant,
			IsEnabled:           request.IsEnabled,
			InboundEmailAddress: address,
			AutoExtract:         request.AutoExtract,
			AutoSubmit:          request.AutoSubmit,
			DefaultStatus:       defaultStatus,
			NotifyUserIDs:       request.NotifyUserIDs,
		}
		if err := h.settingsRepo.Upsert(ctx, settings); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
			return
		}

		c.JSON(http.StatusOK, toSettingsResponse(settings))
	}
}

func (h *InboxHandler) CheckEmails(pipeline enum.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "InboxHandler.CheckEmails")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)
		tracing.TagPipeline(span, pipeline)

		// The poll runs in the background; the caller only learns whether one
		// was started. A pass already in flight answers triggered=false.
		bgCtx := utils.WithCustomContext(context.Background(), utils.GetContext(ctx))
		triggered := h.poller.TriggerAsync(bgCtx, pipeline)

		c.JSON(http.StatusOK, dto.CheckEmailsResponse{Triggered: triggered})
	}
}

func (h *InboxHandler) Counts(pipeline enum.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "InboxHandler.Counts")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)
		tracing.TagPipeline(span, pipeline)

		tenant := utils.GetTenantFromContext(ctx)
		if tenant == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing tenant"})
			return
		}

		counts, err := h.emailRepo.CountByStatus(ctx, pipeline, tenant)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count emails"})
			return
		}

		response := dto.InboxCountsResponse{
			Pipeline: pipeline.String(),
			Counts:   make(map[string]int64, len(counts)),
		}
		for status, count := range counts {
			response.Counts[status.String()] = count
		}
		c.JSON(http.StatusOK, response)
	}
}

func toSettingsResponse(settings *models.InboxSettings) dto.InboxSettingsResponse {
	return dto.InboxSettingsResponse{
		Pipeline:            settings.Pipeline.String(),
		IsEnabled:           settings.IsEnabled,
		InboundEmailAddress: settings.InboundEmailAddress,
		AutoExtract:         settings.AutoExtract,
		AutoSubmit:          settings.AutoSubmit,
		DefaultStatus:       settings.DefaultStatus.String(),
		NotifyUserIDs:       settings.NotifyUserIDs,
	}
}
