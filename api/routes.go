package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/docflowhq/docstack/api/handlers"
	"github.com/docflowhq/docstack/api/middleware"
	"github.com/docflowhq/docstack/internal/enum"
	"github.com/docflowhq/docstack/internal/logger"
	"github.com/docflowhq/docstack/internal/repository"
	"github.com/docflowhq/docstack/internal/tracing"
	"github.com/docflowhq/docstack/services"
)

// inboxSlugs maps each pipeline to its URL segment under /v1.
var inboxSlugs = map[enum.Pipeline]string{
	enum.PipelineAccountsPayable: "accounts-payable-inbox",
	enum.PipelineDrafting:        "drafting-inbox",
	enum.PipelineTender:          "tender-inbox",
}

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, log logger.Logger, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	webhookHandler := handlers.NewWebhookHandler(log, s.IngestionService, s.Dispatcher)
	inboxHandler := handlers.NewInboxHandler(repos.InboxSettingsRepository, repos.InboundEmailRepository, s.PollerService)

	// Health endpoint stays unauthenticated for the load balancer.
	r.GET("/health", handlers.HealthCheck)

	// The provider signs webhook deliveries with the same shared key.
	webhooks := r.Group("/webhooks")
	webhooks.Use(middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-DOCSTACK-API-KEY",
		ValidAPIKey: apikey,
	}))
	webhooks.Use(middleware.CustomContextMiddleware("docstack"))
	{
		webhooks.POST("/provider-inbound", webhookHandler.ProviderInbound())
	}

	api := r.Group("/v1")
	api.Use(middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-DOCSTACK-API-KEY",
		ValidAPIKey: apikey,
	}))
	api.Use(middleware.CustomContextMiddleware("docstack"))
	api.Use(middleware.TracingMiddleware())
	{
		for pipeline, slug := range inboxSlugs {
			inbox := api.Group("/" + slug)
			{
				inbox.GET("/settings", inboxHandler.GetSettings(pipeline))
				inbox.PUT("/settings", inboxHandler.UpdateSettings(pipeline))
				inbox.POST("/check-emails", inboxHandler.CheckEmails(pipeline))
				inbox.GET("/counts", inboxHandler.Counts(pipeline))
			}
		}
	}
}
