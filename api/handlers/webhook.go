package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/docflowhq/docstack/dto"
	"github.com/docflowhq/docstack/internal/enum"
	errs "github.com/docflowhq/docstack/internal/errors"
	"github.com/docflowhq/docstack/internal/logger"
	"github.com/docflowhq/docstack/internal/tracing"
	"github.com/docflowhq/docstack/services/ingestion"
)

const EventTypeEmailReceived = "email.received"

// WebhookHandler receives inbound-email notifications from the mail provider.
// Every response is HTTP 200: the provider treats non-2xx as a delivery
// failure and retries, and a retry storm on a bad payload helps nobody. The
// application outcome travels in the status field instead.
type WebhookHandler struct {
	log        logger.Logger
	ingestion  *ingestion.Service
	dispatcher *ingestion.Dispatcher
}

func NewWebhookHandler(log logger.Logger, ingestionService *ingestion.Service, dispatcher *ingestion.Dispatcher) *WebhookHandler {
	return &WebhookHandler{
		log:        log,
		ingestion:  ingestionService,
		dispatcher: dispatcher,
	}
}

func (h *WebhookHandler) ProviderInbound() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "WebhookHandler.ProviderInbound", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var event dto.InboundWebhookEvent
		if err := c.BindJSON(&event); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusOK, dto.WebhookResponse{Status: "error", Message: "malformed payload"})
			return
		}

		if event.Type != EventTypeEmailReceived {
			span.SetTag("event-type", event.Type)
			c.JSON(http.StatusOK, dto.WebhookResponse{Status: "ignored", Message: "unsupported event type"})
			return
		}
		if event.Data.EmailID == "" {
			c.JSON(http.StatusOK, dto.WebhookResponse{Status: "error", Message: "missing email_id"})
			return
		}

		settings, err := h.ingestion.RouteInbound(ctx, event.Data.To)
		if err != nil {
			if errors.Is(err, errs.ErrNoMatchingInbox) {
				h.log.Infof("inbound email %s ignored, no matching inbox for %v", event.Data.EmailID, event.Data.To)
				c.JSON(http.StatusOK, dto.WebhookResponse{Status: "ignored", Message: "no matching inbox"})
				return
			}
			tracing.TraceErr(span, err)
			c.JSON(http.StatusOK, dto.WebhookResponse{Status: "error", Message: err.Error()})
			return
		}

		email, accepted, err := h.ingestion.AcceptInbound(ctx, settings, enum.EmailSourceWebhook, event.Data)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusOK, dto.WebhookResponse{Status: "error", Message: err.Error()})
			return
		}
		if !accepted {
			span.SetTag("duplicate", true)
			c.JSON(http.StatusOK, dto.WebhookResponse{Status: "duplicate", EmailID: email.ID})
			return
		}

		// A full queue is not an error to the provider: the email is persisted
		// in received and the poller re-drives it.
		if err := h.dispatcher.Enqueue(email.ID); err != nil {
			tracing.TraceErr(span, err)
		}

		c.JSON(http.StatusOK, dto.WebhookResponse{Status: "accepted", EmailID: email.ID})
	}
}
