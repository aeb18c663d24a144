package dto

// InboundWebhookEvent is the raw payload delivered by the mail-receiving
// provider. Only type "email.received" is processed; everything else is
// acknowledged and ignored so the provider never retries.
type InboundWebhookEvent struct {
	Type string           `json:"type"`
	Data InboundEventData `json:"data"`
}

// InboundEventData is the event body for "email.received". The same shape is
// returned by the provider's list API, so webhook and poller feed the exact
// same ingestion entry point.
type InboundEventData struct {
	EmailID        string   `json:"email_id"`
	From           string   `json:"from"`
	To             []string `json:"to"`
	Subject        string   `json:"subject"`
	HasAttachments bool     `json:"has_attachments"`
}

// WebhookResponse is always returned with HTTP 200; the status discriminator
// carries the application-level outcome instead of the HTTP status code.
type WebhookResponse struct {
	Status  string `json:"status"` // accepted | duplicate | ignored | error
	EmailID string `json:"emailId,omitempty"`
	Message string `json:"message,omitempty"`
}
