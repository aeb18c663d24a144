package enum

type EmailStatus string

const (
	EmailStatusReceived         EmailStatus = "received"
	EmailStatusProcessing       EmailStatus = "processing"
	EmailStatusProcessed        EmailStatus = "processed"
	EmailStatusNoAttachments    EmailStatus = "no_attachments"
	EmailStatusNoPdfAttachments EmailStatus = "no_pdf_attachments"
	EmailStatusFailed           EmailStatus = "failed"
)

func (t EmailStatus) String() string {
	return string(t)
}

// IsTerminal reports whether the status ends the ingestion attempt.
func (t EmailStatus) IsTerminal() bool {
	switch t {
	case EmailStatusProcessed, EmailStatusNoAttachments, EmailStatusNoPdfAttachments, EmailStatusFailed:
		return true
	}
	return false
}

type EmailSource string

const (
	EmailSourceWebhook EmailSource = "webhook"
	EmailSourcePoller  EmailSource = "poller"
)

func (t EmailSource) String() string {
	return string(t)
}
