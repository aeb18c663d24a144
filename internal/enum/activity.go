package enum

type ActivityType string

const (
	ActivityEmailReceived      ActivityType = "email_received"
	ActivityEmailProcessed     ActivityType = "email_processed"
	ActivityEmailFailed        ActivityType = "email_failed"
	ActivityAttachmentStored   ActivityType = "attachment_stored"
	ActivityAttachmentSkipped  ActivityType = "attachment_skipped"
	ActivityRecordCreated      ActivityType = "record_created"
	ActivityExtractionComplete ActivityType = "extraction_complete"
	ActivityExtractionFailed   ActivityType = "extraction_failed"
)

func (t ActivityType) String() string {
	return string(t)
}

type SubjectType string

const (
	SubjectInboundEmail   SubjectType = "inbound_email"
	SubjectDocumentRecord SubjectType = "document_record"
)

func (t SubjectType) String() string {
	return string(t)
}
