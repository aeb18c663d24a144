package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/docflowhq/docstack/internal/enum"
	"github.com/docflowhq/docstack/internal/utils"
)

// InboundEmail is one externally delivered email accepted by a pipeline
// instance. The (pipeline, external_email_id) pair is the dedup key: a webhook
// replay or a polling overlap delivering a known id must never create a
// second row.
type InboundEmail struct {
	ID              string        `gorm:"column:id;type:varchar(50);primaryKey"`
	Pipeline        enum.Pipeline `gorm:"column:pipeline;type:varchar(50);not null;uniqueIndex:idx_pipeline_external_email_id"`
	ExternalEmailID string        `gorm:"column:external_email_id;type:varchar(255);not null;uniqueIndex:idx_pipeline_external_email_id"`
	TenantID        string        `gorm:"column:tenant_id;type:varchar(50);index;not null"`

	FromAddress string         `gorm:"column:from_address;type:varchar(255);index"`
	ToAddresses pq.StringArray `gorm:"column:to_addresses;type:text[]"`
	Subject     string         `gorm:"column:subject;type:varchar(1000)"`

	Status          enum.EmailStatus `gorm:"column:status;type:varchar(50);index;not null"`
	Source          enum.EmailSource `gorm:"column:source;type:varchar(50)"`
	HasAttachments  bool             `gorm:"column:has_attachments;default:false"`
	AttachmentCount int              `gorm:"column:attachment_count;default:0"`
	LinkedRecordID  *string          `gorm:"column:linked_record_id;type:varchar(50);index"`
	ProcessingError *string          `gorm:"column:processing_error;type:text"`

	// Body content kept for the body-text extraction path
	BodyText string `gorm:"column:body_text;type:text"`
	BodyHTML string `gorm:"column:body_html;type:text"`

	ReceivedAt  time.Time  `gorm:"column:received_at;type:timestamp;index"`
	ProcessedAt *time.Time `gorm:"column:processed_at;type:timestamp"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (InboundEmail) TableName() string {
	return "inbound_emails"
}

func (e *InboundEmail) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("inbem", 21)
	}
	if e.Status == "" {
		e.Status = enum.EmailStatusReceived
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = utils.Now()
	}
	e.CreatedAt = utils.Now()
	return nil
}
