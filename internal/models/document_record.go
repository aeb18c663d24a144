package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/docflowhq/docstack/internal/enum"
	"github.com/docflowhq/docstack/internal/utils"
)

// DocumentRecord is the business record created from one relevant attachment
// (an invoice, drafting document or tender document depending on the
// pipeline). The ingestion pipeline creates it exactly once and hands it over
// to downstream workflows; source_email_id is a back-reference, not ownership.
type DocumentRecord struct {
	ID            string            `gorm:"column:id;type:varchar(50);primaryKey"`
	Pipeline      enum.Pipeline     `gorm:"column:pipeline;type:varchar(50);index;not null"`
	TenantID      string            `gorm:"column:tenant_id;type:varchar(50);index;not null"`
	SourceEmailID string            `gorm:"column:source_email_id;type:varchar(50);index"`
	Status        enum.RecordStatus `gorm:"column:status;type:varchar(50);index;not null"`

	// Stored attachment
	StorageKey  string `gorm:"column:storage_key;type:varchar(1000)"`
	Filename    string `gorm:"column:filename;type:varchar(500)"`
	ContentType string `gorm:"column:content_type;type:varchar(255)"`
	Size        int    `gorm:"column:size;default:0"`

	// First-class columns mapped from extraction for fast querying; the full
	// field set lives in extracted_fields.
	DocumentNumber   *string    `gorm:"column:document_number;type:varchar(255);index"`
	DocumentDate     *time.Time `gorm:"column:document_date;type:timestamp"`
	TotalAmount      *float64   `gorm:"column:total_amount"`
	Currency         *string    `gorm:"column:currency;type:varchar(10)"`
	CounterpartyName *string    `gorm:"column:counterparty_name;type:varchar(500)"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (DocumentRecord) TableName() string {
	return "document_records"
}

func (r *DocumentRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = utils.GenerateNanoIDWithPrefix("doc", 21)
	}
	if r.Status == "" {
		r.Status = enum.RecordStatusDraft
	}
	r.CreatedAt = utils.Now()
	return nil
}
