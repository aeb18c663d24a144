package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/docflowhq/docstack/internal/enum"
	"github.com/docflowhq/docstack/internal/utils"
)

// InboxSettings is the per-tenant configuration of one pipeline instance's
// inbound mailbox.
type InboxSettings struct {
	ID       string        `gorm:"column:id;type:varchar(50);primaryKey"`
	Pipeline enum.Pipeline `gorm:"column:pipeline;type:varchar(50);not null;uniqueIndex:idx_pipeline_tenant"`
	TenantID string        `gorm:"column:tenant_id;type:varchar(50);not null;uniqueIndex:idx_pipeline_tenant"`

	IsEnabled           bool              `gorm:"column:is_enabled;default:false"`
	InboundEmailAddress string            `gorm:"column:inbound_email_address;type:varchar(255)"`
	AutoExtract         bool              `gorm:"column:auto_extract;default:true"`
	AutoSubmit          bool              `gorm:"column:auto_submit;default:false"`
	DefaultStatus       enum.RecordStatus `gorm:"column:default_status;type:varchar(50)"`
	NotifyUserIDs       pq.StringArray    `gorm:"column:notify_user_ids;type:text[]"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (InboxSettings) TableName() string {
	return "inbox_settings"
}

func (s *InboxSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = utils.GenerateNanoIDWithPrefix("inbox", 21)
	}
	if s.DefaultStatus == "" {
		s.DefaultStatus = enum.RecordStatusDraft
	}
	s.CreatedAt = utils.Now()
	return nil
}
