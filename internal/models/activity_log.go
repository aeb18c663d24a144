package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/docflowhq/docstack/internal/enum"
	"github.com/docflowhq/docstack/internal/utils"
)

// ActivityLog is the append-only audit trail per email and per record.
// Entries are never mutated or deleted.
type ActivityLog struct {
	ID          string            `gorm:"column:id;type:varchar(50);primaryKey"`
	SubjectID   string            `gorm:"column:subject_id;type:varchar(50);index;not null"`
	SubjectType enum.SubjectType  `gorm:"column:subject_type;type:varchar(50);index;not null"`
	Type        enum.ActivityType `gorm:"column:type;type:varchar(50);index;not null"`
	Message     string            `gorm:"column:message;type:text"`
	Metadata    JSONMap           `gorm:"column:metadata;type:jsonb"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("act", 21)
	}
	a.CreatedAt = utils.Now()
	return nil
}
