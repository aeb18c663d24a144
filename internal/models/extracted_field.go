package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/docflowhq/docstack/internal/utils"
)

// ExtractedField is one field candidate returned by the extraction service.
// Rows are insert-only; re-extraction inserts new rows instead of mutating
// old ones so extraction history is preserved.
type ExtractedField struct {
	ID          string  `gorm:"column:id;type:varchar(50);primaryKey"`
	RecordID    string  `gorm:"column:record_id;type:varchar(50);index;not null"`
	Key         string  `gorm:"column:key;type:varchar(255);index;not null"`
	Value       string  `gorm:"column:value;type:text"`
	Confidence  float64 `gorm:"column:confidence"`
	BoundingBox JSONMap `gorm:"column:bounding_box;type:jsonb"`
	Source      string  `gorm:"column:source;type:varchar(50);default:extraction"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (ExtractedField) TableName() string {
	return "extracted_fields"
}

func (f *ExtractedField) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = utils.GenerateNanoIDWithPrefix("fld", 21)
	}
	if f.Source == "" {
		f.Source = "extraction"
	}
	f.CreatedAt = utils.Now()
	return nil
}
