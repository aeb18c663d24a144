package repository

import (
	"gorm.io/gorm"

	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/models"
)

type Repositories struct {
	InboundEmailRepository   interfaces.InboundEmailRepository
	DocumentRecordRepository interfaces.DocumentRecordRepository
	ExtractedFieldRepository interfaces.ExtractedFieldRepository
	ActivityLogRepository    interfaces.ActivityLogRepository
	InboxSettingsRepository  interfaces.InboxSettingsRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		InboundEmailRepository:   NewInboundEmailRepository(db),
		DocumentRecordRepository: NewDocumentRecordRepository(db),
		ExtractedFieldRepository: NewExtractedFieldRepository(db),
		ActivityLogRepository:    NewActivityLogRepository(db),
		InboxSettingsRepository:  NewInboxSettingsRepository(db),
	}
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.InboundEmail{},
		&models.DocumentRecord{},
		&models.ExtractedField{},
		&models.ActivityLog{},
		&models.InboxSettings{},
	)
}
