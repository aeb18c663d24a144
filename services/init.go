package services

import (
	"github.com/pkg/errors"

	"github.com/docflowhq/docstack/config"
	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/logger"
	"github.com/docflowhq/docstack/internal/repository"
	"github.com/docflowhq/docstack/services/classifier"
	"github.com/docflowhq/docstack/services/events"
	"github.com/docflowhq/docstack/services/extraction"
	"github.com/docflowhq/docstack/services/ingestion"
	"github.com/docflowhq/docstack/services/mailprovider"
	"github.com/docflowhq/docstack/services/poller"
	"github.com/docflowhq/docstack/services/storage"
)

type Services struct {
	StorageService    interfaces.StorageService
	MailProvider      interfaces.MailProviderClient
	ClassifierService interfaces.AttachmentClassifier
	ExtractionService interfaces.ExtractionService
	EventsPublisher   interfaces.EventsPublisher
	IngestionService  *ingestion.Service
	Dispatcher        *ingestion.Dispatcher
	PollerService     *poller.Service
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	var storageService interfaces.StorageService
	switch cfg.StorageConfig.Provider {
	case "s3":
		storageService = storage.NewS3StorageService(
			cfg.StorageConfig.AWSRegion,
			cfg.StorageConfig.AccessKeyID,
			cfg.StorageConfig.AccessKeySecret,
			cfg.StorageConfig.AttachmentBucket,
			false,
		)
	case "r2":
		if cfg.StorageConfig.R2AccountID == "" {
			return nil, errors.New("CLOUDFLARE_R2_ACCOUNT_ID is required when STORAGE_PROVIDER is r2")
		}
		storageService = storage.NewR2StorageService(
			cfg.StorageConfig.R2AccountID,
			cfg.StorageConfig.AccessKeyID,
			cfg.StorageConfig.AccessKeySecret,
			cfg.StorageConfig.AttachmentBucket,
			false,
		)
	default:
		return nil, errors.Errorf("unknown storage provider: %s", cfg.StorageConfig.Provider)
	}

	mailProvider := mailprovider.NewMailProviderClient(cfg.MailProviderConfig)
	classifierService := classifier.NewClassifierService()
	extractionService := extraction.NewExtractionService(cfg.ExtractionAPIConfig)

	var publisher interfaces.EventsPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		rabbitPublisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, nil)
		if err != nil {
			return nil, err
		}
		publisher = rabbitPublisher
	} else {
		log.Warn("RABBITMQ_URL not set, pipeline events will not be published")
		publisher = events.NewNoopPublisher()
	}

	ingestionService := ingestion.NewService(ingestion.ServiceDeps{
		Log:          log,
		EmailRepo:    repos.InboundEmailRepository,
		RecordRepo:   repos.DocumentRecordRepository,
		FieldRepo:    repos.ExtractedFieldRepository,
		ActivityRepo: repos.ActivityLogRepository,
		SettingsRepo: repos.InboxSettingsRepository,
		Provider:     mailProvider,
		Storage:      storageService,
		Classifier:   classifierService,
		Extractor:    extractionService,
		Publisher:    publisher,
	})

	dispatcher := ingestion.NewDispatcher(log, ingestionService, cfg.AppConfig.IngestionWorkers, cfg.AppConfig.IngestionQueueSize)

	pollerService := poller.NewService(
		log,
		cfg.PollerConfig,
		repos.InboxSettingsRepository,
		repos.InboundEmailRepository,
		mailProvider,
		ingestionService,
		dispatcher,
	)

	return &Services{
		StorageService:    storageService,
		MailProvider:      mailProvider,
		ClassifierService: classifierService,
		ExtractionService: extractionService,
		EventsPublisher:   publisher,
		IngestionService:  ingestionService,
		Dispatcher:        dispatcher,
		PollerService:     pollerService,
	}, nil
}
