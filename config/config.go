package config

import (
	"github.com/docflowhq/docstack/internal/logger"
	"github.com/docflowhq/docstack/internal/tracing"
)

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"11000"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`

	// Bounded ingestion queue; a full queue leaves emails in received for the
	// poller to re-drive rather than blocking the webhook response.
	IngestionWorkers   int `env:"INGESTION_WORKERS" envDefault:"4"`
	IngestionQueueSize int `env:"INGESTION_QUEUE_SIZE" envDefault:"256"`
}

type DatabaseConfig struct {
	Host            string `env:"DOCSTACK_POSTGRES_HOST,required"`
	Port            string `env:"DOCSTACK_POSTGRES_PORT,required"`
	User            string `env:"DOCSTACK_POSTGRES_USER,required"`
	DBName          string `env:"DOCSTACK_POSTGRES_DB_NAME,required"`
	Password        string `env:"DOCSTACK_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"DOCSTACK_POSTGRES_DB_MAX_CONN" envDefault:"50"`
	MaxIdleConn     int    `env:"DOCSTACK_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"10"`
	ConnMaxLifetime int    `env:"DOCSTACK_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	LogLevel        string `env:"DOCSTACK_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"DOCSTACK_POSTGRES_SSL_MODE" envDefault:"require"`
}

type StorageConfig struct {
	// "r2" or "s3"
	Provider         string `env:"STORAGE_PROVIDER" envDefault:"r2"`
	AccessKeyID      string `env:"STORAGE_ACCESS_KEY_ID,required"`
	AccessKeySecret  string `env:"STORAGE_ACCESS_KEY_SECRET,required"`
	AttachmentBucket string `env:"BUCKET_NAME_DOCUMENT_ATTACHMENT" envDefault:"document-attachments"`

	// R2 only
	R2AccountID string `env:"CLOUDFLARE_R2_ACCOUNT_ID"`

	// S3 only
	AWSRegion string `env:"AWS_REGION" envDefault:"us-east-1"`
}

type MailProviderConfig struct {
	Url            string `env:"MAIL_PROVIDER_URL,required"`
	ApiKey         string `env:"MAIL_PROVIDER_API_KEY,required"`
	TimeoutSeconds int    `env:"MAIL_PROVIDER_TIMEOUT_SECONDS" envDefault:"30"`
}

type ExtractionAPIConfig struct {
	Url            string `env:"EXTRACTION_API_URL,required"`
	ApiKey         string `env:"EXTRACTION_API_KEY"`
	TimeoutSeconds int    `env:"EXTRACTION_API_TIMEOUT_SECONDS" envDefault:"120"`
}

type PollerConfig struct {
	// Lookback window for each provider re-scan.
	LookbackMinutes int `env:"POLLER_LOOKBACK_MINUTES" envDefault:"60"`
	// How many stuck "received" emails a pass re-enqueues.
	RequeueBatchSize int `env:"POLLER_REQUEUE_BATCH_SIZE" envDefault:"50"`
	// Emails sitting in "processing" longer than this are treated as
	// abandoned by a crashed worker and re-driven. 0 disables the sweep.
	StaleProcessingMinutes int `env:"POLLER_STALE_PROCESSING_MINUTES" envDefault:"30"`
}

type Config struct {
	AppConfig           *AppConfig
	Logger              *logger.Config
	Tracing             *tracing.JaegerConfig
	DatabaseConfig      *DatabaseConfig
	StorageConfig       *StorageConfig
	MailProviderConfig  *MailProviderConfig
	ExtractionAPIConfig *ExtractionAPIConfig
	PollerConfig        *PollerConfig
}
