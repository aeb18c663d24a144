package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/docflowhq/docstack/internal/logger"
	"github.com/docflowhq/docstack/internal/tracing"
)

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:           &AppConfig{},
		Logger:              &logger.Config{},
		Tracing:             &tracing.JaegerConfig{},
		DatabaseConfig:      &DatabaseConfig{},
		StorageConfig:       &StorageConfig{},
		MailProviderConfig:  &MailProviderConfig{},
		ExtractionAPIConfig: &ExtractionAPIConfig{},
		PollerConfig:        &PollerConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading docstack config: %v", err)
	}

	return config, nil
}
