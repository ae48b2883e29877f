package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	Database    DatabaseConfig
	Vision      VisionConfig
	Storage     StorageConfig
	HTTP        HTTPConfig
	RabbitMQ    RabbitMQConfig
	Anomaly     AnomalyConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// VisionConfig holds settings for the external vision extraction API
type VisionConfig struct {
	APIURL         string
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// StorageConfig holds image storage settings
type StorageConfig struct {
	Dir          string
	PublicPrefix string
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	// BodyLimit is passed to the body-limit middleware. Base64 encoded
	// meter photos are large, so the default is generous.
	BodyLimit        string
	CORSAllowOrigins string
}

// RabbitMQConfig holds event publishing settings. URL may be empty, in
// which case event publishing is disabled.
type RabbitMQConfig struct {
	URL            string
	EventsExchange string
}

// AnomalyConfig holds plausibility check settings
type AnomalyConfig struct {
	SpikeThreshold            float64
	MinDataPointsForDetection int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "utility-metering-api"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8080),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Vision: VisionConfig{
			APIURL:         getEnv("VISION_API_URL", ""),
			APIKey:         getEnv("VISION_API_KEY", ""),
			Model:          getEnv("VISION_MODEL", "meter-reader-v1"),
			TimeoutSeconds: getEnvAsInt("VISION_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			Dir:          getEnv("STORAGE_DIR", "data/images"),
			PublicPrefix: getEnv("STORAGE_PUBLIC_PREFIX", "/files"),
		},
		HTTP: HTTPConfig{
			BodyLimit:        getEnv("HTTP_BODY_LIMIT", "16M"),
			CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:            getEnv("RABBITMQ_URL", ""),
			EventsExchange: getEnv("RABBITMQ_EVENTS_EXCHANGE", "utility-metering.events.exchange"),
		},
		Anomaly: AnomalyConfig{
			SpikeThreshold:            getEnvAsFloat("ANOMALY_SPIKE_THRESHOLD", 3.0),
			MinDataPointsForDetection: getEnvAsInt("ANOMALY_MIN_DATA_POINTS", 3),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.Vision.APIURL == "" {
		return nil, fmt.Errorf("VISION_API_URL is required but not set in environment variables")
	}
	if cfg.Vision.APIKey == "" {
		return nil, fmt.Errorf("VISION_API_KEY is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
