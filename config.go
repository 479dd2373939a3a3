package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	awspkg "github.com/meatvault/stock-service/pkg/aws"
)

// Config holds all configuration for the stock service.
type Config struct {
	Port       string // HTTP port (default: 8086)
	Env        string // APP_ENV, "production" selects JSON logging
	JWTSecret  string // HMAC secret for session tokens
	ScanAPIURL string // Image attribute extraction endpoint
	ScanAPIKey string // Bearer key for the extraction endpoint
	S3Bucket   string // Bucket for scanned item photos (optional)
}

// LoadConfig loads environment variables into a Config. A local .env file is
// honored without overriding real environment variables. With
// AWS_USE_SECRETS=true, secrets come from Secrets Manager instead of the
// environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:       os.Getenv("PORT"),
		Env:        os.Getenv("APP_ENV"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		ScanAPIURL: os.Getenv("SCAN_API_URL"),
		ScanAPIKey: os.Getenv("SCAN_API_KEY"),
		S3Bucket:   os.Getenv("S3_BUCKET_SCANS"),
	}

	if cfg.Port == "" {
		cfg.Port = "8086"
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awspkg.LoadAWSConfig(context.Background()); err == nil {
			sm := awspkg.NewSecretsClient(awsCfg)

			if jwt, err := sm.GetSecret(context.Background(), "stock/JWT_SECRET"); err == nil && jwt != "" {
				cfg.JWTSecret = jwt
			}
			if key, err := sm.GetSecret(context.Background(), "stock/SCAN_API_KEY"); err == nil && key != "" {
				cfg.ScanAPIKey = key
			}
		}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}
