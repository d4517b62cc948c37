package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedDropsSecrets(t *testing.T) {
	cfg := &Config{
		AppName:            "Pemoi",
		AppEnv:             "production",
		Port:               "8090",
		DBDriver:           "pgx",
		DBConnection:       "postgres://pemoi:hunter2@db/pemoi",
		JWTSecret:          "jwt-secret",
		GoogleClientID:     "google-id",
		GoogleClientSecret: "google-secret",
		ResendAPIKey:       "re_key",
		SentryDSN:          "https://key@sentry.example/1",
		StorageDriver:      "s3",
		S3AccessKey:        "access",
		S3SecretKey:        "secret",
		S3Endpoint:         "https://s3.example",
		TumblrAPIKey:       "tumblr",
	}

	got := cfg.Sanitized()

	assert.Equal(t, "Pemoi", got.AppName)
	assert.Equal(t, "pgx", got.DBDriver)
	assert.Equal(t, "google-id", got.GoogleClientID)
	assert.Equal(t, "https://s3.example", got.S3Endpoint)

	assert.Empty(t, got.DBConnection)
	assert.Empty(t, got.JWTSecret)
	assert.Empty(t, got.GoogleClientSecret)
	assert.Empty(t, got.ResendAPIKey)
	assert.Empty(t, got.SentryDSN)
	assert.Empty(t, got.S3AccessKey)
	assert.Empty(t, got.S3SecretKey)
	assert.Empty(t, got.TumblrAPIKey)
}
