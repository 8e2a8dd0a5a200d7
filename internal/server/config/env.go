package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables. A .env file in
// the working directory is loaded first if present; real environment
// variables win over the file (godotenv.Load never overrides).
//
// Recognized variables:
//
//	HTTP_ADDR, DATABASE_DSN, SECRET_KEY,
//	ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL (Go duration strings),
//	R2_ENDPOINT, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY,
//	R2_BUCKET_NAME, R2_REGION,
//	CDN_URL, R2_PUBLIC_URL, ASSISTANT_BASE_URL
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString := func(target *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*target = v
		}
	}

	setDuration := func(target *time.Duration, key string) {
		if v, ok := os.LookupEnv(key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*target = d
			}
		}
	}

	setString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.SecretKey, "SECRET_KEY")
	setDuration(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_TTL")
	setDuration(&config.RefreshTokenValidityDuration, "REFRESH_TOKEN_TTL")
	setString(&config.S3BaseEndpoint, "R2_ENDPOINT")
	setString(&config.S3AccessKeyID, "R2_ACCESS_KEY_ID")
	setString(&config.S3SecretAccessKey, "R2_SECRET_ACCESS_KEY")
	setString(&config.S3Bucket, "R2_BUCKET_NAME")
	setString(&config.S3Region, "R2_REGION")
	setString(&config.CDNURL, "CDN_URL")
	setString(&config.PublicBucketURL, "R2_PUBLIC_URL")
	setString(&config.AssistantBaseURL, "ASSISTANT_BASE_URL")
}
