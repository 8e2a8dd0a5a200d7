package config

import (
	"encoding/json"
	"os"

	"github.com/simvex/simvex-server/internal/flagx"
	"github.com/simvex/simvex-server/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which parses both
// string values such as "15m" and integer nanoseconds. After unmarshalling,
// its fields are copied into the runtime Config which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3AccessKeyID                string         `json:"s3_access_key_id"`
	S3SecretAccessKey            string         `json:"s3_secret_access_key"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	CDNURL                       string         `json:"cdn_url"`
	PublicBucketURL              string         `json:"public_bucket_url"`
	AssistantBaseURL             string         `json:"assistant_base_url"`
}

// parseJson overlays configuration values from a JSON file, if one was named
// via the -c/-config flags. Absent file path means nothing to load. A file
// that cannot be read or parsed is a hard error: the operator asked for a
// config file, so silently ignoring it would hide a broken deployment.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		panic(err)
	}

	setString := func(target *string, value string) {
		if value != "" {
			*target = value
		}
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	setString(&config.S3AccessKeyID, c.S3AccessKeyID)
	setString(&config.S3SecretAccessKey, c.S3SecretAccessKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.CDNURL, c.CDNURL)
	setString(&config.PublicBucketURL, c.PublicBucketURL)
	setString(&config.AssistantBaseURL, c.AssistantBaseURL)
}
