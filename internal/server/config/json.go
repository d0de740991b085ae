package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/flagx"
	"github.com/dmitrijs2005/wotcsync/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// Fields absent from the file keep the value already in Config. Counters and
// switches are pointers so an explicit 0 or false still applies.
type JsonConfig struct {
	EndpointAddrHTTP      string            `json:"endpoint_addr_http"`
	EndpointAddrGRPC      string            `json:"endpoint_addr_grpc"`
	DatabaseDSN           string            `json:"database_dsn"`
	SecretKey             string            `json:"secret_key"`
	TokenValidityDuration timex.Duration    `json:"token_validity_duration"`
	VaultPassphrase       string            `json:"vault_passphrase"`
	VaultSalt             string            `json:"vault_salt"`
	WebhookSecret         string            `json:"webhook_secret"`
	S3RootUser            string            `json:"s3_root_user"`
	S3RootPassword        string            `json:"s3_root_password"`
	S3Bucket              string            `json:"s3_bucket"`
	S3Region              string            `json:"s3_region"`
	S3BaseEndpoint        string            `json:"s3_base_endpoint"`
	ProviderBaseURLs      map[string]string `json:"provider_base_urls"`
	TransportTimeout      timex.Duration    `json:"transport_timeout"`
	ProviderTimeout       timex.Duration    `json:"provider_timeout"`
	SyncLookback          timex.Duration    `json:"sync_lookback"`
	RetryAttempts         *int              `json:"retry_attempts"`
	RetryDelay            timex.Duration    `json:"retry_delay"`
	HealthRefreshInterval timex.Duration    `json:"health_refresh_interval"`
	SchedulerEnabled      *bool             `json:"scheduler_enabled"`
	LogLevel              string            `json:"log_level"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags. If neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFilePath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.TokenValidityDuration, c.TokenValidityDuration)
	setString(&config.VaultPassphrase, c.VaultPassphrase)
	setString(&config.VaultSalt, c.VaultSalt)
	setString(&config.WebhookSecret, c.WebhookSecret)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.ProviderBaseURLs != nil {
		config.ProviderBaseURLs = c.ProviderBaseURLs
	}
	setDuration(&config.TransportTimeout, c.TransportTimeout)
	setDuration(&config.ProviderTimeout, c.ProviderTimeout)
	setDuration(&config.SyncLookback, c.SyncLookback)
	if c.RetryAttempts != nil {
		config.RetryAttempts = *c.RetryAttempts
	}
	setDuration(&config.RetryDelay, c.RetryDelay)
	setDuration(&config.HealthRefreshInterval, c.HealthRefreshInterval)
	if c.SchedulerEnabled != nil {
		config.SchedulerEnabled = *c.SchedulerEnabled
	}
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
