package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/shlink/internal/flagx"
	"github.com/dmitrijs2005/shlink/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON configuration file. Duration
// fields accept "30m" style strings or integer nanoseconds. Fields absent
// from the file keep their current value.
type JsonConfig struct {
	EndpointAddrHTTP   *string         `json:"endpoint_addr_http"`
	DatabaseDSN        *string         `json:"database_dsn"`
	BaseURL            *string         `json:"base_url"`
	ViewerPath         *string         `json:"viewer_path"`
	SecretKey          *string         `json:"secret_key"`
	PasscodeAttempts   *int            `json:"passcode_attempts"`
	FileTokenTTL       *timex.Duration `json:"file_token_ttl"`
	QRCodeSize         *int            `json:"qr_code_size"`
	S3Enabled          *bool           `json:"s3_enabled"`
	S3RootUser         *string         `json:"s3_root_user"`
	S3RootPassword     *string         `json:"s3_root_password"`
	S3Bucket           *string         `json:"s3_bucket"`
	S3Region           *string         `json:"s3_region"`
	S3BaseEndpoint     *string         `json:"s3_base_endpoint"`
	CORSAllowedOrigins []string        `json:"cors_allowed_origins"`
	LogLevel           *string         `json:"log_level"`
	LogFormat          *string         `json:"log_format"`
	ShutdownTimeout    *timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads the file named by -c / -config into config. Nothing
// happens when neither flag is given; unreadable or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIf(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.BaseURL, c.BaseURL)
	setIf(&config.ViewerPath, c.ViewerPath)
	setIf(&config.SecretKey, c.SecretKey)
	setIf(&config.PasscodeAttempts, c.PasscodeAttempts)
	setIf(&config.QRCodeSize, c.QRCodeSize)
	setIf(&config.S3Enabled, c.S3Enabled)
	setIf(&config.S3RootUser, c.S3RootUser)
	setIf(&config.S3RootPassword, c.S3RootPassword)
	setIf(&config.S3Bucket, c.S3Bucket)
	setIf(&config.S3Region, c.S3Region)
	setIf(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setIf(&config.LogLevel, c.LogLevel)
	setIf(&config.LogFormat, c.LogFormat)

	if c.FileTokenTTL != nil {
		config.FileTokenTTL = c.FileTokenTTL.Duration
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.CORSAllowedOrigins != nil {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
