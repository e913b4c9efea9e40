package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/shlink/internal/flagx"
	"github.com/dmitrijs2005/shlink/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept strings like "15s" or integer nanoseconds. Zero values leave the
// corresponding Config field untouched.
type JsonConfig struct {
	Recipient         string         `json:"recipient"`
	EmbeddedLengthMax int            `json:"embedded_length_max"`
	RequestTimeout    timex.Duration `json:"request_timeout"`
	RetryAttempts     int            `json:"retry_attempts"`
	RetryBaseDelay    timex.Duration `json:"retry_base_delay"`
	OutputDir         string         `json:"output_dir"`
	HistoryDB         string         `json:"history_db"`
	LogLevel          string         `json:"log_level"`
}

// parseJson overlays cfg with the file named by -c / -config, if any.
// Read or unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.Recipient != "" {
		cfg.Recipient = jc.Recipient
	}
	if jc.EmbeddedLengthMax > 0 {
		cfg.EmbeddedLengthMax = jc.EmbeddedLengthMax
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RetryAttempts > 0 {
		cfg.RetryAttempts = jc.RetryAttempts
	}
	if jc.RetryBaseDelay.Duration > 0 {
		cfg.RetryBaseDelay = jc.RetryBaseDelay.Duration
	}
	if jc.OutputDir != "" {
		cfg.OutputDir = jc.OutputDir
	}
	if jc.HistoryDB != "" {
		cfg.HistoryDB = jc.HistoryDB
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
