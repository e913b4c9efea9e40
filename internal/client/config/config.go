package config

import "time"

// Config holds runtime settings for the viewer CLI.
//
// Fields:
//   - Recipient: name sent to the server with every manifest request.
//   - EmbeddedLengthMax: largest file the server should inline in a manifest.
//   - RequestTimeout: deadline of every single HTTP request.
//   - RetryAttempts: extra attempts for idempotent GETs on transient failure.
//   - RetryBaseDelay: first backoff step between those attempts.
//   - OutputDir: directory, relative to the working directory, for saved files.
//   - HistoryDB: SQLite file recording opened links.
//   - LogLevel: slog level of the viewer's diagnostic output.
type Config struct {
	Recipient         string
	EmbeddedLengthMax int
	RequestTimeout    time.Duration
	RetryAttempts     int
	RetryBaseDelay    time.Duration
	OutputDir         string
	HistoryDB         string
	LogLevel          string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Recipient = "SHL Viewer (CLI)"
	c.EmbeddedLengthMax = 10 * 1024 * 1024
	c.RequestTimeout = 15 * time.Second
	c.RetryAttempts = 3
	c.RetryBaseDelay = 200 * time.Millisecond
	c.OutputDir = "shl-files"
	c.HistoryDB = "viewer.db"
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
