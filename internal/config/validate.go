package config

import (
	"fmt"
	"slices"
	"strings"
)

// Model sources.
const (
	ModelSourceEmbedded = "embedded"
	ModelSourceFile     = "file"
	ModelSourcePostgres = "postgres"
)

const maxModelOrder = 4

// minUnkLogProb is the ARPA convention for an impossible event.
const minUnkLogProb = -99.0

var (
	modelSources = []string{ModelSourceEmbedded, ModelSourceFile, ModelSourcePostgres}
	logLevels    = []string{"debug", "info", "warn", "error"}
	logFormats   = []string{"json", "text"}
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("log.level must be one of %v (got %q)", logLevels, c.Log.Level)
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("log.format must be one of %v (got %q)", logFormats, c.Log.Format)
	}

	if err := c.Analysis.validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if err := c.Model.validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}

	if c.Model.Source == ModelSourcePostgres && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when model.source is %q", ModelSourcePostgres)
	}

	return nil
}

func (a *AnalysisConfig) validate() error {
	if a.MaxTextLength <= 0 {
		return fmt.Errorf("max_text_length must be > 0 (got %d)", a.MaxTextLength)
	}
	if a.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", a.Timeout)
	}
	if a.NGramLimit < 0 {
		return fmt.Errorf("ngram_limit must be >= 0 (got %d)", a.NGramLimit)
	}
	if a.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be > 0 (got %d)", a.MaxBodyBytes)
	}
	if a.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate_limit_per_minute must be >= 0 (got %d)", a.RateLimitPerMinute)
	}
	return nil
}

func (m *ModelConfig) validate() error {
	if !slices.Contains(modelSources, m.Source) {
		return fmt.Errorf("source must be one of %v (got %q)", modelSources, m.Source)
	}
	if m.Source == ModelSourceFile && m.Path == "" {
		return fmt.Errorf("path is required when source is %q", ModelSourceFile)
	}
	if m.Watch && m.Source != ModelSourceFile {
		return fmt.Errorf("watch is only supported for source %q", ModelSourceFile)
	}
	if m.MaxOrder < 1 || m.MaxOrder > maxModelOrder {
		return fmt.Errorf("max_order must be in 1..%d (got %d)", maxModelOrder, m.MaxOrder)
	}
	if m.UnkLogProb >= 0 || m.UnkLogProb < minUnkLogProb {
		return fmt.Errorf("unk_log_prob must be in [%v, 0) (got %v)", minUnkLogProb, m.UnkLogProb)
	}
	if m.LoadTimeout <= 0 {
		return fmt.Errorf("load_timeout must be > 0 (got %v)", m.LoadTimeout)
	}
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
