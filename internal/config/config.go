package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	CORS     CORSConfig     `yaml:"cors"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Model    ModelConfig    `yaml:"model"`
	Database DatabaseConfig `yaml:"database"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Content-Type,Authorization"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"false"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// AnalysisConfig holds limits of the analysis endpoint.
type AnalysisConfig struct {
	MaxTextLength int           `yaml:"max_text_length" env:"ANALYSIS_MAX_TEXT_LENGTH" env-default:"100000"`
	Timeout       time.Duration `yaml:"timeout"         env:"ANALYSIS_TIMEOUT"         env-default:"5s"`
	// NGramLimit caps every N-gram list; 0 returns all of them.
	NGramLimit         int   `yaml:"ngram_limit"           env:"ANALYSIS_NGRAM_LIMIT"           env-default:"0"`
	MaxBodyBytes       int64 `yaml:"max_body_bytes"        env:"ANALYSIS_MAX_BODY_BYTES"        env-default:"1048576"`
	RateLimitPerMinute int   `yaml:"rate_limit_per_minute" env:"ANALYSIS_RATE_LIMIT_PER_MINUTE" env-default:"120"`
}

// ModelConfig selects and tunes the language model.
type ModelConfig struct {
	// Source is one of embedded, file, postgres.
	Source     string  `yaml:"source"       env:"MODEL_SOURCE"       env-default:"embedded"`
	Path       string  `yaml:"path"         env:"MODEL_PATH"`
	Name       string  `yaml:"name"         env:"MODEL_NAME"         env-default:"default"`
	MaxOrder   int     `yaml:"max_order"    env:"MODEL_MAX_ORDER"    env-default:"4"`
	UnkLogProb float64 `yaml:"unk_log_prob" env:"MODEL_UNK_LOG_PROB" env-default:"-7"`
	// Watch reloads a file model when it changes on disk.
	Watch          bool          `yaml:"watch"            env:"MODEL_WATCH"            env-default:"false"`
	WatchDebounce  time.Duration `yaml:"watch_debounce"   env:"MODEL_WATCH_DEBOUNCE"   env-default:"500ms"`
	LoadTimeout    time.Duration `yaml:"load_timeout"     env:"MODEL_LOAD_TIMEOUT"     env-default:"30s"`
	RetryInitial   time.Duration `yaml:"retry_initial"    env:"MODEL_RETRY_INITIAL"    env-default:"500ms"`
	RetryMax       time.Duration `yaml:"retry_max"        env:"MODEL_RETRY_MAX"        env-default:"10s"`
	RetryMaxElapse time.Duration `yaml:"retry_max_elapse" env:"MODEL_RETRY_MAX_ELAPSE" env-default:"2m"`
}

// DatabaseConfig holds PostgreSQL connection settings. Only used when the
// model is stored in PostgreSQL.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"5"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}
