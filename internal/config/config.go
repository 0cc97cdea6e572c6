// Package config defines service configuration structures and loading hooks.
//
// Values are layered defaults -> YAML file (SOE_CONFIG) -> environment
// (SOE_ prefix, "__" between nested keys: SOE_AI__API_KEY sets ai.api_key).
package config

import (
	"context"
	"runtime"
	"time"

	"github.com/okian/soe/internal/adapters/ai"
	"github.com/okian/soe/internal/adapters/repository"
	"github.com/okian/soe/internal/domain/alerts"
	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/internal/domain/types"
	"github.com/okian/soe/pkg/tracing"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the analysis job queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize bounds the in-flight analysis tracker.
	DedupeSize int `koanf:"dedupe_size"`

	// HistoryPoints is the number of snapshots charted on the dashboard.
	HistoryPoints int `koanf:"history_points"`

	// MaxBodyBytes bounds request bodies and uploads.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	Weights Weights `koanf:"weights"`

	// WeightsFile, when set, is a YAML weights file loaded at start and
	// reloaded on change. It takes precedence over Weights.
	WeightsFile string `koanf:"weights_file"`

	Storage Storage `koanf:"storage"`
	AI      AI      `koanf:"ai"`
	Alerts  Alerts  `koanf:"alerts"`
	Tracing Tracing `koanf:"tracing"`
}

// Weights mirrors scoring.Weights with configuration key names.
type Weights struct {
	Uptime             float64 `koanf:"uptime"`
	ErrorRate          float64 `koanf:"error_rate"`
	ResourceEfficiency float64 `koanf:"resource_efficiency"`
	Throughput         float64 `koanf:"throughput"`
}

// Scoring converts w for the scoring engine.
func (w Weights) Scoring() scoring.Weights {
	return scoring.Weights{
		Uptime:             w.Uptime,
		ErrorRate:          w.ErrorRate,
		ResourceEfficiency: w.ResourceEfficiency,
		Throughput:         w.Throughput,
	}
}

// Storage selects the snapshot history backend.
type Storage struct {
	Driver        string `koanf:"driver"`
	Key           string `koanf:"key"`
	Path          string `koanf:"path"`
	DSN           string `koanf:"dsn"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	Bucket        string `koanf:"bucket"`
	Prefix        string `koanf:"prefix"`
	Region        string `koanf:"region"`
	Endpoint      string `koanf:"endpoint"`
}

// Repository converts s for repository.Open.
func (s Storage) Repository() repository.Config {
	return repository.Config{
		Driver:        s.Driver,
		Key:           s.Key,
		Path:          s.Path,
		DSN:           s.DSN,
		RedisAddr:     s.RedisAddr,
		RedisPassword: s.RedisPassword,
		RedisDB:       s.RedisDB,
		Bucket:        s.Bucket,
		Prefix:        s.Prefix,
		Region:        s.Region,
		Endpoint:      s.Endpoint,
	}
}

// AI configures the generative AI client.
type AI struct {
	Provider          string `koanf:"provider"`
	APIKey            string `koanf:"api_key"`
	Model             string `koanf:"model"`
	BaseURL           string `koanf:"base_url"`
	TimeoutMS         int    `koanf:"timeout_ms"`
	RequestsPerMinute int    `koanf:"requests_per_minute"`
	Burst             int    `koanf:"burst"`
	MaxRetries        int    `koanf:"max_retries"`

	// ClientRequestsPerMinute limits AI-backed endpoints per client IP.
	ClientRequestsPerMinute int `koanf:"client_requests_per_minute"`
	ClientBurst             int `koanf:"client_burst"`
}

// Client converts a for ai.New.
func (a AI) Client() ai.Config {
	return ai.Config{
		Provider:          a.Provider,
		APIKey:            a.APIKey,
		Model:             a.Model,
		BaseURL:           a.BaseURL,
		Timeout:           time.Duration(a.TimeoutMS) * time.Millisecond,
		RequestsPerMinute: a.RequestsPerMinute,
		Burst:             a.Burst,
		MaxRetries:        a.MaxRetries,
	}
}

// Alerts holds alert rules and their notification targets.
type Alerts struct {
	Rules    []Rule    `koanf:"rules"`
	Webhooks []Webhook `koanf:"webhooks"`
}

// Rule is one CEL alert rule.
type Rule struct {
	Name            string `koanf:"name"`
	Expr            string `koanf:"expr"`
	Severity        string `koanf:"severity"`
	CooldownSeconds int    `koanf:"cooldown_seconds"`
}

// Webhook is one alert notification target.
type Webhook struct {
	URL  string `koanf:"url"`
	Type string `koanf:"type"`
}

// Engine converts the rules and webhooks for alerts.New.
func (a Alerts) Engine() ([]alerts.Rule, []alerts.Webhook) {
	rules := make([]alerts.Rule, 0, len(a.Rules))
	for _, r := range a.Rules {
		rules = append(rules, alerts.Rule{
			Name:     r.Name,
			Expr:     r.Expr,
			Severity: r.Severity,
			Cooldown: time.Duration(r.CooldownSeconds) * time.Second,
		})
	}
	hooks := make([]alerts.Webhook, 0, len(a.Webhooks))
	for _, w := range a.Webhooks {
		hooks = append(hooks, alerts.Webhook{URL: w.URL, Type: w.Type})
	}
	return rules, hooks
}

// Tracing configures the OpenTelemetry exporter.
type Tracing struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Insecure    bool    `koanf:"insecure"`
	SampleRatio float64 `koanf:"sample_ratio"`
	ServiceName string  `koanf:"service_name"`
}

// Provider converts t for tracing.New.
func (t Tracing) Provider() tracing.Config {
	return tracing.Config{
		Enabled:     t.Enabled,
		Endpoint:    t.Endpoint,
		Insecure:    t.Insecure,
		SampleRatio: t.SampleRatio,
		ServiceName: t.ServiceName,
	}
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	w := scoring.DefaultWeights()
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		WorkerCount:       min(runtime.NumCPU(), 4),
		QueueSize:         256,
		DedupeSize:        10_000,
		HistoryPoints:     types.DefaultChartPoints,
		MaxBodyBytes:      1 << 20,
		ShutdownTimeoutMS: 10_000,
		Weights: Weights{
			Uptime:             w.Uptime,
			ErrorRate:          w.ErrorRate,
			ResourceEfficiency: w.ResourceEfficiency,
			Throughput:         w.Throughput,
		},
		Storage: Storage{
			Driver: repository.DriverMemory,
			Key:    repository.DefaultKey,
			Path:   "data",
			Region: "us-east-1",
		},
		AI: AI{
			Provider:                ai.ProviderGemini,
			TimeoutMS:               int(ai.DefaultTimeout / time.Millisecond),
			RequestsPerMinute:       60,
			Burst:                   5,
			MaxRetries:              2,
			ClientRequestsPerMinute: 10,
			ClientBurst:             5,
		},
		Tracing: Tracing{
			Endpoint:    "localhost:4317",
			Insecure:    true,
			SampleRatio: 1,
			ServiceName: "soe",
		},
	}
}
