// Package config defines the canonical, JSON-serializable configuration model
// for the accident-warehouse ETL. It is intentionally small, explicit, and
// dependency-free so that job files can be loaded from disk and passed through
// the program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in job files
//     under configs/*.json.
//  3. Minimalism: No third-party config libraries; decoding is performed by
//     the standard library, with environment overrides for secrets.
//
// Example (trimmed):
//
//	{
//	  "job": "datatran",
//	  "extract": { "data_dir": "data", "datasets": { "2023": "https://..." } },
//	  "storage": { "kind": "postgres", "dsn": "postgresql://..." },
//	  "load":    { "batch_size": 20000, "page_size": 5000 }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Defaults applied by Load when the job file leaves a field unset.
const (
	DefaultBatchSize     = 20000
	DefaultPageSize      = 5000
	DefaultProgressEvery = 50000
	DefaultHTTPTimeout   = 5 * time.Minute
	DefaultHTTPRetries   = 3
)

// Job is the top-level object decoded from a job file.
type Job struct {
	// Job names the run for logs, metrics labeling, and notifications.
	Job string `json:"job"`

	Extract ExtractConfig `json:"extract"`
	Storage StorageConfig `json:"storage"`
	Load    LoadConfig    `json:"load"`
	Notify  NotifyConfig  `json:"notify"`
}

// ExtractConfig describes where the yearly source datasets come from and
// where downloaded artifacts land.
type ExtractConfig struct {
	// DataDir is the local working directory for downloads, extracted CSVs,
	// and the consolidated output.
	DataDir string `json:"data_dir"`

	// Datasets maps a year label (e.g. "2023") to its download URL. Google
	// Drive share links are handled by the extractor.
	Datasets map[string]string `json:"datasets"`

	// TimeoutSeconds bounds each HTTP download. 0 means the default.
	TimeoutSeconds int `json:"timeout_seconds"`

	// Retries is the per-download retry budget. 0 means the default.
	Retries int `json:"retries"`

	// Concurrency caps how many years download at once. 0 means all at once.
	Concurrency int `json:"concurrency"`
}

// Timeout returns the per-download timeout as a duration.
func (e ExtractConfig) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return DefaultHTTPTimeout
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// StorageConfig selects and configures the warehouse backend.
type StorageConfig struct {
	// Kind selects the backend implementation: "postgres" or "sqlite".
	Kind string `json:"kind"`

	// DSN is the backend connection string. The SAFEROAD_DB_DSN environment
	// variable overrides it, so job files need not carry credentials.
	DSN string `json:"dsn"`

	// PageSize bounds the rows per bulk-insert statement within one commit.
	PageSize int `json:"page_size"`
}

// LoadConfig tunes the load stage.
type LoadConfig struct {
	// BatchSize is the fact-buffer flush granularity. Each flush commits on
	// its own.
	BatchSize int `json:"batch_size"`

	// ProgressEvery is the row cadence for progress log lines.
	ProgressEvery int `json:"progress_every"`
}

// NotifyConfig configures the Telegram notifier. Both fields read from the
// environment when empty, matching how operators deploy the job.
type NotifyConfig struct {
	// TelegramToken is the bot token. Env override: TELEGRAM_BOT_TOKEN.
	TelegramToken string `json:"telegram_token"`

	// TelegramChatID is the destination chat. Env override: TELEGRAM_CHAT_ID.
	TelegramChatID string `json:"telegram_chat_id"`
}

// Enabled reports whether the notifier has enough configuration to send.
func (n NotifyConfig) Enabled() bool {
	return n.TelegramToken != "" && n.TelegramChatID != ""
}

// Load reads and decodes a job file, applies environment overrides, and fills
// in defaults. It does not validate; callers run ValidateJob and decide what
// to do with the issues.
func Load(path string) (Job, error) {
	var job Job
	b, err := os.ReadFile(path)
	if err != nil {
		return job, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(b, &job); err != nil {
		return job, fmt.Errorf("decode config %s: %w", path, err)
	}
	job.applyEnv()
	job.applyDefaults()
	return job, nil
}

func (j *Job) applyEnv() {
	if v := os.Getenv("SAFEROAD_DB_DSN"); v != "" {
		j.Storage.DSN = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		j.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		j.Notify.TelegramChatID = v
	}
}

func (j *Job) applyDefaults() {
	if j.Extract.DataDir == "" {
		j.Extract.DataDir = "data"
	}
	if j.Extract.Retries <= 0 {
		j.Extract.Retries = DefaultHTTPRetries
	}
	if j.Storage.PageSize <= 0 {
		j.Storage.PageSize = DefaultPageSize
	}
	if j.Load.BatchSize <= 0 {
		j.Load.BatchSize = DefaultBatchSize
	}
	if j.Load.ProgressEvery <= 0 {
		j.Load.ProgressEvery = DefaultProgressEvery
	}
}
