// Package config provides configuration models and helpers for warehouse jobs.
//
// This file adds a lightweight linter/validator for Job values. It performs
// static checks over a decoded Job and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Job.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "extract.datasets[2023]"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue in the slice is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateJob performs static validation / linting of a Job.
//
// It does not mutate the job. Instead it returns a slice of Issue values.
// Callers may decide whether to treat warnings as fatal or not.
func ValidateJob(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateExtract(j.Extract)...)
	issues = append(issues, validateStorage(j.Storage)...)
	issues = append(issues, validateLoad(j.Load)...)
	issues = append(issues, validateNotify(j.Notify)...)

	return issues
}

func validateExtract(e ExtractConfig) []Issue {
	var issues []Issue

	if len(e.Datasets) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "extract.datasets",
			Message:  "at least one year must be configured",
		})
		return issues
	}
	for year, raw := range e.Datasets {
		path := fmt.Sprintf("extract.datasets[%s]", year)
		if _, err := strconv.Atoi(year); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("dataset key %q is not a year", year),
			})
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("%q is not an absolute URL", raw),
			})
		}
	}
	if e.TimeoutSeconds < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "extract.timeout_seconds",
			Message:  "timeout_seconds must not be negative",
		})
	}
	if e.Concurrency < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "extract.concurrency",
			Message:  "concurrency must not be negative",
		})
	}

	return issues
}

func validateStorage(s StorageConfig) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	// Unknown kinds are warnings: backends register dynamically and a new one
	// may not be listed here yet.
	known := map[string]struct{}{
		"postgres": {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn must not be empty (or set SAFEROAD_DB_DSN)",
		})
	}
	if s.PageSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.page_size",
			Message:  "page_size must not be negative",
		})
	}

	return issues
}

func validateLoad(l LoadConfig) []Issue {
	var issues []Issue

	if l.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "load.batch_size",
			Message:  "batch_size must not be negative",
		})
	} else if l.BatchSize > 0 && l.BatchSize < 100 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "load.batch_size",
			Message:  fmt.Sprintf("batch_size=%d commits very often; throughput will suffer", l.BatchSize),
		})
	}
	if l.ProgressEvery < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "load.progress_every",
			Message:  "progress_every must not be negative",
		})
	}

	return issues
}

func validateNotify(n NotifyConfig) []Issue {
	var issues []Issue

	// A half-configured notifier is almost always a deployment mistake.
	if (n.TelegramToken == "") != (n.TelegramChatID == "") {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "notify",
			Message:  "telegram_token and telegram_chat_id must both be set to enable notifications",
		})
	}

	return issues
}
