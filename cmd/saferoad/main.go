package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saferoad/internal/config"
	"saferoad/internal/metrics"
	"saferoad/internal/metrics/datadog"
	"saferoad/internal/metrics/prompush"
	"saferoad/internal/notify"
	"saferoad/internal/pipeline"
	"saferoad/internal/storage"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "saferoad/internal/storage/all"
)

// main is the entry point for the warehouse loader. It loads the job config,
// optionally initializes a metrics backend, and runs the full
// extract/transform/load cycle.
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		statsdAddrFlg     string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/datatran.json", "job config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&statsdAddrFlg, "statsd-addr", "", "DogStatsD address for the datadog backend (overrides env DD_AGENT_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	job, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.ValidateJob(job)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	setupMetrics(job.Job, metricsBackendFlg, pushGatewayURLFlg, statsdAddrFlg, *verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := storage.New(ctx, storage.Config{
		Kind:     job.Storage.Kind,
		DSN:      job.Storage.DSN,
		PageSize: job.Storage.PageSize,
	})
	if err != nil {
		fatalf("open storage: %v", err)
	}
	defer repo.Close()

	var notifier notify.Notifier = notify.Nop{}
	if job.Notify.Enabled() {
		notifier = notify.NewTelegram(job.Notify.TelegramToken, job.Notify.TelegramChatID)
	}

	start := time.Now()
	if err := pipeline.New(job, repo, notifier).Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
}

// setupMetrics decides the metrics backend: flag → env → default (nop).
func setupMetrics(jobName, backendName, gwURL, statsdAddr string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=pushgateway url=%s job=%s", gwURL, jobName)
		metrics.SetBackend(b)

	case "datadog":
		if statsdAddr == "" {
			statsdAddr = os.Getenv("DD_AGENT_ADDR")
		}
		if statsdAddr == "" {
			statsdAddr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: statsdAddr, Namespace: "saferoad."})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog addr=%s", statsdAddr)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
