package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"bugingest/internal/config"
	"bugingest/internal/logger"
	"bugingest/internal/metrics"
	"bugingest/internal/metrics/prompush"
	"bugingest/internal/pipeline"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "bugingest/internal/storage/all"
)

// main is the entry point for the ingest binary. It loads the pipeline
// config, optionally initializes a metrics backend, and executes the run.
func main() {
	var (
		cfgPath           string
		snapshotsDir      string
		dsn               string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
		createTables      bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/sample.json", "pipeline config JSON path")
	flag.StringVar(&snapshotsDir, "snapshots", "", "snapshot directory (overrides config source.dir.path)")
	flag.StringVar(&dsn, "dsn", "", "database DSN (overrides config storage.db.dsn)")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend (pushgateway, none); falls back to $METRICS_BACKEND, then pushgateway")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL; falls back to $PUSHGATEWAY_URL, then http://localhost:9091")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&createTables, "create-tables", false, "apply destination DDL before the run (overrides config)")
	verbose := flag.Bool("v", false, "enable verbose logs")
	console := flag.Bool("console", false, "human readable log output")

	flag.Parse()

	log := logger.New(*console, *verbose)

	f, err := os.Open(cfgPath)
	if err != nil {
		fatalf("open config: %v", err)
	}

	var p config.Pipeline
	err = json.NewDecoder(f).Decode(&p)
	f.Close()
	if err != nil {
		fatalf("decode config: %v", err)
	}

	if snapshotsDir != "" {
		p.Source.Kind = "dir"
		p.Source.Dir.Path = snapshotsDir
	}
	if dsn != "" {
		p.Storage.DB.DSN = dsn
	}
	if createTables {
		p.Storage.DB.AutoCreateTables = true
	}

	// Validate pipeline config.
	issues := config.ValidatePipeline(p)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Error().Str("config", cfgPath).Msg("configuration is invalid")
		os.Exit(1)
	}

	// If validate flag is set, only validate the configuration and exit
	if validate {
		log.Info().Str("config", cfgPath).Msg("configuration is valid")
		os.Exit(0)
	}

	backendName, gwURL := resolveMetricsConfig(metricsBackendFlg, pushGatewayURLFlg)
	flush := func() {}
	switch backendName {
	case "pushgateway":
		jobName := p.Job
		if jobName == "" {
			jobName = "bug_ingest"
		}

		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Warn().Err(err).Msg("metrics: failed to init prom push backend; using nop")
		} else {
			log.Info().Str("url", gwURL).Str("backend", backendName).Str("job_name", jobName).Msg("metrics enabled")
			metrics.SetBackend(b)
			flush = func() {
				if err := metrics.Flush(); err != nil {
					log.Warn().Err(err).Msg("metrics: flush error")
				}
			}
		}

	case "none":
		// metrics disabled; nop backend remains
		log.Debug().Str("backend", backendName).Msg("metrics disabled")

	default:
		log.Warn().Str("backend", backendName).Msg("metrics: unknown backend; metrics disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := pipeline.Run(ctx, log, p)
	if code := finishRun(log, flush, stats, err); code != 0 {
		os.Exit(code)
	}
}

// resolveMetricsConfig applies the flag → environment → default fallback for
// the metrics backend selection and the Pushgateway URL.
func resolveMetricsConfig(backendFlag, urlFlag string) (string, string) {
	backend := backendFlag
	if backend == "" {
		backend = os.Getenv("METRICS_BACKEND")
	}
	if backend == "" {
		backend = "pushgateway"
	}

	url := urlFlag
	if url == "" {
		url = os.Getenv("PUSHGATEWAY_URL")
	}
	if url == "" {
		url = "http://localhost:9091"
	}
	return backend, url
}

// finishRun flushes metrics and maps the run outcome to an exit code: 0 for a
// clean run, 1 when the run aborted, 2 when it completed with failed records.
// The flush happens here rather than in a defer because os.Exit skips
// deferred calls, and partially failed runs are exactly the ones whose
// failure counters must reach the gateway.
func finishRun(log zerolog.Logger, flush func(), stats pipeline.Stats, runErr error) int {
	if runErr != nil {
		log.Error().Err(runErr).Msg("run aborted")
		flush()
		return 1
	}
	flush()
	if stats.Failed > 0 {
		return 2
	}
	return 0
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
