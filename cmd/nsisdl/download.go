package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/ligustah/nsisdl/internal/config"
	"github.com/ligustah/nsisdl/internal/downloader"
	nsishttp "github.com/ligustah/nsisdl/internal/http"
	"github.com/ligustah/nsisdl/internal/progress"
)

func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	url := fs.String("url", "", "Source URL (or first positional argument)")
	output := fs.String("output", "", "Destination path or bucket URL (or second positional argument)")
	configPath := fs.String("config", "", "YAML configuration file")
	showProgress := fs.Bool("progress", false, "Show progress output on stderr")
	chunkSize := fs.String("chunk-size", "", "Copy buffer size, e.g. 64KiB (default 32KiB)")
	timeout := fs.Duration("timeout", 0, "Overall request timeout (0 = none)")
	connectTimeout := fs.Duration("connect-timeout", 0, "Connection and TLS handshake timeout (default 30s)")
	inactivityTimeout := fs.Duration("inactivity-timeout", 0, "Abort when no data arrives for this long (0 = none)")
	maxRedirects := fs.Int("max-redirects", 0, "Maximum redirects to follow, -1 to disable (default 10)")
	logLevel := fs.String("log-level", "", "Log level: panic, fatal, error, warning, info, debug, trace")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: nsisdl download [options] <url> <path>

Download a URL with a single GET request and print the resulting status
code on stdout. The destination is created or truncated only after the
server answered 2xx; a failed copy leaves the partial file in place.

Settings are read from the config file, then NSISDL_* environment
variables (a .env file is honoured), then flags.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	rest := fs.Args()
	if *url == "" && len(rest) > 0 {
		*url, rest = rest[0], rest[1:]
	}
	if *output == "" && len(rest) > 0 {
		*output, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", rest)
		fs.Usage()
		return ExitInvalidArgs
	}

	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	override := config.Config{
		URL:      *url,
		Output:   *output,
		Progress: *showProgress,
		LogLevel: *logLevel,
		HTTP: config.HTTPConfig{
			Timeout:           *timeout,
			ConnectTimeout:    *connectTimeout,
			InactivityTimeout: *inactivityTimeout,
			MaxRedirects:      *maxRedirects,
		},
	}
	if *chunkSize != "" {
		size, err := progress.ParseBytes(*chunkSize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid chunk size: %v\n", err)
			return ExitInvalidArgs
		}
		override.ChunkSize = size
	}
	cfg = cfg.Merge(override)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n[nsisdl] Received interrupt, aborting download...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return download(ctx, cfg, newLogger(cfg.LogLevel))
}

func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	// Validate has already accepted the level.
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

func download(ctx context.Context, cfg config.Config, log *logrus.Logger) int {
	var reporter *progress.Reporter
	opts := downloader.Options{
		Client:    nsishttp.NewClient(cfg.HTTPOptions()),
		ChunkSize: int(cfg.ChunkSize),
		Logger:    log,
	}
	if cfg.Progress {
		opts.NewSink = func(meta nsishttp.Metadata) progress.Sink {
			total, known := meta.Size()
			reporter = progress.NewReporter(progress.Options{
				Output:         os.Stderr,
				URL:            cfg.URL,
				Total:          total,
				HasTotal:       known,
				UpdateInterval: 200 * time.Millisecond,
				Interactive:    term.IsTerminal(int(os.Stderr.Fd())),
			})
			return reporter
		}
	}

	outcome := downloader.Download(ctx, downloader.Request{
		URL:         cfg.URL,
		Destination: cfg.Output,
	}, opts)

	fmt.Fprintln(stdout, outcome.Code())

	if outcome.Kind != downloader.Success {
		if reporter != nil {
			if err := reporter.Abort(); err != nil {
				log.WithError(err).Debug("end progress line")
			}
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", outcome.Err)
		return ExitFailure
	}
	if reporter != nil {
		if err := reporter.Finish(); err != nil {
			log.WithError(err).Debug("write progress summary")
		}
	}
	return ExitSuccess
}
