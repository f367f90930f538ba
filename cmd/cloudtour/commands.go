package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/sockerless/cloudtour/tour"
)

// session is everything a command needs once flags and config are loaded.
type session struct {
	cfg      tour.Config
	logger   zerolog.Logger
	tour     *tour.Tour
	shutdown func(context.Context) error
}

type commonFlags struct {
	envFile  *string
	config   *string
	logLevel *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		envFile:  fs.String("env-file", ".env", "dotenv file to load"),
		config:   fs.String("config", "", "TOML config file"),
		logLevel: fs.String("log-level", "", "log level (debug, info, warn, error)"),
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Str("component", "cloudtour").Logger()
}

func openSession(ctx context.Context, f commonFlags) (*session, error) {
	logger := newLogger(*f.logLevel)

	if err := tour.LoadEnvFile(*f.envFile, logger); err != nil {
		return nil, err
	}
	cfg := tour.DefaultConfig()
	if *f.config != "" {
		if err := tour.LoadConfigFile(*f.config, &cfg); err != nil {
			return nil, err
		}
	}
	cfg, err := tour.ConfigFromEnv(cfg)
	if err != nil {
		return nil, err
	}
	if *f.logLevel != "" {
		cfg.LogLevel = *f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = newLogger(cfg.LogLevel)

	shutdown, err := tour.InitTracer(ctx, "cloudtour", version)
	if err != nil {
		logger.Warn().Err(err).Msg("tracing disabled")
		shutdown = func(context.Context) error { return nil }
	}

	clients, err := tour.NewAWSClients(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize AWS clients: %w", err)
	}

	registry := tour.NewResourceRegistry(cfg.StateFile)
	if err := registry.Load(); err != nil {
		logger.Warn().Err(err).Str("path", cfg.StateFile).Msg("state file unreadable, starting empty")
	}

	logger.Debug().
		Str("region", cfg.Region).
		Str("endpoint", cfg.EndpointURL).
		Str("prefix", cfg.Prefix).
		Msg("configuration loaded")

	return &session{
		cfg:      cfg,
		logger:   logger,
		tour:     tour.New(cfg, clients, registry, logger, os.Stdout),
		shutdown: shutdown,
	}, nil
}

func (s *session) close() {
	if err := s.shutdown(context.Background()); err != nil {
		s.logger.Warn().Err(err).Msg("tracer shutdown failed")
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	common := addCommonFlags(fs)
	fs.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, common)
	if err != nil {
		return err
	}
	defer s.close()

	s.logger.Info().Str("run", s.tour.RunID()).Msg("starting tour")
	report, err := s.tour.Run(ctx)
	for _, tdErr := range report.TeardownErrors {
		s.logger.Warn().Err(tdErr).Msg("teardown error")
	}
	if err != nil {
		return err
	}
	if !report.Remaining.Empty() {
		s.logger.Warn().
			Int("instances", len(report.Remaining.Instances)).
			Int("buckets", len(report.Remaining.Buckets)).
			Int("queues", len(report.Remaining.Queues)).
			Msg("resources from this run still listed; run 'cloudtour cleanup -yes' later")
	}
	s.logger.Info().
		Str("instance", report.InstanceID).
		Str("bucket", report.BucketName).
		Str("queue", report.QueueURL).
		Int("count_after_send", report.CountAfterSend).
		Int("count_after_receive", report.CountAfterReceive).
		Msg("tour complete")
	return nil
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	common := addCommonFlags(fs)
	fs.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, common)
	if err != nil {
		return err
	}
	defer s.close()

	inv, err := s.tour.ManagedInventory(ctx)
	if err != nil {
		return err
	}
	inv.Print(os.Stdout, "")
	return nil
}

func cmdCleanup(args []string) error {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	common := addCommonFlags(fs)
	yes := fs.Bool("yes", false, "actually delete the matched resources")
	dryRun := fs.Bool("dry-run", false, "list what would be deleted")
	fs.Parse(args)

	if !*yes && !*dryRun {
		return errors.New("cleanup deletes resources; pass -yes to confirm or -dry-run to preview")
	}

	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, common)
	if err != nil {
		return err
	}
	defer s.close()

	inv, err := s.tour.Cleanup(ctx, tour.CleanupOptions{DryRun: *dryRun})
	s.logger.Info().
		Bool("dry_run", *dryRun).
		Int("instances", len(inv.Instances)).
		Int("buckets", len(inv.Buckets)).
		Int("queues", len(inv.Queues)).
		Msg("cleanup finished")
	return err
}
