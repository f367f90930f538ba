// Package simulator provides the HTTP framework for the in-repo AWS simulator.
//
// The simulator implements the subset of the EC2, S3, SQS and STS APIs that
// cloudtour exercises. The framework provides the HTTP server, request
// routing, in-memory state management, authentication passthrough and
// AWS-style error formatting. Service handlers live in simulator/aws.
package simulator

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the simulator server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":4566").
	ListenAddr string `envconfig:"SIM_LISTEN_ADDR" default:":4566"`

	// Port overrides the port of ListenAddr when set.
	Port string `envconfig:"SIM_AWS_PORT"`

	// TLSCert is the path to the TLS certificate file. Empty disables TLS.
	TLSCert string `envconfig:"SIM_TLS_CERT"`

	// TLSKey is the path to the TLS private key file.
	TLSKey string `envconfig:"SIM_TLS_KEY"`

	// LogLevel is the zerolog log level (trace, debug, info, warn, error).
	LogLevel string `envconfig:"SIM_LOG_LEVEL" default:"info"`

	// Region is reported in queue URLs and bucket locations.
	Region string `envconfig:"SIM_REGION" default:"us-east-2"`

	// BootDelay is how long a launched instance stays "pending".
	BootDelay time.Duration `envconfig:"SIM_BOOT_DELAY" default:"5s"`

	// ShutdownDelay is how long a terminated instance stays "shutting-down".
	ShutdownDelay time.Duration `envconfig:"SIM_SHUTDOWN_DELAY" default:"5s"`
}

// ConfigFromEnv loads configuration from environment variables.
//
//	SIM_LISTEN_ADDR     listen address (default ":4566")
//	SIM_AWS_PORT        port only, overrides SIM_LISTEN_ADDR
//	SIM_TLS_CERT        TLS certificate file path
//	SIM_TLS_KEY         TLS private key file path
//	SIM_LOG_LEVEL       log level (default "info")
//	SIM_REGION          region (default "us-east-2")
//	SIM_BOOT_DELAY      instance pending duration (default "5s")
//	SIM_SHUTDOWN_DELAY  instance shutting-down duration (default "5s")
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.Port != "" {
		cfg.ListenAddr = ":" + cfg.Port
	}
	return cfg, nil
}
