// Command simulator-aws runs the AWS simulator cloudtour is tested against.
//
// It simulates EC2 (key pairs, images, instances), S3, SQS and STS on one
// listener. Configure with environment variables:
//
//	SIM_LISTEN_ADDR     listen address (default ":4566")
//	SIM_AWS_PORT        port shorthand, overrides SIM_LISTEN_ADDR
//	SIM_TLS_CERT        TLS certificate file (optional)
//	SIM_TLS_KEY         TLS key file (optional)
//	SIM_LOG_LEVEL       log level: trace, debug, info, warn, error (default "info")
//	SIM_REGION          region reported by the simulator (default "us-east-2")
//	SIM_BOOT_DELAY      time an instance stays pending (default "5s")
//	SIM_SHUTDOWN_DELAY  time an instance stays shutting-down (default "5s")
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	sim "github.com/sockerless/cloudtour/simulator"
	awssim "github.com/sockerless/cloudtour/simulator/aws"
)

func main() {
	cfg, err := sim.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Str("component", "simulator-aws").Logger()

	s := awssim.New(cfg, logger)
	if err := s.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("simulator failed")
	}
}
