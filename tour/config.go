package tour

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the tour configuration. Fields are filled from defaults, an
// optional TOML file, a .env file and the environment, in that order.
type Config struct {
	Region string `toml:"region" envconfig:"AWS_REGION"`
	// EndpointURL switches every client to a custom endpoint (simulator mode).
	EndpointURL   string `toml:"endpoint_url" envconfig:"CLOUDTOUR_ENDPOINT_URL"`
	S3EndpointURL string `toml:"s3_endpoint_url" envconfig:"CLOUDTOUR_S3_ENDPOINT_URL"`

	Prefix      string `toml:"prefix" envconfig:"CLOUDTOUR_PREFIX"`
	KeyPairName string `toml:"key_pair" envconfig:"CLOUDTOUR_KEY_PAIR"`
	KeyDir      string `toml:"key_dir" envconfig:"CLOUDTOUR_KEY_DIR"`
	KeepKeyPair bool   `toml:"keep_key_pair" envconfig:"CLOUDTOUR_KEEP_KEY_PAIR"`

	InstanceType     string `toml:"instance_type" envconfig:"CLOUDTOUR_INSTANCE_TYPE"`
	ImageOwner       string `toml:"image_owner" envconfig:"CLOUDTOUR_IMAGE_OWNER"`
	ImageNamePattern string `toml:"image_name" envconfig:"CLOUDTOUR_IMAGE_NAME"`

	UploadFile     string `toml:"upload_file" envconfig:"CLOUDTOUR_UPLOAD_FILE"`
	QueueName      string `toml:"queue_name" envconfig:"CLOUDTOUR_QUEUE_NAME"`
	MessageGroupID string `toml:"message_group" envconfig:"CLOUDTOUR_MESSAGE_GROUP"`
	MessageName    string `toml:"message_name" envconfig:"CLOUDTOUR_MESSAGE_NAME"`
	MessageBody    string `toml:"message_body" envconfig:"CLOUDTOUR_MESSAGE_BODY"`

	ProvisionPause time.Duration `toml:"provision_pause" envconfig:"CLOUDTOUR_PROVISION_PAUSE"`
	TeardownPause  time.Duration `toml:"teardown_pause" envconfig:"CLOUDTOUR_TEARDOWN_PAUSE"`
	SettlePause    time.Duration `toml:"settle_pause" envconfig:"CLOUDTOUR_SETTLE_PAUSE"`
	WaitTimeout    time.Duration `toml:"wait_timeout" envconfig:"CLOUDTOUR_WAIT_TIMEOUT"`

	StateFile string `toml:"state_file" envconfig:"CLOUDTOUR_STATE_FILE"`
	LogLevel  string `toml:"log_level" envconfig:"CLOUDTOUR_LOG_LEVEL"`
}

// DefaultConfig returns the configuration the tour runs with when nothing
// is overridden. Names derived from the prefix are filled in later by
// ConfigFromEnv so that a changed prefix carries through.
func DefaultConfig() Config {
	return Config{
		Region:           "us-east-2",
		Prefix:           "cloudtour",
		KeyDir:           ".",
		KeepKeyPair:      true,
		InstanceType:     "t2.micro",
		ImageOwner:       "099720109477", // Canonical
		ImageNamePattern: "ubuntu/images/hvm-ssd/ubuntu-focal-20.04-amd64-server-*",
		UploadFile:       "CSE546test.txt",
		MessageGroupID:   "messageGroup1",
		MessageName:      "test message",
		MessageBody:      "This is a test message",
		ProvisionPause:   60 * time.Second,
		TeardownPause:    10 * time.Second,
		SettlePause:      20 * time.Second,
		WaitTimeout:      5 * time.Minute,
		StateFile:        ".cloudtour-state.json",
		LogLevel:         "info",
	}
}

// LoadEnvFile loads a dotenv file into the process environment. Variables
// that are already set win. A missing file is not an error.
func LoadEnvFile(path string, logger zerolog.Logger) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug().Str("path", path).Msg("no env file")
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	logger.Debug().Str("path", path).Msg("env file loaded")
	return nil
}

// LoadConfigFile overlays a TOML file onto cfg. Keys absent from the file
// leave the corresponding fields untouched.
func LoadConfigFile(path string, cfg *Config) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("load config file %s: %w", path, err)
	}
	return nil
}

// ConfigFromEnv applies environment overrides on top of base and fills in
// the prefix-derived names.
func ConfigFromEnv(base Config) (Config, error) {
	cfg := base
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.KeyPairName == "" {
		cfg.KeyPairName = cfg.Prefix + "-key-pair"
	}
	if cfg.QueueName == "" {
		cfg.QueueName = cfg.Prefix + "-queue.fifo"
	}
	if cfg.S3EndpointURL == "" && cfg.EndpointURL != "" {
		cfg.S3EndpointURL = strings.TrimRight(cfg.EndpointURL, "/") + "/s3"
	}
	return cfg, nil
}

var prefixPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// maxPrefixLen keeps "<prefix>-bucket-<uuid>" within the 63 character
// bucket name limit.
const maxPrefixLen = 63 - len("-bucket-") - 36

// Validate checks required configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Region == "" {
		errs = append(errs, errors.New("region is required"))
	}
	if !prefixPattern.MatchString(c.Prefix) || len(c.Prefix) > maxPrefixLen {
		errs = append(errs, fmt.Errorf("prefix %q must be lowercase letters, digits and hyphens, at most %d characters", c.Prefix, maxPrefixLen))
	}
	if !strings.HasSuffix(c.QueueName, ".fifo") {
		errs = append(errs, fmt.Errorf("queue name %q must end in .fifo", c.QueueName))
	}
	if c.KeyPairName == "" {
		errs = append(errs, errors.New("key pair name is required"))
	}
	if c.UploadFile == "" {
		errs = append(errs, errors.New("upload file is required"))
	}
	if c.MessageGroupID == "" {
		errs = append(errs, errors.New("message group is required"))
	}
	if c.ProvisionPause < 0 || c.TeardownPause < 0 || c.SettlePause < 0 {
		errs = append(errs, errors.New("pauses must not be negative"))
	}
	if c.WaitTimeout <= 0 {
		errs = append(errs, errors.New("wait timeout must be positive"))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %v", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
