package tour

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears key for the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func clearTourEnv(t *testing.T) {
	for _, key := range []string{
		"AWS_REGION", "CLOUDTOUR_PREFIX", "CLOUDTOUR_KEY_PAIR", "CLOUDTOUR_QUEUE_NAME",
		"CLOUDTOUR_ENDPOINT_URL", "CLOUDTOUR_S3_ENDPOINT_URL", "CLOUDTOUR_MESSAGE_GROUP",
		"CLOUDTOUR_PROVISION_PAUSE", "CLOUDTOUR_LOG_LEVEL",
	} {
		unsetEnv(t, key)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "us-east-2", cfg.Region)
	assert.Equal(t, "t2.micro", cfg.InstanceType)
	assert.Equal(t, "CSE546test.txt", cfg.UploadFile)
	assert.Equal(t, "messageGroup1", cfg.MessageGroupID)
	assert.Equal(t, 60*time.Second, cfg.ProvisionPause)
	assert.Equal(t, 10*time.Second, cfg.TeardownPause)
	assert.Equal(t, 20*time.Second, cfg.SettlePause)
}

func TestConfigFromEnv_DerivedNames(t *testing.T) {
	clearTourEnv(t)
	t.Setenv("CLOUDTOUR_PREFIX", "demo")
	t.Setenv("CLOUDTOUR_ENDPOINT_URL", "http://localhost:4566/")

	cfg, err := ConfigFromEnv(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "demo-key-pair", cfg.KeyPairName)
	assert.Equal(t, "demo-queue.fifo", cfg.QueueName)
	assert.Equal(t, "http://localhost:4566/s3", cfg.S3EndpointURL)
	require.NoError(t, cfg.Validate())
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	clearTourEnv(t)
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("CLOUDTOUR_PROVISION_PAUSE", "0s")
	t.Setenv("CLOUDTOUR_QUEUE_NAME", "explicit.fifo")

	cfg, err := ConfigFromEnv(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, time.Duration(0), cfg.ProvisionPause)
	assert.Equal(t, "explicit.fifo", cfg.QueueName)
}

func TestConfigFromEnv_BadDuration(t *testing.T) {
	clearTourEnv(t)
	t.Setenv("CLOUDTOUR_PROVISION_PAUSE", "soon")

	_, err := ConfigFromEnv(DefaultConfig())
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cloudtour.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
region = "us-west-2"
prefix = "fromfile"
settle_pause = "5s"
`), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, LoadConfigFile(path, &cfg))
	assert.Equal(t, "us-west-2", cfg.Region)
	assert.Equal(t, "fromfile", cfg.Prefix)
	assert.Equal(t, 5*time.Second, cfg.SettlePause)
	// untouched keys keep their defaults
	assert.Equal(t, "t2.micro", cfg.InstanceType)

	assert.Error(t, LoadConfigFile(filepath.Join(t.TempDir(), "missing.toml"), &cfg))
}

func TestLoadEnvFile(t *testing.T) {
	clearTourEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CLOUDTOUR_PREFIX=fromdotenv\nCLOUDTOUR_MESSAGE_GROUP=group2\n"), 0o644))
	t.Setenv("CLOUDTOUR_PREFIX", "fromenv")

	require.NoError(t, LoadEnvFile(path, zerolog.Nop()))
	cfg, err := ConfigFromEnv(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Prefix, "process environment wins over .env")
	assert.Equal(t, "group2", cfg.MessageGroupID)

	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env"), zerolog.Nop()))
}

func TestValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.KeyPairName = "cloudtour-key-pair"
	valid.QueueName = "cloudtour-queue.fifo"
	require.NoError(t, valid.Validate())

	cases := map[string]func(*Config){
		"empty region":       func(c *Config) { c.Region = "" },
		"uppercase prefix":   func(c *Config) { c.Prefix = "CloudTour" },
		"long prefix":        func(c *Config) { c.Prefix = "a-very-long-prefix-name" },
		"queue without fifo": func(c *Config) { c.QueueName = "cloudtour-queue" },
		"no key pair":        func(c *Config) { c.KeyPairName = "" },
		"no group":           func(c *Config) { c.MessageGroupID = "" },
		"negative pause":     func(c *Config) { c.SettlePause = -time.Second },
		"zero wait timeout":  func(c *Config) { c.WaitTimeout = 0 },
		"bad log level":      func(c *Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}
