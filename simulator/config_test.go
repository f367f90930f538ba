package simulator

import (
	"os"
	"testing"
	"time"
)

// unsetEnv clears key for the test; t.Setenv restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatal(err)
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"SIM_LISTEN_ADDR", "SIM_AWS_PORT", "SIM_REGION", "SIM_BOOT_DELAY", "SIM_SHUTDOWN_DELAY", "SIM_LOG_LEVEL"} {
		unsetEnv(t, key)
	}
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":4566" {
		t.Errorf("expected :4566, got %s", cfg.ListenAddr)
	}
	if cfg.BootDelay != 5*time.Second {
		t.Errorf("expected 5s boot delay, got %s", cfg.BootDelay)
	}
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	unsetEnv(t, "SIM_SHUTDOWN_DELAY")
	t.Setenv("SIM_LISTEN_ADDR", ":9000")
	t.Setenv("SIM_AWS_PORT", "4567")
	t.Setenv("SIM_BOOT_DELAY", "0s")
	t.Setenv("SIM_REGION", "eu-central-1")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":4567" {
		t.Errorf("expected SIM_AWS_PORT to win, got %s", cfg.ListenAddr)
	}
	if cfg.BootDelay != 0 || cfg.Region != "eu-central-1" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestConfigFromEnv_BadDuration(t *testing.T) {
	unsetEnv(t, "SIM_SHUTDOWN_DELAY")
	t.Setenv("SIM_BOOT_DELAY", "later")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatal("expected an error for an unparsable duration")
	}
}
