package listener

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Relay pool the bot reads mentions from and publishes replies to.
	Relays []string `yaml:"relays"`

	// Bot identity: 64 hex chars or nsec. Required.
	SecretKey string `yaml:"secret_key"`

	// Mention polling
	PollInterval time.Duration `yaml:"poll_interval"` // e.g. 30s
	QueryTimeout time.Duration `yaml:"query_timeout"` // per relay fetch
	Lookback     time.Duration `yaml:"lookback"`      // how far back the first poll reaches

	// Search bounds for answering a mention
	MaxRounds      int `yaml:"max_rounds"`
	VerifyAttempts int `yaml:"verify_attempts"`
	MaxConcurrent  int `yaml:"max_concurrent"` // mentions handled in parallel

	// Where the responded-state survives restarts.
	StatePath string `yaml:"state_path"`

	// Prometheus endpoint; empty disables it.
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns a working configuration minus the secret key.
func DefaultConfig() Config {
	return Config{
		Relays: []string{
			"wss://relay.damus.io",
			"wss://nos.lol",
			"wss://relay.nostr.band",
		},
		PollInterval:   30 * time.Second,
		QueryTimeout:   10 * time.Second,
		Lookback:       1 * time.Hour,
		MaxRounds:      7,
		VerifyAttempts: 3,
		MaxConcurrent:  4,
		StatePath:      "listener_state.yaml",
		MetricsAddr:    ":9091",
	}
}

// LoadConfig reads the YAML configuration file using strict parsing. A
// missing file is seeded with the defaults so the operator has something to
// edit.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig() // Start with defaults

	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := writeDefaultConfig(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to open listener config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("YAML syntax error in listener config: %w", err)
	}

	return cfg, nil
}

// Validate reports configuration the listener cannot run with.
func (c Config) Validate() error {
	if len(c.Relays) == 0 {
		return errors.New("listener config: no relays")
	}
	if c.SecretKey == "" {
		return errors.New("listener config: secret_key is required")
	}
	if c.PollInterval <= 0 {
		return errors.New("listener config: poll_interval must be positive")
	}
	return nil
}

func writeDefaultConfig(path string, cfg Config) error {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("failed to seed listener config: %w", err)
	}
	return nil
}
