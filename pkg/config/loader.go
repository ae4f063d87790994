package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/ppactl/pkg/engine"
	"github.com/openfroyo/ppactl/pkg/launchpad"
	"github.com/openfroyo/ppactl/pkg/telemetry"
)

// CredentialsEnv overrides launchpad.credentials_file when set.
const CredentialsEnv = "LP_CREDENTIALS_FILE"

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	tel := telemetry.DefaultConfig()
	return &Config{
		Archives: ArchivesConfig{
			Owner:    "learningequality",
			Proposed: "kolibri-proposed",
			Release:  "kolibri",
		},
		Distribution: "ubuntu",
		Whitelist:    []string{"kolibri-server"},
		Launchpad: LaunchpadConfig{
			APIRoot:           launchpad.DefaultAPIRoot,
			RequestsPerSecond: 5,
			Burst:             5,
			Timeout:           60 * time.Second,
		},
		Wait: WaitConfig{
			Interval: engine.DefaultWaitInterval,
			Timeout:  engine.DefaultWaitTimeout,
		},
		Logging: tel.Logging,
		Metrics: tel.Metrics,
		Tracing: tel.Tracing,
	}
}

// Loader reads and validates configuration files.
type Loader struct {
	validator *validator.Validate
	getenv    func(string) string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(validator.WithRequiredStructEnabled()),
		getenv:    os.Getenv,
	}
}

// Load reads the YAML file at path on top of Default. An empty path yields the
// defaults. Unknown keys are rejected.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if creds := l.getenv(CredentialsEnv); creds != "" {
		cfg.Launchpad.CredentialsFile = creds
	}
	cfg.Launchpad.CredentialsFile = expandHome(cfg.Launchpad.CredentialsFile)
	cfg.History.Path = expandHome(cfg.History.Path)

	if err := l.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg against its struct tags.
func (l *Loader) Validate(cfg *Config) error {
	if err := l.validator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
