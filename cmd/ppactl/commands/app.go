package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/openfroyo/ppactl/pkg/config"
	"github.com/openfroyo/ppactl/pkg/distro"
	"github.com/openfroyo/ppactl/pkg/engine"
	"github.com/openfroyo/ppactl/pkg/launchpad"
	"github.com/openfroyo/ppactl/pkg/stores"
	"github.com/openfroyo/ppactl/pkg/telemetry"
)

// app holds everything one command invocation needs.
type app struct {
	cfg    *config.Config
	tel    *telemetry.Telemetry
	logger *telemetry.Logger
	runID  string
	events *telemetry.EventPublisher
	store  stores.Store

	// requests counts Launchpad requests for the debug timing fields.
	requests *launchpad.RequestCounter
}

// loadConfig reads --config and applies the logging overrides. Flags win over
// LOG_LEVEL, which wins over the file. Among the flags, --quiet beats --debug
// and -vv, which beat --log-level.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	cfg, err := loader.Load(configPath)
	if err != nil {
		return nil, err
	}

	if env := os.Getenv("LOG_LEVEL"); env != "" {
		cfg.Logging.Level = env
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	applyVerbosity(cfg)
	if jsonOutput {
		cfg.Logging.Format = "json"
	}

	if err := loader.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyVerbosity(cfg *config.Config) {
	switch {
	case quiet:
		cfg.Logging.Level = "warn"
	case debug:
		cfg.Logging.Level = "debug"
		cfg.Launchpad.Debug = true
	case verbosity > 1:
		cfg.Logging.Level = "debug"
	}
}

// newApp loads configuration and sets up telemetry and run history.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.NewTelemetry(cfg.Telemetry(buildVersion))
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	runID := uuid.NewString()
	a := &app{
		cfg:    cfg,
		tel:    tel,
		logger: tel.Logger.WithRunID(runID),
		runID:  runID,
		events: telemetry.NewEventPublisher(runID),
	}

	if a.logger.IsDebug() {
		a.requests = &launchpad.RequestCounter{}
		a.logger = a.logger.WithHook(telemetry.NewTimingHook(a.requests.Count))
	}

	if cfg.History.Path != "" {
		store, err := openStore(ctx, cfg.History.Path)
		if err != nil {
			// History is an audit log; losing it must not stop a promotion.
			a.logger.WithError(err).Warn("run history disabled")
		} else {
			a.store = store
		}
	}

	return a, nil
}

func openStore(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// newClient builds the Launchpad client. Anonymous access is used when no
// credentials file is configured.
func (a *app) newClient() (*launchpad.Client, error) {
	lp := a.cfg.Launchpad

	var creds *launchpad.Credentials
	if lp.CredentialsFile != "" {
		c, err := launchpad.LoadCredentials(lp.CredentialsFile)
		if err != nil {
			return nil, err
		}
		creds = c
	} else {
		a.logger.Debug("no credentials file configured, using anonymous access")
	}

	return launchpad.NewClient(launchpad.ClientOptions{
		APIRoot:           lp.APIRoot,
		Distribution:      a.cfg.Distribution,
		Credentials:       creds,
		Timeout:           lp.Timeout,
		RequestsPerSecond: lp.RequestsPerSecond,
		Burst:             lp.Burst,
		Debug:             lp.Debug,
		Counter:           a.requests,
		Logger:            a.logger,
		Metrics:           a.tel.Metrics,
		Tracer:            a.tel.Tracer,
	})
}

// newEngine wires the engine for one run.
func (a *app) newEngine(client *launchpad.Client, dryRun bool) (*engine.Engine, error) {
	return engine.NewEngine(engine.Options{
		Service:   client,
		Detector:  distro.NewCommandDetector(),
		Proposed:  a.cfg.ProposedRef(),
		Release:   a.cfg.ReleaseRef(),
		Whitelist: a.cfg.Whitelist,
		DryRun:    dryRun,
		Clock:     clockwork.NewRealClock(),
		Logger:    a.logger,
		Metrics:   a.tel.Metrics,
		Events:    a.events,
	})
}

// runStep executes one engine step inside a command span, records it in the
// run history and metrics, and maps a non-zero result to ExitError.
func (a *app) runStep(cmd *cobra.Command, dryRun bool, step func(context.Context, *engine.Engine) (int, error)) (err error) {
	ctx := cmd.Context()
	command := cmd.Name()
	timer := telemetry.NewTimer()

	ctx, span := a.tel.Tracer.StartCommandSpan(ctx, command, a.runID)
	defer span.End()

	a.tel.Metrics.RecordRunStarted(command)
	a.recordStart(ctx, command, dryRun)

	code := engine.ExitFailure
	defer func() {
		status := runStatus(code, err)
		a.tel.Metrics.RecordRunCompleted(command, string(status), timer.Duration())
		a.recordCompletion(ctx, status, code, err)
		if err != nil {
			a.tel.Metrics.RecordError(errorClass(err))
			telemetry.RecordError(span, err)
		} else {
			telemetry.RecordSuccess(span)
		}
		a.close()
	}()

	client, err := a.newClient()
	if err != nil {
		return err
	}
	eng, err := a.newEngine(client, dryRun)
	if err != nil {
		return err
	}

	code, err = step(ctx, eng)
	a.logger.Debugf("%d requests issued", client.RequestCount())
	if err != nil {
		return err
	}
	if code != engine.ExitSuccess {
		return &ExitError{Code: code}
	}
	return nil
}

func (a *app) recordStart(ctx context.Context, command string, dryRun bool) {
	if a.store == nil {
		return
	}
	run := &stores.Run{
		ID:      a.runID,
		Command: command,
		Args:    strings.Join(os.Args[1:], " "),
		DryRun:  dryRun,
		Status:  stores.RunStatusRunning,
	}
	if err := a.store.CreateRun(ctx, run); err != nil {
		a.logger.WithError(err).Warn("failed to record run")
		a.store = nil
		return
	}
	a.events.Subscribe(stores.Recorder(ctx, a.store, a.logger), nil)
}

func (a *app) recordCompletion(ctx context.Context, status stores.RunStatus, code int, err error) {
	if a.store == nil {
		return
	}
	var msg *string
	if err != nil {
		s := err.Error()
		msg = &s
	}
	if status == stores.RunStatusError {
		code = engine.ExitFailure
	}
	// The command context may already be cancelled by an interrupt.
	if cerr := a.store.CompleteRun(context.WithoutCancel(ctx), a.runID, status, code, msg); cerr != nil {
		a.logger.WithError(cerr).Warn("failed to record run completion")
	}
}

// close flushes telemetry and closes the history database.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("failed to flush telemetry")
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close run history")
		}
	}
}

func runStatus(code int, err error) stores.RunStatus {
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return stores.RunStatusFailed
	case err != nil:
		return stores.RunStatusError
	case code == engine.ExitSuccess:
		return stores.RunStatusSucceeded
	default:
		return stores.RunStatusFailed
	}
}

func errorClass(err error) string {
	var engErr *engine.EngineError
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return "exit"
	case errors.As(err, &engErr):
		return string(engErr.Class)
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "unknown"
	}
}
