package engine

import (
	"errors"

	"github.com/jonboulle/clockwork"

	"github.com/openfroyo/ppactl/pkg/distro"
	"github.com/openfroyo/ppactl/pkg/telemetry"
)

// Options configures an Engine.
type Options struct {
	// Service is the remote archive service. Required.
	Service ArchiveService

	// Detector answers which series this host runs and which are supported.
	// Required by CopyToSeries only.
	Detector distro.Detector

	// Proposed and Release are the staging and public archives.
	Proposed ArchiveRef
	Release  ArchiveRef

	// Whitelist names the only packages the engine ever copies.
	Whitelist []string

	// DryRun logs intended copies without issuing them.
	DryRun bool

	// Clock drives the build waiter. Defaults to the real clock.
	Clock clockwork.Clock

	Logger  *telemetry.Logger
	Metrics *telemetry.Metrics
	Events  *telemetry.EventPublisher
}

// Engine runs one promotion step against the archive service. Each Engine owns
// one ArchiveCache, so it should be built fresh for every run.
type Engine struct {
	service   ArchiveService
	cache     *ArchiveCache
	detector  distro.Detector
	queue     *CopyQueue
	proposed  ArchiveRef
	release   ArchiveRef
	whitelist []string
	dryRun    bool
	clock     clockwork.Clock
	logger    *telemetry.Logger
	metrics   *telemetry.Metrics
	events    *telemetry.EventPublisher
}

// NewEngine creates an Engine from opts.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Service == nil {
		return nil, errors.New("engine: archive service is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NopLogger()
	}

	logger := opts.Logger.NewComponentLogger("engine")
	return &Engine{
		service:   opts.Service,
		cache:     NewArchiveCache(opts.Service, opts.Logger),
		detector:  opts.Detector,
		queue:     NewCopyQueue(),
		proposed:  opts.Proposed,
		release:   opts.Release,
		whitelist: append([]string(nil), opts.Whitelist...),
		dryRun:    opts.DryRun,
		clock:     opts.Clock,
		logger:    logger,
		metrics:   opts.Metrics,
		events:    opts.Events,
	}, nil
}

// Cache returns the engine's archive cache.
func (e *Engine) Cache() *ArchiveCache {
	return e.cache
}

// Queue returns the pending copy queue.
func (e *Engine) Queue() *CopyQueue {
	return e.queue
}

// isWhitelisted reports whether name may be touched by the engine.
func (e *Engine) isWhitelisted(name string) bool {
	for _, w := range e.whitelist {
		if w == name {
			return true
		}
	}
	return false
}

func (e *Engine) publish(event telemetry.Event) {
	e.events.Publish(event)
}
