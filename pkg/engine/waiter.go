package engine

import (
	"context"
	"time"

	"github.com/openfroyo/ppactl/pkg/launchpad"
	"github.com/openfroyo/ppactl/pkg/telemetry"
)

type buildFailure struct {
	arch  string
	state launchpad.BuildState
	link  string
}

type buildTally struct {
	total     int
	succeeded int
	building  int
	failed    []buildFailure
}

// WaitForBuilds polls until name at version is published in the archive and
// every one of its builds has finished. It returns ExitSuccess when all builds
// succeeded, and ExitFailure as soon as any build fails or when the deadline
// passes first. Sources and builds are always read from the service, never
// from the cache.
func (e *Engine) WaitForBuilds(ctx context.Context, opts WaitOptions) (int, error) {
	if opts.Archive == (ArchiveRef{}) {
		opts.Archive = e.proposed
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultWaitInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultWaitTimeout
	}

	l := e.logger.WithPackage(opts.Package, opts.Version).WithField("archive", opts.Archive.String())
	archive, err := e.cache.GetPPA(ctx, opts.Archive)
	if err != nil {
		return ExitFailure, err
	}
	deadline := NewDeadline(e.clock.Now(), opts.Timeout)

	state := WaitStateAwaitingSource
	var sources []launchpad.SourcePublication
	l.Infof("waiting for %s %s to appear in %s", opts.Package, opts.Version, opts.Archive)

	for !state.IsTerminal() {
		if deadline.Exceeded(e.clock.Now()) {
			if state == WaitStateAwaitingSource {
				l.Errorf("timeout: %s %s did not appear in %s within %s",
					opts.Package, opts.Version, opts.Archive, opts.Timeout)
			} else {
				l.Errorf("timeout: builds for %s %s did not complete within %s",
					opts.Package, opts.Version, opts.Timeout)
			}
			state = WaitStateTimedOut
			break
		}
		e.metrics.RecordWaitPoll()

		switch state {
		case WaitStateAwaitingSource:
			sources, err = e.pendingSources(ctx, archive, opts)
			if err != nil {
				return ExitFailure, err
			}
			if len(sources) > 0 {
				l.Infof("found %d source(s) for %s %s", len(sources), opts.Package, opts.Version)
				l.Info("waiting for builds to complete")
				state = WaitStatePollingBuilds
				// Poll builds straight away.
				continue
			}
			l.Infof("source not yet available, retrying in %s (%s remaining)",
				opts.Interval, e.remaining(deadline))

		case WaitStatePollingBuilds:
			tally, err := e.tallyBuilds(ctx, sources)
			if err != nil {
				return ExitFailure, err
			}
			if len(tally.failed) > 0 {
				l.Error("build failures detected:")
				for _, f := range tally.failed {
					l.Errorf("  %s: %s - %s", f.arch, f.state, f.link)
					e.publish(telemetry.Event{
						Type:    telemetry.EventTypeBuildFailed,
						Level:   telemetry.EventLevelError,
						Package: opts.Package,
						Version: opts.Version,
						Message: string(f.state),
						Data:    map[string]interface{}{"arch": f.arch, "link": f.link},
					})
				}
				state = WaitStateFailed
				continue
			}
			if tally.total > 0 && tally.building == 0 {
				l.Infof("all %d build(s) completed successfully", tally.total)
				e.publish(telemetry.Event{
					Type:    telemetry.EventTypeBuildsSucceeded,
					Package: opts.Package,
					Version: opts.Version,
					Message: "all builds succeeded",
					Data:    map[string]interface{}{"builds": tally.total},
				})
				state = WaitStateSucceeded
				continue
			}
			l.Infof("waiting for builds: %d/%d complete, %d building, retrying in %s (%s remaining)",
				tally.succeeded, tally.total, tally.building, opts.Interval, e.remaining(deadline))
		}

		if err := e.sleep(ctx, opts.Interval); err != nil {
			return ExitFailure, err
		}
	}

	if state == WaitStateTimedOut {
		e.publish(telemetry.Event{
			Type:    telemetry.EventTypeWaitTimedOut,
			Level:   telemetry.EventLevelError,
			Package: opts.Package,
			Version: opts.Version,
			Message: "timed out after " + opts.Timeout.String(),
		})
	}
	e.metrics.RecordWaitOutcome(string(state))
	return state.ExitCode(), nil
}

// pendingSources fetches the publications of the awaited version, dropping
// deleted, superseded and obsolete ones.
func (e *Engine) pendingSources(ctx context.Context, archive *launchpad.Archive, opts WaitOptions) ([]launchpad.SourcePublication, error) {
	published, err := e.service.GetPublishedSources(ctx, archive, launchpad.SourceFilter{
		SourceName:  opts.Package,
		Version:     opts.Version,
		ExactMatch:  true,
		OrderByDate: true,
	})
	if err != nil {
		return nil, wrapRemoteError("getPublishedSources", opts.Archive.String(), err)
	}

	var sources []launchpad.SourcePublication
	for _, s := range published {
		if !s.Status.IsTerminal() {
			sources = append(sources, s)
		}
	}
	return sources, nil
}

func (e *Engine) tallyBuilds(ctx context.Context, sources []launchpad.SourcePublication) (buildTally, error) {
	var tally buildTally
	for _, source := range sources {
		builds, err := e.service.GetBuilds(ctx, source)
		if err != nil {
			return tally, wrapRemoteError("getBuilds", source.SourcePackageName+" "+source.SourcePackageVersion, err)
		}
		for _, b := range builds {
			tally.total++
			switch {
			case b.BuildState.IsSuccess():
				tally.succeeded++
			case b.BuildState.IsFailure():
				tally.failed = append(tally.failed, buildFailure{arch: b.ArchTag, state: b.BuildState, link: b.WebLink})
			default:
				tally.building++
			}
		}
	}
	return tally, nil
}

func (e *Engine) remaining(d Deadline) time.Duration {
	r := d.At().Sub(e.clock.Now())
	if r < 0 {
		r = 0
	}
	return r.Truncate(time.Second)
}

// sleep waits for d on the engine clock, or until ctx is cancelled.
func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.clock.After(d):
		return nil
	}
}
