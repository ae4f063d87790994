package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openfroyo/ppactl/pkg/launchpad"
	"github.com/openfroyo/ppactl/pkg/telemetry"
)

// CopyToSeries copies every whitelisted package published in the proposed
// archive for this host's series to each other supported series that lacks it.
// A copy is queued only once the source series has binaries; otherwise the
// package is reported and picked up by a later run. Targets that already hold a
// published, built copy are left alone without comment.
//
// It returns ExitSuccess once the queued copies are performed. Remote and
// local tooling failures are returned as errors.
func (e *Engine) CopyToSeries(ctx context.Context) (int, error) {
	if e.detector == nil {
		return ExitFailure, errors.New("copy to series: no distribution detector configured")
	}

	current, err := e.detector.CurrentSeries(ctx)
	if err != nil {
		return ExitFailure, err
	}
	e.logger.Infof("copying %s within %s (source series: %s)",
		strings.Join(e.whitelist, ", "), e.proposed, current)

	usable, err := e.cache.GetUsableSources(ctx, e.proposed, e.whitelist, current)
	if err != nil {
		return ExitFailure, err
	}

	var targets []string
	if len(usable) > 0 {
		targets, err = e.targetSeries(ctx, current)
		if err != nil {
			return ExitFailure, err
		}
	}

	for _, nv := range usable {
		if err := e.planPackage(ctx, nv, current, targets); err != nil {
			return ExitFailure, err
		}
	}

	if err := e.PerformQueuedCopies(ctx, e.proposed); err != nil {
		return ExitFailure, err
	}
	e.logger.Debug("copy to series done")
	return ExitSuccess, nil
}

// targetSeries lists the supported series other than current.
func (e *Engine) targetSeries(ctx context.Context, current string) ([]string, error) {
	supported, err := e.detector.SupportedSeries(ctx)
	if err != nil {
		return nil, err
	}
	targets := make([]string, 0, len(supported))
	for _, s := range supported {
		if s != current {
			targets = append(targets, s)
		}
	}
	e.logger.Infof("target series: %s", strings.Join(targets, ", "))
	return targets, nil
}

func (e *Engine) planPackage(ctx context.Context, nv NameVersion, current string, targets []string) error {
	l := e.logger.WithPackage(nv.Name, nv.Version)
	missing := false
	var notices []string

	for _, target := range targets {
		source, err := e.cache.GetSourceFor(ctx, e.proposed, nv.Name, nv.Version, target)
		if err != nil {
			return err
		}

		switch {
		case source == nil:
			missing = true
			l.Infof("%s missing from %s", nv, target)
			if err := e.planMissing(ctx, l, nv, current, target); err != nil {
				return err
			}

		case source.Status != launchpad.StatusPublished:
			notice := fmt.Sprintf("but it is %s in %s", strings.ToLower(string(source.Status)), target)
			notices = append(notices, notice)
			e.deferred(nv, target, notice)

		default:
			built, err := e.cache.HasPublishedBinaries(ctx, e.proposed, nv.Name, nv.Version, target)
			if err != nil {
				return err
			}
			if built {
				continue
			}
			builds, err := e.cache.GetBuildsFor(ctx, e.proposed, nv.Name, nv.Version, target)
			if err != nil {
				return err
			}
			if len(builds) > 0 {
				notice := fmt.Sprintf("but it isn't built yet for %s (state: %s) - %s",
					target, builds[0].BuildState, builds[0].WebLink)
				notices = append(notices, notice)
				e.deferred(nv, target, notice)
			}
		}
	}

	if !missing || len(notices) > 0 {
		l.Info(nv.String())
		for _, notice := range notices {
			l.Info("  " + notice)
		}
	}
	return nil
}

// planMissing queues a copy of nv to target when the current series has its
// binaries, and reports the pending build otherwise.
func (e *Engine) planMissing(ctx context.Context, l *telemetry.Logger, nv NameVersion, current, target string) error {
	built, err := e.cache.HasPublishedBinaries(ctx, e.proposed, nv.Name, nv.Version, current)
	if err != nil {
		return err
	}
	if built {
		e.QueueCopy(nv.Name, current, target, launchpad.PocketRelease)
		e.publish(telemetry.Event{
			Type:    telemetry.EventTypeCopyQueued,
			Package: nv.Name,
			Version: nv.Version,
			Message: fmt.Sprintf("queued copy from %s to %s", current, target),
			Data:    map[string]interface{}{"from": current, "to": target},
		})
		return nil
	}

	builds, err := e.cache.GetBuildsFor(ctx, e.proposed, nv.Name, nv.Version, current)
	if err != nil {
		return err
	}
	if len(builds) > 0 {
		l.Infof("  but it isn't built yet (state: %s) - %s", builds[0].BuildState, builds[0].WebLink)
		e.deferred(nv, target, fmt.Sprintf("not built in %s yet (state: %s)", current, builds[0].BuildState))
	}
	return nil
}

func (e *Engine) deferred(nv NameVersion, target, message string) {
	e.publish(telemetry.Event{
		Type:    telemetry.EventTypeCopyDeferred,
		Package: nv.Name,
		Version: nv.Version,
		Message: message,
		Data:    map[string]interface{}{"to": target},
	})
}
