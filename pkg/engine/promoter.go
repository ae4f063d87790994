package engine

import (
	"context"

	"github.com/openfroyo/ppactl/pkg/launchpad"
	"github.com/openfroyo/ppactl/pkg/telemetry"
)

// Promote copies every published, whitelisted source in the proposed archive to
// the release archive, keeping its series and pocket. Rejections because the
// destination series is obsolete, or because the copy already exists, are
// logged and skipped. Any other failure aborts the scan and is returned.
func (e *Engine) Promote(ctx context.Context) (int, error) {
	e.logger.Infof("promoting packages from %s to %s", e.proposed, e.release)

	sources, err := e.cache.GetPublishedSources(ctx, e.proposed, "", launchpad.StatusPublished)
	if err != nil {
		return ExitFailure, err
	}

	var (
		proposed *launchpad.Archive
		release  *launchpad.Archive
		copied   bool
	)
	for _, source := range sources {
		if !e.isWhitelisted(source.SourcePackageName) {
			continue
		}
		if proposed == nil {
			if proposed, err = e.cache.GetPPA(ctx, e.proposed); err != nil {
				return ExitFailure, err
			}
			if release, err = e.cache.GetPPA(ctx, e.release); err != nil {
				return ExitFailure, err
			}
		}

		ok, err := e.promoteSource(ctx, proposed, release, source)
		if err != nil {
			return ExitFailure, err
		}
		copied = copied || ok
	}

	if !copied {
		e.logger.Info("no eligible packages to promote")
	} else {
		e.logger.Info("promotion requests submitted")
	}
	return ExitSuccess, nil
}

// promoteSource issues one copy and reports whether it was attempted without rejection.
func (e *Engine) promoteSource(ctx context.Context, proposed, release *launchpad.Archive, source launchpad.SourcePublication) (bool, error) {
	nv := NameVersion{Name: source.SourcePackageName, Version: source.SourcePackageVersion}
	series := source.SeriesName()
	l := e.logger.WithPackage(nv.Name, nv.Version).WithField("series", series)

	if e.dryRun {
		l.Infof("dry run: would copy %s (%s) to %s", nv, series, e.release)
		e.metrics.RecordPromotion("dry_run")
		return true, nil
	}

	l.Infof("copying %s (%s) to %s", nv, series, e.release)
	err := e.service.CopyPackage(ctx, release, launchpad.CopyPackageRequest{
		SourceName:      nv.Name,
		Version:         nv.Version,
		FromArchiveLink: proposed.SelfLink,
		ToPocket:        source.Pocket,
		ToSeries:        series,
		IncludeBinaries: true,
	})
	if err != nil {
		outcome, kind := ClassifyRejection(err, RejectionObsoleteSeries, RejectionAlreadyPublished)
		if outcome == RejectionFatal {
			e.metrics.RecordPromotion("failed")
			wrapped := wrapRemoteError("copyPackage", nv.String(), err)
			e.metrics.RecordError(string(wrapped.Class))
			return false, wrapped
		}
		if kind == RejectionObsoleteSeries {
			l.Infof("skip obsolete series %s for %s", series, nv)
		} else {
			l.Infof("%s already published in %s", nv, e.release)
		}
		e.metrics.RecordRejectionIgnored(string(kind))
		e.metrics.RecordPromotion("ignored")
		e.publish(telemetry.Event{
			Type:    telemetry.EventTypeRejectionIgnored,
			Package: nv.Name,
			Version: nv.Version,
			Message: err.Error(),
			Data:    map[string]interface{}{"series": series, "rejection": string(kind)},
		})
		return false, nil
	}

	e.metrics.RecordPromotion("copied")
	e.publish(telemetry.Event{
		Type:    telemetry.EventTypePromotionCopied,
		Package: nv.Name,
		Version: nv.Version,
		Message: "copied to " + e.release.String(),
		Data:    map[string]interface{}{"series": series, "pocket": string(source.Pocket)},
	})
	return true, nil
}
