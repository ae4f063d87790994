package engine

import (
	"context"
	"strings"

	"github.com/openfroyo/ppactl/pkg/launchpad"
	"github.com/openfroyo/ppactl/pkg/telemetry"
)

type sourcesKey struct {
	archive ArchiveRef
	series  string
	status  launchpad.PublicationStatus
}

type packagesKey struct {
	archive ArchiveRef
	series  string
	names   string
}

// ArchiveCache memoizes archive service lookups for the lifetime of one run.
// Entries are never invalidated; build a new cache when fresh data is needed.
// It is not safe for concurrent use.
type ArchiveCache struct {
	service ArchiveService
	logger  *telemetry.Logger

	ppas     map[ArchiveRef]*launchpad.Archive
	series   map[string]*launchpad.Series
	sources  map[sourcesKey][]launchpad.SourcePublication
	builds   map[string][]launchpad.Build
	packages map[packagesKey]map[string]map[string]launchpad.SourcePublication
}

// NewArchiveCache creates an empty cache in front of service.
func NewArchiveCache(service ArchiveService, logger *telemetry.Logger) *ArchiveCache {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	return &ArchiveCache{
		service:  service,
		logger:   logger.NewComponentLogger("archive-cache"),
		ppas:     make(map[ArchiveRef]*launchpad.Archive),
		series:   make(map[string]*launchpad.Series),
		sources:  make(map[sourcesKey][]launchpad.SourcePublication),
		builds:   make(map[string][]launchpad.Build),
		packages: make(map[packagesKey]map[string]map[string]launchpad.SourcePublication),
	}
}

// GetPPA returns the archive for ref.
func (c *ArchiveCache) GetPPA(ctx context.Context, ref ArchiveRef) (*launchpad.Archive, error) {
	if archive, ok := c.ppas[ref]; ok {
		return archive, nil
	}
	archive, err := c.service.GetArchive(ctx, ref.Owner, ref.Name)
	if err != nil {
		return nil, wrapRemoteError("getArchive", ref.String(), err)
	}
	c.ppas[ref] = archive
	return archive, nil
}

// GetSeries returns the distribution series named name.
func (c *ArchiveCache) GetSeries(ctx context.Context, name string) (*launchpad.Series, error) {
	if series, ok := c.series[name]; ok {
		return series, nil
	}
	series, err := c.service.GetSeries(ctx, name)
	if err != nil {
		return nil, wrapRemoteError("getSeries", name, err)
	}
	c.series[name] = series
	return series, nil
}

// GetPublishedSources lists publications in archive, newest first. An empty series
// or status means no filter on that field.
func (c *ArchiveCache) GetPublishedSources(ctx context.Context, ref ArchiveRef, series string, status launchpad.PublicationStatus) ([]launchpad.SourcePublication, error) {
	key := sourcesKey{archive: ref, series: series, status: status}
	if sources, ok := c.sources[key]; ok {
		return sources, nil
	}

	archive, err := c.GetPPA(ctx, ref)
	if err != nil {
		return nil, err
	}

	filter := launchpad.SourceFilter{Status: status, OrderByDate: true}
	if series != "" {
		s, err := c.GetSeries(ctx, series)
		if err != nil {
			return nil, err
		}
		filter.SeriesLink = s.SelfLink
	}

	sources, err := c.service.GetPublishedSources(ctx, archive, filter)
	if err != nil {
		return nil, wrapRemoteError("getPublishedSources", ref.String(), err)
	}
	c.sources[key] = sources
	return sources, nil
}

// GetBuildsForSource lists the builds of source.
func (c *ArchiveCache) GetBuildsForSource(ctx context.Context, source launchpad.SourcePublication) ([]launchpad.Build, error) {
	if builds, ok := c.builds[source.SelfLink]; ok {
		return builds, nil
	}
	builds, err := c.service.GetBuilds(ctx, source)
	if err != nil {
		return nil, wrapRemoteError("getBuilds", source.SourcePackageName+" "+source.SourcePackageVersion, err)
	}
	c.builds[source.SelfLink] = builds
	return builds, nil
}

// GetSourcePackages indexes every publication in archive and series, of any status,
// by package name and then version. When names is non-empty only those packages
// are included. If a version was published more than once, the newest
// publication wins.
func (c *ArchiveCache) GetSourcePackages(ctx context.Context, ref ArchiveRef, series string, names []string) (map[string]map[string]launchpad.SourcePublication, error) {
	key := packagesKey{archive: ref, series: series, names: strings.Join(names, "\x00")}
	if packages, ok := c.packages[key]; ok {
		return packages, nil
	}

	sources, err := c.GetPublishedSources(ctx, ref, series, "")
	if err != nil {
		return nil, err
	}

	wanted := toSet(names)
	packages := make(map[string]map[string]launchpad.SourcePublication)
	for _, source := range sources {
		name := source.SourcePackageName
		if len(wanted) > 0 && !wanted[name] {
			continue
		}
		versions, ok := packages[name]
		if !ok {
			versions = make(map[string]launchpad.SourcePublication)
			packages[name] = versions
		}
		// Sources are ordered newest first.
		if _, seen := versions[source.SourcePackageVersion]; !seen {
			versions[source.SourcePackageVersion] = source
		}
	}

	c.packages[key] = packages
	return packages, nil
}

// GetUsableSources returns, newest first and without duplicates, the name and
// version of every Published source in archive and series whose name is in names.
// Skipped entries are logged: superseded, deleted and obsolete ones at info
// level, any other status as a warning.
func (c *ArchiveCache) GetUsableSources(ctx context.Context, ref ArchiveRef, names []string, series string) ([]NameVersion, error) {
	sources, err := c.GetPublishedSources(ctx, ref, series, "")
	if err != nil {
		return nil, err
	}

	wanted := toSet(names)
	seen := make(map[NameVersion]bool)
	var usable []NameVersion
	for _, source := range sources {
		if !wanted[source.SourcePackageName] {
			continue
		}
		nv := NameVersion{Name: source.SourcePackageName, Version: source.SourcePackageVersion}
		l := c.logger.WithPackage(nv.Name, nv.Version).WithField("series", series)

		switch {
		case source.Status == launchpad.StatusPublished:
			if !seen[nv] {
				seen[nv] = true
				usable = append(usable, nv)
			}
		case source.Status.IsTerminal():
			l.Infof("%s is %s in %s", nv, strings.ToLower(string(source.Status)), series)
		default:
			l.Warnf("%s is %s in %s", nv, strings.ToLower(string(source.Status)), series)
		}
	}
	return usable, nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
