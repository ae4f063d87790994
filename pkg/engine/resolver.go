package engine

import (
	"context"

	"github.com/openfroyo/ppactl/pkg/launchpad"
)

// GetSourceFor returns the publication of name at version in archive and series,
// or nil if there is none.
func (c *ArchiveCache) GetSourceFor(ctx context.Context, ref ArchiveRef, name, version, series string) (*launchpad.SourcePublication, error) {
	packages, err := c.GetSourcePackages(ctx, ref, series, nil)
	if err != nil {
		return nil, err
	}
	source, ok := packages[name][version]
	if !ok {
		return nil, nil
	}
	return &source, nil
}

// IsMissing reports whether name at version has no publication in archive and series.
func (c *ArchiveCache) IsMissing(ctx context.Context, ref ArchiveRef, name, version, series string) (bool, error) {
	source, err := c.GetSourceFor(ctx, ref, name, version, series)
	if err != nil {
		return false, err
	}
	return source == nil, nil
}

// GetBuildsFor lists the builds of name at version in archive and series. It
// returns nil without error when there is no such source.
func (c *ArchiveCache) GetBuildsFor(ctx context.Context, ref ArchiveRef, name, version, series string) ([]launchpad.Build, error) {
	source, err := c.GetSourceFor(ctx, ref, name, version, series)
	if err != nil || source == nil {
		return nil, err
	}
	return c.GetBuildsForSource(ctx, *source)
}

// HasPublishedBinaries reports whether name at version in series has nothing left
// to build.
//
// A source with no builds at all counts as built, and only the first build
// record is inspected. A series whose build dispatch failed entirely therefore
// reads as done, as does one where a later architecture is still building.
// WaitForBuilds checks every record and does not share this shortcut.
func (c *ArchiveCache) HasPublishedBinaries(ctx context.Context, ref ArchiveRef, name, version, series string) (bool, error) {
	builds, err := c.GetBuildsFor(ctx, ref, name, version, series)
	if err != nil {
		return false, err
	}
	if len(builds) == 0 {
		return true, nil
	}
	return builds[0].BuildState.IsSuccess(), nil
}
