package engine

import (
	"context"

	"github.com/openfroyo/ppactl/pkg/launchpad"
)

// ArchiveService is the remote package-archive service. *launchpad.Client implements it.
type ArchiveService interface {
	// GetArchive fetches a PPA by owner and name.
	GetArchive(ctx context.Context, owner, name string) (*launchpad.Archive, error)

	// GetSeries fetches a distribution series by codename.
	GetSeries(ctx context.Context, name string) (*launchpad.Series, error)

	// GetPublishedSources lists source publications in archive matching filter.
	GetPublishedSources(ctx context.Context, archive *launchpad.Archive, filter launchpad.SourceFilter) ([]launchpad.SourcePublication, error)

	// GetBuilds lists the builds of a source publication.
	GetBuilds(ctx context.Context, source launchpad.SourcePublication) ([]launchpad.Build, error)

	// CopyPackage copies one source into archive.
	CopyPackage(ctx context.Context, archive *launchpad.Archive, req launchpad.CopyPackageRequest) error

	// SyncSources copies a set of sources into archive in one request.
	SyncSources(ctx context.Context, archive *launchpad.Archive, req launchpad.SyncSourcesRequest) error
}

var _ ArchiveService = (*launchpad.Client)(nil)
