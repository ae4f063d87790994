package launchpad

import (
	"path"
	"strings"
	"time"
)

// PublicationStatus is the lifecycle status of a source publication.
type PublicationStatus string

const (
	// StatusPending indicates the upload was accepted but not yet published.
	StatusPending PublicationStatus = "Pending"

	// StatusPublished indicates the publication is live in the archive.
	StatusPublished PublicationStatus = "Published"

	// StatusSuperseded indicates a newer version replaced this publication.
	StatusSuperseded PublicationStatus = "Superseded"

	// StatusDeleted indicates the publication was removed from the archive.
	StatusDeleted PublicationStatus = "Deleted"

	// StatusObsolete indicates the publication belongs to an obsolete series.
	StatusObsolete PublicationStatus = "Obsolete"
)

// IsTerminal returns true if the publication can never become Published again.
func (s PublicationStatus) IsTerminal() bool {
	return s == StatusSuperseded || s == StatusDeleted || s == StatusObsolete
}

// Pocket is a publication channel within a series.
type Pocket string

const (
	PocketRelease   Pocket = "Release"
	PocketSecurity  Pocket = "Security"
	PocketUpdates   Pocket = "Updates"
	PocketProposed  Pocket = "Proposed"
	PocketBackports Pocket = "Backports"
)

// BuildState is the state of a single architecture build as reported by the build farm.
type BuildState string

const (
	BuildStateNeedsBuilding    BuildState = "Needs building"
	BuildStateBuilding         BuildState = "Currently building"
	BuildStateGatheringBuild   BuildState = "Gathering build output"
	BuildStateUploading        BuildState = "Uploading build"
	BuildStateCancelling       BuildState = "Cancelling build"
	BuildStateSuccess          BuildState = "Successfully built"
	BuildStateFailed           BuildState = "Failed to build"
	BuildStateDependencyWait   BuildState = "Dependency wait"
	BuildStateChrootProblem    BuildState = "Chroot problem"
	BuildStateFailedToUpload   BuildState = "Failed to upload"
	BuildStateCancelled        BuildState = "Cancelled build"
	BuildStateSupersededSource BuildState = "Build for superseded Source"
)

// failedBuildStates are the states that end a wait with failure. Anything else
// that is not a success counts as still building; dependency waits are retried
// by the build farm once the dependencies are published.
var failedBuildStates = map[BuildState]bool{
	BuildStateFailed:         true,
	BuildStateChrootProblem:  true,
	BuildStateFailedToUpload: true,
	BuildStateCancelled:      true,
}

// IsSuccess returns true if the build produced binaries.
func (s BuildState) IsSuccess() bool {
	return s == BuildStateSuccess
}

// IsFailure returns true if the build ended without producing binaries.
func (s BuildState) IsFailure() bool {
	return failedBuildStates[s]
}

// IsTerminal returns true if a waiter should stop polling this build.
func (s BuildState) IsTerminal() bool {
	return s.IsSuccess() || s.IsFailure()
}

// Archive is a package archive (PPA) hosted by Launchpad.
type Archive struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayname"`
	OwnerLink   string `json:"owner_link"`
	SelfLink    string `json:"self_link"`
	WebLink     string `json:"web_link"`
	Private     bool   `json:"private"`
}

// Series is a distribution release line such as "noble".
type Series struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Status   string `json:"status"`
	Active   bool   `json:"active"`
	SelfLink string `json:"self_link"`
}

// SourcePublication is one source package upload record in an archive and series.
type SourcePublication struct {
	SourcePackageName    string            `json:"source_package_name"`
	SourcePackageVersion string            `json:"source_package_version"`
	Status               PublicationStatus `json:"status"`
	Pocket               Pocket            `json:"pocket"`
	DistroSeriesLink     string            `json:"distro_series_link"`
	ArchiveLink          string            `json:"archive_link"`
	SelfLink             string            `json:"self_link"`
	DatePublished        *time.Time        `json:"date_published"`
}

// SeriesName returns the codename of the series the publication lives in.
func (p SourcePublication) SeriesName() string {
	if p.DistroSeriesLink == "" {
		return ""
	}
	return path.Base(strings.TrimSuffix(p.DistroSeriesLink, "/"))
}

// Build is one architecture-specific build of a source publication.
type Build struct {
	Title      string     `json:"title"`
	ArchTag    string     `json:"arch_tag"`
	BuildState BuildState `json:"buildstate"`
	WebLink    string     `json:"web_link"`
}

// SourceFilter narrows a getPublishedSources query. Empty fields are not sent.
type SourceFilter struct {
	SeriesLink  string
	Status      PublicationStatus
	SourceName  string
	Version     string
	ExactMatch  bool
	OrderByDate bool
}

// CopyPackageRequest copies a single source (and its binaries) into an archive.
type CopyPackageRequest struct {
	SourceName      string
	Version         string
	FromArchiveLink string
	ToPocket        Pocket
	ToSeries        string
	IncludeBinaries bool
}

// SyncSourcesRequest copies a set of named sources between series or pockets.
type SyncSourcesRequest struct {
	SourceNames     []string
	FromArchiveLink string
	FromSeries      string
	ToSeries        string
	ToPocket        Pocket
	IncludeBinaries bool
}

// collection is the envelope Launchpad wraps around list responses.
type collection[T any] struct {
	TotalSize          int    `json:"total_size"`
	Start              int    `json:"start"`
	Entries            []T    `json:"entries"`
	NextCollectionLink string `json:"next_collection_link"`
}
