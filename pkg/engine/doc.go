// Package engine moves source packages through the staged PPA pipeline.
//
// # Overview
//
// A run performs exactly one of three steps:
//
//  1. CopyToSeries - copy packages published for this host's series in the
//     proposed archive to every other supported series
//  2. Promote - copy published packages from the proposed archive to the
//     release archive
//  3. WaitForBuilds - poll until a source appears and all its builds finish
//
// Each step returns a process exit code. Errors are reserved for failures the
// run cannot recover from, such as unexpected rejections or missing tooling.
//
// # Archive access
//
// ArchiveCache sits in front of the ArchiveService and remembers every lookup
// for the lifetime of the run. The source resolver methods (GetSourceFor,
// IsMissing, GetBuildsFor, HasPublishedBinaries) are built on it. The build
// waiter bypasses the cache because it needs fresh data on each poll.
//
// # Copy batching
//
// Planned copies accumulate in a CopyQueue keyed by source series, target
// series and pocket. PerformQueuedCopies issues one SyncSources request per key.
//
// # Rejections
//
// The archive service answers redundant copies with a bad request. ClassifyRejection
// recognizes "already published" and obsolete-series rejections; callers choose
// which of the two they tolerate and every other error is fatal.
//
// # Error Handling
//
// Remote failures are wrapped in EngineError with a class:
//
//   - Transient: service unavailable
//   - Throttled: rate limited
//   - Permanent: rejected, not found, or anything unrecognized
package engine
