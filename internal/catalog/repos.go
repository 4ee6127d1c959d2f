package catalog

import (
	"context"

	"ourtextscores/internal/domain/catalog"
)

// Repository interfaces are deliberately narrow: each exposes only the
// operations the catalog service actually needs. Mutating calls take the
// caller's expected row version and fail with *catalog.ConflictError on
// mismatch.

type WorkRepository interface {
	// Ensure inserts the work if absent; reports whether it was created.
	Ensure(ctx context.Context, work *catalog.Work) (bool, error)
	Find(ctx context.Context, workID string) (*catalog.Work, error)
	List(ctx context.Context) ([]catalog.Work, error)
	// UpdateAggregates overwrites the rollup fields; nothing else on the
	// work document is writable through this repository.
	UpdateAggregates(ctx context.Context, workID string, agg catalog.WorkAggregates) error
}

type SourceRepository interface {
	Create(ctx context.Context, src *catalog.Source) error
	Find(ctx context.Context, workID, sourceID string) (*catalog.Source, error)
	ListByWork(ctx context.Context, workID string) ([]catalog.Source, error)
	// Update persists src if its stored row version equals expected, then
	// bumps the version on both the row and src.
	Update(ctx context.Context, src *catalog.Source, expected int64) error
	Delete(ctx context.Context, workID, sourceID string) error
}

type RevisionRepository interface {
	// Create fails with a duplicate-sequence conflict when another revision
	// of the same source already holds the sequence number.
	Create(ctx context.Context, rev *catalog.SourceRevision) error
	Find(ctx context.Context, workID, sourceID, revisionID string) (*catalog.SourceRevision, error)
	ListBySource(ctx context.Context, workID, sourceID string) ([]catalog.SourceRevision, error)
	MaxSequence(ctx context.Context, workID, sourceID string) (int64, error)
	Update(ctx context.Context, rev *catalog.SourceRevision, expected int64) error
	// MergeDerivatives merges only the provided entries into the revision's
	// derivative set (field-level, never whole-document overwrite) and
	// reports whether the stored set changed.
	MergeDerivatives(ctx context.Context, workID, sourceID, revisionID string, updates catalog.DerivativeSet) (bool, error)
	// BulkSetVisibility updates every revision of the source, returning the
	// number of rows touched.
	BulkSetVisibility(ctx context.Context, workID, sourceID string, vis catalog.VisibilityState, wh *catalog.Withholding) (int64, error)
	DeleteBySource(ctx context.Context, workID, sourceID string) (int64, error)
}

type BranchRepository interface {
	Create(ctx context.Context, b *catalog.Branch) error
	Find(ctx context.Context, workID, sourceID, name string) (*catalog.Branch, error)
	ListBySource(ctx context.Context, workID, sourceID string) ([]catalog.Branch, error)
	DeleteBySource(ctx context.Context, workID, sourceID string) error
}

type ProjectLinkRepository interface {
	// Link is idempotent; reports whether a new link row was created.
	Link(ctx context.Context, link *catalog.ProjectLink) (bool, error)
	Unlink(ctx context.Context, projectID, sourceID string) (bool, error)
	CountBySource(ctx context.Context, sourceID string) (int, error)
	DeleteBySource(ctx context.Context, sourceID string) error
}

// Repositories bundles the per-entity stores a Service runs on.
type Repositories struct {
	Works     WorkRepository
	Sources   SourceRepository
	Revisions RevisionRepository
	Branches  BranchRepository
	Projects  ProjectLinkRepository
}
