package catalog

import (
	"context"
	"log/slog"
	"time"

	"ourtextscores/internal/domain/catalog"
)

// ObjectStore is the external content store. The catalog writes bytes there
// before committing any metadata that references them, and only ever keeps
// locators.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) (catalog.StorageLocator, error)
	Get(ctx context.Context, loc catalog.StorageLocator) ([]byte, error)
	Delete(ctx context.Context, loc catalog.StorageLocator) error
	Exists(ctx context.Context, loc catalog.StorageLocator) (bool, error)
}

// FossilClient is the external content-addressed version-control backend.
// The catalog treats artifact ids as opaque.
type FossilClient interface {
	Commit(ctx context.Context, content []byte, parentIDs []string) (string, error)
}

// SearchIndexer receives work summaries after any aggregate change. Indexing
// is best-effort: failures are logged, never propagated.
type SearchIndexer interface {
	IndexWork(ctx context.Context, work *catalog.Work) error
	DeleteWork(ctx context.Context, workID string) error
}

// NewRevisionEvent is handed to the notification subsystem after a revision
// becomes approved. Subscriber resolution and delivery are external.
type NewRevisionEvent struct {
	WorkID         string
	SourceID       string
	RevisionID     string
	SequenceNumber int64
	BranchName     string
	CreatedBy      *uint
}

type Notifier interface {
	QueueNewRevision(ctx context.Context, ev NewRevisionEvent) error
}

// Service is the revision & branching core: append-only revision chains per
// source, the approval gate, derivative tracking, the work/source rollup and
// the takedown overlay. All handlers share one instance.
type Service struct {
	repos   Repositories
	objects ObjectStore
	fossil  FossilClient
	search  SearchIndexer
	notify  Notifier
	log     *slog.Logger

	bucket string
	now    func() time.Time
}

type Deps struct {
	Repos   Repositories
	Objects ObjectStore
	Fossil  FossilClient
	Search  SearchIndexer
	Notify  Notifier
	Logger  *slog.Logger
	Bucket  string
	Now     func() time.Time
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Bucket == "" {
		d.Bucket = "scores"
	}
	return &Service{
		repos:   d.Repos,
		objects: d.Objects,
		fossil:  d.Fossil,
		search:  d.Search,
		notify:  d.Notify,
		log:     d.Logger,
		bucket:  d.Bucket,
		now:     d.Now,
	}
}

// indexWork pushes the current work summary to the search indexer,
// swallowing failures.
func (s *Service) indexWork(ctx context.Context, work *catalog.Work) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexWork(ctx, work); err != nil {
		s.log.Warn("search index failed", "work_id", work.WorkID, "err", err)
	}
}

func (s *Service) queueNewRevision(ctx context.Context, rev *catalog.SourceRevision) {
	if s.notify == nil {
		return
	}
	ev := NewRevisionEvent{
		WorkID:         rev.WorkID,
		SourceID:       rev.SourceID,
		RevisionID:     rev.RevisionID,
		SequenceNumber: rev.SequenceNumber,
		BranchName:     rev.BranchName,
		CreatedBy:      rev.CreatedByUserID,
	}
	if err := s.notify.QueueNewRevision(ctx, ev); err != nil {
		s.log.Warn("revision notification failed", "revision_id", rev.RevisionID, "err", err)
	}
}
