package catalog_test

import (
	"context"
	"sync/atomic"
	"testing"

	"ourtextscores/internal/catalog"
	domain "ourtextscores/internal/domain/catalog"
	"ourtextscores/internal/infra/blob"
	"ourtextscores/internal/infra/fossil"
	"ourtextscores/internal/infra/persistence/memory"
)

func loc(key string) *domain.StorageLocator {
	return &domain.StorageLocator{Bucket: "scores", Key: key, ContentType: "application/pdf"}
}

func TestUpsertDerivativesMergesFieldLevel(t *testing.T) {
	e := newEnv(t)
	owner := domain.UserActor(7)
	e.mustWork(t, "imslp:1", "Goldberg Variations")
	src, rev := e.mustSource(t, "imslp:1", owner)

	if _, err := e.svc.UpsertDerivatives(context.Background(), "imslp:1", src.SourceID, rev.RevisionID,
		domain.DerivativeSet{LinearizedXml: loc("lin.xml")}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	got, err := e.svc.UpsertDerivatives(context.Background(), "imslp:1", src.SourceID, rev.RevisionID,
		domain.DerivativeSet{MusicDiffPdf: loc("diff.pdf")})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if got.Derivatives.LinearizedXml == nil || got.Derivatives.LinearizedXml.Key != "lin.xml" {
		t.Fatal("second upsert clobbered the linearized xml entry")
	}
	if got.Derivatives.MusicDiffPdf == nil || got.Derivatives.MusicDiffPdf.Key != "diff.pdf" {
		t.Fatal("musicdiff pdf entry missing after upsert")
	}
}

// countingRevisions wraps the revision repository and counts mutating calls.
type countingRevisions struct {
	catalog.RevisionRepository
	writes atomic.Int64
}

func (c *countingRevisions) Update(ctx context.Context, rev *domain.SourceRevision, expected int64) error {
	c.writes.Add(1)
	return c.RevisionRepository.Update(ctx, rev, expected)
}

func (c *countingRevisions) MergeDerivatives(ctx context.Context, workID, sourceID, revisionID string, updates domain.DerivativeSet) (bool, error) {
	c.writes.Add(1)
	return c.RevisionRepository.MergeDerivatives(ctx, workID, sourceID, revisionID, updates)
}

func TestEmptyDerivativeUpsertWritesNothing(t *testing.T) {
	store := memory.New()
	repos := store.Repositories()
	counter := &countingRevisions{RevisionRepository: repos.Revisions}
	repos.Revisions = counter

	svc := catalog.NewService(catalog.Deps{
		Repos:   repos,
		Objects: blob.NewMemory(),
		Fossil:  fossil.NewStub(),
	})

	owner := domain.UserActor(7)
	if _, _, err := svc.EnsureWork(context.Background(), domain.Work{WorkID: "imslp:1", Title: "Goldberg Variations"}); err != nil {
		t.Fatalf("EnsureWork: %v", err)
	}
	src, rev, err := svc.CreateSource(context.Background(), catalog.CreateSourceInput{
		WorkID:   "imslp:1",
		Label:    "Urtext score",
		Filename: "score.musicxml",
		Content:  []byte("v1"),
		Actor:    owner,
	})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}

	before := counter.writes.Load()
	got, err := svc.UpsertDerivatives(context.Background(), "imslp:1", src.SourceID, rev.RevisionID, domain.DerivativeSet{})
	if err != nil {
		t.Fatalf("empty upsert: %v", err)
	}
	if counter.writes.Load() != before {
		t.Fatalf("empty upsert issued %d writes", counter.writes.Load()-before)
	}
	if got.RevisionID != rev.RevisionID {
		t.Fatal("empty upsert returned the wrong revision")
	}
}

func TestReferencePdfMirroredOnlyForHead(t *testing.T) {
	e := newEnv(t)
	owner := domain.UserActor(7)
	e.mustWork(t, "imslp:1", "Goldberg Variations")
	src, first := e.mustSource(t, "imslp:1", owner)
	second := e.mustAppend(t, "imslp:1", src.SourceID, "v2", owner)

	// artifact for the superseded first revision must not touch the mirror
	if _, err := e.svc.UpsertDerivatives(context.Background(), "imslp:1", src.SourceID, first.RevisionID,
		domain.DerivativeSet{ReferencePdf: loc("old.pdf")}); err != nil {
		t.Fatalf("upsert on superseded revision: %v", err)
	}
	got, err := e.svc.GetSource(context.Background(), "imslp:1", src.SourceID, owner)
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got.HasReferencePdf || got.Derivatives.ReferencePdf != nil {
		t.Fatal("superseded revision's pdf was mirrored onto the source")
	}

	// artifact for the current head is mirrored and rolls up to the work
	if _, err := e.svc.UpsertDerivatives(context.Background(), "imslp:1", src.SourceID, second.RevisionID,
		domain.DerivativeSet{ReferencePdf: loc("new.pdf")}); err != nil {
		t.Fatalf("upsert on head revision: %v", err)
	}
	got, err = e.svc.GetSource(context.Background(), "imslp:1", src.SourceID, owner)
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if !got.HasReferencePdf || got.Derivatives.ReferencePdf == nil || got.Derivatives.ReferencePdf.Key != "new.pdf" {
		t.Fatal("head revision's pdf was not mirrored onto the source")
	}

	work, err := e.svc.GetWork(context.Background(), "imslp:1")
	if err != nil {
		t.Fatalf("GetWork: %v", err)
	}
	if !work.HasReferencePdf {
		t.Fatal("reference pdf not reflected in the work rollup")
	}
}
