package catalog_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"ourtextscores/internal/catalog"
	domain "ourtextscores/internal/domain/catalog"
	"ourtextscores/internal/infra/blob"
	"ourtextscores/internal/infra/fossil"
	"ourtextscores/internal/infra/persistence/memory"
)

type env struct {
	svc    *catalog.Service
	store  *memory.Store
	blobs  *blob.MemoryStore
	fossil *fossil.Stub
}

// newEnv builds a service on in-memory collaborators with a strictly
// advancing clock so created-at timestamps are always ordered.
func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	blobs := blob.NewMemory()
	stub := fossil.NewStub()

	var mu sync.Mutex
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	svc := catalog.NewService(catalog.Deps{
		Repos:   store.Repositories(),
		Objects: blobs,
		Fossil:  stub,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			now = now.Add(time.Second)
			return now
		},
	})
	return &env{svc: svc, store: store, blobs: blobs, fossil: stub}
}

func (e *env) mustWork(t *testing.T, id, title string) *domain.Work {
	t.Helper()
	w, _, err := e.svc.EnsureWork(context.Background(), domain.Work{WorkID: id, Title: title})
	if err != nil {
		t.Fatalf("EnsureWork(%s): %v", id, err)
	}
	return w
}

func (e *env) mustSource(t *testing.T, workID string, actor domain.Actor) (*domain.Source, *domain.SourceRevision) {
	t.Helper()
	src, rev, err := e.svc.CreateSource(context.Background(), catalog.CreateSourceInput{
		WorkID:      workID,
		Label:       "Urtext score",
		Format:      "musicxml",
		License:     "CC-BY-SA",
		Filename:    "score.musicxml",
		ContentType: "application/xml",
		Content:     []byte("<score-partwise/>"),
		Actor:       actor,
	})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
	return src, rev
}

func (e *env) mustAppend(t *testing.T, workID, sourceID string, content string, actor domain.Actor) *domain.SourceRevision {
	t.Helper()
	rev, err := e.svc.AppendRevision(context.Background(), catalog.AppendInput{
		WorkID:      workID,
		SourceID:    sourceID,
		Content:     []byte(content),
		Filename:    "score.musicxml",
		ContentType: "application/xml",
		Actor:       actor,
	})
	if err != nil {
		t.Fatalf("AppendRevision: %v", err)
	}
	return rev
}

func TestEnsureWorkIdempotent(t *testing.T) {
	e := newEnv(t)

	_, created, err := e.svc.EnsureWork(context.Background(), domain.Work{WorkID: "imslp:1", Title: "Mass in B minor"})
	if err != nil || !created {
		t.Fatalf("first ensure: created=%v err=%v", created, err)
	}
	w, created, err := e.svc.EnsureWork(context.Background(), domain.Work{WorkID: "imslp:1", Title: "different title"})
	if err != nil || created {
		t.Fatalf("second ensure: created=%v err=%v", created, err)
	}
	if w.Title != "Mass in B minor" {
		t.Fatalf("second ensure overwrote title: %q", w.Title)
	}
}

func TestGetWorkNotFound(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.GetWork(context.Background(), "imslp:missing")
	if !domain.IsNotFound(err) {
		t.Fatalf("want NotFound, got %v", err)
	}
}
