package blob

import (
	"context"
	"testing"

	"ourtextscores/internal/domain/catalog"
)

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	loc, err := s.Put(ctx, "scores", "works/w1/raw/score.musicxml", []byte("hello"), "application/xml")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if loc.Bucket != "scores" || loc.Size != 5 {
		t.Fatalf("locator = %+v", loc)
	}

	data, err := s.Get(ctx, loc)
	if err != nil || string(data) != "hello" {
		t.Fatalf("Get = %q err=%v", data, err)
	}

	ok, err := s.Exists(ctx, loc)
	if err != nil || !ok {
		t.Fatalf("Exists = %v err=%v", ok, err)
	}

	if err := s.Delete(ctx, loc); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, loc); err != ErrNotFound {
		t.Fatalf("Get after delete: want ErrNotFound, got %v", err)
	}
	ok, err = s.Exists(ctx, loc)
	if err != nil || ok {
		t.Fatalf("Exists after delete = %v err=%v", ok, err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestFSStore(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	testStore(t, s)
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if _, err := s.Put(context.Background(), "scores", "../../outside", []byte("x"), ""); err == nil {
		t.Fatal("path-escaping key was accepted")
	}
}

func TestMemoryStorePutCopiesData(t *testing.T) {
	s := NewMemory()
	buf := []byte("hello")
	loc, err := s.Put(context.Background(), "scores", "k", buf, "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	buf[0] = 'X'
	data, err := s.Get(context.Background(), catalog.StorageLocator{Bucket: loc.Bucket, Key: loc.Key})
	if err != nil || string(data) != "hello" {
		t.Fatalf("stored bytes aliased the caller's buffer: %q err=%v", data, err)
	}
}
