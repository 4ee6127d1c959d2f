package fossil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStubIsDeterministic(t *testing.T) {
	s := NewStub()
	ctx := context.Background()

	a, err := s.Commit(ctx, []byte("v1"), nil)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	b, _ := s.Commit(ctx, []byte("v1"), nil)
	if a != b {
		t.Fatal("same content and parents produced different artifact ids")
	}

	child, _ := s.Commit(ctx, []byte("v1"), []string{a})
	if child == a {
		t.Fatal("parent set did not influence the artifact id")
	}
	// parent order must not matter
	x, _ := s.Commit(ctx, []byte("v2"), []string{"p1", "p2"})
	y, _ := s.Commit(ctx, []byte("v2"), []string{"p2", "p1"})
	if x != y {
		t.Fatal("parent order influenced the artifact id")
	}

	if !s.Knows(a) || !s.Knows(child) {
		t.Fatal("stub forgot a committed artifact")
	}
	if s.Knows("deadbeef") {
		t.Fatal("stub knows an artifact it never committed")
	}
}

func TestHTTPClientCommit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artifacts" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req commitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if string(req.Content) != "v1" || len(req.Parents) != 1 || req.Parents[0] != "p1" {
			t.Errorf("payload = %q parents=%v", req.Content, req.Parents)
		}
		json.NewEncoder(w).Encode(commitResponse{ArtifactID: "abc123"})
	}))
	defer srv.Close()

	id, err := NewHTTP(srv.URL).Commit(context.Background(), []byte("v1"), []string{"p1"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if id != "abc123" {
		t.Fatalf("artifact id = %q", id)
	}
}

func TestHTTPClientRejectsEmptyArtifactID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(commitResponse{})
	}))
	defer srv.Close()

	if _, err := NewHTTP(srv.URL).Commit(context.Background(), []byte("v1"), nil); err == nil {
		t.Fatal("empty artifact id was accepted")
	}
}
