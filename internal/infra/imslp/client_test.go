package imslp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fakeAPI(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/w/api.php" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestLookupParsesComposerFromTitle(t *testing.T) {
	srv := fakeAPI(t, `{"query":{"pages":{"4720":{"pageid":4720,"title":"Goldberg-Variationen, BWV 988 (Bach, Johann Sebastian)"}}}}`)
	defer srv.Close()

	info, err := NewWithBase(srv.URL).Lookup(context.Background(), "4720")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if info.PageID != "4720" {
		t.Fatalf("page id = %q", info.PageID)
	}
	if info.Title != "Goldberg-Variationen, BWV 988" {
		t.Fatalf("title = %q", info.Title)
	}
	if info.Composer != "Bach, Johann Sebastian" {
		t.Fatalf("composer = %q", info.Composer)
	}
}

func TestLookupMissingPage(t *testing.T) {
	srv := fakeAPI(t, `{"query":{"pages":{"-1":{"missing":{}}}}}`)
	defer srv.Close()

	if _, err := NewWithBase(srv.URL).Lookup(context.Background(), "Nonexistent Work"); err == nil {
		t.Fatal("missing page did not error")
	}
}
