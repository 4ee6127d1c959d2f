// Package fossil talks to the external content-addressed version-control
// backend. The catalog treats artifact ids as opaque strings forming a
// parent chain; it never inspects their format.
package fossil

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Client commits one snapshot's bytes with its parent artifact ids (none for
// a root) and returns the new artifact id.
type Client interface {
	Commit(ctx context.Context, content []byte, parentIDs []string) (string, error)
}

// HTTPClient is the production client for the fossil bridge service.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTP(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type commitRequest struct {
	Content []byte   `json:"content"`
	Parents []string `json:"parents,omitempty"`
}

type commitResponse struct {
	ArtifactID string `json:"artifact_id"`
}

func (c *HTTPClient) Commit(ctx context.Context, content []byte, parentIDs []string) (string, error) {
	body, err := json.Marshal(commitRequest{Content: content, Parents: parentIDs})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/artifacts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("fossil bridge returned %s", resp.Status)
	}
	var out commitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.ArtifactID == "" {
		return "", fmt.Errorf("fossil bridge returned empty artifact id")
	}
	return out.ArtifactID, nil
}

// Stub derives artifact ids deterministically from content and parents.
// Used in tests and when no bridge is configured.
type Stub struct {
	mu    sync.Mutex
	known map[string]struct{}
}

func NewStub() *Stub {
	return &Stub{known: make(map[string]struct{})}
}

func (s *Stub) Commit(_ context.Context, content []byte, parentIDs []string) (string, error) {
	h := sha256.New()
	h.Write(content)
	sorted := append([]string(nil), parentIDs...)
	sort.Strings(sorted)
	for _, p := range sorted {
		h.Write([]byte("\x00" + p))
	}
	id := hex.EncodeToString(h.Sum(nil))
	s.mu.Lock()
	s.known[id] = struct{}{}
	s.mu.Unlock()
	return id, nil
}

// Knows reports whether an artifact id was committed through this stub.
func (s *Stub) Knows(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.known[id]
	return ok
}
