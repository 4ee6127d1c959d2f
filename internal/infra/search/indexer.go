// Package search pushes work summaries to the external full-text index.
// Indexing is best-effort; the catalog logs failures and moves on.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ourtextscores/internal/domain/catalog"
)

type Indexer interface {
	IndexWork(ctx context.Context, work *catalog.Work) error
	DeleteWork(ctx context.Context, workID string) error
}

// HTTPIndexer posts work summaries to the indexer service.
type HTTPIndexer struct {
	baseURL string
	client  *http.Client
}

func NewHTTP(baseURL string) *HTTPIndexer {
	return &HTTPIndexer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (i *HTTPIndexer) IndexWork(ctx context.Context, work *catalog.Work) error {
	body, err := json.Marshal(work)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, i.baseURL+"/works/"+work.WorkID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("indexer returned %s", resp.Status)
	}
	return nil
}

func (i *HTTPIndexer) DeleteWork(ctx context.Context, workID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, i.baseURL+"/works/"+workID, nil)
	if err != nil {
		return err
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("indexer returned %s", resp.Status)
	}
	return nil
}

// Noop is used when no indexer is configured.
type Noop struct{}

func (Noop) IndexWork(context.Context, *catalog.Work) error { return nil }

func (Noop) DeleteWork(context.Context, string) error { return nil }
