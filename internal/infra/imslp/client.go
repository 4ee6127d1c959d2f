// Package imslp resolves IMSLP page references to work metadata via the
// MediaWiki API. Enrichment is best-effort; importers fall back to the
// caller-provided title when the lookup fails.
package imslp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const userAgent = "OurTextScores/1.0 (+https://ourtextscores.example)"

type WorkInfo struct {
	PageID        string
	Title         string
	Composer      string
	CatalogNumber string
}

type Client struct {
	baseURL string
	client  *http.Client
}

func New() *Client {
	return &Client{
		baseURL: "https://imslp.org",
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// NewWithBase is used by tests to point the client at a fake server.
func NewWithBase(baseURL string) *Client {
	c := New()
	c.baseURL = baseURL
	return c
}

// Lookup accepts an IMSLP wiki URL, a page title, or a numeric page id.
func (c *Client) Lookup(ctx context.Context, ref string) (WorkInfo, error) {
	title := ref
	if strings.Contains(ref, "/wiki/") {
		title, _ = url.PathUnescape(ref[strings.Index(ref, "/wiki/")+len("/wiki/"):])
	}

	params := url.Values{
		"action": {"query"},
		"format": {"json"},
		"prop":   {"info"},
	}
	if isDigits(ref) {
		params.Set("pageids", ref)
	} else {
		params.Set("titles", title)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/w/api.php?"+params.Encode(), nil)
	if err != nil {
		return WorkInfo{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return WorkInfo{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return WorkInfo{}, fmt.Errorf("imslp api returned %s", resp.Status)
	}

	var payload struct {
		Query struct {
			Pages map[string]struct {
				PageID  int64     `json:"pageid"`
				Title   string    `json:"title"`
				Missing *struct{} `json:"missing,omitempty"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return WorkInfo{}, err
	}
	for _, page := range payload.Query.Pages {
		if page.Missing != nil || page.Title == "" {
			continue
		}
		info := WorkInfo{
			PageID: fmt.Sprintf("%d", page.PageID),
			Title:  page.Title,
		}
		// IMSLP page titles follow "Work Title (Composer, First)"
		if open := strings.LastIndex(page.Title, "("); open > 0 && strings.HasSuffix(page.Title, ")") {
			info.Title = strings.TrimSpace(page.Title[:open])
			info.Composer = strings.TrimSpace(page.Title[open+1 : len(page.Title)-1])
		}
		return info, nil
	}
	return WorkInfo{}, fmt.Errorf("imslp page %q not found", ref)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
