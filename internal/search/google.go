package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/metawrite/metawrite/pkg/httpclient"
)

const defaultEndpoint = "https://www.googleapis.com/customsearch/v1"

// ClientConfig configures the Google Custom Search client.
type ClientConfig struct {
	APIKey   string
	CSEID    string
	Endpoint string // defaults to the Google Custom Search API
	Timeout  time.Duration
	Excluded *ExcludedDomains
	Logger   *slog.Logger
}

// Client queries the Google Custom Search API and drops results whose
// link is missing or on an excluded domain.
type Client struct {
	cfg    ClientConfig
	client *httpclient.Client
}

// NewClient creates a search client. API credentials must be present;
// their validation happens at startup, not per call.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" || cfg.CSEID == "" {
		return nil, fmt.Errorf("search: API key and engine id are required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Excluded == nil {
		cfg.Excluded = NewExcludedDomains(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout, MaxRedirects: 10})
	if err != nil {
		return nil, fmt.Errorf("search: failed to create client: %w", err)
	}

	return &Client{cfg: cfg, client: client}, nil
}

// Search issues one GET to the search API and returns the filtered
// result list in upstream order. A non-200 status yields a *StatusError.
func (c *Client) Search(ctx context.Context, query string) (*Response, error) {
	params := url.Values{}
	params.Set("key", c.cfg.APIKey)
	params.Set("cx", c.cfg.CSEID)
	params.Set("q", query)

	req, err := http.NewRequest(http.MethodGet, c.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("search: failed to create request: %w", err)
	}

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("search: failed to read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return c.parse(body)
}

func (c *Client) parse(body []byte) (*Response, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("search: failed to decode response: %w", err)
	}

	var rawItems []json.RawMessage
	if items, ok := payload["items"]; ok {
		if err := json.Unmarshal(items, &rawItems); err != nil {
			return nil, fmt.Errorf("search: failed to decode items: %w", err)
		}
		delete(payload, "items")
	}

	results := make([]Result, 0, len(rawItems))
	for _, raw := range rawItems {
		var item struct {
			Link    string `json:"link"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		}
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("search: failed to decode item: %w", err)
		}

		if item.Link == "" || c.cfg.Excluded.IsExcluded(item.Link) {
			c.cfg.Logger.Info("excluding search result", "link", item.Link)
			continue
		}

		results = append(results, Result{
			Link:    item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
			Raw:     raw,
		})
	}

	return &Response{Results: results, Meta: payload}, nil
}
