package search

import (
	"context"
	"encoding/json"
	"fmt"
)

// Result is one entry returned by the search provider. Raw holds the
// provider's original item object so callers can pass it through unchanged.
type Result struct {
	Link    string
	Title   string
	Snippet string
	Raw     json.RawMessage
}

// Response carries the filtered result list plus every top-level field of
// the provider payload other than the item list itself.
type Response struct {
	Results []Result
	Meta    map[string]json.RawMessage
}

// Provider abstracts a search engine that can return filtered results for
// a query. Implementations may use official APIs or other mechanisms.
type Provider interface {
	Search(ctx context.Context, query string) (*Response, error)
}

// StatusError reports a non-success HTTP status from the search API,
// carrying the upstream status code and raw body.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search API returned %d: %s", e.StatusCode, e.Body)
}

// MarshalJSON reassembles the provider payload: all passthrough fields
// plus an "items" array containing only the surviving raw items.
func (r *Response) MarshalJSON() ([]byte, error) {
	payload := make(map[string]any, len(r.Meta)+1)
	for k, v := range r.Meta {
		payload[k] = v
	}

	items := make([]json.RawMessage, 0, len(r.Results))
	for _, res := range r.Results {
		items = append(items, res.Raw)
	}
	payload["items"] = items

	return json.Marshal(payload)
}
