package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSplitTitleBody(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantTitle string
		wantBody  string
	}{
		{
			name:      "h2 marker",
			content:   "## Visita al Colosseo\nUn tour indimenticabile.",
			wantTitle: "Visita al Colosseo",
			wantBody:  "Un tour indimenticabile.",
		},
		{
			name:      "h1 marker",
			content:   "# Titolo\nParagrafo.",
			wantTitle: "Titolo",
			wantBody:  "Paragrafo.",
		},
		{
			name:      "no marker",
			content:   "Titolo semplice\nPrima riga.\nSeconda riga.",
			wantTitle: "Titolo semplice",
			wantBody:  "Prima riga.\nSeconda riga.",
		},
		{
			name:      "leading blank lines before title",
			content:   "\n\n  ## Titolo  \n\nCorpo del testo.",
			wantTitle: "Titolo",
			wantBody:  "Corpo del testo.",
		},
		{
			name:      "single line reply reuses whole reply as body",
			content:   "## Solo un titolo",
			wantTitle: "Solo un titolo",
			wantBody:  "## Solo un titolo",
		},
		{
			name:      "no line breaks at all",
			content:   "Tutto su una riga sola senza titolo",
			wantTitle: "Tutto su una riga sola senza titolo",
			wantBody:  "Tutto su una riga sola senza titolo",
		},
		{
			name:      "whitespace padded",
			content:   "   ## Titolo\nCorpo.   ",
			wantTitle: "Titolo",
			wantBody:  "Corpo.",
		},
		{
			name:      "only whitespace falls back entirely",
			content:   " \n \t ",
			wantTitle: "Informazioni sulla Guida",
			wantBody:  " \n \t ",
		},
		{
			name:      "bare marker line",
			content:   "##\nCorpo.",
			wantTitle: "Informazioni sulla Guida",
			wantBody:  "Corpo.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body := splitTitleBody(tt.content)
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
			if title == "" || body == "" {
				t.Error("title and body must never be empty")
			}
		})
	}
}

func newTestRewriter(t *testing.T, endpoint string) *Rewriter {
	t.Helper()
	r, err := New(Config{
		APIKey:   "test-key",
		Endpoint: endpoint,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("failed to create rewriter: %v", err)
	}
	return r
}

func TestRewriter_Rewrite(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("expected json content type, got %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != "gpt-4" {
			t.Errorf("expected default model gpt-4, got %q", req.Model)
		}
		if req.MaxTokens != 1000 || req.Temperature != 0.7 {
			t.Errorf("expected default sampling params, got max_tokens=%d temperature=%v", req.MaxTokens, req.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Fatalf("expected system+user messages, got %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, "testo della guida originale") {
			t.Errorf("prompt must embed the original text verbatim")
		}
		if !strings.Contains(req.Messages[1].Content, "GetYourGuide") {
			t.Errorf("prompt must name the site")
		}

		fmt.Fprint(w, `{"choices":[{"message":{"content":"  ## Colosseo senza code\n\nUn'esperienza unica nell'arena.  "}}]}`)
	}))
	defer ts.Close()

	r := newTestRewriter(t, ts.URL)

	article, err := r.Rewrite(context.Background(), "testo della guida originale")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if article.Title != "Colosseo senza code" {
		t.Errorf("title = %q", article.Title)
	}
	if article.Body != "Un'esperienza unica nell'arena." {
		t.Errorf("body = %q", article.Body)
	}
}

func TestRewriter_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer ts.Close()

	r := newTestRewriter(t, ts.URL)

	_, err := r.Rewrite(context.Background(), "testo")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", apiErr.StatusCode)
	}
}

func TestRewriter_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer ts.Close()

	r := newTestRewriter(t, ts.URL)

	if _, err := r.Rewrite(context.Background(), "testo"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestRewriter_MissingKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}
