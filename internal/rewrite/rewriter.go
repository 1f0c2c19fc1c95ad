package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/metawrite/metawrite/pkg/httpclient"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultModel    = "gpt-4"
	defaultSite     = "GetYourGuide"

	systemPrompt = "Sei un assistente che crea contenuti di copywriting professionali."

	// fallbackTitle is used when no usable title line can be found in the
	// model reply.
	fallbackTitle = "Informazioni sulla Guida"
)

// Article is a rewritten title/body pair. Both fields are always
// non-empty when produced by Rewrite.
type Article struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// APIError reports a non-success HTTP status from the generative API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("generative API returned %d: %s", e.StatusCode, e.Body)
}

// Config configures a Rewriter.
type Config struct {
	APIKey      string
	Endpoint    string
	Model       string
	MaxTokens   int
	Temperature float64
	// SiteName is the brand the prompt tells the model never to mention.
	SiteName string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Rewriter turns scraped guide text into publishable copy through one
// chat-completion call per page.
type Rewriter struct {
	cfg    Config
	client *httpclient.Client
}

// New creates a Rewriter. The API key is required.
func New(cfg Config) (*Rewriter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("rewrite: API key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.SiteName == "" {
		cfg.SiteName = defaultSite
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout, MaxRedirects: 10})
	if err != nil {
		return nil, fmt.Errorf("rewrite: failed to create client: %w", err)
	}

	return &Rewriter{cfg: cfg, client: client}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Rewrite sends the extracted text to the generative API and splits the
// reply into a title and a body. Callers should only pass non-empty text.
func (r *Rewriter) Rewrite(ctx context.Context, original string) (Article, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model: r.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: r.buildPrompt(original)},
		},
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		return Article{}, fmt.Errorf("rewrite: marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, r.cfg.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return Article{}, fmt.Errorf("rewrite: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return Article{}, fmt.Errorf("rewrite: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Article{}, fmt.Errorf("rewrite: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Article{}, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Article{}, fmt.Errorf("rewrite: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Article{}, fmt.Errorf("rewrite: response contained no choices")
	}

	title, bodyText := splitTitleBody(parsed.Choices[0].Message.Content)

	return Article{Title: title, Body: bodyText}, nil
}

// buildPrompt embeds the original text in the fixed copywriter
// instruction. The wording is operator-facing Italian, matching the
// audience of the generated copy.
func (r *Rewriter) buildPrompt(original string) string {
	return fmt.Sprintf(
		"Sei un esperto copywriter. Di seguito troverai il contenuto di una guida estratta dal sito %s. "+
			"Usa parole differenti ma mantieni le informazioni veritiere. Crea un contenuto composto da un titolo (h2) "+
			"e da un paragrafo che descriva accuratamente le informazioni, senza citare fonti, URL o nomi di marchi. "+
			"Non menzionare '%s'. Il risultato deve essere autonomamente comprensibile e professionale.\n\n"+
			"Testo originale:\n%s\n\n"+
			"Ora genera il tuo risultato con un h2 e un paragrafo:",
		r.cfg.SiteName, r.cfg.SiteName, original,
	)
}

// splitTitleBody applies a best-effort line heuristic to an unstructured
// model reply: the first non-empty line becomes the title (a leading
// "#"/"##" marker is stripped), the remaining lines become the body.
// When no title line exists the title falls back to fallbackTitle and the
// body to the whole reply; when the body ends up empty it also falls back
// to the whole reply, so neither field is ever empty.
func splitTitleBody(content string) (string, string) {
	raw := strings.TrimSpace(content)
	lines := strings.Split(raw, "\n")

	var title, body string
	for i, line := range lines {
		clean := strings.TrimSpace(line)
		if clean == "" {
			continue
		}
		title = clean
		if strings.HasPrefix(title, "##") {
			title = strings.TrimSpace(strings.TrimPrefix(title, "##"))
		} else if strings.HasPrefix(title, "#") {
			title = strings.TrimSpace(strings.TrimPrefix(title, "#"))
		}
		body = strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		break
	}

	if title == "" {
		title = fallbackTitle
	}
	if body == "" {
		body = raw
	}
	if body == "" {
		// Reply was pure whitespace; keep it rather than returning nothing
		body = content
	}
	return title, body
}
