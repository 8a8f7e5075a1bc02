// Package paste uploads text dumps (saved queues) to a hastebin-style
// service and hands back the share URL.
package paste

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func New(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("component", "paste").Logger(),
	}
}

// Upload POSTs the text to /documents and returns the public URL for the
// created document.
func (c *Client) Upload(ctx context.Context, text string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/documents", strings.NewReader(text))
	if err != nil {
		return "", fmt.Errorf("build paste request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("paste upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("paste upload: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("paste response: %w", err)
	}
	if out.Key == "" {
		return "", fmt.Errorf("paste response: missing document key")
	}

	url := c.baseURL + "/" + out.Key
	c.log.Debug().Str("url", url).Int("bytes", len(text)).Msg("queue text uploaded")
	return url, nil
}
