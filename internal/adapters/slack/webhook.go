package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Webhook struct {
	url  string
	http *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the blocks to the webhook. The fallback text shows in
// notifications where blocks are not rendered. Slack acknowledges a
// delivered message with a bare "ok" body.
func (w *Webhook) Send(ctx context.Context, blocks []Block, fallback string) error {
	payload := struct {
		Text   string  `json:"text"`
		Blocks []Block `json:"blocks"`
	}{Text: fallback, Blocks: blocks}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(respBody)) != "ok" {
		return fmt.Errorf("slack webhook rejected message: status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
