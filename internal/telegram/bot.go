package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BotClient is a minimal Bot API client; the service only needs the
// payment-related calls.
type BotClient struct {
	token   string
	baseURL string
	httpc   *http.Client
}

// NewBotClient creates a Bot API client for the given token.
func NewBotClient(token, baseURL string) *BotClient {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &BotClient{
		token:   token,
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

type botResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// AnswerPreCheckoutQuery confirms or rejects a Telegram Stars pre-checkout
// query. Telegram requires an answer within 10 seconds.
func (c *BotClient) AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error {
	body := map[string]any{
		"pre_checkout_query_id": queryID,
		"ok":                    ok,
	}
	if !ok && errorMessage != "" {
		body["error_message"] = errorMessage
	}
	return c.call(ctx, "answerPreCheckoutQuery", body)
}

func (c *BotClient) call(ctx context.Context, method string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("bot api %s: %w", method, err)
	}
	defer resp.Body.Close()
	var out botResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("bot api %s: decode response: %w", method, err)
	}
	if !out.OK {
		return fmt.Errorf("bot api %s: %s", method, out.Description)
	}
	return nil
}
