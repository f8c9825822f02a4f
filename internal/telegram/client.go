// Package telegram is a minimal Bot API client covering what the assistant
// needs: sending messages and managing the webhook.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// MaxMessageLen is the Bot API's hard cap on message text.
const MaxMessageLen = 4096

// DefaultTimeout bounds outbound Bot API calls; sends should fail fast.
const DefaultTimeout = 5 * time.Second

const defaultBaseURL = "https://api.telegram.org"

// APIError wraps a Bot API response with ok=false.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: code=%d description=%s", e.Code, e.Description)
}

// Client calls the Bot API for a single bot token. Construct with New; fields
// must not be mutated once the client is shared across goroutines.
type Client struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client with sane defaults.
func New(token string) *Client {
	return &Client{
		Token:      token,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// SendMessage delivers text to a chat. parseMode may be empty, "Markdown",
// or "HTML". Callers are responsible for splitting text at MaxMessageLen.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, parseMode string) error {
	body := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if parseMode != "" {
		body["parse_mode"] = parseMode
	}
	return c.call(ctx, "sendMessage", body, nil)
}

// SetWebhook registers the inbound update URL.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	return c.call(ctx, "setWebhook", map[string]any{"url": url}, nil)
}

// DeleteWebhook unregisters the inbound update URL.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]any{}, nil)
}

// WebhookInfo is the subset of getWebhookInfo the CLI shows.
type WebhookInfo struct {
	URL            string `json:"url"`
	PendingUpdates int    `json:"pending_update_count"`
	LastErrorDate  int64  `json:"last_error_date"`
	LastErrorMsg   string `json:"last_error_message"`
}

// GetWebhookInfo reports the current webhook registration.
func (c *Client) GetWebhookInfo(ctx context.Context) (WebhookInfo, error) {
	var info WebhookInfo
	err := c.call(ctx, "getWebhookInfo", nil, &info)
	return info, err
}

// GetMe checks the token and returns the bot identity; used as the health
// probe.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	var me User
	err := c.call(ctx, "getMe", nil, &me)
	return me, err
}

func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	url := fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(base, "/"), c.Token, method)
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	defer resp.Body.Close()
	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("telegram: decode response: %w", err)
	}
	if !parsed.OK {
		return &APIError{Code: parsed.ErrorCode, Description: parsed.Description}
	}
	if out != nil && len(parsed.Result) > 0 {
		return json.Unmarshal(parsed.Result, out)
	}
	return nil
}
