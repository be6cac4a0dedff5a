package feishu

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"news_pusher/internal/domain"
)

const maxResponseBytes = 64 << 10

// ClientConfig holds webhook delivery settings.
type ClientConfig struct {
	Webhook string
	// Secret enables signed requests when the bot has signature verification on.
	Secret  string
	Timeout time.Duration
}

// Client posts messages to a Feishu custom-bot webhook.
type Client struct {
	httpClient *http.Client
	webhook    string
	secret     string
	now        func() time.Time
	logger     *slog.Logger
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		webhook: cfg.Webhook,
		secret:  cfg.Secret,
		now:     time.Now,
		logger:  logger.With("component", "feishu"),
	}
}

type webhookResponse struct {
	Code       *int   `json:"code"`
	Msg        string `json:"msg"`
	StatusCode *int   `json:"StatusCode"`
}

// Send delivers msg in a single POST. A non-2xx status or a JSON reply with a
// non-zero code is reported as domain.ErrPush.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c.secret != "" {
		ts := strconv.FormatInt(c.now().Unix(), 10)
		sign, err := Sign(ts, c.secret)
		if err != nil {
			return fmt.Errorf("%w: sign request: %w", domain.ErrPush, err)
		}
		msg.Timestamp = ts
		msg.Sign = sign
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: marshal message: %w", domain.ErrPush, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhook, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %w", domain.ErrPush, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: execute request: %w", domain.ErrPush, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", domain.ErrPush, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status: %d: %s", domain.ErrPush, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var reply webhookResponse
	if err := json.Unmarshal(raw, &reply); err != nil {
		c.logger.Warn("webhook reply is not json", "status", resp.StatusCode, "error", err)
		return nil
	}
	if reply.Code != nil && *reply.Code != 0 {
		return fmt.Errorf("%w: webhook rejected message: code=%d msg=%q", domain.ErrPush, *reply.Code, reply.Msg)
	}
	if reply.StatusCode != nil && *reply.StatusCode != 0 {
		return fmt.Errorf("%w: webhook rejected message: status_code=%d", domain.ErrPush, *reply.StatusCode)
	}

	c.logger.Debug("message delivered", "msg_type", msg.MsgType, "bytes", len(body))
	return nil
}

// Sign computes the custom-bot signature for timestamp (unix seconds) and
// secret: base64(HMAC-SHA256 keyed by "timestamp\nsecret" over no data).
func Sign(timestamp, secret string) (string, error) {
	mac := hmac.New(sha256.New, []byte(timestamp+"\n"+secret))
	if _, err := mac.Write(nil); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
