// Package gateway is the typed HTTP client for the journal backend. It
// attaches bearer tokens, normalizes every failure into an APIError, and
// maps the domain endpoints (chats, messages, trades, analytics, internal
// console) to Go calls.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/tradescribe/TradeScribe/config"
	"github.com/tradescribe/TradeScribe/internal/logging"
)

// TokenSource supplies the current bearer token. An empty token means the
// caller is unauthenticated and the request must fail before the network.
type TokenSource interface {
	Token(ctx context.Context) string
}

// Client talks to the journal gateway.
type Client struct {
	http   *resty.Client
	tokens TokenSource
	retry  *RetryConfig
	log    *slog.Logger
}

// NewClient creates a gateway client for the configured base URL.
func NewClient(cfg *config.Config, tokens TokenSource) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.APIBaseURL)
	client.SetTimeout(cfg.RequestTimeout)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("User-Agent", "TradeScribe/1.0")

	return &Client{
		http:   client,
		tokens: tokens,
		retry:  DefaultRetryConfig(),
		log:    logging.New("gateway"),
	}
}

// do runs one request. out, when non-nil, receives the decoded success
// body; a 204 or empty body leaves it untouched.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token := c.tokens.Token(ctx)
	if token == "" {
		return &APIError{Kind: KindUnauthenticated, Message: "not authenticated"}
	}

	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return &APIError{Kind: KindNetwork, Message: err.Error()}
	}

	status := resp.StatusCode()
	if status >= 400 {
		return &APIError{
			Status:  status,
			Kind:    kindForStatus(status),
			Message: errorMessage(resp.Body(), status),
		}
	}

	// 204-equivalent: success without a body to parse.
	if status == 204 || len(resp.Body()) == 0 || out == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		c.log.Warn("malformed response payload",
			slog.String("path", path), slog.String("error", err.Error()))
		return &APIError{
			Status:  status,
			Kind:    KindInvalidPayload,
			Message: "malformed response payload: " + err.Error(),
		}
	}
	return nil
}

// get is do(GET) with transient-failure retry; safe because GETs are
// idempotent.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return withRetry(ctx, c.retry, func() error {
		return c.do(ctx, resty.MethodGet, path, nil, out)
	})
}

// errorMessage extracts a human-readable message from an error body. The
// gateway uses {"detail": …}; the auth provider uses {"error": …}.
func errorMessage(body []byte, status int) string {
	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
		Msg    string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Detail != "":
			return payload.Detail
		case payload.Error != "":
			return payload.Error
		case payload.Msg != "":
			return payload.Msg
		}
	}
	return "request failed with status " + strconv.Itoa(status)
}
