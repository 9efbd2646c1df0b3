package gateway

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/tradescribe/TradeScribe/models"
)

// --- chats ---

// ListChats returns the caller's chats, newest first.
func (c *Client) ListChats(ctx context.Context) ([]models.Chat, error) {
	var chats []models.Chat
	if err := c.get(ctx, "/chats", &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// CreateChat creates a chat with the given title.
func (c *Client) CreateChat(ctx context.Context, title string) (models.Chat, error) {
	var chat models.Chat
	body := map[string]string{"title": title}
	if err := c.do(ctx, resty.MethodPost, "/chats", body, &chat); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// GetChat returns a chat together with its transcript.
func (c *Client) GetChat(ctx context.Context, chatID string) (models.Thread, error) {
	var thread models.Thread
	if err := c.get(ctx, "/chats/"+chatID, &thread); err != nil {
		return models.Thread{}, err
	}
	return thread, nil
}

// DeleteChat removes a chat. A chat that is already gone counts as deleted.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	err := c.do(ctx, resty.MethodDelete, "/chats/"+chatID, nil, nil)
	if err != nil && IsNotFound(err) {
		return nil
	}
	return err
}

// --- AI ---

// SendMessageResponse is the assistant's reply. TradeExtracted signals that
// the backend parsed a structured trade out of the message, so the trade
// list is no longer current.
type SendMessageResponse struct {
	Message        string `json:"message"`
	TradeExtracted bool   `json:"trade_extracted"`
}

// SendMessage sends a user message to the assistant.
func (c *Client) SendMessage(ctx context.Context, chatID, message string) (SendMessageResponse, error) {
	var out SendMessageResponse
	body := map[string]string{"chat_id": chatID, "message": message}
	if err := c.do(ctx, resty.MethodPost, "/ai/chat", body, &out); err != nil {
		return SendMessageResponse{}, err
	}
	return out, nil
}

// Analytics asks the backend for an AI summary of the caller's trades.
func (c *Client) Analytics(ctx context.Context) (models.AnalyticsReport, error) {
	var report models.AnalyticsReport
	if err := c.do(ctx, resty.MethodPost, "/ai/analytics", map[string]any{}, &report); err != nil {
		return models.AnalyticsReport{}, err
	}
	return report, nil
}

// --- trades ---

// ListTrades returns the caller's trade log.
func (c *Client) ListTrades(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	if err := c.get(ctx, "/trades", &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// CreateTrade inserts a trade and returns the stored row.
func (c *Client) CreateTrade(ctx context.Context, input models.TradeInput) (models.Trade, error) {
	var trade models.Trade
	if err := c.do(ctx, resty.MethodPost, "/trades", input, &trade); err != nil {
		return models.Trade{}, err
	}
	return trade, nil
}

// UpdateTrade applies a partial update.
func (c *Client) UpdateTrade(ctx context.Context, tradeID string, input models.TradeInput) (models.Trade, error) {
	var trade models.Trade
	if err := c.do(ctx, resty.MethodPatch, "/trades/"+tradeID, input, &trade); err != nil {
		return models.Trade{}, err
	}
	return trade, nil
}

// DeleteTrade removes a trade; deleting an already-deleted trade succeeds.
func (c *Client) DeleteTrade(ctx context.Context, tradeID string) error {
	err := c.do(ctx, resty.MethodDelete, "/trades/"+tradeID, nil, nil)
	if err != nil && IsNotFound(err) {
		return nil
	}
	return err
}

// --- role ---

type roleResponse struct {
	Role models.Role `json:"role"`
}

// Role returns the caller's privilege level.
func (c *Client) Role(ctx context.Context) (models.Role, error) {
	var out roleResponse
	if err := c.get(ctx, "/me/role", &out); err != nil {
		return "", err
	}
	if out.Role == "" {
		return "", &APIError{Kind: KindInvalidPayload, Message: "role missing from response"}
	}
	return out.Role, nil
}

// --- internal console (founder role required, enforced server-side too) ---

// InternalUsers returns the platform user directory with per-user counts
// aggregated in one query.
func (c *Client) InternalUsers(ctx context.Context) ([]models.UserData, error) {
	var users []models.UserData
	if err := c.get(ctx, "/internal/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// InternalOverview returns the dashboard headline metrics.
func (c *Client) InternalOverview(ctx context.Context) (models.OverviewMetrics, error) {
	var m models.OverviewMetrics
	if err := c.get(ctx, "/internal/metrics", &m); err != nil {
		return models.OverviewMetrics{}, err
	}
	return m, nil
}

// InternalAnalytics returns platform-wide trading aggregates.
func (c *Client) InternalAnalytics(ctx context.Context) (models.InternalAnalytics, error) {
	var m models.InternalAnalytics
	if err := c.get(ctx, "/internal/analytics", &m); err != nil {
		return models.InternalAnalytics{}, err
	}
	return m, nil
}

// InternalBilling returns billing and plan aggregates.
func (c *Client) InternalBilling(ctx context.Context) (models.BillingMetrics, error) {
	var m models.BillingMetrics
	if err := c.get(ctx, "/internal/billing", &m); err != nil {
		return models.BillingMetrics{}, err
	}
	return m, nil
}
