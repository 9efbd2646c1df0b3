package chat

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradescribe/TradeScribe/internal/gateway"
	"github.com/tradescribe/TradeScribe/internal/querycache"
	"github.com/tradescribe/TradeScribe/internal/trades"
	"github.com/tradescribe/TradeScribe/models"
)

type fakeGateway struct {
	chats       []models.Chat
	threads     map[string]models.Thread
	sendResp    gateway.SendMessageResponse
	sendErr     error
	sendStarted chan struct{}
	sendRelease chan struct{}
	sends       atomic.Int32
}

func (g *fakeGateway) ListChats(ctx context.Context) ([]models.Chat, error) { return g.chats, nil }

func (g *fakeGateway) CreateChat(ctx context.Context, title string) (models.Chat, error) {
	return models.Chat{ID: "chat-1", Title: title, CreatedAt: time.Now()}, nil
}

func (g *fakeGateway) GetChat(ctx context.Context, chatID string) (models.Thread, error) {
	return g.threads[chatID], nil
}

func (g *fakeGateway) DeleteChat(ctx context.Context, chatID string) error { return nil }

func (g *fakeGateway) SendMessage(ctx context.Context, chatID, message string) (gateway.SendMessageResponse, error) {
	g.sends.Add(1)
	if g.sendStarted != nil {
		close(g.sendStarted)
		g.sendStarted = nil
	}
	if g.sendRelease != nil {
		<-g.sendRelease
	}
	if g.sendErr != nil {
		return gateway.SendMessageResponse{}, g.sendErr
	}
	return g.sendResp, nil
}

func newTestService(gw *fakeGateway) (*Service, *querycache.Store) {
	store := querycache.New(nil)
	return NewService(store, gw, time.Minute), store
}

func TestSendEndToEnd(t *testing.T) {
	// A default-titled chat, one natural language trade message, a reply
	// with trade_extracted set.
	gw := &fakeGateway{
		sendResp: gateway.SendMessageResponse{
			Message:        "Logged: AAPL 100 shares, +$380.00.",
			TradeExtracted: true,
		},
	}
	svc, store := newTestService(gw)

	chat, err := svc.NewChat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultChatTitle, chat.Title)

	// Seed the trade list so its invalidation is observable.
	store.SetData(trades.ListKey, []models.Trade{})

	content := "Bought AAPL at 178.50, sold at 182.30, qty 100"
	resp, err := svc.Send(context.Background(), chat.ID, content)
	require.NoError(t, err)
	assert.True(t, resp.TradeExtracted)

	thread, ok := querycache.DataAs[models.Thread](store, ThreadKey(chat.ID))
	require.True(t, ok)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, models.MessageRoleUser, thread.Messages[0].Role)
	assert.Equal(t, content, thread.Messages[0].Content)
	assert.Equal(t, models.MessageRoleAssistant, thread.Messages[1].Role)
	assert.Equal(t, gw.sendResp.Message, thread.Messages[1].Content)
	for _, m := range thread.Messages {
		assert.False(t, m.Temporary(), "no placeholder may survive reconciliation")
	}

	assert.Equal(t, models.TitleFromMessage(content), thread.Chat.Title,
		"default title must be replaced by the first message")

	assert.Equal(t, querycache.StatusStale, store.Status(trades.ListKey),
		"trade extraction must invalidate the trade list")
	assert.Equal(t, querycache.StatusStale, store.Status(ListKey),
		"sending must invalidate the chat list")
	assert.False(t, svc.Typing(chat.ID), "typing indicator must clear after settle")
}

func TestSendShowsOptimisticMessagesWhileInFlight(t *testing.T) {
	gw := &fakeGateway{
		sendStarted: make(chan struct{}),
		sendRelease: make(chan struct{}),
		sendResp:    gateway.SendMessageResponse{Message: "done"},
	}
	svc, store := newTestService(gw)
	started := gw.sendStarted

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Send(context.Background(), "c1", "hello")
	}()

	<-started
	thread, ok := querycache.DataAs[models.Thread](store, ThreadKey("c1"))
	require.True(t, ok)
	require.Len(t, thread.Messages, 2, "user message and placeholder must appear before the reply")
	assert.True(t, thread.Messages[0].Temporary())
	assert.Equal(t, ThinkingPlaceholder, thread.Messages[1].Content)
	assert.True(t, svc.Typing("c1"))

	close(gw.sendRelease)
	<-done
}

func TestSendRollbackLeavesThreadUntouched(t *testing.T) {
	gw := &fakeGateway{sendErr: errors.New("gateway rejected")}
	svc, store := newTestService(gw)

	confirmed := models.Thread{
		Chat: models.Chat{ID: "c1", Title: "AAPL talk"},
		Messages: []models.Message{
			{ID: "m1", Role: models.MessageRoleUser, Content: "earlier"},
			{ID: "m2", Role: models.MessageRoleAssistant, Content: "noted"},
		},
	}
	store.SetData(ThreadKey("c1"), confirmed)

	_, err := svc.Send(context.Background(), "c1", "this will fail")
	require.Error(t, err)

	thread, _ := querycache.DataAs[models.Thread](store, ThreadKey("c1"))
	assert.Equal(t, confirmed.Messages, thread.Messages,
		"failed send must leave the transcript exactly as before")
	assert.False(t, svc.Typing("c1"))
}

func TestSecondSendToSameChatRejectedWhilePending(t *testing.T) {
	gw := &fakeGateway{
		sendStarted: make(chan struct{}),
		sendRelease: make(chan struct{}),
		sendResp:    gateway.SendMessageResponse{Message: "ok"},
	}
	svc, _ := newTestService(gw)
	started := gw.sendStarted

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Send(context.Background(), "c1", "first")
	}()

	<-started
	_, err := svc.Send(context.Background(), "c1", "second")
	assert.ErrorIs(t, err, querycache.ErrMutationInFlight)

	close(gw.sendRelease)
	<-done
	assert.Equal(t, int32(1), gw.sends.Load())
}

func TestNewChatRollbackOnFailure(t *testing.T) {
	gw := &fakeGateway{}
	svc, store := newTestService(gw)
	store.SetData(ListKey, []models.Chat{{ID: "old", Title: "kept"}})

	failing := &failingCreateGateway{fakeGateway: gw}
	svc2 := NewService(store, failing, time.Minute)

	_, err := svc2.NewChat(context.Background())
	require.Error(t, err)

	list, _ := querycache.DataAs[[]models.Chat](store, ListKey)
	require.Len(t, list, 1)
	assert.Equal(t, "old", list[0].ID)
	_ = svc
}

type failingCreateGateway struct {
	*fakeGateway
}

func (g *failingCreateGateway) CreateChat(ctx context.Context, title string) (models.Chat, error) {
	return models.Chat{}, errors.New("create failed")
}

func TestDeleteRemovesChatFromList(t *testing.T) {
	gw := &fakeGateway{}
	svc, store := newTestService(gw)
	store.SetData(ListKey, []models.Chat{{ID: "c1"}, {ID: "c2"}})

	require.NoError(t, svc.Delete(context.Background(), "c1"))

	list, _ := querycache.DataAs[[]models.Chat](store, ListKey)
	require.Len(t, list, 1)
	assert.Equal(t, "c2", list[0].ID)
}
