// Package chat turns user intents (new chat, send message, delete chat)
// into cache mutations against the query store, keeping the chat list and
// the active thread consistent with the gateway.
package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tradescribe/TradeScribe/internal/gateway"
	"github.com/tradescribe/TradeScribe/internal/logging"
	"github.com/tradescribe/TradeScribe/internal/querycache"
	"github.com/tradescribe/TradeScribe/internal/trades"
	"github.com/tradescribe/TradeScribe/models"
)

// ListKey is the cache key of the chat list.
const ListKey = "chats"

// ThreadKey returns the cache key of one chat's transcript.
func ThreadKey(chatID string) string { return "chat:" + chatID }

// TypingKey returns the cache key of a chat's in-progress indicator.
func TypingKey(chatID string) string { return "chat:" + chatID + ":typing" }

// ThinkingPlaceholder is the optimistic assistant message shown while the
// reply is in flight.
const ThinkingPlaceholder = "Thinking..."

// Gateway is the slice of the API client the chat service needs.
type Gateway interface {
	ListChats(ctx context.Context) ([]models.Chat, error)
	CreateChat(ctx context.Context, title string) (models.Chat, error)
	GetChat(ctx context.Context, chatID string) (models.Thread, error)
	DeleteChat(ctx context.Context, chatID string) error
	SendMessage(ctx context.Context, chatID, message string) (gateway.SendMessageResponse, error)
}

// Service mediates chat intents through the query store.
type Service struct {
	store      *querycache.Store
	gw         Gateway
	staleAfter time.Duration
	log        *slog.Logger

	send    *querycache.Mutation[sendArg, gateway.SendMessageResponse]
	newChat *querycache.Mutation[string, models.Chat]
	remove  *querycache.Mutation[string, struct{}]
}

type sendArg struct {
	chatID  string
	content string
}

// NewService wires the chat intents into the store.
func NewService(store *querycache.Store, gw Gateway, staleAfter time.Duration) *Service {
	s := &Service{
		store:      store,
		gw:         gw,
		staleAfter: staleAfter,
		log:        logging.New("chat"),
	}

	s.send = &querycache.Mutation[sendArg, gateway.SendMessageResponse]{
		Store: store,
		// One send per chat at a time; a second send while one is pending
		// is rejected rather than interleaving optimistic states.
		TargetKey: func(a sendArg) string { return "send:" + a.chatID },
		Call: func(ctx context.Context, a sendArg) (gateway.SendMessageResponse, error) {
			return s.gw.SendMessage(ctx, a.chatID, a.content)
		},
		OnOptimistic: s.sendOptimistic,
		OnSuccess:    s.sendSuccess,
		OnError:      s.sendRollback,
		OnSettled: func(qs *querycache.Store, a sendArg) {
			qs.SetData(TypingKey(a.chatID), false)
		},
	}

	s.newChat = &querycache.Mutation[string, models.Chat]{
		Store:     store,
		TargetKey: func(string) string { return "chat:new" },
		Call: func(ctx context.Context, title string) (models.Chat, error) {
			return s.gw.CreateChat(ctx, title)
		},
		OnOptimistic: func(qs *querycache.Store, title string) {
			tmp := models.Chat{
				ID:        models.TempIDPrefix + uuid.NewString(),
				Title:     title,
				CreatedAt: time.Now(),
			}
			qs.Update(ListKey, func(cur any) any {
				return append([]models.Chat{tmp}, asChats(cur)...)
			})
		},
		OnSuccess: func(ctx context.Context, qs *querycache.Store, title string, created models.Chat) {
			qs.Update(ListKey, func(cur any) any {
				return append([]models.Chat{created}, stripTempChats(asChats(cur))...)
			})
			qs.SetData(ThreadKey(created.ID), models.Thread{Chat: created})
		},
		OnError: func(qs *querycache.Store, title string, err error) {
			qs.Update(ListKey, func(cur any) any {
				return stripTempChats(asChats(cur))
			})
		},
	}

	s.remove = &querycache.Mutation[string, struct{}]{
		Store:     store,
		TargetKey: func(chatID string) string { return "chat:" + chatID },
		Call: func(ctx context.Context, chatID string) (struct{}, error) {
			return struct{}{}, s.gw.DeleteChat(ctx, chatID)
		},
		OnOptimistic: func(qs *querycache.Store, chatID string) {
			qs.Update(ListKey, func(cur any) any {
				list := asChats(cur)
				kept := make([]models.Chat, 0, len(list))
				for _, c := range list {
					if c.ID != chatID {
						kept = append(kept, c)
					}
				}
				return kept
			})
		},
		OnError: func(qs *querycache.Store, chatID string, err error) {
			qs.Invalidate(context.Background(), ListKey)
		},
	}

	return s
}

// Chats returns the cached chat list.
func (s *Service) Chats(ctx context.Context) querycache.Result[[]models.Chat] {
	return querycache.Run(ctx, s.store, querycache.Spec[[]models.Chat]{
		Key:        ListKey,
		StaleAfter: s.staleAfter,
		Fetch: func(ctx context.Context) ([]models.Chat, error) {
			return s.gw.ListChats(ctx)
		},
	})
}

// Thread returns one chat's transcript.
func (s *Service) Thread(ctx context.Context, chatID string) querycache.Result[models.Thread] {
	return querycache.Run(ctx, s.store, querycache.Spec[models.Thread]{
		Key:        ThreadKey(chatID),
		StaleAfter: s.staleAfter,
		Fetch: func(ctx context.Context) (models.Thread, error) {
			return s.gw.GetChat(ctx, chatID)
		},
	})
}

// Typing reports whether a reply for this chat is in flight.
func (s *Service) Typing(chatID string) bool {
	v, ok := querycache.DataAs[bool](s.store, TypingKey(chatID))
	return ok && v
}

// NewChat creates a chat with the default title.
func (s *Service) NewChat(ctx context.Context) (models.Chat, error) {
	return s.newChat.Do(ctx, models.DefaultChatTitle)
}

// Delete removes a chat and its cached transcript.
func (s *Service) Delete(ctx context.Context, chatID string) error {
	if _, err := s.remove.Do(ctx, chatID); err != nil {
		return err
	}
	s.store.Invalidate(ctx, ThreadKey(chatID))
	return nil
}

// Send delivers a user message and reconciles the assistant's reply. The
// returned response reports whether the backend extracted a trade.
func (s *Service) Send(ctx context.Context, chatID, content string) (gateway.SendMessageResponse, error) {
	return s.send.Do(ctx, sendArg{chatID: chatID, content: content})
}

// sendOptimistic appends a tagged user message and a tagged assistant
// placeholder, flips the typing flag, and retitles a default-titled chat.
func (s *Service) sendOptimistic(qs *querycache.Store, a sendArg) {
	userMsg := models.Message{
		ID:      models.TempIDPrefix + uuid.NewString(),
		Role:    models.MessageRoleUser,
		Content: a.content,
	}
	placeholder := models.Message{
		ID:      models.TempIDPrefix + uuid.NewString(),
		Role:    models.MessageRoleAssistant,
		Content: ThinkingPlaceholder,
	}

	qs.Update(ThreadKey(a.chatID), func(cur any) any {
		thread := asThread(cur, a.chatID)
		thread.Messages = append(append([]models.Message{}, thread.Messages...), userMsg, placeholder)
		if thread.Chat.Title == models.DefaultChatTitle || thread.Chat.Title == "" {
			thread.Chat.Title = models.TitleFromMessage(a.content)
		}
		return thread
	})

	qs.Update(ListKey, func(cur any) any {
		list := asChats(cur)
		out := make([]models.Chat, len(list))
		copy(out, list)
		for i := range out {
			if out[i].ID == a.chatID && out[i].Title == models.DefaultChatTitle {
				out[i].Title = models.TitleFromMessage(a.content)
			}
		}
		return out
	})

	qs.SetData(TypingKey(a.chatID), true)
}

// sendSuccess swaps the tagged entries for confirmed messages and
// invalidates everything the send may have changed: the chat list always
// (title and ordering), the trade list when a trade was extracted.
func (s *Service) sendSuccess(ctx context.Context, qs *querycache.Store, a sendArg, res gateway.SendMessageResponse) {
	qs.Update(ThreadKey(a.chatID), func(cur any) any {
		thread := asThread(cur, a.chatID)
		thread.Messages = append(stripTempMessages(thread.Messages),
			models.Message{ID: uuid.NewString(), Role: models.MessageRoleUser, Content: a.content},
			models.Message{ID: uuid.NewString(), Role: models.MessageRoleAssistant, Content: res.Message},
		)
		return thread
	})

	// Server-issued message ids arrive with the next thread refetch.
	qs.Invalidate(ctx, ThreadKey(a.chatID), ListKey)
	if res.TradeExtracted {
		s.log.Debug("trade extracted from message", slog.String("chat_id", a.chatID))
		qs.Invalidate(ctx, trades.ListKey)
	}
}

// sendRollback strips exactly the tagged temporary entries, leaving every
// confirmed message untouched.
func (s *Service) sendRollback(qs *querycache.Store, a sendArg, err error) {
	s.log.Warn("send failed; rolling back optimistic messages",
		slog.String("chat_id", a.chatID), slog.String("error", err.Error()))
	qs.Update(ThreadKey(a.chatID), func(cur any) any {
		thread := asThread(cur, a.chatID)
		thread.Messages = stripTempMessages(thread.Messages)
		return thread
	})
}

func asThread(cur any, chatID string) models.Thread {
	if cur == nil {
		return models.Thread{Chat: models.Chat{ID: chatID, Title: models.DefaultChatTitle}}
	}
	thread, ok := cur.(models.Thread)
	if !ok {
		return models.Thread{Chat: models.Chat{ID: chatID, Title: models.DefaultChatTitle}}
	}
	return thread
}

func asChats(cur any) []models.Chat {
	if cur == nil {
		return nil
	}
	list, ok := cur.([]models.Chat)
	if !ok {
		return nil
	}
	return list
}

func stripTempMessages(list []models.Message) []models.Message {
	kept := make([]models.Message, 0, len(list))
	for _, m := range list {
		if !m.Temporary() {
			kept = append(kept, m)
		}
	}
	return kept
}

func stripTempChats(list []models.Chat) []models.Chat {
	kept := make([]models.Chat, 0, len(list))
	for _, c := range list {
		if len(c.ID) < len(models.TempIDPrefix) || c.ID[:len(models.TempIDPrefix)] != models.TempIDPrefix {
			kept = append(kept, c)
		}
	}
	return kept
}
