package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tradescribe/TradeScribe/internal/chat"
	"github.com/tradescribe/TradeScribe/internal/querycache"
)

// runChatSession opens the interactive journal. With an empty chatID a new
// chat is created on the first message.
func runChatSession(ctx context.Context, app *App, chatID string) error {
	if app.Auth.Session(ctx) == nil {
		DisplayInfo("Not signed in. Run 'tradescribe login' first.")
		return nil
	}

	fmt.Println(titleStyle.Render("TradeScribe - talk to your journal"))
	fmt.Println("Describe a trade in plain language and it gets logged.")
	fmt.Println("Commands: /chats, /open ID, /new, /refresh, /trades, /quit")
	fmt.Println()

	if chatID != "" {
		res := app.Chat.Thread(ctx, chatID)
		if res.IsError {
			return res.Err
		}
		fmt.Print(renderThread(res.Data))
	}

	// Keep the open transcript mounted so invalidations refetch it in the
	// background while the session is running.
	var unmount func()
	defer func() {
		if unmount != nil {
			unmount()
		}
	}()
	if chatID != "" {
		unmount = app.Store.Mount(chat.ThreadKey(chatID))
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(userMsgStyle.Render("you> "))
		line, err := reader.ReadString('\n')
		if err != nil {
			// EOF ends the session cleanly.
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "exit" || line == "quit":
			fmt.Println("Journal saved. See you next session.")
			return nil
		case line == "/refresh":
			app.Store.Refocus(ctx)
			if chatID != "" {
				res := app.Chat.Thread(ctx, chatID)
				if !res.IsError {
					fmt.Print(renderThread(res.Data))
				}
			}
			continue
		case line == "/trades":
			res := app.Trades.List(ctx)
			if res.IsError {
				DisplayError(res.Err)
				continue
			}
			fmt.Println(renderTradeTable(res.Data, nil))
			continue
		case line == "/chats":
			res := app.Chat.Chats(ctx)
			if res.IsError {
				DisplayError(res.Err)
				continue
			}
			for _, c := range res.Data {
				fmt.Printf("%-38s %s\n", c.ID, truncate(c.Title, 50))
			}
			continue
		case strings.HasPrefix(line, "/open "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
			res := app.Chat.Thread(ctx, id)
			if res.IsError {
				DisplayError(res.Err)
				continue
			}
			if unmount != nil {
				unmount()
			}
			chatID = id
			unmount = app.Store.Mount(chat.ThreadKey(chatID))
			fmt.Print(renderThread(res.Data))
			continue
		case line == "/new":
			created, err := app.Chat.NewChat(ctx)
			if err != nil {
				DisplayError(err)
				continue
			}
			if unmount != nil {
				unmount()
			}
			chatID = created.ID
			unmount = app.Store.Mount(chat.ThreadKey(chatID))
			DisplaySuccess("Started a new chat")
			continue
		case strings.HasPrefix(line, "/"):
			DisplayInfo("Unknown command. Available: /chats, /open ID, /new, /refresh, /trades, /quit")
			continue
		}

		if chatID == "" {
			created, err := app.Chat.NewChat(ctx)
			if err != nil {
				DisplayError(fmt.Errorf("could not start chat: %w", err))
				continue
			}
			chatID = created.ID
			unmount = app.Store.Mount(chat.ThreadKey(chatID))
		}

		fmt.Println(typingStyle.Render(chat.ThinkingPlaceholder))
		resp, err := app.Chat.Send(ctx, chatID, line)
		if err != nil {
			if errors.Is(err, querycache.ErrMutationInFlight) {
				DisplayInfo("Still waiting on the previous reply.")
				continue
			}
			DisplayError(fmt.Errorf("message not sent: %w", err))
			continue
		}

		fmt.Println(assistantMsgStyle.Render("assistant> ") + resp.Message)
		if resp.TradeExtracted {
			DisplaySuccess("Trade logged to your journal. See 'tradescribe trades'.")
		}
		fmt.Println()
	}
}
