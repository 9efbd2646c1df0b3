package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradescribe/TradeScribe/config"
	"github.com/tradescribe/TradeScribe/internal/console"
	"github.com/tradescribe/TradeScribe/internal/querycache"
	"github.com/tradescribe/TradeScribe/internal/trades"
	"github.com/tradescribe/TradeScribe/models"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	app := NewApp(cfg)

	rootCmd := &cobra.Command{
		Use:   "tradescribe",
		Short: "TradeScribe - AI-Powered Trading Journal",
		Long: `TradeScribe is a trading journal you talk to. Describe your trades in
plain language and the assistant logs them; review, filter and analyze
your performance from the same terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default behavior: open the chat journal
			return runChatSession(cmd.Context(), app, "")
		},
	}

	rootCmd.AddCommand(newLoginCmd(app))
	rootCmd.AddCommand(newLogoutCmd(app))
	rootCmd.AddCommand(newWhoamiCmd(app))
	rootCmd.AddCommand(newChatCmd(app))
	rootCmd.AddCommand(newTradesCmd(app))
	rootCmd.AddCommand(newAnalyticsCmd(app))
	rootCmd.AddCommand(newInternalCmd(app))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newLoginCmd creates the login command
func newLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to your journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := PromptForCredentials()
			if err != nil {
				return err
			}
			session, err := app.Auth.SignIn(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("sign in failed: %w", err)
			}
			DisplaySuccess(fmt.Sprintf("Signed in as %s", session.User.Email))
			return nil
		},
	}
}

// newLogoutCmd creates the logout command
func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and wipe cached journal data",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Auth.OnSignOut(func() {
				DisplayInfo("Run 'tradescribe login' to sign back in.")
			})
			if err := app.Auth.SignOut(cmd.Context()); err != nil {
				return err
			}
			DisplaySuccess("Signed out")
			return nil
		},
	}
}

// newWhoamiCmd creates the whoami command
func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			session := app.Auth.Session(cmd.Context())
			if session == nil {
				DisplayInfo("Not signed in. Run 'tradescribe login'.")
				return nil
			}
			fmt.Printf("Email: %s\n", session.User.Email)
			if status := app.Gate.Peek(cmd.Context()); status.Value {
				fmt.Println("Role:  founder")
			}
			return nil
		},
	}
}

// newChatCmd creates the chat command group
func newChatCmd(app *App) *cobra.Command {
	chatCmd := &cobra.Command{
		Use:   "chat [CHAT_ID]",
		Short: "Talk to your journal",
		Long: `Open an interactive chat session. Without an argument a new chat is
created; pass a chat id to continue an earlier conversation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID := ""
			if len(args) == 1 {
				chatID = args[0]
			}
			return runChatSession(cmd.Context(), app, chatID)
		},
	}

	chatCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your chats",
		RunE: func(cmd *cobra.Command, args []string) error {
			res := app.Chat.Chats(cmd.Context())
			if res.IsError {
				return res.Err
			}
			if len(res.Data) == 0 {
				DisplayInfo("No chats yet. Run 'tradescribe chat' to start one.")
				return nil
			}
			for _, c := range res.Data {
				fmt.Printf("%-38s %-22s %s\n", c.ID, c.CreatedAt.Format("2006-01-02 15:04"), truncate(c.Title, 50))
			}
			return nil
		},
	})

	chatCmd.AddCommand(&cobra.Command{
		Use:   "rm CHAT_ID",
		Short: "Delete a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirmed, err := ConfirmDelete("chat " + args[0])
			if err != nil || !confirmed {
				return err
			}
			if err := app.Chat.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			DisplaySuccess("Chat deleted")
			return nil
		},
	})

	return chatCmd
}

// newTradesCmd creates the trades command group
func newTradesCmd(app *App) *cobra.Command {
	tradesCmd := &cobra.Command{
		Use:   "trades",
		Short: "Review and manage the trade log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTradesList(cmd, app)
		},
	}

	tradesCmd.Flags().String("status", "all", "Filter by status: all, open or closed")
	tradesCmd.Flags().String("search", "", "Free-text search over ticker and notes")
	tradesCmd.Flags().String("sort", "date", "Sort by: date, profit or ticker")
	tradesCmd.Flags().String("order", "desc", "Sort order: asc or desc")
	tradesCmd.Flags().Bool("marks", false, "Show live unrealized P&L for open positions")

	tradesCmd.AddCommand(&cobra.Command{
		Use:   "add",
		Short: "Log a trade by hand",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := PromptForTrade()
			if err != nil {
				return err
			}
			trade, err := app.Trades.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			DisplaySuccess(fmt.Sprintf("Logged %s (%s)", trade.Ticker, trade.ID))
			return nil
		},
	})

	editCmd := &cobra.Command{
		Use:   "edit TRADE_ID",
		Short: "Edit fields of a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, changed, err := tradePatchFromFlags(cmd)
			if err != nil {
				return err
			}
			if !changed {
				DisplayInfo("Nothing to change. Pass at least one field flag, e.g. --exit-price.")
				return nil
			}
			trade, err := app.Trades.Update(cmd.Context(), args[0], input)
			if err != nil {
				return err
			}
			DisplaySuccess(fmt.Sprintf("Updated %s: %s", trade.Ticker, renderProfit(trade.ProfitLoss)))
			return nil
		},
	}
	editCmd.Flags().String("ticker", "", "New ticker symbol")
	editCmd.Flags().Float64("entry-price", 0, "New entry price")
	editCmd.Flags().Float64("exit-price", 0, "New exit price")
	editCmd.Flags().Int64("qty", 0, "New quantity")
	editCmd.Flags().String("entry-date", "", "New entry date (YYYY-MM-DD)")
	editCmd.Flags().String("exit-date", "", "New exit date (YYYY-MM-DD)")
	editCmd.Flags().String("notes", "", "New notes")
	tradesCmd.AddCommand(editCmd)

	tradesCmd.AddCommand(&cobra.Command{
		Use:   "close TRADE_ID",
		Short: "Close an open position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := PromptForExit()
			if err != nil {
				return err
			}
			trade, err := app.Trades.Update(cmd.Context(), args[0], input)
			if err != nil {
				return err
			}
			DisplaySuccess(fmt.Sprintf("Closed %s: %s", trade.Ticker, renderProfit(trade.ProfitLoss)))
			return nil
		},
	})

	tradesCmd.AddCommand(&cobra.Command{
		Use:   "rm TRADE_ID",
		Short: "Delete a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirmed, err := ConfirmDelete("trade " + args[0])
			if err != nil || !confirmed {
				return err
			}
			if err := app.Trades.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			DisplaySuccess("Trade deleted")
			return nil
		},
	})

	tradesCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show aggregate performance",
		RunE: func(cmd *cobra.Command, args []string) error {
			res := app.Trades.List(cmd.Context())
			if res.IsError {
				return res.Err
			}
			fmt.Println(renderStats(trades.Compute(res.Data)))
			return nil
		},
	})

	return tradesCmd
}

// tradePatchFromFlags builds a partial update from whichever edit flags
// were set. Unset flags stay nil so the PATCH leaves those fields alone.
func tradePatchFromFlags(cmd *cobra.Command) (models.TradeInput, bool, error) {
	var input models.TradeInput
	changed := false

	if cmd.Flags().Changed("ticker") {
		v, _ := cmd.Flags().GetString("ticker")
		input.Ticker = &v
		changed = true
	}
	if cmd.Flags().Changed("entry-price") {
		v, _ := cmd.Flags().GetFloat64("entry-price")
		if v <= 0 {
			return input, false, fmt.Errorf("entry price must be positive")
		}
		input.EntryPrice = &v
		changed = true
	}
	if cmd.Flags().Changed("exit-price") {
		v, _ := cmd.Flags().GetFloat64("exit-price")
		if v <= 0 {
			return input, false, fmt.Errorf("exit price must be positive")
		}
		input.ExitPrice = &v
		changed = true
	}
	if cmd.Flags().Changed("qty") {
		v, _ := cmd.Flags().GetInt64("qty")
		if v <= 0 {
			return input, false, fmt.Errorf("quantity must be positive")
		}
		input.Quantity = &v
		changed = true
	}
	if cmd.Flags().Changed("entry-date") {
		v, _ := cmd.Flags().GetString("entry-date")
		input.EntryDate = &v
		changed = true
	}
	if cmd.Flags().Changed("exit-date") {
		v, _ := cmd.Flags().GetString("exit-date")
		input.ExitDate = &v
		changed = true
	}
	if cmd.Flags().Changed("notes") {
		v, _ := cmd.Flags().GetString("notes")
		input.Notes = &v
		changed = true
	}
	return input, changed, nil
}

// runTradesList renders the filtered, sorted trade table.
func runTradesList(cmd *cobra.Command, app *App) error {
	status, _ := cmd.Flags().GetString("status")
	search, _ := cmd.Flags().GetString("search")
	sortField, _ := cmd.Flags().GetString("sort")
	order, _ := cmd.Flags().GetString("order")
	withMarks, _ := cmd.Flags().GetBool("marks")

	res := app.Trades.List(cmd.Context())
	if res.IsError {
		return res.Err
	}

	list := trades.Filter(res.Data, search, trades.StatusFilter(status))
	list = trades.Sort(list, trades.SortField(sortField), trades.SortOrder(order))

	marks := map[string]float64{}
	if withMarks {
		for _, t := range list {
			if t.Closed() {
				continue
			}
			if m, err := app.Quotes.Mark(t.Ticker, t.EntryPrice, t.Quantity); err == nil {
				marks[t.ID] = m
			}
		}
	}

	fmt.Println(renderTradeTable(list, marks))
	if res.IsFetching {
		fmt.Println(staleStyle.Render("refreshing in background..."))
	}
	return nil
}

// newAnalyticsCmd creates the analytics command
func newAnalyticsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "AI-generated review of your trading",
		RunE: func(cmd *cobra.Command, args []string) error {
			res := querycache.Run(cmd.Context(), app.Store, querycache.Spec[models.AnalyticsReport]{
				Key:        "ai-analytics",
				StaleAfter: app.Config.StaleAfter,
				Fetch: func(ctx context.Context) (models.AnalyticsReport, error) {
					return app.Gateway.Analytics(ctx)
				},
			})
			if res.IsError {
				return res.Err
			}

			report := res.Data
			fmt.Println(titleStyle.Render("Trading Review"))
			fmt.Println(report.Summary)
			printSection := func(name string, items []string) {
				if len(items) == 0 {
					return
				}
				fmt.Println()
				fmt.Println(headerStyle.Render(name))
				for _, item := range items {
					fmt.Printf("  • %s\n", item)
				}
			}
			printSection("Strengths", report.Strengths)
			printSection("Weaknesses", report.Weaknesses)
			printSection("Suggestions", report.Suggestions)
			return nil
		},
	}
}

// newInternalCmd creates the founder-only internal console commands
func newInternalCmd(app *App) *cobra.Command {
	internalCmd := &cobra.Command{
		Use:   "internal",
		Short: "Operator dashboards (founder role required)",
	}

	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Platform user directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Console.Users(cmd.Context())
			if err != nil {
				return consoleErr(err)
			}
			query, _ := cmd.Flags().GetString("search")
			users := console.SearchUsers(res.Data, query)
			fmt.Printf("%-14s %-8s %-8s %-12s %s\n", "PSEUDONYM", "TRADES", "CHATS", "CONSENT", "CREATED")
			for _, u := range users {
				consent := "no"
				if u.ConsentGiven {
					consent = "yes"
				}
				fmt.Printf("%-14s %-8d %-8d %-12s %s\n",
					u.PseudonymousID, u.TradesCount, u.ChatsCount, consent, u.CreatedAt)
			}
			return nil
		},
	}
	usersCmd.Flags().String("search", "", "Filter by pseudonymous id")
	internalCmd.AddCommand(usersCmd)

	internalCmd.AddCommand(&cobra.Command{
		Use:   "overview",
		Short: "Headline platform metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Console.Overview(cmd.Context())
			if err != nil {
				return consoleErr(err)
			}
			m := res.Data
			fmt.Printf("Users:              %d\n", m.TotalUsers)
			fmt.Printf("Active this week:   %d\n", m.ActiveUsersWeek)
			fmt.Printf("Trades:             %d\n", m.TotalTrades)
			fmt.Printf("Chats:              %d\n", m.TotalChats)
			return nil
		},
	})

	internalCmd.AddCommand(&cobra.Command{
		Use:   "analytics",
		Short: "Platform-wide trading aggregates",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Console.Analytics(cmd.Context())
			if err != nil {
				return consoleErr(err)
			}
			m := res.Data
			fmt.Printf("Trades:         %d\n", m.TotalTrades)
			fmt.Printf("Avg profit:     %s\n", trades.FormatUSD(m.AvgProfit))
			fmt.Printf("Win rate:       %.1f%%\n", m.WinRate)
			fmt.Printf("Avg hold time:  %.1f days\n", m.AvgHoldTime)
			return nil
		},
	})

	internalCmd.AddCommand(&cobra.Command{
		Use:   "billing",
		Short: "Billing and plan aggregates",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Console.Billing(cmd.Context())
			if err != nil {
				return consoleErr(err)
			}
			m := res.Data
			fmt.Printf("MRR:             %s\n", trades.FormatUSD(m.MRR))
			fmt.Printf("Active plans:    %d\n", m.ActivePlans)
			fmt.Printf("Trial accounts:  %d\n", m.TrialAccounts)
			fmt.Printf("Churn rate:      %.1f%%\n", m.ChurnRate)
			return nil
		},
	})

	return internalCmd
}

func consoleErr(err error) error {
	if err == console.ErrAccessDenied {
		return fmt.Errorf("this area requires the founder role")
	}
	return err
}

// newConfigCmd creates the config command
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Current TradeScribe configuration:")
			fmt.Printf("API URL:          %s\n", cfg.APIBaseURL)
			fmt.Printf("Auth URL:         %s\n", cfg.AuthBaseURL)
			fmt.Printf("Config directory: %s\n", cfg.ConfigDir)
			fmt.Printf("Request timeout:  %s\n", cfg.RequestTimeout)
			fmt.Printf("Stale after:      %s\n", cfg.StaleAfter)
			fmt.Printf("Debug:            %t\n", cfg.Debug)
			fmt.Printf("Log format:       %s\n", cfg.LogFormat)
		},
	})

	return configCmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("TradeScribe v1.0.0")
			fmt.Println("AI-Powered Trading Journal")
		},
	}
}
