// Package cli is the terminal front end of the trading journal. Every view
// reads through the shared query store; every command that changes state
// goes through the chat and trade services so the cache stays coherent.
package cli

import (
	"log/slog"
	"time"

	"github.com/tradescribe/TradeScribe/config"
	"github.com/tradescribe/TradeScribe/internal/auth"
	"github.com/tradescribe/TradeScribe/internal/chat"
	"github.com/tradescribe/TradeScribe/internal/console"
	"github.com/tradescribe/TradeScribe/internal/gateway"
	"github.com/tradescribe/TradeScribe/internal/logging"
	"github.com/tradescribe/TradeScribe/internal/marketdata"
	"github.com/tradescribe/TradeScribe/internal/querycache"
	"github.com/tradescribe/TradeScribe/internal/rolegate"
	"github.com/tradescribe/TradeScribe/internal/trades"
)

// quoteTTL bounds how often the open-position mark column hits the market
// data provider.
const quoteTTL = 30 * time.Second

// App holds the wired client: one store, one session provider, one gateway
// client, and the services built on top of them.
type App struct {
	Config *config.Config
	Store  *querycache.Store

	Auth    *auth.Provider
	Gateway *gateway.Client
	Gate    *rolegate.Gate

	Chat    *chat.Service
	Trades  *trades.Service
	Console *console.Service
	Quotes  *marketdata.Service
}

// NewApp builds the dependency graph. Construction is cheap: nothing talks
// to the network until a command reads through the store.
func NewApp(cfg *config.Config) *App {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logging.Init(level, cfg.LogFormat)

	store := querycache.New(logging.New("querycache"))

	backend := auth.NewFileBackend(cfg)
	provider := auth.NewProvider(store, backend, cfg.StaleAfter)

	gw := gateway.NewClient(cfg, provider)
	gate := rolegate.New(store, gw, provider, cfg.StaleAfter)

	return &App{
		Config:  cfg,
		Store:   store,
		Auth:    provider,
		Gateway: gw,
		Gate:    gate,
		Chat:    chat.NewService(store, gw, cfg.StaleAfter),
		Trades:  trades.NewService(store, gw, cfg.StaleAfter),
		Console: console.NewService(store, gw, gate, cfg.StaleAfter),
		Quotes:  marketdata.New(quoteTTL),
	}
}
