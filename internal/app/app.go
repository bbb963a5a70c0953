package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/bobmcallan/advisor-portal/internal/auth"
	"github.com/bobmcallan/advisor-portal/internal/common"
	"github.com/bobmcallan/advisor-portal/internal/config"
	"github.com/bobmcallan/advisor-portal/internal/feed"
	"github.com/bobmcallan/advisor-portal/internal/handlers"
	"github.com/bobmcallan/advisor-portal/internal/interfaces"
	"github.com/bobmcallan/advisor-portal/internal/live"
	"github.com/bobmcallan/advisor-portal/internal/mcp"
	"github.com/bobmcallan/advisor-portal/internal/notify"
	"github.com/bobmcallan/advisor-portal/internal/portal"
	"github.com/bobmcallan/advisor-portal/internal/seed"
	"github.com/bobmcallan/advisor-portal/internal/storage"
)

// App holds all application components and dependencies.
type App struct {
	Config  *config.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager

	Tokens     *auth.TokenIssuer
	Accounts   *auth.Service
	Portal     *portal.Service
	Subscriber *live.Subscriber
	Guard      *handlers.SessionGuard

	// HTTP handlers
	PageHandler     *handlers.PageHandler
	HealthHandler   *handlers.HealthHandler
	VersionHandler  *handlers.VersionHandler
	AuthHandler     *handlers.AuthHandler
	ProfileHandler  *handlers.ProfileHandler
	MessagesHandler *handlers.MessagesHandler
	ReportsHandler  *handlers.ReportsHandler
	BadgesHandler   *handlers.BadgesHandler
	FeedHandler     *handlers.FeedHandler
	MCPHandler      *mcp.Handler
}

// New initializes the application with all dependencies.
func New(ctx context.Context, cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("RUNNING IN DEV MODE, demo data is seeded, do not use in production")
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	if err := a.initStorage(ctx); err != nil {
		return nil, err
	}

	if err := a.initServices(); err != nil {
		a.Close()
		return nil, err
	}

	a.initHandlers()

	if cfg.IsDevMode() {
		seed.DevData(ctx, seed.Deps{
			Docs:     a.Storage.Documents(),
			Accounts: a.Accounts,
			Profiles: a.Portal,
			Logger:   logger,
		})
	}

	logger.Info().Msg("application initialization complete")

	return a, nil
}

// initStorage opens the configured document store.
func (a *App) initStorage(ctx context.Context) error {
	mgr, err := storage.NewStorageManager(ctx, a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Storage = mgr
	a.Logger.Info().Str("backend", a.Config.Storage.Backend).Msg("storage initialized")
	return nil
}

// initServices builds the auth, portal and live-subscription services.
func (a *App) initServices() error {
	secret := []byte(a.Config.Auth.JWTSecret)
	if len(secret) == 0 {
		if !a.Config.IsDevMode() {
			return fmt.Errorf("auth.jwt_secret is required outside dev mode")
		}
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		a.Logger.Warn().Msg("no jwt_secret configured, using an ephemeral secret; sessions end on restart")
	}

	tokens, err := auth.NewTokenIssuer(secret, a.Config.Auth.GetSessionTTL())
	if err != nil {
		return err
	}
	a.Tokens = tokens

	docs := a.Storage.Documents()
	lockout := auth.NewLockoutTracker(a.Config.Auth.MaxFailedAttempts, a.Config.Auth.GetLockoutWindow())
	a.Accounts = auth.NewService(docs, lockout, a.Logger)
	a.Portal = portal.NewService(docs, a.Logger)
	a.Subscriber = live.NewSubscriber(docs)
	a.Guard = handlers.NewSessionGuard(tokens)

	return nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	secure := !a.Config.IsDevMode()

	a.PageHandler = handlers.NewPageHandler(a.Logger, a.Config.Web.StaticDir, a.Guard)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, a.Storage.Documents())
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.AuthHandler = handlers.NewAuthHandler(a.Logger, a.Accounts, a.Tokens, a.Portal, secure)
	a.ProfileHandler = handlers.NewProfileHandler(a.Logger, a.Portal)
	a.MessagesHandler = handlers.NewMessagesHandler(a.Logger, a.Subscriber, a.Portal)
	a.ReportsHandler = handlers.NewReportsHandler(a.Logger, a.Subscriber, a.Portal)
	a.BadgesHandler = handlers.NewBadgesHandler(a.Logger, a.Subscriber)
	a.FeedHandler = handlers.NewFeedHandler(a.Logger, feed.Deps{
		Subscriber: a.Subscriber,
		Service:    a.Portal,
		KV:         a.Storage.KeyValueStorage(),
		Dedup: notify.DedupConfig{
			Retention:  a.Config.Notifications.GetRetention(),
			MaxRecords: a.Config.Notifications.MaxRecords,
		},
		DismissAfter: a.Config.Notifications.GetDismissAfter(),
		Logger:       a.Logger,
	}, a.Guard)
	a.MCPHandler = mcp.NewHandler(a.Logger, a.Tokens, a.Subscriber, config.GetBuildInfo().Version)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	if a.Storage == nil {
		return nil
	}
	return a.Storage.Close()
}
