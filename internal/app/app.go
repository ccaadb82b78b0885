// Package app wires the configuration, vault, storage, token, browser and
// scraper layers into one runnable application.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/venator/internal/browser"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/scraper"
	"github.com/ternarybob/venator/internal/services/scheduler"
	"github.com/ternarybob/venator/internal/storage/badger"
	"github.com/ternarybob/venator/internal/tokens"
	"github.com/ternarybob/venator/internal/vault"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	Vault          *vault.Vault
	Credentials    *vault.CredentialStore
	TokenService   interfaces.TokenService
	Coordinator    *scraper.Coordinator
	Scheduler      *scheduler.Service
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initVault(); err != nil {
		return nil, fmt.Errorf("failed to initialize vault: %w", err)
	}
	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.initTokens()
	app.initScrapers()

	app.Scheduler = scheduler.NewService(
		app.TokenService,
		app.StorageManager.Records(),
		&cfg.Scheduler,
		logger,
	)

	logger.Info().
		Str("environment", cfg.Environment).
		Strs("sources", app.Coordinator.Sources()).
		Msg("Application initialization complete")

	return app, nil
}

// initVault builds the encryption vault from the configured key. Without a
// configured key an ephemeral one is generated, which makes stored secrets
// unreadable after restart.
func (a *App) initVault() error {
	key := a.Config.Vault.Key
	if key == "" {
		generated, err := vault.GenerateKey()
		if err != nil {
			return err
		}
		key = generated
		a.Logger.Warn().Msg("No vault key configured, using an ephemeral key; stored secrets will not survive restart")
	}

	v, err := vault.NewFromBase64(key)
	if err != nil {
		return err
	}
	a.Vault = v
	return nil
}

// initStorage initializes the storage layer (Badger)
func (a *App) initStorage() error {
	manager, err := badger.NewManager(a.Logger, &a.Config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = manager
	a.Credentials = vault.NewCredentialStore(a.Vault, manager.Credentials())

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Path).
		Msg("Storage layer initialized")
	return nil
}

func (a *App) initTokens() {
	providers := make(map[string]tokens.ProviderConfig, len(a.Config.Tokens.Providers))
	for name, cfg := range a.Config.Tokens.Providers {
		providers[name] = tokens.ProviderConfig{
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
		}
	}
	a.TokenService = tokens.NewManager(a.Vault, a.StorageManager.Tokens(), providers, a.Logger)
}

func (a *App) initScrapers() {
	opener := browser.NewOpener(browser.Config{
		UserAgent:  a.Config.Browser.UserAgent,
		WindowW:    a.Config.Browser.WindowW,
		WindowH:    a.Config.Browser.WindowH,
		ChromePath: a.Config.Browser.ChromePath,
	}, a.Logger)

	deps := func() scraper.SourceDeps {
		return scraper.SourceDeps{
			Opener:             opener,
			Credentials:        a.Credentials,
			Limiter:            a.newLimiter(),
			Logger:             a.Logger,
			TypingPace:         time.Duration(a.Config.Scrape.TypingPaceMs) * time.Millisecond,
			SecondFactorBudget: time.Duration(a.Config.Scrape.SecondFactorWaitSec) * time.Second,
		}
	}

	a.Coordinator = scraper.NewCoordinator(
		a.StorageManager.Records(),
		a.Logger,
		scraper.NewLinkedInScraper(deps()),
		scraper.NewCareerPortalScraper(deps()),
		scraper.NewWebSearchScraper(deps()),
	)
}

// newLimiter builds a per-source politeness limiter from the configured
// page-interaction budget.
func (a *App) newLimiter() *rate.Limiter {
	perMinute := a.Config.Scrape.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Acquire runs an acquisition with the configured defaults filled in.
func (a *App) Acquire(ctx context.Context, req models.AcquireRequest) ([]models.Record, error) {
	if req.Quota <= 0 {
		req.Quota = a.Config.Acquire.DefaultQuota
	}
	if len(req.Sources) == 0 {
		req.Sources = a.Config.Acquire.DefaultSources
	}
	if req.Filters.Location == "" {
		req.Filters.Location = a.Config.Acquire.DefaultLocation
	}
	return a.Coordinator.Acquire(ctx, req)
}

// Start launches the background services.
func (a *App) Start() error {
	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Shutdown stops background services and closes storage.
func (a *App) Shutdown() {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Scheduler shutdown failed")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage shutdown failed")
		}
	}
	a.Logger.Info().Msg("Application shutdown complete")
}
