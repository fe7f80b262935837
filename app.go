package main

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"

	"github.com/mahipat62/khata-book/internal/backup"
	"github.com/mahipat62/khata-book/internal/config"
	"github.com/mahipat62/khata-book/internal/kvstore"
	"github.com/mahipat62/khata-book/internal/schema"
	"github.com/mahipat62/khata-book/internal/session"
	"github.com/mahipat62/khata-book/internal/sheets"
	"github.com/mahipat62/khata-book/internal/store"
)

// app bundles the wired-up service stack for one command invocation.
// Commands build it, use what they need, and Close it on the way out.
type app struct {
	cfg       *config.Config
	kv        *kvstore.SQLite
	session   *session.Manager
	client    *sheets.Client
	resolver  *schema.Resolver
	store     *store.Store
	engine    *backup.Engine
	scheduler *backup.Scheduler
}

// newApp constructs the full stack from the resolved configuration and
// restores any persisted session. Callers must Close the returned app.
func newApp(ctx context.Context) (*app, error) {
	cfg := resolvedCfg
	logger := buildLogger()

	dataDir := cfg.App.DataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}

	kv, err := kvstore.Open(ctx, config.StatePath(dataDir), logger)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}

	provider := session.NewGoogleProvider(session.ProviderConfig{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Scopes:       cfg.Auth.Scopes,
		TokenInfoURL: cfg.API.TokenInfoURL,
		RevokeURL:    cfg.API.RevokeURL,
		UserInfoURL:  cfg.API.UserInfoURL,
		OpenURL:      openBrowser,
	}, httpClient, logger)

	mgr := session.NewManager(kv, provider, logger)
	if err := mgr.Initialize(ctx); err != nil {
		kv.Close()

		return nil, fmt.Errorf("restoring session: %w", err)
	}

	client := sheets.NewClient(sheets.BaseURLs{
		Sheets: cfg.API.SheetsBaseURL,
		Drive:  cfg.API.DriveBaseURL,
		Upload: cfg.API.UploadBaseURL,
	}, httpClient, mgr, logger)
	client.SetUserAgent(cfg.API.UserAgent)

	resolver := schema.NewResolver(client, logger)
	st := store.New(client, resolver, kv, cfg.App.BookPrefix, logger)

	engine := backup.NewEngine(client, cfg.App.Name, cfg.App.FolderName, cfg.App.BackupFile, logger)
	scheduler := backup.NewScheduler(kv, engine, logger)

	return &app{
		cfg:       cfg,
		kv:        kv,
		session:   mgr,
		client:    client,
		resolver:  resolver,
		store:     st,
		engine:    engine,
		scheduler: scheduler,
	}, nil
}

func (a *app) Close() error {
	return a.kv.Close()
}

// requireAuth fails fast with a friendly message when no valid session is
// available, instead of letting the first API call surface a 401.
func (a *app) requireAuth() error {
	if !a.session.Authenticated() {
		return fmt.Errorf("not signed in — run 'khata login' first")
	}

	return nil
}

// openBrowser launches the platform browser at url.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
