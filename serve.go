package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sitegen/config"
	"sitegen/generate"
	"sitegen/handlers/web"
	"sitegen/logger"
	"sitegen/metrics"
	"sitegen/preview"
	"sitegen/servers"
	"sitegen/storage"
	"sitegen/workspace"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server (generator page, JSON API, metrics)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// APIキーが無い状態では起動しない
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.Init(logger.Options{File: cfg.Log.File, Level: cfg.Log.Level})

	store, err := storage.NewDBStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("データベースの初期化に失敗: %w", err)
	}
	defer store.Close()

	gen, closer, err := newGenerator(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	m := metrics.New()
	svc := generate.NewService(gen, log,
		generate.WithTimeout(cfg.Gemini.Timeout),
		generate.WithUsageStore(store, cfg.Generation.DailyQuota),
		generate.WithMetrics(m),
	)
	spaces := workspace.NewRegistry(m)

	var oauthCfg *oauth2.Config
	if cfg.OAuthEnabled() {
		oauthCfg = &oauth2.Config{
			ClientID:     cfg.Web.ClientID,
			ClientSecret: cfg.Web.ClientSecret,
			RedirectURL:  cfg.Web.RedirectURI,
			Scopes:       cfg.Web.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.Web.AuthURL,
				TokenURL: cfg.Web.TokenURL,
			},
		}
	} else {
		log.Warn("oauth is not configured; sign-in is disabled")
	}
	auth := web.NewAuthHandler(log, web.NewCookieStore(cfg.Web.SessionSecret, cfg.Web.SecureCookies), web.AuthOptions{
		OAuth:       oauthCfg,
		UserInfoURL: cfg.Web.UserInfoURL,
		OnLogout:    spaces.Forget,
	})

	router := web.NewRouter(web.RouterDeps{
		Log:        log,
		Auth:       auth,
		Service:    svc,
		Workspaces: spaces,
		Renderer:   preview.InlineRenderer{},
		PreviewOpts: []preview.Option{
			preview.WithReadyTimeout(cfg.Preview.Timeout),
			preview.WithMetrics(m),
		},
		Metrics:       m,
		Health:        store.PingDB,
		SecureCookies: cfg.Web.SecureCookies,
	})

	jobs := servers.NewJobServer(log)
	if err := jobs.AddJob("prune-usage", cfg.Storage.PruneSchedule, servers.PruneUsageJob(store, cfg.Storage.Retention, log)); err != nil {
		return err
	}
	if err := jobs.AddJob("sweep-workspaces", cfg.Workspace.SweepSchedule, servers.SweepWorkspacesJob(spaces, cfg.Workspace.MaxIdle, log)); err != nil {
		return err
	}

	mgr := servers.NewManager(log)
	mgr.AddServer(jobs)
	mgr.AddServer(servers.NewWebServer(cfg.Web.Addr, router, log))
	if err := mgr.StartAll(); err != nil {
		return err
	}
	log.Info("sitegen is running", "addr", cfg.Web.Addr, "backend", gen.Name(), "model", cfg.Gemini.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	mgr.StopAll()
	return nil
}
