package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pokerjest/aria2deck/internal/api"
	"github.com/pokerjest/aria2deck/internal/config"
	"github.com/pokerjest/aria2deck/internal/db"
	"github.com/pokerjest/aria2deck/internal/downloader"
	"github.com/pokerjest/aria2deck/internal/event"
	"github.com/pokerjest/aria2deck/internal/launcher"
	"github.com/pokerjest/aria2deck/internal/logger"
	"github.com/pokerjest/aria2deck/internal/scheduler"
	"github.com/pokerjest/aria2deck/internal/service"
	"github.com/pokerjest/aria2deck/internal/session"
	"github.com/pokerjest/aria2deck/internal/worker"
	"github.com/rs/zerolog/log"
)

func main() {
	// 1. Load Config
	if err := config.LoadConfig("."); err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg := config.AppConfig

	// 2. Setup logging and Gin mode
	logger.Setup(cfg.Log.Level, cfg.Server.Mode)
	gin.SetMode(cfg.Server.Mode)

	absPath, _ := filepath.Abs(cfg.Database.Path)
	log.Info().Str("path", absPath).Msg("Initializing database")
	db.InitDB(cfg.Database.Path)
	defer db.CloseDB()

	// 3. 选择服务器配置：数据库中的活动配置优先，否则使用配置文件
	profiles := service.NewProfileStore(db.DB)
	name, ep, opts := defaultServer(cfg)
	if p, err := profiles.Active(); err == nil {
		pName, pEp, pOpts := service.FromProfile(*p)
		if verr := pOpts.Validate(); verr != nil {
			log.Warn().Err(verr).Str("profile", pName).Msg("Active profile has invalid options, using config defaults")
		} else {
			name, ep, opts = pName, pEp, pOpts
			log.Info().Str("profile", name).Msg("Using active server profile")
		}
	} else if !errors.Is(err, service.ErrNoActiveProfile) {
		log.Warn().Err(err).Msg("Failed to load active profile, using config defaults")
	}

	// 4. Optionally start a local aria2c
	if cfg.Aria2.Managed {
		l := launcher.NewManager(cfg.Aria2.Binary, filepath.Dir(cfg.Database.Path))
		if err := l.StartAll(launcher.Daemon{Endpoint: ep, Dir: opts.Dir}); err != nil {
			log.Error().Err(err).Msg("Failed to start aria2c")
		}
		defer l.StopAll()
	}

	client := downloader.NewAria2Client(ep,
		downloader.WithTimeout(cfg.Aria2.Timeout),
		downloader.WithRateLimit(cfg.Aria2.RateLimit),
		downloader.WithPageSize(cfg.Aria2.PageSize),
	)
	sess := session.New(name, ep, opts, session.WithHandler(client), session.WithBus(event.GlobalBus))

	recorder := worker.NewHistoryRecorder(db.DB, event.GlobalBus)
	recorder.Start()
	defer recorder.Stop()

	sch := scheduler.NewManager(sess, cfg.Sync.TasksInterval, cfg.Sync.ConnectionInterval)
	sch.Start()
	defer sch.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	api.InitRoutes(r, &api.Deps{Session: sess, Profiles: profiles, DB: db.DB, Bus: event.GlobalBus})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

func defaultServer(cfg *config.Config) (string, downloader.Endpoint, session.Options) {
	ep := downloader.Endpoint{
		Address: cfg.Aria2.Address,
		Port:    cfg.Aria2.Port,
		Token:   cfg.Aria2.Token,
		HTTPS:   cfg.Aria2.HTTPS,
	}
	opts := session.Options{
		Dir:                     cfg.Options.Dir,
		MaxConcurrentDownloads:  cfg.Options.MaxConcurrentDownloads,
		MaxOverallDownloadLimit: cfg.Options.MaxOverallDownloadLimit,
		MaxOverallUploadLimit:   cfg.Options.MaxOverallUploadLimit,
	}
	return cfg.Aria2.Name, ep, opts
}
