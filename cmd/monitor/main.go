package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"agrimarket/internal/client/kamis"
	"agrimarket/internal/config"
	cronrunner "agrimarket/internal/cron"
	"agrimarket/internal/db"
	"agrimarket/internal/handler"
	"agrimarket/internal/logger"
	"agrimarket/internal/pipeline"
	gormstore "agrimarket/internal/store/gorm"
)

func main() {
	cfgPath := os.Getenv("AM_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("AM_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	source := kamis.NewClient(cfg.Source)
	store := gormstore.New(dbConn.Gorm, logger)

	pipelines := make(map[string]*pipeline.Pipeline)
	for name, pc := range cfg.Pipelines {
		if !pc.Enabled {
			logger.Info("pipeline disabled", zap.String("family", name))
			continue
		}
		pipelines[name] = &pipeline.Pipeline{
			Family:       pipeline.FamilyFromConfig(name, pc),
			Source:       source,
			Store:        store,
			Logger:       logger,
			MaxPages:     cfg.Source.MaxPages,
			PollInterval: cfg.Run.PollInterval,
			LoadTimeout:  cfg.Run.LoadTimeout,
		}
	}
	if len(pipelines) == 0 {
		logger.Fatal("no pipelines enabled")
	}

	runAll := func(ctx context.Context) bool {
		names := make([]string, 0, len(pipelines))
		for name := range pipelines {
			names = append(names, name)
		}
		sort.Strings(names)
		ok := true
		for _, name := range names {
			if _, err := pipelines[name].Run(ctx); err != nil {
				logger.Error("ingest run failed", zap.String("family", name), zap.Error(err))
				ok = false
			}
		}
		return ok
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Without cron the binary is a one-shot batch job: run every family once
	// and exit non-zero if any family failed.
	if !cfg.Cron.Enabled {
		if !runAll(baseCtx) {
			logger.Sync()
			db.Close(dbConn)
			os.Exit(1)
		}
		return
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	ingestHandler := &handler.IngestHandler{
		Pipelines: pipelines,
		Store:     store,
		Logger:    logger,
	}
	ingestHandler.Register(engine)

	cronRunner := cronrunner.New(logger, baseCtx)
	if _, err := cronRunner.Add(cfg.Cron.Schedule, func(ctx context.Context) {
		runAll(ctx)
	}); err != nil {
		logger.Warn("failed to register ingest cron", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-baseCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}
