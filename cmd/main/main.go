package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartapp/internal/cache"
	"smartapp/internal/config"
	inquiry "smartapp/internal/inquiry/service"
	"smartapp/internal/merge"
	reports "smartapp/internal/reports/service"
	"smartapp/internal/store"
	"smartapp/internal/synonyms"
	tickets "smartapp/internal/tickets/service"
	traders "smartapp/internal/traders/service"
	serverhttp "smartapp/server/http"
)

func main() {
	cfg := config.Load()
	logger := config.SetupLogger(cfg)

	syn, err := synonyms.Load(cfg.SynonymsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("synonyms")
	}

	db, err := store.Open(cfg.DBDriver, cfg.DBDSN, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("database handle")
	}
	defer sqlDB.Close()

	var visitCache cache.TTL = cache.NewMemory(cache.DefaultMemorySize, cfg.VisitCacheTTL)
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, using in-process cache")
		} else {
			defer rc.Close()
			visitCache = rc
		}
	}

	datasets := store.NewDatasetRepo(db)
	index := inquiry.NewIndexCache(datasets, syn, logger)
	visits := inquiry.NewVisits(datasets, visitCache, cfg.VisitCacheTTL, syn, logger)
	traderSvc := traders.New(datasets, index, visits, logger)

	r := serverhttp.NewRouter(cfg, logger, serverhttp.Services{
		DB:      sqlDB,
		Inquiry: inquiry.New(index, datasets, visits, syn, logger),
		Tickets: tickets.New(store.NewTicketRepo(db), traderSvc, logger),
		Reports: reports.New(datasets, merge.New(syn), index, logger),
		Traders: traderSvc,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info().Str("addr", cfg.Addr()).Str("db", cfg.DBDriver).Msg("server starting")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info().Msg("bye")
}
