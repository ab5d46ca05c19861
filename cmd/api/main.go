package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"

	"vapefinder/internal/adapters/geocode"
	server "vapefinder/internal/adapters/http_server"
	"vapefinder/internal/adapters/observability"
	redisad "vapefinder/internal/adapters/redis"
	"vapefinder/internal/app"
	"vapefinder/internal/domain"
	"vapefinder/internal/shared"
	mysqlrepo "vapefinder/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	var geo domain.Geocoder
	if cfg.GeocoderBase != "" {
		c, err := geocode.New(cfg.GeocoderBase, cfg.GeocoderRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize geocoder")
		}
		geo = c
	}

	loc, err := time.LoadLocation(cfg.DefaultTimeZone)
	if err != nil {
		log.Warn().Err(err).Str("tz", cfg.DefaultTimeZone).Msg("default time zone unknown, using UTC")
		loc = time.UTC
	}

	q := app.NewQueryService(repo, cache, cfg.CacheTTL, time.Now, loc)
	a := app.NewAdminService(repo, cache, geo, time.Now)

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Q:           q,
		A:           a,
		Health:      repo.Ping,
		ReviewLimit: cfg.ReviewRateLimit,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Msg("db close failed")
	}
}
