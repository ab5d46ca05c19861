package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"

	"vapefinder/internal/adapters/geocode"
	"vapefinder/internal/adapters/observability"
	redisad "vapefinder/internal/adapters/redis"
	"vapefinder/internal/app"
	"vapefinder/internal/domain"
	"vapefinder/internal/shared"
	mysqlrepo "vapefinder/internal/storage/mysql"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	raw := defaultFixtures
	if len(os.Args) > 1 {
		b, err := os.ReadFile(os.Args[1])
		if err != nil {
			log.Fatal().Err(err).Str("file", os.Args[1]).Msg("read fixtures failed")
		}
		raw = b
	}
	fx, err := loadFixtures(raw)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid fixtures")
	}

	log.Info().
		Int("workers", cfg.SeedWorkers).
		Int("cities", len(fx.Cities)).
		Int("stores", len(fx.Stores)).
		Msg("seeder starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	var geo domain.Geocoder
	if cfg.GeocoderBase != "" {
		c, err := geocode.New(cfg.GeocoderBase, cfg.GeocoderRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize geocoder")
		}
		geo = c
	}

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	a := app.NewAdminService(mysqlrepo.New(db), cache, geo, time.Now)
	if err := seed(ctx, a, fx, cfg.SeedWorkers); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Msg("seeding completed")
}
