package main

import (
	"context"
	"flag"

	"github.com/manobala/peer-chat/internal/cache"
	"github.com/manobala/peer-chat/internal/config"
	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/repository"
	"github.com/manobala/peer-chat/internal/seed"
	"github.com/manobala/peer-chat/pkg/database"
	pkglog "github.com/manobala/peer-chat/pkg/log"
)

func main() {
	devUsers := flag.Bool("dev-users", false, "also create a development user and expert")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}
	cfg.Log.ServiceName = "peer-chat-seed"
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	db, err := database.New(cfg.Database.ToDatabaseConfig(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}

	// A running server may hold the room listing in Redis.
	var listing cache.Cache = cache.NopCache{}
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis, "peerchat")
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, cached room listing left to expire")
		} else {
			listing = redisCache
		}
	}
	defer listing.Close()

	ctx := pkglog.WithLogger(context.Background(), logger)
	created, err := seed.Rooms(ctx, repository.NewGormForumRepository(db), listing)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to seed rooms")
	}
	logger.Info().Int("created", created).Int("total", len(seed.DefaultRooms)).Msg("rooms seeded")

	if *devUsers {
		if err := seed.Users(ctx, repository.NewGormUserDirectory(db), seed.DevUsers); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed users")
		}
		logger.Info().Int("users", len(seed.DevUsers)).Msg("development users seeded")
	}
}
