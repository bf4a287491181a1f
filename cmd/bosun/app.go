package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bosunhq/bosun/internal/config"
	"github.com/bosunhq/bosun/internal/db"
	"github.com/bosunhq/bosun/internal/logging"
	"github.com/bosunhq/bosun/internal/statuscache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app is what a command has once its config is loaded and the database is
// reachable.
type app struct {
	cfg    *config.Config
	db     *gorm.DB
	logger *logrus.Logger
	rdb    *redis.Client // nil unless redis is configured and connected
}

// loadApp loads the config and connects to the database. Logs go to the
// command's stderr.
func loadApp(cmd *cobra.Command, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	gdb, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &app{cfg: cfg, db: gdb, logger: logger}, nil
}

// connectRedis dials redis when it is configured. A failed ping is logged
// and leaves the app without redis: the cache and the digest lock are both
// optional.
func (a *app) connectRedis(ctx context.Context) {
	if !a.cfg.Redis.Enabled() {
		return
	}
	rdb, err := statuscache.NewClient(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		logging.LogError(a.logger, "main", "connectRedis", "redis unavailable; continuing without cache", a.cfg.Redis.Addr, err)
		return
	}
	a.rdb = rdb
}

// statusCache returns a cache backed by redis when connected.
func (a *app) statusCache() *statuscache.Cache {
	ttl := time.Duration(a.cfg.Redis.StatusTTLSeconds) * time.Second
	if a.rdb == nil {
		return statuscache.New(nil, ttl, a.logger)
	}
	return statuscache.New(a.rdb, ttl, a.logger)
}

func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
