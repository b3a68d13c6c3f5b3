package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solana-signal-trader/internal/config"
	"solana-signal-trader/internal/storage"
	chstore "solana-signal-trader/internal/storage/clickhouse"
	"solana-signal-trader/internal/storage/file"
	"solana-signal-trader/internal/storage/memory"
	"solana-signal-trader/internal/storage/migrations"
	pgstore "solana-signal-trader/internal/storage/postgres"
	redisstore "solana-signal-trader/internal/storage/redis"
)

// stores holds every storage implementation selected by configuration.
type stores struct {
	journal      storage.TradeJournal
	observations storage.PriceObservationStore
	priceCache   storage.PriceCache
	watchList    storage.WatchListStore
	locker       storage.Locker

	closers []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// createStores connects the configured backends. useMemory forces every
// store in-process.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool, log logrus.FieldLogger) (*stores, error) {
	s := &stores{
		journal:      memory.NewTradeJournal(),
		observations: memory.NewPriceObservationStore(),
		priceCache:   memory.NewPriceCache(),
		watchList:    memory.NewWatchListStore(),
		locker:       memory.NewLocker(),
	}
	if useMemory {
		log.Info("using in-memory storage")
		return s, nil
	}

	if err := s.openJournal(ctx, cfg.Storage); err != nil {
		s.close()
		return nil, err
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouse(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		s.closers = append(s.closers, func() { conn.Close() })
		s.observations = chstore.NewPriceObservationStore(conn)
	}

	if cfg.Redis.Enabled {
		client, err := redisstore.New(ctx, redisstore.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			s.close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		s.closers = append(s.closers, func() { client.Close() })
		s.priceCache = redisstore.NewPriceCache(client)
		s.locker = redisstore.NewLockManager(client)
		if cfg.Storage.WatchList == "redis" {
			s.watchList = redisstore.NewWatchListStore(client)
		}
	}

	if cfg.Storage.WatchList == "file" {
		s.watchList = file.NewWatchListStore(cfg.Storage.WatchListPath)
	}

	log.WithFields(logrus.Fields{
		"journal":    cfg.Storage.Journal,
		"watch_list": cfg.Storage.WatchList,
		"clickhouse": cfg.Storage.ClickhouseDSN != "",
		"redis":      cfg.Redis.Enabled,
	}).Info("storage ready")
	return s, nil
}

func (s *stores) openJournal(ctx context.Context, cfg config.StorageConfig) error {
	switch cfg.Journal {
	case "file":
		s.journal = file.NewTradeJournal(cfg.JournalPath)
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN, pgstore.PoolOptions{
			MaxConns:        int32(cfg.PostgresMaxConns),
			MaxConnIdleTime: 5 * time.Minute,
			ConnectTimeout:  10 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, pool.Close)
		if err := migrations.RunPostgres(ctx, pool); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		s.journal = pgstore.NewTradeJournal(pool)
	}
	return nil
}
