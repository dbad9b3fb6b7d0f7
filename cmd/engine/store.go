package main

import (
	"fmt"
	"path/filepath"

	"gigmaps-engine/internal/config"
	"gigmaps-engine/internal/httpapi"
	"gigmaps-engine/internal/store"
)

const dbFileName = "gigmaps.db"

// openStore picks the KV backend. Only sqlite offers a WAL checkpoint.
func openStore(cfg config.Config, dataDir string) (store.KV, httpapi.Checkpointer, func() error, error) {
	switch cfg.Store.Driver {
	case "redis":
		kv, err := store.NewRedisKV(store.RedisConfig{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			Prefix:   cfg.Store.RedisPrefix,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open redis store: %w", err)
		}
		return kv, nil, kv.Close, nil
	default:
		db, err := store.Open(filepath.Join(dataDir, dbFileName))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store.NewSQLiteKV(db), db, db.Close, nil
	}
}
