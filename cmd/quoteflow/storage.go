package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/config"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker"
	storagediskv "github.com/tailored-agentic-units/quoteflow/orchestrate/tracker/storage/diskv"
	storagefile "github.com/tailored-agentic-units/quoteflow/orchestrate/tracker/storage/file"
	storagemysql "github.com/tailored-agentic-units/quoteflow/orchestrate/tracker/storage/mysql"
	storageredis "github.com/tailored-agentic-units/quoteflow/orchestrate/tracker/storage/redis"
)

func openStore(ctx context.Context, cfg config.StoreConfig) (tracker.Store, error) {
	switch cfg.Kind {
	case "", "memory":
		return tracker.GetStore("memory")
	case "file":
		if cfg.Path == "" {
			return nil, errors.New("file store requires a path")
		}
		return storagefile.New(cfg.Path), nil
	case "diskv":
		if cfg.Path == "" {
			return nil, errors.New("diskv store requires a path")
		}
		return storagediskv.New(cfg.Path), nil
	case "mysql":
		if cfg.DSN == "" {
			return nil, errors.New("mysql store requires a dsn")
		}
		return storagemysql.New(storagemysql.WithDSN(cfg.DSN))
	case "redis":
		if cfg.Addr == "" {
			return nil, errors.New("redis store requires an addr")
		}
		return storageredis.New(ctx, storageredis.Options{
			Client: redis.NewClient(&redis.Options{Addr: cfg.Addr}),
			Prefix: cfg.Prefix,
			TTL:    cfg.TTL.Std(),
		})
	default:
		return nil, fmt.Errorf("unknown store kind: %s", cfg.Kind)
	}
}
