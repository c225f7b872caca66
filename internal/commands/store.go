package commands

import (
	"context"
	"fmt"

	"github.com/giihelpdesk/helpdesk-client/config"
	"github.com/giihelpdesk/helpdesk-client/session"
	"github.com/giihelpdesk/helpdesk-client/session/filestore"
	"github.com/giihelpdesk/helpdesk-client/session/memstore"
	"github.com/giihelpdesk/helpdesk-client/session/redisstore"
	"github.com/giihelpdesk/helpdesk-client/session/sqlitestore"
)

// openStore returns the session store selected by cfg.Backend.
func openStore(ctx context.Context, cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		path := cfg.File.Path
		if path == "" {
			var err error
			if path, err = filestore.DefaultPath(cfg.Key); err != nil {
				return nil, err
			}
		}
		return filestore.New(path)
	case config.BackendMemory:
		return memstore.New(cfg.Key)
	case config.BackendRedis:
		return redisstore.New(ctx, &redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			Slot:     cfg.Key,
		})
	case config.BackendSQLite:
		return sqlitestore.New(ctx, cfg.SQLite.Path, cfg.Key)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
