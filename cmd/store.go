package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/postgrest"
)

func initStore(ctx context.Context) (store.Gateway, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}

	switch cfg.Store.Driver {
	case "postgrest":
		client := postgrest.NewClient(cfg.PostgREST.URL, cfg.PostgREST.ServiceKey,
			postgrest.WithTimeout(time.Duration(cfg.PostgREST.TimeoutSecs)*time.Second))
		return store.NewPostgREST(client, cfg.Store.ChunkSize), nil
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.ChunkSize, nil)
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadgen.db"
		}
		st, err := store.NewSQLite(dsn, cfg.Store.ChunkSize)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate sqlite store")
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
