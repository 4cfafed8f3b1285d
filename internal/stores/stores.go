// Package stores opens the configured persistence backend and hands out
// its store implementations.
package stores

import (
	"context"
	"fmt"

	"moviehub/internal/auth"
	"moviehub/internal/mongostore"
	"moviehub/internal/movies"
	"moviehub/internal/reviews"
	"moviehub/internal/watchlist"
	"moviehub/pkg/database"
	"moviehub/pkg/utils"
)

type Stores struct {
	Backend   string
	Location  string
	Users     auth.Store
	Movies    movies.Store
	Reviews   reviews.Store
	Watchlist watchlist.Store

	ping  func(ctx context.Context) error
	close func() error
}

func (s *Stores) Ping(ctx context.Context) error { return s.ping(ctx) }

func (s *Stores) Close() error { return s.close() }

// Open connects to cfg.Backend ("sqlite" or "mongo") and prepares its
// schema or indexes.
func Open(ctx context.Context, cfg utils.StoreConfig) (*Stores, error) {
	switch cfg.Backend {
	case "", "sqlite":
		dbCfg := database.DefaultConfig()
		db, err := database.Open(dbCfg)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &Stores{
			Backend:   "sqlite",
			Location:  dbCfg.Path,
			Users:     auth.NewRepo(db),
			Movies:    movies.NewRepo(db),
			Reviews:   reviews.NewRepo(db),
			Watchlist: watchlist.NewRepo(db),
			ping:      db.PingContext,
			close:     db.Close,
		}, nil

	case "mongo":
		client, db, err := database.OpenMongo(ctx, database.MongoConfig{URI: cfg.MongoURI, Database: cfg.MongoDB})
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &Stores{
			Backend:   "mongo",
			Location:  cfg.MongoDB,
			Users:     mongostore.NewUsers(db),
			Movies:    mongostore.NewMovies(db),
			Reviews:   mongostore.NewReviews(db),
			Watchlist: mongostore.NewWatchlist(db),
			ping:      func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:     func() error { return client.Disconnect(context.Background()) },
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q (want sqlite or mongo)", cfg.Backend)
	}
}
