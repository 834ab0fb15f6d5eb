package cli

import (
	"brevitybot/internal/app"
	"brevitybot/internal/config"
	"brevitybot/internal/logger"
	"brevitybot/internal/platform"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRefreshCmd runs a one-shot catalog refresh against the content source.
func NewRefreshCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch terms from the content source and merge them into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Logger.Env, cfg.Logger.Level)
			defer log.Sync()

			ctx := cmd.Context()
			var redisClient *redis.Client
			if cfg.Redis.Addr != "" {
				redisClient = redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer redisClient.Close()
			}
			var pool *pgxpool.Pool
			if cfg.Postgres.URL != "" {
				pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
				if err != nil {
					return err
				}
				defer pool.Close()
			}

			stores := buildStores(cfg, redisClient, pool)
			catalog := app.NewCatalog(stores.catalog, platform.NewWikiSource(cfg.Source.WikiURL), log)
			added, updated, err := catalog.Refresh(ctx)
			if err != nil {
				return err
			}
			log.Info("catalog refreshed", zap.Int("added", added), zap.Int("updated", updated))
			return nil
		},
	}
}
