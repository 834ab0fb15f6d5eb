package cli

import (
	"fmt"
	"time"

	"brevitybot/internal/config"
	"brevitybot/internal/domain"
	"brevitybot/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewCommunityCmd manages community posting configs from the command line.
func NewCommunityCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "community",
		Short: "Manage community posting configuration",
	}

	var (
		channelID string
		interval  time.Duration
	)
	set := &cobra.Command{
		Use:   "set <communityId>",
		Short: "Create or update a community's posting config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if channelID == "" {
				return fmt.Errorf("--channel is required")
			}
			return withConfigStore(cmd, *configPath, func(stores storeSet, log *zap.Logger) error {
				cfg := domain.CommunityConfig{
					CommunityID:  args[0],
					ChannelID:    channelID,
					PostInterval: interval,
					Enabled:      true,
				}
				if err := stores.configs.Put(cmd.Context(), cfg); err != nil {
					return err
				}
				log.Info("community configured",
					zap.String("community", cfg.CommunityID),
					zap.String("channel", cfg.ChannelID),
					zap.Duration("interval", cfg.PostInterval))
				return nil
			})
		},
	}
	set.Flags().StringVar(&channelID, "channel", "", "destination channel id")
	set.Flags().DurationVar(&interval, "interval", 24*time.Hour, "posting interval")

	disable := &cobra.Command{
		Use:   "disable <communityId>",
		Short: "Pause scheduled posting for a community",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfigStore(cmd, *configPath, func(stores storeSet, log *zap.Logger) error {
				cfg, err := stores.configs.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				cfg.Enabled = false
				if err := stores.configs.Put(cmd.Context(), cfg); err != nil {
					return err
				}
				log.Info("community disabled", zap.String("community", args[0]))
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <communityId>",
		Short: "Delete a community's posting config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConfigStore(cmd, *configPath, func(stores storeSet, log *zap.Logger) error {
				if err := stores.configs.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				log.Info("community removed", zap.String("community", args[0]))
				return nil
			})
		},
	}

	cmd.AddCommand(set, disable, remove)
	return cmd
}

func withConfigStore(cmd *cobra.Command, configPath string, fn func(storeSet, *zap.Logger) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Logger.Env, cfg.Logger.Level)
	defer log.Sync()

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
		pool, err = pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}
	return fn(buildStores(cfg, redisClient, pool), log)
}
