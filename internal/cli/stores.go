package cli

import (
	"time"

	"brevitybot/internal/app"
	"brevitybot/internal/config"
	"brevitybot/internal/infra/memory"
	pgstore "brevitybot/internal/infra/postgres"
	redisstore "brevitybot/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

type storeSet struct {
	catalog app.CatalogStore
	configs app.CommunityConfigStore
	used    app.UsedSetStore
	votes   app.VoteStore
	scores  app.ScoreHistoryStore
}

// buildStores picks implementations by what is configured: postgres for the
// durable catalog, configs, and score archive when available, redis for
// shared state, memory otherwise. Votes stay in redis or memory; they live
// only until the session is summarized.
func buildStores(cfg config.Config, redisClient *redis.Client, pool *pgxpool.Pool) storeSet {
	stores := storeSet{
		catalog: memory.NewCatalogStore(),
		configs: memory.NewCommunityConfigStore(),
		used:    memory.NewUsedSetStore(),
		votes:   memory.NewVoteStore(),
		scores:  memory.NewScoreHistoryStore(),
	}
	if redisClient != nil {
		stores.catalog = redisstore.NewCatalogStore(redisClient)
		stores.configs = redisstore.NewCommunityConfigStore(redisClient)
		stores.used = redisstore.NewUsedSetStore(redisClient)
		stores.votes = redisstore.NewVoteStore(redisClient, config.Duration(cfg.Quiz.VoteTTL, 30*time.Minute))
		stores.scores = redisstore.NewScoreHistoryStore(redisClient)
	}
	if pool != nil {
		stores.catalog = pgstore.NewCatalogStore(pool)
		stores.configs = pgstore.NewCommunityConfigStore(pool)
		stores.scores = pgstore.NewScoreHistoryStore(pool)
	}
	return stores
}
