package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"brevitybot/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CommunityConfigStore keeps posting configuration in postgres so community
// enrollment survives restarts and cache loss.
type CommunityConfigStore struct {
	pool *pgxpool.Pool
}

func NewCommunityConfigStore(pool *pgxpool.Pool) *CommunityConfigStore {
	return &CommunityConfigStore{pool: pool}
}

func (s *CommunityConfigStore) Put(ctx context.Context, cfg domain.CommunityConfig) error {
	lastPosted := sql.NullTime{Time: cfg.LastPostedAt, Valid: !cfg.LastPostedAt.IsZero()}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO community_configs (community_id, channel_id, post_interval_seconds, last_posted_at, enabled)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (community_id) DO UPDATE SET
			channel_id=EXCLUDED.channel_id,
			post_interval_seconds=EXCLUDED.post_interval_seconds,
			last_posted_at=EXCLUDED.last_posted_at,
			enabled=EXCLUDED.enabled`,
		cfg.CommunityID, cfg.ChannelID, int64(cfg.PostInterval/time.Second), lastPosted, cfg.Enabled)
	if err != nil {
		return fmt.Errorf("put community %s: %w", cfg.CommunityID, err)
	}
	return nil
}

func (s *CommunityConfigStore) Get(ctx context.Context, communityID string) (domain.CommunityConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT community_id, channel_id, post_interval_seconds, last_posted_at, enabled
		FROM community_configs WHERE community_id=$1`, communityID)
	cfg, err := scanConfig(row)
	if err == pgx.ErrNoRows {
		return domain.CommunityConfig{}, domain.ErrCommunityNotFound
	}
	if err != nil {
		return domain.CommunityConfig{}, fmt.Errorf("get community %s: %w", communityID, err)
	}
	return cfg, nil
}

func (s *CommunityConfigStore) List(ctx context.Context) ([]domain.CommunityConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT community_id, channel_id, post_interval_seconds, last_posted_at, enabled
		FROM community_configs ORDER BY community_id`)
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	defer rows.Close()

	var configs []domain.CommunityConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan community: %w", err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func (s *CommunityConfigStore) Delete(ctx context.Context, communityID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM community_configs WHERE community_id=$1`, communityID)
	if err != nil {
		return fmt.Errorf("delete community %s: %w", communityID, err)
	}
	return nil
}

func scanConfig(row pgx.Row) (domain.CommunityConfig, error) {
	var (
		cfg        domain.CommunityConfig
		intervalS  int64
		lastPosted sql.NullTime
	)
	if err := row.Scan(&cfg.CommunityID, &cfg.ChannelID, &intervalS, &lastPosted, &cfg.Enabled); err != nil {
		return domain.CommunityConfig{}, err
	}
	cfg.PostInterval = time.Duration(intervalS) * time.Second
	if lastPosted.Valid {
		cfg.LastPostedAt = lastPosted.Time
	}
	return cfg, nil
}
