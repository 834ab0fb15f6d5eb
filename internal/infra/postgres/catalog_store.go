package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"brevitybot/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CatalogStore persists the term catalog as JSONB, one row per generation
// ("active" and "backup").
type CatalogStore struct {
	pool *pgxpool.Pool
}

func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

func (s *CatalogStore) Replace(ctx context.Context, terms []domain.Term) error {
	data, err := json.Marshal(terms)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin catalog swap: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO catalog (generation, data, updated_at)
		SELECT 'backup', data, now() FROM catalog WHERE generation='active'
		ON CONFLICT (generation) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`); err != nil {
		return fmt.Errorf("rotate backup: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO catalog (generation, data, updated_at) VALUES ('active', $1, now())
		ON CONFLICT (generation) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`, data); err != nil {
		return fmt.Errorf("write active catalog: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *CatalogStore) All(ctx context.Context) ([]domain.Term, error) {
	return s.read(ctx, "active")
}

func (s *CatalogStore) Backup(ctx context.Context) ([]domain.Term, error) {
	return s.read(ctx, "backup")
}

func (s *CatalogStore) read(ctx context.Context, generation string) ([]domain.Term, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM catalog WHERE generation=$1`, generation).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", generation, err)
	}
	var terms []domain.Term
	if err := json.Unmarshal(raw, &terms); err != nil {
		return nil, fmt.Errorf("unmarshal catalog %s: %w", generation, err)
	}
	return terms, nil
}
