package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"brevitybot/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	catalogActiveKey = "catalog:active"
	catalogBackupKey = "catalog:backup"
)

// CatalogStore keeps the term catalog as JSON blobs: the active set plus the
// previous generation for rollback.
type CatalogStore struct {
	client *redis.Client
}

func NewCatalogStore(client *redis.Client) *CatalogStore {
	return &CatalogStore{client: client}
}

func (s *CatalogStore) Replace(ctx context.Context, terms []domain.Term) error {
	data, err := json.Marshal(terms)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	prev, err := s.client.Get(ctx, catalogActiveKey).Bytes()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read active catalog: %w", err)
	}

	pipe := s.client.TxPipeline()
	if prev != nil {
		pipe.Set(ctx, catalogBackupKey, prev, 0)
	}
	pipe.Set(ctx, catalogActiveKey, data, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("swap catalog: %w", err)
	}
	return nil
}

func (s *CatalogStore) All(ctx context.Context) ([]domain.Term, error) {
	return s.read(ctx, catalogActiveKey)
}

func (s *CatalogStore) Backup(ctx context.Context) ([]domain.Term, error) {
	return s.read(ctx, catalogBackupKey)
}

func (s *CatalogStore) read(ctx context.Context, key string) ([]domain.Term, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	var terms []domain.Term
	if err := json.Unmarshal(data, &terms); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return terms, nil
}
