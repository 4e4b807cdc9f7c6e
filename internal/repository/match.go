package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/surakarta/internal/entity"
)

const (
	matchKeyPrefix = "match:"
	recentKey      = "matches:recent"

	// RecentLimit is how many match ids the recent list keeps.
	RecentLimit = 50
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	CreateOrUpdate(ctx context.Context, match *entity.Match) error
	GetByID(ctx context.Context, id string) (*entity.Match, error)
	DeleteByID(ctx context.Context, id string) error
	ListRecent(ctx context.Context, limit int) ([]*entity.Match, error)
}

type dbMatch struct {
	client *redis.Client
}

func NewMatchRepository(client *redis.Client) MatchRepository {
	return &dbMatch{
		client: client,
	}
}

// CreateOrUpdate stores match and moves its id to the head of the recent list.
func (that *dbMatch) CreateOrUpdate(ctx context.Context, match *entity.Match) error {
	matchJSON, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("could not marshal match: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, matchKeyPrefix+match.ID, matchJSON, 0)
		pipe.LRem(ctx, recentKey, 0, match.ID)
		pipe.LPush(ctx, recentKey, match.ID)
		pipe.LTrim(ctx, recentKey, 0, RecentLimit-1)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set match: %w", err)
	}

	return nil
}

func (that *dbMatch) GetByID(ctx context.Context, id string) (*entity.Match, error) {
	response, err := that.client.Get(ctx, matchKeyPrefix+id).Result()

	if errors.Is(err, redis.Nil) {
		return &entity.Match{}, ErrMatchNotFound
	}

	if err != nil {
		return &entity.Match{}, fmt.Errorf("failed to get match by id: %w", err)
	}

	var match entity.Match
	if err = json.Unmarshal([]byte(response), &match); err != nil {
		return &entity.Match{}, fmt.Errorf("failed to unmarshal match: %w", err)
	}

	return &match, nil
}

func (that *dbMatch) DeleteByID(ctx context.Context, id string) error {
	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, matchKeyPrefix+id)
		pipe.LRem(ctx, recentKey, 0, id)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete match by id: %w", err)
	}

	return nil
}

// ListRecent returns up to limit matches, newest first.
func (that *dbMatch) ListRecent(ctx context.Context, limit int) ([]*entity.Match, error) {
	if limit <= 0 || limit > RecentLimit {
		limit = RecentLimit
	}

	ids, err := that.client.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recent matches: %w", err)
	}

	matches := make([]*entity.Match, 0, len(ids))
	if len(ids) == 0 {
		return matches, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, matchKeyPrefix+id)
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent matches: %w", err)
	}

	for _, value := range values {
		// the match was deleted after its id was listed
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var match entity.Match
		if err = json.Unmarshal([]byte(raw), &match); err != nil {
			return nil, fmt.Errorf("failed to unmarshal match: %w", err)
		}

		matches = append(matches, &match)
	}

	return matches, nil
}
