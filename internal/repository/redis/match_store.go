package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pongarena/server/internal/domain"
	"github.com/redis/go-redis/v9"
)

const matchKeyPrefix = "match:"
const matchKeySuffix = ":state"

// Matches that stop being touched are reaped by the cleanup worker; the
// TTL is a backstop for a crashed process leaving keys behind.
const matchStateTTL = 24 * time.Hour

// MatchStore keeps one serialized MatchState per match id. It provides no
// transactional semantics; the match room owning the id serializes every
// read-modify-write sequence.
type MatchStore struct {
	client *redis.Client
}

func NewMatchStore(client *redis.Client) *MatchStore {
	return &MatchStore{client: client}
}

func matchKey(matchID int64) string {
	return matchKeyPrefix + strconv.FormatInt(matchID, 10) + matchKeySuffix
}

// Get returns the stored state for matchID. The second return is false
// when no state exists.
func (s *MatchStore) Get(ctx context.Context, matchID int64) (*domain.MatchState, bool, error) {
	data, err := s.client.Get(ctx, matchKey(matchID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("match store get %d: %w", matchID, err)
	}

	var state domain.MatchState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, fmt.Errorf("match store decode %d: %w", matchID, err)
	}
	return &state, true, nil
}

func (s *MatchStore) Set(ctx context.Context, matchID int64, state *domain.MatchState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("match store encode %d: %w", matchID, err)
	}
	if err := s.client.Set(ctx, matchKey(matchID), data, matchStateTTL).Err(); err != nil {
		return fmt.Errorf("match store set %d: %w", matchID, err)
	}
	return nil
}

func (s *MatchStore) Delete(ctx context.Context, matchID int64) error {
	if err := s.client.Del(ctx, matchKey(matchID)).Err(); err != nil {
		return fmt.Errorf("match store delete %d: %w", matchID, err)
	}
	return nil
}

// ActiveMatchIDs scans for every stored match id, for the cleanup sweep.
func (s *MatchStore) ActiveMatchIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	iter := s.client.Scan(ctx, 0, matchKeyPrefix+"*"+matchKeySuffix, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw := strings.TrimSuffix(strings.TrimPrefix(key, matchKeyPrefix), matchKeySuffix)
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("match store scan: %w", err)
	}
	return ids, nil
}
