package identity

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/pongarena/server/internal/config"
)

const displayNameKeyPrefix = "identity:name:"
const languageKeyPrefix = "identity:lang:"
const identityTTL = 15 * time.Minute

// UserRepository is the durable identity lookup.
type UserRepository interface {
	GetDisplayName(userID int64) (string, error)
	GetLanguage(userID int64) (string, error)
}

type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// Service resolves display names and preferred languages for outgoing
// messages, with a cache in front of the database.
type Service struct {
	repo  UserRepository
	cache CacheRepository // Optional, can be nil
}

func NewService(repo UserRepository, cache CacheRepository) *Service {
	return &Service{repo: repo, cache: cache}
}

// DisplayName resolves the name shown in broadcasts. A user that cannot
// be resolved gets a placeholder rather than failing the broadcast.
func (s *Service) DisplayName(userID int64) string {
	key := cacheKeyInt(displayNameKeyPrefix, userID)
	if name, ok := s.cached(key); ok {
		return name
	}

	name, err := s.repo.GetDisplayName(userID)
	if err != nil {
		log.Printf("[IDENTITY] Display name lookup failed for user %d: %v", userID, err)
		return "Unknown"
	}
	if name == "" {
		return "Unknown"
	}

	s.store(key, name)
	return name
}

// Language resolves the user's preferred language, falling back to the
// configured default when unset or unresolvable.
func (s *Service) Language(userID int64) string {
	key := cacheKeyInt(languageKeyPrefix, userID)
	if lang, ok := s.cached(key); ok {
		return lang
	}

	lang, err := s.repo.GetLanguage(userID)
	if err != nil {
		log.Printf("[IDENTITY] Language lookup failed for user %d: %v", userID, err)
		return config.AppConfig.DefaultLanguage
	}
	if lang == "" {
		return config.AppConfig.DefaultLanguage
	}

	s.store(key, lang)
	return lang
}

func (s *Service) cached(key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	val, err := s.cache.Get(context.Background(), key)
	if err != nil || val == "" {
		return "", false
	}
	return val, true
}

func (s *Service) store(key, value string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(context.Background(), key, value, identityTTL); err != nil {
		log.Printf("[IDENTITY] Cache write failed for %s: %v", key, err)
	}
}

func cacheKeyInt(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}
