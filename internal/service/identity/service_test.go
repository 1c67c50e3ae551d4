package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pongarena/server/internal/config"
)

type fakeUserRepo struct {
	names     map[int64]string
	languages map[int64]string
	err       error
	lookups   int
}

func (f *fakeUserRepo) GetDisplayName(userID int64) (string, error) {
	f.lookups++
	if f.err != nil {
		return "", f.err
	}
	return f.names[userID], nil
}

func (f *fakeUserRepo) GetLanguage(userID int64) (string, error) {
	f.lookups++
	if f.err != nil {
		return "", f.err
	}
	return f.languages[userID], nil
}

type fakeCache struct {
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func init() {
	config.AppConfig = &config.Config{DefaultLanguage: "pt"}
}

func TestDisplayNameCachesLookups(t *testing.T) {
	repo := &fakeUserRepo{names: map[int64]string{1: "Alice"}}
	svc := NewService(repo, newFakeCache())

	assert.Equal(t, "Alice", svc.DisplayName(1))
	assert.Equal(t, "Alice", svc.DisplayName(1))
	assert.Equal(t, 1, repo.lookups, "second call must be served from cache")
}

func TestDisplayNameFallsBackToPlaceholder(t *testing.T) {
	svc := NewService(&fakeUserRepo{err: errors.New("db down")}, nil)
	assert.Equal(t, "Unknown", svc.DisplayName(1))

	svc = NewService(&fakeUserRepo{names: map[int64]string{}}, nil)
	assert.Equal(t, "Unknown", svc.DisplayName(1))
}

func TestLanguageFallsBackToDefault(t *testing.T) {
	svc := NewService(&fakeUserRepo{err: errors.New("db down")}, nil)
	assert.Equal(t, "pt", svc.Language(1))

	svc = NewService(&fakeUserRepo{languages: map[int64]string{1: "es"}}, nil)
	assert.Equal(t, "es", svc.Language(1))
}

func TestServiceWorksWithoutCache(t *testing.T) {
	repo := &fakeUserRepo{names: map[int64]string{1: "Alice"}}
	svc := NewService(repo, nil)

	assert.Equal(t, "Alice", svc.DisplayName(1))
	assert.Equal(t, "Alice", svc.DisplayName(1))
	assert.Equal(t, 2, repo.lookups)
}
