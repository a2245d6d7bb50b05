package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"onboarding_flow/src/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStorage runs the same get/set/remove contract against any backend
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "newUserFormData")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "newUserFormData", `{"fullName":"Jane Doe"}`))
	value, err := s.Get(ctx, "newUserFormData")
	require.NoError(t, err)
	assert.Equal(t, `{"fullName":"Jane Doe"}`, value)

	require.NoError(t, s.Set(ctx, "newUserFormData", `{"email":"jane@x.com"}`))
	value, err = s.Get(ctx, "newUserFormData")
	require.NoError(t, err)
	assert.Equal(t, `{"email":"jane@x.com"}`, value)

	require.NoError(t, s.Remove(ctx, "newUserFormData"))
	_, err = s.Get(ctx, "newUserFormData")
	assert.ErrorIs(t, err, ErrNotFound)

	// removing twice is fine
	assert.NoError(t, s.Remove(ctx, "newUserFormData"))
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage()
	exerciseStorage(t, s)

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "b", "2"))
	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "other", "3"))
	assert.Equal(t, []string{"a", "b", "other"}, s.Keys(""))
	assert.Equal(t, []string{"other"}, s.Keys("o"))
}

func TestFileStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "drafts")
	s, err := NewFileStorage(dir)
	require.NoError(t, err)
	exerciseStorage(t, s)

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "cardProgramFormData", `{"programName":"Gold"}`))

	reopened, err := NewFileStorage(dir)
	require.NoError(t, err)
	value, err := reopened.Get(ctx, "cardProgramFormData")
	require.NoError(t, err)
	assert.Equal(t, `{"programName":"Gold"}`, value)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cardProgramFormData.json", entries[0].Name())

	assert.Error(t, s.Set(ctx, "../escape", "{}"))
}

func TestSQLiteStorage(t *testing.T) {
	s, err := NewSQLiteStorage(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	exerciseStorage(t, s)
}

func TestSQLiteStorageSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "drafts.db")

	s, err := NewSQLiteStorage(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "newMerchantFormData", `{"businessName":"Acme"}`))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStorage(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(ctx, "newMerchantFormData")
	require.NoError(t, err)
	assert.Equal(t, `{"businessName":"Acme"}`, value)
}

func TestRedisStorage(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisStorage(context.Background(), model.StorageConfig{
		RedisURL:  "redis://" + mr.Addr(),
		KeyPrefix: "draft:",
		TTL:       time.Hour,
	})
	require.NoError(t, err)
	defer s.Close()

	exerciseStorage(t, s)
}

func TestRedisStorageKeyPrefixAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := NewRedisStorage(ctx, model.StorageConfig{RedisURL: "redis://" + mr.Addr(), KeyPrefix: "onb:", TTL: time.Hour})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "cardProgramFormData", `{}`))
	assert.True(t, mr.Exists("onb:cardProgramFormData"))
	assert.Equal(t, time.Hour, mr.TTL("onb:cardProgramFormData"))

	mr.FastForward(30 * time.Minute)
	_, err = s.Get(ctx, "cardProgramFormData")
	require.NoError(t, err)
	// reading refreshes the TTL
	assert.Equal(t, time.Hour, mr.TTL("onb:cardProgramFormData"))

	ttl, err := s.TTL(ctx, "cardProgramFormData")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)
}

func TestRedisStorageRequiresURL(t *testing.T) {
	_, err := NewRedisStorage(context.Background(), model.StorageConfig{})
	assert.Error(t, err)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, model.StorageConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)

	s, err = Open(ctx, model.StorageConfig{Backend: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "d.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStorage{}, s)
	require.NoError(t, s.Close())

	s, err = Open(ctx, model.StorageConfig{Backend: "FILE", FileDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStorage{}, s)

	_, err = Open(ctx, model.StorageConfig{Backend: "floppy"})
	assert.Error(t, err)
}
