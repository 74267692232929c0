package auth

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/eshaffer321/retail-go/internal/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_LayoutAndPermissions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "creds", "session.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(ctx, &types.Credentials{
		AccessToken:  "a",
		RefreshToken: "r",
		User:         &types.User{ID: 3, Username: "clerk"},
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "a", doc[AccessTokenKey])
	assert.Equal(t, "r", doc[RefreshTokenKey])
	assert.Contains(t, doc, UserKey)
}

func TestFileStore_ClearMissingIsOK(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "none.json"))
	assert.NoError(t, store.Clear(context.Background()))
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("RETAIL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("RETAIL_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	store := NewRedisStore(rdb, "retail-go-test:", 0)
	defer store.Clear(ctx)

	require.NoError(t, store.Save(ctx, &types.Credentials{
		AccessToken:  "a",
		RefreshToken: "r",
		User:         &types.User{ID: 9, Username: "manager"},
	}))

	creds, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "a", creds.AccessToken)
	assert.Equal(t, "r", creds.RefreshToken)
	assert.Equal(t, "manager", creds.User.Username)

	require.NoError(t, store.Clear(ctx))
	creds, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)
}
