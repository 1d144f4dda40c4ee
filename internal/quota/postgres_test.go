package quota

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set QUOTA_TEST_DATABASE_URL to run against a real database.
func openTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("QUOTA_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("QUOTA_TEST_DATABASE_URL not set")
	}
	store, err := OpenPostgres(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStore_IncrementIfUnder(t *testing.T) {
	store := openTestPostgres(t)
	ctx := context.Background()
	identity := "test-" + uuid.NewString()

	for i := 1; i <= 3; i++ {
		count, ok, err := store.IncrementIfUnder(ctx, identity, 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, count)
	}

	_, ok, err := store.IncrementIfUnder(ctx, identity, 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresStore_WindowResets(t *testing.T) {
	store := openTestPostgres(t)
	ctx := context.Background()
	identity := "test-" + uuid.NewString()

	now := time.Now()
	store.now = func() time.Time { return now }

	_, ok, err := store.IncrementIfUnder(ctx, identity, 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = store.IncrementIfUnder(ctx, identity, 1, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	now = now.Add(2 * time.Minute)
	count, ok, err := store.IncrementIfUnder(ctx, identity, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, count)
}

func TestPostgresStore_Concurrent(t *testing.T) {
	store := openTestPostgres(t)
	identity := "test-" + uuid.NewString()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := store.IncrementIfUnder(context.Background(), identity, 25, time.Hour)
			if err == nil && ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 25, allowed)
}
