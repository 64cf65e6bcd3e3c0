package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podbrah/podbrah-backend/wizard"
)

func exerciseStore(t *testing.T, store SessionStore) {
	ctx := context.Background()
	id := uuid.NewString()

	_, err := store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sess := &Session{ID: id, UserID: "user-1", Wizard: wizard.Snapshot{Stage: wizard.StagePresent}}
	require.NoError(t, store.Save(ctx, sess))
	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, wizard.StagePresent, got.Wizard.Stage)

	release, err := store.Acquire(ctx, id)
	require.NoError(t, err)
	_, err = store.Acquire(ctx, id)
	assert.ErrorIs(t, err, wizard.ErrSubmissionInFlight)
	release()
	release2, err := store.Acquire(ctx, id)
	require.NoError(t, err)
	release2()

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore(t *testing.T) {
	exerciseStore(t, NewMemorySessionStore(time.Hour))
}

func TestMemorySessionStoreExpiresSessions(t *testing.T) {
	store := NewMemorySessionStore(10 * time.Millisecond)
	require.NoError(t, store.Save(context.Background(), &Session{ID: "s"}))
	time.Sleep(20 * time.Millisecond)

	_, err := store.Get(context.Background(), "s")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStoreReturnsCopies(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	sess := &Session{ID: "s", Wizard: wizard.Snapshot{Messages: []wizard.Message{{Content: "a"}}}}
	require.NoError(t, store.Save(context.Background(), sess))
	sess.Wizard.Messages[0].Content = "changed"

	got, err := store.Get(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Wizard.Messages[0].Content)
}

func TestRedisSessionStore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	exerciseStore(t, NewRedisSessionStore(client, time.Minute))
}
