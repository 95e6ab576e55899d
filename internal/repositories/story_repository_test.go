package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveDecrements(t *testing.T) {
	existing := map[string]bool{"u1": true, "u3": true}
	got := liveDecrements(
		map[string]int64{"u1": 2, "ghost": 1, "u3": 0},
		func(id string) bool { return existing[id] },
	)
	assert.Equal(t, map[string]int64{"u1": 2}, got)
}

// Runs against the Firestore emulator when FIRESTORE_EMULATOR_HOST is set.
func TestDeleteWithCounters_OrphanedOwner(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	db, err := firestore.NewClient(ctx, "demo-"+uuid.NewString()[:8])
	require.NoError(t, err)
	defer db.Close()

	created := time.Now().Add(-48 * time.Hour)
	_, err = db.Collection("users").Doc("u1").Set(ctx, map[string]any{"activeStoryCount": 3})
	require.NoError(t, err)
	for id, owner := range map[string]string{"s1": "u1", "s2": "ghost"} {
		_, err = db.Collection("stories").Doc(id).Set(ctx, map[string]any{"userId": owner, "createdAt": created})
		require.NoError(t, err)
	}

	repo := NewStoryRepository(db)
	err = repo.DeleteWithCounters(ctx, []string{"s1", "s2"}, map[string]int64{"u1": 1, "ghost": 1})
	require.NoError(t, err)

	left, err := repo.ListCreatedBefore(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, left)

	snap, err := db.Collection("users").Doc("u1").Get(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, snap.Data()["activeStoryCount"])

	_, err = db.Collection("users").Doc("ghost").Get(ctx)
	assert.True(t, isNotFound(err), "no user document is created for a missing owner")
}
