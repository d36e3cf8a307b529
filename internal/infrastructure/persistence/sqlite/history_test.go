package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadout-dev/loadout/internal/application/dto"
)

func TestHistoryStore_RecordAndRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, []dto.BuildRecord{
		{BuildID: "b1", Profile: "personal", Tool: "claude", Digest: "d1", CreatedAt: base, Files: 2, Added: 2},
		{BuildID: "b1", Profile: "personal", Tool: "cursor", Digest: "d2", CreatedAt: base, Files: 1, Added: 1},
	}))
	require.NoError(t, store.Record(ctx, []dto.BuildRecord{
		{BuildID: "b2", Profile: "work", Tool: "claude", Digest: "d3", CreatedAt: base.Add(time.Hour), Files: 1, Changed: 1},
	}))

	recs, err := store.Recent(ctx, "personal", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "claude", recs[0].Tool)
	assert.Equal(t, base, recs[0].CreatedAt)
	assert.Equal(t, 2, recs[0].Added)

	recs, err = store.Recent(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "b2", recs[0].BuildID)
}

func TestHistoryStore_Memory(t *testing.T) {
	t.Parallel()
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	recs, err := store.Recent(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
