package storage

import (
	"context"
	"testing"
	"time"

	"github.com/maneesh/chatrecords/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFileRepository()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		f := &models.File{WorkspaceID: "w1", UploadedBy: "u1", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Insert(ctx, f))
		require.NoError(t, models.ValidateID(f.ID))
		ids = append(ids, f.ID)
	}
	require.NoError(t, repo.Insert(ctx, &models.File{WorkspaceID: "w2", CreatedAt: base}))

	t.Run("find newest first with limit", func(t *testing.T) {
		files, err := repo.Find(ctx, FileQuery{WorkspaceID: strPtr("w1"), Limit: 2})
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, ids[2], files[0].ID)
		assert.Equal(t, ids[1], files[1].ID)

		total, err := repo.Count(ctx, FileQuery{WorkspaceID: strPtr("w1"), Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})

	t.Run("soft delete hides from reads but not from includeDeleted", func(t *testing.T) {
		require.NoError(t, repo.SoftDelete(ctx, ids[0], base.Add(time.Hour)))

		_, err := repo.FindByID(ctx, ids[0], false)
		assert.ErrorIs(t, err, ErrNotFound)

		f, err := repo.FindByID(ctx, ids[0], true)
		require.NoError(t, err)
		assert.True(t, f.IsDeleted())

		total, err := repo.Count(ctx, FileQuery{WorkspaceID: strPtr("w1")})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
	})

	t.Run("set public", func(t *testing.T) {
		at := base.Add(2 * time.Hour)
		require.NoError(t, repo.SetPublic(ctx, ids[1], true, at))
		f, err := repo.FindByID(ctx, ids[1], false)
		require.NoError(t, err)
		assert.True(t, f.IsPublic)
		assert.Equal(t, at, f.UpdatedAt)
	})

	t.Run("unknown and malformed ids", func(t *testing.T) {
		assert.NoError(t, repo.SoftDelete(ctx, models.NewID(), base))
		assert.ErrorIs(t, repo.SoftDelete(ctx, "bogus", base), ErrInvalidID)

		_, err := repo.FindByID(ctx, models.NewID(), true)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryMessageRepositoryOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		m := &models.Message{ChannelID: "c1", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, repo.Insert(ctx, m))
		ids = append(ids, m.ID)
	}
	require.NoError(t, repo.Insert(ctx, &models.Message{ChannelID: "c1", ThreadID: strPtr(ids[0]), CreatedAt: base}))

	desc, err := repo.Find(ctx, MessageQuery{ChannelID: strPtr("c1"), TopLevelOnly: true, Limit: 10})
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{desc[0].ID, desc[1].ID, desc[2].ID})

	asc, err := repo.Find(ctx, MessageQuery{ChannelID: strPtr("c1"), TopLevelOnly: true, Ascending: true})
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, []string{ids[0], ids[1], ids[2]}, []string{asc[0].ID, asc[1].ID, asc[2].ID})

	thread, err := repo.Find(ctx, MessageQuery{ThreadID: strPtr(ids[0])})
	require.NoError(t, err)
	assert.Len(t, thread, 1)
}

func TestMemoryMessageRepositoryReactions(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	m := &models.Message{ChannelID: "c1", Reactions: []models.Reaction{}}
	require.NoError(t, repo.Insert(ctx, m))

	require.NoError(t, repo.AddReaction(ctx, m.ID, models.NewReaction("user_a", "👍"), at))
	require.NoError(t, repo.AddReaction(ctx, m.ID, models.NewReaction("user_a", "👍"), at))
	require.NoError(t, repo.AddReaction(ctx, m.ID, models.NewReaction("user_b", "👍"), at))
	require.NoError(t, repo.AddReaction(ctx, m.ID, models.NewReaction("user_a", "🎉"), at))

	got, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, got.Reactions, 3)
	assert.Equal(t, []string{"user_a"}, got.Reactions[0].UserIDs)
	assert.Equal(t, []string{"user_b"}, got.Reactions[1].UserIDs)

	require.NoError(t, repo.RemoveReactions(ctx, m.ID, "👍", at))
	got, err = repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, got.Reactions, 1)
	assert.Equal(t, "🎉", got.Reactions[0].Emoji)
}

func TestMemoryMessageRepositoryUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryMessageRepository()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	later := created.Add(time.Minute)

	m := &models.Message{ChannelID: "c1", Content: "hi", CreatedAt: created, UpdatedAt: created}
	require.NoError(t, repo.Insert(ctx, m))

	require.NoError(t, repo.UpdateContent(ctx, m.ID, nil, later))
	got, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Content)
	require.NotNil(t, got.EditedAt)
	assert.Equal(t, later, *got.EditedAt)
	assert.Equal(t, later, got.UpdatedAt)

	require.NoError(t, repo.SetPinned(ctx, m.ID, true, later))
	got, err = repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPinned)

	got.Content = "mutated copy"
	again, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi", again.Content)

	require.NoError(t, repo.SoftDelete(ctx, m.ID, later))
	_, err = repo.FindByID(ctx, m.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
