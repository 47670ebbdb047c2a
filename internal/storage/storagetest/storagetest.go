// Package storagetest содержит общий набор проверок для реализаций storage.LinkStore.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Totarae/shortlinks/internal/model"
	"github.com/Totarae/shortlinks/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory возвращает пустое хранилище для одного подтеста.
type Factory func(t *testing.T) storage.LinkStore

// Run прогоняет контракт LinkStore на хранилище из factory.
func Run(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("CreateAndFind", func(t *testing.T) { testCreateAndFind(t, factory(t)) })
	t.Run("CodeIsGloballyUnique", func(t *testing.T) { testUnique(t, factory(t)) })
	t.Run("UpdateFields", func(t *testing.T) { testUpdateFields(t, factory(t)) })
	t.Run("Note", func(t *testing.T) { testNote(t, factory(t)) })
	t.Run("ConcurrentIncrement", func(t *testing.T) { testConcurrentIncrement(t, factory(t)) })
	t.Run("ListNewestFirst", func(t *testing.T) { testList(t, factory(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, factory(t)) })
}

func create(t *testing.T, store storage.LinkStore, owner, original, code string) *model.Link {
	t.Helper()
	link := &model.Link{UserID: owner, OriginalURL: original, ShortURL: code, QRCode: "data:image/png;base64,AA=="}
	require.NoError(t, store.Create(context.Background(), link))
	require.NotEmpty(t, link.ID)
	return link
}

func testCreateAndFind(t *testing.T, store storage.LinkStore) {
	ctx := context.Background()
	link := create(t, store, "u1", "foo.com", "abc123")
	assert.False(t, link.CreatedAt.IsZero())

	got, err := store.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)
	assert.Equal(t, "foo.com", got.OriginalURL)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "data:image/png;base64,AA==", got.QRCode)
	assert.Zero(t, got.Clicks)
	assert.Nil(t, got.Note)

	got, err = store.FindByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.ShortURL)

	got, err = store.FindByOwnerAndOriginal(ctx, "u1", "foo.com")
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)

	_, err = store.FindByOwnerAndOriginal(ctx, "u2", "foo.com")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.FindByCode(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.FindByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUnique(t *testing.T, store storage.LinkStore) {
	ctx := context.Background()
	create(t, store, "u1", "a.com", "same")

	err := store.Create(ctx, &model.Link{UserID: "u2", OriginalURL: "b.com", ShortURL: "same"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	other := create(t, store, "u2", "b.com", "other")
	taken := "same"
	err = store.UpdateFields(ctx, other.ID, model.LinkPatch{ShortURL: &taken})
	assert.ErrorIs(t, err, storage.ErrConflict)

	got, err := store.FindByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "other", got.ShortURL)
}

func testUpdateFields(t *testing.T, store storage.LinkStore) {
	ctx := context.Background()
	link := create(t, store, "u1", "a.com", "before")

	target := "b.com"
	code := "after"
	require.NoError(t, store.UpdateFields(ctx, link.ID, model.LinkPatch{OriginalURL: &target, ShortURL: &code}))

	got, err := store.FindByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, "b.com", got.OriginalURL)
	assert.Equal(t, "after", got.ShortURL)
	assert.Equal(t, "data:image/png;base64,AA==", got.QRCode)

	_, err = store.FindByCode(ctx, "before")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.UpdateFields(ctx, "00000000-0000-0000-0000-000000000000", model.LinkPatch{OriginalURL: &target})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testNote(t *testing.T, store storage.LinkStore) {
	ctx := context.Background()
	link := create(t, store, "u1", "a.com", "noted")

	now := time.Now().UTC().Truncate(time.Millisecond)
	note := &model.Note{Content: "remember", Author: "u1", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.UpdateFields(ctx, link.ID, model.LinkPatch{Note: note}))

	got, err := store.FindByID(ctx, link.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Note)
	assert.Equal(t, "remember", got.Note.Content)
	assert.Equal(t, "u1", got.Note.Author)
	assert.True(t, now.Equal(got.Note.CreatedAt), "note createdAt %v", got.Note.CreatedAt)
	assert.Equal(t, "noted", got.ShortURL)

	require.NoError(t, store.UpdateFields(ctx, link.ID, model.LinkPatch{RemoveNote: true}))
	got, err = store.FindByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Note)
	assert.Equal(t, "a.com", got.OriginalURL)
}

func testConcurrentIncrement(t *testing.T, store storage.LinkStore) {
	ctx := context.Background()
	link := create(t, store, "u1", "a.com", "hot")

	const n = 50
	var wg sync.WaitGroup
	seen := make(chan int64, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clicks, err := store.IncrementClicks(ctx, link.ID)
			assert.NoError(t, err)
			seen <- clicks
		}()
	}
	wg.Wait()
	close(seen)

	values := make(map[int64]bool, n)
	for v := range seen {
		values[v] = true
	}
	assert.Len(t, values, n, "every increment must observe its own value")

	got, err := store.FindByID(ctx, link.ID)
	require.NoError(t, err)
	assert.EqualValues(t, n, got.Clicks)

	_, err = store.IncrementClicks(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testList(t *testing.T, store storage.LinkStore) {
	ctx := context.Background()
	for _, code := range []string{"l1", "l2", "l3"} {
		create(t, store, "owner", code+".com", code)
		time.Sleep(5 * time.Millisecond)
	}
	create(t, store, "someone-else", "x.com", "x")

	links, err := store.ListByOwner(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, []string{"l3", "l2", "l1"}, []string{links[0].ShortURL, links[1].ShortURL, links[2].ShortURL})

	empty, err := store.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testDelete(t *testing.T, store storage.LinkStore) {
	ctx := context.Background()
	link := create(t, store, "u1", "a.com", "gone")
	note := &model.Note{Content: "bye", Author: "u1", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, store.UpdateFields(ctx, link.ID, model.LinkPatch{Note: note}))

	require.NoError(t, store.Delete(ctx, link.ID))
	_, err := store.FindByCode(ctx, "gone")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.FindByID(ctx, link.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, link.ID), storage.ErrNotFound)

	// код освобождается для других
	create(t, store, "u2", "b.com", "gone")
}
