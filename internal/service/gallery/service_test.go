package gallery

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/kirinyoku/atelier/internal/docstore"
	documentrepo "github.com/kirinyoku/atelier/internal/repository/document"
	"github.com/kirinyoku/atelier/internal/uow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	store := documentrepo.NewStore(docstore.NewLocal(t.TempDir()))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(store, uow.NewUoW(nil), logger)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Tassen":                 "tassen",
		"  Weihnachts Anhänger ": "weihnachts-anhaenger",
		"Große Teller!":          "grosse-teller",
		"Kinder -- Geburtstag":   "kinder-geburtstag",
		"!!!":                    "",
	}

	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tassen, err := svc.CreateCategory(ctx, "Tassen")
	require.NoError(t, err)
	teller, err := svc.CreateCategory(ctx, "Teller")
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, " tassen ")
	assert.ErrorIs(t, err, ErrCategoryExists)

	_, err = svc.CreateCategory(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.SetImageCategories(ctx, "a.jpg", []string{tassen.ID, teller.ID, tassen.ID})
	require.NoError(t, err)
	_, err = svc.SetImageCategories(ctx, "b.jpg", []string{teller.ID})
	require.NoError(t, err)

	_, err = svc.SetImageCategories(ctx, "c.jpg", []string{"cat_missing"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	tagged, err := svc.ListImages(ctx, tassen.ID)
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "a.jpg", tagged[0].Filename)
	assert.Len(t, tagged[0].Categories, 2)

	require.NoError(t, svc.DeleteCategory(ctx, teller.ID))
	assert.ErrorIs(t, svc.DeleteCategory(ctx, teller.ID), ErrCategoryNotFound)

	all, err := svc.ListImages(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, []string{tassen.ID}, all[0].Categories)
	assert.Empty(t, all[1].Categories)

	cats, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "tassen", cats[0].Slug)
}
