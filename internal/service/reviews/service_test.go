package reviews

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kirinyoku/atelier/internal/docstore"
	"github.com/kirinyoku/atelier/internal/notify"
	documentrepo "github.com/kirinyoku/atelier/internal/repository/document"
	"github.com/kirinyoku/atelier/internal/uow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, n Notifier) *Service {
	t.Helper()

	store := documentrepo.NewStore(docstore.NewLocal(t.TempDir()))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(store, uow.NewUoW(nil), nil, nil, n, nil, logger)
}

func TestSubmitValidates(t *testing.T) {
	svc := newTestService(t, nil)

	tests := map[string]struct {
		name    string
		rating  int
		comment string
	}{
		"rating too low":  {"Mia", 0, "schön"},
		"rating too high": {"Mia", 6, "schön"},
		"blank name":      {" ", 5, "schön"},
		"blank comment":   {"Mia", 4, "  "},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.name, tt.rating, tt.comment)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSubmitIsHiddenUntilApproved(t *testing.T) {
	svc := newTestService(t, notify.NewLog(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ctx := context.Background()

	res, err := svc.Submit(ctx, "Mia", 5, "Toller Nachmittag!")
	require.NoError(t, err)
	assert.False(t, res.Review.Approved)
	assert.False(t, res.NotificationSent)
	assert.Equal(t, notify.ErrNotConfigured.Error(), res.NotificationError)

	approved, err := svc.ListApproved(ctx)
	require.NoError(t, err)
	assert.Empty(t, approved)

	_, err = svc.SetApproved(ctx, res.Review.ID, true)
	require.NoError(t, err)

	approved, err = svc.ListApproved(ctx)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "Mia", approved[0].Name)

	_, err = svc.SetApproved(ctx, "review_missing", true)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestListAllNewestFirstAndDelete(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"A", "B", "C"} {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		_, err := svc.Submit(ctx, name, 4, "gut")
		require.NoError(t, err)
	}

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "C", all[0].Name)
	assert.Equal(t, "A", all[2].Name)

	require.NoError(t, svc.Delete(ctx, all[1].ID))
	assert.ErrorIs(t, svc.Delete(ctx, all[1].ID), ErrReviewNotFound)

	all, err = svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, r := range all {
		assert.NotEqual(t, "B", r.Name)
	}
}
