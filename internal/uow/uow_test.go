package uow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRunsHooksOnlyOnSuccess(t *testing.T) {
	u := NewUoW(nil)
	ctx := context.Background()

	var ran []string
	err := u.Do(ctx, []string{"b.json", "a.json"}, func(ctx context.Context, after func(AfterCommit)) error {
		after(func(context.Context) { ran = append(ran, "first") })
		after(func(context.Context) { ran = append(ran, "second") })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, ran)

	ran = nil
	boom := errors.New("boom")
	err = u.Do(ctx, []string{"a.json"}, func(ctx context.Context, after func(AfterCommit)) error {
		after(func(context.Context) { ran = append(ran, "never") })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, ran)
}

func TestDoSerializesSameDocument(t *testing.T) {
	u := NewUoW(NewLocalLocker())
	ctx := context.Background()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = u.Do(ctx, []string{"bookings.json", "time-slots.json"}, func(context.Context, func(AfterCommit)) error {
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()

	unlock, err := l.Lock(context.Background(), "a.json")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "a.json")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	unlock2, err := l.Lock(context.Background(), "a.json")
	require.NoError(t, err)
	unlock2()
}

type scopeKey struct{}

type fakeScopedLocker struct {
	*LocalLocker
	finished  []error
	finishErr error
}

func (l *fakeScopedLocker) LockScope(ctx context.Context, names ...string) (context.Context, func(error) error, error) {
	unlock, err := l.Lock(ctx, names...)
	if err != nil {
		return nil, nil, err
	}
	return context.WithValue(ctx, scopeKey{}, "tx"), func(err error) error {
		unlock()
		l.finished = append(l.finished, err)
		return l.finishErr
	}, nil
}

func TestDoRunsWorkInsideLockScope(t *testing.T) {
	locker := &fakeScopedLocker{LocalLocker: NewLocalLocker()}
	u := NewUoW(locker)
	ctx := context.Background()

	var hookSawScope bool
	err := u.Do(ctx, []string{"a.json"}, func(ctx context.Context, after func(AfterCommit)) error {
		assert.Equal(t, "tx", ctx.Value(scopeKey{}))
		after(func(ctx context.Context) { hookSawScope = ctx.Value(scopeKey{}) != nil })
		return nil
	})
	require.NoError(t, err)
	assert.False(t, hookSawScope)

	boom := errors.New("boom")
	err = u.Do(ctx, []string{"a.json"}, func(context.Context, func(AfterCommit)) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.Len(t, locker.finished, 2)
	assert.NoError(t, locker.finished[0])
	assert.ErrorIs(t, locker.finished[1], boom)
}

func TestDoReportsFailedCommit(t *testing.T) {
	commitErr := errors.New("commit failed")
	locker := &fakeScopedLocker{LocalLocker: NewLocalLocker(), finishErr: commitErr}
	u := NewUoW(locker)

	ran := false
	err := u.Do(context.Background(), []string{"a.json"}, func(_ context.Context, after func(AfterCommit)) error {
		after(func(context.Context) { ran = true })
		return nil
	})
	assert.ErrorIs(t, err, commitErr)
	assert.False(t, ran)
}
