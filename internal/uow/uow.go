package uow

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrLocked is returned when the documents could not be locked in time.
var ErrLocked = errors.New("documents are locked")

// AfterCommit is a function that runs after a successful unit of work, once
// all locks are released.
type AfterCommit func(ctx context.Context)

// Locker grants exclusive access to a set of document names until the
// returned unlock function is called.
type Locker interface {
	Lock(ctx context.Context, names ...string) (unlock func(), err error)
}

// ScopedLocker is a Locker whose lock carries the connection the work has to
// run on, such as a database transaction. The returned context must be used
// for every read and write of the unit of work. finish commits when err is
// nil and discards the work otherwise.
type ScopedLocker interface {
	Locker
	LockScope(ctx context.Context, names ...string) (scoped context.Context, finish func(err error) error, err error)
}

// UoW represents a unit of work over one or more documents.
type UoW struct {
	locker Locker
}

func NewUoW(locker Locker) *UoW {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &UoW{locker: locker}
}

// Do locks the named documents, runs fn and, when fn succeeds, executes all
// after-commit hooks. Names are locked in sorted order.
func (u *UoW) Do(
	ctx context.Context,
	names []string,
	fn func(ctx context.Context, after func(AfterCommit)) error,
) error {
	const op = "uow.Do"

	keys := slices.Clone(names)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	workCtx, finish, err := u.lock(ctx, keys)
	if err != nil {
		return fmt.Errorf("%s:%w: %w", op, ErrLocked, err)
	}

	var hooks []AfterCommit

	err = fn(workCtx, func(h AfterCommit) {
		hooks = append(hooks, h)
	})
	if ferr := finish(err); ferr != nil && err == nil {
		return fmt.Errorf("%s:%w", op, ferr)
	}
	if err != nil {
		return err
	}

	for _, h := range hooks {
		h(ctx)
	}

	return nil
}

func (u *UoW) lock(ctx context.Context, keys []string) (context.Context, func(error) error, error) {
	if sl, ok := u.locker.(ScopedLocker); ok {
		return sl.LockScope(ctx, keys...)
	}

	unlock, err := u.locker.Lock(ctx, keys...)
	if err != nil {
		return nil, nil, err
	}

	return ctx, func(error) error {
		unlock()
		return nil
	}, nil
}
