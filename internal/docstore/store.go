// Package docstore persists named JSON documents on one of several
// interchangeable backends.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrUnavailable = errors.New("storage unavailable")
	ErrInvalidName = errors.New("invalid document name")
)

// Store is a key to raw document mapping. Get returns ErrNotFound when the
// document does not exist and ErrUnavailable for any other backend failure.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
}

// Read decodes the named document into T, returning def when it is absent.
func Read[T any](ctx context.Context, s Store, name string, def T) (T, error) {
	const op = "docstore.Read"

	b, err := s.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("%s: %s: %w", op, name, err)
	}

	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return def, fmt.Errorf("%s: decode %s: %w", op, name, err)
	}

	return out, nil
}

// Write encodes v as indented JSON and stores it under name.
func Write(ctx context.Context, s Store, name string, v any) error {
	const op = "docstore.Write"

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: encode %s: %w", op, name, err)
	}

	if err := s.Put(ctx, name, b); err != nil {
		return fmt.Errorf("%s: %s: %w", op, name, err)
	}

	return nil
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
