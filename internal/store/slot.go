package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrCorrupt marks a stored value that cannot be decoded into its slot type
	ErrCorrupt = errors.New("corrupt stored value")
	// ErrVersion marks a stored value written with a schema the slot cannot migrate
	ErrVersion = errors.New("unsupported stored version")
)

// Slot is a typed logical key. Values are stored as JSON text.
type Slot[T any] struct {
	Key     string
	Version int
	// Default produces the value returned for an absent key
	Default func() T
	// Migrate rewrites raw JSON written under an older version. Optional.
	Migrate func(from int, raw []byte) ([]byte, error)
}

func (s Slot[T]) zero() T {
	if s.Default != nil {
		return s.Default()
	}
	var v T
	return v
}

// Get decodes the stored value. Absent or empty keys yield the default with
// no error; undecodable values yield the default and an error wrapping
// ErrCorrupt or ErrVersion.
func (s Slot[T]) Get(ctx context.Context, st Store) (T, error) {
	entry, ok, err := st.Get(ctx, s.Key)
	if err != nil {
		return s.zero(), err
	}
	if !ok || entry.Value == "" {
		return s.zero(), nil
	}

	raw := []byte(entry.Value)
	if entry.Version != s.Version {
		if s.Migrate == nil {
			return s.zero(), fmt.Errorf("%w: key %s has version %d, want %d", ErrVersion, s.Key, entry.Version, s.Version)
		}
		raw, err = s.Migrate(entry.Version, raw)
		if err != nil {
			return s.zero(), fmt.Errorf("%w: key %s: migrate from version %d: %v", ErrVersion, s.Key, entry.Version, err)
		}
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return s.zero(), fmt.Errorf("%w: key %s: %v", ErrCorrupt, s.Key, err)
	}
	return v, nil
}

// Set replaces the stored value
func (s Slot[T]) Set(ctx context.Context, st Store, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.Key, err)
	}
	return st.Set(ctx, s.Key, Entry{Value: string(data), Version: s.Version})
}
