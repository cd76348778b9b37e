package store

import (
	"context"
	"encoding/json"
	"fmt"

	"RouteDesk/internal/addresses"
)

const schemaVersion = 1

// unversioned accepts values written before entries carried a version; the
// JSON shape did not change.
func unversioned(from int, raw []byte) ([]byte, error) {
	if from == 0 {
		return raw, nil
	}
	return nil, fmt.Errorf("no migration from version %d", from)
}

var (
	PairwiseSlot = Slot[[]addresses.PairwiseRecord]{
		Key:     "pairwiseData",
		Version: schemaVersion,
		Default: func() []addresses.PairwiseRecord { return []addresses.PairwiseRecord{} },
		Migrate: unversioned,
	}
	SolutionSlot = Slot[json.RawMessage]{
		Key:     "solutionData",
		Version: schemaVersion,
		Migrate: unversioned,
	}
	AddressesSlot = Slot[[]addresses.Address]{
		Key:     "addresses",
		Version: schemaVersion,
		Default: func() []addresses.Address { return []addresses.Address{} },
		Migrate: unversioned,
	}
	SessionIDSlot = Slot[string]{
		Key:     "sessionId",
		Version: schemaVersion,
		Migrate: unversioned,
	}
)

// Repository gives typed access to the logical keys the client persists.
// Each Set replaces the previous value; nothing spans keys transactionally.
type Repository struct {
	store Store
}

func NewRepository(st Store) *Repository {
	return &Repository{store: st}
}

func (r *Repository) SetPairwiseData(ctx context.Context, data []addresses.PairwiseRecord) error {
	return PairwiseSlot.Set(ctx, r.store, data)
}

// GetPairwiseData returns an empty slice when nothing is stored
func (r *Repository) GetPairwiseData(ctx context.Context) ([]addresses.PairwiseRecord, error) {
	data, err := PairwiseSlot.Get(ctx, r.store)
	if data == nil {
		data = []addresses.PairwiseRecord{}
	}
	return data, err
}

// SetSolutionData stores an opaque JSON document. A nil value stores null.
func (r *Repository) SetSolutionData(ctx context.Context, data json.RawMessage) error {
	if data != nil && !json.Valid(data) {
		return fmt.Errorf("solution data is not valid JSON")
	}
	return SolutionSlot.Set(ctx, r.store, data)
}

// GetSolutionData returns nil when nothing (or null) is stored
func (r *Repository) GetSolutionData(ctx context.Context) (json.RawMessage, error) {
	data, err := SolutionSlot.Get(ctx, r.store)
	if string(data) == "null" {
		return nil, err
	}
	return data, err
}

func (r *Repository) SetAddresses(ctx context.Context, list []addresses.Address) error {
	return AddressesSlot.Set(ctx, r.store, list)
}

// GetAddresses returns an empty slice when nothing is stored
func (r *Repository) GetAddresses(ctx context.Context) ([]addresses.Address, error) {
	list, err := AddressesSlot.Get(ctx, r.store)
	if list == nil {
		list = []addresses.Address{}
	}
	return list, err
}

func (r *Repository) SessionID(ctx context.Context) (string, error) {
	return SessionIDSlot.Get(ctx, r.store)
}

func (r *Repository) SetSessionID(ctx context.Context, id string) error {
	return SessionIDSlot.Set(ctx, r.store, id)
}
