package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ftahirops/drivelog/model"
)

// Memory is an in-process Store. It enforces the same primary keys as the
// SQL schema. Used by -dry-run and tests.
type Memory struct {
	txMu sync.Mutex // serializes Atomic

	mu           sync.RWMutex
	identities   []model.IdentitySnapshot
	observations []model.Observation
	closed       bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

var _ Store = (*Memory)(nil)

func (m *Memory) IdentityExists(_ context.Context, ownerHost, deviceName, identityData string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, errClosed
	}
	for _, s := range m.identities {
		if s.OwnerHost == ownerHost && s.DeviceName == deviceName && s.IdentityData == identityData {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) MaxGeneration(_ context.Context, ownerHost, deviceName string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, errClosed
	}
	maxGen := 0
	for _, s := range m.identities {
		if s.OwnerHost == ownerHost && s.DeviceName == deviceName && s.Generation > maxGen {
			maxGen = s.Generation
		}
	}
	return maxGen, nil
}

func (m *Memory) InsertIdentity(_ context.Context, snap model.IdentitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	if snap.Generation < 1 {
		return fmt.Errorf("insert identity: generation %d < 1", snap.Generation)
	}
	for _, s := range m.identities {
		if s.OwnerHost == snap.OwnerHost && s.DeviceName == snap.DeviceName && s.Generation == snap.Generation {
			return fmt.Errorf("insert identity %s gen %d: %w", snap.DeviceName, snap.Generation, ErrDuplicate)
		}
	}
	m.identities = append(m.identities, snap)
	return nil
}

func (m *Memory) InsertObservation(_ context.Context, obs model.Observation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosed
	}
	for _, o := range m.observations {
		if o.OwnerHost == obs.OwnerHost && o.DeviceName == obs.DeviceName &&
			o.Generation == obs.Generation && o.ObservedAt.Equal(obs.ObservedAt) {
			return fmt.Errorf("insert observation %s at %s: %w",
				obs.DeviceName, obs.ObservedAt.Format(time.RFC3339Nano), ErrDuplicate)
		}
	}
	m.observations = append(m.observations, obs)
	return nil
}

// Atomic runs fn while holding the store's transaction lock. On failure
// only the rows fn inserted are removed; concurrent writes made outside
// Atomic survive the rollback.
func (m *Memory) Atomic(ctx context.Context, fn func(q Queries) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memoryTx{Memory: m}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// memoryTx records what was inserted through it so rollback can undo
// exactly those rows.
type memoryTx struct {
	*Memory
	identities   []model.IdentitySnapshot
	observations []model.Observation
}

func (tx *memoryTx) InsertIdentity(ctx context.Context, snap model.IdentitySnapshot) error {
	if err := tx.Memory.InsertIdentity(ctx, snap); err != nil {
		return err
	}
	tx.identities = append(tx.identities, snap)
	return nil
}

func (tx *memoryTx) InsertObservation(ctx context.Context, obs model.Observation) error {
	if err := tx.Memory.InsertObservation(ctx, obs); err != nil {
		return err
	}
	tx.observations = append(tx.observations, obs)
	return nil
}

func (tx *memoryTx) rollback() {
	m := tx.Memory
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities = slices.DeleteFunc(m.identities, func(s model.IdentitySnapshot) bool {
		return slices.ContainsFunc(tx.identities, func(t model.IdentitySnapshot) bool {
			return s.OwnerHost == t.OwnerHost && s.DeviceName == t.DeviceName && s.Generation == t.Generation
		})
	})
	m.observations = slices.DeleteFunc(m.observations, func(o model.Observation) bool {
		return slices.ContainsFunc(tx.observations, func(t model.Observation) bool {
			return o.OwnerHost == t.OwnerHost && o.DeviceName == t.DeviceName &&
				o.Generation == t.Generation && o.ObservedAt.Equal(t.ObservedAt)
		})
	})
}

func (m *Memory) Identities(_ context.Context, ownerHost string) ([]model.IdentitySnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errClosed
	}
	var out []model.IdentitySnapshot
	for _, s := range m.identities {
		if ownerHost == "" || s.OwnerHost == ownerHost {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b model.IdentitySnapshot) int {
		return cmp.Or(
			cmp.Compare(a.OwnerHost, b.OwnerHost),
			cmp.Compare(a.DeviceName, b.DeviceName),
			cmp.Compare(a.Generation, b.Generation),
		)
	})
	return out, nil
}

func (m *Memory) LatestObservation(_ context.Context, ownerHost, deviceName string, generation int) (model.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return model.Observation{}, errClosed
	}
	var (
		latest model.Observation
		found  bool
	)
	for _, o := range m.observations {
		if o.OwnerHost != ownerHost || o.DeviceName != deviceName || o.Generation != generation {
			continue
		}
		if !found || o.ObservedAt.After(latest.ObservedAt) {
			latest, found = o, true
		}
	}
	if !found {
		return model.Observation{}, ErrNotFound
	}
	return latest, nil
}

// Observations returns a copy of every observation in insertion order.
func (m *Memory) Observations() []model.Observation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.observations)
}

func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
