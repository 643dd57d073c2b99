package engine

import (
	"context"
	"time"

	"github.com/ftahirops/drivelog/model"
	"github.com/ftahirops/drivelog/store"
)

// IdentityTracker assigns drive generations. A generation is bumped when a
// drive reports identity fields never stored before for its host and
// device name, which is read as a physical disk swap.
type IdentityTracker struct {
	store store.Store
	locks *store.KeyLock
	now   func() time.Time
}

// NewIdentityTracker returns a tracker writing to st. A nil now uses
// time.Now.
func NewIdentityTracker(st store.Store, now func() time.Time) *IdentityTracker {
	if now == nil {
		now = time.Now
	}
	return &IdentityTracker{store: st, locks: store.NewKeyLock(), now: now}
}

// Reconcile returns the generation the identity belongs to, inserting a new
// snapshot when the identity text matches no stored snapshot of the pair.
// An identity seen at any earlier generation is treated as known, so an
// A, B, A sequence stays on B's generation.
//
// Store failures are returned as *PersistenceError. Encoding failures are
// returned as is.
func (t *IdentityTracker) Reconcile(ctx context.Context, ownerHost, deviceName string, identity model.Report) (generation int, created bool, err error) {
	data, err := Canonical(identity)
	if err != nil {
		return 0, false, err
	}

	unlock := t.locks.Lock(store.PairKey(ownerHost, deviceName))
	defer unlock()

	err = t.store.Atomic(ctx, func(q store.Queries) error {
		exists, err := q.IdentityExists(ctx, ownerHost, deviceName, data)
		if err != nil {
			return err
		}
		generation, err = q.MaxGeneration(ctx, ownerHost, deviceName)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		generation++
		created = true
		return q.InsertIdentity(ctx, model.IdentitySnapshot{
			OwnerHost:    ownerHost,
			DeviceName:   deviceName,
			Generation:   generation,
			IdentityData: data,
			ObservedAt:   t.now().UTC(),
		})
	})
	if err != nil {
		return 0, false, &PersistenceError{Op: "reconcile identity", Device: deviceName, Err: err}
	}
	return generation, created, nil
}
