package engine

import (
	"context"
	"sync"
	"time"

	"github.com/ftahirops/drivelog/model"
	"github.com/ftahirops/drivelog/store"
)

// ObservationRecorder appends one observation row per successful
// collection of a drive.
type ObservationRecorder struct {
	store store.Queries
	now   func() time.Time

	mu   sync.Mutex
	last map[string]time.Time // per pair, last stamped observedAt
}

// NewObservationRecorder returns a recorder writing to q. A nil now uses
// time.Now.
func NewObservationRecorder(q store.Queries, now func() time.Time) *ObservationRecorder {
	if now == nil {
		now = time.Now
	}
	return &ObservationRecorder{store: q, now: now, last: make(map[string]time.Time)}
}

// stamp returns the observation time for a pair. Times are truncated to
// microseconds (the PostgreSQL resolution) and strictly increase per pair,
// so two records in the same tick never share a primary key.
func (r *ObservationRecorder) stamp(key string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.now().UTC().Truncate(time.Microsecond)
	if last, ok := r.last[key]; ok && !ts.After(last) {
		ts = last.Add(time.Microsecond)
	}
	r.last[key] = ts
	return ts
}

// Record stamps and inserts an observation. brief and detail are stored
// in canonical form. Store failures come back as *PersistenceError and are
// not retried.
func (r *ObservationRecorder) Record(ctx context.Context, ownerHost, deviceName string, generation int, brief, detail model.Report) (model.Observation, error) {
	briefText, err := Canonical(brief)
	if err != nil {
		return model.Observation{}, err
	}
	detailText, err := Canonical(detail)
	if err != nil {
		return model.Observation{}, err
	}

	obs := model.Observation{
		OwnerHost:     ownerHost,
		DeviceName:    deviceName,
		Generation:    generation,
		ObservedAt:    r.stamp(store.PairKey(ownerHost, deviceName)),
		BriefSummary:  briefText,
		DetailSummary: detailText,
	}
	if err := r.store.InsertObservation(ctx, obs); err != nil {
		return model.Observation{}, &PersistenceError{Op: "record observation", Device: deviceName, Err: err}
	}
	return obs, nil
}
