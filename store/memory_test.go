package store

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/ftahirops/drivelog/model"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func snap(host, dev string, gen int, data string) model.IdentitySnapshot {
	return model.IdentitySnapshot{OwnerHost: host, DeviceName: dev, Generation: gen, IdentityData: data, ObservedAt: t0}
}

func obs(host, dev string, gen int, at time.Time, brief string) model.Observation {
	return model.Observation{OwnerHost: host, DeviceName: dev, Generation: gen, ObservedAt: at, BriefSummary: brief, DetailSummary: "{}"}
}

// storeContract runs the behaviour shared by every Store implementation.
func storeContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("identity lookups", func(t *testing.T) {
		s := open(t)
		if n, err := s.MaxGeneration(ctx, "h", "/dev/sda"); err != nil || n != 0 {
			t.Fatalf("empty MaxGeneration = %d, %v", n, err)
		}
		mustInsertIdentity(t, s, snap("h", "/dev/sda", 1, `{"serial_number":"A"}`))
		mustInsertIdentity(t, s, snap("h", "/dev/sda", 2, `{"serial_number":"B"}`))
		mustInsertIdentity(t, s, snap("h", "/dev/sdb", 1, `{"serial_number":"C"}`))

		if n, _ := s.MaxGeneration(ctx, "h", "/dev/sda"); n != 2 {
			t.Errorf("MaxGeneration = %d, want 2", n)
		}
		for _, tc := range []struct {
			dev, data string
			want      bool
		}{
			{"/dev/sda", `{"serial_number":"A"}`, true},
			{"/dev/sda", `{"serial_number":"B"}`, true},
			{"/dev/sda", `{"serial_number":"C"}`, false},
			{"/dev/sdb", `{"serial_number":"C"}`, true},
		} {
			got, err := s.IdentityExists(ctx, "h", tc.dev, tc.data)
			if err != nil || got != tc.want {
				t.Errorf("IdentityExists(%s, %s) = %v, %v; want %v", tc.dev, tc.data, got, err, tc.want)
			}
		}
	})

	t.Run("duplicate identity", func(t *testing.T) {
		s := open(t)
		mustInsertIdentity(t, s, snap("h", "/dev/sda", 1, "{}"))
		err := s.InsertIdentity(ctx, snap("h", "/dev/sda", 1, `{"other":1}`))
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("duplicate observation", func(t *testing.T) {
		s := open(t)
		if err := s.InsertObservation(ctx, obs("h", "/dev/sda", 1, t0, "{}")); err != nil {
			t.Fatal(err)
		}
		err := s.InsertObservation(ctx, obs("h", "/dev/sda", 1, t0, `{"x":1}`))
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("identities ordered", func(t *testing.T) {
		s := open(t)
		mustInsertIdentity(t, s, snap("h2", "/dev/sda", 1, "{}"))
		mustInsertIdentity(t, s, snap("h1", "/dev/sdb", 1, "{}"))
		mustInsertIdentity(t, s, snap("h1", "/dev/sda", 2, "{}"))
		mustInsertIdentity(t, s, snap("h1", "/dev/sda", 1, "{}"))

		all, err := s.Identities(ctx, "")
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"h1 /dev/sda 1", "h1 /dev/sda 2", "h1 /dev/sdb 1", "h2 /dev/sda 1"}
		if len(all) != len(want) {
			t.Fatalf("got %d snapshots, want %d", len(all), len(want))
		}
		for i, sn := range all {
			if got := sn.OwnerHost + " " + sn.DeviceName + " " + strconv.Itoa(sn.Generation); got != want[i] {
				t.Errorf("row %d = %q, want %q", i, got, want[i])
			}
			if !sn.ObservedAt.Equal(t0) {
				t.Errorf("row %d ObservedAt = %v", i, sn.ObservedAt)
			}
		}

		h2, _ := s.Identities(ctx, "h2")
		if len(h2) != 1 || h2[0].OwnerHost != "h2" {
			t.Errorf("host filter returned %+v", h2)
		}
	})

	t.Run("latest observation", func(t *testing.T) {
		s := open(t)
		if _, err := s.LatestObservation(ctx, "h", "/dev/sda", 1); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		for i, brief := range []string{`{"n":1}`, `{"n":3}`, `{"n":2}`} {
			at := t0.Add(time.Duration([]int{1, 3, 2}[i]) * time.Microsecond)
			if err := s.InsertObservation(ctx, obs("h", "/dev/sda", 1, at, brief)); err != nil {
				t.Fatal(err)
			}
		}
		got, err := s.LatestObservation(ctx, "h", "/dev/sda", 1)
		if err != nil {
			t.Fatal(err)
		}
		if got.BriefSummary != `{"n":3}` || !got.ObservedAt.Equal(t0.Add(3*time.Microsecond)) {
			t.Errorf("latest = %+v", got)
		}
		if _, err := s.LatestObservation(ctx, "h", "/dev/sda", 2); !errors.Is(err, ErrNotFound) {
			t.Errorf("other generation: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("atomic rollback", func(t *testing.T) {
		s := open(t)
		boom := errors.New("boom")
		err := s.Atomic(ctx, func(q Queries) error {
			if err := q.InsertIdentity(ctx, snap("h", "/dev/sda", 1, "{}")); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Atomic = %v, want boom", err)
		}
		if n, _ := s.MaxGeneration(ctx, "h", "/dev/sda"); n != 0 {
			t.Errorf("rolled back insert is visible, max generation %d", n)
		}

		err = s.Atomic(ctx, func(q Queries) error {
			return q.InsertIdentity(ctx, snap("h", "/dev/sda", 1, "{}"))
		})
		if err != nil {
			t.Fatalf("Atomic commit: %v", err)
		}
		if n, _ := s.MaxGeneration(ctx, "h", "/dev/sda"); n != 1 {
			t.Errorf("committed insert missing, max generation %d", n)
		}
	})
}

func mustInsertIdentity(t *testing.T, s Queries, sn model.IdentitySnapshot) {
	t.Helper()
	if err := s.InsertIdentity(context.Background(), sn); err != nil {
		t.Fatalf("InsertIdentity: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return NewMemory() })
}

func TestMemoryRejectsGenerationZero(t *testing.T) {
	m := NewMemory()
	if err := m.InsertIdentity(context.Background(), snap("h", "/dev/sda", 0, "{}")); err == nil {
		t.Fatal("generation 0 accepted")
	}
}

func TestMemoryRollbackKeepsOutsideWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("boom")
	err := m.Atomic(ctx, func(q Queries) error {
		if err := q.InsertIdentity(ctx, snap("h", "/dev/sda", 1, "{}")); err != nil {
			return err
		}
		// Written directly, as ObservationRecorder does, while the
		// transaction is open.
		if err := m.InsertObservation(ctx, obs("h", "/dev/sdb", 1, t0, "{}")); err != nil {
			return err
		}
		mustInsertIdentity(t, m, snap("h", "/dev/sdc", 1, "{}"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Atomic = %v, want boom", err)
	}
	if n, _ := m.MaxGeneration(ctx, "h", "/dev/sda"); n != 0 {
		t.Errorf("transaction insert survived rollback, max generation %d", n)
	}
	if n, _ := m.MaxGeneration(ctx, "h", "/dev/sdc"); n != 1 {
		t.Errorf("outside identity lost in rollback, max generation %d", n)
	}
	if got := m.Observations(); len(got) != 1 || got[0].DeviceName != "/dev/sdb" {
		t.Errorf("outside observation lost in rollback: %+v", got)
	}
}

func TestMemoryClosed(t *testing.T) {
	m := NewMemory()
	m.Close()
	if _, err := m.MaxGeneration(context.Background(), "h", "/dev/sda"); err == nil {
		t.Fatal("closed store answered a query")
	}
}
