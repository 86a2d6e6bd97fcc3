// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package sync

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/wardbook/internal/logging"
	"github.com/tomtom215/wardbook/internal/models"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name      string
		legacy    []models.Record
		primary   []models.Record
		wantIDs   []string
		wantAt    map[string]models.Millis
		conflicts int
	}{
		{
			name:    "tie goes to primary",
			legacy:  []models.Record{{ID: "p1", Name: "legacy", UpdatedAt: 100}},
			primary: []models.Record{{ID: "p1", Name: "primary", UpdatedAt: 100}},
			wantIDs: []string{"p1"},
			wantAt:  map[string]models.Millis{"p1": 100},
		},
		{
			name:      "newer legacy kept",
			legacy:    []models.Record{rec("p1", 100)},
			primary:   []models.Record{rec("p1", 50)},
			wantIDs:   []string{"p1"},
			wantAt:    map[string]models.Millis{"p1": 100},
			conflicts: 1,
		},
		{
			name:    "order is legacy then primary-only",
			legacy:  []models.Record{rec("b", 1), rec("a", 1)},
			primary: []models.Record{rec("z", 1), rec("a", 2), rec("y", 1)},
			wantIDs: []string{"b", "a", "z", "y"},
			wantAt:  map[string]models.Millis{"a": 2},
		},
		{
			name:      "missing updatedAt loses",
			legacy:    []models.Record{rec("p1", 5)},
			primary:   []models.Record{{ID: "p1"}},
			wantIDs:   []string{"p1"},
			wantAt:    map[string]models.Millis{"p1": 5},
			conflicts: 1,
		},
		{
			name:    "empty inputs",
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflicts := 0
			got := Merge(tt.legacy, tt.primary, func(string, models.Record, models.Record) { conflicts++ })

			if !reflect.DeepEqual(ids(got), tt.wantIDs) {
				t.Errorf("ids = %v, want %v", ids(got), tt.wantIDs)
			}
			for _, r := range got {
				if want, ok := tt.wantAt[r.ID]; ok && r.UpdatedAt != want {
					t.Errorf("%s.UpdatedAt = %d, want %d", r.ID, r.UpdatedAt, want)
				}
			}
			if conflicts != tt.conflicts {
				t.Errorf("conflicts = %d, want %d", conflicts, tt.conflicts)
			}
		})
	}
}

func TestMerge_TieSelectsPrimaryDocument(t *testing.T) {
	got := Merge(
		[]models.Record{{ID: "p1", Name: "legacy", UpdatedAt: 100}},
		[]models.Record{{ID: "p1", Name: "primary", UpdatedAt: 100}},
		nil,
	)
	if got[0].Name != "primary" {
		t.Errorf("Name = %q, want primary", got[0].Name)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	legacy := []models.Record{rec("a", 1), rec("b", 5)}
	primary := []models.Record{rec("b", 3), rec("c", 1)}

	first := Merge(legacy, primary, nil)
	second := Merge(first, primary, nil)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-merging changed the result: %v vs %v", ids(first), ids(second))
	}
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	legacy := []models.Record{rec("a", 1)}
	primary := []models.Record{rec("a", 2)}
	_ = Merge(legacy, primary, nil)
	if legacy[0].UpdatedAt != 1 {
		t.Error("legacy input modified")
	}
}

func newTestEngine(t *testing.T, store DocumentStore, opts ...Option) (*Engine, *bytes.Buffer, *fakeClock) {
	t.Helper()
	var buf bytes.Buffer
	clock := newFakeClock()
	opts = append([]Option{
		WithClock(clock.Now),
		WithLogger(logging.NewTestLogger(&buf)),
	}, opts...)
	var session Session
	if store != nil {
		session = staticSession{uid: "user-0001-abcd"}
	}
	e := NewEngine(store, session, opts...)
	t.Cleanup(e.Close)
	return e, &buf, clock
}

func conflictLines(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), "kept newer copy over stale primary document")
}

func TestMerger_ConflictLogRateLimited(t *testing.T) {
	e, buf, clock := newTestEngine(t, nil)
	m := e.NewMerger()

	m.Apply(snapshotOf(t, CollectionLegacy, rec("p1", 100)))
	m.Apply(snapshotOf(t, CollectionPrimary, rec("p1", 50)))
	if n := conflictLines(buf); n != 1 {
		t.Fatalf("conflict log lines = %d, want 1", n)
	}

	// The same conflict on every snapshot within the window logs once.
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		m.Apply(snapshotOf(t, CollectionPrimary, rec("p1", 50)))
	}
	if n := conflictLines(buf); n != 1 {
		t.Fatalf("conflict log lines within window = %d, want 1", n)
	}

	clock.Advance(10 * time.Second)
	m.Apply(snapshotOf(t, CollectionPrimary, rec("p1", 50)))
	if n := conflictLines(buf); n != 2 {
		t.Fatalf("conflict log lines after window = %d, want 2", n)
	}
}

func TestMerger_TombstoneSuppression(t *testing.T) {
	e, _, clock := newTestEngine(t, nil)
	m := e.NewMerger()

	e.MarkPendingDeletion("x")

	clock.Advance(5 * time.Second)
	got := m.Apply(snapshotOf(t, CollectionPrimary, rec("x", 1), rec("y", 1)))
	if !reflect.DeepEqual(ids(got), []string{"y"}) {
		t.Fatalf("within TTL ids = %v, want [y]", ids(got))
	}

	clock.Advance(26 * time.Second)
	got = m.Apply(snapshotOf(t, CollectionPrimary, rec("x", 1), rec("y", 1)))
	if !reflect.DeepEqual(ids(got), []string{"x", "y"}) {
		t.Fatalf("after 31s ids = %v, want [x y]", ids(got))
	}
}

func TestMerger_TombstoneFiltersStoredView(t *testing.T) {
	tests := []struct {
		name      string
		stored    Collection
		arrives   Collection
		wantLive  []string
		wantAfter []string
	}{
		{
			name:      "stale legacy view",
			stored:    CollectionLegacy,
			arrives:   CollectionPrimary,
			wantLive:  []string{"y", "z"},
			wantAfter: []string{"x", "y", "z"},
		},
		{
			name:      "stale primary view",
			stored:    CollectionPrimary,
			arrives:   CollectionLegacy,
			wantLive:  []string{"z", "y"},
			wantAfter: []string{"z", "x", "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, clock := newTestEngine(t, nil)
			m := e.NewMerger()

			m.Apply(snapshotOf(t, tt.stored, rec("x", 1), rec("y", 1)))
			e.MarkPendingDeletion("x")

			got := m.Apply(snapshotOf(t, tt.arrives, rec("z", 1)))
			if !reflect.DeepEqual(ids(got), tt.wantLive) {
				t.Fatalf("within TTL ids = %v, want %v", ids(got), tt.wantLive)
			}

			// The stored view still holds x; it reappears once the tombstone expires.
			clock.Advance(31 * time.Second)
			got = m.Apply(snapshotOf(t, tt.arrives, rec("z", 1)))
			if !reflect.DeepEqual(ids(got), tt.wantAfter) {
				t.Fatalf("after TTL ids = %v, want %v", ids(got), tt.wantAfter)
			}
		})
	}
}

func TestMerger_DropsInvalidDocuments(t *testing.T) {
	e, buf, _ := newTestEngine(t, nil)
	m := e.NewMerger()

	snap := snapshotOf(t, CollectionLegacy, rec("a", 1), rec("b", 2))
	snap.Documents = append(snap.Documents,
		json.RawMessage(`{"id":""}`),
		json.RawMessage(`{"id":"c","updatedAt":"soon"}`),
	)

	got := m.Apply(snap)
	if !reflect.DeepEqual(ids(got), []string{"a", "b"}) {
		t.Errorf("ids = %v", ids(got))
	}
	if !strings.Contains(buf.String(), `"source":"remote:patients"`) {
		t.Errorf("expected per-source drop warning, got %s", buf.String())
	}
	if len(m.View(CollectionLegacy)) != 2 {
		t.Errorf("View = %v", m.View(CollectionLegacy))
	}
}
