// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestMillis_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Millis
		wantErr bool
	}{
		{name: "integer", input: `1000`, want: 1000},
		{name: "integral float", input: `1500.0`, want: 1500},
		{name: "exponent", input: `1.7e12`, want: 1700000000000},
		{name: "numeric string", input: `"2000"`, want: 2000},
		{name: "empty string", input: `""`, want: 0},
		{name: "null", input: `null`, want: 0},
		{name: "fractional float", input: `12.5`, wantErr: true},
		{name: "word", input: `"yesterday"`, wantErr: true},
		{name: "bool", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Millis
			err := json.Unmarshal([]byte(tt.input), &m)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s, got %d", tt.input, m)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m != tt.want {
				t.Errorf("got %d, want %d", m, tt.want)
			}
		})
	}
}

func TestMillis_MissingFieldIsZero(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"id":"p1"}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !r.UpdatedAt.IsZero() {
		t.Errorf("UpdatedAt = %d, want 0", r.UpdatedAt)
	}
}

func TestMillis_RoundTripTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	m := MillisFrom(now)
	if !m.Time().Equal(now) {
		t.Errorf("Time() = %v, want %v", m.Time(), now)
	}
}

func TestRecord_SerializesNullOptionals(t *testing.T) {
	data, err := json.Marshal(Record{ID: "p1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"bed", "patientType", "diagnosis", "date", "syncMeta"} {
		v, ok := fields[key]
		if !ok {
			t.Errorf("key %q missing from serialized record", key)
			continue
		}
		if v != nil {
			t.Errorf("key %q = %v, want null", key, v)
		}
	}
}

func TestRecord_CloneIsDeep(t *testing.T) {
	orig := Record{
		ID:       "p1",
		Bed:      StringPtr("4B"),
		Tasks:    []SubTask{{ID: "t1", Text: "bloods"}},
		SyncMeta: &SyncMeta{Source: SyncSourceLocal},
	}
	cp := orig.Clone()
	*cp.Bed = "5A"
	cp.Tasks[0].Completed = true
	cp.SyncMeta.Source = SyncSourceRemote

	if *orig.Bed != "4B" {
		t.Error("clone shares Bed pointer")
	}
	if orig.Tasks[0].Completed {
		t.Error("clone shares Tasks backing array")
	}
	if orig.SyncMeta.Source != SyncSourceLocal {
		t.Error("clone shares SyncMeta")
	}
}
