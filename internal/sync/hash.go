// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package sync

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/tomtom215/wardbook/internal/models"
)

// ContentHash fingerprints a record set by its (id, updatedAt, createdAt)
// triples. Input order does not matter. Content fields are not hashed, so an
// edit that does not bump UpdatedAt leaves the hash unchanged.
func ContentHash(records []models.Record) uint64 {
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return records[idx[a]].ID < records[idx[b]].ID
	})

	d := xxhash.New()
	var buf [8]byte
	for _, i := range idx {
		r := &records[i]
		_, _ = d.WriteString(r.ID)
		_, _ = d.Write([]byte{0})
		binary.BigEndian.PutUint64(buf[:], uint64(r.UpdatedAt))
		_, _ = d.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], uint64(r.CreatedAt))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
