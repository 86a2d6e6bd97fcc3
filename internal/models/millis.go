// Wardbook - Clinical Record Keeping with Offline-First Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wardbook

package models

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Millis is an epoch timestamp in milliseconds.
//
// Documents written by older clients carry timestamps as integers, integral
// floats or numeric strings, so decoding accepts all three. A JSON null or a
// missing field decodes to zero.
type Millis int64

// MillisFrom converts t to epoch milliseconds.
func MillisFrom(t time.Time) Millis {
	return Millis(t.UnixMilli())
}

// Time returns the timestamp as a UTC time.Time. Zero maps to the Unix epoch.
func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m)).UTC()
}

// IsZero reports whether the timestamp is unset.
func (m Millis) IsZero() bool {
	return m == 0
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}

	if data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("millis: %w", err)
		}
		if s == "" {
			*m = 0
			return nil
		}
		data = []byte(s)
	}

	if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*m = Millis(n)
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("millis: invalid timestamp %q", data)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return fmt.Errorf("millis: non-integral timestamp %q", data)
	}
	*m = Millis(int64(f))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m Millis) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(m), 10), nil
}
