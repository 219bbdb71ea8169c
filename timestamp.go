// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"strconv"
	"time"
)

// Timestamp marshals as RFC3339 on the wire while remaining a time.Time
// internally, matching the wire format every other example repo in the
// pack uses for protocol timestamps.
type Timestamp time.Time

func Now() Timestamp { return Timestamp(time.Now().UTC()) }

func (t Timestamp) Time() time.Time { return time.Time(t) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return strconv.AppendQuote(nil, time.Time(t).Format(time.RFC3339Nano)), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}
