// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/a2a-node/agentcore"
)

// readSSE parses the canonical id:/event:/data: SSE framing from r,
// emitting one EventEnvelope per blank-line-terminated block and skipping
// ":keepalive" comments.
func readSSE(r io.Reader, emit func(a2a.EventEnvelope) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var seq uint64
	var kind string
	var data strings.Builder

	flush := func() error {
		if kind == "" {
			return nil
		}
		ev, err := a2a.DecodeEvent(kind, []byte(data.String()))
		if err != nil {
			return err
		}
		err = emit(a2a.EventEnvelope{Seq: seq, Event: ev})
		kind, seq = "", 0
		data.Reset()
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := flush(); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
			// heartbeat or other comment, ignore.
		case strings.HasPrefix(line, "id: "):
			n, err := strconv.ParseUint(strings.TrimPrefix(line, "id: "), 10, 64)
			if err == nil {
				seq = n
			}
		case strings.HasPrefix(line, "event: "):
			kind = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data.WriteString(strings.TrimPrefix(line, "data: "))
		}
	}
	return scanner.Err()
}
