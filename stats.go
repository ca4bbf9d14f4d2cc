// go-mctp
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-mctp.
//
// go-mctp is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-mctp is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-mctp; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package mctp

import "sync/atomic"

// DropReason describes why an inbound frame was discarded without a response
type DropReason uint8

const (
	// DropNone means the frame was not dropped
	DropNone DropReason = iota
	// DropOversize means the declared length cannot fit the frame buffer
	DropOversize
	// DropInvalidEscape means an escape byte was followed by an illegal value
	DropInvalidEscape
	// DropMissingTrailer means the byte after the FCS was not a sentinel
	DropMissingTrailer
	// DropRunt means the frame was shorter than the minimum frame length
	DropRunt
	// DropLengthMismatch means the byte count disagrees with the bytes received
	DropLengthMismatch
	// DropChecksum means the frame check sequence did not match
	DropChecksum
	// DropNotAddressed means the destination EID is for another endpoint
	DropNotAddressed
)

func (r DropReason) String() string {
	switch r {
	case DropNone:
		return "none"
	case DropOversize:
		return "oversize"
	case DropInvalidEscape:
		return "invalid escape"
	case DropMissingTrailer:
		return "missing trailer"
	case DropRunt:
		return "runt"
	case DropLengthMismatch:
		return "length mismatch"
	case DropChecksum:
		return "checksum mismatch"
	case DropNotAddressed:
		return "not addressed"
	default:
		return "unknown"
	}
}

// dropReasons lists every reason a frame can be dropped, for exporters
var dropReasons = []DropReason{
	DropOversize, DropInvalidEscape, DropMissingTrailer, DropRunt,
	DropLengthMismatch, DropChecksum, DropNotAddressed,
}

// DropReasons returns every reason a frame can be dropped
func DropReasons() []DropReason {
	return append([]DropReason(nil), dropReasons...)
}

// Stats is a snapshot of endpoint counters
type Stats struct {
	Dropped       map[DropReason]uint64
	BytesReceived uint64
	BytesSent     uint64
	Accepted      uint64
	Resyncs       uint64
	BusyDiscarded uint64
	Ignored       uint64
	Responses     uint64
	Events        uint64
}

// counters holds the live atomic counters behind Stats
type counters struct {
	drops         [DropNotAddressed + 1]atomic.Uint64
	bytesReceived atomic.Uint64
	bytesSent     atomic.Uint64
	accepted      atomic.Uint64
	resyncs       atomic.Uint64
	busyDiscarded atomic.Uint64
	ignored       atomic.Uint64
	responses     atomic.Uint64
	events        atomic.Uint64
}

func (c *counters) dropped(reason DropReason) {
	if int(reason) < len(c.drops) {
		c.drops[reason].Add(1)
	}
}

// Stats returns a snapshot of the endpoint counters. It is safe to call from
// any goroutine.
func (e *Endpoint) Stats() Stats {
	c := &e.stats
	s := Stats{
		Dropped:       make(map[DropReason]uint64, len(dropReasons)),
		BytesReceived: c.bytesReceived.Load(),
		BytesSent:     c.bytesSent.Load(),
		Accepted:      c.accepted.Load(),
		Resyncs:       c.resyncs.Load(),
		BusyDiscarded: c.busyDiscarded.Load(),
		Ignored:       c.ignored.Load(),
		Responses:     c.responses.Load(),
		Events:        c.events.Load(),
	}
	for _, r := range dropReasons {
		s.Dropped[r] = c.drops[r].Load()
	}
	return s
}
