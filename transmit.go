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

import (
	"fmt"

	"github.com/ZaparooProject/go-mctp/internal/frame"
)

// slotKind identifies the transmit slot currently being drained
type slotKind uint8

const (
	slotNone slotKind = iota
	slotPrimary
	slotEvent
)

// txSlot is the resumption state of one frame being transmitted. It records
// exactly enough to continue mid-frame, including between the two bytes of
// an escape sequence.
type txSlot struct {
	total      int
	idx        int
	escPending bool
	escByte    byte
}

// byteWriter is the write half of a Transport
type byteWriter interface {
	WriteByte(b byte) error
	CanWrite() bool
}

// drain writes frm from the saved position while w has capacity. It returns
// the number of wire bytes written and whether the frame is complete.
func (s *txSlot) drain(frm []byte, w byteWriter) (int, bool, error) {
	bodyLen := 0
	if len(frm) > frame.OffsetByteCount {
		bodyLen = int(frm[frame.OffsetByteCount])
	}

	sent := 0
	for s.idx < s.total {
		if !w.CanWrite() {
			return sent, false, nil
		}

		if s.escPending {
			if err := w.WriteByte(s.escByte); err != nil {
				return sent, false, err
			}
			sent++
			s.escPending = false
			s.idx++
			continue
		}

		b := frm[s.idx]
		if frame.Stuffed(s.idx, bodyLen) && (b == frame.Sentinel || b == frame.Escape) {
			if err := w.WriteByte(frame.Escape); err != nil {
				return sent, false, err
			}
			sent++
			// the second byte goes out on the next pass, possibly next call
			s.escByte = b - frame.EscapeDelta
			s.escPending = true
			continue
		}

		if err := w.WriteByte(b); err != nil {
			return sent, false, err
		}
		sent++
		s.idx++
	}
	return sent, true, nil
}

// eventSlot holds one endpoint-originated frame awaiting transmission
type eventSlot struct {
	buf     []byte
	tx      txSlot
	pending bool
}

func (s *eventSlot) clear() {
	s.tx = txSlot{}
	s.pending = false
}

// Drain transmits as much of the current frame as the transport accepts and
// returns the number of wire bytes written this call, so an escaped byte
// counts twice. It never blocks and may be called at any time; when nothing
// is queued it returns 0 immediately.
//
// With no frame in progress a pending event is sent first, then a built
// response. Only one frame is on the wire at a time.
func (e *Endpoint) Drain() (int, error) {
	if e.active == slotNone && !e.selectSlot() {
		return 0, nil
	}

	var (
		frm  []byte
		slot *txSlot
	)
	switch e.active {
	case slotPrimary:
		frm, slot = e.buf.data[:e.primary.total], &e.primary
	case slotEvent:
		frm, slot = e.event.buf[:e.event.tx.total], &e.event.tx
	default:
		return 0, nil
	}

	sent, done, err := slot.drain(frm, e.transport)
	e.stats.bytesSent.Add(uint64(sent))
	if err != nil {
		return sent, e.transportError("WriteByte", fmt.Errorf("%w: %w", ErrTransportWrite, err))
	}
	if done {
		e.completeSlot()
	}
	return sent, nil
}

// selectSlot activates the next slot to transmit, if any
func (e *Endpoint) selectSlot() bool {
	if e.event != nil && e.event.pending {
		e.active = slotEvent
		return true
	}

	if e.state == stateAwaitingResponse && e.built {
		total := int(e.buf.data[frame.OffsetByteCount]) + frame.Overhead
		if total > len(e.buf.data) {
			total = len(e.buf.data)
		}
		e.primary = txSlot{total: total}
		e.state = stateSendingResponse
		e.active = slotPrimary
		return true
	}
	return false
}

func (e *Endpoint) completeSlot() {
	switch e.active {
	case slotNone:
	case slotPrimary:
		e.primary = txSlot{}
		e.stats.responses.Add(1)
		if e.assignEID {
			e.debugf("endpoint ID 0x%02X -> 0x%02X", e.eid, e.newEID)
			e.eid = e.newEID
			e.assignEID = false
		}
		// ready for the next request
		e.resetReceive()
	case slotEvent:
		e.event.clear()
		e.stats.events.Add(1)
	}
	e.active = slotNone
}

// EnqueueEvent copies a logical (unstuffed) frame into the event slot for
// prioritized transmission. It never blocks.
func (e *Endpoint) EnqueueEvent(frm []byte) error {
	if e.event == nil {
		return ErrEventsDisabled
	}
	if len(frm) > len(e.event.buf) {
		return fmt.Errorf("%w: %d > %d bytes", ErrEventTooLarge, len(frm), len(e.event.buf))
	}
	if e.event.pending {
		return ErrEventSlotBusy
	}

	copy(e.event.buf, frm)
	e.event.tx = txSlot{total: len(frm)}
	e.event.pending = true
	return nil
}

// IsEventQueueEmpty reports whether the event slot is free
func (e *Endpoint) IsEventQueueEmpty() bool {
	return e.event == nil || !e.event.pending
}

// BuildEventFrame builds a logical single-frame message from this endpoint
// to dest, ready for EnqueueEvent. payload follows the message type byte.
func (e *Endpoint) BuildEventFrame(dest, msgType byte, payload []byte) ([]byte, error) {
	body := make([]byte, 0, 5+len(payload))
	body = append(body,
		frame.HeaderVersion,
		dest,
		e.eid,
		frame.FlagSOM|frame.FlagEOM|frame.FlagTagOwner,
		msgType,
	)
	body = append(body, payload...)

	frm, err := frame.Encode(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event frame: %w", err)
	}
	return frm, nil
}
