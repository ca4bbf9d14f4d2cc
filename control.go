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

// responseWriter appends response bytes into the shared buffer starting at a
// fixed offset. The request bytes it overwrites must be read first.
type responseWriter struct {
	buf []byte
	idx int
}

func (w *responseWriter) put(b ...byte) {
	w.idx += copy(w.buf[w.idx:], b)
}

// ProcessControlMessage answers the available control request. It rewrites
// the shared buffer into the response frame and starts transmitting it,
// returning the bytes written by that first Drain.
//
// Precondition: IsPacketAvailable is true and no response has been built.
// Otherwise it does nothing.
func (e *Endpoint) ProcessControlMessage() (int, error) {
	if !e.readyToRespond() {
		return 0, nil
	}

	switch cmd := e.buf.data[frame.OffsetCommandCode]; cmd {
	case CmdSetEndpointID:
		e.setEndpointID()
	case CmdGetEndpointID:
		e.getEndpointID()
	case CmdGetVersionSupport:
		e.getVersionSupport()
	case CmdGetMessageTypeSupport:
		e.getMessageTypeSupport()
	default:
		e.debugf("unsupported control command 0x%02X", cmd)
		e.unsupportedCommand()
	}
	return e.Drain()
}

func (e *Endpoint) readyToRespond() bool {
	return e.state == stateAwaitingResponse && !e.built
}

func (e *Endpoint) controlWriter() *responseWriter {
	return &responseWriter{buf: e.buf.data, idx: frame.OffsetCompletionCode}
}

func (e *Endpoint) setEndpointID() {
	req := e.buf.data[frame.OffsetCompletionCode:]
	operation := req[0] & setEIDOperationMask
	requested := req[1]

	completion := byte(CompletionSuccess)
	acceptance := byte(eidAccepted)
	switch {
	case operation == SetEIDOperationResetStatic, operation == SetEIDOperationSetDiscovery:
		// no static EID and no discovered flag on this endpoint
		completion = CompletionInvalidData
		acceptance = eidRejected
	case requested == frame.NullEID, requested == frame.BroadcastEID:
		completion = CompletionInvalidData
		acceptance = eidRejected
	}

	w := e.controlWriter()
	w.put(completion, acceptance, e.eid, eidPoolSize)
	e.finishControlResponse(w.idx)

	// addressing in the response uses the old ID; switch once it is on the wire
	if completion == CompletionSuccess {
		e.newEID = requested
		e.assignEID = true
		e.debugf("endpoint ID 0x%02X pending, current 0x%02X", requested, e.eid)
	}
}

func (e *Endpoint) getEndpointID() {
	w := e.controlWriter()
	w.put(CompletionSuccess, e.eid, endpointTypeSimple)
	e.finishControlResponse(w.idx)
}

func (e *Endpoint) getVersionSupport() {
	msgType := e.buf.data[frame.OffsetCompletionCode]

	version, ok := BaseVersion, true
	if msgType != MessageTypeControl && msgType != MessageTypeBase {
		version, ok = Version{}, false
		if e.config.Versions != nil {
			version, ok = e.config.Versions.SupportedVersion(msgType)
		}
	}

	w := e.controlWriter()
	if ok {
		v := version.Bytes()
		w.put(CompletionSuccess, versionEntryCount)
		w.put(v[:]...)
	} else {
		w.put(CompletionTypeNotSupported, versionUnsupportedEntries)
	}
	e.finishControlResponse(w.idx)
}

func (e *Endpoint) getMessageTypeSupport() {
	w := e.controlWriter()
	w.put(CompletionSuccess, supportedControlCommands)
	w.put(controlCommands[:]...)
	e.finishControlResponse(w.idx)
}

func (e *Endpoint) unsupportedCommand() {
	w := e.controlWriter()
	w.put(CompletionUnsupportedCmd)
	e.finishControlResponse(w.idx)
}

// finishControlResponse completes a control response whose payload ends at idx
func (e *Endpoint) finishControlResponse(idx int) {
	e.buf.data[frame.OffsetInstanceID] &^= frame.InstanceRQ
	e.finishResponse(idx)
}

// finishResponse turns the request header into the response header, then
// appends byte count, FCS and trailer for a body ending at idx.
//
// Postcondition: buf holds a complete logical frame of idx+3 bytes and the
// primary slot may start transmitting it.
func (e *Endpoint) finishResponse(idx int) {
	data := e.buf.data

	data[frame.OffsetFlags] ^= frame.FlagTagOwner
	data[frame.OffsetFlags] |= frame.FlagSOM | frame.FlagEOM

	data[frame.OffsetSource], data[frame.OffsetDestination] =
		data[frame.OffsetDestination], data[frame.OffsetSource]

	data[frame.OffsetByteCount] = byte(idx - frame.OffsetByteCount - 1)

	frame.PutChecksum(data[idx:], frame.Checksum(data[frame.OffsetProtocolVersion:idx]))
	data[idx+2] = frame.Sentinel

	e.buf.n = idx + 3
	e.built = true
}

// Respond builds a single-frame response to the available packet for a
// message type handled outside this package, such as PLDM. msg holds the
// bytes that follow the message type byte. The transmitter is started
// and the bytes written by that first Drain are returned.
func (e *Endpoint) Respond(msg []byte) (int, error) {
	if !e.readyToRespond() {
		return 0, ErrNoPacket
	}

	start := frame.OffsetMessageType + 1
	if start+len(msg)+3 > len(e.buf.data) {
		return 0, fmt.Errorf("%w: %d byte response", ErrDataTooLarge, len(msg))
	}

	w := &responseWriter{buf: e.buf.data, idx: start}
	w.put(msg...)
	e.finishResponse(w.idx)
	return e.Drain()
}
