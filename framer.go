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

import "github.com/ZaparooProject/go-mctp/internal/frame"

// rxState is the shared framer/transmitter state
type rxState uint8

const (
	stateWaitSync rxState = iota
	stateHeader1
	stateHeader2
	stateBody
	stateFCS1
	stateFCS2
	stateEnd
	stateEscape
	stateAwaitingResponse
	stateSendingResponse
)

func (s rxState) String() string {
	switch s {
	case stateWaitSync:
		return "WaitSync"
	case stateHeader1:
		return "Header1"
	case stateHeader2:
		return "Header2"
	case stateBody:
		return "Body"
	case stateFCS1:
		return "FCS1"
	case stateFCS2:
		return "FCS2"
	case stateEnd:
		return "End"
	case stateEscape:
		return "Escape"
	case stateAwaitingResponse:
		return "AwaitingResponse"
	case stateSendingResponse:
		return "SendingResponse"
	default:
		return "Unknown"
	}
}

// rxEffect is the observable outcome of feeding one byte to the framer
type rxEffect uint8

const (
	effectNone rxEffect = iota
	effectStart
	effectResync
	effectDrop
	effectAccept
	effectBusy
)

// rxStep is the result of one framer transition
type rxStep struct {
	next   rxState
	effect rxEffect
	reason DropReason
}

func stay(s rxState) rxStep {
	return rxStep{next: s}
}

func drop(reason DropReason) rxStep {
	return rxStep{next: stateWaitSync, effect: effectDrop, reason: reason}
}

// receive feeds one inbound byte through the framer
func (e *Endpoint) receive(b byte) {
	e.stats.bytesReceived.Add(1)
	e.apply(e.transition(b))
}

func (e *Endpoint) transition(b byte) rxStep {
	switch e.state {
	case stateWaitSync:
		return e.onWaitSync(b)
	case stateHeader1:
		return e.onHeader1(b)
	case stateHeader2:
		return e.onHeader2(b)
	case stateBody:
		return e.onBody(b)
	case stateEscape:
		return e.onEscape(b)
	case stateFCS1:
		return e.onFCS(b, stateFCS2)
	case stateFCS2:
		return e.onFCS(b, stateEnd)
	case stateEnd:
		return e.onEnd(b)
	case stateAwaitingResponse, stateSendingResponse:
		// one packet at a time: anything arriving now is discarded
		return rxStep{next: e.state, effect: effectBusy}
	default:
		return stay(stateWaitSync)
	}
}

func (e *Endpoint) apply(step rxStep) {
	switch step.effect {
	case effectNone, effectStart:
	case effectResync:
		e.stats.resyncs.Add(1)
		e.debugf("unexpected sentinel in %s, restarting frame", e.state)
	case effectDrop:
		e.stats.dropped(step.reason)
		e.debugf("dropping frame in %s: %s", e.state, step.reason)
	case effectAccept:
		e.stats.accepted.Add(1)
		e.debugf("frame accepted: %d bytes for EID 0x%02X",
			e.buf.n, e.buf.data[frame.OffsetDestination])
	case effectBusy:
		e.stats.busyDiscarded.Add(1)
	}
	e.state = step.next
}

// startFrame resets the buffer and stores the opening sentinel
func (e *Endpoint) startFrame() {
	e.buf.reset()
	e.remaining = 0
	e.built = false
	e.buf.push(frame.Sentinel)
}

func (e *Endpoint) onWaitSync(b byte) rxStep {
	if b != frame.Sentinel {
		return stay(stateWaitSync)
	}
	e.startFrame()
	return rxStep{next: stateHeader1, effect: effectStart}
}

func (e *Endpoint) onHeader1(b byte) rxStep {
	e.buf.push(b)
	return stay(stateHeader2)
}

func (e *Endpoint) onHeader2(b byte) rxStep {
	e.buf.push(b)
	e.remaining = int(b)

	if e.remaining+e.buf.n+5 > len(e.buf.data) {
		return drop(DropOversize)
	}
	if e.remaining == 0 {
		return stay(stateFCS1)
	}
	return stay(stateBody)
}

func (e *Endpoint) onBody(b byte) rxStep {
	switch b {
	case frame.Escape:
		return stay(stateEscape)
	case frame.Sentinel:
		e.startFrame()
		return rxStep{next: stateHeader1, effect: effectResync}
	default:
		return e.storeBody(b)
	}
}

func (e *Endpoint) onEscape(b byte) rxStep {
	switch b {
	case frame.Sentinel - frame.EscapeDelta, frame.Escape - frame.EscapeDelta:
		return e.storeBody(b + frame.EscapeDelta)
	case frame.Sentinel:
		e.startFrame()
		return rxStep{next: stateHeader1, effect: effectResync}
	default:
		return drop(DropInvalidEscape)
	}
}

// storeBody appends a decoded body byte and counts it against the declared length
func (e *Endpoint) storeBody(b byte) rxStep {
	if !e.buf.push(b) {
		return drop(DropOversize)
	}
	e.remaining--
	if e.remaining == 0 {
		return stay(stateFCS1)
	}
	return stay(stateBody)
}

func (e *Endpoint) onFCS(b byte, next rxState) rxStep {
	if !e.buf.push(b) {
		return drop(DropOversize)
	}
	return stay(next)
}

func (e *Endpoint) onEnd(b byte) rxStep {
	if b != frame.Sentinel {
		return drop(DropMissingTrailer)
	}
	if !e.buf.push(b) {
		return drop(DropOversize)
	}

	frm := e.buf.frame()
	if reason, ok := validateFrame(frm); !ok {
		return drop(reason)
	}
	if !e.admits(frm[frame.OffsetDestination]) {
		return drop(DropNotAddressed)
	}
	return rxStep{next: stateAwaitingResponse, effect: effectAccept}
}
