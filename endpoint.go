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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-mctp/internal/frame"
	"go.uber.org/zap"
)

// MinTransmissionUnit is the smallest body size that still fits every
// control response this endpoint builds.
const MinTransmissionUnit = 16

// EndpointConfig contains configuration options for an Endpoint
type EndpointConfig struct {
	// Versions answers Get Version Support for message types other than
	// control (0x00) and base (0xFF). Nil reports them unsupported.
	Versions VersionProvider
	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger
	// TransmissionUnit is the largest body the shared buffer can hold
	TransmissionUnit int
	// EventCapacity is the event slot buffer size; 0 uses the shared
	// buffer capacity. Only used when EventsEnabled is set.
	EventCapacity int
	// EventsEnabled enables the prioritized event transmit slot
	EventsEnabled bool
}

// DefaultEndpointConfig returns default endpoint configuration
func DefaultEndpointConfig() *EndpointConfig {
	return &EndpointConfig{
		TransmissionUnit: frame.BaselineTransmissionUnit,
	}
}

// frameBuffer is the single buffer that holds the inbound request and is
// then rewritten in place into the outbound response. n is the logical length.
type frameBuffer struct {
	data []byte
	n    int
}

func (b *frameBuffer) reset() {
	b.n = 0
}

func (b *frameBuffer) push(v byte) bool {
	if b.n >= len(b.data) {
		return false
	}
	b.data[b.n] = v
	b.n++
	return true
}

func (b *frameBuffer) frame() []byte {
	return b.data[:b.n]
}

// Endpoint is an MCTP serial endpoint: receive framer, control message
// processor and transmitter sharing one frame buffer.
//
// Thread Safety: Endpoint is NOT thread-safe. Update, Drain and the packet
// methods must be called from one goroutine. Stats may be called from any
// goroutine.
type Endpoint struct {
	transport Transport
	config    *EndpointConfig
	log       *zap.SugaredLogger
	event     *eventSlot
	buf       frameBuffer
	primary   txSlot
	stats     counters
	remaining int
	state     rxState
	active    slotKind
	eid       byte
	newEID    byte
	// built is set once the buffer holds a response ready for the primary slot
	built bool
	// assignEID applies newEID when the primary slot completes
	assignEID bool
}

// New creates a new MCTP endpoint on the given transport. The endpoint ID
// starts unassigned.
func New(transport Transport, opts ...Option) (*Endpoint, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}

	e := &Endpoint{
		transport: transport,
		config:    DefaultEndpointConfig(),
		eid:       frame.NullEID,
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	if err := e.applyConfig(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Endpoint) applyConfig() error {
	cfg := e.config
	unit := cfg.TransmissionUnit
	if unit < MinTransmissionUnit || unit > frame.MaxBodyLength {
		return fmt.Errorf("%w: transmission unit %d", ErrInvalidParameter, unit)
	}
	e.buf.data = make([]byte, unit+frame.Overhead)

	if cfg.EventsEnabled {
		capacity := cfg.EventCapacity
		if capacity == 0 {
			capacity = len(e.buf.data)
		}
		if capacity < 0 {
			return fmt.Errorf("%w: event capacity %d", ErrInvalidParameter, capacity)
		}
		e.event = &eventSlot{buf: make([]byte, capacity)}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	e.log = logger.Named("mctp").Sugar()
	return nil
}

// Init resets the framer to wait for a frame and initializes the transport.
// The endpoint ID is kept.
func (e *Endpoint) Init() error {
	e.resetReceive()
	e.primary = txSlot{}
	e.active = slotNone
	if e.event != nil {
		e.event.clear()
	}

	if err := e.transport.Init(); err != nil {
		return fmt.Errorf("failed to initialize transport: %w", err)
	}
	return nil
}

// Update consumes at most one inbound byte and then advances any pending
// transmission. It never blocks.
func (e *Endpoint) Update() error {
	if e.transport.HasData() {
		b, err := e.transport.ReadByte()
		if err != nil {
			return e.transportError("ReadByte", err)
		}
		e.receive(b)
	}

	if _, err := e.Drain(); err != nil {
		return err
	}
	return nil
}

// IsPacketAvailable reports whether a validated, admitted frame is waiting
// for a response.
func (e *Endpoint) IsPacketAvailable() bool {
	return e.state == stateAwaitingResponse
}

// HasResponse reports whether a response to the available packet has been
// built and is waiting for, or in, transmission
func (e *Endpoint) HasResponse() bool {
	return e.built
}

// MessageType returns the message type nibble of the available packet
func (e *Endpoint) MessageType() byte {
	return e.buf.data[frame.OffsetMessageType] & frame.MessageTypeMsk
}

// IsControlPacket reports whether the available packet is an MCTP control message
func (e *Endpoint) IsControlPacket() bool {
	return e.MessageType() == MessageTypeControl
}

// IsPLDMPacket reports whether the available packet carries PLDM, which is
// handled outside this package
func (e *Endpoint) IsPLDMPacket() bool {
	return e.MessageType() == MessageTypePLDM
}

// Message returns a copy of the available packet from the message type byte
// through the last payload byte, or nil when no packet is available.
func (e *Endpoint) Message() []byte {
	if !e.IsPacketAvailable() || e.built {
		return nil
	}
	end := e.buf.n - 3
	msg := make([]byte, end-frame.OffsetMessageType)
	copy(msg, e.buf.data[frame.OffsetMessageType:end])
	return msg
}

// IgnorePacket discards the available packet without responding
func (e *Endpoint) IgnorePacket() {
	if e.state != stateAwaitingResponse || e.built {
		return
	}
	e.stats.ignored.Add(1)
	e.resetReceive()
}

// EID returns the endpoint's assigned ID; 0x00 means unassigned
func (e *Endpoint) EID() byte {
	return e.eid
}

// Transport returns the underlying transport
func (e *Endpoint) Transport() Transport {
	return e.transport
}

// Close closes the underlying transport
func (e *Endpoint) Close() error {
	if err := e.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

func (e *Endpoint) resetReceive() {
	e.state = stateWaitSync
	e.buf.reset()
	e.remaining = 0
	e.built = false
}

// transportError wraps a transport failure, keeping the classification of an
// inner TransportError so a dead link is not reported as retryable
func (e *Endpoint) transportError(op string, err error) *TransportError {
	errType := ErrorTypeTransient
	var te *TransportError
	if errors.As(err, &te) {
		errType = te.Type
	}
	return NewTransportError(op, string(e.transport.Type()), err, errType)
}

func (e *Endpoint) debugf(format string, args ...any) {
	e.log.Debugf(format, args...)
}
