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

// Package frame provides wire constants, the frame check sequence and
// byte-stuffing helpers for the MCTP serial binding.
package frame

// Framing characters
const (
	Sentinel    = 0x7E // Frame start and end flag
	Escape      = 0x7D // Introduces a stuffed byte inside the body
	EscapeDelta = 0x20 // Stuffed byte = original - EscapeDelta
)

// Byte offsets within a logical (unstuffed) frame
const (
	OffsetProtocolVersion = 1
	OffsetByteCount       = 2
	OffsetHeaderVersion   = 3
	OffsetDestination     = 4
	OffsetSource          = 5
	OffsetFlags           = 6
	OffsetMessageType     = 7
	OffsetInstanceID      = 8
	OffsetCommandCode     = 9
	OffsetCompletionCode  = 10
)

// Header bit masks
const (
	FlagSOM        = 0x80 // Start of message
	FlagEOM        = 0x40 // End of message
	FlagTagOwner   = 0x08 // Tag owner, toggled on responses
	FlagsTagMask   = 0x07 // Message tag
	InstanceRQ     = 0x80 // Request bit of the control instance id
	MessageTypeMsk = 0x0F // Low nibble identifies the message type
)

// Protocol versions
const (
	SerialProtocolVersion = 0x01 // DSP0253 serial binding revision
	HeaderVersion         = 0x01 // MCTP transport header version
)

// Frame size limits
const (
	// Overhead is the number of framing bytes around the body:
	// SOF, protocol version, byte count, FCS high, FCS low, EOF.
	Overhead = 6
	// MinFrameLength is the smallest valid frame: framing plus a five byte body.
	MinFrameLength = 11
	// MaxBodyLength is bounded by the single byte count field.
	MaxBodyLength = 0xFF
	// BaselineTransmissionUnit is the default largest body carried per frame.
	BaselineTransmissionUnit = 64
)

// Endpoint ID values with special meaning
const (
	NullEID      = 0x00 // Unassigned, or destination "any endpoint"
	BroadcastEID = 0xFF // Broadcast destination
)

// Stuffed reports whether the byte at index i of a frame whose byte count
// field is bodyLen is subject to byte stuffing: the body and the FCS high
// byte. The FCS low byte and the framing bytes go out raw.
func Stuffed(i, bodyLen int) bool {
	return i >= OffsetHeaderVersion && i <= OffsetHeaderVersion+bodyLen
}
