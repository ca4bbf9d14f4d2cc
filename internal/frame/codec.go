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

package frame

import (
	"errors"
	"fmt"
)

// Codec errors
var (
	ErrBodyTooLarge  = errors.New("frame body exceeds byte count field")
	ErrFrameTooShort = errors.New("frame too short")
	ErrBadDelimiter  = errors.New("frame not delimited by sentinel")
	ErrBadEscape     = errors.New("invalid escape sequence")
)

// Encode wraps body in a logical frame: sentinel, protocol version, byte
// count, body, FCS and trailing sentinel. The result is not byte-stuffed.
func Encode(body []byte) ([]byte, error) {
	if len(body) > MaxBodyLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(body))
	}

	frm := make([]byte, len(body)+Overhead)
	frm[0] = Sentinel
	frm[OffsetProtocolVersion] = SerialProtocolVersion
	frm[OffsetByteCount] = byte(len(body))
	copy(frm[OffsetHeaderVersion:], body)

	end := OffsetHeaderVersion + len(body)
	PutChecksum(frm[end:], Checksum(frm[OffsetProtocolVersion:end]))
	frm[end+2] = Sentinel
	return frm, nil
}

// Stuff returns the wire form of a logical frame, escaping sentinel and
// escape bytes in the body and the FCS high byte.
func Stuff(logical []byte) []byte {
	bodyLen := 0
	if len(logical) > OffsetByteCount {
		bodyLen = int(logical[OffsetByteCount])
	}

	out := make([]byte, 0, len(logical)+4)
	for i, b := range logical {
		if Stuffed(i, bodyLen) && (b == Sentinel || b == Escape) {
			out = append(out, Escape, b-EscapeDelta)
			continue
		}
		out = append(out, b)
	}
	return out
}

// Unstuff reverses Stuff for a single wire frame. The body and the FCS high
// byte are decoded; header, FCS low and trailer bytes are taken verbatim.
func Unstuff(wire []byte) ([]byte, error) {
	if len(wire) < MinFrameLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooShort, len(wire))
	}
	if wire[0] != Sentinel || wire[len(wire)-1] != Sentinel {
		return nil, ErrBadDelimiter
	}

	bodyLen := int(wire[OffsetByteCount])
	out := make([]byte, 0, bodyLen+Overhead)
	out = append(out, wire[:OffsetHeaderVersion]...)

	i := OffsetHeaderVersion
	// body bytes plus the FCS high byte
	for decoded := 0; decoded <= bodyLen; decoded++ {
		if i >= len(wire) {
			return nil, ErrFrameTooShort
		}
		b := wire[i]
		i++
		if b != Escape {
			out = append(out, b)
			continue
		}
		if i >= len(wire) {
			return nil, ErrBadEscape
		}
		next := wire[i]
		i++
		if next != Sentinel-EscapeDelta && next != Escape-EscapeDelta {
			return nil, fmt.Errorf("%w: 0x7D 0x%02X", ErrBadEscape, next)
		}
		out = append(out, next+EscapeDelta)
	}

	if len(wire)-i != 2 {
		return nil, fmt.Errorf("%w: expected 2 trailer bytes, got %d", ErrBadDelimiter, len(wire)-i)
	}
	return append(out, wire[i:]...), nil
}
