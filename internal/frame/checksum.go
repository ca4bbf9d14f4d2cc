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
	"math/bits"

	"github.com/sigurn/crc16"
)

// InitialFCS is the seed for every frame check sequence.
const InitialFCS uint16 = 0xFFFF

// The serial binding uses the RFC 1662 FCS-16 without the final complement,
// which is the MCRF4XX parameter set.
var fcsTable = crc16.MakeTable(crc16.CRC16_MCRF4XX)

// RunningChecksum continues a frame check sequence from seed over data.
// Feeding the result back as the seed for a following slice gives the same
// value as one call over the concatenation.
func RunningChecksum(seed uint16, data []byte) uint16 {
	// crc16 keeps its register in non-reflected order; seeds and results are
	// in the reflected order used on the wire.
	crc := crc16.Update(bits.Reverse16(seed), data, fcsTable)
	return crc16.Complete(crc, fcsTable)
}

// Checksum computes the frame check sequence of data from InitialFCS.
func Checksum(data []byte) uint16 {
	return RunningChecksum(InitialFCS, data)
}

// PutChecksum stores fcs big-endian at b[0] and b[1].
func PutChecksum(b []byte, fcs uint16) {
	b[0] = byte(fcs >> 8)
	b[1] = byte(fcs)
}

// ReadChecksum decodes a big-endian frame check sequence from b[0] and b[1].
func ReadChecksum(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}
