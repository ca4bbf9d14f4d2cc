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

// validateFrame checks a complete candidate frame held in frm: minimum size,
// declared length and frame check sequence. It has no side effects.
func validateFrame(frm []byte) (DropReason, bool) {
	n := len(frm)
	if n < frame.MinFrameLength {
		return DropRunt, false
	}

	if int(frm[frame.OffsetByteCount]) != n-frame.Overhead {
		return DropLengthMismatch, false
	}

	fcs := frame.Checksum(frm[frame.OffsetProtocolVersion : n-3])
	if fcs != frame.ReadChecksum(frm[n-3:n-1]) {
		return DropChecksum, false
	}
	return DropNone, true
}

// admits applies the destination filter: the null EID, broadcast, or this
// endpoint's own ID
func (e *Endpoint) admits(dest byte) bool {
	return dest == frame.NullEID || dest == frame.BroadcastEID || dest == e.eid
}
