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

// Package testing provides frame builders and wire decoders for tests
package testing

import (
	"fmt"

	"github.com/ZaparooProject/go-mctp/internal/frame"
)

// Request header defaults: single frame, tag owner set, tag 0, instance 0
const (
	RequestFlags      = frame.FlagSOM | frame.FlagEOM | frame.FlagTagOwner
	RequestInstanceID = frame.InstanceRQ
	DefaultSourceEID  = 0x08
)

// BuildFrame builds a logical frame around body. It panics if body is too
// large, which only happens with a broken test.
func BuildFrame(body ...byte) []byte {
	frm, err := frame.Encode(body)
	if err != nil {
		panic(err)
	}
	return frm
}

// BuildMessage builds a logical single-frame message of msgType. payload
// follows the message type byte.
func BuildMessage(dest, src, msgType byte, payload ...byte) []byte {
	body := []byte{frame.HeaderVersion, dest, src, RequestFlags, msgType}
	return BuildFrame(append(body, payload...)...)
}

// BuildControlRequest builds a logical control request frame
func BuildControlRequest(dest, src, cmd byte, payload ...byte) []byte {
	msg := append([]byte{RequestInstanceID, cmd}, payload...)
	return BuildMessage(dest, src, 0x00, msg...)
}

// Wire returns the byte-stuffed wire form of a logical frame
func Wire(logical []byte) []byte {
	return frame.Stuff(logical)
}

// SplitFrames splits a stuffed byte stream into logical frames, using each
// frame's byte count to find its end.
func SplitFrames(wire []byte) ([][]byte, error) {
	var frames [][]byte
	for len(wire) > 0 {
		n, err := wireLength(wire)
		if err != nil {
			return frames, err
		}
		logical, err := frame.Unstuff(wire[:n])
		if err != nil {
			return frames, err
		}
		frames = append(frames, logical)
		wire = wire[n:]
	}
	return frames, nil
}

// wireLength returns the stuffed length of the frame at the start of wire
func wireLength(wire []byte) (int, error) {
	if len(wire) < frame.OffsetHeaderVersion || wire[0] != frame.Sentinel {
		return 0, fmt.Errorf("no frame start in % X", wire)
	}

	body := int(wire[frame.OffsetByteCount])
	i := frame.OffsetHeaderVersion
	for decoded := 0; decoded <= body; decoded++ {
		if i < len(wire) && wire[i] == frame.Escape {
			i++
		}
		i++
	}
	i += 2
	if i > len(wire) {
		return 0, fmt.Errorf("truncated frame: need %d bytes, have %d", i, len(wire))
	}
	return i, nil
}
