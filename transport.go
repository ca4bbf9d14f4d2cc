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

// Transport is the byte-oriented link an Endpoint runs on. The four I/O
// methods must never block: the Endpoint only reads after HasData reports
// true and only writes after CanWrite reports true.
type Transport interface {
	// Init prepares the underlying hardware. It is called once from Endpoint.Init.
	Init() error

	// HasData reports whether ReadByte can return a byte immediately
	HasData() bool

	// ReadByte returns the next received byte
	ReadByte() (byte, error)

	// WriteByte queues one byte for transmission
	WriteByte(b byte) error

	// CanWrite reports whether WriteByte can accept a byte immediately
	CanWrite() bool

	// Close releases the transport
	Close() error

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents a UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportI2CBridge represents a UART behind an I2C bridge chip.
	TransportI2CBridge TransportType = "i2c-bridge"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)
