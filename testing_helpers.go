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
	"sync"
)

// MockTransport is an in-memory Transport for tests. Bytes queued with
// Inject are returned by ReadByte; written bytes are captured. A write
// budget limits how many bytes CanWrite admits, to exercise partial sends.
type MockTransport struct {
	initErr  error
	readErr  error
	writeErr error
	rx       []byte
	tx       []byte
	mu       sync.Mutex
	budget   int
	inits    int
	closed   bool
}

// NewMockTransport creates a mock transport with unlimited write capacity
func NewMockTransport() *MockTransport {
	return &MockTransport{budget: -1}
}

// Init implements Transport
func (m *MockTransport) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits++
	return m.initErr
}

// HasData implements Transport
func (m *MockTransport) HasData() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rx) > 0
}

// ReadByte implements Transport
func (m *MockTransport) ReadByte() (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return 0, m.readErr
	}
	if len(m.rx) == 0 {
		return 0, errors.New("mock: no data")
	}
	b := m.rx[0]
	m.rx = m.rx[1:]
	return b, nil
}

// WriteByte implements Transport
func (m *MockTransport) WriteByte(b byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.budget == 0 {
		return errors.New("mock: write budget exhausted")
	}
	if m.budget > 0 {
		m.budget--
	}
	m.tx = append(m.tx, b)
	return nil
}

// CanWrite implements Transport
func (m *MockTransport) CanWrite() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.budget != 0
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Inject queues bytes to be received
func (m *MockTransport) Inject(data ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx = append(m.rx, data...)
}

// Pending returns the number of injected bytes not yet read
func (m *MockTransport) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rx)
}

// SetWriteBudget limits CanWrite to n more bytes; a negative n is unlimited
func (m *MockTransport) SetWriteBudget(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budget = n
}

// Written returns a copy of every byte written so far
func (m *MockTransport) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.tx...)
}

// ClearWritten discards captured output
func (m *MockTransport) ClearWritten() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tx = nil
}

// SetInitError makes Init fail with err
func (m *MockTransport) SetInitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
}

// SetReadError makes ReadByte fail with err
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetWriteError makes WriteByte fail with err
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// InitCount returns how many times Init was called
func (m *MockTransport) InitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inits
}

// IsClosed reports whether Close was called
func (m *MockTransport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
