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
	"testing"

	testutil "github.com/ZaparooProject/go-mctp/internal/testing"
	"github.com/stretchr/testify/require"
)

// newTestEndpoint creates an initialized endpoint on a mock transport
func newTestEndpoint(t *testing.T, opts ...Option) (*Endpoint, *MockTransport) {
	t.Helper()
	mock := NewMockTransport()
	ep, err := New(mock, opts...)
	require.NoError(t, err)
	require.NoError(t, ep.Init())
	return ep, mock
}

// feed injects wire bytes and runs Update until all of them are consumed
func feed(t *testing.T, ep *Endpoint, mock *MockTransport, wire []byte) {
	t.Helper()
	mock.Inject(wire...)
	for i := 0; mock.Pending() > 0; i++ {
		require.Less(t, i, 10*len(wire)+10, "update loop did not consume input")
		require.NoError(t, ep.Update())
	}
}

// drainAll calls Drain until nothing is left to send
func drainAll(t *testing.T, ep *Endpoint) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		n, err := ep.Drain()
		require.NoError(t, err)
		if n == 0 && ep.active == slotNone {
			return
		}
	}
	t.Fatal("drain did not finish")
}

// exchange sends one control request and returns the single logical
// response frame written by the endpoint
func exchange(t *testing.T, ep *Endpoint, mock *MockTransport, request []byte) []byte {
	t.Helper()
	mock.ClearWritten()
	feed(t, ep, mock, testutil.Wire(request))
	require.True(t, ep.IsPacketAvailable(), "request was not accepted")
	require.True(t, ep.IsControlPacket())

	_, err := ep.ProcessControlMessage()
	require.NoError(t, err)
	drainAll(t, ep)

	frames, err := testutil.SplitFrames(mock.Written())
	require.NoError(t, err)
	require.Len(t, frames, 1)
	return frames[0]
}

// loadResponse places a logical frame in the shared buffer as a built
// response awaiting transmission
func loadResponse(ep *Endpoint, frm []byte) {
	copy(ep.buf.data, frm)
	ep.buf.n = len(frm)
	ep.state = stateAwaitingResponse
	ep.built = true
}
