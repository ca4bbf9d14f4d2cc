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

package uart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mctp "github.com/ZaparooProject/go-mctp"
	testutil "github.com/ZaparooProject/go-mctp/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakePort is an in-memory serial port
type fakePort struct {
	in          chan []byte
	closed      chan struct{}
	block       chan struct{}
	readErr     error
	writeErr    error
	written     []byte
	readTimeout time.Duration
	mu          sync.Mutex
	closeOnce   sync.Once
	writes      atomic.Int32
}

func newFakePort() *fakePort {
	return &fakePort{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	readErr, timeout := f.readErr, f.readTimeout
	f.mu.Unlock()
	if readErr != nil {
		return 0, readErr
	}

	select {
	case data := <-f.in:
		return copy(p, data), nil
	case <-f.closed:
		return 0, errors.New("port closed")
	case <-time.After(timeout):
		return 0, nil
	}
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.writes.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-f.closed:
			return 0, errors.New("port closed")
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.written = append(f.written, p...)
	return len(p), nil
}

func (f *fakePort) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakePort) SetReadTimeout(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readTimeout = d
	return nil
}

func (f *fakePort) Written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.written...)
}

func newTestTransport(t *testing.T, fake *fakePort, config Config) *Transport {
	t.Helper()
	if config.Port == "" {
		config.Port = "/dev/ttyTEST0"
	}
	tr, err := New(config)
	require.NoError(t, err)
	tr.open = func(string, *serial.Mode) (port, error) { return fake, nil }
	require.NoError(t, tr.Init())
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.ErrorIs(t, err, mctp.ErrInvalidParameter)

	tr, err := New(Config{Port: "/dev/ttyUSB0"})
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", tr.PortName())
	assert.Equal(t, mctp.TransportUART, tr.Type())
	assert.False(t, tr.IsConnected())
	assert.False(t, tr.HasData())
	assert.False(t, tr.CanWrite())
	require.ErrorIs(t, tr.WriteByte(0x7E), mctp.ErrTransportClosed)
}

func TestInit_OpensOnce(t *testing.T) {
	t.Parallel()
	fake := newFakePort()
	opens := 0
	var mode *serial.Mode

	tr, err := New(Config{Port: "/dev/ttyS0", BaudRate: 9600})
	require.NoError(t, err)
	tr.open = func(name string, m *serial.Mode) (port, error) {
		opens++
		mode = m
		assert.Equal(t, "/dev/ttyS0", name)
		return fake, nil
	}

	require.NoError(t, tr.Init())
	require.NoError(t, tr.Init())
	defer func() { _ = tr.Close() }()

	assert.Equal(t, 1, opens)
	assert.Equal(t, 9600, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
	assert.Equal(t, defaultReadTimeout, fake.readTimeout)
	assert.True(t, tr.IsConnected())
}

func TestInit_OpenError(t *testing.T) {
	t.Parallel()
	tr, err := New(Config{Port: "/dev/missing"})
	require.NoError(t, err)
	tr.open = func(string, *serial.Mode) (port, error) {
		return nil, errors.New("no such device")
	}

	err = tr.InitContext(context.Background())
	var te *mctp.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Open", te.Op)
	assert.Equal(t, "/dev/missing", te.Port)
	assert.False(t, tr.IsConnected())
}

func TestReadByte(t *testing.T) {
	t.Parallel()
	fake := newFakePort()
	tr := newTestTransport(t, fake, Config{})

	_, err := tr.ReadByte()
	require.ErrorIs(t, err, mctp.ErrTransportRead)

	fake.in <- []byte{0x7E, 0x01, 0x05}
	fake.in <- []byte{0x10}

	var got []byte
	require.Eventually(t, func() bool {
		for tr.HasData() {
			b, err := tr.ReadByte()
			if err != nil {
				return false
			}
			got = append(got, b)
		}
		return len(got) == 4
	}, time.Second, time.Millisecond)
	assert.Equal(t, []byte{0x7E, 0x01, 0x05, 0x10}, got)
}

func TestWriteByte(t *testing.T) {
	t.Parallel()
	fake := newFakePort()
	tr := newTestTransport(t, fake, Config{})

	for _, b := range []byte{0x7E, 0x7D, 0x5E} {
		require.True(t, tr.CanWrite())
		require.NoError(t, tr.WriteByte(b))
	}

	require.Eventually(t, func() bool {
		return len(fake.Written()) == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, []byte{0x7E, 0x7D, 0x5E}, fake.Written())
}

func TestWriteByte_Backpressure(t *testing.T) {
	t.Parallel()
	fake := newFakePort()
	fake.block = make(chan struct{})
	tr := newTestTransport(t, fake, Config{TxBuffer: 2})

	// the writer goroutine takes the first byte and blocks in Write
	require.NoError(t, tr.WriteByte(0x01))
	require.Eventually(t, func() bool { return fake.writes.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, tr.WriteByte(0x02))
	require.NoError(t, tr.WriteByte(0x03))
	assert.False(t, tr.CanWrite())
	require.ErrorIs(t, tr.WriteByte(0x04), mctp.ErrTransportWrite)

	close(fake.block)
	require.Eventually(t, func() bool {
		return len(fake.Written()) == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, fake.Written())
	assert.True(t, tr.CanWrite())
}

func TestReadFailure(t *testing.T) {
	t.Parallel()
	fake := newFakePort()
	fake.readErr = errors.New("device unplugged")
	tr := newTestTransport(t, fake, Config{})

	require.Eventually(t, func() bool { return !tr.CanWrite() }, time.Second, time.Millisecond)
	assert.True(t, tr.HasData(), "failure is reported through ReadByte")

	_, err := tr.ReadByte()
	require.ErrorIs(t, err, mctp.ErrTransportRead)
	assert.False(t, mctp.IsRetryable(err))
}

func TestEndpointOverUART_PortFailure(t *testing.T) {
	t.Parallel()
	fake := newFakePort()
	tr := newTestTransport(t, fake, Config{})

	ep, err := mctp.New(tr)
	require.NoError(t, err)
	require.NoError(t, ep.Init())

	fake.mu.Lock()
	fake.readErr = errors.New("device unplugged")
	fake.mu.Unlock()

	var updateErr error
	require.Eventually(t, func() bool {
		updateErr = ep.Update()
		return updateErr != nil
	}, 2*time.Second, time.Millisecond)

	require.ErrorIs(t, updateErr, mctp.ErrTransportRead)
	assert.False(t, mctp.IsRetryable(updateErr))
	var te *mctp.TransportError
	require.ErrorAs(t, updateErr, &te)
	assert.Equal(t, "ReadByte", te.Op)
}

func TestClose(t *testing.T) {
	t.Parallel()
	fake := newFakePort()
	tr := newTestTransport(t, fake, Config{})

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	assert.False(t, tr.IsConnected())
	select {
	case <-fake.closed:
	default:
		t.Fatal("port was not closed")
	}
	require.ErrorIs(t, tr.WriteByte(0x00), mctp.ErrTransportClosed)
}

func TestEndpointOverUART(t *testing.T) {
	t.Parallel()
	fake := newFakePort()
	tr := newTestTransport(t, fake, Config{})

	ep, err := mctp.New(tr)
	require.NoError(t, err)
	require.NoError(t, ep.Init())

	request := testutil.BuildControlRequest(0x00, 0x08, mctp.CmdGetEndpointID)
	fake.in <- testutil.Wire(request)

	require.Eventually(t, func() bool {
		if err := ep.Update(); err != nil {
			return false
		}
		if ep.IsPacketAvailable() {
			if _, err := ep.ProcessControlMessage(); err != nil {
				return false
			}
		}
		return len(fake.Written()) == 16
	}, 2*time.Second, time.Millisecond)

	frames, err := testutil.SplitFrames(fake.Written())
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, byte(0x08), frames[0][4])
}
