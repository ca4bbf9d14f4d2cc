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

package polling

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	mctp "github.com/ZaparooProject/go-mctp"
	testutil "github.com/ZaparooProject/go-mctp/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventuallyTimeout = 2 * time.Second

func newTestActor(t *testing.T, handlers Handlers, opts ...mctp.Option) (*EndpointActor, *mctp.MockTransport) {
	t.Helper()
	mock := mctp.NewMockTransport()
	ep, err := mctp.New(mock, opts...)
	require.NoError(t, err)
	require.NoError(t, ep.Init())

	actor, err := NewEndpointActor(ep, nil, handlers, nil)
	require.NoError(t, err)
	require.NoError(t, actor.Start(context.Background()))
	t.Cleanup(func() { _ = actor.Stop(context.Background()) })
	return actor, mock
}

// waitFrames waits until n complete frames have been written
func waitFrames(t *testing.T, mock *mctp.MockTransport, n int) [][]byte {
	t.Helper()
	var frames [][]byte
	require.Eventually(t, func() bool {
		var err error
		frames, err = testutil.SplitFrames(mock.Written())
		return err == nil && len(frames) == n
	}, eventuallyTimeout, time.Millisecond)
	return frames
}

func TestNewEndpointActor_Validation(t *testing.T) {
	t.Parallel()
	_, err := NewEndpointActor(nil, nil, Handlers{}, nil)
	require.ErrorIs(t, err, mctp.ErrInvalidParameter)

	ep, err := mctp.New(mctp.NewMockTransport())
	require.NoError(t, err)
	_, err = NewEndpointActor(ep, &Config{UpdateInterval: 0, BurstLimit: 1}, Handlers{}, nil)
	require.ErrorIs(t, err, mctp.ErrInvalidParameter)
	_, err = NewEndpointActor(ep, &Config{UpdateInterval: time.Millisecond}, Handlers{}, nil)
	require.ErrorIs(t, err, mctp.ErrInvalidParameter)
}

func TestEndpointActor_AnswersControl(t *testing.T) {
	t.Parallel()
	actor, mock := newTestActor(t, Handlers{})

	mock.Inject(testutil.Wire(testutil.BuildControlRequest(0x00, 0x08, mctp.CmdSetEndpointID, 0x00, 0x0B))...)
	waitFrames(t, mock, 1)

	mock.ClearWritten()
	mock.Inject(testutil.Wire(testutil.BuildControlRequest(0x0B, 0x08, mctp.CmdGetEndpointID))...)
	frames := waitFrames(t, mock, 1)

	assert.Equal(t, byte(0x0B), frames[0][5], "response comes from the new EID")
	assert.Equal(t, byte(0x0B), frames[0][11])
	require.Eventually(t, func() bool {
		return actor.GetMetrics().ControlHandled == 2
	}, eventuallyTimeout, time.Millisecond)
	assert.Equal(t, uint64(2), actor.Stats().Responses)
}

func TestEndpointActor_RoutesPLDM(t *testing.T) {
	t.Parallel()
	var got atomic.Value
	actor, mock := newTestActor(t, Handlers{
		OnPLDM: func(msg []byte) ([]byte, error) {
			got.Store(append([]byte(nil), msg...))
			return []byte{0x00, 0x02, 0x00}, nil
		},
	})

	mock.Inject(testutil.Wire(testutil.BuildMessage(0x00, 0x08, mctp.MessageTypePLDM, 0x81, 0x02))...)
	frames := waitFrames(t, mock, 1)

	assert.Equal(t, []byte{mctp.MessageTypePLDM, 0x81, 0x02}, got.Load())
	assert.Equal(t, testutil.BuildFrame(0x01, 0x08, 0x00, 0xC0, mctp.MessageTypePLDM, 0x00, 0x02, 0x00), frames[0])
	require.Eventually(t, func() bool {
		return actor.GetMetrics().PLDMHandled == 1
	}, eventuallyTimeout, time.Millisecond)
}

func TestEndpointActor_IgnoresUnhandled(t *testing.T) {
	t.Parallel()
	var errs atomic.Int32
	actor, mock := newTestActor(t, Handlers{
		OnPLDM: func([]byte) ([]byte, error) {
			return nil, errors.New("handler failed")
		},
		OnError: func(error) { errs.Add(1) },
	})

	mock.Inject(testutil.Wire(testutil.BuildMessage(0x00, 0x08, 0x7F, 0x01))...)
	mock.Inject(testutil.Wire(testutil.BuildMessage(0x00, 0x08, mctp.MessageTypePLDM, 0x81, 0x02))...)

	require.Eventually(t, func() bool {
		return actor.GetMetrics().Ignored == 2
	}, eventuallyTimeout, time.Millisecond)
	assert.Equal(t, int32(1), errs.Load())
	assert.Empty(t, mock.Written())

	// still serving after the ignored packets
	mock.Inject(testutil.Wire(testutil.BuildControlRequest(0x00, 0x08, mctp.CmdGetEndpointID))...)
	waitFrames(t, mock, 1)
}

func TestEndpointActor_SubmitEvent(t *testing.T) {
	t.Parallel()
	actor, mock := newTestActor(t, Handlers{}, mctp.WithEventSlot(0))

	first := testutil.BuildFrame(0x01, 0x08, 0x00, 0xC8, mctp.MessageTypePLDM, 0x01)
	second := testutil.BuildFrame(0x01, 0x08, 0x00, 0xC8, mctp.MessageTypePLDM, 0x02)
	require.NoError(t, actor.SubmitEvent(first))
	require.NoError(t, actor.SubmitEvent(second))

	frames := waitFrames(t, mock, 2)
	assert.Equal(t, first, frames[0])
	assert.Equal(t, second, frames[1])
	require.Eventually(t, func() bool {
		return actor.GetMetrics().EventsSent == 2
	}, eventuallyTimeout, time.Millisecond)
}

func TestEndpointActor_EventQueueFull(t *testing.T) {
	t.Parallel()
	ep, err := mctp.New(mctp.NewMockTransport(), mctp.WithEventSlot(0))
	require.NoError(t, err)
	actor, err := NewEndpointActor(ep, &Config{UpdateInterval: time.Millisecond, BurstLimit: 1, EventQueue: 1},
		Handlers{}, nil)
	require.NoError(t, err)

	require.NoError(t, actor.SubmitEvent([]byte{0x7E}))
	require.ErrorIs(t, actor.SubmitEvent([]byte{0x7E}), ErrEventQueueFull)
}

func TestEndpointActor_EventSlotDisabled(t *testing.T) {
	t.Parallel()
	var lastErr atomic.Value
	actor, _ := newTestActor(t, Handlers{
		OnError: func(err error) { lastErr.Store(err) },
	})

	require.NoError(t, actor.SubmitEvent(testutil.BuildFrame(0x01)))
	require.Eventually(t, func() bool {
		err, ok := lastErr.Load().(error)
		return ok && errors.Is(err, mctp.ErrEventsDisabled)
	}, eventuallyTimeout, time.Millisecond)
}

func TestEndpointActor_StartStop(t *testing.T) {
	t.Parallel()
	ep, err := mctp.New(mctp.NewMockTransport())
	require.NoError(t, err)
	actor, err := NewEndpointActor(ep, nil, Handlers{}, nil)
	require.NoError(t, err)

	require.NoError(t, actor.Stop(context.Background()), "stop before start")
	require.NoError(t, actor.Start(context.Background()))
	require.ErrorIs(t, actor.Start(context.Background()), ErrActorRunning)

	require.Eventually(t, func() bool {
		return actor.GetMetrics().Cycles > 0
	}, eventuallyTimeout, time.Millisecond)

	require.NoError(t, actor.Stop(context.Background()))
	require.NoError(t, actor.Stop(context.Background()))

	// restart after stop
	require.NoError(t, actor.Start(context.Background()))
	require.NoError(t, actor.Stop(context.Background()))
}

func TestEndpointActor_ContextCancel(t *testing.T) {
	t.Parallel()
	ep, err := mctp.New(mctp.NewMockTransport())
	require.NoError(t, err)
	actor, err := NewEndpointActor(ep, nil, Handlers{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, actor.Start(ctx))
	done := actor.Done()
	cancel()

	select {
	case <-done:
	case <-time.After(eventuallyTimeout):
		t.Fatal("loop did not exit on cancel")
	}
	require.NoError(t, actor.Start(context.Background()))
	require.NoError(t, actor.Stop(context.Background()))
}

func TestEndpointActor_StopsOnPermanentFailure(t *testing.T) {
	t.Parallel()
	var errs atomic.Int32
	actor, mock := newTestActor(t, Handlers{OnError: func(error) { errs.Add(1) }})
	done := actor.Done()

	dead := mctp.NewTransportError("Read", "mock", mctp.ErrTransportRead, mctp.ErrorTypePermanent)
	mock.SetReadError(dead)
	mock.Inject(0x7E)

	select {
	case <-done:
	case <-time.After(eventuallyTimeout):
		t.Fatal("loop kept running on a dead transport")
	}
	require.ErrorIs(t, actor.Err(), mctp.ErrTransportRead)
	assert.False(t, mctp.IsRetryable(actor.Err()))
	assert.Equal(t, int32(1), errs.Load())
	require.NoError(t, actor.Stop(context.Background()))
}

func TestEndpointActor_KeepsRunningOnTransientFailure(t *testing.T) {
	t.Parallel()
	var errs atomic.Int32
	actor, mock := newTestActor(t, Handlers{OnError: func(error) { errs.Add(1) }})

	mock.SetReadError(errors.New("glitch"))
	mock.Inject(0x00)
	require.Eventually(t, func() bool { return errs.Load() >= 2 }, eventuallyTimeout, time.Millisecond)

	mock.SetReadError(nil)
	mock.Inject(testutil.Wire(testutil.BuildControlRequest(0x00, 0x08, mctp.CmdGetEndpointID))...)
	waitFrames(t, mock, 1)
	assert.NoError(t, actor.Err())
}

func TestEndpointActor_CountsControlOnce(t *testing.T) {
	t.Parallel()
	actor, mock := newTestActor(t, Handlers{}, mctp.WithEventSlot(0))

	// the event is sent while a response waits, so the packet stays available
	// across several cycles
	mock.SetWriteBudget(0)
	event := testutil.BuildMessage(0x08, 0x00, mctp.MessageTypePLDM, 0x01)
	require.NoError(t, actor.SubmitEvent(event))
	mock.Inject(testutil.Wire(testutil.BuildControlRequest(0x00, 0x08, mctp.CmdGetEndpointID))...)

	require.Eventually(t, func() bool {
		return actor.GetMetrics().ControlHandled == 1 && actor.GetMetrics().Cycles > 20
	}, eventuallyTimeout, time.Millisecond)

	mock.SetWriteBudget(-1)
	waitFrames(t, mock, 2)
	m := actor.GetMetrics()
	assert.Equal(t, int64(1), m.ControlHandled)
	assert.Zero(t, m.Ignored)
	assert.Zero(t, m.Errors)
}
