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

// Package polling drives an MCTP endpoint from a dedicated goroutine
package polling

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	mctp "github.com/ZaparooProject/go-mctp"
	"go.uber.org/zap"
)

// Actor errors
var (
	ErrActorRunning   = errors.New("actor already running")
	ErrEventQueueFull = errors.New("event queue full")
)

// Handlers defines callbacks for packets the endpoint does not answer itself
type Handlers struct {
	// OnPLDM receives a PLDM message, from the message type byte through the
	// last payload byte, and returns the response bytes that follow the
	// message type. A nil response ignores the request.
	OnPLDM func(msg []byte) ([]byte, error)
	// OnError is called for transport and handler errors
	OnError func(err error)
}

// ActorMetrics tracks operational metrics for EndpointActor
type ActorMetrics struct {
	Cycles           int64         // Total number of service cycles
	Updates          int64         // Endpoint Update calls
	ControlHandled   int64         // Control requests answered
	PLDMHandled      int64         // PLDM requests answered
	Ignored          int64         // Packets dropped without a response
	Errors           int64         // Transport and handler errors
	EventsSent       int64         // Event frames handed to the endpoint
	LastCycleLatency time.Duration // Duration of the last cycle
}

// EndpointActor owns an Endpoint and services it on a ticker: it feeds
// received bytes, answers control requests, routes PLDM to a handler and
// moves queued events into the endpoint's event slot. Only the actor
// goroutine touches the endpoint while it runs.
type EndpointActor struct {
	endpoint *mctp.Endpoint
	config   *Config
	log      *zap.SugaredLogger
	handlers Handlers
	events   chan []byte
	stopChan chan struct{}
	doneChan chan struct{}
	// Atomic counters for metrics
	cycles           atomic.Int64
	updates          atomic.Int64
	controlHandled   atomic.Int64
	pldmHandled      atomic.Int64
	ignored          atomic.Int64
	errCount         atomic.Int64
	eventsSent       atomic.Int64
	lastCycleLatency atomic.Int64
	err              error
	mu               sync.Mutex
	running          bool
}

// NewEndpointActor creates a new actor for endpoint. A nil config uses
// DefaultConfig and a nil logger disables logging.
func NewEndpointActor(
	endpoint *mctp.Endpoint, config *Config, handlers Handlers, logger *zap.Logger,
) (*EndpointActor, error) {
	if endpoint == nil {
		return nil, mctp.ErrInvalidParameter
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EndpointActor{
		endpoint: endpoint,
		config:   config,
		log:      logger.Named("actor").Sugar(),
		handlers: handlers,
		events:   make(chan []byte, config.EventQueue),
	}, nil
}

// Start begins servicing the endpoint until Stop is called or ctx is done
func (a *EndpointActor) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return ErrActorRunning
	}
	a.running = true
	a.err = nil
	a.stopChan = make(chan struct{})
	a.doneChan = make(chan struct{})

	go a.loop(ctx, a.stopChan, a.doneChan)
	return nil
}

// Stop ends the loop and waits for it, or for ctx
func (a *EndpointActor) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	close(a.stopChan)
	done := a.doneChan
	a.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the permanent transport error that stopped the loop, if any
func (a *EndpointActor) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Done is closed when a started loop exits
func (a *EndpointActor) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doneChan
}

// SubmitEvent queues a logical event frame for the endpoint's event slot.
// It is safe to call from any goroutine and never blocks.
func (a *EndpointActor) SubmitEvent(frm []byte) error {
	select {
	case a.events <- append([]byte(nil), frm...):
		return nil
	default:
		return ErrEventQueueFull
	}
}

// GetMetrics returns current operational metrics
func (a *EndpointActor) GetMetrics() ActorMetrics {
	return ActorMetrics{
		Cycles:           a.cycles.Load(),
		Updates:          a.updates.Load(),
		ControlHandled:   a.controlHandled.Load(),
		PLDMHandled:      a.pldmHandled.Load(),
		Ignored:          a.ignored.Load(),
		Errors:           a.errCount.Load(),
		EventsSent:       a.eventsSent.Load(),
		LastCycleLatency: time.Duration(a.lastCycleLatency.Load()),
	}
}

// Stats returns the endpoint counters. Safe from any goroutine.
func (a *EndpointActor) Stats() mctp.Stats {
	return a.endpoint.Stats()
}

func (a *EndpointActor) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(a.config.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			err := a.cycle()
			a.cycles.Add(1)
			a.lastCycleLatency.Store(time.Since(start).Nanoseconds())
			if err != nil {
				a.log.Errorw("transport failed, stopping", "error", err)
				a.mu.Lock()
				a.running = false
				a.err = err
				a.mu.Unlock()
				return
			}
		case <-stop:
			return
		case <-ctx.Done():
			a.mu.Lock()
			a.running = false
			a.mu.Unlock()
			return
		}
	}
}

// cycle runs Update at least once and keeps going while input is waiting.
// It returns the error when the transport failed permanently.
func (a *EndpointActor) cycle() error {
	transport := a.endpoint.Transport()
	for i := 0; i < a.config.BurstLimit; i++ {
		a.feedEvent()

		a.updates.Add(1)
		if err := a.endpoint.Update(); err != nil {
			a.fail(err)
			if isPermanent(err) {
				return err
			}
			return nil
		}
		if a.endpoint.IsPacketAvailable() && !a.endpoint.HasResponse() {
			if err := a.dispatch(); isPermanent(err) {
				return err
			}
		}
		if !transport.HasData() {
			return nil
		}
	}
	return nil
}

// feedEvent moves one queued event into a free event slot
func (a *EndpointActor) feedEvent() {
	if !a.endpoint.IsEventQueueEmpty() {
		return
	}
	select {
	case frm := <-a.events:
		if err := a.endpoint.EnqueueEvent(frm); err != nil {
			a.fail(err)
			return
		}
		a.eventsSent.Add(1)
	default:
	}
}

// dispatch handles a packet that has no response yet. A transport error
// from the first Drain is returned after the response was built.
func (a *EndpointActor) dispatch() error {
	ep := a.endpoint
	switch {
	case ep.IsControlPacket():
		_, err := ep.ProcessControlMessage()
		if ep.HasResponse() {
			a.controlHandled.Add(1)
		}
		if err != nil {
			a.fail(err)
			return err
		}
	case ep.IsPLDMPacket():
		return a.handlePLDM()
	default:
		a.log.Debugf("ignoring message type 0x%02X", ep.MessageType())
		a.ignore()
	}
	return nil
}

func (a *EndpointActor) handlePLDM() error {
	if a.handlers.OnPLDM == nil {
		a.ignore()
		return nil
	}

	resp, err := a.handlers.OnPLDM(a.endpoint.Message())
	if err != nil {
		a.fail(err)
		a.ignore()
		return nil
	}
	if resp == nil {
		a.ignore()
		return nil
	}
	_, err = a.endpoint.Respond(resp)
	if a.endpoint.HasResponse() {
		a.pldmHandled.Add(1)
	} else {
		a.ignore()
	}
	if err != nil {
		a.fail(err)
		return err
	}
	return nil
}

func (a *EndpointActor) ignore() {
	a.endpoint.IgnorePacket()
	a.ignored.Add(1)
}

// isPermanent reports whether err is a transport failure that retrying will
// not clear
func isPermanent(err error) bool {
	var te *mctp.TransportError
	return errors.As(err, &te) && !mctp.IsRetryable(err)
}

func (a *EndpointActor) fail(err error) {
	a.errCount.Add(1)
	a.log.Warnw("endpoint error", "error", err)
	if a.handlers.OnError != nil {
		a.handlers.OnError(err)
	}
}
