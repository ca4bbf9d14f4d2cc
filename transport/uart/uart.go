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

// Package uart provides a serial port transport for MCTP endpoints
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	mctp "github.com/ZaparooProject/go-mctp"
	"github.com/ZaparooProject/go-mctp/internal/transport"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the DSP0253 default serial rate
	DefaultBaudRate = 115200
	// defaultReadTimeout bounds each blocking read so Close is noticed
	defaultReadTimeout = 50 * time.Millisecond
	defaultBufferSize  = 256
	readChunkSize      = 64
)

// port is the subset of serial.Port the transport uses
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// opener opens a named serial port
type opener func(name string, mode *serial.Mode) (port, error)

func openSerial(name string, mode *serial.Mode) (port, error) {
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err //nolint:wrapcheck // classified by the caller
	}
	return p, nil
}

// Config contains UART transport settings
type Config struct {
	// Port is the device name, e.g. /dev/ttyUSB0 or COM3
	Port string
	// BaudRate defaults to DefaultBaudRate
	BaudRate int
	// ReadTimeout bounds each blocking read of the reader goroutine
	ReadTimeout time.Duration
	// RxBuffer and TxBuffer size the byte queues between the endpoint and
	// the port goroutines
	RxBuffer int
	TxBuffer int
	// OpenRetries is how many times a busy port is retried on Init
	OpenRetries int
	RetryDelay  time.Duration
}

func (c *Config) withDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.RxBuffer == 0 {
		c.RxBuffer = defaultBufferSize
	}
	if c.TxBuffer == 0 {
		c.TxBuffer = defaultBufferSize
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 100 * time.Millisecond
	}
}

// Transport implements mctp.Transport over a serial port. A reader goroutine
// moves received bytes into a bounded queue and a writer goroutine flushes
// queued bytes to the port, so every Transport method returns immediately.
//
// Thread Safety: the byte methods are meant for the single goroutine that
// drives the endpoint. Close may be called from any goroutine.
type Transport struct {
	port   port
	open   opener
	rx     chan byte
	tx     chan byte
	done   chan struct{}
	err    error
	config Config
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// New creates a new UART transport. The port is opened by Init.
func New(config Config) (*Transport, error) {
	if config.Port == "" {
		return nil, fmt.Errorf("%w: empty port name", mctp.ErrInvalidParameter)
	}
	config.withDefaults()
	return &Transport{config: config, open: openSerial}, nil
}

// Init opens the port and starts the reader and writer goroutines. It is a
// no-op on an already open transport.
func (t *Transport) Init() error {
	return t.InitContext(context.Background())
}

// InitContext is Init with cancellation of the open retries
func (t *Transport) InitContext(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port != nil {
		return nil
	}

	mode := &serial.Mode{
		BaudRate: t.config.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := transport.WithRetry(ctx, transport.RetryConfig{
		Description: t.config.Port,
		MaxRetries:  t.config.OpenRetries,
		RetryDelay:  t.config.RetryDelay,
	}, func() (port, bool, error) {
		p, err := t.open(t.config.Port, mode)
		if err == nil {
			return p, false, nil
		}
		if isBusy(err) {
			return nil, true, nil
		}
		return nil, false, mctp.NewTransportError("Open", t.config.Port, err, classify(err))
	})
	if err != nil {
		return err
	}

	if err := p.SetReadTimeout(t.config.ReadTimeout); err != nil {
		_ = p.Close()
		return mctp.NewTransportError("SetReadTimeout", t.config.Port, err, mctp.ErrorTypePermanent)
	}

	t.port = p
	t.err = nil
	t.rx = make(chan byte, t.config.RxBuffer)
	t.tx = make(chan byte, t.config.TxBuffer)
	t.done = make(chan struct{})

	t.wg.Add(2)
	go t.readLoop(p, t.rx, t.done)
	go t.writeLoop(p, t.tx, t.done)
	return nil
}

// HasData reports whether a received byte is queued. After the port fails
// it stays true so the next ReadByte reports the failure.
func (t *Transport) HasData() bool {
	if t.rx == nil {
		return false
	}
	return len(t.rx) > 0 || t.failure() != nil
}

// ReadByte returns the next queued byte without blocking
func (t *Transport) ReadByte() (byte, error) {
	if t.rx == nil {
		return 0, mctp.NewTransportError("ReadByte", t.config.Port, mctp.ErrTransportClosed, mctp.ErrorTypePermanent)
	}
	select {
	case b := <-t.rx:
		return b, nil
	default:
	}
	if err := t.failure(); err != nil {
		return 0, err
	}
	return 0, mctp.NewTransportError("ReadByte", t.config.Port, mctp.ErrTransportRead, mctp.ErrorTypeTransient)
}

// CanWrite reports whether WriteByte will accept a byte
func (t *Transport) CanWrite() bool {
	if t.tx == nil || t.failure() != nil {
		return false
	}
	return len(t.tx) < cap(t.tx)
}

// WriteByte queues one byte for transmission without blocking
func (t *Transport) WriteByte(b byte) error {
	if t.tx == nil {
		return mctp.NewTransportError("WriteByte", t.config.Port, mctp.ErrTransportClosed, mctp.ErrorTypePermanent)
	}
	if err := t.failure(); err != nil {
		return err
	}
	select {
	case t.tx <- b:
		return nil
	default:
		return mctp.NewTransportError("WriteByte", t.config.Port, mctp.ErrTransportWrite, mctp.ErrorTypeTransient)
	}
}

// Close stops the port goroutines and closes the port. Bytes still queued
// for transmission are discarded.
func (t *Transport) Close() error {
	t.mu.Lock()
	p := t.port
	if p == nil {
		t.mu.Unlock()
		return nil
	}
	t.port = nil
	t.err = mctp.NewTransportError("Close", t.config.Port, mctp.ErrTransportClosed, mctp.ErrorTypePermanent)
	close(t.done)
	t.mu.Unlock()

	err := p.Close()
	t.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", t.config.Port, err)
	}
	return nil
}

// Type returns the transport type
func (*Transport) Type() mctp.TransportType {
	return mctp.TransportUART
}

// PortName returns the configured port name
func (t *Transport) PortName() string {
	return t.config.Port
}

// IsConnected returns true if the port is open
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

func (t *Transport) readLoop(p port, rx chan<- byte, done <-chan struct{}) {
	defer t.wg.Done()
	buf := make([]byte, readChunkSize)

	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := p.Read(buf)
		if err != nil {
			t.fail(done, mctp.NewTransportError("Read", t.config.Port,
				fmt.Errorf("%w: %w", mctp.ErrTransportRead, err), mctp.ErrorTypePermanent))
			return
		}
		for _, b := range buf[:n] {
			select {
			case rx <- b:
			case <-done:
				return
			}
		}
	}
}

func (t *Transport) writeLoop(p port, tx <-chan byte, done <-chan struct{}) {
	defer t.wg.Done()
	batch := make([]byte, 0, cap(tx))

	for {
		select {
		case <-done:
			return
		case b := <-tx:
			batch = append(batch[:0], b)
		}

	collect:
		for len(batch) < cap(batch) {
			select {
			case b := <-tx:
				batch = append(batch, b)
			default:
				break collect
			}
		}

		if _, err := p.Write(batch); err != nil {
			t.fail(done, mctp.NewTransportError("Write", t.config.Port,
				fmt.Errorf("%w: %w", mctp.ErrTransportWrite, err), mctp.ErrorTypePermanent))
			return
		}
	}
}

// fail records the first goroutine error unless the transport is closing
func (t *Transport) fail(done <-chan struct{}, err error) {
	select {
	case <-done:
		return
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err == nil {
		t.err = err
	}
}

func (t *Transport) failure() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func isBusy(err error) bool {
	var portErr *serial.PortError
	return errors.As(err, &portErr) && portErr.Code() == serial.PortBusy
}

func classify(err error) mctp.ErrorType {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortBusy:
			return mctp.ErrorTypeTransient
		default:
			return mctp.ErrorTypePermanent
		}
	}
	return mctp.ErrorTypeTransient
}

// Ensure Transport implements mctp.Transport
var _ mctp.Transport = (*Transport)(nil)
