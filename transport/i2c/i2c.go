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

// Package i2c provides an MCTP serial transport through an SC16IS750
// I2C-to-UART bridge
package i2c

import (
	"context"
	"fmt"
	"time"

	mctp "github.com/ZaparooProject/go-mctp"
	"github.com/ZaparooProject/go-mctp/internal/transport"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the SC16IS750 address with A0 and A1 tied high
	DefaultAddress = 0x48

	// DefaultCrystal is the bridge oscillator frequency in Hz
	DefaultCrystal = 14745600

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz

	// fifoDepth is the size of each bridge FIFO
	fifoDepth = 64

	defaultResetTimeout = 50 * time.Millisecond
)

// SC16IS750 registers, channel A. The sub-address is the register shifted
// left by three.
const (
	regRHR   = 0x00 // receive holding (read)
	regTHR   = 0x00 // transmit holding (write)
	regFCR   = 0x02
	regLCR   = 0x03
	regSPR   = 0x07
	regTXLVL = 0x08
	regRXLVL = 0x09
	regDLL   = 0x00 // divisor latch, with LCR bit 7 set
	regDLH   = 0x01

	lcrDivisorLatch = 0x80
	lcr8N1          = 0x03
	fcrEnableReset  = 0x07
	probePattern    = 0x5A
)

// Config contains I2C bridge settings
type Config struct {
	// Bus is the periph bus name, e.g. "1" or "/dev/i2c-1"; empty opens
	// the first available bus
	Bus string
	// Address is the bridge I2C address
	Address uint16
	// BaudRate of the bridge UART
	BaudRate int
	// Crystal is the bridge oscillator frequency in Hz
	Crystal int
	// ProbeRetries bounds the scratchpad probe in Init
	ProbeRetries int
	RetryDelay   time.Duration
	// ResetTimeout bounds the wait for the transmit FIFO to report empty
	// after the FIFO reset in Init
	ResetTimeout time.Duration
}

// DefaultConfig returns the configuration for a bridge at DefaultAddress
func DefaultConfig() Config {
	return Config{
		Address:      DefaultAddress,
		BaudRate:     115200,
		Crystal:      DefaultCrystal,
		ProbeRetries: 3,
		RetryDelay:   10 * time.Millisecond,
		ResetTimeout: defaultResetTimeout,
	}
}

// Transport implements mctp.Transport on an SC16IS750 bridge. Received data
// and transmit room are read from the FIFO level registers and cached, so a
// burst of bytes costs one level read.
type Transport struct {
	dev     *i2c.Dev
	closer  i2c.BusCloser
	err     error
	busName string
	config  Config
	rxLevel int
	txRoom  int
}

// New opens the I2C bus through periph and returns a bridge transport
func New(config Config) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(config.Bus)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", config.Bus, err)
	}

	// Ignore error, continue with default speed
	_ = bus.SetSpeed(maxClockFreq)

	t, err := newTransport(bus, config)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	t.closer = bus
	return t, nil
}

func newTransport(bus i2c.Bus, config Config) (*Transport, error) {
	if config.Address == 0 {
		config.Address = DefaultAddress
	}
	if config.Crystal == 0 {
		config.Crystal = DefaultCrystal
	}
	if config.ResetTimeout == 0 {
		config.ResetTimeout = defaultResetTimeout
	}
	if config.BaudRate <= 0 || config.BaudRate*16 > config.Crystal {
		return nil, fmt.Errorf("%w: baud rate %d", mctp.ErrInvalidParameter, config.BaudRate)
	}

	return &Transport{
		dev:     &i2c.Dev{Addr: config.Address, Bus: bus},
		busName: bus.String(),
		config:  config,
	}, nil
}

// Init probes the bridge and programs the UART for 8N1 at the configured rate
func (t *Transport) Init() error {
	return t.InitContext(context.Background())
}

// InitContext is Init with cancellation of the probe retries
func (t *Transport) InitContext(ctx context.Context) error {
	t.err = nil
	t.rxLevel, t.txRoom = 0, 0

	_, err := transport.WithRetry(ctx, transport.RetryConfig{
		Description: t.busName,
		MaxRetries:  t.config.ProbeRetries,
		RetryDelay:  t.config.RetryDelay,
	}, func() (struct{}, bool, error) {
		return struct{}{}, !t.probe(), nil
	})
	if err != nil {
		return fmt.Errorf("bridge at 0x%02X not responding: %w", t.config.Address, err)
	}

	divisor := t.divisor()
	steps := []struct {
		reg, val byte
	}{
		{regLCR, lcrDivisorLatch},
		{regDLL, byte(divisor)},
		{regDLH, byte(divisor >> 8)},
		{regLCR, lcr8N1},
		{regFCR, fcrEnableReset},
	}
	for _, s := range steps {
		if err := t.writeReg(s.reg, s.val); err != nil {
			return mctp.NewTransportError("Init", t.busName, err, mctp.ErrorTypeTransient)
		}
	}

	room, err := transport.TimeoutRetry(ctx, t.config.ResetTimeout, t.config.RetryDelay,
		func() (int, bool, error) {
			level, err := t.readReg(regTXLVL)
			if err != nil {
				return 0, false, mctp.NewTransportError("Init", t.busName, err, mctp.ErrorTypeTransient)
			}
			return int(level), int(level) < fifoDepth, nil
		})
	if err != nil {
		return fmt.Errorf("bridge at 0x%02X FIFO reset: %w", t.config.Address, err)
	}
	t.txRoom = room
	return nil
}

// probe writes and reads back the scratchpad register
func (t *Transport) probe() bool {
	if err := t.writeReg(regSPR, probePattern); err != nil {
		return false
	}
	v, err := t.readReg(regSPR)
	return err == nil && v == probePattern
}

func (t *Transport) divisor() int {
	return t.config.Crystal / (16 * t.config.BaudRate)
}

// HasData reports whether the receive FIFO holds a byte. A failed level read
// reports false and is returned by the next ReadByte.
func (t *Transport) HasData() bool {
	if t.rxLevel > 0 {
		return true
	}
	level, err := t.readReg(regRXLVL)
	if err != nil {
		t.err = err
		return false
	}
	t.rxLevel = int(level)
	return t.rxLevel > 0
}

// ReadByte reads one byte from the receive FIFO
func (t *Transport) ReadByte() (byte, error) {
	if err := t.takeErr(); err != nil {
		return 0, mctp.NewTransportError("ReadByte", t.busName,
			fmt.Errorf("%w: %w", mctp.ErrTransportRead, err), mctp.ErrorTypeTransient)
	}
	b, err := t.readReg(regRHR)
	if err != nil {
		return 0, mctp.NewTransportError("ReadByte", t.busName,
			fmt.Errorf("%w: %w", mctp.ErrTransportRead, err), mctp.ErrorTypeTransient)
	}
	if t.rxLevel > 0 {
		t.rxLevel--
	}
	return b, nil
}

// CanWrite reports whether the transmit FIFO has room
func (t *Transport) CanWrite() bool {
	if t.txRoom > 0 {
		return true
	}
	room, err := t.readReg(regTXLVL)
	if err != nil {
		t.err = err
		return false
	}
	t.txRoom = min(int(room), fifoDepth)
	return t.txRoom > 0
}

// WriteByte writes one byte to the transmit FIFO
func (t *Transport) WriteByte(b byte) error {
	if err := t.takeErr(); err != nil {
		return mctp.NewTransportError("WriteByte", t.busName,
			fmt.Errorf("%w: %w", mctp.ErrTransportWrite, err), mctp.ErrorTypeTransient)
	}
	if err := t.writeReg(regTHR, b); err != nil {
		return mctp.NewTransportError("WriteByte", t.busName,
			fmt.Errorf("%w: %w", mctp.ErrTransportWrite, err), mctp.ErrorTypeTransient)
	}
	if t.txRoom > 0 {
		t.txRoom--
	}
	return nil
}

// Close closes the bus if this transport opened it
func (t *Transport) Close() error {
	if t.closer == nil {
		return nil
	}
	err := t.closer.Close()
	t.closer = nil
	if err != nil {
		return fmt.Errorf("failed to close I2C bus %s: %w", t.busName, err)
	}
	return nil
}

// Type returns the transport type
func (*Transport) Type() mctp.TransportType {
	return mctp.TransportI2CBridge
}

// BusName returns the name of the underlying bus
func (t *Transport) BusName() string {
	return t.busName
}

func (t *Transport) takeErr() error {
	err := t.err
	t.err = nil
	return err
}

func (t *Transport) readReg(reg byte) (byte, error) {
	var r [1]byte
	if err := t.dev.Tx([]byte{reg << 3}, r[:]); err != nil {
		return 0, fmt.Errorf("read register 0x%02X: %w", reg, err)
	}
	return r[0], nil
}

func (t *Transport) writeReg(reg, val byte) error {
	if err := t.dev.Tx([]byte{reg << 3, val}, nil); err != nil {
		return fmt.Errorf("write register 0x%02X: %w", reg, err)
	}
	return nil
}

// Ensure Transport implements mctp.Transport
var _ mctp.Transport = (*Transport)(nil)
