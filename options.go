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
	"fmt"

	"go.uber.org/zap"
)

// Option is a functional option for configuring an Endpoint
type Option func(*Endpoint) error

// WithConfig replaces the whole endpoint configuration
func WithConfig(config *EndpointConfig) Option {
	return func(e *Endpoint) error {
		if config == nil {
			return fmt.Errorf("%w: nil endpoint config", ErrInvalidParameter)
		}
		cfg := *config
		e.config = &cfg
		return nil
	}
}

// WithEventSlot enables the prioritized event transmit slot. A capacity of 0
// sizes the event buffer like the shared frame buffer.
func WithEventSlot(capacity int) Option {
	return func(e *Endpoint) error {
		if capacity < 0 {
			return fmt.Errorf("%w: event capacity %d", ErrInvalidParameter, capacity)
		}
		e.config.EventsEnabled = true
		e.config.EventCapacity = capacity
		return nil
	}
}

// WithTransmissionUnit sets the largest frame body the endpoint can hold
func WithTransmissionUnit(unit int) Option {
	return func(e *Endpoint) error {
		e.config.TransmissionUnit = unit
		return nil
	}
}

// WithVersionProvider registers versions for message types beyond control
// and base, such as PLDM
func WithVersionProvider(p VersionProvider) Option {
	return func(e *Endpoint) error {
		e.config.Versions = p
		return nil
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *zap.Logger) Option {
	return func(e *Endpoint) error {
		e.config.Logger = logger
		return nil
	}
}
