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
	"fmt"
	"time"

	mctp "github.com/ZaparooProject/go-mctp"
)

// Config contains actor loop settings
type Config struct {
	// UpdateInterval is the pause between service cycles
	UpdateInterval time.Duration
	// BurstLimit caps the Update calls of one cycle while input keeps arriving
	BurstLimit int
	// EventQueue is the number of event frames that may wait for the
	// endpoint's event slot
	EventQueue int
}

// DefaultConfig returns default actor configuration
func DefaultConfig() *Config {
	return &Config{
		UpdateInterval: time.Millisecond,
		BurstLimit:     64,
		EventQueue:     8,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("%w: update interval %v", mctp.ErrInvalidParameter, c.UpdateInterval)
	}
	if c.BurstLimit < 1 {
		return fmt.Errorf("%w: burst limit %d", mctp.ErrInvalidParameter, c.BurstLimit)
	}
	if c.EventQueue < 0 {
		return fmt.Errorf("%w: event queue %d", mctp.ErrInvalidParameter, c.EventQueue)
	}
	return nil
}
