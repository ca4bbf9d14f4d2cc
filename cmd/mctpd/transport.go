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

package main

import (
	"errors"
	"fmt"
	"io"

	mctp "github.com/ZaparooProject/go-mctp"
	"github.com/ZaparooProject/go-mctp/detection"
	"github.com/ZaparooProject/go-mctp/internal/config"
	"github.com/ZaparooProject/go-mctp/transport/i2c"
	"github.com/ZaparooProject/go-mctp/transport/uart"
)

// newTransport creates the transport selected by cfg.Kind
func newTransport(cfg config.TransportConfig) (mctp.Transport, error) {
	switch cfg.Kind {
	case config.TransportUART:
		transport, err := uart.New(uart.Config{
			Port:        cfg.Port,
			BaudRate:    cfg.BaudRate,
			ReadTimeout: cfg.ReadTimeout,
			OpenRetries: cfg.OpenRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return transport, nil
	case config.TransportI2C:
		bridge := i2c.DefaultConfig()
		bridge.Bus = cfg.I2CBus
		if cfg.I2CAddress != 0 {
			bridge.Address = cfg.I2CAddress
		}
		if cfg.BaudRate != 0 {
			bridge.BaudRate = cfg.BaudRate
		}
		if cfg.Crystal != 0 {
			bridge.Crystal = cfg.Crystal
		}
		transport, err := i2c.New(bridge)
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport: %w", err)
		}
		return transport, nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", cfg.Kind)
	}
}

func listPorts(w io.Writer) error {
	ports, err := detection.SerialPorts(detection.DefaultOptions())
	if err != nil && !errors.Is(err, detection.ErrNoDevicesFound) {
		return err
	}
	for _, p := range ports {
		if p.USB {
			_, _ = fmt.Fprintf(w, "uart  %s  %s  %s\n", p.Name, p.VIDPID, p.Product)
		} else {
			_, _ = fmt.Fprintf(w, "uart  %s\n", p.Name)
		}
	}

	buses, err := detection.I2CBuses()
	if err != nil && !errors.Is(err, detection.ErrNoDevicesFound) {
		return err
	}
	for _, b := range buses {
		_, _ = fmt.Fprintf(w, "i2c   %s\n", b)
	}
	return nil
}
