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

// Package detection finds serial ports and I2C buses that may carry an MCTP
// serial link
package detection

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// ErrNoDevicesFound is returned when discovery finds nothing usable
var ErrNoDevicesFound = errors.New("no devices found")

// PortInfo describes a candidate serial port
type PortInfo struct {
	Name         string
	VIDPID       string
	SerialNumber string
	Product      string
	USB          bool
}

// Options filters discovered ports
type Options struct {
	// Blocklist holds VID:PID pairs never to report
	Blocklist []string
	// IgnorePaths holds device paths never to report
	IgnorePaths []string
	// USBOnly drops ports that are not USB adapters
	USBOnly bool
}

// DefaultOptions returns options that report every port
func DefaultOptions() Options {
	return Options{Blocklist: DefaultBlocklist()}
}

// DefaultBlocklist returns USB adapters known not to carry a management link.
// Format: VID:PID in hexadecimal (case-insensitive).
func DefaultBlocklist() []string {
	return nil
}

// SerialPorts lists the serial ports of this host that pass opts
func SerialPorts(opts Options) ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	ports := filterPorts(details, opts)
	if len(ports) == 0 {
		return nil, ErrNoDevicesFound
	}
	return ports, nil
}

func filterPorts(details []*enumerator.PortDetails, opts Options) []PortInfo {
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		info := PortInfo{
			Name:         d.Name,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
			USB:          d.IsUSB,
		}
		if d.IsUSB && d.VID != "" && d.PID != "" {
			info.VIDPID = strings.ToUpper(d.VID + ":" + d.PID)
		}

		switch {
		case opts.USBOnly && !info.USB:
			continue
		case info.VIDPID != "" && IsBlocked(info.VIDPID, opts.Blocklist):
			continue
		case IsPathIgnored(info.Name, opts.IgnorePaths):
			continue
		}
		ports = append(ports, info)
	}

	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports
}

// I2CBuses lists the names of the I2C buses registered with periph
func I2CBuses() ([]string, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	refs := i2creg.All()
	if len(refs) == 0 {
		return nil, ErrNoDevicesFound
	}
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}
	return names, nil
}

// IsBlocked checks if a VID:PID pair is in the blocklist
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// IsPathIgnored checks if a device path should be ignored. Paths are compared
// cleaned and case-insensitively.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}

	device := normalizedPath(devicePath)
	for _, ignorePath := range ignorePaths {
		if ignorePath != "" && device == normalizedPath(ignorePath) {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
