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

package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.bug.st/serial/enumerator"
)

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", devicePath: "/dev/ttyUSB0", expected: false},
		{name: "empty device path", devicePath: "", ignorePaths: []string{"/dev/ttyUSB0"}, expected: false},
		{name: "exact match", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"/dev/ttyUSB0"}, expected: true},
		{name: "windows case insensitive", devicePath: "com2", ignorePaths: []string{"COM2"}, expected: true},
		{name: "relative components", devicePath: "/dev/../dev/ttyUSB0", ignorePaths: []string{"/dev/ttyUSB0"}, expected: true},
		{name: "empty entries skipped", devicePath: "/dev/ttyS1", ignorePaths: []string{"", "/dev/ttyS1"}, expected: true},
		{name: "no match", devicePath: "/dev/ttyUSB1", ignorePaths: []string{"/dev/ttyUSB0", "COM2"}, expected: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()
	assert.True(t, IsBlocked("0403:6001", []string{" 0403:6001 "}))
	assert.True(t, IsBlocked("10c4:ea60", []string{"10C4:EA60"}))
	assert.False(t, IsBlocked("0403:6001", nil))
}

func TestFilterPorts(t *testing.T) {
	t.Parallel()
	details := []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "A1"},
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10c4", PID: "ea60", Product: "CP2102"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341", PID: "0043"},
	}

	t.Run("all", func(t *testing.T) {
		t.Parallel()
		ports := filterPorts(details, DefaultOptions())
		names := make([]string, 0, len(ports))
		for _, p := range ports {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"/dev/ttyACM0", "/dev/ttyS0", "/dev/ttyUSB0", "/dev/ttyUSB1"}, names)
	})

	t.Run("filtered", func(t *testing.T) {
		t.Parallel()
		ports := filterPorts(details, Options{
			USBOnly:     true,
			Blocklist:   []string{"2341:0043"},
			IgnorePaths: []string{"/dev/ttyUSB1"},
		})
		assert.Equal(t, []PortInfo{{
			Name:    "/dev/ttyUSB0",
			VIDPID:  "10C4:EA60",
			Product: "CP2102",
			USB:     true,
		}}, ports)
	})
}
