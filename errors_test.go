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
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := getIsRetryableTestCases()

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsRetryable(tt.err)
			if got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func getIsRetryableTestCases() []struct {
	err  error
	name string
	want bool
} {
	return []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "transport timeout retryable", err: ErrTransportTimeout, want: true},
		{name: "transport read retryable", err: ErrTransportRead, want: true},
		{name: "transport write retryable", err: ErrTransportWrite, want: true},
		{name: "device not ready retryable", err: ErrDeviceNotReady, want: true},
		{name: "closed not retryable", err: ErrTransportClosed, want: false},
		{name: "event busy not retryable", err: ErrEventSlotBusy, want: false},
		{name: "wrapped timeout retryable", err: fmt.Errorf("drain: %w", ErrTransportTimeout), want: true},
		{
			name: "permanent transport error",
			err:  NewTransportError("Open", "/dev/ttyUSB0", errors.New("no such file"), ErrorTypePermanent),
			want: false,
		},
		{
			name: "transient transport error",
			err:  NewTransportError("ReadByte", "/dev/ttyUSB0", ErrTransportRead, ErrorTypeTransient),
			want: true,
		},
		{name: "timeout error", err: NewTimeoutError("Probe", "i2c-1"), want: true},
		{name: "generic error", err: errors.New("generic"), want: false},
	}
}

func TestTransportError_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err      *TransportError
		name     string
		contains []string
	}{
		{
			name:     "with port",
			err:      NewTransportError("WriteByte", "/dev/ttyS1", ErrTransportWrite, ErrorTypeTransient),
			contains: []string{"WriteByte", "/dev/ttyS1", "transport write failed"},
		},
		{
			name:     "without port",
			err:      NewDeviceNotReadyError("Init", ""),
			contains: []string{"Init", "device not ready"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, want it to contain %q", msg, want)
				}
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("update: %w", NewTimeoutError("ReadByte", "uart"))

	if !errors.Is(err, ErrTransportTimeout) {
		t.Error("expected errors.Is to find ErrTransportTimeout")
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatal("expected errors.As to find TransportError")
	}
	if te.Type != ErrorTypeTimeout {
		t.Errorf("Type = %v, want %v", te.Type, ErrorTypeTimeout)
	}
}

func TestErrorType_String(t *testing.T) {
	t.Parallel()
	tests := map[ErrorType]string{
		ErrorTypePermanent: "permanent",
		ErrorTypeTransient: "transient",
		ErrorTypeTimeout:   "timeout",
		ErrorType(9):       "ErrorType(9)",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
