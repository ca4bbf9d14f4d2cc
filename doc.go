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

/*
Package mctp implements an MCTP endpoint over a byte serial link.

The endpoint frames and deframes MCTP packets using the serial binding
(DSP0253): frames are delimited by 0x7E, body bytes are escaped with 0x7D
and every frame carries an FCS-16 over its header and body. Received frames
are validated and admitted when they are addressed to the endpoint's EID,
the null EID or the broadcast EID.

The control message type is answered in place. The endpoint handles Set
Endpoint ID, Get Endpoint ID, Get MCTP Version Support and Get Message Type
Support, and replies with an unsupported command completion to anything
else. Other message types, such as PLDM, are handed to the caller through
Message and answered with Respond.

Features:
  - Non-blocking byte at a time receive and transmit
  - Resumable transmission on transports with limited write room
  - A prioritized slot for unsolicited event frames
  - Transports for USB serial adapters and SC16IS750 I2C bridges
  - An actor that services the endpoint on its own goroutine

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-mctp"
	    "github.com/ZaparooProject/go-mctp/transport/uart"
	)

	transport, err := uart.New(uart.Config{Port: "/dev/ttyUSB0"})
	if err != nil {
	    log.Fatal(err)
	}

	ep, err := mctp.New(transport, mctp.WithEventSlot(0))
	if err != nil {
	    log.Fatal(err)
	}
	defer ep.Close()

	if err := ep.Init(); err != nil {
	    log.Fatal(err)
	}

	for {
	    if err := ep.Update(); err != nil {
	        log.Print(err)
	    }
	    if !ep.IsPacketAvailable() {
	        continue
	    }
	    if ep.IsControlPacket() {
	        _, _ = ep.ProcessControlMessage()
	    } else {
	        ep.IgnorePacket()
	    }
	}

The polling package wraps this loop in an EndpointActor with PLDM and
error callbacks.

Error Handling:

Transport failures are returned as *TransportError and can be inspected:

	if IsRetryable(err) {
	    // try again on the next Update
	}

Thread Safety:

Endpoint operations are not thread-safe. Stats may be read from any
goroutine; everything else belongs to the goroutine driving Update.
*/
package mctp
