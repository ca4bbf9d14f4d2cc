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

// Message types
const (
	MessageTypeControl = 0x00 // MCTP control message
	MessageTypePLDM    = 0x01 // Platform Level Data Model
	MessageTypeBase    = 0xFF // Base specification, queried in Get Version Support
)

// Control command codes
const (
	CmdSetEndpointID         = 0x01
	CmdGetEndpointID         = 0x02
	CmdGetVersionSupport     = 0x04
	CmdGetMessageTypeSupport = 0x05
)

// Response field values
const (
	supportedControlCommands  = 4
	endpointTypeSimple        = 0x00
	eidPoolSize               = 0x00
	eidAccepted               = 0x00
	eidRejected               = 0x10
	versionEntryCount         = 1
	versionUnsupportedEntries = 0
)

// Set Endpoint ID operations, low two bits of the first request byte
const (
	SetEIDOperationSet          = 0x00
	SetEIDOperationForce        = 0x01
	SetEIDOperationResetStatic  = 0x02
	SetEIDOperationSetDiscovery = 0x03
	setEIDOperationMask         = 0x03
)

// Control completion codes
const (
	CompletionSuccess          = 0x00
	CompletionError            = 0x01
	CompletionInvalidData      = 0x02
	CompletionInvalidLength    = 0x03
	CompletionNotReady         = 0x04
	CompletionUnsupportedCmd   = 0x05
	CompletionTypeNotSupported = 0x80 // Get Version Support: message type not supported
)

// controlCommands lists the command codes this endpoint answers, in the
// order reported by Get Message Type Support
var controlCommands = [supportedControlCommands]byte{
	CmdSetEndpointID,
	CmdGetEndpointID,
	CmdGetVersionSupport,
	CmdGetMessageTypeSupport,
}

// Version is one MCTP version number entry
type Version struct {
	Major  byte
	Minor  byte
	Update byte
	Alpha  byte
}

// Bytes returns the four byte wire form of the version entry
func (v Version) Bytes() [4]byte {
	return [4]byte{v.Major, v.Minor, v.Update, v.Alpha}
}

// BaseVersion is reported for the control and base message types (1.3.1)
var BaseVersion = Version{Major: 0x01, Minor: 0x03, Update: 0x01, Alpha: 0x00}

// VersionProvider reports the supported version of an additional message type
type VersionProvider interface {
	SupportedVersion(msgType byte) (Version, bool)
}

// VersionTable is a fixed VersionProvider keyed by message type
type VersionTable map[byte]Version

// SupportedVersion implements VersionProvider
func (t VersionTable) SupportedVersion(msgType byte) (Version, bool) {
	v, ok := t[msgType]
	return v, ok
}
