/*
 * naboer neighbor capabilities
 *
 * Copyright (c) 2023 Telenor Norge AS
 * Author(s):
 *  - Kristian Lyngstøl <kly@kly.no>
 *
 * This library is free software; you can redistribute it and/or
 * modify it under the terms of the GNU Lesser General Public
 * License as published by the Free Software Foundation; either
 * version 2.1 of the License, or (at your option) any later version.
 *
 * This library is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public
 * License along with this library; if not, write to the Free Software
 * Foundation, Inc., 51 Franklin Street, Fifth Floor, Boston, MA
 * 02110-1301  USA
 */

package discovery

import (
	"strings"

	"github.com/gosnmp/gosnmp"
)

// Capabilities is the capability bitmask a neighbor advertises, using the
// CDP bit layout. Only the low 8 bits mean anything.
type Capabilities uint32

const (
	CapRouter            Capabilities = 0x01
	CapBridge            Capabilities = 0x02 // transparent bridge
	CapSourceRouteBridge Capabilities = 0x04
	CapSwitch            Capabilities = 0x08
	CapHost              Capabilities = 0x10
	CapIGMP              Capabilities = 0x20 // doesn't forward IGMP reports on non-router ports
	CapRepeater          Capabilities = 0x40
	CapPhone             Capabilities = 0x80
)

// CapabilityFlags is the decoded form of Capabilities.
type CapabilityFlags struct {
	Router            bool
	Bridge            bool
	SourceRouteBridge bool
	Switch            bool
	Host              bool
	IGMP              bool
	Repeater          bool
	Phone             bool
}

// In bit-ascending order, which is also the order of descriptions.
var capabilityTable = []struct {
	bit   Capabilities
	label string
	long  string
}{
	{CapRouter, "Router", "Performs level 3 routing for at least one network layer protocol."},
	{CapBridge, "Trans-Bridge", "Performs level 2 transparent bridging."},
	{CapSourceRouteBridge, "Source-Route-Bridge", "Performs level 2 source-route bridging."},
	{CapSwitch, "Switch", "Performs level 2 switching."},
	{CapHost, "Host", "Sends and receives packets for at least one network layer protocol."},
	{CapIGMP, "IGMP", "The bridge or switch does not forward IGMP Report packets on nonrouter ports."},
	{CapRepeater, "Repeater", "Provides level 1 functionality."},
	{CapPhone, "Phone", "Voice over IP."},
}

// Flags decodes the bitmask.
func (c Capabilities) Flags() CapabilityFlags {
	return CapabilityFlags{
		Router:            c&CapRouter != 0,
		Bridge:            c&CapBridge != 0,
		SourceRouteBridge: c&CapSourceRouteBridge != 0,
		Switch:            c&CapSwitch != 0,
		Host:              c&CapHost != 0,
		IGMP:              c&CapIGMP != 0,
		Repeater:          c&CapRepeater != 0,
		Phone:             c&CapPhone != 0,
	}
}

// Description lists the set capabilities. The short form is one word per
// capability separated by spaces, the long form one sentence per line.
// No capabilities gives an empty string.
func (c Capabilities) Description(long bool) string {
	s := make([]string, 0, len(capabilityTable))
	for _, e := range capabilityTable {
		if c&e.bit == 0 {
			continue
		}
		if long {
			s = append(s, e.long)
		} else {
			s = append(s, e.label)
		}
	}
	if long {
		return strings.Join(s, "\n")
	}
	return strings.Join(s, " ")
}

func (c Capabilities) String() string {
	return c.Description(false)
}

// DecodeCapabilities accepts cdpCacheCapabilities as delivered by gosnmp,
// which is a 4 byte big-endian octet string, or anything numeric.
// Garbage decodes to no capabilities.
func DecodeCapabilities(v any) Capabilities {
	switch t := v.(type) {
	case []byte:
		var c uint32
		if len(t) > 4 {
			t = t[len(t)-4:]
		}
		for _, b := range t {
			c = c<<8 | uint32(b)
		}
		return Capabilities(c) & 0xff
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return Capabilities(gosnmp.ToBigInt(t).Uint64()) & 0xff
	default:
		return 0
	}
}

// LLDP-MIB LldpSystemCapabilitiesMap bits, numbered from the most
// significant bit of the first octet.
var lldpCapabilityMap = map[int]Capabilities{
	1: CapRepeater,
	2: CapBridge,
	4: CapRouter,
	5: CapPhone,
	7: CapHost, // stationOnly
}

// DecodeLLDPCapabilities maps lldpRemSysCapEnabled onto the CDP layout.
// LLDP capabilities without a CDP counterpart (WLAN access point, DOCSIS)
// are dropped.
func DecodeLLDPCapabilities(b []byte) Capabilities {
	var c Capabilities
	for bit, flag := range lldpCapabilityMap {
		octet := bit / 8
		if octet >= len(b) {
			continue
		}
		if b[octet]&(0x80>>(bit%8)) != 0 {
			c |= flag
		}
	}
	return c
}
