/*
 * naboer neighbor table
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
	"fmt"
	"net/netip"
	"strings"
)

const (
	ProtoCDP  = "CDP"
	ProtoLLDP = "LLDP"
)

// Neighbor is a device seen on one of the local interfaces.
type Neighbor struct {
	Protocol     string
	Interface    string // local interface, resolved from IfIndex
	IfIndex      int    // ifIndex for CDP, local port number for LLDP
	DeviceID     string
	DevicePort   string
	Platform     string
	Capabilities Capabilities
	Address      netip.Addr // management address, if advertised
}

func (n Neighbor) String() string {
	return fmt.Sprintf("%-18.18s %-20.20s %-16.16s %-16.16s %s",
		n.Interface, n.DeviceID, n.DevicePort, n.Capabilities.Description(false), n.Platform)
}

// NeighborTable is the neighbors of a single device, in the order they
// were polled. There is no de-duplication.
type NeighborTable struct {
	Host     string
	Protocol string
	entries  []Neighbor
}

func NewNeighborTable(host string, protocol string) *NeighborTable {
	return &NeighborTable{Host: host, Protocol: protocol}
}

func (t *NeighborTable) AddEntry(n Neighbor) {
	t.entries = append(t.entries, n)
}

func (t *NeighborTable) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the neighbors in poll order.
func (t *NeighborTable) Entries() []Neighbor {
	ret := make([]Neighbor, len(t.entries))
	copy(ret, t.entries)
	return ret
}

func (t *NeighborTable) String() string {
	s := []string{
		fmt.Sprintf("%s table for %s", t.Protocol, t.Host),
		"Local Interface    Device ID            Port ID          Capability       Platform",
	}
	for _, n := range t.entries {
		s = append(s, n.String())
	}
	return strings.Join(s, "\n")
}

// InterfaceNeighbors is every neighbor seen on one local interface.
type InterfaceNeighbors struct {
	Interface string
	Neighbors []Neighbor
}

// Grouped is a neighbor table grouped by local interface.
type Grouped struct {
	Host       string
	Interfaces []InterfaceNeighbors
}

// Group groups the neighbors by local interface name. Interfaces are
// listed in the order they were first seen, and so are the neighbors
// within each interface.
func (t *NeighborTable) Group() *Grouped {
	g := &Grouped{Host: t.Host}
	pos := make(map[string]int)
	for _, n := range t.entries {
		i, ok := pos[n.Interface]
		if !ok {
			i = len(g.Interfaces)
			pos[n.Interface] = i
			g.Interfaces = append(g.Interfaces, InterfaceNeighbors{Interface: n.Interface})
		}
		g.Interfaces[i].Neighbors = append(g.Interfaces[i].Neighbors, n)
	}
	return g
}

func (g *Grouped) String() string {
	s := []string{
		fmt.Sprintf("Neighbors of %s", g.Host),
		"Interface -> Device:Port (Platform)",
	}
	for _, iface := range g.Interfaces {
		s = append(s, fmt.Sprintf("%s ->", iface.Interface))
		for _, n := range iface.Neighbors {
			s = append(s, fmt.Sprintf("        %s:%s (%s)", n.DeviceID, n.DevicePort, n.Platform))
		}
	}
	return strings.Join(s, "\n")
}
