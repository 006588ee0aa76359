/*
 * naboer neighbor correlation
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
	"net"
	"net/netip"
	"strings"

	"github.com/telenornms/naboer"
)

// Interfaces resolves a local interface index to a name. *omap.OMap
// implements it. A miss must be reported as an error wrapping
// naboer.ErrNotFound.
type Interfaces interface {
	Name(idx int) (string, error)
}

// LLDP-MIB chassis/port ID subtypes that are MAC addresses.
const (
	lldpChassisMAC = 4
	lldpPortMAC    = 3
)

// CorrelateCDP joins cdpCacheEntry rows with the interface table. The
// first index component of a cdpCacheEntry is the local ifIndex. A row
// whose ifIndex can't be resolved fails the whole call, since a half
// resolved topology is worse than none.
func CorrelateCDP(host string, rows []naboer.Row, ifaces Interfaces) (*NeighborTable, error) {
	t := NewNeighborTable(host, ProtoCDP)
	for _, r := range rows {
		if len(r.Index) < 1 {
			return nil, fmt.Errorf("%w: cdp row without index on %s", naboer.ErrDecode, host)
		}
		ifIndex := r.Index[0]
		iface, err := ifaces.Name(ifIndex)
		if err != nil {
			return nil, fmt.Errorf("cdp neighbor %s on %s: %w", naboer.FormatIndex(r.Index), host, err)
		}
		n, err := decodeCDP(r)
		if err != nil {
			return nil, err
		}
		n.Interface = iface
		n.IfIndex = ifIndex
		t.AddEntry(n)
	}
	return t, nil
}

func decodeCDP(r naboer.Row) (Neighbor, error) {
	n := Neighbor{Protocol: ProtoCDP}
	var err error
	n.DeviceID, err = r.String("cdpCacheDeviceId")
	if err != nil {
		return n, err
	}
	n.DevicePort = optString(r, "cdpCacheDevicePort")
	n.Platform = optString(r, "cdpCachePlatform")
	n.Capabilities = DecodeCapabilities(r.Values["cdpCacheCapabilities"])
	if b, err := r.Bytes("cdpCacheAddress"); err == nil {
		if a, ok := netip.AddrFromSlice(b); ok {
			n.Address = a.Unmap()
		}
	}
	return n, nil
}

// CorrelateLLDP does the same for lldpRemEntry rows, indexed by
// timeMark.localPortNum.remIndex, where ports maps the local port number
// to a name.
func CorrelateLLDP(host string, rows []naboer.Row, ports Interfaces) (*NeighborTable, error) {
	t := NewNeighborTable(host, ProtoLLDP)
	for _, r := range rows {
		if len(r.Index) < 3 {
			return nil, fmt.Errorf("%w: lldp row %s has a short index on %s", naboer.ErrDecode, naboer.FormatIndex(r.Index), host)
		}
		port := r.Index[1]
		iface, err := ports.Name(port)
		if err != nil {
			return nil, fmt.Errorf("lldp neighbor %s on %s: %w", naboer.FormatIndex(r.Index), host, err)
		}
		n := decodeLLDP(r)
		n.Interface = iface
		n.IfIndex = port
		t.AddEntry(n)
	}
	return t, nil
}

func decodeLLDP(r naboer.Row) Neighbor {
	n := Neighbor{Protocol: ProtoLLDP}
	n.DeviceID = optString(r, "lldpRemSysName")
	if n.DeviceID == "" {
		n.DeviceID = lldpID(r, "lldpRemChassisId", "lldpRemChassisIdSubtype", lldpChassisMAC)
	}
	n.DevicePort = lldpID(r, "lldpRemPortId", "lldpRemPortIdSubtype", lldpPortMAC)
	desc, _, _ := strings.Cut(optString(r, "lldpRemSysDesc"), "\n")
	n.Platform = strings.TrimSpace(desc)
	if b, err := r.Bytes("lldpRemSysCapEnabled"); err == nil {
		n.Capabilities = DecodeLLDPCapabilities(b)
	}
	return n
}

// lldpID renders a chassis or port ID, which is binary when the subtype
// says it's a MAC address.
func lldpID(r naboer.Row, col string, subtypeCol string, macSubtype int) string {
	subtype, err := r.Int(subtypeCol)
	if err == nil && subtype == macSubtype {
		if b, err := r.Bytes(col); err == nil && len(b) == 6 {
			return net.HardwareAddr(b).String()
		}
	}
	return optString(r, col)
}

func optString(r naboer.Row, col string) string {
	if !r.Has(col) {
		return ""
	}
	s, err := r.String(col)
	if err != nil {
		return ""
	}
	return s
}
