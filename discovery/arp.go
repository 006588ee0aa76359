/*
 * naboer arp table
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
	"sort"
	"strings"

	"github.com/telenornms/naboer"
)

// ARPEntry is one IP to MAC binding from ipNetToMediaTable.
type ARPEntry struct {
	IP      netip.Addr
	MAC     net.HardwareAddr
	IfIndex int
}

func (e ARPEntry) String() string {
	return fmt.Sprintf("%16.16s -> %s (%d)", e.IP, e.MAC, e.IfIndex)
}

// decodeARP reads an ipNetToMediaEntry. The index is ifIndex.a.b.c.d, and
// is used if the agent skipped the ifIndex or address columns.
func decodeARP(r naboer.Row) (ARPEntry, error) {
	var e ARPEntry
	var err error
	if r.Has("ipNetToMediaNetAddress") {
		e.IP, err = r.IP("ipNetToMediaNetAddress")
		if err != nil {
			return e, err
		}
	} else if len(r.Index) == 5 {
		e.IP = netip.AddrFrom4([4]byte{byte(r.Index[1]), byte(r.Index[2]), byte(r.Index[3]), byte(r.Index[4])})
	} else {
		return e, fmt.Errorf("%w: no address for arp entry %s", naboer.ErrDecode, naboer.FormatIndex(r.Index))
	}
	if r.Has("ipNetToMediaIfIndex") {
		e.IfIndex, err = r.Int("ipNetToMediaIfIndex")
		if err != nil {
			return e, err
		}
	} else if len(r.Index) > 0 {
		e.IfIndex = r.Index[0]
	}
	mac, err := r.Bytes("ipNetToMediaPhysAddress")
	if err != nil {
		return e, err
	}
	e.MAC = append(net.HardwareAddr(nil), mac...)
	return e, nil
}

// ARPTable is the ARP table of a single device, keyed by IP address.
type ARPTable struct {
	Host    string
	entries map[netip.Addr]ARPEntry
}

func NewARPTable(host string) *ARPTable {
	return &ARPTable{Host: host, entries: make(map[netip.Addr]ARPEntry)}
}

// AddEntry decodes a row and stores it, replacing any earlier entry for
// the same address.
func (t *ARPTable) AddEntry(r naboer.Row) error {
	e, err := decodeARP(r)
	if err != nil {
		return err
	}
	t.entries[e.IP] = e
	return nil
}

// Get looks up an address.
func (t *ARPTable) Get(ip netip.Addr) (ARPEntry, error) {
	e, ok := t.entries[ip]
	if !ok {
		return e, fmt.Errorf("%w: %s in arp table of %s", naboer.ErrNotFound, ip, t.Host)
	}
	return e, nil
}

func (t *ARPTable) Len() int {
	return len(t.entries)
}

// Entries returns all entries sorted by address.
func (t *ARPTable) Entries() []ARPEntry {
	ret := make([]ARPEntry, 0, len(t.entries))
	for _, e := range t.entries {
		ret = append(ret, e)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].IP.Less(ret[j].IP)
	})
	return ret
}

func (t *ARPTable) String() string {
	s := []string{
		fmt.Sprintf("ARP table for %s", t.Host),
		"IP                  MAC               IfIndex",
	}
	for _, e := range t.Entries() {
		s = append(s, e.String())
	}
	return strings.Join(s, "\n")
}
