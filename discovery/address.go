/*
 * naboer address table
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

// Address is an address configured on the device itself, in CIDR form.
// The host bits are kept, so 192.0.2.1/24 stays 192.0.2.1/24.
type Address struct {
	IfIndex int
	Prefix  netip.Prefix
}

func (a Address) String() string {
	return fmt.Sprintf("%8d %s", a.IfIndex, a.Prefix)
}

func decodeAddress(r naboer.Row) (Address, error) {
	var a Address
	ip, err := r.IP("ipAdEntAddr")
	if err != nil {
		return a, err
	}
	mask, err := r.IP("ipAdEntNetMask")
	if err != nil {
		return a, err
	}
	ones, bits := net.IPMask(mask.AsSlice()).Size()
	if bits == 0 {
		return a, fmt.Errorf("%w: non-contiguous netmask %s for %s", naboer.ErrDecode, mask, ip)
	}
	a.Prefix = netip.PrefixFrom(ip, ones)
	a.IfIndex, err = r.Int("ipAdEntIfIndex")
	if err != nil {
		return a, err
	}
	return a, nil
}

// AddressTable is the addresses of a single device, keyed by ifIndex.
type AddressTable struct {
	Host    string
	entries map[int]Address
}

func NewAddressTable(host string) *AddressTable {
	return &AddressTable{Host: host, entries: make(map[int]Address)}
}

// AddEntry decodes an ipAddrEntry. A later address on the same interface
// replaces an earlier one.
func (t *AddressTable) AddEntry(r naboer.Row) error {
	a, err := decodeAddress(r)
	if err != nil {
		return err
	}
	t.entries[a.IfIndex] = a
	return nil
}

func (t *AddressTable) Get(ifIndex int) (Address, error) {
	a, ok := t.entries[ifIndex]
	if !ok {
		return a, fmt.Errorf("%w: ifIndex %d in address table of %s", naboer.ErrNotFound, ifIndex, t.Host)
	}
	return a, nil
}

func (t *AddressTable) Len() int {
	return len(t.entries)
}

// Entries returns all addresses sorted by ifIndex.
func (t *AddressTable) Entries() []Address {
	ret := make([]Address, 0, len(t.entries))
	for _, a := range t.entries {
		ret = append(ret, a)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].IfIndex < ret[j].IfIndex
	})
	return ret
}

func (t *AddressTable) String() string {
	s := []string{
		fmt.Sprintf("Address table for %s", t.Host),
		" IfIndex IP Address",
	}
	for _, a := range t.Entries() {
		s = append(s, a.String())
	}
	return strings.Join(s, "\n")
}
