/*
 * naboer discovery manager
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

/*
Package discovery maps out a single device: its neighbors (CDP and LLDP),
its ARP table and the addresses configured on it.

Everything is built from tables fetched through a naboer.Access. The
neighbor tables are indexed by local interface, so they are joined with
the interface table (or, for LLDP, the local port table) to get names.
*/
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/telenornms/naboer"
	"github.com/telenornms/naboer/omap"
)

// Report names accepted by Manager.Report.
const (
	ReportInterfaces = "interfaces"
	ReportARP        = "arp"
	ReportAddresses  = "addresses"
	ReportCDP        = "cdp"
	ReportLLDP       = "lldp"
	ReportNeighbors  = "neighbors"
)

// Reports is the closed set of report names.
var Reports = []string{ReportInterfaces, ReportARP, ReportAddresses, ReportCDP, ReportLLDP, ReportNeighbors}

// Manager fetches and correlates the discovery tables of one device. If
// Maps is set, interface and port maps are taken from it instead of being
// rebuilt for every call.
type Manager struct {
	Access naboer.Access
	Host   string
	Maps   *omap.Cache
}

func (m *Manager) omap(ctx context.Context, column string) (*omap.OMap, error) {
	if m.Maps != nil {
		return m.Maps.Get(ctx, m.Host, column, m.Access)
	}
	return omap.BuildOMap(ctx, m.Access, column)
}

// Interfaces builds the ifIndex to ifDescr map.
func (m *Manager) Interfaces(ctx context.Context) (*omap.OMap, error) {
	return m.omap(ctx, "ifDescr")
}

// LLDPPorts builds the LLDP local port number to port description map.
func (m *Manager) LLDPPorts(ctx context.Context) (*omap.OMap, error) {
	return m.omap(ctx, "lldpLocPortDesc")
}

func (m *Manager) ARP(ctx context.Context) (*ARPTable, error) {
	rows, err := m.Access.FetchTable(ctx, "ipNetToMediaTable")
	if err != nil {
		return nil, fmt.Errorf("fetching arp table of %s: %w", m.Host, err)
	}
	t := NewARPTable(m.Host)
	for _, r := range rows {
		if err := t.AddEntry(r); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (m *Manager) Addresses(ctx context.Context) (*AddressTable, error) {
	rows, err := m.Access.FetchTable(ctx, "ipAddrTable")
	if err != nil {
		return nil, fmt.Errorf("fetching address table of %s: %w", m.Host, err)
	}
	t := NewAddressTable(m.Host)
	for _, r := range rows {
		if err := t.AddEntry(r); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// CDP fetches the CDP cache and resolves the local interfaces.
func (m *Manager) CDP(ctx context.Context) (*NeighborTable, error) {
	rows, err := m.Access.FetchTable(ctx, "cdpCacheTable")
	if err != nil {
		return nil, fmt.Errorf("fetching cdp cache of %s: %w", m.Host, err)
	}
	ifaces, err := m.Interfaces(ctx)
	if err != nil {
		return nil, err
	}
	return CorrelateCDP(m.Host, rows, ifaces)
}

// LLDP fetches the LLDP remote table and resolves the local ports.
func (m *Manager) LLDP(ctx context.Context) (*NeighborTable, error) {
	rows, err := m.Access.FetchTable(ctx, "lldpRemTable")
	if err != nil {
		return nil, fmt.Errorf("fetching lldp remote table of %s: %w", m.Host, err)
	}
	ports, err := m.LLDPPorts(ctx)
	if err != nil {
		return nil, err
	}
	return CorrelateLLDP(m.Host, rows, ports)
}

// Neighbors is the CDP neighbors grouped by local interface.
func (m *Manager) Neighbors(ctx context.Context) (*Grouped, error) {
	t, err := m.CDP(ctx)
	if err != nil {
		return nil, err
	}
	return t.Group(), nil
}

// Report runs one of the named operations in Reports.
func (m *Manager) Report(ctx context.Context, name string) (fmt.Stringer, error) {
	var r fmt.Stringer
	var err error
	switch name {
	case ReportInterfaces:
		var ifs *omap.OMap
		ifs, err = m.Interfaces(ctx)
		r = &interfaceReport{host: m.Host, m: ifs}
	case ReportARP:
		r, err = m.ARP(ctx)
	case ReportAddresses:
		r, err = m.Addresses(ctx)
	case ReportCDP:
		r, err = m.CDP(ctx)
	case ReportLLDP:
		r, err = m.LLDP(ctx)
	case ReportNeighbors:
		r, err = m.Neighbors(ctx)
	default:
		return nil, fmt.Errorf("%w: `%s', valid reports are %s", naboer.ErrUnknownOperation, name, strings.Join(Reports, ", "))
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

type interfaceReport struct {
	host string
	m    *omap.OMap
}

func (r *interfaceReport) String() string {
	s := []string{
		fmt.Sprintf("Interface table for %s", r.host),
		" IfIndex Name",
	}
	idx := make([]int, 0, len(r.m.IdxToName))
	for i := range r.m.IdxToName {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		s = append(s, fmt.Sprintf("%8d %s", i, r.m.IdxToName[i]))
	}
	return strings.Join(s, "\n")
}
