/*
 * naboer discovery tests
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

package discovery_test

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telenornms/naboer"
	"github.com/telenornms/naboer/discovery"
	"github.com/telenornms/naboer/naboertest"
	"github.com/telenornms/naboer/omap"
)

func arpRow(ifIndex int, ip string, mac []byte) naboer.Row {
	a := netip.MustParseAddr(ip).As4()
	r := naboer.NewRow(ifIndex, int(a[0]), int(a[1]), int(a[2]), int(a[3]))
	r.Values["ipNetToMediaIfIndex"] = ifIndex
	r.Values["ipNetToMediaNetAddress"] = ip
	r.Values["ipNetToMediaPhysAddress"] = mac
	return r
}

func addrRow(ifIndex int, ip string, mask string) naboer.Row {
	r := naboer.NewRow()
	r.Values["ipAdEntAddr"] = ip
	r.Values["ipAdEntNetMask"] = mask
	r.Values["ipAdEntIfIndex"] = ifIndex
	return r
}

func cdpRow(ifIndex, devIndex int, device, port, platform string, caps []byte) naboer.Row {
	r := naboer.NewRow(ifIndex, devIndex)
	r.Values["cdpCacheDeviceId"] = []byte(device)
	r.Values["cdpCacheDevicePort"] = []byte(port)
	r.Values["cdpCachePlatform"] = []byte(platform)
	r.Values["cdpCacheCapabilities"] = caps
	return r
}

func ifaces() *omap.OMap {
	m := omap.New("ifDescr")
	m.Add(1, "eth0")
	m.Add(2, "eth1")
	return m
}

func TestARPTable(t *testing.T) {
	at := discovery.NewARPTable("sw1")
	require.NoError(t, at.AddEntry(arpRow(2, "10.0.0.10", []byte{0, 0x1b, 0x21, 0, 0, 1})))
	require.NoError(t, at.AddEntry(arpRow(2, "10.0.0.9", []byte{0, 0x1b, 0x21, 0, 0, 2})))
	require.NoError(t, at.AddEntry(arpRow(3, "192.0.2.1", []byte{0, 0x1b, 0x21, 0, 0, 3})))
	assert.Equal(t, 3, at.Len())

	e, err := at.Get(netip.MustParseAddr("10.0.0.9"))
	require.NoError(t, err)
	assert.Equal(t, "00:1b:21:00:00:02", e.MAC.String())
	assert.Equal(t, 2, e.IfIndex)

	// same address again overwrites
	require.NoError(t, at.AddEntry(arpRow(4, "10.0.0.9", []byte{0, 0x1b, 0x21, 0, 0, 9})))
	assert.Equal(t, 3, at.Len())
	e, err = at.Get(netip.MustParseAddr("10.0.0.9"))
	require.NoError(t, err)
	assert.Equal(t, 4, e.IfIndex)

	_, err = at.Get(netip.MustParseAddr("10.0.0.1"))
	assert.True(t, errors.Is(err, naboer.ErrNotFound))

	entries := at.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "10.0.0.9", entries[0].IP.String())
	assert.Equal(t, "10.0.0.10", entries[1].IP.String())
	assert.Equal(t, "192.0.2.1", entries[2].IP.String())

	lines := strings.Split(at.String(), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "ARP table for sw1", lines[0])
	assert.Equal(t, "IP                  MAC               IfIndex", lines[1])
	assert.Equal(t, "        10.0.0.9 -> 00:1b:21:00:00:09 (4)", lines[2])
}

func TestARPFromIndex(t *testing.T) {
	r := naboer.NewRow(7, 10, 1, 2, 3)
	r.Values["ipNetToMediaPhysAddress"] = []byte{1, 2, 3, 4, 5, 6}
	at := discovery.NewARPTable("sw1")
	require.NoError(t, at.AddEntry(r))
	e, err := at.Get(netip.MustParseAddr("10.1.2.3"))
	require.NoError(t, err)
	assert.Equal(t, 7, e.IfIndex)

	bad := naboer.NewRow(7)
	bad.Values["ipNetToMediaPhysAddress"] = []byte{1, 2, 3, 4, 5, 6}
	assert.True(t, errors.Is(at.AddEntry(bad), naboer.ErrDecode))
}

func TestAddressTable(t *testing.T) {
	tbl := discovery.NewAddressTable("sw1")
	require.NoError(t, tbl.AddEntry(addrRow(5, "192.0.2.1", "255.255.255.0")))
	require.NoError(t, tbl.AddEntry(addrRow(1, "10.0.0.1", "255.255.255.252")))
	a, err := tbl.Get(5)
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.1/24", a.Prefix.String())

	_, err = tbl.Get(2)
	assert.True(t, errors.Is(err, naboer.ErrNotFound))

	assert.True(t, errors.Is(tbl.AddEntry(addrRow(3, "10.0.0.1", "255.0.255.0")), naboer.ErrDecode))

	assert.Equal(t, "Address table for sw1\n IfIndex IP Address\n       1 10.0.0.1/30\n       5 192.0.2.1/24", tbl.String())
}

func TestEmptyReports(t *testing.T) {
	assert.Equal(t, "ARP table for x\nIP                  MAC               IfIndex", discovery.NewARPTable("x").String())
	assert.Equal(t, "Address table for x\n IfIndex IP Address", discovery.NewAddressTable("x").String())
	assert.Len(t, strings.Split(discovery.NewNeighborTable("x", discovery.ProtoCDP).String(), "\n"), 2)
	assert.Len(t, strings.Split(discovery.NewNeighborTable("x", discovery.ProtoCDP).Group().String(), "\n"), 2)
}

func TestCorrelateCDP(t *testing.T) {
	rows := []naboer.Row{
		cdpRow(1, 5, "core1", "Gi0/1", "cisco WS-C3850", []byte{0, 0, 0, 0x29}),
		cdpRow(2, 7, "phone7", "Port 1", "Cisco IP Phone", []byte{0, 0, 0x04, 0x90}),
	}
	nt, err := discovery.CorrelateCDP("sw1", rows, ifaces())
	require.NoError(t, err)
	entries := nt.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "eth0", entries[0].Interface)
	assert.Equal(t, "core1", entries[0].DeviceID)
	assert.Equal(t, "Gi0/1", entries[0].DevicePort)
	assert.Equal(t, "cisco WS-C3850", entries[0].Platform)
	assert.True(t, entries[0].Capabilities.Flags().Router)
	assert.Equal(t, "eth1", entries[1].Interface)
	assert.Equal(t, "phone7", entries[1].DeviceID)
	assert.Equal(t, "Host Phone", entries[1].Capabilities.String())
	assert.Equal(t, 2, entries[1].IfIndex)
}

func TestCorrelateCDPUnknownInterface(t *testing.T) {
	rows := []naboer.Row{
		cdpRow(1, 5, "core1", "Gi0/1", "cisco", nil),
		cdpRow(3, 9, "ghost", "Gi0/9", "cisco", nil),
	}
	nt, err := discovery.CorrelateCDP("sw1", rows, ifaces())
	assert.Nil(t, nt)
	assert.True(t, errors.Is(err, naboer.ErrNotFound))
}

func TestCorrelateCDPMissingDevice(t *testing.T) {
	r := naboer.NewRow(1, 1)
	_, err := discovery.CorrelateCDP("sw1", []naboer.Row{r}, ifaces())
	assert.True(t, errors.Is(err, naboer.ErrDecode))
}

func TestGroup(t *testing.T) {
	rows := []naboer.Row{
		cdpRow(2, 1, "a", "p1", "x", nil),
		cdpRow(1, 2, "b", "p2", "y", nil),
		cdpRow(2, 3, "c", "p3", "z", nil),
	}
	nt, err := discovery.CorrelateCDP("sw1", rows, ifaces())
	require.NoError(t, err)
	g := nt.Group()
	require.Len(t, g.Interfaces, 2)
	assert.Equal(t, "eth1", g.Interfaces[0].Interface)
	assert.Equal(t, "a", g.Interfaces[0].Neighbors[0].DeviceID)
	assert.Equal(t, "c", g.Interfaces[0].Neighbors[1].DeviceID)
	assert.Equal(t, "eth0", g.Interfaces[1].Interface)
	assert.Equal(t, strings.Join([]string{
		"Neighbors of sw1",
		"Interface -> Device:Port (Platform)",
		"eth1 ->",
		"        a:p1 (x)",
		"        c:p3 (z)",
		"eth0 ->",
		"        b:p2 (y)",
	}, "\n"), g.String())
}

func TestCorrelateLLDP(t *testing.T) {
	ports := omap.New("lldpLocPortDesc")
	ports.Add(12, "ge-0/0/11")
	r := naboer.NewRow(0, 12, 1)
	r.Values["lldpRemChassisIdSubtype"] = 4
	r.Values["lldpRemChassisId"] = []byte{0, 0x1b, 0x21, 0xaa, 0xbb, 0xcc}
	r.Values["lldpRemPortIdSubtype"] = 5
	r.Values["lldpRemPortId"] = []byte("xe-0/0/1")
	r.Values["lldpRemSysDesc"] = []byte("Juniper Networks, Inc. qfx5100\nKernel JNPR")
	r.Values["lldpRemSysCapEnabled"] = []byte{0x28, 0}

	nt, err := discovery.CorrelateLLDP("sw1", []naboer.Row{r}, ports)
	require.NoError(t, err)
	n := nt.Entries()[0]
	assert.Equal(t, "ge-0/0/11", n.Interface)
	assert.Equal(t, "00:1b:21:aa:bb:cc", n.DeviceID)
	assert.Equal(t, "xe-0/0/1", n.DevicePort)
	assert.Equal(t, "Juniper Networks, Inc. qfx5100", n.Platform)
	assert.Equal(t, "Router Trans-Bridge", n.Capabilities.String())

	r.Values["lldpRemSysName"] = []byte("spine1")
	nt, err = discovery.CorrelateLLDP("sw1", []naboer.Row{r}, ports)
	require.NoError(t, err)
	assert.Equal(t, "spine1", nt.Entries()[0].DeviceID)

	_, err = discovery.CorrelateLLDP("sw1", []naboer.Row{naboer.NewRow(0, 13, 1)}, ports)
	assert.True(t, errors.Is(err, naboer.ErrNotFound))
}

func TestManager(t *testing.T) {
	f := naboertest.New()
	for i, n := range []string{"eth0", "eth1"} {
		r := naboer.NewRow(i + 1)
		r.Values["ifDescr"] = []byte(n)
		f.AddRow("ifDescr", r)
	}
	f.AddRow("cdpCacheTable", cdpRow(1, 5, "core1", "Gi0/1", "cisco", []byte{0, 0, 0, 1}))
	f.AddRow("cdpCacheTable", cdpRow(2, 7, "core2", "Gi0/2", "cisco", []byte{0, 0, 0, 1}))
	f.AddRow("ipNetToMediaTable", arpRow(1, "10.0.0.2", []byte{1, 2, 3, 4, 5, 6}))
	f.AddRow("ipAddrTable", addrRow(1, "10.0.0.1", "255.255.255.0"))

	m := discovery.Manager{Access: f, Host: "sw1"}
	ctx := context.Background()

	nt, err := m.CDP(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, nt.Len())

	arp, err := m.ARP(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, arp.Len())

	addrs, err := m.Addresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, addrs.Len())

	for _, name := range discovery.Reports {
		if name == discovery.ReportLLDP {
			continue
		}
		r, err := m.Report(ctx, name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, r.String())
	}
	r, err := m.Report(ctx, discovery.ReportInterfaces)
	require.NoError(t, err)
	assert.Equal(t, "Interface table for sw1\n IfIndex Name\n       1 eth0\n       2 eth1", r.String())

	_, err = m.Report(ctx, "routes")
	assert.True(t, errors.Is(err, naboer.ErrUnknownOperation))

	// no lldp tables at all
	_, err = m.Report(ctx, discovery.ReportLLDP)
	assert.True(t, errors.Is(err, naboer.ErrUnknownTable))
}

func TestManagerTransportError(t *testing.T) {
	f := naboertest.New()
	f.TableErr = errors.New("timeout")
	m := discovery.Manager{Access: f, Host: "sw1"}
	_, err := m.CDP(context.Background())
	assert.True(t, errors.Is(err, naboer.ErrTransport))
}

func TestManagerCachedMaps(t *testing.T) {
	f := naboertest.New()
	r := naboer.NewRow(1)
	r.Values["ifDescr"] = []byte("eth0")
	f.AddRow("ifDescr", r)
	f.AddRow("cdpCacheTable", cdpRow(1, 5, "core1", "Gi0/1", "cisco", []byte{0, 0, 0, 1}))

	m := discovery.Manager{Access: f, Host: "sw1", Maps: &omap.Cache{MaxAge: time.Hour}}
	ctx := context.Background()
	first, err := m.Interfaces(ctx)
	require.NoError(t, err)

	// a new interface showing up is not seen until the map ages out
	r2 := naboer.NewRow(2)
	r2.Values["ifDescr"] = []byte("eth1")
	f.AddRow("ifDescr", r2)
	f.AddRow("cdpCacheTable", cdpRow(2, 5, "core2", "Gi0/2", "cisco", []byte{0, 0, 0, 1}))

	second, err := m.Interfaces(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	_, err = m.CDP(ctx)
	assert.True(t, errors.Is(err, naboer.ErrNotFound))

	m.Maps.Clear("sw1", "ifDescr")
	nt, err := m.CDP(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, nt.Len())
}
