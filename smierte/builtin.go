/*
 * naboer built-in objects
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

package smierte

import (
	"strconv"
	"strings"

	"github.com/telenornms/naboer"
)

// builtinTables are the tables naboer polls itself, with the column
// layout from IF-MIB, IP-MIB, RFC1213-MIB, CISCO-CDP-MIB, LLDP-MIB and
// PowerNet-MIB.
var builtinTables = []naboer.Table{
	{Name: "ifTable", Entry: "1.3.6.1.2.1.2.2.1", Columns: map[int]string{
		1: "ifIndex", 2: "ifDescr", 3: "ifType", 4: "ifMtu", 5: "ifSpeed",
		6: "ifPhysAddress", 7: "ifAdminStatus", 8: "ifOperStatus"}},
	{Name: "ifXTable", Entry: "1.3.6.1.2.1.31.1.1.1", Columns: map[int]string{
		1: "ifName", 18: "ifAlias"}},
	{Name: "ipNetToMediaTable", Entry: "1.3.6.1.2.1.4.22.1", Columns: map[int]string{
		1: "ipNetToMediaIfIndex", 2: "ipNetToMediaPhysAddress",
		3: "ipNetToMediaNetAddress", 4: "ipNetToMediaType"}},
	{Name: "ipAddrTable", Entry: "1.3.6.1.2.1.4.20.1", Columns: map[int]string{
		1: "ipAdEntAddr", 2: "ipAdEntIfIndex", 3: "ipAdEntNetMask",
		4: "ipAdEntBcastAddr", 5: "ipAdEntReasmMaxSize"}},
	{Name: "cdpCacheTable", Entry: "1.3.6.1.4.1.9.9.23.1.2.1.1", Columns: map[int]string{
		1: "cdpCacheIfIndex", 2: "cdpCacheDeviceIndex", 3: "cdpCacheAddressType",
		4: "cdpCacheAddress", 5: "cdpCacheVersion", 6: "cdpCacheDeviceId",
		7: "cdpCacheDevicePort", 8: "cdpCachePlatform", 9: "cdpCacheCapabilities",
		10: "cdpCacheVTPMgmtDomain", 11: "cdpCacheNativeVLAN", 12: "cdpCacheDuplex"}},
	{Name: "lldpLocPortTable", Entry: "1.0.8802.1.1.2.1.3.7.1", Columns: map[int]string{
		1: "lldpLocPortNum", 2: "lldpLocPortIdSubtype", 3: "lldpLocPortId",
		4: "lldpLocPortDesc"}},
	{Name: "lldpRemTable", Entry: "1.0.8802.1.1.2.1.4.1.1", Columns: map[int]string{
		1: "lldpRemTimeMark", 2: "lldpRemLocalPortNum", 3: "lldpRemIndex",
		4: "lldpRemChassisIdSubtype", 5: "lldpRemChassisId",
		6: "lldpRemPortIdSubtype", 7: "lldpRemPortId", 8: "lldpRemPortDesc",
		9: "lldpRemSysName", 10: "lldpRemSysDesc",
		11: "lldpRemSysCapSupported", 12: "lldpRemSysCapEnabled"}},
	{Name: "sPDUMasterStatusMSPTable", Entry: "1.3.6.1.4.1.318.1.1.6.4.1.1", Columns: map[int]string{
		1: "sPDUMasterStatusMSPModuleIndex", 2: "sPDUMasterStatusMSPName",
		3: "sPDUMasterStatusMSPOutletCount"}},
	{Name: "sPDUOutletControlMSPTable", Entry: "1.3.6.1.4.1.318.1.1.6.5.1.1", Columns: map[int]string{
		1: "sPDUOutletControlMSPIndex", 2: "sPDUOutletControlMSPModuleIndex",
		3: "sPDUOutletControlMSPOutletIndex", 4: "sPDUOutletControlMSPOutletName",
		5: "sPDUOutletControlMSPOutletCommand"}},
	{Name: "sPDUOutletConfigMSPallTable", Entry: "1.3.6.1.4.1.318.1.1.6.6.1.1", Columns: map[int]string{
		1: "sPDUOutletConfigMSPallIndex", 2: "sPDUOutletConfigMSPallModuleIndex",
		3: "sPDUOutletConfigMSPallOutletIndex", 4: "sPDUOutletConfigMSPallOutletName",
		5: "sPDUOutletConfigMSPallOutletCtrlMode"}},
}

var builtinScalars = map[string]string{
	"sysDescr":    "1.3.6.1.2.1.1.1",
	"sysObjectID": "1.3.6.1.2.1.1.2",
	"sysUpTime":   "1.3.6.1.2.1.1.3",
	"sysContact":  "1.3.6.1.2.1.1.4",
	"sysName":     "1.3.6.1.2.1.1.5",
	"sysLocation": "1.3.6.1.2.1.1.6",
}

// Tables lists the names of the compiled-in tables.
func Tables() []string {
	ret := make([]string, 0, len(builtinTables))
	for _, t := range builtinTables {
		ret = append(ret, t.Name)
	}
	return ret
}

func entryName(t *naboer.Table) string {
	return strings.TrimSuffix(t.Name, "Table") + "Entry"
}

func builtinByName(name string) (naboer.Node, bool) {
	if oid, ok := builtinScalars[name]; ok {
		return naboer.Node{Name: name, Numeric: oid, Kind: naboer.KindScalar}, true
	}
	for i := range builtinTables {
		t := &builtinTables[i]
		switch name {
		case t.Name:
			return naboer.Node{Name: name, Numeric: parentOID(t.Entry), Kind: naboer.KindTable, Table: t}, true
		case entryName(t):
			return naboer.Node{Name: name, Numeric: t.Entry, Kind: naboer.KindTable, Table: t}, true
		}
		for c, cn := range t.Columns {
			if cn == name {
				return columnNode(t, c), true
			}
		}
	}
	return naboer.Node{}, false
}

// builtinByOID finds the longest known object covering oid.
func builtinByOID(oid string) (naboer.Node, bool) {
	var best naboer.Node
	found := false
	try := func(n naboer.Node) {
		if covers(n.Numeric, oid) && (!found || len(n.Numeric) > len(best.Numeric)) {
			best = n
			found = true
		}
	}
	for name, o := range builtinScalars {
		try(naboer.Node{Name: name, Numeric: o, Kind: naboer.KindScalar})
	}
	for i := range builtinTables {
		t := &builtinTables[i]
		try(naboer.Node{Name: t.Name, Numeric: parentOID(t.Entry), Kind: naboer.KindTable, Table: t})
		try(naboer.Node{Name: entryName(t), Numeric: t.Entry, Kind: naboer.KindTable, Table: t})
		for c := range t.Columns {
			try(columnNode(t, c))
		}
	}
	return best, found
}

func columnNode(t *naboer.Table, c int) naboer.Node {
	return naboer.Node{
		Name:    t.Columns[c],
		Numeric: t.Entry + "." + strconv.Itoa(c),
		Kind:    naboer.KindColumn,
		Table:   t,
		Column:  c,
	}
}

func covers(base, oid string) bool {
	return oid == base || strings.HasPrefix(oid, base+".")
}

func parentOID(oid string) string {
	if i := strings.LastIndex(oid, "."); i > 0 {
		return oid[:i]
	}
	return oid
}
