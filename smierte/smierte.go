/*
 * naboer smi-pain
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

/*
Package smierte handles loading MIB files and modules (SMI)-stuff. The name
is a play on SMI and smerte (pain), because this is such a painful process.

While this is based on gosmi, we should try to hide as much as that as
possible because it's not unlikely that it'll be switched. The tables
naboer itself depends on are also compiled in (see builtin.go), so the
core works even on a box without a single MIB file installed. When the
MIB modules are loaded, gosmi wins.
*/

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/sleepinggenius2/gosmi"
	"github.com/sleepinggenius2/gosmi/smi"
	"github.com/sleepinggenius2/gosmi/types"
	"github.com/telenornms/naboer"
)

// cache is an internal OID-cache for Nodes, to avoid expensive SMI-lookups
// for what is most likely very repetitive lookups. So far, extremely
// simple with no LRU or anything.
var cache sync.Map

var (
	loaded   bool
	loadLock sync.Mutex
)

var numericRe = regexp.MustCompile(`^\.?[0-9]+(\.[0-9]+)*$`)

// Init loads MIB files from disk. Failing to load a module is an error,
// but an empty module list is fine and leaves us with the built-in
// tables.
func Init(modules []string, paths []string) error {
	loadLock.Lock()
	defer loadLock.Unlock()
	if len(modules) == 0 {
		return nil
	}
	gosmi.Init()
	for _, path := range paths {
		naboer.Debugf("mib path added: %s", path)
		gosmi.AppendPath(path)
	}
	for _, module := range modules {
		moduleName, err := gosmi.LoadModule(module)
		if err != nil {
			return fmt.Errorf("module load failed: %w", err)
		}
		naboer.Debugf("Loaded SMI module %s", moduleName)
	}
	loaded = true
	Flush()
	return nil
}

// Exit unloads every MIB module and falls back to the built-in tables.
func Exit() {
	loadLock.Lock()
	defer loadLock.Unlock()
	if loaded {
		gosmi.Exit()
	}
	loaded = false
	Flush()
}

// Flush empties the lookup cache. Needed whenever the set of loaded
// modules changes.
func Flush() {
	cache.Range(func(k, _ any) bool {
		cache.Delete(k)
		return true
	})
}

// Lookup resolves a symbolic name (ifDescr, sysName.0,
// sPDUOutletControlMSPOutletCommand.1.1.3) or a numeric OID to a Node. If
// the input has an instance part, it's kept in Node.Qualified.
func Lookup(item string) (naboer.Node, error) {
	if chit, ok := cache.Load(item); ok {
		cast, _ := chit.(*naboer.Node)
		return *cast, nil
	}
	var ret naboer.Node
	var err error
	if numericRe.MatchString(item) {
		ret, err = lookupNumeric(strings.TrimPrefix(item, "."))
	} else {
		ret, err = lookupName(item)
	}
	if err != nil {
		return ret, err
	}
	ret.Key = item
	cache.Store(item, &ret)
	return ret, nil
}

func lookupName(item string) (naboer.Node, error) {
	name, instance, _ := strings.Cut(item, ".")
	if instance != "" && !numericRe.MatchString(instance) {
		return naboer.Node{}, fmt.Errorf("invalid instance `%s' in %s", instance, item)
	}
	var ret naboer.Node
	found := false
	if loaded {
		n, err := gosmi.GetNode(name)
		if err == nil {
			ret = fromSmi(n)
			found = true
		} else {
			naboer.Debugf("gosmi.GetNode(%s) failed, trying built-in: %s", name, err)
		}
	}
	if !found {
		var ok bool
		ret, ok = builtinByName(name)
		if !ok {
			return ret, fmt.Errorf("%w: no such object `%s'", naboer.ErrNotFound, name)
		}
	}
	if instance != "" {
		ret.Qualified = ret.Numeric + "." + instance
	}
	return ret, nil
}

// lookupNumeric prefers gosmi, but gosmi answers with the closest
// ancestor it knows, so a bare ancestor loses to a built-in match.
func lookupNumeric(item string) (naboer.Node, error) {
	var smiNode *naboer.Node
	if loaded {
		oid, err := types.OidFromString(item)
		if err != nil {
			return naboer.Node{}, fmt.Errorf("unable to resolve OID to string: %w", err)
		}
		n, err := gosmi.GetNodeByOID(oid)
		if err == nil {
			ret := fromSmi(n)
			if ret.Numeric != item {
				ret.Qualified = item
			}
			if ret.Kind != naboer.KindOther {
				return ret, nil
			}
			smiNode = &ret
		} else {
			naboer.Debugf("gosmi.GetNodeByOID(%s) failed, trying built-in: %s", item, err)
		}
	}
	ret, ok := builtinByOID(item)
	if !ok {
		if smiNode != nil {
			return *smiNode, nil
		}
		return ret, fmt.Errorf("%w: no known object covers %s", naboer.ErrNotFound, item)
	}
	if ret.Numeric != item {
		ret.Qualified = item
	}
	return ret, nil
}

// fromSmi converts a gosmi node, filling in the table layout for tables,
// entries and columns.
func fromSmi(n gosmi.SmiNode) naboer.Node {
	ret := naboer.Node{
		Numeric: n.RenderNumeric(),
		Name:    n.Render(types.RenderName),
	}
	switch n.Kind {
	case types.NodeScalar:
		ret.Kind = naboer.KindScalar
	case types.NodeTable:
		ret.Kind = naboer.KindTable
		ret.Table = tableFromRow(n.Name, n.GetRow())
	case types.NodeRow:
		table, ok := parent(n)
		if !ok {
			ret.Kind = naboer.KindOther
			break
		}
		ret.Kind = naboer.KindTable
		ret.Table = tableFromRow(table.Name, n)
	case types.NodeColumn:
		row, ok := parent(n)
		if !ok {
			ret.Kind = naboer.KindOther
			break
		}
		table, ok := parent(row)
		if !ok {
			ret.Kind = naboer.KindOther
			break
		}
		ret.Kind = naboer.KindColumn
		ret.Table = tableFromRow(table.Name, row)
		ret.Column = int(n.Oid[len(n.Oid)-1])
	default:
		ret.Kind = naboer.KindOther
	}
	return ret
}

// parent returns the node one level up. gosmi.SmiNode has no parent
// accessor, so this goes through the smi layer.
func parent(n gosmi.SmiNode) (gosmi.SmiNode, bool) {
	p := smi.GetParentNode(n.GetRaw())
	if p == nil {
		return gosmi.SmiNode{}, false
	}
	return gosmi.CreateNode(p), true
}

func tableFromRow(name string, row gosmi.SmiNode) *naboer.Table {
	t := &naboer.Table{
		Name:    name,
		Entry:   row.RenderNumeric(),
		Columns: make(map[int]string),
	}
	columns, _ := row.GetColumns()
	for _, c := range columns {
		t.Columns[int(c.Oid[len(c.Oid)-1])] = c.Name
	}
	return t
}
