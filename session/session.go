/*
 * naboer snmp session
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

package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"
	"github.com/telenornms/naboer"
	"github.com/telenornms/naboer/smierte"
)

// Session is a single SNMP session towards a single target. It is not
// safe for concurrent use, see the inventory package for how to avoid
// that.
type Session struct {
	S         gosnmp.Handler
	Target    string
	Community string
}

func (s *Session) init() error {
	version := gosnmp.Version2c
	if naboer.Config.Version == "1" {
		version = gosnmp.Version1
	}
	gs := gosnmp.NewHandler()
	gs.SetPort(161)
	gs.SetCommunity(s.Community)
	gs.SetVersion(version)
	gs.SetTimeout(naboer.Config.Timeout)
	gs.SetRetries(naboer.Config.Retries)
	gs.SetExponentialTimeout(true)
	gs.SetMaxOids(gosnmp.MaxOids)
	gs.SetTarget(s.Target)
	err := gs.Connect()
	if err != nil {
		return fmt.Errorf("%w: snmp connect: %w", naboer.ErrTransport, err)
	}
	s.S = gs
	return nil
}

// Finalize closes the underlying connection.
func (s *Session) Finalize() {
	if err := s.S.Close(); err != nil {
		naboer.Debugf("%s: close failed: %s", s.Target, err)
	}
}

// Get uses SNMP Get to fetch precise OIDs. it will split it into
// multiple requests if there are more nodes than 50. Instances the agent
// doesn't have are skipped, so the callback might be called fewer times
// than there are nodes.
func (s *Session) Get(ctx context.Context, nodes []naboer.Node, cb func(pdu gosnmp.SnmpPDU, node naboer.Node) error) error {
	if len(nodes) < 1 {
		return fmt.Errorf("refusing to carry out GET for 0 nodes")
	}
	oids := make([]string, 0, len(nodes))
	mapback := make(map[string]naboer.Node)
	for _, a := range nodes {
		on := a.Numeric
		if a.Qualified != "" {
			on = a.Qualified
		}
		numeric := fmt.Sprintf(".%s", on)
		oids = append(oids, numeric)
		mapback[numeric] = a
	}
	if oids[0] == "." {
		return fmt.Errorf("corrupt oid-lookup, probably a bug. oids[0] is blank: nodes: %#v", nodes)
	}
	runs := 0
	for i := 0; i < len(oids); i += 50 {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := i + 50
		if end > len(oids) {
			end = len(oids)
		}
		err := s.get(oids[i:end], mapback, cb)
		if err != nil {
			return fmt.Errorf("oid get failed: %w", err)
		}
		runs++
	}
	naboer.Debugf("run for %d oids finished in %d iterations", len(oids), runs)
	return nil
}

func (s *Session) get(oids []string, mapback map[string]naboer.Node, cb func(pdu gosnmp.SnmpPDU, node naboer.Node) error) error {
	result, err := s.S.Get(oids)
	if err != nil {
		return fmt.Errorf("%w: Get failed: %w", naboer.ErrTransport, err)
	}
	if result.Error != gosnmp.NoError {
		return fmt.Errorf("%w: response error: %s", naboer.ErrTransport, result.Error)
	}
	for _, pdu := range result.Variables {
		if pdu.Type == gosnmp.EndOfMibView || pdu.Type == gosnmp.NoSuchObject || pdu.Type == gosnmp.NoSuchInstance {
			naboer.Debugf("got %v when looking for %s. Ignoring.", pdu.Type, pdu.Name)
			continue
		}
		name := pdu.Name
		if !strings.HasPrefix(name, ".") {
			name = "." + name
		}
		node, found := mapback[name]
		if !found {
			naboer.Logf("%s: Invalid pdu returned? WAT: %s", s.Target, pdu.Name)
			continue
		}
		if err := cb(pdu, node); err != nil {
			return fmt.Errorf("callback returned error: %w", err)
		}
	}
	return nil
}

// Walk fetches everything below node. SNMPv1 has no GetBulk, so walking
// falls back to GetNext there.
func (s *Session) Walk(ctx context.Context, node naboer.Node, cb func(pdu gosnmp.SnmpPDU) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if node.Numeric == "" {
		return fmt.Errorf("corrupt oid-lookup, probably a bug. node: %#v", node)
	}
	root := "." + node.Numeric
	var pdus []gosnmp.SnmpPDU
	var err error
	if s.S.Version() == gosnmp.Version1 {
		pdus, err = s.S.WalkAll(root)
	} else {
		pdus, err = s.S.BulkWalkAll(root)
	}
	if err != nil {
		return fmt.Errorf("%w: walk of %s failed: %w", naboer.ErrTransport, node.Name, err)
	}
	for _, pdu := range pdus {
		if err := cb(pdu); err != nil {
			return fmt.Errorf("callback returned error: %w", err)
		}
	}
	naboer.Debugf("%s: walk of %s returned %d pdus", s.Target, node.Name, len(pdus))
	return nil
}

// FetchTable walks a table, entry or single column and folds the result
// into rows, in the order the rows first show up in the walk.
func (s *Session) FetchTable(ctx context.Context, name string) ([]naboer.Row, error) {
	node, err := smierte.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", naboer.ErrUnknownTable, name, err)
	}
	if node.Table == nil {
		return nil, fmt.Errorf("%w: %s is not a table or column", naboer.ErrUnknownTable, name)
	}
	f := newFolder(node.Table)
	if err := s.Walk(ctx, node, f.add); err != nil {
		return nil, err
	}
	return f.rows(), nil
}

// FetchScalar reads a single instance of an object. The returned row has
// the value keyed by the object name.
func (s *Session) FetchScalar(ctx context.Context, object string, index []int) (naboer.Row, error) {
	node, err := lookupInstance(object, index)
	if err != nil {
		return naboer.Row{}, err
	}
	row := naboer.NewRow(index...)
	err = s.Get(ctx, []naboer.Node{node}, func(pdu gosnmp.SnmpPDU, _ naboer.Node) error {
		row.Values[object] = pdu.Value
		return nil
	})
	if err != nil {
		return row, err
	}
	if !row.Has(object) {
		return row, fmt.Errorf("%w: %s.%s on %s", naboer.ErrNotFound, object, naboer.FormatIndex(index), s.Target)
	}
	return row, nil
}

// WriteScalar sets a single instance of an object. Integers are sent as
// INTEGER, strings and byte slices as OCTET STRING.
func (s *Session) WriteScalar(ctx context.Context, object string, index []int, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	node, err := lookupInstance(object, index)
	if err != nil {
		return err
	}
	pdu := gosnmp.SnmpPDU{Name: "." + node.Qualified, Value: value}
	switch v := value.(type) {
	case int:
		pdu.Type = gosnmp.Integer
	case string:
		pdu.Type = gosnmp.OctetString
		pdu.Value = []byte(v)
	case []byte:
		pdu.Type = gosnmp.OctetString
	default:
		return fmt.Errorf("unsupported value type %T for %s", value, object)
	}
	result, err := s.S.Set([]gosnmp.SnmpPDU{pdu})
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", naboer.ErrUnacknowledgedWrite, pdu.Name, err)
	}
	if result.Error != gosnmp.NoError {
		return fmt.Errorf("%w: set %s: response error: %s", naboer.ErrUnacknowledgedWrite, pdu.Name, result.Error)
	}
	return nil
}

func lookupInstance(object string, index []int) (naboer.Node, error) {
	node, err := smierte.Lookup(object)
	if err != nil {
		return node, fmt.Errorf("lookup of %s failed: %w", object, err)
	}
	inst := naboer.FormatIndex(index)
	if inst == "" {
		inst = "0"
	}
	node.Qualified = node.Numeric + "." + inst
	return node, nil
}

// folder turns walked PDUs into rows.
type folder struct {
	table *naboer.Table
	byIdx map[string]*naboer.Row
	order []string
}

func newFolder(t *naboer.Table) *folder {
	return &folder{table: t, byIdx: make(map[string]*naboer.Row)}
}

func (f *folder) add(pdu gosnmp.SnmpPDU) error {
	if pdu.Type == gosnmp.EndOfMibView || pdu.Type == gosnmp.NoSuchObject || pdu.Type == gosnmp.NoSuchInstance {
		return nil
	}
	name := strings.TrimPrefix(pdu.Name, ".")
	if !strings.HasPrefix(name, f.table.Entry+".") {
		naboer.Debugf("pdu %s outside of %s, ignoring", pdu.Name, f.table.Name)
		return nil
	}
	colS, idxS, _ := strings.Cut(name[len(f.table.Entry)+1:], ".")
	col, err := strconv.Atoi(colS)
	if err != nil {
		return fmt.Errorf("bad column in %s: %w", pdu.Name, err)
	}
	colName, ok := f.table.Columns[col]
	if !ok {
		naboer.Debugf("unknown column %d in %s, ignoring", col, f.table.Name)
		return nil
	}
	row, ok := f.byIdx[idxS]
	if !ok {
		idx, err := naboer.ParseIndex(idxS)
		if err != nil {
			return err
		}
		r := naboer.NewRow(idx...)
		row = &r
		f.byIdx[idxS] = row
		f.order = append(f.order, idxS)
	}
	row.Values[colName] = pdu.Value
	return nil
}

func (f *folder) rows() []naboer.Row {
	ret := make([]naboer.Row, 0, len(f.order))
	for _, k := range f.order {
		ret = append(ret, *f.byIdx[k])
	}
	return ret
}

// NewSession connects to target using the configured SNMP version.
func NewSession(target string, community string) (*Session, error) {
	var s Session
	s.Target = target
	s.Community = community
	err := s.init()
	if err != nil {
		return nil, err
	}
	return &s, nil
}
