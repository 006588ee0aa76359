/*
 * naboer common types
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

package naboer

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"
)

// NodeKind tells what sort of SMI node a Node refers to, which decides
// how a walk of it is folded into rows.
type NodeKind int

const (
	KindOther  NodeKind = iota
	KindScalar          // a single object, instance .0
	KindTable           // a table or its entry
	KindColumn          // one column of a table
)

// Table describes the columns of a conceptual table, enough to turn the
// PDUs of a walk into rows.
type Table struct {
	Name    string         // e.g.: ipNetToMediaTable
	Entry   string         // numeric OID of the entry, no leading dot
	Columns map[int]string // column sub-identifier to column name
}

// Node is a rendered SMI node, e.g.: the result of a lookup. Usually
// handled by the smierte sub-package, but needs to be defined up here to
// avoid circular dependencies
type Node struct {
	Key       string // original input key, kept for posterity
	Name      string
	Numeric   string // no leading dot
	Qualified string // Numeric + instance, if the key had one
	Kind      NodeKind
	Table     *Table // set for KindTable and KindColumn
	Column    int    // column sub-identifier for KindColumn
}

// Row is one row of a table as polled, before it is decoded into anything
// typed. Index is the instance suffix (e.g.: ifIndex.deviceIndex for the
// CDP cache) and Values maps column name to the raw value as delivered
// by gosnmp.
type Row struct {
	Index  []int
	Values map[string]any
}

// Access is the part of a management session the table consumers need.
// It's implemented by session.Session, but anything that can produce rows
// will do, which is what the tests rely on.
//
// FetchTable accepts the name of a table, its entry or a single column.
// FetchScalar reads one object instance, WriteScalar sets one.
type Access interface {
	FetchTable(ctx context.Context, name string) ([]Row, error)
	FetchScalar(ctx context.Context, object string, index []int) (Row, error)
	WriteScalar(ctx context.Context, object string, index []int, value any) error
}

// NewRow returns an empty row for the given index.
func NewRow(index ...int) Row {
	return Row{Index: index, Values: make(map[string]any)}
}

// Has reports whether the column was present in the poll.
func (r Row) Has(col string) bool {
	_, ok := r.Values[col]
	return ok
}

func (r Row) value(col string) (any, error) {
	v, ok := r.Values[col]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: column %s missing from row %s", ErrDecode, col, FormatIndex(r.Index))
	}
	return v, nil
}

// String returns a column as a string. Octet strings are used verbatim.
func (r Row) String(col string) (string, error) {
	v, err := r.value(col)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	default:
		return fmt.Sprint(t), nil
	}
}

// Bytes returns a column as raw bytes.
func (r Row) Bytes(col string) ([]byte, error) {
	v, err := r.value(col)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, fmt.Errorf("%w: column %s is %T, not an octet string", ErrDecode, col, v)
	}
}

// Int returns a numeric column as an int.
func (r Row) Int(col string) (int, error) {
	v, err := r.value(col)
	if err != nil {
		return 0, err
	}
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return int(gosnmp.ToBigInt(v).Int64()), nil
	case string:
		i, err := strconv.Atoi(v.(string))
		if err != nil {
			return 0, fmt.Errorf("%w: column %s: %v", ErrDecode, col, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: column %s is %T, not a number", ErrDecode, col, v)
	}
}

// IP returns an IpAddress column. gosnmp hands these over as dotted
// strings, but some agents put them in plain octet strings.
func (r Row) IP(col string) (netip.Addr, error) {
	v, err := r.value(col)
	if err != nil {
		return netip.Addr{}, err
	}
	switch t := v.(type) {
	case string:
		a, err := netip.ParseAddr(t)
		if err != nil {
			return netip.Addr{}, fmt.Errorf("%w: column %s: %v", ErrDecode, col, err)
		}
		return a, nil
	case []byte:
		a, ok := netip.AddrFromSlice(t)
		if !ok {
			return netip.Addr{}, fmt.Errorf("%w: column %s: %d bytes is not an address", ErrDecode, col, len(t))
		}
		return a.Unmap(), nil
	default:
		return netip.Addr{}, fmt.Errorf("%w: column %s is %T, not an address", ErrDecode, col, v)
	}
}

// FormatIndex renders an index as the dotted OID suffix, e.g. "1.5".
func FormatIndex(idx []int) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ".")
}

// ParseIndex is the reverse of FormatIndex. A leading dot is accepted.
func ParseIndex(s string) ([]int, error) {
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ".")
	ret := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid index component `%s' in %s: %w", p, s, err)
		}
		ret[i] = v
	}
	return ret, nil
}
