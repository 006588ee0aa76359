/*
 * naboer map
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

package omap

import (
	"context"
	"fmt"
	"time"

	"github.com/telenornms/naboer"
)

// OMap is a two-way map of index to name, the typical case is ifIndex to
// ifDescr, but can be anything with a single integer index, e.g.: LLDP
// local port numbers to lldpLocPortDesc.
type OMap struct {
	IdxToName map[int]string
	NameToIdx map[string]int
	Column    string    // Column used to build the map, e.g.: ifDescr
	Timestamp time.Time // When was the map created?
}

// New returns an empty map for column, ready for Add.
func New(column string) *OMap {
	return &OMap{
		IdxToName: make(map[int]string),
		NameToIdx: make(map[string]int),
		Column:    column,
		Timestamp: time.Now(),
	}
}

// BuildOMap fetches column from the access layer and maps the first
// index component of each row to its value.
func BuildOMap(ctx context.Context, a naboer.Access, column string) (*OMap, error) {
	m := New(column)
	rows, err := a.FetchTable(ctx, column)
	if err != nil {
		return nil, fmt.Errorf("unable to build map from %s: %w", column, err)
	}
	for _, r := range rows {
		if len(r.Index) < 1 {
			return nil, fmt.Errorf("%w: row without index in %s", naboer.ErrDecode, column)
		}
		name, err := r.String(column)
		if err != nil {
			return nil, err
		}
		m.Add(r.Index[0], name)
	}
	since := time.Since(m.Timestamp).Round(time.Millisecond * 100)
	naboer.Debugf("omap built with %d elements in %s", len(m.IdxToName), since.String())
	return m, nil
}

// Add inserts or replaces an entry.
func (m *OMap) Add(idx int, name string) {
	if old, ok := m.IdxToName[idx]; ok {
		delete(m.NameToIdx, old)
	}
	m.IdxToName[idx] = name
	m.NameToIdx[name] = idx
}

// Name resolves an index, failing with naboer.ErrNotFound if it's not in
// the map.
func (m *OMap) Name(idx int) (string, error) {
	n, ok := m.IdxToName[idx]
	if !ok {
		return "", fmt.Errorf("%w: index %d not in %s map", naboer.ErrNotFound, idx, m.Column)
	}
	return n, nil
}

// Index is the reverse of Name.
func (m *OMap) Index(name string) (int, error) {
	i, ok := m.NameToIdx[name]
	if !ok {
		return 0, fmt.Errorf("%w: `%s' not in %s map", naboer.ErrNotFound, name, m.Column)
	}
	return i, nil
}

// Age is how long since the map was built.
func (m *OMap) Age() time.Duration {
	return time.Since(m.Timestamp)
}
