/*
 * naboer test access layer
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
Package naboertest provides an in-memory naboer.Access for tests, much
like net/http/httptest does for handlers.
*/
package naboertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/telenornms/naboer"
)

// Write records a single WriteScalar call.
type Write struct {
	Object string
	Index  []int
	Value  any
}

// Fake is an Access backed by maps. Tables are returned verbatim, scalars
// are keyed by Key(object, index).
//
// If ApplyWrites is set, writes update Scalars even when WriteErr is
// returned, which is how an agent that executes a SET without answering
// it looks from the outside.
type Fake struct {
	Tables      map[string][]naboer.Row
	Scalars     map[string]any
	TableErr    error
	ReadErr     error
	WriteErr    error
	ApplyWrites bool

	mu     sync.Mutex
	Writes []Write
	Reads  int
}

// New returns an empty Fake that applies writes.
func New() *Fake {
	return &Fake{
		Tables:      make(map[string][]naboer.Row),
		Scalars:     make(map[string]any),
		ApplyWrites: true,
	}
}

// Key is the Scalars key for an object instance.
func Key(object string, index []int) string {
	return object + "." + naboer.FormatIndex(index)
}

// Set stores a scalar.
func (f *Fake) Set(object string, index []int, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scalars[Key(object, index)] = value
}

// AddRow appends a row to a table.
func (f *Fake) AddRow(table string, row naboer.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Tables[table] = append(f.Tables[table], row)
}

func (f *Fake) FetchTable(ctx context.Context, name string) ([]naboer.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TableErr != nil {
		return nil, fmt.Errorf("%w: %w", naboer.ErrTransport, f.TableErr)
	}
	rows, ok := f.Tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", naboer.ErrUnknownTable, name)
	}
	ret := make([]naboer.Row, len(rows))
	copy(ret, rows)
	return ret, nil
}

func (f *Fake) FetchScalar(ctx context.Context, object string, index []int) (naboer.Row, error) {
	if err := ctx.Err(); err != nil {
		return naboer.Row{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++
	if f.ReadErr != nil {
		return naboer.Row{}, fmt.Errorf("%w: %w", naboer.ErrTransport, f.ReadErr)
	}
	v, ok := f.Scalars[Key(object, index)]
	if !ok {
		return naboer.Row{}, fmt.Errorf("%w: %s", naboer.ErrNotFound, Key(object, index))
	}
	row := naboer.NewRow(index...)
	row.Values[object] = v
	return row, nil
}

func (f *Fake) WriteScalar(ctx context.Context, object string, index []int, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = append(f.Writes, Write{Object: object, Index: index, Value: value})
	if f.WriteErr == nil || f.ApplyWrites {
		f.Scalars[Key(object, index)] = value
	}
	if f.WriteErr != nil {
		return fmt.Errorf("%w: %w", naboer.ErrUnacknowledgedWrite, f.WriteErr)
	}
	return nil
}
