/*
 * naboer omap cache
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
	"sync"
	"time"

	"github.com/telenornms/naboer"
)

// Cache keeps built maps per target and column, rebuilding them when they
// are older than MaxAge. Safe for concurrent use.
type Cache struct {
	MaxAge time.Duration
	mu     sync.Mutex
	maps   map[string]map[string]*OMap
}

// NewCache returns a cache using the configured max map age.
func NewCache() *Cache {
	return &Cache{MaxAge: naboer.Config.MaxMapAge}
}

// Get returns the map for target/column, building it on demand.
func (c *Cache) Get(ctx context.Context, target string, column string, a naboer.Access) (*OMap, error) {
	c.mu.Lock()
	m := c.maps[target][column]
	c.mu.Unlock()
	if m != nil {
		if m.Age() <= c.MaxAge {
			return m, nil
		}
		naboer.Debugf("Deleting aged out %s-map for %s", column, target)
	}
	m, err := BuildOMap(ctx, a, column)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maps == nil {
		c.maps = make(map[string]map[string]*OMap)
	}
	if c.maps[target] == nil {
		c.maps[target] = make(map[string]*OMap)
	}
	c.maps[target][column] = m
	return m, nil
}

// Clear empties the cache for a target/column combo. If the column is
// blank, ALL maps for that target are cleared.
func (c *Cache) Clear(target string, column string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if column == "" {
		naboer.Logf("Deleting all maps for %s on request", target)
		delete(c.maps, target)
		return
	}
	if c.maps[target] == nil || c.maps[target][column] == nil {
		naboer.Debugf("Map `%s' for %s not found while trying to clear cache. Nothing to do.", column, target)
		return
	}
	naboer.Logf("Deleting `%s'-map for %s on request", column, target)
	delete(c.maps[target], column)
}
