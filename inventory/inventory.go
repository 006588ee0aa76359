/*
 * naboer inventory
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
Package inventory hands out per-target locks and credentials.

Only one order may run against a target at a time. For an APC unit this is
more than politeness: two outlet commands racing each other would make the
read-back meaningless.

Credentials come from the config: Config.Communities by target, then
Config.DefaultCommunity.
*/
package inventory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/telenornms/naboer"
)

// ErrLocked is returned when another order holds the target.
var ErrLocked = errors.New("target locked")

var targets sync.Map

type Host struct {
	Address   string
	Community string
}

// Community picks the community for target t.
func Community(t string) string {
	if c, ok := naboer.Config.Communities[t]; ok && c != "" {
		return c
	}
	return naboer.Config.DefaultCommunity
}

// LockHost acquires a host-level lock and relevant credentials. Must call
// h.Unlock() when done.
func LockHost(t string) (Host, error) {
	if t == "" {
		return Host{}, fmt.Errorf("%w: empty target", naboer.ErrNotFound)
	}
	if _, loaded := targets.LoadOrStore(t, struct{}{}); loaded {
		return Host{}, fmt.Errorf("%w: %s still busy, refusing to start more runs", ErrLocked, t)
	}
	return Host{Address: t, Community: Community(t)}, nil
}

// Unlock releases the host-level lock.
func (h *Host) Unlock() {
	targets.Delete(h.Address)
}
