/*
 * naboer skogul export
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
Package export turns collections and outlet results into Skogul
containers, one metric per row.

Every metric carries the target (and order ID, if any) plus a "table"
metadata field naming what was polled, so a single Skogul handler can
route all of naboer's output.
*/
package export

import (
	"fmt"
	"time"

	"github.com/telenornms/skogul"

	"github.com/telenornms/naboer/discovery"
	"github.com/telenornms/naboer/omap"
	"github.com/telenornms/naboer/outlet"
)

// Sender is what a Skogul handler looks like from here.
type Sender interface {
	TransformAndSend(c *skogul.Container) error
}

// Batch collects metrics for a single order.
type Batch struct {
	Target string
	ID     string
	Time   time.Time
	c      skogul.Container
}

// New starts a batch timestamped now.
func New(target string, id string) *Batch {
	return &Batch{Target: target, ID: id, Time: time.Now()}
}

func (b *Batch) add(table string, meta map[string]interface{}, data map[string]interface{}) {
	m := skogul.Metric{}
	t := b.Time
	m.Time = &t
	m.Metadata = make(map[string]interface{}, len(meta)+3)
	m.Metadata["target"] = b.Target
	m.Metadata["table"] = table
	if b.ID != "" {
		m.Metadata["id"] = b.ID
	}
	for k, v := range meta {
		m.Metadata[k] = v
	}
	m.Data = data
	b.c.Metrics = append(b.c.Metrics, &m)
}

// Len is the number of metrics so far.
func (b *Batch) Len() int {
	return len(b.c.Metrics)
}

// Container returns the collected metrics.
func (b *Batch) Container() *skogul.Container {
	return &b.c
}

// Send hands the batch to s. An empty batch is still sent, an empty table
// is a result too.
func (b *Batch) Send(s Sender) error {
	if len(b.c.Metrics) == 0 {
		b.add("empty", nil, map[string]interface{}{})
	}
	if err := s.TransformAndSend(&b.c); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

func (b *Batch) Interfaces(m *omap.OMap) {
	for idx, name := range m.IdxToName {
		b.add("interfaces", map[string]interface{}{"ifindex": idx}, map[string]interface{}{
			m.Column: name,
		})
	}
}

func (b *Batch) ARP(t *discovery.ARPTable) {
	for _, e := range t.Entries() {
		b.add("arp", map[string]interface{}{"ip": e.IP.String()}, map[string]interface{}{
			"mac":     e.MAC.String(),
			"ifindex": e.IfIndex,
		})
	}
}

func (b *Batch) Addresses(t *discovery.AddressTable) {
	for _, a := range t.Entries() {
		b.add("addresses", map[string]interface{}{"ifindex": a.IfIndex}, map[string]interface{}{
			"address": a.Prefix.Addr().String(),
			"prefix":  a.Prefix.String(),
			"length":  a.Prefix.Bits(),
		})
	}
}

func (b *Batch) neighbor(n discovery.Neighbor) {
	data := map[string]interface{}{
		"ifindex":      n.IfIndex,
		"device_id":    n.DeviceID,
		"device_port":  n.DevicePort,
		"platform":     n.Platform,
		"capabilities": n.Capabilities.Description(false),
		"capability":   uint32(n.Capabilities),
	}
	if n.Address.IsValid() {
		data["address"] = n.Address.String()
	}
	b.add("neighbors", map[string]interface{}{
		"protocol":  n.Protocol,
		"interface": n.Interface,
	}, data)
}

func (b *Batch) Neighbors(t *discovery.NeighborTable) {
	for _, n := range t.Entries() {
		b.neighbor(n)
	}
}

func (b *Batch) Grouped(g *discovery.Grouped) {
	for _, i := range g.Interfaces {
		for _, n := range i.Neighbors {
			b.neighbor(n)
		}
	}
}

func (b *Batch) Outlets(c *outlet.Controls) {
	for _, r := range c.Entries() {
		b.add("outlets", map[string]interface{}{"outlet": r.Index}, map[string]interface{}{
			"name":    r.Name,
			"state":   r.Command.String(),
			"command": int(r.Command),
		})
	}
}

func (b *Batch) OutletConfig(r *outlet.ConfigReport) {
	for _, e := range r.Entries {
		b.add("outletconfig", map[string]interface{}{"outlet": e.Index}, map[string]interface{}{
			"name": e.Name,
			"mode": e.Mode.String(),
		})
	}
}

func (b *Batch) Summary(s outlet.Summary) {
	b.add("summary", nil, map[string]interface{}{
		"label":   s.Label,
		"outlets": s.Outlets,
	})
}

// Result exports an outlet command. The write error, if any, is included
// as text since it did not fail the command.
func (b *Batch) Result(r outlet.Result) {
	data := map[string]interface{}{
		"command":   r.Command.String(),
		"state":     r.State.String(),
		"confirmed": r.Confirmed(),
	}
	if r.Observed != 0 {
		data["observed"] = r.Observed.String()
	}
	if r.WriteErr != nil {
		data["write_error"] = r.WriteErr.Error()
	}
	b.add("outletcontrol", map[string]interface{}{"outlet": r.Outlet}, data)
}
