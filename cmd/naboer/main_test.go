/*
 * naboer order daemon tests
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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telenornms/skogul"

	"github.com/telenornms/naboer"
	"github.com/telenornms/naboer/naboertest"
	"github.com/telenornms/naboer/omap"
)

type sender struct {
	mu  sync.Mutex
	got []*skogul.Container
}

func (s *sender) TransformAndSend(c *skogul.Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, c)
	return nil
}

// acker records what happened to each delivery.
type acker struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  map[uint64]bool // tag -> requeue
	rejects []uint64
}

func newAcker() *acker {
	return &acker{nacked: make(map[uint64]bool)}
}

func (a *acker) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *acker) Nack(tag uint64, multiple bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked[tag] = requeue
	return nil
}

func (a *acker) Reject(tag uint64, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejects = append(a.rejects, tag)
	return nil
}

func delivery(a *acker, tag uint64, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: a, DeliveryTag: tag, Body: []byte(body)}
}

func engine(f *naboertest.Fake) (*Engine, *sender) {
	s := &sender{}
	e := &Engine{
		Sender: s,
		Maps:   &omap.Cache{MaxAge: time.Hour},
		Open: func(target string, community string) (naboer.Access, func(), error) {
			return f, func() {}, nil
		},
	}
	return e, s
}

func TestOrderJSON(t *testing.T) {
	o := Order{}
	err := json.Unmarshal([]byte(`{"Target": "pdu1", "Mode": "outletcontrol", "Outlet": 3, "Command": "immediateOn", "ID": "x"}`), &o)
	require.NoError(t, err)
	assert.Equal(t, OutletControl, o.Mode)
	assert.Equal(t, 3, o.Outlet)
	assert.Equal(t, "immediateOn", o.Command)

	err = json.Unmarshal([]byte(`{"Target": "sw1", "Mode": "bogus"}`), &o)
	assert.Error(t, err)

	b, err := json.Marshal(Order{Target: "sw1", Mode: LLDP})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Target": "sw1", "Mode": "LLDP"}`, string(b))

	_, err = json.Marshal(Order{Mode: Mode(99)})
	assert.Error(t, err)
}

func TestRunARP(t *testing.T) {
	f := naboertest.New()
	r := naboer.NewRow(2, 10, 0, 0, 9)
	r.Values["ipNetToMediaPhysAddress"] = []byte{0, 1, 2, 3, 4, 5}
	f.AddRow("ipNetToMediaTable", r)
	e, s := engine(f)

	require.NoError(t, e.Run(context.Background(), Order{Target: "sw1", Mode: ARP, ID: "a1"}))
	require.Len(t, s.got, 1)
	require.Len(t, s.got[0].Metrics, 1)
	m := s.got[0].Metrics[0]
	assert.Equal(t, "a1", m.Metadata["id"])
	assert.Equal(t, "10.0.0.9", m.Metadata["ip"])
}

func TestRunNeighborsUsesCache(t *testing.T) {
	f := naboertest.New()
	ifr := naboer.NewRow(1)
	ifr.Values["ifDescr"] = []byte("Gi0/1")
	f.AddRow("ifDescr", ifr)
	cdp := naboer.NewRow(1, 4)
	cdp.Values["cdpCacheDeviceId"] = []byte("core1")
	f.AddRow("cdpCacheTable", cdp)
	e, s := engine(f)
	ctx := context.Background()

	require.NoError(t, e.Run(ctx, Order{Target: "sw1", Mode: Neighbors}))
	require.Len(t, s.got, 1)
	assert.Equal(t, "Gi0/1", s.got[0].Metrics[0].Metadata["interface"])

	f.Tables["ifDescr"] = nil
	require.NoError(t, e.Run(ctx, Order{Target: "sw1", Mode: CDP}), "cached map still used")
	require.NoError(t, e.Run(ctx, Order{Target: "sw1", Mode: ClearMap}))
	err := e.Run(ctx, Order{Target: "sw1", Mode: CDP})
	assert.True(t, errors.Is(err, naboer.ErrNotFound))
}

func TestRunOutletControl(t *testing.T) {
	f := naboertest.New()
	f.Set("sPDUOutletControlMSPOutletCommand", []int{1, 1, 2}, 3)
	e, s := engine(f)
	naboer.Config.SettleTime = time.Millisecond
	defer func() { naboer.Config.SettleTime = 5 * time.Second }()

	require.NoError(t, e.Run(context.Background(), Order{Target: "pdu1", Mode: OutletControl, Outlet: 2, Command: "immediateOn"}))
	require.Len(t, s.got, 1)
	assert.Equal(t, true, s.got[0].Metrics[0].Data["confirmed"])

	// unconfirmed is reported, not failed
	f.WriteErr = errors.New("timeout")
	f.ApplyWrites = false
	require.NoError(t, e.Run(context.Background(), Order{Target: "pdu1", Mode: OutletControl, Outlet: 2, Command: "immediateOff"}))
	require.Len(t, s.got, 2)
	assert.Equal(t, false, s.got[1].Metrics[0].Data["confirmed"])

	err := e.Run(context.Background(), Order{Target: "pdu1", Mode: OutletControl, Outlet: 2, Command: "explode"})
	assert.Error(t, err)
}

func TestRunErrors(t *testing.T) {
	f := naboertest.New()
	f.TableErr = errors.New("timeout")
	e, s := engine(f)
	err := e.Run(context.Background(), Order{Target: "sw1", Mode: Addresses})
	assert.True(t, errors.Is(err, naboer.ErrTransport))
	assert.Empty(t, s.got)

	err = e.Run(context.Background(), Order{Target: "sw1", Mode: Mode(42)})
	assert.True(t, errors.Is(err, naboer.ErrUnknownOperation))
}

func TestOrderRequeue(t *testing.T) {
	assert.True(t, Order{Mode: ARP}.requeue())
	assert.False(t, Order{Mode: OutletControl}.requeue(), "outlet commands")
	assert.False(t, Order{Mode: ARP, delivery: amqp.Delivery{Redelivered: true}}.requeue(), "second failure")
}

func TestServeWaitsForListeners(t *testing.T) {
	f := naboertest.New()
	r := naboer.NewRow(2, 10, 0, 0, 9)
	r.Values["ipNetToMediaPhysAddress"] = []byte{0, 1, 2, 3, 4, 5}
	f.AddRow("ipNetToMediaTable", r)
	e, s := engine(f)
	a := newAcker()

	msgs := make(chan amqp.Delivery, 4)
	msgs <- delivery(a, 1, `{"Target": "sw1", "Mode": "ARP"}`)
	msgs <- delivery(a, 2, `{"Target": "sw1", "Mode": "arp"}`)
	msgs <- delivery(a, 3, `not json`)
	msgs <- delivery(a, 4, `{"Target": "sw1", "Mode": "ARP"}`)
	close(msgs)

	e.Serve(context.Background(), msgs, 1)
	assert.ElementsMatch(t, []uint64{1, 2, 4}, a.acked)
	assert.Equal(t, []uint64{3}, a.rejects)
	assert.Len(t, s.got, 3)
}

func TestListenerBackoffFollowsContext(t *testing.T) {
	e, _ := engine(naboertest.New())
	e.Open = func(target string, community string) (naboer.Access, func(), error) {
		return nil, nil, naboer.ErrTransport
	}
	e.Backoff = func() time.Duration { return time.Hour }
	a := newAcker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := make(chan Order, 2)
	c <- Order{Target: "sw1", Mode: ARP, delivery: delivery(a, 1, "")}
	c <- Order{Target: "pdu1", Mode: OutletControl, delivery: delivery(a, 2, "")}
	close(c)

	done := make(chan struct{})
	go func() {
		e.Listener(ctx, c, "0")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener kept sleeping after cancel")
	}
	assert.Equal(t, map[uint64]bool{1: true, 2: false}, a.nacked)
	assert.Empty(t, a.acked)
}

func TestServeStopsOnCancel(t *testing.T) {
	e, _ := engine(naboertest.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		e.Serve(ctx, make(chan amqp.Delivery), 2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
