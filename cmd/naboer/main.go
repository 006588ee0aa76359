/*
 * naboer order daemon
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
	"flag"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	sconfig "github.com/telenornms/skogul/config"

	"github.com/telenornms/naboer"
	"github.com/telenornms/naboer/discovery"
	"github.com/telenornms/naboer/export"
	"github.com/telenornms/naboer/inventory"
	"github.com/telenornms/naboer/omap"
	"github.com/telenornms/naboer/outlet"
	"github.com/telenornms/naboer/session"
	"github.com/telenornms/naboer/smierte"
)

// Engine is the state shared by all workers: where results go and the
// cached interface maps.
type Engine struct {
	Skogul *sconfig.Config // output
	Sender export.Sender
	Maps   *omap.Cache

	// Open opens the device for an order. Replaced in tests.
	Open func(target string, community string) (naboer.Access, func(), error)
	// Backoff picks the delay before a failed order is requeued. Nil
	// means a random 1-10 seconds.
	Backoff func() time.Duration
}

// Init reads the Skogul configuration and loads MIBs.
func (e *Engine) Init(sc string) error {
	var err error
	e.Skogul, err = sconfig.Path(sc)
	if err != nil {
		return fmt.Errorf("skogul-config failed loading: %w", err)
	}
	if e.Skogul.Handlers["naboer"] == nil {
		return fmt.Errorf("missing naboer handler in skogul config")
	}
	e.Sender = &e.Skogul.Handlers["naboer"].Handler
	e.Maps = omap.NewCache()
	e.Open = openSession
	err = smierte.Init(naboer.Config.MibModules, naboer.Config.MibPaths)
	if err != nil {
		return fmt.Errorf("failed to load mibs: %w", err)
	}
	return nil
}

func openSession(target string, community string) (naboer.Access, func(), error) {
	sess, err := session.NewSession(target, community)
	if err != nil {
		return nil, nil, fmt.Errorf("session creation failed: %w", err)
	}
	return sess, sess.Finalize, nil
}

// Run executes a single order against its target and ships the result.
func (e *Engine) Run(ctx context.Context, o Order) error {
	host, err := inventory.LockHost(o.Target)
	if err != nil {
		return fmt.Errorf("unable to acquire host lock: %w", err)
	}
	defer host.Unlock()
	if o.Mode == ClearMap {
		e.Maps.Clear(o.Target, o.Key)
		return nil
	}

	community := host.Community
	if o.Community != "" {
		community = o.Community
	}
	a, done, err := e.Open(o.Target, community)
	if err != nil {
		return err
	}
	defer done()
	naboer.Debugf("%s - starting %s", o.Target, o.Mode)

	b := export.New(o.Target, o.ID)
	if err := e.collect(ctx, a, o, b); err != nil {
		return err
	}
	return b.Send(e.Sender)
}

func (e *Engine) collect(ctx context.Context, a naboer.Access, o Order, b *export.Batch) error {
	m := discovery.Manager{Access: a, Host: o.Target, Maps: e.Maps}
	c := outlet.NewController(a, o.Target)
	switch o.Mode {
	case Interfaces:
		ifs, err := m.Interfaces(ctx)
		if err != nil {
			return err
		}
		b.Interfaces(ifs)
	case Neighbors, CDP:
		t, err := m.CDP(ctx)
		if err != nil {
			return err
		}
		b.Neighbors(t)
	case LLDP:
		t, err := m.LLDP(ctx)
		if err != nil {
			return err
		}
		b.Neighbors(t)
	case ARP:
		t, err := m.ARP(ctx)
		if err != nil {
			return err
		}
		b.ARP(t)
	case Addresses:
		t, err := m.Addresses(ctx)
		if err != nil {
			return err
		}
		b.Addresses(t)
	case Outlets:
		t, err := c.Outlets(ctx)
		if err != nil {
			return err
		}
		b.Outlets(t)
	case OutletConfig:
		t, err := c.Config(ctx)
		if err != nil {
			return err
		}
		b.OutletConfig(t)
	case Summary:
		s, err := c.Summary(ctx)
		if err != nil {
			return err
		}
		b.Summary(s)
	case OutletControl:
		cmd, err := outlet.ParseCommand(o.Command)
		if err != nil {
			return err
		}
		res, err := c.Run(ctx, o.Outlet, cmd)
		if res.State == outlet.Confirmed || res.State == outlet.Unconfirmed {
			b.Result(res)
		}
		if errors.Is(err, naboer.ErrUnconfirmed) {
			naboer.Logf("%s: %s", o.Target, err)
			return nil
		}
		return err
	default:
		return fmt.Errorf("%w: mode %d", naboer.ErrUnknownOperation, o.Mode)
	}
	return nil
}

// Order is what naboer consumes from the queue. An order always operates
// on a single target (host name or IP address) using a mode.
//
// Outlet and Command are only used by the OutletControl mode. Command is
// the PowerNet-MIB command name, e.g. immediateOn, or its number.
//
// Key is only used by ClearMap: the map column to forget, e.g. ifDescr.
// Blank clears every map of the target.
//
// ID is not used by naboer, but included in the result to allow a caller
// to match the order to the result.
type Order struct {
	Target    string
	Mode      Mode
	Community string `json:",omitempty"` // blank == use default
	Outlet    int    `json:",omitempty"`
	Command   string `json:",omitempty"`
	Key       string `json:",omitempty"`
	ID        string `json:",omitempty"`
	delivery  amqp.Delivery
}

func (o Order) String() string {
	return o.Target
}

type Mode int

const (
	Neighbors Mode = iota // CDP neighbors
	CDP
	LLDP
	ARP
	Addresses
	Interfaces
	Outlets
	OutletConfig
	Summary
	OutletControl // Run Command against Outlet
	ClearMap      // Clear the interface map cache
)

var modeNames = map[Mode]string{
	Neighbors:     "Neighbors",
	CDP:           "CDP",
	LLDP:          "LLDP",
	ARP:           "ARP",
	Addresses:     "Addresses",
	Interfaces:    "Interfaces",
	Outlets:       "Outlets",
	OutletConfig:  "OutletConfig",
	Summary:       "Summary",
	OutletControl: "OutletControl",
	ClearMap:      "ClearMap",
}

func (m Mode) String() string {
	if n, ok := modeNames[m]; ok {
		return n
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m *Mode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for mode, n := range modeNames {
		if strings.EqualFold(n, s) {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("invalid mode: %s", s)
}

func (m Mode) MarshalJSON() ([]byte, error) {
	n, ok := modeNames[m]
	if !ok {
		return []byte("\"\""), fmt.Errorf("invalid mode %d!", m)
	}
	return json.Marshal(n)
}

// requeue tells whether a failed order goes back on the queue. Outlet
// commands are never repeated behind the caller's back.
func (o Order) requeue() bool {
	return !o.delivery.Redelivered && o.Mode != OutletControl
}

func randomBackoff() time.Duration {
	return time.Second + time.Second*time.Duration(rand.Intn(10))
}

// backoff sleeps for d, or until ctx is done.
func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (e *Engine) Listener(ctx context.Context, c chan Order, name string) {
	naboer.Debugf("Starting listener %s...", name)
	for order := range c {
		now := time.Now()
		err := e.Run(ctx, order)
		since := time.Since(now).Round(time.Millisecond * 10)
		if err != nil {
			requeue := order.requeue()
			naboer.Logf("[%2s]: %-15s %s FAIL %s: %s (requeue: %v)", name, order, order.Mode, since.String(), err, requeue)
			if requeue {
				d := randomBackoff()
				if e.Backoff != nil {
					d = e.Backoff()
				}
				naboer.Debugf("Sleeping %v before NACK/requeue", d)
				backoff(ctx, d)
			}
			if err2 := order.delivery.Nack(false, requeue); err2 != nil {
				naboer.Logf("NAck failed: %s", err2)
			}
		} else {
			naboer.Logf("[%2s]: %-15s %s OK %s", name, order, order.Mode, since.String())
			if err2 := order.delivery.Ack(false); err2 != nil {
				naboer.Logf("Ack failed: %s", err2)
			}
		}
	}
}

// Serve hands deliveries to workers listeners until msgs is closed or ctx
// is done, then waits for the listeners to finish what they hold.
func (e *Engine) Serve(ctx context.Context, msgs <-chan amqp.Delivery, workers int) {
	c := make(chan Order)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			e.Listener(ctx, c, name)
		}(fmt.Sprintf("%d", i))
	}
	naboer.Logf("Started %d workers", workers)
	defer func() {
		close(c)
		wg.Wait()
		naboer.Logf("All workers stopped")
	}()
	for {
		select {
		case <-ctx.Done():
			naboer.Logf("Shutting down: %s", ctx.Err())
			return
		case d, ok := <-msgs:
			if !ok {
				naboer.Logf("Delivery channel closed. Connection probably dead.")
				return
			}
			order := Order{}
			if err := json.Unmarshal(d.Body, &order); err != nil {
				naboer.Logf("order json unmarshal: %s", err)
				d.Reject(false)
				continue
			}
			order.delivery = d
			select {
			case c <- order:
			case <-ctx.Done():
				naboer.Logf("Shutting down: %s", ctx.Err())
				d.Nack(false, true)
				return
			}
		}
	}
}

func main() {
	var configFile string
	flag.BoolVar(&naboer.Config.Debug, "debug", false, "enable debug")
	flag.StringVar(&configFile, "f", "/etc/naboer/naboer.yaml", "config file")
	flag.Parse()
	if err := naboer.ParseConfig(configFile); err != nil {
		naboer.Fatalf("Couldn't parse config: %s", err)
	}
	naboer.Debugf("Read config file: %s", configFile)
	naboer.Init()
	amqp.SetLogger(naboer.Logger().WithField("component", "amqp"))
	e := Engine{}
	err := e.Init(naboer.Config.OutputConfig)
	if err != nil {
		naboer.Fatalf("Couldn't initialize engine: %s", err)
	}
	defer smierte.Exit()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	amUrl, err := url.Parse(naboer.Config.Broker)
	if err != nil {
		naboer.Fatalf("Can't parse broker url: %s", err)
	}
	naboer.Debugf("Connecting to broker: %v", amUrl.Redacted())
	conn, err := amqp.Dial(naboer.Config.Broker)
	if err != nil {
		naboer.Fatalf("can't connect to broker: %s", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		naboer.Fatalf("can't get channel: %s", err)
	}
	defer ch.Close()
	err = ch.Qos(naboer.Config.Workers+1, 0, true)
	if err != nil {
		naboer.Fatalf("can't set qos: %s", err)
	}

	q, err := ch.QueueDeclare(
		naboer.Config.Queue, // name
		false,               // durable
		false,               // delete when unused
		false,               // exclusive
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		naboer.Fatalf("can't declare queue: %s", err)
	}

	msgs, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		naboer.Fatalf("can't register consumer: %s", err)
	}
	naboer.Logf("Listening for orders on %s", q.Name)
	e.Serve(ctx, msgs, naboer.Config.Workers)
}
