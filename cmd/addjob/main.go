package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/telenornms/naboer"
	"github.com/telenornms/naboer/outlet"
)

// modes naboer accepts, lower case.
var modes = map[string]bool{
	"neighbors":     true,
	"cdp":           true,
	"lldp":          true,
	"arp":           true,
	"addresses":     true,
	"interfaces":    true,
	"outlets":       true,
	"outletconfig":  true,
	"summary":       true,
	"outletcontrol": true,
	"clearmap":      true,
}

// job is the part of an order addjob checks before publishing it.
type job struct {
	Target  string
	Mode    string
	Outlet  int
	Command string
}

func (j job) validate() error {
	if j.Target == "" {
		return fmt.Errorf("missing Target")
	}
	mode := strings.ToLower(j.Mode)
	if !modes[mode] {
		return fmt.Errorf("invalid Mode `%s'", j.Mode)
	}
	if mode == "outletcontrol" {
		if j.Outlet < 1 {
			return fmt.Errorf("outletcontrol needs an Outlet")
		}
		if _, err := outlet.ParseCommand(j.Command); err != nil {
			return err
		}
	}
	return nil
}

// readOrders reads every order file and refuses the lot if one of them
// isn't an order naboer would accept.
func readOrders(files []string) ([][]byte, error) {
	var bs [][]byte
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		var j job
		if err := json.Unmarshal(b, &j); err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		if err := j.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		bs = append(bs, b)
	}
	return bs, nil
}

func main() {
	var configFile string
	flag.StringVar(&configFile, "f", "/etc/naboer/naboer.yaml", "config file, for the broker and queue")
	flag.Parse()
	if err := naboer.ParseConfig(configFile); err != nil {
		naboer.Logf("Couldn't parse config, using defaults: %s", err)
	}
	naboer.Init()
	amqp.SetLogger(naboer.Logger().WithField("component", "amqp"))
	args := flag.Args()
	if len(args) < 2 {
		naboer.Fatalf("usage: addjob [-f config] <interval> <order.json>...")
	}
	sleeptime, err := time.ParseDuration(args[0])
	if err != nil {
		naboer.Fatalf("unable to parse delay-time: %s", err)
	}
	bs, err := readOrders(args[1:])
	if err != nil {
		naboer.Fatalf("bad order: %s", err)
	}

	conn, err := amqp.Dial(naboer.Config.Broker)
	if err != nil {
		naboer.Fatalf("failed to connect to rabbitMQ: %s", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		naboer.Fatalf("failed to connect to open a channel: %s", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		naboer.Config.Queue, // name
		false,               // durable
		false,               // delete when unused
		false,               // exclusive
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		naboer.Fatalf("failed to declare a queue: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	for {
		for _, b := range bs {
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = ch.PublishWithContext(pctx,
				"",     // exchange
				q.Name, // routing key
				false,  // mandatory
				false,  // immediate
				amqp.Publishing{
					ContentType: "text/json",
					Expiration:  "10000",
					Body:        b,
				})
			cancel()
			if err != nil {
				naboer.Fatalf("failed to publish a message: %s", err)
			}
			naboer.Logf("Sent %d bytes to %s", len(b), q.Name)
		}
		if sleeptime < 0 {
			naboer.Logf("negative sleeptime, exiting after 1 publish")
			return
		}
		naboer.Logf("Sleeping %s", sleeptime)
		select {
		case <-time.After(sleeptime):
		case <-ctx.Done():
			return
		}
	}
}
