/*
 * naboer one-shot reports
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

// naboer-show prints a single report for a device, or runs a single outlet
// command, without going through the queue.
//
//	naboer-show [-c community] [-f config] <target> <report>
//	naboer-show [-c community] [-f config] <target> <on|off|delayed-on|reboot|shutdown|status> <outlet>
//	naboer-show tables
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"

	"github.com/telenornms/naboer"
	"github.com/telenornms/naboer/discovery"
	"github.com/telenornms/naboer/inventory"
	"github.com/telenornms/naboer/outlet"
	"github.com/telenornms/naboer/session"
	"github.com/telenornms/naboer/smierte"
)

const (
	reportOutlets      = "outlets"
	reportOutletConfig = "outletconfig"
	reportSummary      = "summary"
	reportTables       = "tables"
)

type outletOp func(*outlet.Controller, context.Context, int) (outlet.Result, error)

var outletOps = map[string]outletOp{
	"on":         (*outlet.Controller).ImmediateOn,
	"off":        (*outlet.Controller).ImmediateOff,
	"delayed-on": (*outlet.Controller).DelayedOn,
	"reboot":     (*outlet.Controller).Reboot,
	"shutdown":   (*outlet.Controller).Shutdown,
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <target> <report>\n", os.Args[0])
	fmt.Fprintf(flag.CommandLine.Output(), "       %s [flags] <target> <on|off|delayed-on|reboot|shutdown|status> <outlet>\n", os.Args[0])
	fmt.Fprintf(flag.CommandLine.Output(), "       %s %s\n\n", os.Args[0], reportTables)
	fmt.Fprintf(flag.CommandLine.Output(), "Reports: %s, %s, %s, %s\n\n", strings.Join(discovery.Reports, ", "), reportOutlets, reportOutletConfig, reportSummary)
	flag.PrintDefaults()
}

// run executes one request against a and writes the result to w.
func run(ctx context.Context, a naboer.Access, target string, args []string, w io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("nothing to do")
	}
	c := outlet.NewController(a, target)
	var r fmt.Stringer
	var err error
	switch args[0] {
	case reportOutlets:
		r, err = c.Outlets(ctx)
	case reportOutletConfig:
		r, err = c.Config(ctx)
	case reportSummary:
		r, err = c.Summary(ctx)
	case "status":
		n, err := outletArg(args)
		if err != nil {
			return err
		}
		row, err := c.Outlet(ctx, n)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, row)
		return nil
	default:
		if op, ok := outletOps[args[0]]; ok {
			n, err := outletArg(args)
			if err != nil {
				return err
			}
			res, err := op(c, ctx, n)
			fmt.Fprintln(w, res)
			return err
		}
		m := discovery.Manager{Access: a, Host: target}
		r, err = m.Report(ctx, args[0])
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w, r)
	return nil
}

// listTables prints the tables naboer knows without any MIB loaded.
func listTables(w io.Writer) {
	names := smierte.Tables()
	sort.Strings(names)
	fmt.Fprintf(w, "Built-in tables\n")
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}
}

func outletArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s needs an outlet number", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid outlet `%s': %w", args[1], err)
	}
	return n, nil
}

func main() {
	var configFile, community string
	flag.Usage = usage
	flag.BoolVar(&naboer.Config.Debug, "debug", false, "enable debug")
	flag.StringVar(&configFile, "f", "", "config file")
	flag.StringVar(&community, "c", "", "community, overrides the config file")
	flag.Parse()
	if configFile != "" {
		if err := naboer.ParseConfig(configFile); err != nil {
			naboer.Fatalf("Couldn't parse config: %s", err)
		}
	}
	naboer.Init()
	if flag.NArg() == 1 && flag.Arg(0) == reportTables {
		listTables(os.Stdout)
		return
	}
	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}
	target := flag.Arg(0)
	if community == "" {
		community = inventory.Community(target)
	}
	if err := smierte.Init(naboer.Config.MibModules, naboer.Config.MibPaths); err != nil {
		naboer.Logf("failed to load mibs, using built-in tables only: %s", err)
	}
	sess, err := session.NewSession(target, community)
	if err != nil {
		naboer.Fatalf("session creation failed: %s", err)
	}
	defer sess.Finalize()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, sess, target, flag.Args()[1:], os.Stdout); err != nil {
		naboer.Fatalf("%s: %s", target, err)
	}
}
