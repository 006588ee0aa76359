/*
 * naboer outlet controller
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
Package outlet controls the outlets of an APC MasterSwitch Plus through
PowerNet-MIB.

Controlling an outlet is a small state machine: write the command, wait
for the unit to settle, read the command back. The agent is known to not
answer the SET at all while still carrying it out, so a failed write is
logged and otherwise ignored. The read-back after the settling interval is
what decides whether the command took.
*/
package outlet

import (
	"context"
	"fmt"
	"time"

	"github.com/telenornms/naboer"
)

// State of a single command.
type State int

const (
	Idle State = iota
	CommandSent
	Settling
	Confirmed
	Unconfirmed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CommandSent:
		return "command sent"
	case Settling:
		return "settling"
	case Confirmed:
		return "confirmed"
	case Unconfirmed:
		return "unconfirmed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is the outcome of a command. Path is every state the command
// went through, ending with State.
type Result struct {
	Outlet   int
	Command  Command
	State    State
	Path     []State
	Observed Command // read back after settling, 0 if never read
	WriteErr error   // the ignored write failure, if any
}

func (r *Result) enter(s State) {
	r.State = s
	r.Path = append(r.Path, s)
}

func (r Result) Confirmed() bool {
	return r.State == Confirmed
}

func (r Result) String() string {
	if r.Observed == 0 {
		return fmt.Sprintf("outlet %d: %s %s", r.Outlet, r.Command, r.State)
	}
	return fmt.Sprintf("outlet %d: %s %s (now %s)", r.Outlet, r.Command, r.State, r.Observed)
}

// Controller drives the outlets of a single unit. Settle is how long to
// wait between the write and the read-back, Prefix is the index
// components before the outlet number.
type Controller struct {
	Access naboer.Access
	Host   string
	Settle time.Duration
	Prefix []int
}

// NewController sets up a controller using the configured settling time
// and outlet prefix.
func NewController(a naboer.Access, host string) *Controller {
	prefix := make([]int, len(naboer.Config.OutletPrefix))
	copy(prefix, naboer.Config.OutletPrefix)
	return &Controller{
		Access: a,
		Host:   host,
		Settle: naboer.Config.SettleTime,
		Prefix: prefix,
	}
}

func (c *Controller) index(outlet int) []int {
	idx := make([]int, 0, len(c.Prefix)+1)
	idx = append(idx, c.Prefix...)
	return append(idx, outlet)
}

// Control sends cmd to outlet, waits for the unit to settle and reads the
// outlet back, exactly once. The returned error is only set if the
// read-back failed or ctx ended, an outlet that ends up in another state
// is reported through Result.State alone.
func (c *Controller) Control(ctx context.Context, outlet int, cmd Command) (Result, error) {
	res := Result{Outlet: outlet, Command: cmd}
	res.enter(Idle)
	if outlet < 1 {
		return res, fmt.Errorf("%w: outlet %d, outlets are numbered from 1", naboer.ErrNotFound, outlet)
	}
	err := c.Access.WriteScalar(ctx, colCommand, c.index(outlet), int(cmd))
	res.enter(CommandSent)
	if err != nil {
		if ctx.Err() != nil {
			res.enter(Unconfirmed)
			return res, fmt.Errorf("%w: outlet %d on %s: %w", naboer.ErrCanceled, outlet, c.Host, ctx.Err())
		}
		res.WriteErr = err
		naboer.Logf("%s: outlet %d: %s not acknowledged, waiting for it anyway: %s", c.Host, outlet, cmd, err)
	}
	res.enter(Settling)
	if err := settle(ctx, c.Settle); err != nil {
		res.enter(Unconfirmed)
		return res, fmt.Errorf("%w: outlet %d on %s: %w", naboer.ErrCanceled, outlet, c.Host, err)
	}
	observed, err := c.Status(ctx, outlet)
	if err != nil {
		res.enter(Unconfirmed)
		return res, fmt.Errorf("re-reading outlet %d on %s: %w", outlet, c.Host, err)
	}
	res.Observed = observed
	if observed == cmd {
		res.enter(Confirmed)
	} else {
		res.enter(Unconfirmed)
	}
	naboer.Debugf("%s: %s", c.Host, res)
	return res, nil
}

func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// confirmed turns an unconfirmed result into an error.
func confirmed(res Result, err error) (Result, error) {
	if err != nil {
		return res, err
	}
	if res.State != Confirmed {
		return res, fmt.Errorf("%w: outlet %d is %s, expected %s", naboer.ErrUnconfirmed, res.Outlet, res.Observed, res.Command)
	}
	return res, nil
}

// ImmediateOn turns the outlet on right away. Anything but a confirmed
// result is an error.
func (c *Controller) ImmediateOn(ctx context.Context, outlet int) (Result, error) {
	return confirmed(c.Control(ctx, outlet, ImmediateOn))
}

// DelayedOn turns the outlet on after its configured power-on delay,
// which might well be longer than the settling time, so the result isn't
// checked.
func (c *Controller) DelayedOn(ctx context.Context, outlet int) (Result, error) {
	return c.Control(ctx, outlet, DelayedOn)
}

// ImmediateOff turns the outlet off right away. Anything but a confirmed
// result is an error.
func (c *Controller) ImmediateOff(ctx context.Context, outlet int) (Result, error) {
	return confirmed(c.Control(ctx, outlet, ImmediateOff))
}

// Reboot power-cycles the outlet immediately.
func (c *Controller) Reboot(ctx context.Context, outlet int) (Result, error) {
	return c.Control(ctx, outlet, ImmediateReboot)
}

// Shutdown waits for the connected device to confirm (if it can), turns
// the outlet off after the power-off delay and back on after the restart
// time plus power-on delay.
func (c *Controller) Shutdown(ctx context.Context, outlet int) (Result, error) {
	return c.Control(ctx, outlet, GracefulShutdown)
}

// Run dispatches cmd to the matching operation, applying the same
// confirmation rules.
func (c *Controller) Run(ctx context.Context, outlet int, cmd Command) (Result, error) {
	switch cmd {
	case ImmediateOn:
		return c.ImmediateOn(ctx, outlet)
	case DelayedOn:
		return c.DelayedOn(ctx, outlet)
	case ImmediateOff:
		return c.ImmediateOff(ctx, outlet)
	case ImmediateReboot:
		return c.Reboot(ctx, outlet)
	case GracefulShutdown:
		return c.Shutdown(ctx, outlet)
	default:
		return Result{Outlet: outlet, Command: cmd}, fmt.Errorf("%w: %s has no outlet operation", naboer.ErrUnknownOperation, cmd)
	}
}

// Status reads the current command value of the outlet. No waiting.
func (c *Controller) Status(ctx context.Context, outlet int) (Command, error) {
	row, err := c.Access.FetchScalar(ctx, colCommand, c.index(outlet))
	if err != nil {
		return 0, err
	}
	v, err := row.Int(colCommand)
	if err != nil {
		return 0, err
	}
	return Command(v), nil
}

// Outlet reads name and state of a single outlet.
func (c *Controller) Outlet(ctx context.Context, outlet int) (Row, error) {
	idx := c.index(outlet)
	name, err := c.Access.FetchScalar(ctx, colName, idx)
	if err != nil {
		return Row{}, err
	}
	r := Row{Index: outlet}
	if r.Name, err = name.String(colName); err != nil {
		return r, err
	}
	if r.Command, err = c.Status(ctx, outlet); err != nil {
		return r, err
	}
	return r, nil
}

// Outlets reads every outlet of the unit.
func (c *Controller) Outlets(ctx context.Context) (*Controls, error) {
	rows, err := c.Access.FetchTable(ctx, "sPDUOutletControlMSPTable")
	if err != nil {
		return nil, fmt.Errorf("fetching outlets of %s: %w", c.Host, err)
	}
	outlets := make([]Row, 0, len(rows))
	for _, r := range rows {
		o, err := decodeRow(r)
		if err != nil {
			return nil, err
		}
		outlets = append(outlets, o)
	}
	return NewControls(c.Host, outlets), nil
}

// Config reads the outlet configuration of the unit.
func (c *Controller) Config(ctx context.Context) (*ConfigReport, error) {
	rows, err := c.Access.FetchTable(ctx, "sPDUOutletConfigMSPallTable")
	if err != nil {
		return nil, fmt.Errorf("fetching outlet configuration of %s: %w", c.Host, err)
	}
	cfg := make([]ConfigRow, 0, len(rows))
	for _, r := range rows {
		o, err := decodeConfigRow(r)
		if err != nil {
			return nil, err
		}
		cfg = append(cfg, o)
	}
	return NewConfigReport(c.Host, cfg), nil
}

// Summary reads the name and outlet count of the unit.
func (c *Controller) Summary(ctx context.Context) (Summary, error) {
	rows, err := c.Access.FetchTable(ctx, "sPDUMasterStatusMSPTable")
	if err != nil {
		return Summary{}, fmt.Errorf("fetching unit status of %s: %w", c.Host, err)
	}
	if len(rows) == 0 {
		return Summary{}, fmt.Errorf("%w: no unit status on %s", naboer.ErrNotFound, c.Host)
	}
	var s Summary
	if s.Label, err = rows[0].String(colUnitName); err != nil {
		return s, err
	}
	if s.Outlets, err = rows[0].Int(colUnitOutlets); err != nil {
		return s, err
	}
	return s, nil
}
