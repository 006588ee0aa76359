/*
 * naboer outlet commands
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

package outlet

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is the value of sPDUOutletControlMSPOutletCommand. Reading it
// gives the current state of the outlet, writing it makes the outlet do
// something.
type Command int

const (
	ImmediateOn          Command = 1
	DelayedOn            Command = 2
	ImmediateOff         Command = 3
	GracefulReboot       Command = 4 // not exposed, left alone
	ImmediateReboot      Command = 5
	GracefulShutdown     Command = 6
	OverrideBatCapThresh Command = 7
	CancelPendingCommand Command = 8
)

var commandNames = map[Command]string{
	ImmediateOn:          "immediateOnMSP",
	DelayedOn:            "delayedOnMSP",
	ImmediateOff:         "immediateOffMSP",
	GracefulReboot:       "gracefulRebootMSP",
	ImmediateReboot:      "immediateRebootMSP",
	GracefulShutdown:     "gracefulshutdownMSP",
	OverrideBatCapThresh: "overrideBatCapThreshMSP",
	CancelPendingCommand: "cancelPendingCommandMSP",
}

func (c Command) String() string {
	if n, ok := commandNames[c]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// ParseCommand accepts the MIB name with or without the MSP suffix, in
// any case, or the numeric value.
func ParseCommand(s string) (Command, error) {
	if i, err := strconv.Atoi(s); err == nil {
		c := Command(i)
		if _, ok := commandNames[c]; !ok {
			return 0, fmt.Errorf("invalid outlet command %d", i)
		}
		return c, nil
	}
	want := strings.TrimSuffix(strings.ToLower(s), "msp")
	for c, n := range commandNames {
		if strings.TrimSuffix(strings.ToLower(n), "msp") == want {
			return c, nil
		}
	}
	return 0, fmt.Errorf("invalid outlet command `%s'", s)
}
