/*
 * naboer one-shot report tests
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
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telenornms/naboer"
	"github.com/telenornms/naboer/naboertest"
)

func device() *naboertest.Fake {
	f := naboertest.New()
	for i, n := range []string{"eth0", "eth1"} {
		r := naboer.NewRow(i + 1)
		r.Values["ifDescr"] = []byte(n)
		f.AddRow("ifDescr", r)
	}
	u := naboer.NewRow(1)
	u.Values["sPDUMasterStatusMSPName"] = []byte("rack 4")
	u.Values["sPDUMasterStatusMSPOutletCount"] = 8
	f.AddRow("sPDUMasterStatusMSPTable", u)
	f.Set("sPDUOutletControlMSPOutletName", []int{1, 1, 1}, []byte("router"))
	f.Set("sPDUOutletControlMSPOutletCommand", []int{1, 1, 1}, 1)
	return f
}

func TestRunReports(t *testing.T) {
	var out bytes.Buffer
	f := device()
	require.NoError(t, run(context.Background(), f, "sw1", []string{"interfaces"}, &out))
	assert.Equal(t, "Interface table for sw1\n IfIndex Name\n       1 eth0\n       2 eth1\n", out.String())

	out.Reset()
	require.NoError(t, run(context.Background(), f, "pdu1", []string{"summary"}, &out))
	assert.Equal(t, "APC MasterSwitch Plus 'rack 4' has 8 outlets.\n", out.String())

	err := run(context.Background(), f, "sw1", []string{"routes"}, &out)
	assert.True(t, errors.Is(err, naboer.ErrUnknownOperation))
	assert.Error(t, run(context.Background(), f, "sw1", nil, &out))
}

func TestRunOutlet(t *testing.T) {
	var out bytes.Buffer
	f := device()
	naboer.Config.SettleTime = time.Millisecond
	defer func() { naboer.Config.SettleTime = 5 * time.Second }()

	require.NoError(t, run(context.Background(), f, "pdu1", []string{"status", "1"}, &out))
	assert.Equal(t, "1      router             immediateOnMSP\n", out.String())
	assert.Empty(t, f.Writes)

	out.Reset()
	require.NoError(t, run(context.Background(), f, "pdu1", []string{"off", "1"}, &out))
	assert.True(t, strings.HasPrefix(out.String(), "outlet 1: immediateOffMSP confirmed"))
	require.Len(t, f.Writes, 1)

	assert.Error(t, run(context.Background(), f, "pdu1", []string{"off"}, &out))
	assert.Error(t, run(context.Background(), f, "pdu1", []string{"off", "x"}, &out))
}

func TestListTables(t *testing.T) {
	var out bytes.Buffer
	listTables(&out)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Greater(t, len(lines), 2)
	assert.Equal(t, "Built-in tables", lines[0])
	assert.Contains(t, lines, "  lldpRemTable")
	assert.Contains(t, lines, "  sPDUOutletConfigMSPallTable")
	assert.True(t, sort.StringsAreSorted(lines[1:]))
}
