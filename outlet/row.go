/*
 * naboer outlet rows and reports
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
	"sort"
	"strconv"
	"strings"

	"github.com/telenornms/naboer"
)

const (
	colIndex   = "sPDUOutletControlMSPOutletIndex"
	colName    = "sPDUOutletControlMSPOutletName"
	colCommand = "sPDUOutletControlMSPOutletCommand"

	colCfgIndex = "sPDUOutletConfigMSPallOutletIndex"
	colCfgName  = "sPDUOutletConfigMSPallOutletName"
	colCfgMode  = "sPDUOutletConfigMSPallOutletCtrlMode"

	colUnitName    = "sPDUMasterStatusMSPName"
	colUnitOutlets = "sPDUMasterStatusMSPOutletCount"
)

// Row is one outlet as seen in sPDUOutletControlMSPTable.
type Row struct {
	Index   int // 1-based
	Name    string
	Command Command
}

func (r Row) String() string {
	return fmt.Sprintf("%-6.6s %-18.18s %s", strconv.Itoa(r.Index), r.Name, r.Command)
}

// outletIndex prefers the explicit index column, falling back to the last
// component of the row index.
func outletIndex(r naboer.Row, col string) (int, error) {
	if r.Has(col) {
		return r.Int(col)
	}
	if len(r.Index) == 0 {
		return 0, fmt.Errorf("%w: outlet row without index", naboer.ErrDecode)
	}
	return r.Index[len(r.Index)-1], nil
}

func decodeRow(r naboer.Row) (Row, error) {
	var o Row
	var err error
	if o.Index, err = outletIndex(r, colIndex); err != nil {
		return o, err
	}
	if o.Name, err = r.String(colName); err != nil {
		return o, err
	}
	cmd, err := r.Int(colCommand)
	if err != nil {
		return o, err
	}
	o.Command = Command(cmd)
	return o, nil
}

// Controls is every outlet of a unit, ordered by outlet index.
type Controls struct {
	Host    string
	entries []Row
}

// NewControls sorts the rows by index. Rows with the same index keep
// their relative order.
func NewControls(host string, rows []Row) *Controls {
	c := &Controls{Host: host, entries: make([]Row, len(rows))}
	copy(c.entries, rows)
	sort.SliceStable(c.entries, func(i, j int) bool {
		return c.entries[i].Index < c.entries[j].Index
	})
	return c
}

// Get returns outlet n.
func (c *Controls) Get(n int) (Row, error) {
	for _, r := range c.entries {
		if r.Index == n {
			return r, nil
		}
	}
	return Row{}, fmt.Errorf("%w: outlet %d on %s", naboer.ErrNotFound, n, c.Host)
}

func (c *Controls) Entries() []Row {
	ret := make([]Row, len(c.entries))
	copy(ret, c.entries)
	return ret
}

func (c *Controls) Len() int {
	return len(c.entries)
}

func (c *Controls) String() string {
	s := []string{
		fmt.Sprintf("Outlets of %s", c.Host),
		"Outlet Name               Status",
	}
	for _, r := range c.entries {
		s = append(s, r.String())
	}
	return strings.Join(s, "\n")
}

// ConfigRow is one outlet from sPDUOutletConfigMSPallTable.
type ConfigRow struct {
	Index int
	Name  string
	Mode  Mode
}

// Mode is sPDUOutletConfigMSPallOutletCtrlMode.
type Mode int

const (
	ModeGracefulShutdown Mode = 1
	ModeAnnunciator      Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeGracefulShutdown:
		return "modeGracefulShutdown"
	case ModeAnnunciator:
		return "modeAnnunciator"
	default:
		return strconv.Itoa(int(m))
	}
}

func decodeConfigRow(r naboer.Row) (ConfigRow, error) {
	var o ConfigRow
	var err error
	if o.Index, err = outletIndex(r, colCfgIndex); err != nil {
		return o, err
	}
	if o.Name, err = r.String(colCfgName); err != nil {
		return o, err
	}
	mode, err := r.Int(colCfgMode)
	if err != nil {
		return o, err
	}
	o.Mode = Mode(mode)
	return o, nil
}

// ConfigReport lists the configuration of every outlet, by index.
type ConfigReport struct {
	Host    string
	Entries []ConfigRow
}

func NewConfigReport(host string, rows []ConfigRow) *ConfigReport {
	r := &ConfigReport{Host: host, Entries: make([]ConfigRow, len(rows))}
	copy(r.Entries, rows)
	sort.SliceStable(r.Entries, func(i, j int) bool {
		return r.Entries[i].Index < r.Entries[j].Index
	})
	return r
}

func (r *ConfigReport) String() string {
	s := []string{
		fmt.Sprintf("Outlet configuration of %s", r.Host),
		"Outlet Name               Mode",
	}
	for _, e := range r.Entries {
		s = append(s, fmt.Sprintf("%-6.6s %-18.18s %s", strconv.Itoa(e.Index), e.Name, e.Mode))
	}
	return strings.Join(s, "\n")
}

// Summary is the one-line description of a unit.
type Summary struct {
	Label   string
	Outlets int
}

func (s Summary) String() string {
	return fmt.Sprintf("APC MasterSwitch Plus '%s' has %d outlets.", s.Label, s.Outlets)
}
