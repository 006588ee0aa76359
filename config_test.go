/*
 * naboer config tests
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

package naboer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreConfig(t *testing.T) {
	saved := Config
	t.Cleanup(func() { Config = saved })
}

func TestParseConfig(t *testing.T) {
	restoreConfig(t)
	err := parseConfig([]byte(`
community: s3cret
workers: 8
settle_time: 2s
outlet_prefix: [1]
mib_modules: [IF-MIB]
communities:
  pdu1: private
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", Config.DefaultCommunity)
	assert.Equal(t, map[string]string{"pdu1": "private"}, Config.Communities)
	assert.Equal(t, 8, Config.Workers)
	assert.Equal(t, 2*time.Second, Config.SettleTime)
	assert.Equal(t, []int{1}, Config.OutletPrefix)
	assert.Equal(t, []string{"IF-MIB"}, Config.MibModules)
	// untouched
	assert.Equal(t, "2c", Config.Version)
	assert.Equal(t, "naboer", Config.Queue)
	assert.Equal(t, 60*time.Second, Config.MaxMapAge)
}

func TestParseConfigInvalid(t *testing.T) {
	restoreConfig(t)
	for name, doc := range map[string]string{
		"unknown key":    "colour: blue\n",
		"workers":        "workers: 0\n",
		"version":        "version: 3\n",
		"settle":         "settle_time: -1s\n",
		"bad duration":   "timeout: soon\n",
		"not a document": "[",
	} {
		assert.Error(t, parseConfig([]byte(doc)), name)
	}
	assert.Equal(t, "public", Config.DefaultCommunity)
	assert.Equal(t, 4, Config.Workers)
}

func TestParseConfigFile(t *testing.T) {
	restoreConfig(t)
	assert.Error(t, ParseConfig(filepath.Join(t.TempDir(), "missing.yaml")))

	p := filepath.Join(t.TempDir(), "naboer.yaml")
	require.NoError(t, os.WriteFile(p, []byte("queue: outlets\nversion: \"1\"\n"), 0o644))
	require.NoError(t, ParseConfig(p))
	assert.Equal(t, "outlets", Config.Queue)
	assert.Equal(t, "1", Config.Version)
}
