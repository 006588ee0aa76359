/*
 * naboer log-wrappers
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

/*
log.go is a thin wrapper around logrus, mainly so regular calls to Log
don't have to care about which logger is underneath.

Add wrappers on demand.

Debug/Debugf evaluates if we've turned on debugging before doing anything
else, so calling naboer.Debug() is very fast when it's disabled. That
makes it unproblematic to add debug-logging in high-traffic code.
*/

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

// Init sets up the logger according to Config. Call it after the config
// is parsed and flags are applied.
func Init() {
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	if Config.Debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

// Logger exposes the underlying logger, e.g. for adding fields.
func Logger() *logrus.Logger {
	return logger
}

func Log(v ...any) {
	logger.Info(fmt.Sprint(v...))
}

func Logf(format string, v ...any) {
	logger.Info(fmt.Sprintf(format, v...))
}

func Logln(v ...any) {
	logger.Info(fmt.Sprintln(v...))
}

func Fatal(v ...any) {
	logger.Error(fmt.Sprint(v...))
	os.Exit(1)
}

func Fatalf(format string, v ...any) {
	logger.Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}

func Fatalln(v ...any) {
	logger.Error(fmt.Sprintln(v...))
	os.Exit(1)
}

func Debug(v ...any) {
	if Config.Debug {
		logger.Debug(fmt.Sprint(v...))
	}
}

func Debugf(format string, v ...any) {
	if Config.Debug {
		logger.Debug(fmt.Sprintf(format, v...))
	}
}

func Debugln(v ...any) {
	if Config.Debug {
		logger.Debug(fmt.Sprintln(v...))
	}
}
