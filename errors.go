/*
 * naboer errors
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

import "errors"

// Error kinds. Everything returned from the access layer and the packages
// on top of it wraps one of these, test with errors.Is.
var (
	// ErrTransport is a failure of the underlying session. Never retried
	// here, the session has its own retries.
	ErrTransport = errors.New("transport error")
	// ErrNotFound is a keyed lookup that found nothing, including the
	// interface join during neighbor correlation.
	ErrNotFound = errors.New("not found")
	// ErrUnacknowledgedWrite is a SET the agent did not acknowledge.
	ErrUnacknowledgedWrite = errors.New("write not acknowledged")
	// ErrUnconfirmed is returned by the outlet operations that require
	// the read-back to match what was commanded.
	ErrUnconfirmed = errors.New("command not confirmed")
	// ErrCanceled is returned when the context ends while waiting for an
	// outlet to settle.
	ErrCanceled = errors.New("canceled while settling")

	ErrDecode           = errors.New("unable to decode row")
	ErrUnknownTable     = errors.New("unknown table")
	ErrUnknownOperation = errors.New("unknown operation")
)
