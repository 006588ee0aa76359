/*
 * naboer documentation-dummy
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
Package naboer polls network devices over SNMP and turns the raw tables
into something useful: who the neighbors are on each interface (CDP and
LLDP), what the ARP table looks like, which addresses the device has
configured, and for APC MasterSwitch Plus power units, a way to flip an
outlet and check that it actually happened.

The root package holds the shared bits: configuration, logging, the Row
and Node types and the Access interface every table-consumer is written
against. The session sub-package implements Access over gosnmp, discovery
and outlet implement the logic on top of it.

Orders can be sent over AMQP to the naboer daemon, which reports results
using Skogul.
*/
package naboer
