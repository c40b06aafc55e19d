// stm32loader
// Copyright (c) 2026 the stm32loader authors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of stm32loader.
//
// stm32loader is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 3 of the License, or
// (at your option) any later version.
//
// stm32loader is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with stm32loader; if not, see <https://www.gnu.org/licenses/>.

package stm32loader

import "time"

// ByteLink is the byte-level connection to the target's bootloader UART.
// Implementations exist for plain serial ports (link/serial) and for
// single-board computers where RESET and BOOT0 are wired to GPIO pins
// instead of modem-control lines (link/gpio).
//
// SetReset and SetBoot0 take logical levels: active means
// target-held-in-reset resp. bootloader-requested. Polarity and the
// optional DTR/RTS swap are applied inside the link.
type ByteLink interface {
	// Open establishes the connection.
	Open() error

	// Close releases the connection.
	Close() error

	// ReadExact reads exactly n bytes or fails with a TimeoutError.
	// Partial reads are discarded, never returned.
	ReadExact(n int, timeout time.Duration) ([]byte, error)

	// Write sends the given bytes to the target.
	Write(data []byte) error

	// FlushInput discards any pending input, such as boot noise.
	FlushInput() error

	// SetReset drives the logical RESET line.
	SetReset(active bool) error

	// SetBoot0 drives the logical BOOT0 line.
	SetBoot0(active bool) error
}

// LinkType identifies a ByteLink implementation.
type LinkType string

const (
	// LinkSerial is a plain serial port using DTR/RTS for RESET/BOOT0.
	LinkSerial LinkType = "serial"
	// LinkGPIO is a serial port with RESET/BOOT0 on GPIO pins.
	LinkGPIO LinkType = "gpio"
	// LinkMock is an in-memory link for testing.
	LinkMock LinkType = "mock"
)

// LinkTyper is optionally implemented by links to advertise their type.
type LinkTyper interface {
	Type() LinkType
}
