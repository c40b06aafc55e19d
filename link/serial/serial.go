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

// Package serial provides the ByteLink implementation for plain serial
// ports, with RESET and BOOT0 driven through the DTR and RTS
// modem-control lines.
package serial

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	stm32loader "github.com/jsnyder/stm32loader"
)

// Parity selects the serial parity bit convention.
type Parity string

const (
	// ParityEven is the STM32 bootloader convention.
	ParityEven Parity = "even"
	// ParityNone is the BlueNRG and W7500 convention.
	ParityNone Parity = "none"
)

// DefaultBaudRate is used when Config.BaudRate is zero.
const DefaultBaudRate = 115200

// Config describes a serial connection. Immutable after Open.
type Config struct {
	// Port is the serial device name, e.g. /dev/ttyUSB0 or COM3.
	Port string
	// BaudRate defaults to 115200.
	BaudRate int
	// Parity defaults to even per AN3155; BlueNRG needs none.
	Parity Parity
	// SwapRTSDTR exchanges which modem-control line drives which pin.
	SwapRTSDTR bool
	// ResetActiveHigh inverts the RESET line polarity. By default the
	// modem-control driver's own inversion lines up with the STM32's
	// active-low reset, so asserting means writing a logical 1.
	ResetActiveHigh bool
	// Boot0ActiveLow inverts the BOOT0 line polarity.
	Boot0ActiveLow bool
}

// Link is a ByteLink over a serial port.
type Link struct {
	port   serial.Port
	config Config
}

var _ stm32loader.ByteLink = (*Link)(nil)

// New creates an unopened serial link.
func New(config Config) *Link {
	if config.BaudRate == 0 {
		config.BaudRate = DefaultBaudRate
	}
	if config.Parity == "" {
		config.Parity = ParityEven
	}
	return &Link{config: config}
}

// Open opens the port: 8 data bits, 1 stop bit, configured parity, no
// flow control.
func (l *Link) Open() error {
	parity := serial.EvenParity
	if l.config.Parity == ParityNone {
		parity = serial.NoParity
	}
	mode := &serial.Mode{
		BaudRate: l.config.BaudRate,
		DataBits: 8,
		Parity:   parity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(l.config.Port, mode)
	if err != nil {
		return stm32loader.NewLinkError("open", l.config.Port, err)
	}
	l.port = port
	return nil
}

// Close closes the port.
func (l *Link) Close() error {
	if l.port == nil {
		return nil
	}
	port := l.port
	l.port = nil
	if err := port.Close(); err != nil {
		return stm32loader.NewLinkError("close", l.config.Port, err)
	}
	return nil
}

// IsConnected reports whether the port is open.
func (l *Link) IsConnected() bool { return l.port != nil }

// ReadExact reads exactly n bytes or fails with a TimeoutError once
// the deadline passes. Partial data is discarded.
func (l *Link) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	if l.port == nil {
		return nil, stm32loader.NewLinkError("read", l.config.Port, errNotOpen)
	}
	deadline := time.Now().Add(timeout)
	buf := make([]byte, n)
	for got := 0; got < n; {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, stm32loader.NewTimeoutError("read", l.config.Port)
		}
		if err := l.port.SetReadTimeout(remaining); err != nil {
			return nil, stm32loader.NewLinkError("read", l.config.Port, err)
		}
		read, err := l.port.Read(buf[got:])
		if err != nil {
			return nil, stm32loader.NewLinkError("read", l.config.Port, err)
		}
		if read == 0 {
			// the driver's own timeout expired
			return nil, stm32loader.NewTimeoutError("read", l.config.Port)
		}
		got += read
	}
	return buf, nil
}

// Write sends the given bytes.
func (l *Link) Write(data []byte) error {
	if l.port == nil {
		return stm32loader.NewLinkError("write", l.config.Port, errNotOpen)
	}
	if _, err := l.port.Write(data); err != nil {
		return stm32loader.NewLinkError("write", l.config.Port, err)
	}
	return nil
}

// FlushInput discards pending input. Known issue: the CP2102N at high
// baud rates fails to flush its buffer when the port is opened, so
// this is also called right before the activation handshake.
func (l *Link) FlushInput() error {
	if l.port == nil {
		return stm32loader.NewLinkError("flush", l.config.Port, errNotOpen)
	}
	if err := l.port.ResetInputBuffer(); err != nil {
		return stm32loader.NewLinkError("flush", l.config.Port, err)
	}
	return nil
}

// SetReset drives the logical RESET line through DTR (or RTS when
// swapped).
func (l *Link) SetReset(active bool) error {
	if l.port == nil {
		return stm32loader.NewLinkError("set reset", l.config.Port, errNotOpen)
	}
	level := resetLevel(active, l.config.ResetActiveHigh)
	var err error
	if l.config.SwapRTSDTR {
		err = l.port.SetRTS(level)
	} else {
		err = l.port.SetDTR(level)
	}
	if err != nil {
		return stm32loader.NewLinkError("set reset", l.config.Port, err)
	}
	return nil
}

// SetBoot0 drives the logical BOOT0 line through RTS (or DTR when
// swapped).
func (l *Link) SetBoot0(active bool) error {
	if l.port == nil {
		return stm32loader.NewLinkError("set boot0", l.config.Port, errNotOpen)
	}
	level := boot0Level(active, l.config.Boot0ActiveLow)
	var err error
	if l.config.SwapRTSDTR {
		err = l.port.SetDTR(level)
	} else {
		err = l.port.SetRTS(level)
	}
	if err != nil {
		return stm32loader.NewLinkError("set boot0", l.config.Port, err)
	}
	return nil
}

// Type returns LinkSerial.
func (*Link) Type() stm32loader.LinkType { return stm32loader.LinkSerial }

// resetLevel maps a logical RESET state to the modem-control level.
// Reset on the STM32 is active low, but the RS-232 DTR and RTS signals
// are active low themselves, so the inversions cancel: asserting reset
// means writing true.
func resetLevel(active, activeHigh bool) bool {
	if activeHigh {
		return !active
	}
	return active
}

// boot0Level maps a logical BOOT0 state to the modem-control level.
// BOOT0 is active high by default, so the modem-control inversion
// applies: requesting the bootloader means writing false.
func boot0Level(active, activeLow bool) bool {
	if activeLow {
		return active
	}
	return !active
}

var errNotOpen = fmt.Errorf("port not open")
