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

// Package gpio provides a ByteLink decorator for single-board
// computers where the target's RESET and BOOT0 pins are wired to GPIO
// pins instead of the serial port's modem-control lines. Data bytes
// still flow through the wrapped link.
package gpio

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	stm32loader "github.com/jsnyder/stm32loader"
)

// Config names the GPIO pins driving the target, using periph.io pin
// names ("GPIO17", "22", ...).
type Config struct {
	// ResetPin drives the target's NRST.
	ResetPin string
	// Boot0Pin drives the target's BOOT0.
	Boot0Pin string
	// ResetActiveHigh inverts RESET, which is active low on the pin by
	// default.
	ResetActiveHigh bool
	// Boot0ActiveLow inverts BOOT0, which is active high on the pin by
	// default.
	Boot0ActiveLow bool
}

// Link wraps a ByteLink and redirects SetReset/SetBoot0 to GPIO pins.
type Link struct {
	inner  stm32loader.ByteLink
	reset  gpio.PinIO
	boot0  gpio.PinIO
	config Config
}

var _ stm32loader.ByteLink = (*Link)(nil)

// New resolves the configured pins and wraps the given link.
func New(inner stm32loader.ByteLink, config Config) (*Link, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}
	reset := gpioreg.ByName(config.ResetPin)
	if reset == nil {
		return nil, fmt.Errorf("reset pin %q: %w", config.ResetPin, stm32loader.ErrInvalidArgument)
	}
	boot0 := gpioreg.ByName(config.Boot0Pin)
	if boot0 == nil {
		return nil, fmt.Errorf("boot0 pin %q: %w", config.Boot0Pin, stm32loader.ErrInvalidArgument)
	}
	return &Link{inner: inner, reset: reset, boot0: boot0, config: config}, nil
}

// Open opens the wrapped link and parks both pins at their inactive
// levels.
func (l *Link) Open() error {
	if err := l.inner.Open(); err != nil {
		return err
	}
	if err := l.SetReset(false); err != nil {
		return err
	}
	return l.SetBoot0(false)
}

// Close releases the wrapped link, leaving the pins at their last
// levels.
func (l *Link) Close() error { return l.inner.Close() }

// ReadExact delegates to the wrapped link.
func (l *Link) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	return l.inner.ReadExact(n, timeout)
}

// Write delegates to the wrapped link.
func (l *Link) Write(data []byte) error { return l.inner.Write(data) }

// FlushInput delegates to the wrapped link.
func (l *Link) FlushInput() error { return l.inner.FlushInput() }

// SetReset drives the RESET pin. NRST is active low at the pin unless
// inverted by config.
func (l *Link) SetReset(active bool) error {
	level := gpio.Level(!active)
	if l.config.ResetActiveHigh {
		level = gpio.Level(active)
	}
	if err := l.reset.Out(level); err != nil {
		return stm32loader.NewLinkError("set reset", l.reset.Name(), err)
	}
	return nil
}

// SetBoot0 drives the BOOT0 pin, active high at the pin unless
// inverted by config.
func (l *Link) SetBoot0(active bool) error {
	level := gpio.Level(active)
	if l.config.Boot0ActiveLow {
		level = gpio.Level(!active)
	}
	if err := l.boot0.Out(level); err != nil {
		return stm32loader.NewLinkError("set boot0", l.boot0.Name(), err)
	}
	return nil
}

// Type returns LinkGPIO.
func (*Link) Type() stm32loader.LinkType { return stm32loader.LinkGPIO }
