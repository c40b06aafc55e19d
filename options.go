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

import (
	"fmt"
	"time"
)

// Option is a functional option for configuring a Bootloader.
type Option func(*Bootloader) error

// WithFamily fixes the device family instead of inferring it from the
// product id. The family selects transfer sizes, register addresses
// and the BlueNRG id layout. Serial parity is configured on the link,
// not by this option.
func WithFamily(family Family) Option {
	return func(b *Bootloader) error {
		if family != "" {
			if _, ok := familyRegs[family]; !ok {
				return fmt.Errorf("family %q: %w", family, ErrUnknownFamily)
			}
		}
		b.config.Family = family
		return nil
	}
}

// WithTimeout sets the per-read deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(b *Bootloader) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout %v: %w", timeout, ErrInvalidArgument)
		}
		b.config.Timeout = timeout
		return nil
	}
}

// WithEraseTimeout sets the deadline for erase completion ACKs, which
// on large parts arrive ten seconds or more after the command.
func WithEraseTimeout(timeout time.Duration) Option {
	return func(b *Bootloader) error {
		if timeout <= 0 {
			return fmt.Errorf("erase timeout %v: %w", timeout, ErrInvalidArgument)
		}
		b.config.EraseTimeout = timeout
		return nil
	}
}

// WithProgress installs a progress observer for multi-frame transfers.
func WithProgress(progress ProgressFunc) Option {
	return func(b *Bootloader) error {
		b.config.Progress = progress
		return nil
	}
}

// WithDelays overrides the settle delays used before resynchronizing
// after a bootloader-resetting command, and after the mass erase that
// readout unprotect triggers. Intended for tests against mock targets.
func WithDelays(settle, massErase time.Duration) Option {
	return func(b *Bootloader) error {
		b.config.settleDelay = settle
		b.config.massEraseSettle = massErase
		return nil
	}
}
