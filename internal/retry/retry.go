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

// Package retry provides a small retry helper shared by operations
// that are safe to reattempt, such as the bootloader activation
// handshake.
package retry

import "time"

// Config configures retry behavior.
type Config struct {
	// OnRetry runs before each reattempt, e.g. for logging.
	OnRetry func(attempt int, err error)
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Delay is slept between attempts.
	Delay time.Duration
}

// Do executes the operation until it succeeds or MaxAttempts is
// reached, returning the last error.
func Do(config Config, operation func() error) error {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err = operation(); err == nil {
			return nil
		}
		if attempt == config.MaxAttempts {
			break
		}
		if config.OnRetry != nil {
			config.OnRetry(attempt, err)
		}
		if config.Delay > 0 {
			time.Sleep(config.Delay)
		}
	}
	return err
}
