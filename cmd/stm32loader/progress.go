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

package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"

	stm32loader "github.com/jsnyder/stm32loader"
)

// newProgressBar adapts the core's per-frame progress events to a
// terminal progress bar. A new bar is started whenever a transfer with
// a different total begins.
func newProgressBar() stm32loader.ProgressFunc {
	var bar *progressbar.ProgressBar
	var barTotal int
	return func(done, total int) {
		if bar == nil || total != barTotal {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowBytes(true),
				progressbar.OptionSetDescription("Transferring"),
				progressbar.OptionOnCompletion(func() { fmt.Println() }),
			)
			barTotal = total
		}
		_ = bar.Set(done)
	}
}
