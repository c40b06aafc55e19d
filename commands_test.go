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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandSet(t *testing.T) {
	t.Parallel()

	var set CommandSet
	assert.False(t, set.Has(CommandGet))
	assert.Empty(t, set.Commands())

	set.Add(CommandGet)
	set.Add(CommandExtendedErase)
	set.Add(CommandReadoutUnprotect)

	assert.True(t, set.Has(CommandGet))
	assert.True(t, set.Has(CommandExtendedErase))
	assert.True(t, set.Has(CommandReadoutUnprotect))
	assert.False(t, set.Has(CommandErase))
	assert.False(t, set.Has(CommandGo))

	assert.Equal(t,
		[]Command{CommandGet, CommandExtendedErase, CommandReadoutUnprotect},
		set.Commands())
}

func TestCommandSetAddIsIdempotent(t *testing.T) {
	t.Parallel()

	var set CommandSet
	set.Add(CommandWriteMemory)
	set.Add(CommandWriteMemory)
	assert.Equal(t, []Command{CommandWriteMemory}, set.Commands())
}

func TestCommandSetString(t *testing.T) {
	t.Parallel()

	var set CommandSet
	set.Add(CommandGet)
	set.Add(CommandErase)
	assert.Equal(t, "0x00, 0x43", set.String())
}
