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

/*
Package stm32loader talks to the factory UART bootloader of STM32
microcontrollers (and the closely related BlueNRG and Wiznet W7500
parts), as documented in ST application notes AN2606, AN3155 and
AN4872.

The host drives the target's BOOT0 and RESET pins through serial
modem-control lines (or GPIO pins, see link/gpio) to enter the system
bootloader, performs the autobaud handshake, identifies the device, and
then erases, writes, reads, verifies and hands off to user code.

Basic usage:

	import (
	    "github.com/jsnyder/stm32loader"
	    "github.com/jsnyder/stm32loader/link/serial"
	)

	link := serial.New(serial.Config{Port: "/dev/ttyUSB0", BaudRate: 115200})
	if err := link.Open(); err != nil {
	    log.Fatal(err)
	}
	defer link.Close()

	loader, err := stm32loader.New(link, stm32loader.WithFamily(stm32loader.FamilyF1))
	if err != nil {
	    log.Fatal(err)
	}
	if err := loader.ResetFromSystemMemory(); err != nil {
	    log.Fatal(err)
	}
	device, err := loader.Identify()
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("chip id 0x%03X (%s)\n", device.ProductID, stm32loader.ChipName(device.ProductID))

	if err := loader.EraseMemory(nil); err != nil {
	    log.Fatal(err)
	}
	if err := loader.WriteMemoryData(ctx, 0x08000000, firmware); err != nil {
	    log.Fatal(err)
	}
	if err := loader.Verify(ctx, 0x08000000, firmware); err != nil {
	    log.Fatal(err)
	}
	_ = loader.ResetFromFlash()

A Bootloader is single-threaded and owns its link exclusively; flash
several targets in parallel by creating independent instances on
independent serial ports.
*/
package stm32loader
