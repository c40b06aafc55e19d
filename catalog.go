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

// Family groups devices with a common flash map and register layout.
type Family string

// Known device families.
const (
	FamilyF0      Family = "F0"
	FamilyF1      Family = "F1"
	FamilyF2      Family = "F2"
	FamilyF3      Family = "F3"
	FamilyF4      Family = "F4"
	FamilyF7      Family = "F7"
	FamilyH7      Family = "H7"
	FamilyL0      Family = "L0"
	FamilyL1      Family = "L1"
	FamilyL4      Family = "L4"
	FamilyG0      Family = "G0"
	FamilyWL      Family = "WL"
	FamilyBlueNRG Family = "BlueNRG"
	FamilyW7500   Family = "W7500"
)

// productFamilies maps a product id to its family.
// See ST AN2606 table "Bootloader device-dependent parameters".
var productFamilies = map[uint16]Family{
	// STM32F0, RM0091 DEV_ID field values
	0x440: FamilyF0, // F030x8
	0x442: FamilyF0, // F030xC
	0x444: FamilyF0, // F03xx4/6
	0x445: FamilyF0, // F070x6
	0x448: FamilyF0, // F070xB

	// STM32F1
	0x410: FamilyF1, // medium-density
	0x412: FamilyF1, // low-density
	0x414: FamilyF1, // high-density
	0x418: FamilyF1, // connectivity line
	0x420: FamilyF1, // medium-density value line
	0x428: FamilyF1, // high-density value line
	0x430: FamilyF1, // XL-density

	// STM32F2
	0x411: FamilyF2,

	// STM32F3
	0x422: FamilyF3, // F302xB(C)/303xB(C)/358
	0x432: FamilyF3, // F373/378
	0x438: FamilyF3, // F303x4(6/8)/334/328
	0x439: FamilyF3, // F301/302x4(6/8)/318
	0x446: FamilyF3, // F302xD(E)/303xD(E)/398

	// STM32F4, RM0090 MCU device ID code
	0x413: FamilyF4, // F405/407/415/417
	0x419: FamilyF4, // F42x/43x
	0x433: FamilyF4, // F401xD/E

	// STM32F7
	0x449: FamilyF7, // F74x/75x
	0x451: FamilyF7, // F76x/77x
	0x452: FamilyF7, // F72x/73x

	// STM32H7
	0x450: FamilyH7, // H74x/75x
	0x480: FamilyH7, // H7A3/B3
	0x483: FamilyH7, // H72x/73x

	// STM32L0
	0x417: FamilyL0, // L05x/06x
	0x457: FamilyL0, // L01x/02x

	// STM32L1
	0x416: FamilyL1, // L1xxx6(8/B) medium-density ultralow power

	// STM32L4, RM0394 MCU device ID code
	0x435: FamilyL4,

	// STM32G0
	0x460: FamilyG0, // G0x1

	// STM32WL, RM0453
	0x497: FamilyWL, // WLE5/WL55

	// ST BlueNRG series, AN4872. Three-byte id; the low byte identifies
	// the part (metal fix and mask set bytes are masked out upstream).
	0x003: FamilyBlueNRG, // BlueNRG-1 160kB
	0x00F: FamilyBlueNRG, // BlueNRG-1 256kB
	0x023: FamilyBlueNRG, // BlueNRG-2 160kB
	0x02F: FamilyBlueNRG, // BlueNRG-2 256kB

	// Wiznet W7500, Cortex-M0 with hardware TCP/IP MAC
	// (SweetPeas custom bootloader)
	0x801: FamilyW7500,
}

// chipNames gives the marketing name per product id, for diagnostics.
var chipNames = map[uint16]string{
	0x410: "STM32F10x Medium-density",
	0x411: "STM32F2xxx",
	0x412: "STM32F10x Low-density",
	0x413: "STM32F405xx/07xx and STM32F415xx/17xx",
	0x414: "STM32F10x High-density",
	0x416: "STM32L1xxx6(8/B) Medium-density ultralow power line",
	0x417: "STM32L05xxx/06xxx",
	0x418: "STM32F105xx/107xx",
	0x419: "STM32F42xxx and STM32F43xxx",
	0x420: "STM32F10x Medium-density value line",
	0x422: "STM32F302xB(C)/303xB(C)/358xx",
	0x428: "STM32F10x High-density value line",
	0x430: "STM3210xx XL-density",
	0x432: "STM32F373xx/378xx",
	0x433: "STM32F4xxD/E",
	0x435: "STM32L4xx",
	0x438: "STM32F303x4(6/8)/334xx/328xx",
	0x439: "STM32F301xx/302x4(6/8)/318xx",
	0x440: "STM32F030x8",
	0x442: "STM32F030xC",
	0x444: "STM32F03xx4/6",
	0x445: "STM32F070x6",
	0x446: "STM32F302xD(E)/303xD(E)/398xx",
	0x448: "STM32F070xB",
	0x449: "STM32F74xxx/75xxx",
	0x450: "STM32H74xxx/75xxx",
	0x451: "STM32F76xxx/77xxx",
	0x452: "STM32F72xxx/73xxx",
	0x457: "STM32L01xxx/02xxx",
	0x460: "STM32G0x1",
	0x480: "STM32H7A3xx/B3xx",
	0x483: "STM32H72xxx/73xxx",
	0x497: "STM32WLE5xx/WL55xx",
	0x003: "BlueNRG-1 160kB",
	0x00F: "BlueNRG-1 256kB",
	0x023: "BlueNRG-2 160kB",
	0x02F: "BlueNRG-2 256kB",
	0x801: "Wiznet W7500",
}

// familyRegisters holds the per-family register addresses and transfer
// parameters. Zero addresses mean the register does not exist or is not
// known for that family.
type familyRegisters struct {
	// flashBase is the start of user flash in the address map.
	flashBase uint32
	// flashSizeAddress is the flash-size data register.
	flashSizeAddress uint32
	// uidAddress is the 96-bit unique device id register.
	uidAddress uint32
	// transferSize is the maximum Read/Write Memory payload.
	transferSize int
	// pageSize is the flash page size, 0 when pages are variable-size
	// sectors (F2/F4/F7/H7) and a caller-supplied page map is required.
	pageSize int
	// blockRead works around parts that refuse short reads at the
	// flash-size/UID registers; the surrounding block of one transfer
	// size is read instead (F4: 256 bytes, L0: 128 bytes).
	blockRead bool
}

var familyRegs = map[Family]familyRegisters{
	// RM0360 27.1 memory size data register; F0 parts have no UID
	// readable through the bootloader.
	FamilyF0: {flashBase: 0x08000000, flashSizeAddress: 0x1FFFF7CC, transferSize: 256, pageSize: 1024},
	// RM0008 30.1/30.2
	FamilyF1: {flashBase: 0x08000000, flashSizeAddress: 0x1FFFF7E0, uidAddress: 0x1FFFF7E8, transferSize: 256, pageSize: 1024},
	// F2 sectors are non-uniform; registers not catalogued.
	FamilyF2: {flashBase: 0x08000000, transferSize: 256},
	// RM0316 34.1/34.2 and siblings
	FamilyF3: {flashBase: 0x08000000, flashSizeAddress: 0x1FFFF7CC, uidAddress: 0x1FFFF7AC, transferSize: 256, pageSize: 2048},
	// RM0090 39.1/39.2; sectors are non-uniform
	FamilyF4: {flashBase: 0x08000000, flashSizeAddress: 0x1FFF7A22, uidAddress: 0x1FFF7A10, transferSize: 256, blockRead: true},
	// RM0385 41.2; sectors are non-uniform
	FamilyF7: {flashBase: 0x08000000, flashSizeAddress: 0x1FF0F442, uidAddress: 0x1FF0F420, transferSize: 256},
	// RM0433 61.1/61.2; flash is organized in sectors whose size differs
	// across the line, so no uniform page size is catalogued
	FamilyH7: {flashBase: 0x08000000, flashSizeAddress: 0x1FF1E880, uidAddress: 0x1FF1E800, transferSize: 256},
	// RM0451 25.1/25.2
	FamilyL0: {flashBase: 0x08000000, flashSizeAddress: 0x1FF8007C, uidAddress: 0x1FF80050, transferSize: 128, pageSize: 128, blockRead: true},
	// RM0038
	FamilyL1: {flashBase: 0x08000000, flashSizeAddress: 0x1FF8004C, uidAddress: 0x1FF80050, transferSize: 256, pageSize: 256},
	// RM0394 47.1
	FamilyL4: {flashBase: 0x08000000, flashSizeAddress: 0x1FFF75E0, uidAddress: 0x1FFF7590, transferSize: 256, pageSize: 2048},
	// RM0444 38.1/38.2
	FamilyG0: {flashBase: 0x08000000, flashSizeAddress: 0x1FFF75E0, uidAddress: 0x1FFF7590, transferSize: 256, pageSize: 2048},
	// RM0453 39.1
	FamilyWL: {flashBase: 0x08000000, flashSizeAddress: 0x1FFF75E0, uidAddress: 0x1FFF7590, transferSize: 256, pageSize: 2048},
	// BlueNRG-2 datasheet: DIE_ID with PRODUCT, no UID; 2 KiB pages
	FamilyBlueNRG: {flashBase: 0x10040000, flashSizeAddress: 0x40100014, transferSize: 256, pageSize: 2048},
	// W7500 has no flash-size or UID registers
	FamilyW7500: {transferSize: 256},
}

// uidSwap is the byte regrouping applied when formatting a UID, per the
// ST reference manuals' word layout.
var uidSwap = [][]int{{1, 0}, {3, 2}, {7, 6, 5, 4}, {11, 10, 9, 8}}

// LookupFamily returns the family for the given product id.
func LookupFamily(productID uint16) (Family, bool) {
	family, ok := productFamilies[productID]
	return family, ok
}

// ChipName returns the marketing name for the given product id, or
// "Unknown" when the id is not catalogued.
func ChipName(productID uint16) string {
	if name, ok := chipNames[productID]; ok {
		return name
	}
	return "Unknown"
}

// KnownFamilies returns every family present in the catalog.
func KnownFamilies() []Family {
	out := make([]Family, 0, len(familyRegs))
	for family := range familyRegs {
		out = append(out, family)
	}
	return out
}

// FlashSizeAddress returns the flash-size register address, or false
// when the catalog does not know it for this family.
func (f Family) FlashSizeAddress() (uint32, bool) {
	regs, ok := familyRegs[f]
	if !ok || regs.flashSizeAddress == 0 {
		return 0, false
	}
	return regs.flashSizeAddress, true
}

// UIDAddress returns the unique-id register address, or false when the
// part has no UID or the catalog does not know its address.
func (f Family) UIDAddress() (uint32, bool) {
	regs, ok := familyRegs[f]
	if !ok || regs.uidAddress == 0 {
		return 0, false
	}
	return regs.uidAddress, true
}

// TransferSize returns the maximum Read/Write Memory payload for this
// family. Unknown families use the protocol maximum of 256.
func (f Family) TransferSize() int {
	if regs, ok := familyRegs[f]; ok && regs.transferSize != 0 {
		return regs.transferSize
	}
	return 256
}

// PageSize returns the uniform flash page size, or false for families
// whose flash is organized in variable-size sectors. Page-selective
// erase on those families needs a caller-supplied page list.
func (f Family) PageSize() (int, bool) {
	regs, ok := familyRegs[f]
	if !ok || regs.pageSize == 0 {
		return 0, false
	}
	return regs.pageSize, true
}

// FlashBase returns the start of user flash in the address map, or
// false when the family is not catalogued.
func (f Family) FlashBase() (uint32, bool) {
	regs, ok := familyRegs[f]
	if !ok {
		return 0, false
	}
	return regs.flashBase, true
}

// NoParity reports whether the family's bootloader runs the UART
// without parity (BlueNRG, W7500) instead of the STM32 default of even
// parity.
func (f Family) NoParity() bool {
	return f == FamilyBlueNRG || f == FamilyW7500
}

func (f Family) usesBlockRead() bool {
	regs, ok := familyRegs[f]
	return ok && regs.blockRead
}
