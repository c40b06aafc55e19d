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
	"strings"
)

// EraseDialect selects the wire format of the erase command.
type EraseDialect string

const (
	// EraseLegacy is the one-byte-index erase command (0x43).
	EraseLegacy EraseDialect = "legacy"
	// EraseExtended is the two-byte-index erase command (0x44),
	// required on devices with more than 255 pages.
	EraseExtended EraseDialect = "extended"
)

// DeviceDescriptor describes the connected target, populated by
// Identify after the activation handshake.
type DeviceDescriptor struct {
	// Version is the bootloader protocol version, BCD major.minor.
	Version byte
	// Option1 and Option2 are the bytes following the version in the
	// Get Version response; Option1 carries the read protection
	// status. Populated by GetVersion.
	Option1 byte
	Option2 byte
	// RawID is the unmasked id fold from Get ID. STM32 parts reply
	// two bytes; BlueNRG replies three (metal fix, mask set, product).
	RawID uint32
	// ProductID is the 12-bit product identifier (8-bit on BlueNRG).
	ProductID uint16
	// MetalFix and MaskSet are the extra BlueNRG id bytes, zero
	// elsewhere.
	MetalFix byte
	MaskSet  byte
	// Commands is the supported opcode set from the Get response.
	Commands CommandSet
	// Family is the inferred or configured family tag, empty when the
	// product id is not catalogued.
	Family Family
}

// VersionString renders the BCD protocol version, e.g. "3.1".
func (d *DeviceDescriptor) VersionString() string {
	return fmt.Sprintf("%d.%d", d.Version>>4, d.Version&0x0F)
}

// EraseDialect returns the dialect to use with this device: extended
// when opcode 0x44 is advertised, legacy otherwise.
func (d *DeviceDescriptor) EraseDialect() EraseDialect {
	if d.Commands.Has(CommandExtendedErase) {
		return EraseExtended
	}
	return EraseLegacy
}

// Get returns the bootloader version and the supported command set.
func (b *Bootloader) Get() (byte, CommandSet, error) {
	var commands CommandSet
	if err := b.command(CommandGet); err != nil {
		return 0, commands, err
	}
	header, err := b.link.ReadExact(2, b.config.Timeout)
	if err != nil {
		return 0, commands, err
	}
	count, version := int(header[0]), header[1]
	opcodes, err := b.link.ReadExact(count, b.config.Timeout)
	if err != nil {
		return 0, commands, err
	}
	if err := b.expectACK(b.config.Timeout); err != nil {
		return 0, commands, fmt.Errorf("get: %w", err)
	}
	for _, opcode := range opcodes {
		commands.Add(Command(opcode))
	}
	debugf("bootloader version 0x%02X, commands %s", version, commands.String())
	return version, commands, nil
}

// GetVersion returns the bootloader version and the two option bytes
// carrying the read protection status.
func (b *Bootloader) GetVersion() (version, option1, option2 byte, err error) {
	if err := b.command(CommandGetVersion); err != nil {
		return 0, 0, 0, err
	}
	data, err := b.link.ReadExact(3, b.config.Timeout)
	if err != nil {
		return 0, 0, 0, err
	}
	if err := b.expectACK(b.config.Timeout); err != nil {
		return 0, 0, 0, fmt.Errorf("get version: %w", err)
	}
	if b.device != nil {
		b.device.Option1, b.device.Option2 = data[1], data[2]
	}
	return data[0], data[1], data[2], nil
}

// GetID returns the raw product id fold. STM32 parts reply two bytes,
// BlueNRG three; bytes are folded big-endian.
func (b *Bootloader) GetID() (uint32, error) {
	if err := b.command(CommandGetID); err != nil {
		return 0, err
	}
	header, err := b.link.ReadExact(1, b.config.Timeout)
	if err != nil {
		return 0, err
	}
	idBytes, err := b.link.ReadExact(int(header[0])+1, b.config.Timeout)
	if err != nil {
		return 0, err
	}
	if err := b.expectACK(b.config.Timeout); err != nil {
		return 0, fmt.Errorf("get id: %w", err)
	}
	var id uint32
	for _, idByte := range idBytes {
		id = id<<8 | uint32(idByte)
	}
	return id, nil
}

// Identify runs Get and Get ID and populates the device descriptor,
// inferring the family from the product id unless one was configured.
func (b *Bootloader) Identify() (*DeviceDescriptor, error) {
	version, commands, err := b.Get()
	if err != nil {
		return nil, err
	}
	rawID, err := b.GetID()
	if err != nil {
		return nil, err
	}

	device := &DeviceDescriptor{
		Version:  version,
		Commands: commands,
		RawID:    rawID,
		Family:   b.config.Family,
	}
	if b.config.Family == FamilyBlueNRG {
		// AN4872: byte 2 metal fix, byte 1 mask set, byte 0 product
		device.MetalFix = byte(rawID >> 16)
		device.MaskSet = byte(rawID >> 8)
		device.ProductID = uint16(rawID & 0xFF)
	} else {
		device.ProductID = uint16(rawID & 0xFFF)
	}
	if device.Family == "" {
		if family, ok := LookupFamily(device.ProductID); ok {
			device.Family = family
		}
	}
	b.device = device
	return device, nil
}

// GetFlashSizeKiB reads the flash-size data register and returns the
// flash size in KiB. The register address is family-specific; an
// unknown family yields ErrUnknownFamily.
func (b *Bootloader) GetFlashSizeKiB() (int, error) {
	family := b.Family()
	if family == "" {
		return 0, fmt.Errorf("flash size: %w", ErrUnknownFamily)
	}
	address, ok := family.FlashSizeAddress()
	if !ok {
		return 0, fmt.Errorf("flash size register not catalogued for %s: %w", family, ErrUnsupportedOperation)
	}
	if family.usesBlockRead() {
		size, _, err := b.GetFlashSizeAndUID()
		return size, err
	}
	data, err := b.ReadMemory(address, 2)
	if err != nil {
		return 0, err
	}
	return int(data[0]) | int(data[1])<<8, nil
}

// GetUID reads the 96-bit unique device id. Parts without one (F0,
// BlueNRG, W7500) yield ErrUnsupportedOperation; an unknown family
// yields ErrUnknownFamily.
func (b *Bootloader) GetUID() ([]byte, error) {
	family := b.Family()
	if family == "" {
		return nil, fmt.Errorf("device UID: %w", ErrUnknownFamily)
	}
	address, ok := family.UIDAddress()
	if !ok {
		return nil, fmt.Errorf("no unique id on %s parts: %w", family, ErrUnsupportedOperation)
	}
	if family.usesBlockRead() {
		_, uid, err := b.GetFlashSizeAndUID()
		return uid, err
	}
	return b.ReadMemory(address, 12)
}

// GetFlashSizeAndUID reads one transfer-size block (256 bytes, 128 on
// L0) starting at the 256-byte boundary below the UID register, and
// extracts the flash size and the UID from it. Some
// parts (F4, L0) refuse the short reads at those addresses that GetUID
// and GetFlashSizeKiB would otherwise issue.
func (b *Bootloader) GetFlashSizeAndUID() (int, []byte, error) {
	family := b.Family()
	if family == "" {
		return 0, nil, fmt.Errorf("flash size and UID: %w", ErrUnknownFamily)
	}
	uidAddress, ok := family.UIDAddress()
	if !ok {
		return 0, nil, fmt.Errorf("no unique id on %s parts: %w", family, ErrUnsupportedOperation)
	}
	sizeAddress, ok := family.FlashSizeAddress()
	if !ok {
		return 0, nil, fmt.Errorf("flash size register not catalogued for %s: %w", family, ErrUnsupportedOperation)
	}

	blockStart := uidAddress &^ 0xFF
	block, err := b.ReadMemory(blockStart, family.TransferSize())
	if err != nil {
		return 0, nil, err
	}
	uidOffset := int(uidAddress - blockStart)
	sizeOffset := int(sizeAddress - blockStart)
	if uidOffset+12 > len(block) || sizeOffset+2 > len(block) {
		return 0, nil, fmt.Errorf("registers outside read block: %w", ErrUnsupportedOperation)
	}
	size := int(block[sizeOffset]) | int(block[sizeOffset+1])<<8
	return size, block[uidOffset : uidOffset+12], nil
}

// FormatUID renders a 96-bit UID the way ST tools print it, with the
// reference manuals' word byte order.
func FormatUID(uid []byte) string {
	if len(uid) < 12 {
		return ""
	}
	groups := make([]string, 0, len(uidSwap))
	for _, group := range uidSwap {
		var sb strings.Builder
		for _, idx := range group {
			fmt.Fprintf(&sb, "%02X", uid[idx])
		}
		groups = append(groups, sb.String())
	}
	return strings.Join(groups, "-")
}
