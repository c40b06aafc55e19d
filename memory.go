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
	"encoding/binary"
	"fmt"

	"github.com/jsnyder/stm32loader/internal/frame"
)

const (
	// maxLegacyPages is the page count and index limit of the one-byte
	// erase dialect.
	maxLegacyPages = 255
	// maxExtendedPages is the page count and index limit of the
	// two-byte erase dialect.
	maxExtendedPages = 65535
)

// ReadMemory reads up to one protocol frame of memory at the given
// address. Length must be in [1, 256] (128 on L0).
func (b *Bootloader) ReadMemory(address uint32, length int) ([]byte, error) {
	if length < 1 || length > b.transferSize() {
		return nil, fmt.Errorf("read length %d: %w", length, ErrInvalidArgument)
	}
	if err := b.command(CommandReadMemory); err != nil {
		return nil, err
	}
	if err := b.writeAndACK(frame.EncodeAddress(address)); err != nil {
		return nil, fmt.Errorf("read memory address: %w", err)
	}
	// length goes on the wire as length-1, with its complement
	if err := b.writeAndACK(frame.EncodeCommand(byte(length - 1))); err != nil {
		return nil, fmt.Errorf("read memory length: %w", err)
	}
	return b.link.ReadExact(length, b.config.Timeout)
}

// WriteMemory writes up to one protocol frame of data at the given
// address. Data shorter than a 4-byte multiple is right-padded with
// 0xFF, the erased-flash value.
func (b *Bootloader) WriteMemory(address uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if len(data) > b.transferSize() {
		return fmt.Errorf("write length %d: %w", len(data), ErrInvalidArgument)
	}
	if err := b.command(CommandWriteMemory); err != nil {
		return err
	}
	if err := b.writeAndACK(frame.EncodeAddress(address)); err != nil {
		return fmt.Errorf("write memory address: %w", err)
	}

	if pad := len(data) % 4; pad != 0 {
		padded := make([]byte, len(data), len(data)+4-pad)
		copy(padded, data)
		for i := 0; i < 4-pad; i++ {
			padded = append(padded, 0xFF)
		}
		data = padded
	}

	payload := make([]byte, 0, len(data)+1)
	payload = append(payload, byte(len(data)-1))
	payload = append(payload, data...)
	if err := b.writeAndACK(frame.AppendChecksum(payload)); err != nil {
		return fmt.Errorf("write memory data: %w", err)
	}
	return nil
}

// Go hands control to user code at the given address. The bootloader
// exits; a new activation is required for further commands.
func (b *Bootloader) Go(address uint32) error {
	if err := b.command(CommandGo); err != nil {
		return err
	}
	if err := b.writeAndACK(frame.EncodeAddress(address)); err != nil {
		return fmt.Errorf("go: %w", err)
	}
	return nil
}

// Erase erases flash pages using the legacy one-byte dialect (0x43).
// A nil page list triggers a mass erase. At most 255 pages with
// indices up to 255 can be addressed; larger requests need the
// extended dialect.
func (b *Bootloader) Erase(pages []int) error {
	if pages != nil {
		if len(pages) == 0 {
			return fmt.Errorf("empty page list: %w", ErrInvalidArgument)
		}
		if len(pages) > maxLegacyPages {
			return fmt.Errorf("legacy erase of %d pages: %w", len(pages), ErrUnsupportedOperation)
		}
		for _, page := range pages {
			if page < 0 || page > maxLegacyPages {
				return fmt.Errorf("page index %d: %w", page, ErrUnsupportedOperation)
			}
		}
	}
	if err := b.command(CommandErase); err != nil {
		return err
	}

	if pages == nil {
		// mass erase sentinel, checksum 0x00
		if err := b.link.Write([]byte{0xFF, 0x00}); err != nil {
			return err
		}
	} else {
		payload := make([]byte, 0, len(pages)+1)
		payload = append(payload, byte(len(pages)-1))
		for _, page := range pages {
			payload = append(payload, byte(page))
		}
		if err := b.link.Write(frame.AppendChecksum(payload)); err != nil {
			return err
		}
	}
	if err := b.expectACK(b.config.EraseTimeout); err != nil {
		return fmt.Errorf("erase: %w", err)
	}
	return nil
}

// ExtendedErase erases flash pages using the two-byte dialect (0x44).
// A nil page list triggers a mass erase. This can take ten seconds or
// more; completion is awaited with the erase timeout.
func (b *Bootloader) ExtendedErase(pages []int) error {
	if pages != nil {
		if len(pages) == 0 {
			return fmt.Errorf("empty page list: %w", ErrInvalidArgument)
		}
		if len(pages) > maxExtendedPages {
			return fmt.Errorf("extended erase of %d pages: %w", len(pages), ErrUnsupportedOperation)
		}
		for _, page := range pages {
			if page < 0 || page > maxExtendedPages {
				return fmt.Errorf("page index %d: %w", page, ErrUnsupportedOperation)
			}
		}
	}
	if err := b.command(CommandExtendedErase); err != nil {
		return err
	}

	if pages == nil {
		// mass erase sentinel 0xFFFF; XOR of 0xFF,0xFF is 0x00
		if err := b.link.Write([]byte{0xFF, 0xFF, 0x00}); err != nil {
			return err
		}
	} else {
		payload := make([]byte, 0, 2*len(pages)+2)
		payload = binary.BigEndian.AppendUint16(payload, uint16(len(pages)-1))
		for _, page := range pages {
			payload = binary.BigEndian.AppendUint16(payload, uint16(page))
		}
		if err := b.link.Write(frame.AppendChecksum(payload)); err != nil {
			return err
		}
	}
	if err := b.expectACK(b.config.EraseTimeout); err != nil {
		return fmt.Errorf("extended erase: %w", err)
	}
	return nil
}

// WriteProtect enables write protection on the given flash sectors.
// The bootloader resets afterwards; the next command resynchronizes.
func (b *Bootloader) WriteProtect(pages []int) error {
	if len(pages) == 0 {
		return fmt.Errorf("write protect needs a sector list: %w", ErrInvalidArgument)
	}
	if len(pages) > maxLegacyPages {
		return fmt.Errorf("write protect of %d sectors: %w", len(pages), ErrUnsupportedOperation)
	}
	if err := b.command(CommandWriteProtect); err != nil {
		return err
	}
	payload := make([]byte, 0, len(pages)+1)
	payload = append(payload, byte(len(pages)-1))
	for _, page := range pages {
		payload = append(payload, byte(page))
	}
	if err := b.writeAndACK(frame.AppendChecksum(payload)); err != nil {
		return fmt.Errorf("write protect: %w", err)
	}
	b.markReset(b.config.settleDelay)
	return nil
}

// WriteUnprotect disables write protection of the whole flash. The
// bootloader resets afterwards; the next command resynchronizes.
func (b *Bootloader) WriteUnprotect() error {
	if err := b.command(CommandWriteUnprotect); err != nil {
		return err
	}
	if err := b.expectACK(b.config.Timeout); err != nil {
		return fmt.Errorf("write unprotect: %w", err)
	}
	b.markReset(b.config.settleDelay)
	return nil
}

// ReadoutProtect enables readout protection. The bootloader resets
// afterwards; the next command resynchronizes.
func (b *Bootloader) ReadoutProtect() error {
	if err := b.command(CommandReadoutProtect); err != nil {
		return err
	}
	if err := b.expectACK(b.config.Timeout); err != nil {
		return fmt.Errorf("readout protect: %w", err)
	}
	b.markReset(b.config.settleDelay)
	return nil
}

// ReadoutUnprotect disables readout protection. Beware: this
// mass-erases the flash. The part needs noticeably longer to come
// back; the next command waits for the erase before resynchronizing.
func (b *Bootloader) ReadoutUnprotect() error {
	if err := b.command(CommandReadoutUnprotect); err != nil {
		return err
	}
	if err := b.expectACK(b.config.Timeout); err != nil {
		return fmt.Errorf("readout unprotect: %w", err)
	}
	b.markReset(b.config.massEraseSettle)
	return nil
}
