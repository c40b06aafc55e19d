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
	"context"
	"fmt"
)

// ReadMemoryData reads an arbitrary-length range by chunking it into
// protocol-sized Read Memory frames. Progress is reported once per
// chunk. Cancellation is checked between chunks; on any error the
// previously read bytes are discarded.
func (b *Bootloader) ReadMemoryData(ctx context.Context, address uint32, length int) ([]byte, error) {
	if length < 0 {
		return nil, fmt.Errorf("read length %d: %w", length, ErrInvalidArgument)
	}
	chunkSize := b.transferSize()
	data := make([]byte, 0, length)
	debugf("read %d bytes at 0x%08X in chunks of %d", length, address, chunkSize)

	for done := 0; done < length; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := length - done
		if n > chunkSize {
			n = chunkSize
		}
		chunk, err := b.ReadMemory(address+uint32(done), n)
		if err != nil {
			return nil, err
		}
		data = append(data, chunk...)
		done += n
		b.reportProgress(done, length)
	}
	return data, nil
}

// WriteMemoryData writes an arbitrary-length buffer by chunking it
// into protocol-sized Write Memory frames. The final chunk is padded
// to a 4-byte multiple with 0xFF by WriteMemory. Progress is reported
// once per chunk; cancellation is checked between chunks.
func (b *Bootloader) WriteMemoryData(ctx context.Context, address uint32, data []byte) error {
	chunkSize := b.transferSize()
	length := len(data)
	debugf("write %d bytes at 0x%08X in chunks of %d", length, address, chunkSize)

	for done := 0; done < length; {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := length - done
		if n > chunkSize {
			n = chunkSize
		}
		if err := b.WriteMemory(address+uint32(done), data[done:done+n]); err != nil {
			return err
		}
		done += n
		b.reportProgress(done, length)
	}
	return nil
}

// EraseMemory erases the given zero-based pages, routing through the
// erase dialect the device advertises. A nil list means mass erase; an
// empty list is an error. L0 parts cannot mass-erase, so a nil list
// there expands to every page of the detected flash.
func (b *Bootloader) EraseMemory(pages []int) error {
	if pages != nil && len(pages) == 0 {
		return fmt.Errorf("empty page list: %w", ErrInvalidArgument)
	}

	if pages == nil && b.Family() == FamilyL0 {
		expanded, err := b.allPages()
		if err != nil {
			return err
		}
		pages = expanded
	}

	dialect := EraseLegacy
	if b.device != nil {
		dialect = b.device.EraseDialect()
	}
	if dialect == EraseExtended {
		return b.ExtendedErase(pages)
	}
	return b.Erase(pages)
}

// allPages derives the full page list from the flash-size register.
func (b *Bootloader) allPages() ([]int, error) {
	pageSize, ok := b.Family().PageSize()
	if !ok {
		return nil, fmt.Errorf("no uniform page size for %s: %w", b.Family(), ErrUnsupportedOperation)
	}
	sizeKiB, err := b.GetFlashSizeKiB()
	if err != nil {
		return nil, err
	}
	count := sizeKiB * 1024 / pageSize
	pages := make([]int, count)
	for i := range pages {
		pages[i] = i
	}
	return pages, nil
}

// Verify reads back the given range and byte-compares it against the
// expected data, reporting the first difference.
func (b *Bootloader) Verify(ctx context.Context, address uint32, expected []byte) error {
	actual, err := b.ReadMemoryData(ctx, address, len(expected))
	if err != nil {
		return err
	}
	for i := range expected {
		if actual[i] != expected[i] {
			return &MismatchError{Offset: i, Expected: expected[i], Actual: actual[i]}
		}
	}
	return nil
}

// PagesFromRange returns the zero-based page indices covering the
// absolute flash address range [start, end). Both bounds must lie on a
// flash page boundary. Families with variable-size sectors (F2, F4,
// F7, H7) have no uniform page size; page-selective erase there needs
// a caller-supplied list.
func (b *Bootloader) PagesFromRange(start, end uint32) ([]int, error) {
	family := b.Family()
	if family == "" {
		return nil, fmt.Errorf("page map: %w", ErrUnknownFamily)
	}
	pageSize, ok := family.PageSize()
	if !ok {
		return nil, fmt.Errorf("no uniform page size for %s, supply an explicit page list: %w",
			family, ErrUnsupportedOperation)
	}
	base, _ := family.FlashBase()
	if start < base || end < start {
		return nil, fmt.Errorf("erase range [0x%08X, 0x%08X) outside flash: %w", start, end, ErrInvalidArgument)
	}
	size := uint32(pageSize)
	if (start-base)%size != 0 {
		return nil, fmt.Errorf("erase start 0x%08X not on a page boundary: %w", start, ErrInvalidArgument)
	}
	if (end-base)%size != 0 {
		return nil, fmt.Errorf("erase end 0x%08X not on a page boundary: %w", end, ErrInvalidArgument)
	}

	first := (start - base) / size
	last := (end - base) / size
	pages := make([]int, 0, last-first)
	for page := first; page < last; page++ {
		pages = append(pages, int(page))
	}
	return pages, nil
}

func (b *Bootloader) reportProgress(done, total int) {
	if b.config.Progress != nil {
		b.config.Progress(done, total)
	}
}
