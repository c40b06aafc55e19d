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

// Package hexfile loads firmware images from Intel HEX files into a
// single contiguous buffer suitable for a flash write.
package hexfile

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/marcinbor85/gohex"
)

// maxGapFill bounds the 0xFF padding inserted between data segments.
// Larger gaps usually mean the image targets disjoint memory regions
// and flashing it as one blob would be a mistake.
const maxGapFill = 64 * 1024

// Load reads an Intel HEX file and returns its start address and a
// contiguous image. Gaps between segments are filled with 0xFF, the
// erased-flash value.
func Load(path string) (uint32, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open hex file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes Intel HEX from the given reader.
func Parse(r io.Reader) (uint32, []byte, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return 0, nil, fmt.Errorf("failed to parse hex file: %w", err)
	}

	segments := mem.GetDataSegments()
	if len(segments) == 0 {
		return 0, nil, fmt.Errorf("hex file contains no data")
	}
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Address < segments[j].Address
	})

	start := segments[0].Address
	var image []byte
	for _, segment := range segments {
		offset := segment.Address - start
		if gap := int(offset) - len(image); gap > 0 {
			if gap > maxGapFill {
				return 0, nil, fmt.Errorf("gap of %d bytes before 0x%08X too large for one image",
					gap, segment.Address)
			}
			for i := 0; i < gap; i++ {
				image = append(image, 0xFF)
			}
		} else if int(offset) < len(image) {
			return 0, nil, fmt.Errorf("overlapping segment at 0x%08X", segment.Address)
		}
		image = append(image, segment.Data...)
	}
	return start, image, nil
}
