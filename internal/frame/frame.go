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

// Package frame provides the wire-level framing primitives of the STM32
// USART bootloader protocol (ST AN3155): XOR checksums, opcode frames
// and address encoding. The package never interprets payload semantics.
package frame

import "encoding/binary"

// Acknowledgement and synchronization bytes.
const (
	// ACK is the bootloader acknowledgement byte.
	ACK = 0x79
	// NACK is the bootloader negative acknowledgement byte.
	NACK = 0x1F
	// Synchronize is the autobaud byte sent at a fresh system-memory
	// boot; the bootloader detects the host baud rate from it.
	Synchronize = 0x7F
)

// MaxChunkSize is the largest payload of a single Read Memory or Write
// Memory command.
const MaxChunkSize = 256

// Checksum XOR-folds the given bytes. The checksum of an empty slice
// is 0.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// EncodeCommand returns the two-byte frame for a single opcode: the
// opcode followed by its complement. Single-byte payloads checksum as
// payload XOR 0xFF.
func EncodeCommand(opcode byte) []byte {
	return []byte{opcode, opcode ^ 0xFF}
}

// AppendChecksum returns the payload with its XOR checksum appended.
// Used for multi-byte sub-groups such as page lists.
func AppendChecksum(payload []byte) []byte {
	return append(payload, Checksum(payload))
}

// EncodeAddress returns the address as four big-endian bytes followed
// by their XOR checksum.
func EncodeAddress(address uint32) []byte {
	var buf [5]byte
	binary.BigEndian.PutUint32(buf[:4], address)
	buf[4] = Checksum(buf[:4])
	return buf[:]
}
