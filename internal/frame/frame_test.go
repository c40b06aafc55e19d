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

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{
			name: "empty data",
			data: []byte{},
			want: 0,
		},
		{
			name: "single byte",
			data: []byte{0x42},
			want: 0x42,
		},
		{
			name: "self-cancelling pair",
			data: []byte{0xAA, 0xAA},
			want: 0x00,
		},
		{
			name: "extended erase mass sentinel",
			data: []byte{0xFF, 0xFF},
			want: 0x00,
		},
		{
			name: "page list with header",
			data: []byte{0x02, 0x00, 0x02, 0x05},
			want: 0x05,
		},
		{
			name: "address bytes",
			data: []byte{0x08, 0x00, 0x00, 0x00},
			want: 0x08,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Checksum(tt.data))
		})
	}
}

func TestChecksumIsXORFold(t *testing.T) {
	t.Parallel()
	// checksum law: folding the payload with its own checksum is zero
	payloads := [][]byte{
		{0x01},
		{0x01, 0x02},
		{0xDE, 0xAD, 0xBE, 0xEF},
		{0x00, 0xFF, 0x55, 0xAA, 0x12, 0x34},
	}
	for _, payload := range payloads {
		framed := AppendChecksum(append([]byte(nil), payload...))
		assert.Equal(t, byte(0), Checksum(framed))
		assert.Equal(t, payload, framed[:len(framed)-1])
	}
}

func TestEncodeCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		opcode byte
		want   []byte
	}{
		{name: "get", opcode: 0x00, want: []byte{0x00, 0xFF}},
		{name: "get id", opcode: 0x02, want: []byte{0x02, 0xFD}},
		{name: "read memory", opcode: 0x11, want: []byte{0x11, 0xEE}},
		{name: "erase", opcode: 0x43, want: []byte{0x43, 0xBC}},
		{name: "extended erase", opcode: 0x44, want: []byte{0x44, 0xBB}},
		{name: "readout unprotect", opcode: 0x92, want: []byte{0x92, 0x6D}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := EncodeCommand(tt.opcode)
			assert.Equal(t, tt.want, got)
			// second byte is always the complement
			assert.Equal(t, tt.opcode^0xFF, got[1])
		})
	}
}

func TestEncodeAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		address uint32
		want    []byte
	}{
		{
			name:    "flash start",
			address: 0x08000000,
			want:    []byte{0x08, 0x00, 0x00, 0x00, 0x08},
		},
		{
			name:    "zero",
			address: 0x00000000,
			want:    []byte{0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			name:    "all bytes distinct",
			address: 0x12345678,
			want:    []byte{0x12, 0x34, 0x56, 0x78, 0x08},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, EncodeAddress(tt.address))
		})
	}
}
