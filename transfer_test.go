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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsnyder/stm32loader/internal/frame"
)

type progressEvent struct{ done, total int }

func collectProgress(events *[]progressEvent) Option {
	return WithProgress(func(done, total int) {
		*events = append(*events, progressEvent{done, total})
	})
}

// expectedReadFrames renders the exact bytes the engine must emit for
// a chunked read starting at the given address.
func expectedReadFrames(address uint32, chunks []int) []byte {
	var out []byte
	offset := uint32(0)
	for _, n := range chunks {
		out = append(out, frame.EncodeCommand(0x11)...)
		out = append(out, frame.EncodeAddress(address+offset)...)
		out = append(out, frame.EncodeCommand(byte(n-1))...)
		offset += uint32(n)
	}
	return out
}

func TestReadMemoryDataChunking(t *testing.T) {
	t.Parallel()
	var events []progressEvent
	loader, link := newTestLoader(t, collectProgress(&events))

	// 600 bytes split into 256 + 256 + 88
	want := make([]byte, 600)
	for i := range want {
		want[i] = byte(i)
	}
	offset := 0
	for _, n := range []int{256, 256, 88} {
		link.QueueReads(ack, ack, ack)
		link.QueueReads(want[offset : offset+n]...)
		offset += n
	}

	data, err := loader.ReadMemoryData(context.Background(), 0x08000000, 600)
	require.NoError(t, err)

	assert.Equal(t, want, data)
	assert.Equal(t, expectedReadFrames(0x08000000, []int{256, 256, 88}), link.Written)
	assert.Equal(t, []progressEvent{{256, 600}, {512, 600}, {600, 600}}, events)
	assert.Zero(t, link.Pending())
}

func TestReadMemoryDataZeroLength(t *testing.T) {
	t.Parallel()
	loader, link := newTestLoader(t)

	data, err := loader.ReadMemoryData(context.Background(), 0x08000000, 0)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Empty(t, link.Written)
}

func TestReadMemoryDataNegativeLength(t *testing.T) {
	t.Parallel()
	loader, _ := newTestLoader(t)

	_, err := loader.ReadMemoryData(context.Background(), 0x08000000, -1)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestReadMemoryDataCancelled(t *testing.T) {
	t.Parallel()
	loader, link := newTestLoader(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.ReadMemoryData(ctx, 0x08000000, 512)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, link.Written)
}

func TestReadMemoryDataFailsFast(t *testing.T) {
	t.Parallel()
	loader, link := newTestLoader(t)
	// first chunk succeeds, second chunk gets no reply
	link.QueueReads(ack, ack, ack)
	link.QueueReads(make([]byte, 256)...)

	_, err := loader.ReadMemoryData(context.Background(), 0x08000000, 512)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestWriteMemoryDataChunking(t *testing.T) {
	t.Parallel()
	var events []progressEvent
	loader, link := newTestLoader(t, collectProgress(&events))

	data := make([]byte, 520)
	for i := range data {
		data[i] = byte(i * 7)
	}
	for range []int{256, 256, 8} {
		link.QueueReads(ack, ack, ack)
	}

	require.NoError(t, loader.WriteMemoryData(context.Background(), 0x08000000, data))

	assert.Equal(t, []progressEvent{{256, 520}, {512, 520}, {520, 520}}, events)
	assert.Zero(t, link.Pending())

	var want []byte
	offset := 0
	for _, n := range []int{256, 256, 8} {
		want = append(want, frame.EncodeCommand(0x31)...)
		want = append(want, frame.EncodeAddress(0x08000000+uint32(offset))...)
		payload := append([]byte{byte(n - 1)}, data[offset:offset+n]...)
		want = append(want, frame.AppendChecksum(payload)...)
		offset += n
	}
	assert.Equal(t, want, link.Written)
}

func TestWriteMemoryDataUsesFamilyTransferSize(t *testing.T) {
	t.Parallel()
	// L0 parts transfer at most 128 bytes per frame
	var events []progressEvent
	loader, link := newTestLoader(t, WithFamily(FamilyL0), collectProgress(&events))

	for range []int{128, 72} {
		link.QueueReads(ack, ack, ack)
	}

	require.NoError(t, loader.WriteMemoryData(context.Background(), 0x08000000, make([]byte, 200)))
	assert.Equal(t, []progressEvent{{128, 200}, {200, 200}}, events)
}

func TestVerifyOK(t *testing.T) {
	t.Parallel()
	loader, link := newTestLoader(t)
	link.QueueReads(ack, ack, ack, 0x01, 0x02, 0x03, 0x04)

	require.NoError(t, loader.Verify(context.Background(), 0x08000000, []byte{0x01, 0x02, 0x03, 0x04}))
}

func TestVerifyMismatch(t *testing.T) {
	t.Parallel()
	// read-back differs at offset 2
	loader, link := newTestLoader(t)
	link.QueueReads(ack, ack, ack, 0x01, 0x02, 0xFF, 0x04)

	err := loader.Verify(context.Background(), 0x08000000, []byte{0x01, 0x02, 0x03, 0x04})
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.Offset)
	assert.Equal(t, byte(0x03), mismatch.Expected)
	assert.Equal(t, byte(0xFF), mismatch.Actual)
}

func TestEraseMemoryEmptyList(t *testing.T) {
	t.Parallel()
	loader, link := newTestLoader(t)

	err := loader.EraseMemory([]int{})
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, link.Written)
}

func TestEraseMemoryDialectSelection(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		advertised Command
		wantOpcode byte
	}{
		{name: "legacy", advertised: CommandErase, wantOpcode: 0x43},
		{name: "extended", advertised: CommandExtendedErase, wantOpcode: 0x44},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			loader, link := newTestLoader(t)
			var commands CommandSet
			commands.Add(tt.advertised)
			loader.device = &DeviceDescriptor{Commands: commands}
			link.QueueReads(ack, ack)

			require.NoError(t, loader.EraseMemory(nil))
			require.NotEmpty(t, link.Written)
			assert.Equal(t, tt.wantOpcode, link.Written[0])
		})
	}
}

func TestEraseMemoryMassOnL0ErasesPageByPage(t *testing.T) {
	t.Parallel()
	// L0 cannot mass-erase; the full page list is derived from the
	// flash-size register (16 KiB -> 128 pages of 128 bytes)
	loader, link := newTestLoader(t, WithFamily(FamilyL0))

	block := make([]byte, 128)
	block[0x7C] = 16 // KiB, little-endian
	link.QueueReads(ack, ack, ack)
	link.QueueReads(block...)
	link.QueueReads(ack, ack) // erase command + completion

	require.NoError(t, loader.EraseMemory(nil))

	// the erase payload carries count-1 plus 128 one-byte indices and
	// the checksum
	written := link.Written
	idx := len(written) - (1 + 128 + 1)
	require.Greater(t, idx, 0)
	assert.Equal(t, byte(0x43), written[idx-2])
	assert.Equal(t, byte(127), written[idx])
	assert.Equal(t, byte(0), written[idx+1])
	assert.Equal(t, byte(127), written[idx+128])
}

func TestPagesFromRange(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		family  Family
		start   uint32
		end     uint32
		want    []int
		wantErr error
	}{
		{
			name:   "two pages from flash start",
			family: FamilyF1,
			start:  0x08000000,
			end:    0x08000800,
			want:   []int{0, 1},
		},
		{
			name:   "offset range",
			family: FamilyF1,
			start:  0x08001000,
			end:    0x08001800,
			want:   []int{4, 5},
		},
		{
			name:    "unaligned start",
			family:  FamilyF1,
			start:   0x08000001,
			end:     0x08000800,
			wantErr: ErrInvalidArgument,
		},
		{
			name:    "unaligned end",
			family:  FamilyF1,
			start:   0x08000000,
			end:     0x08000801,
			wantErr: ErrInvalidArgument,
		},
		{
			name:    "below flash base",
			family:  FamilyF1,
			start:   0x07FFF000,
			end:     0x08000000,
			wantErr: ErrInvalidArgument,
		},
		{
			name:    "variable-size sectors need explicit list",
			family:  FamilyF4,
			start:   0x08000000,
			end:     0x08004000,
			wantErr: ErrUnsupportedOperation,
		},
		{
			name:    "unknown family",
			family:  "",
			start:   0x08000000,
			end:     0x08000800,
			wantErr: ErrUnknownFamily,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			loader, _ := newTestLoader(t, WithFamily(tt.family))
			pages, err := loader.PagesFromRange(tt.start, tt.end)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pages)
		})
	}
}
