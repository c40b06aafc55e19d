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
	"time"

	"github.com/jsnyder/stm32loader/internal/frame"
	"github.com/jsnyder/stm32loader/internal/retry"
)

const (
	// defaultTimeout is the per-read deadline. Timeouts are per-read,
	// not per-command; a multi-step command may take longer.
	defaultTimeout = 5 * time.Second
	// defaultEraseTimeout covers the final ACK of an extended erase,
	// which can take ten seconds or more on large parts.
	defaultEraseTimeout = 30 * time.Second
	// resetHoldDelay is how long RESET stays asserted during a pulse.
	resetHoldDelay = 100 * time.Millisecond
	// resetSettleDelay gives the bootloader time to start after the
	// pulse.
	resetSettleDelay = 500 * time.Millisecond
	// defaultSettleDelay is slept after a bootloader-resetting command
	// before the activation handshake is re-run.
	defaultSettleDelay = 25 * time.Millisecond
	// defaultMassEraseSettle covers the mass erase triggered by
	// readout unprotect before the part comes back up.
	defaultMassEraseSettle = 20 * time.Second

	activationAttempts = 2
)

// Config contains configuration options for the Bootloader.
type Config struct {
	// Family selects per-family transfer sizes, register addresses and
	// the BlueNRG id layout. Leave empty to infer it from the product id.
	Family Family
	// Timeout is the per-read deadline.
	Timeout time.Duration
	// EraseTimeout is the deadline for erase completion ACKs.
	EraseTimeout time.Duration
	// Progress receives (bytesDone, bytesTotal) pairs during
	// multi-frame transfers. May be nil.
	Progress ProgressFunc

	settleDelay     time.Duration
	massEraseSettle time.Duration
}

// DefaultConfig returns the default bootloader configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:         defaultTimeout,
		EraseTimeout:    defaultEraseTimeout,
		settleDelay:     defaultSettleDelay,
		massEraseSettle: defaultMassEraseSettle,
	}
}

// Bootloader drives the STM32 factory bootloader over a ByteLink.
//
// Thread safety: Bootloader is NOT safe for concurrent use. It owns its
// link exclusively for the duration of any operation; flashing several
// targets in parallel requires independent Bootloader instances on
// independent links.
type Bootloader struct {
	link   ByteLink
	config *Config
	device *DeviceDescriptor

	// needsResync is set after commands that reset the bootloader
	// (write protect/unprotect, readout protect/unprotect). The next
	// command re-runs the activation handshake first.
	needsResync bool
	resyncDelay time.Duration
}

// New creates a Bootloader on the given link. The link must already be
// open, or be opened by the caller before any operation.
func New(link ByteLink, opts ...Option) (*Bootloader, error) {
	b := &Bootloader{
		link:   link,
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Link returns the underlying byte link.
func (b *Bootloader) Link() ByteLink { return b.link }

// Device returns the descriptor populated by Identify, or nil before
// identification.
func (b *Bootloader) Device() *DeviceDescriptor { return b.device }

// Family returns the configured or inferred device family, which may be
// empty when unknown.
func (b *Bootloader) Family() Family {
	if b.device != nil && b.device.Family != "" {
		return b.device.Family
	}
	return b.config.Family
}

// ResetFromSystemMemory resets the target with BOOT0 asserted so it
// boots the factory bootloader, then performs the autobaud handshake.
func (b *Bootloader) ResetFromSystemMemory() error {
	if err := b.link.SetBoot0(true); err != nil {
		return err
	}
	if err := b.pulseReset(); err != nil {
		return err
	}
	return b.activate()
}

// ResetFromFlash resets the target with BOOT0 released for a normal
// boot of user firmware. No acknowledgement is expected.
func (b *Bootloader) ResetFromFlash() error {
	if err := b.link.SetBoot0(false); err != nil {
		return err
	}
	return b.pulseReset()
}

func (b *Bootloader) pulseReset() error {
	if err := b.link.SetReset(true); err != nil {
		return err
	}
	time.Sleep(resetHoldDelay)
	if err := b.link.SetReset(false); err != nil {
		return err
	}
	time.Sleep(resetSettleDelay)
	return nil
}

// activate flushes boot noise and sends the 0x7F autobaud byte. A NACK
// also counts as alive: a previously synchronized bootloader NACKs the
// resend but accepts commands. Retried once on failure.
func (b *Bootloader) activate() error {
	err := retry.Do(retry.Config{
		MaxAttempts: activationAttempts,
		OnRetry: func(_ int, err error) {
			debugf("bootloader activation failed (%v), retrying", err)
		},
	}, func() error {
		if err := b.link.FlushInput(); err != nil {
			return err
		}
		if err := b.link.Write([]byte{frame.Synchronize}); err != nil {
			return err
		}
		reply, err := b.link.ReadExact(1, b.config.Timeout)
		if err != nil {
			return err
		}
		if reply[0] != frame.ACK && reply[0] != frame.NACK {
			return &ProtocolError{Expected: frame.ACK, Got: reply[0]}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v (check BOOT0 and RESET wiring)", ErrBootloaderActivation, err)
	}
	return nil
}

// command sends the two-byte opcode frame and waits for the opening
// ACK. When a previous command reset the bootloader, the activation
// handshake is re-run first; callers never see the intermediate state.
func (b *Bootloader) command(c Command) error {
	if b.needsResync {
		b.needsResync = false
		time.Sleep(b.resyncDelay)
		if err := b.activate(); err != nil {
			return err
		}
	}
	if b.device != nil && !b.device.Commands.Has(c) {
		return fmt.Errorf("command 0x%02X: %w", byte(c), ErrUnsupportedOperation)
	}
	debugf("command 0x%02X", byte(c))
	if err := b.link.Write(frame.EncodeCommand(byte(c))); err != nil {
		return err
	}
	if err := b.expectACK(b.config.Timeout); err != nil {
		return fmt.Errorf("command 0x%02X: %w", byte(c), err)
	}
	return nil
}

// expectACK reads one byte and interprets it as an acknowledgement.
func (b *Bootloader) expectACK(timeout time.Duration) error {
	reply, err := b.link.ReadExact(1, timeout)
	if err != nil {
		return err
	}
	switch reply[0] {
	case frame.ACK:
		return nil
	case frame.NACK:
		return ErrNACK
	default:
		return &ProtocolError{Expected: frame.ACK, Got: reply[0]}
	}
}

// writeAndACK sends a parameter sub-group and waits for its ACK.
func (b *Bootloader) writeAndACK(payload []byte) error {
	if err := b.link.Write(payload); err != nil {
		return err
	}
	return b.expectACK(b.config.Timeout)
}

// markReset records that the bootloader will reset itself and that the
// next command must resynchronize after the given settle time.
func (b *Bootloader) markReset(settle time.Duration) {
	b.needsResync = true
	b.resyncDelay = settle
}

// transferSize returns the maximum Read/Write Memory payload for the
// selected family, or the protocol maximum when unknown.
func (b *Bootloader) transferSize() int {
	if f := b.Family(); f != "" {
		return f.TransferSize()
	}
	return frame.MaxChunkSize
}
