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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	stm32loader "github.com/jsnyder/stm32loader"
	"github.com/jsnyder/stm32loader/hexfile"
	"github.com/jsnyder/stm32loader/link/gpio"
	"github.com/jsnyder/stm32loader/link/serial"
)

type options struct {
	port            string
	baud            int
	parity          string
	family          string
	address         string
	goAddress       string
	length          string
	resetPin        string
	boot0Pin        string
	erase           bool
	write           bool
	verify          bool
	read            bool
	unprotect       bool
	protect         bool
	swapRTSDTR      bool
	resetActiveHigh bool
	boot0ActiveLow  bool
	noProgress      bool
	verbose         bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "stm32loader [flags] [FILE.BIN]",
	Short: "Flash firmware to STM32 microcontrollers",
	Long: `Flash firmware to STM32 microcontrollers (and BlueNRG / Wiznet W7500
parts) through the factory UART bootloader, per ST AN2606/AN3155/AN4872.

Examples:
  stm32loader --port COM7 --family F1
  stm32loader -p /dev/ttyUSB0 --erase --write --verify example/main.bin
  stm32loader -p /dev/ttyUSB0 --read --length 0x8000 dump.bin`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// Execute runs the root command. Exit code is 1 on any surfaced error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&opts.port, "port", "p", "",
		"serial port (default: $STM32LOADER_SERIAL_PORT)")
	flags.IntVarP(&opts.baud, "baud", "b", serial.DefaultBaudRate, "baud rate")
	flags.StringVar(&opts.parity, "parity", "",
		"serial parity: even or none (default: per family)")
	flags.StringVarP(&opts.family, "family", "f", "",
		"device family, e.g. F1 (default: $STM32LOADER_FAMILY)")
	flags.StringVarP(&opts.address, "address", "a", "0x08000000",
		"target address for read, write or ranged erase")
	flags.StringVarP(&opts.length, "length", "l", "", "length of read or erase (decimal or 0x hex)")
	flags.StringVarP(&opts.goAddress, "go-address", "g", "",
		"start execution from this address after all other operations")
	flags.BoolVarP(&opts.erase, "erase", "e", false,
		"erase the full flash, or a region when --length is given")
	flags.BoolVarP(&opts.write, "write", "w", false, "write file content to flash")
	flags.BoolVarP(&opts.verify, "verify", "v", false,
		"verify flash content against the local file (recommended)")
	flags.BoolVarP(&opts.read, "read", "r", false,
		"read from flash and store in the local file")
	flags.BoolVarP(&opts.unprotect, "unprotect", "u", false,
		"unprotect flash from readout (this mass-erases)")
	flags.BoolVarP(&opts.protect, "protect", "x", false, "protect flash against readout")
	flags.BoolVar(&opts.swapRTSDTR, "swap-rts-dtr", false,
		"swap which modem-control line drives RESET and which BOOT0")
	flags.BoolVar(&opts.resetActiveHigh, "reset-active-high", false, "invert RESET polarity")
	flags.BoolVar(&opts.boot0ActiveLow, "boot0-active-low", false, "invert BOOT0 polarity")
	flags.StringVar(&opts.resetPin, "reset-pin", "",
		"drive RESET from this GPIO pin instead of a modem-control line")
	flags.StringVar(&opts.boot0Pin, "boot0-pin", "",
		"drive BOOT0 from this GPIO pin instead of a modem-control line")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")
	flags.BoolVar(&opts.verbose, "verbose", false, "enable debug output")
}

func run(cmd *cobra.Command, args []string) error {
	logrus.SetOutput(os.Stderr)
	if opts.verbose {
		logrus.SetLevel(logrus.DebugLevel)
		stm32loader.SetDebug(true)
	}

	if opts.port == "" {
		opts.port = os.Getenv("STM32LOADER_SERIAL_PORT")
	}
	if opts.port == "" {
		return fmt.Errorf("no serial port given; use --port or $STM32LOADER_SERIAL_PORT")
	}
	if opts.family == "" {
		opts.family = os.Getenv("STM32LOADER_FAMILY")
	}
	family := parseFamily(opts.family)

	dataFile := ""
	if len(args) == 1 {
		dataFile = args[0]
	}
	if (opts.write || opts.verify || opts.read) && dataFile == "" {
		return fmt.Errorf("a data file is required for --write, --verify and --read")
	}

	length := 0
	if opts.length != "" {
		value, err := parseAddress(opts.length)
		if err != nil {
			return fmt.Errorf("bad --length: %w", err)
		}
		length = int(value)
	}
	if opts.read && length == 0 && !opts.write {
		return fmt.Errorf("--read needs --length")
	}

	address, err := parseAddress(opts.address)
	if err != nil {
		return fmt.Errorf("bad --address: %w", err)
	}

	link, err := buildLink(family)
	if err != nil {
		return err
	}
	if err := link.Open(); err != nil {
		logrus.Error("Is the device connected and powered correctly?")
		logrus.Error("Use --port to select the serial port, e.g. --port /dev/ttyUSB0")
		return err
	}
	defer link.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loaderOpts := []stm32loader.Option{stm32loader.WithFamily(family)}
	if !opts.noProgress {
		loaderOpts = append(loaderOpts, stm32loader.WithProgress(newProgressBar()))
	}
	loader, err := stm32loader.New(link, loaderOpts...)
	if err != nil {
		return err
	}

	logrus.Info("Activating bootloader (select UART)")
	if err := loader.ResetFromSystemMemory(); err != nil {
		logrus.Error("Can't init into bootloader. Ensure BOOT0 is enabled and reset the device.")
		_ = loader.ResetFromFlash()
		return err
	}
	// leave the target running user code when we are done
	defer func() { _ = loader.ResetFromFlash() }()

	if err := printDeviceInfo(loader, family); err != nil {
		return err
	}
	return performCommands(ctx, cmd, loader, address, length, dataFile)
}

// buildLink assembles the serial link, optionally decorated with GPIO
// RESET/BOOT0 for single-board computers.
func buildLink(family stm32loader.Family) (stm32loader.ByteLink, error) {
	parity := serial.ParityEven
	if family.NoParity() {
		parity = serial.ParityNone
	}
	switch strings.ToLower(opts.parity) {
	case "":
	case "even":
		parity = serial.ParityEven
	case "none":
		parity = serial.ParityNone
	default:
		return nil, fmt.Errorf("bad --parity %q: want even or none", opts.parity)
	}

	var link stm32loader.ByteLink = serial.New(serial.Config{
		Port:            opts.port,
		BaudRate:        opts.baud,
		Parity:          parity,
		SwapRTSDTR:      opts.swapRTSDTR,
		ResetActiveHigh: opts.resetActiveHigh,
		Boot0ActiveLow:  opts.boot0ActiveLow,
	})
	logrus.Debugf("open port %s, baud %d, parity %s", opts.port, opts.baud, parity)

	if opts.resetPin != "" || opts.boot0Pin != "" {
		if opts.resetPin == "" || opts.boot0Pin == "" {
			return nil, fmt.Errorf("--reset-pin and --boot0-pin must be given together")
		}
		return gpio.New(link, gpio.Config{
			ResetPin:        opts.resetPin,
			Boot0Pin:        opts.boot0Pin,
			ResetActiveHigh: opts.resetActiveHigh,
			Boot0ActiveLow:  opts.boot0ActiveLow,
		})
	}
	return link, nil
}

func printDeviceInfo(loader *stm32loader.Bootloader, family stm32loader.Family) error {
	device, err := loader.Identify()
	if err != nil {
		return err
	}
	logrus.Infof("Bootloader version: %s", device.VersionString())
	if device.Family == stm32loader.FamilyBlueNRG {
		logrus.Infof("Metal fix: 0x%X, mask set: 0x%X", device.MetalFix, device.MaskSet)
	}
	logrus.Infof("Chip id: 0x%03X (%s)", device.ProductID, stm32loader.ChipName(device.ProductID))

	if family == "" && device.Family == "" {
		logrus.Info("Supply --family to see flash size and device UID, e.g. -f F1")
		return nil
	}
	if size, err := loader.GetFlashSizeKiB(); err == nil {
		logrus.Infof("Flash size: %d KiB", size)
	} else {
		logrus.Debugf("flash size not available: %v", err)
	}
	if uid, err := loader.GetUID(); err == nil {
		logrus.Infof("Device UID: %s", stm32loader.FormatUID(uid))
	} else {
		logrus.Debugf("device UID not available: %v", err)
	}
	return nil
}

func performCommands(ctx context.Context, cmd *cobra.Command, loader *stm32loader.Bootloader, address uint32, length int, dataFile string) error {
	var firmware []byte
	if opts.write || opts.verify {
		start, data, err := loadFirmware(dataFile)
		if err != nil {
			return err
		}
		firmware = data
		if start != 0 && !cmd.Flags().Changed("address") {
			logrus.Debugf("using start address 0x%08X from hex file", start)
			address = start
		}
	}

	if opts.unprotect {
		if err := loader.ReadoutUnprotect(); err != nil {
			return fmt.Errorf("flash readout unprotect failed: %w", err)
		}
	}
	if opts.protect {
		if err := loader.ReadoutProtect(); err != nil {
			return fmt.Errorf("flash readout protect failed: %w", err)
		}
	}
	if opts.erase {
		var pages []int
		if length != 0 {
			var err error
			pages, err = loader.PagesFromRange(address, address+uint32(length))
			if err != nil {
				return err
			}
		}
		if err := loader.EraseMemory(pages); err != nil {
			return fmt.Errorf("erase failed -- possibly due to readout protection, "+
				"consider --unprotect: %w", err)
		}
	}
	if opts.write {
		if err := loader.WriteMemoryData(ctx, address, firmware); err != nil {
			return err
		}
	}
	if opts.verify {
		if err := loader.Verify(ctx, address, firmware); err != nil {
			return fmt.Errorf("verification FAILED: %w", err)
		}
		logrus.Info("Verification OK")
	}
	if opts.read && !opts.write {
		data, err := loader.ReadMemoryData(ctx, address, length)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dataFile, data, 0o644); err != nil {
			return fmt.Errorf("failed to store read data: %w", err)
		}
	}
	if opts.goAddress != "" {
		goAddress, err := parseAddress(opts.goAddress)
		if err != nil {
			return fmt.Errorf("bad --go-address: %w", err)
		}
		if err := loader.Go(goAddress); err != nil {
			return err
		}
	}
	return nil
}

// loadFirmware reads a firmware image: Intel HEX for .hex files, raw
// binary otherwise.
func loadFirmware(path string) (uint32, []byte, error) {
	if strings.HasSuffix(strings.ToLower(path), ".hex") {
		return hexfile.Load(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read firmware: %w", err)
	}
	return 0, data, nil
}

// parseFamily normalizes the user's family spelling, accepting the
// original loader's NRG alias for BlueNRG.
func parseFamily(s string) stm32loader.Family {
	switch strings.ToUpper(s) {
	case "":
		return ""
	case "NRG", "BLUENRG":
		return stm32loader.FamilyBlueNRG
	default:
		return stm32loader.Family(strings.ToUpper(s))
	}
}

// parseAddress accepts decimal and 0x-prefixed hexadecimal.
func parseAddress(s string) (uint32, error) {
	value, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(value), nil
}
