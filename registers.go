// registers.go - Centralized I/O register address map for the Phosphor Engine

/*
(c) 2025 - 2026 Phosphor Engine contributors
https://github.com/phosphorvm/PhosphorEngine
License: GPLv3 or later
*/

/*
registers.go - Master I/O Register Address Map

This file provides a centralized reference for all memory-mapped I/O regions
in the Phosphor Engine. Individual device implementations keep their detailed
constants next to their code; the map below is the single place where the
whole address space can be read at a glance.

MEMORY MAP OVERVIEW
===================

Address Range       Size    Device              File
---------------------------------------------------------------------------
0x00000-0xB7FFF     736KB   Main RAM            -
0xB8000-0xB8F9F     4000B   Text cell grid      console_surface.go
0xB8FA0-0xEFFFF             Main RAM            -
0xF0000-0xF000F     16B     Console registers   video_display.go
0xF00F4             4B      Debug exit port     debug_exit.go
0xF0100-0xF01FF     256B    Serial port         serial_port.go

The text cell grid is plain RAM, not an I/O region: the console writer
mutates it directly through the bound surface, exactly as text-mode video
hardware is driven by CPU stores. Everything under 0xF0000 dispatches to a
device handler.

Console registers (0xF0000-0xF000F) - video_display.go
  CON_CTRL bit 0 enables the display refresher, bit 1 enables the vblank
  interrupt. CON_STATUS bit 0 reports "vblank occurred since last read" and
  is cleared by the read. CON_COLS_REG and CON_ROWS_REG are read-only grid
  geometry.

Debug exit port (0xF00F4) - debug_exit.go
  The first value written becomes the machine exit code, transformed as
  (value << 1) | 1 so a clean host exit can never be confused with a guest
  exit. EXIT_CODE_SUCCESS and EXIT_CODE_FAILED are the conventional values.

Serial port (0xF0100-0xF01FF) - serial_port.go
  SERIAL_DATA transmits one byte to the host sink. SERIAL_STATUS bit 1 is
  transmit-ready. SERIAL_CTRL bit 0 gates transmission (enabled on reset).
*/

package main

// =============================================================================
// I/O Region Base Addresses and Boundaries
// =============================================================================

const (
	// Main I/O region boundaries
	IO_REGION_BASE = 0xF0000 // Start of I/O mapped region
	IO_REGION_END  = 0xF01FF // End of I/O mapped region

	// Console (display refresher) region
	CONSOLE_REGION_BASE = 0xF0000
	CONSOLE_REGION_END  = 0xF000F

	// Debug exit region (single register)
	DEBUG_REGION_BASE = 0xF00F4
	DEBUG_REGION_END  = 0xF00F7

	// Serial port region
	SERIAL_REGION_BASE = 0xF0100
	SERIAL_REGION_END  = 0xF01FF
)

// =============================================================================
// Text Grid Window
// =============================================================================

const (
	// Classic text-mode window address. The grid is TEXT_ROWS*TEXT_COLS
	// two-byte cells starting here; see console_constants.go for geometry.
	TEXT_WINDOW     = 0xB8000
	TEXT_WINDOW_END = TEXT_WINDOW + TEXT_PAGE_BYTES - 1
)

// =============================================================================
// Console Display Registers
// =============================================================================

const (
	CON_CTRL     = 0xF0000 // Bit 0: display enable, Bit 1: vblank IRQ enable
	CON_STATUS   = 0xF0004 // Bit 0: vblank since last read (read clears)
	CON_COLS_REG = 0xF0008 // Read-only: grid columns
	CON_ROWS_REG = 0xF000C // Read-only: grid rows
)

// =============================================================================
// Debug Exit Port
// =============================================================================

const (
	DEBUG_EXIT_PORT = 0xF00F4 // Write exit code to stop the machine

	EXIT_CODE_SUCCESS = 0x10 // Guest-side pass code
	EXIT_CODE_FAILED  = 0x11 // Guest-side fail code
)

// =============================================================================
// Serial Port (diagnostic channel)
// =============================================================================

const (
	SERIAL_DATA   = 0xF0100 // Write: transmit byte to host sink
	SERIAL_STATUS = 0xF0104 // Bit 1: transmit ready
	SERIAL_CTRL   = 0xF0108 // Bit 0: enable (reset state: enabled)
)

// =============================================================================
// Helper Functions
// =============================================================================

// IsIOAddress returns true if the address is in the I/O region
func IsIOAddress(addr uint32) bool {
	return addr >= IO_REGION_BASE && addr <= IO_REGION_END
}

// IsTextWindowAddress returns true if the address falls inside the text grid
func IsTextWindowAddress(addr uint32) bool {
	return addr >= TEXT_WINDOW && addr <= TEXT_WINDOW_END
}

// GetIORegion returns the device name for an I/O address
func GetIORegion(addr uint32) string {
	switch {
	case addr >= DEBUG_REGION_BASE && addr <= DEBUG_REGION_END:
		return "DebugExit"
	case addr >= CONSOLE_REGION_BASE && addr <= CONSOLE_REGION_END:
		return "Console"
	case addr >= SERIAL_REGION_BASE && addr <= SERIAL_REGION_END:
		return "Serial"
	default:
		return "Unknown"
	}
}
