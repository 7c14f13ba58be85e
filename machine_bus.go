// machine_bus.go - Memory bus for the Phosphor Engine

/*
(c) 2025 - 2026 Phosphor Engine contributors
https://github.com/phosphorvm/PhosphorEngine
License: GPLv3 or later
*/

/*
machine_bus.go - Memory Bus for the Phosphor Engine

This module implements the memory bus that forms the backbone of the Phosphor
Engine's memory subsystem. It provides a unified interface for 8-bit and
16-bit memory operations, including both flat RAM access and memory-mapped
I/O. The machine is deliberately small: one megabyte of RAM, a text cell grid
near the top of conventional memory, and a handful of device registers above
it.

Core Features:

    1MB of main memory allocated as a contiguous block.
    Memory-mapped I/O via an I/O region mapping table keyed by 256-byte page.
    Little-endian read/write operations for 16-bit data.
    A lock-free page bitmap so plain RAM traffic never takes the mutex.
    Full memory reset capability to clear the entire memory state.

Technical Details:

    The MachineBus struct fulfils the Bus16 interface, encapsulating the main
    memory and a mapping of I/O regions.
    I/O regions are registered with a start and end address along with
    callback functions (onRead and onWrite) that intercept accesses; the
    shadow byte in RAM is updated as well so diagnostic dumps stay coherent.
    Page keys are calculated with PAGE_MASK (0xFFF00) and PAGE_SIZE (0x100).
    All accesses are total: out-of-bounds addresses log a warning and read as
    zero rather than faulting, because the machine has no trap mechanism and
    a guest must never be able to crash the host.
    Once the machine starts running, the mapping table is sealed; MapIO after
    that point is a host programming error and panics.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
)

const (
	RAM_SIZE  = 0x100000 // 1MB
	PAGE_SIZE = 0x100
	PAGE_MASK = 0xFFF00
)

type Bus16 interface {
	/*
		Bus16 defines the interface for memory operations within the
		Phosphor Engine. It provides methods to read and write 8-bit
		and 16-bit values as well as to reset the memory state.

		Implementations must ensure thread safety and support
		memory-mapped I/O.
	*/

	Read8(addr uint32) uint8
	Write8(addr uint32, value uint8)
	Read16(addr uint32) uint16
	Write16(addr uint32, value uint16)
	Reset()
	GetMemory() []byte
}

type MachineBus struct {
	/*
		MachineBus implements the Bus16 interface and serves as the
		primary memory bus for the Phosphor Engine.

		It maintains a contiguous block of main memory and a mapping
		of memory-mapped I/O regions. Thread safety is enforced via a
		mutex on the I/O dispatch path; plain RAM pages are identified
		through a lock-free bitmap and bypass it.
	*/

	memory  []byte
	mutex   sync.Mutex
	mapping map[uint32][]IORegion

	// Indexed by addr >> 8; true when the page has at least one I/O
	// mapping. Consulted without the mutex, written only before seal.
	ioPageBitmap []bool

	sealed atomic.Bool
}

type IORegion struct {
	/*
		IORegion represents a memory-mapped I/O region within the
		machine. Each region is defined by its start and end addresses
		and includes callback functions to handle read and write
		operations.

		These callbacks are invoked when a memory access falls within
		the region's boundaries.
	*/

	start   uint32
	end     uint32
	onRead  func(addr uint32) uint32
	onWrite func(addr uint32, value uint32)
}

func NewMachineBus() *MachineBus {
	/*
		NewMachineBus initialises and returns a new MachineBus
		instance with a zeroed 1MB block of main memory and an empty
		I/O mapping table.
	*/

	return &MachineBus{
		memory:       make([]byte, RAM_SIZE),
		mapping:      make(map[uint32][]IORegion),
		ioPageBitmap: make([]bool, RAM_SIZE/PAGE_SIZE),
	}
}

func (bus *MachineBus) MapIO(start, end uint32, onRead func(addr uint32) uint32, onWrite func(addr uint32, value uint32)) {
	/*
		MapIO registers a new memory-mapped I/O region with the bus.
		The region is specified by its start and end addresses and
		associated read/write callback functions.

		The region is appended to the mapping for every 256-byte page
		it spans. Mapping is only legal during machine construction;
		the bus is sealed when the machine starts running.
	*/

	if bus.sealed.Load() {
		panic(fmt.Sprintf("MapIO after seal: 0x%05X-0x%05X", start, end))
	}

	region := IORegion{
		start:   start,
		end:     end,
		onRead:  onRead,
		onWrite: onWrite,
	}
	firstPage := start & PAGE_MASK
	lastPage := end & PAGE_MASK
	for page := firstPage; page <= lastPage; page += PAGE_SIZE {
		bus.mapping[page] = append(bus.mapping[page], region)
		if int(page>>8) < len(bus.ioPageBitmap) {
			bus.ioPageBitmap[page>>8] = true
		}
	}
}

// Seal closes the mapping table. Called once when the machine starts.
func (bus *MachineBus) Seal() {
	bus.sealed.Store(true)
}

func (bus *MachineBus) Write8(addr uint32, value uint8) {
	if addr >= RAM_SIZE {
		fmt.Printf("Warning: Write8 to out-of-bounds address 0x%08X\n", addr)
		return
	}

	// Lock-free fast path for plain RAM pages.
	if !bus.ioPageBitmap[addr>>8] {
		bus.memory[addr] = value
		return
	}

	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	if regions, exists := bus.mapping[addr&PAGE_MASK]; exists {
		for _, region := range regions {
			if addr >= region.start && addr <= region.end && region.onWrite != nil {
				region.onWrite(addr, uint32(value))
				bus.memory[addr] = value
				return
			}
		}
	}

	bus.memory[addr] = value
}

func (bus *MachineBus) Read8(addr uint32) uint8 {
	if addr >= RAM_SIZE {
		fmt.Printf("Warning: Read8 from out-of-bounds address 0x%08X\n", addr)
		return 0
	}

	if !bus.ioPageBitmap[addr>>8] {
		return bus.memory[addr]
	}

	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	if regions, exists := bus.mapping[addr&PAGE_MASK]; exists {
		for _, region := range regions {
			if addr >= region.start && addr <= region.end && region.onRead != nil {
				value := uint8(region.onRead(addr))
				bus.memory[addr] = value
				return value
			}
		}
	}

	return bus.memory[addr]
}

func (bus *MachineBus) Write16(addr uint32, value uint16) {
	/*
		Write16 performs a 16-bit little-endian write. If the target
		address falls within a registered I/O region the onWrite
		callback receives the full value and the shadow bytes in RAM
		are updated; otherwise the value is stored directly. A write
		that would run past the end of RAM is ignored.
	*/

	if addr+1 >= RAM_SIZE {
		fmt.Printf("Warning: Write16 to out-of-bounds address 0x%08X\n", addr)
		return
	}

	if !bus.ioPageBitmap[addr>>8] {
		binary.LittleEndian.PutUint16(bus.memory[addr:addr+2], value)
		return
	}

	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	if regions, exists := bus.mapping[addr&PAGE_MASK]; exists {
		for _, region := range regions {
			if addr >= region.start && addr <= region.end && region.onWrite != nil {
				region.onWrite(addr, uint32(value))
				binary.LittleEndian.PutUint16(bus.memory[addr:addr+2], value)
				return
			}
		}
	}

	binary.LittleEndian.PutUint16(bus.memory[addr:addr+2], value)
}

func (bus *MachineBus) Read16(addr uint32) uint16 {
	/*
		Read16 performs a 16-bit little-endian read. If the address is
		within a registered I/O region and an onRead callback exists,
		the callback supplies the value; otherwise the bytes come
		straight from RAM. A read past the end of RAM returns zero.
	*/

	if addr+1 >= RAM_SIZE {
		fmt.Printf("Warning: Read16 from out-of-bounds address 0x%08X\n", addr)
		return 0
	}

	if !bus.ioPageBitmap[addr>>8] {
		return binary.LittleEndian.Uint16(bus.memory[addr : addr+2])
	}

	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	if regions, exists := bus.mapping[addr&PAGE_MASK]; exists {
		for _, region := range regions {
			if addr >= region.start && addr <= region.end && region.onRead != nil {
				value := uint16(region.onRead(addr))
				binary.LittleEndian.PutUint16(bus.memory[addr:addr+2], value)
				return value
			}
		}
	}

	return binary.LittleEndian.Uint16(bus.memory[addr : addr+2])
}

func (bus *MachineBus) Reset() {
	/*
		Reset clears the entire main memory of the bus in place. The
		backing array is never reallocated, so handles bound over RAM
		(the text surface) remain valid across a reset.
	*/

	bus.mutex.Lock()
	defer bus.mutex.Unlock()

	for i := range bus.memory {
		bus.memory[i] = 0
	}
}

// GetMemory exposes the backing RAM slice. The text surface binds over a
// window of it at construction time; see console_surface.go.
func (bus *MachineBus) GetMemory() []byte {
	return bus.memory
}
