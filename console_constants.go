// console_constants.go - Text grid geometry, colors and cell attributes

package main

import (
	"fmt"
	"strconv"
	"strings"
)

// Text grid geometry. The grid is a fixed window of two-byte cells in
// machine RAM at TEXT_WINDOW (see registers.go); it is never resized.
const (
	TEXT_COLS = 80
	TEXT_ROWS = 25

	CELL_SIZE       = 2 // glyph byte + attribute byte
	TEXT_PAGE_CELLS = TEXT_ROWS * TEXT_COLS
	TEXT_PAGE_BYTES = TEXT_PAGE_CELLS * CELL_SIZE
)

const (
	BLANK_GLYPH = 0x20 // space

	// Stored in place of any byte outside printable ASCII. The display
	// backends render it as a solid block.
	PLACEHOLDER_GLYPH = 0xFE

	// Printable ASCII range accepted verbatim by string writes.
	PRINTABLE_MIN = 0x20
	PRINTABLE_MAX = 0x7E
)

// Color is one entry of the classic 16-color text palette.
type Color uint8

const (
	COLOR_BLACK Color = iota
	COLOR_BLUE
	COLOR_GREEN
	COLOR_CYAN
	COLOR_RED
	COLOR_MAGENTA
	COLOR_BROWN
	COLOR_LIGHT_GRAY
	COLOR_DARK_GRAY
	COLOR_LIGHT_BLUE
	COLOR_LIGHT_GREEN
	COLOR_LIGHT_CYAN
	COLOR_LIGHT_RED
	COLOR_PINK
	COLOR_YELLOW
	COLOR_WHITE
)

var colorNames = map[string]Color{
	"black":      COLOR_BLACK,
	"blue":       COLOR_BLUE,
	"green":      COLOR_GREEN,
	"cyan":       COLOR_CYAN,
	"red":        COLOR_RED,
	"magenta":    COLOR_MAGENTA,
	"brown":      COLOR_BROWN,
	"lightgray":  COLOR_LIGHT_GRAY,
	"darkgray":   COLOR_DARK_GRAY,
	"lightblue":  COLOR_LIGHT_BLUE,
	"lightgreen": COLOR_LIGHT_GREEN,
	"lightcyan":  COLOR_LIGHT_CYAN,
	"lightred":   COLOR_LIGHT_RED,
	"pink":       COLOR_PINK,
	"yellow":     COLOR_YELLOW,
	"white":      COLOR_WHITE,
}

// ParseColor resolves a palette entry from a name like "lightgray" or a
// decimal index 0 through 15. Names are matched case-insensitively.
func ParseColor(s string) (Color, error) {
	if c, ok := colorNames[strings.ToLower(s)]; ok {
		return c, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n <= 15 {
		return Color(n), nil
	}
	return COLOR_BLACK, fmt.Errorf("unknown color %q", s)
}

// String returns the parseable lower-case name of the color.
func (c Color) String() string {
	for name, v := range colorNames {
		if v == c {
			return name
		}
	}
	return strconv.Itoa(int(c))
}

// Attr packs a foreground and background color into one byte, background in
// the high nibble. This is the attribute byte of a text-mode cell.
type Attr uint8

func MakeAttr(fg, bg Color) Attr {
	return Attr(uint8(bg)<<4 | uint8(fg)&0x0F)
}

func (a Attr) Foreground() Color {
	return Color(a & 0x0F)
}

func (a Attr) Background() Color {
	return Color(a >> 4)
}

// DEFAULT_ATTR is the power-on attribute: light gray on black.
var DEFAULT_ATTR = MakeAttr(COLOR_LIGHT_GRAY, COLOR_BLACK)

// Cell is one glyph+attribute pair at a grid position. The field order
// matches the in-RAM layout, glyph byte first, so a little-endian 16-bit
// read at the cell's address observes attr<<8 | glyph.
type Cell struct {
	Glyph byte
	Attr  Attr
}

// Word returns the cell as the 16-bit value a bus read would observe.
func (c Cell) Word() uint16 {
	return uint16(c.Attr)<<8 | uint16(c.Glyph)
}

// BlankCell returns the blank glyph carrying the given attribute.
func BlankCell(attr Attr) Cell {
	return Cell{Glyph: BLANK_GLYPH, Attr: attr}
}
