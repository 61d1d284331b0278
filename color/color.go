// Package color converts between hex color notation used by book files and
// RGBA values.
package color

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned when color text could not be parsed.
var ErrInvalidFormat = errors.New("invalid color format")

// RGBA is a non-premultiplied 8-bit color.
type RGBA struct {
	R, G, B, A uint8
}

var (
	Black = RGBA{A: 0xFF}
	White = RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// Opaque reports whether alpha channel is fully set.
func (c RGBA) Opaque() bool {
	return c.A == 0xFF
}

// String returns canonical hex notation, see Format.
func (c RGBA) String() string {
	return Format(c)
}

// Parse accepts "#RGB", "#RRGGBB" and "#AARRGGBB" (case insensitive). When
// requireHash is false leading '#' is optional.
func Parse(text string, requireHash bool) (RGBA, error) {
	payload, found := strings.CutPrefix(text, "#")
	if !found && requireHash {
		return RGBA{}, fmt.Errorf("%w: color needs to start with #: %q", ErrInvalidFormat, text)
	}

	switch len(payload) {
	case 3, 6, 8:
	default:
		return RGBA{}, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}

	v, err := strconv.ParseUint(payload, 16, 32)
	if err != nil {
		return RGBA{}, fmt.Errorf("%w: %q", ErrInvalidFormat, text)
	}

	switch len(payload) {
	case 3:
		// every nibble is duplicated: #abc -> #aabbcc
		return RGBA{
			R: uint8(v>>8&0xF) * 0x11,
			G: uint8(v>>4&0xF) * 0x11,
			B: uint8(v&0xF) * 0x11,
			A: 0xFF,
		}, nil
	case 6:
		return RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
	default:
		return RGBA{A: uint8(v >> 24), R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
	}
}

// TryParse is Parse which reports success instead of returning error.
func TryParse(text string, requireHash bool) (RGBA, bool) {
	c, err := Parse(text, requireHash)
	if err != nil {
		return RGBA{}, false
	}
	return c, true
}

// Format produces "#RRGGBB" for opaque colors and "#AARRGGBB" otherwise,
// always in upper case.
func Format(c RGBA) string {
	if c.Opaque() {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.A, c.R, c.G, c.B)
}
