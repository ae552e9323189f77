// Package metron converts human-readable byte quantities, as emitted by
// container runtimes ("1.2MB", "617kB", "0B"), into exact integer byte
// counts.
package metron

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// multipliers maps a unit suffix to its byte multiplier. Decimal units are
// 1000-based, the explicit IEC units are 1024-based.
var multipliers = map[string]float64{
	"":    1,
	"B":   1,
	"kB":  1e3,
	"KB":  1e3,
	"K":   1e3,
	"MB":  1e6,
	"M":   1e6,
	"GB":  1e9,
	"G":   1e9,
	"TB":  1e12,
	"T":   1e12,
	"KiB": 1 << 10,
	"MiB": 1 << 20,
	"GiB": 1 << 30,
	"TiB": 1 << 40,
}

// Quantity is the result of parsing one byte-quantity string.
type Quantity struct {
	Bytes int64
	Unit  string
	// UnknownUnit is set when the suffix was not recognized and the raw
	// number was taken as bytes. Callers should log this at warning level.
	UnknownUnit bool
}

// ParseByteQuantity parses strings of the form "<number><optional unit>",
// tolerating surrounding whitespace and a fractional numeric part. The
// result is rounded half-up to the nearest byte. An unrecognized unit is
// not an error: the multiplier defaults to 1 and UnknownUnit is set.
func ParseByteQuantity(s string) (Quantity, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Quantity{}, fmt.Errorf("empty byte quantity")
	}

	split := len(trimmed)
	seenDot := false
	for i, r := range trimmed {
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '.' && !seenDot {
			seenDot = true
			continue
		}
		split = i
		break
	}

	numPart := trimmed[:split]
	unit := strings.TrimSpace(trimmed[split:])
	if numPart == "" {
		return Quantity{}, fmt.Errorf("byte quantity %q has no numeric part", s)
	}

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid byte quantity %q: %w", s, err)
	}

	mult, known := multipliers[unit]
	if !known {
		mult = 1
	}

	return Quantity{
		Bytes:       int64(math.Floor(value*mult + 0.5)),
		Unit:        unit,
		UnknownUnit: !known && unit != "",
	}, nil
}
