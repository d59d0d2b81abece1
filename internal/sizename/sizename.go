// Package sizename parses SizeFS filenames, which encode a file's logical
// byte count directly in the name (for example "128M-1B" or "4M+1B").
package sizename

import (
	"regexp"
	"strconv"
)

// grammar is the exact filename regex from the external interface: a number
// with an optional single decimal digit, an SI unit, and an optional signed
// second number+unit term.
var grammar = regexp.MustCompile(`^([0-9]+(\.[0-9])?)([EPTGMKB])(([+\-])(\d+)([EPTGMKB]))?$`)

// units maps each SI letter to its decimal byte multiplier. K is 1000, not
// 1024: these are decimal SI units, not binary ones.
var units = map[byte]int64{
	'B': 1,
	'K': 1_000,
	'M': 1_000_000,
	'G': 1_000_000_000,
	'T': 1_000_000_000_000,
	'P': 1_000_000_000_000_000,
	'E': 1_000_000_000_000_000_000,
}

// BadFilenameError reports a filename that does not match the size grammar.
type BadFilenameError struct {
	Name string
}

func (e *BadFilenameError) Error() string {
	return "sizename: bad filename: " + e.Name
}

// Parse decodes name into the byte count it encodes. A negative computed
// size clamps to 0, per the data model's invariant on file size.
func Parse(name string) (int64, error) {
	m := grammar.FindStringSubmatch(name)
	if m == nil {
		return 0, &BadFilenameError{Name: name}
	}

	size, err := parseTerm(m[1], m[3])
	if err != nil {
		return 0, &BadFilenameError{Name: name}
	}

	if m[4] != "" {
		delta, err := parseTerm(m[6], m[7])
		if err != nil {
			return 0, &BadFilenameError{Name: name}
		}
		if m[5] == "-" {
			size -= delta
		} else {
			size += delta
		}
	}

	if size < 0 {
		size = 0
	}
	return size, nil
}

func parseTerm(number string, unit string) (int64, error) {
	mult, ok := units[unit[0]]
	if !ok {
		return 0, &BadFilenameError{Name: number + unit}
	}
	f, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, err
	}
	return int64(f * float64(mult)), nil
}
