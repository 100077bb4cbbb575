// Package classify decides whether a line of converter diagnostic output
// represents a genuine error or benign progress text.
//
// cwebp multiplexes statistics and errors onto stderr, so the mere presence
// of diagnostic output is not an error signal.
package classify

import (
	"strconv"
	"strings"
)

// IsError reports whether a diagnostic line is a genuine error.
//
// Rule: take the last whitespace-delimited token of the line; if it contains
// a decimal point and parses as a floating-point number, the line is treated
// as a trailing statistic (e.g. a PSNR score) and is benign. Everything else,
// including empty lines, is an error.
//
// The rule misfires on error messages that happen to end in a decimal number
// and on benign messages that do not. Changing it would reclassify outputs
// that existing workflows already depend on, so it stays as-is.
func IsError(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	last := fields[len(fields)-1]
	if !strings.Contains(last, ".") {
		return true
	}
	if _, err := strconv.ParseFloat(last, 64); err != nil {
		return true
	}
	return false
}
