package timeutils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const Day = 24 * time.Hour

var errOverflow = errors.New("duration out of range")

// positional fields, right to left
var positionalUnits = []time.Duration{time.Second, time.Minute, time.Hour, Day}

var taggedUnits = map[string]time.Duration{
	"d":  Day,
	"h":  time.Hour,
	"m":  time.Minute,
	"s":  time.Second,
	"ms": time.Millisecond,
}

// ParseDuration parses the elapsed time printed by the trainer. Two forms are
// accepted: positional "[D:]H:M:S[.frac]" (leading fields optional) and
// tagged "1d:2h:3m:4s.567ms" where any field may be omitted.
func ParseDuration(token string) (time.Duration, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if strings.ContainsAny(token, "dhms") {
		return parseTagged(token)
	}
	return parsePositional(token)
}

func parsePositional(token string) (time.Duration, error) {
	parts := strings.Split(token, ":")
	if len(parts) > len(positionalUnits) {
		return 0, fmt.Errorf("invalid duration %q: too many fields", token)
	}

	var total time.Duration
	for i := range parts {
		part := parts[len(parts)-1-i]
		if i > 0 && strings.Contains(part, ".") {
			return 0, fmt.Errorf("invalid duration %q: only seconds may have a fraction", token)
		}
		d, err := scale(part, positionalUnits[i])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", token, err)
		}
		if total, err = add(total, d); err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", token, err)
		}
	}
	return total, nil
}

func parseTagged(token string) (time.Duration, error) {
	var total time.Duration
	seen := make(map[string]bool)

	for _, part := range strings.Split(token, ":") {
		if part == "" {
			return 0, fmt.Errorf("invalid duration %q: empty field", token)
		}
		rest := part
		for rest != "" {
			n := strings.IndexFunc(rest, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
			if n <= 0 {
				return 0, fmt.Errorf("invalid duration %q: expected number in %q", token, part)
			}
			num := rest[:n]
			rest = rest[n:]

			u := strings.IndexFunc(rest, func(r rune) bool { return r < 'a' || r > 'z' })
			if u < 0 {
				u = len(rest)
			}
			name := rest[:u]
			rest = rest[u:]

			unit, ok := taggedUnits[name]
			if !ok {
				return 0, fmt.Errorf("invalid duration %q: unknown unit %q", token, name)
			}
			if seen[name] {
				return 0, fmt.Errorf("invalid duration %q: unit %q repeated", token, name)
			}
			seen[name] = true

			d, err := scale(num, unit)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", token, err)
			}
			if total, err = add(total, d); err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", token, err)
			}

			// "4s.567ms"
			rest = strings.TrimPrefix(rest, ".")
		}
	}
	return total, nil
}

// scale converts a decimal number of units into a duration without going
// through floating point.
func scale(num string, unit time.Duration) (time.Duration, error) {
	whole, frac, _ := strings.Cut(num, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("missing number")
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, fmt.Errorf("bad number %q", num)
	}

	var d time.Duration
	if whole != "" {
		w, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad number %q: %w", num, err)
		}
		if w > math.MaxInt64/int64(unit) {
			return 0, errOverflow
		}
		d = time.Duration(w) * unit
	}
	if frac != "" {
		if len(frac) > 9 {
			frac = frac[:9]
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad number %q: %w", num, err)
		}
		// f becomes the fraction in billionths
		for i := len(frac); i < 9; i++ {
			f *= 10
		}
		var part time.Duration
		if unit >= time.Second {
			part = time.Duration(f) * (unit / time.Second)
		} else {
			part = time.Duration(f) * unit / time.Second
		}
		return add(d, part)
	}
	return d, nil
}

// add sums two non-negative durations.
func add(a, b time.Duration) (time.Duration, error) {
	if a > math.MaxInt64-b {
		return 0, errOverflow
	}
	return a + b, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatSeconds renders d as a decimal number of seconds, e.g. "83.456".
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Second), 'f', -1, 64)
}

// Seconds parses a trainer duration token and renders it in seconds.
func Seconds(token string) (string, error) {
	d, err := ParseDuration(token)
	if err != nil {
		return "", err
	}
	return FormatSeconds(d), nil
}
