package inventory

import "math"

// Memory capacity is conventionally binary (GiB), storage capacity is
// conventionally decimal (GB). Both conversions round to one decimal place.

// MemSizeGiB converts a raw memory size with an lshw-style units attribute
// to gibibytes. Unknown units are treated as bytes.
func MemSizeGiB(raw int64, units string) float64 {
	if raw <= 0 {
		return 0
	}
	var gib float64
	switch units {
	case "KiB":
		gib = float64(raw) / (1024 * 1024)
	case "MiB":
		gib = float64(raw) / 1024
	case "GiB":
		gib = float64(raw)
	default: // bytes
		gib = float64(raw) / (1024 * 1024 * 1024)
	}
	return round1(gib)
}

// MebibytesToGiB converts a size reported in MiB (machine-resources DIMM
// entries) to gibibytes.
func MebibytesToGiB(mib int64) float64 {
	if mib <= 0 {
		return 0
	}
	return round1(float64(mib) / 1024)
}

// StorageSizeGB converts a byte count to decimal gigabytes.
func StorageSizeGB(bytes int64) float64 {
	if bytes <= 0 {
		return 0
	}
	return round1(float64(bytes) / 1e9)
}

// WidthBits normalizes a data width with an lshw-style units attribute to
// bits.
func WidthBits(raw int64, units string) int {
	if raw <= 0 {
		return 0
	}
	if units == "bytes" {
		return int(raw) * 8
	}
	return int(raw)
}

// ClockMHz normalizes a clock figure that may be reported in Hz or MHz.
// Values above 100000 are assumed to be Hz.
func ClockMHz(raw int64) int {
	if raw <= 0 {
		return 0
	}
	if raw > 100000 {
		return int(raw / 1_000_000)
	}
	return int(raw)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// joinDigits concatenates every digit in s into one number. Returns 0 when
// s carries no digits.
func joinDigits(s string) int64 {
	var n int64
	seen := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n = n*10 + int64(r-'0')
			seen = true
		}
	}
	if !seen {
		return 0
	}
	return n
}

// firstDigitRun returns the first contiguous run of digits in s, or 0 when
// there is none.
func firstDigitRun(s string) int {
	n := 0
	seen := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
			seen = true
		} else if seen {
			break
		}
	}
	return n
}
