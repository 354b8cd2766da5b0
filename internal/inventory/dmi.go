package inventory

import (
	"bufio"
	"strings"
)

// The firmware-text payload is dmidecode output. Only the SMBIOS Type 17
// (Memory Device) blocks matter here: they carry the per-slot configured
// speed, which is more trustworthy than what lshw reports.

// MemorySpeedsFromFirmware parses dmidecode text and returns slot locator ->
// configured speed (MT/s). A block starts at a "Memory Device" line (but not
// "Memory Device Mapped Address") and ends at the next Handle line or a
// blank line once a locator was seen. The configured-speed field wins over
// the nominal Speed field.
func MemorySpeedsFromFirmware(text string) map[string]int {
	speeds := make(map[string]int)
	if text == "" {
		return speeds
	}

	var (
		inBlock bool
		slot    string
		speed   int
	)
	flush := func() {
		if slot != "" && speed > 0 {
			speeds[slot] = speed
		}
	}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		if strings.Contains(line, "Memory Device") && !strings.Contains(line, "Mapped") {
			inBlock = true
			slot = ""
			speed = 0
			continue
		}
		if inBlock && (strings.HasPrefix(line, "Handle ") || (line == "" && slot != "")) {
			flush()
			if strings.HasPrefix(line, "Handle ") {
				inBlock = false
			}
			continue
		}
		if !inBlock {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Locator:"):
			slot = strings.TrimSpace(strings.TrimPrefix(line, "Locator:"))
		case strings.HasPrefix(line, "Configured Memory Speed:"), strings.HasPrefix(line, "Configured Clock Speed:"):
			if n := speedValue(line); n > 0 {
				speed = n
			}
		case strings.HasPrefix(line, "Speed:") && speed == 0:
			// Nominal speed, used only when no configured speed was seen.
			if n := speedValue(line); n > 0 {
				speed = n
			}
		}
	}
	flush()

	return speeds
}

// speedValue pulls the number out of a "Key: 4800 MT/s" line.
func speedValue(line string) int {
	_, val, ok := strings.Cut(line, ":")
	if !ok {
		return 0
	}
	fields := strings.Fields(val)
	if len(fields) == 0 {
		return 0
	}
	return firstDigitRun(fields[0])
}
