package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const dmiFixture = `# dmidecode 3.3
Getting SMBIOS data from sysfs.

Handle 0x1100, DMI type 17, 84 bytes
Memory Device
	Array Handle: 0x1000
	Size: 16 GB
	Form Factor: DIMM
	Locator: CPU0_DIMM_A1
	Bank Locator: P0 CHANNEL A
	Type: DDR5
	Speed: 5600 MT/s
	Manufacturer: SK Hynix
	Configured Memory Speed: 4800 MT/s

Handle 0x1101, DMI type 17, 84 bytes
Memory Device
	Size: 16 GB
	Locator: CPU0_DIMM_B1
	Speed: 4400 MT/s

Handle 0x1102, DMI type 17, 84 bytes
Memory Device
	Size: No Module Installed
	Locator: CPU0_DIMM_C1
	Speed: Unknown

Handle 0x2000, DMI type 20, 35 bytes
Memory Device Mapped Address
	Starting Address: 0x00000000000
	Physical Device Handle: 0x1100
`

func TestMemorySpeedsFromFirmware(t *testing.T) {
	speeds := MemorySpeedsFromFirmware(dmiFixture)

	// The configured speed wins over the nominal speed.
	assert.Equal(t, 4800, speeds["CPU0_DIMM_A1"])

	// Only the nominal speed present.
	assert.Equal(t, 4400, speeds["CPU0_DIMM_B1"])

	// Empty slot with Speed: Unknown contributes nothing.
	_, ok := speeds["CPU0_DIMM_C1"]
	assert.False(t, ok)

	// The mapped-address block is not a memory device.
	assert.Len(t, speeds, 2)
}

func TestMemorySpeedsFromFirmwareEmpty(t *testing.T) {
	assert.Empty(t, MemorySpeedsFromFirmware(""))
	assert.Empty(t, MemorySpeedsFromFirmware("random text\nno devices here\n"))
}

func TestSpeedValue(t *testing.T) {
	assert.Equal(t, 4800, speedValue("Configured Memory Speed: 4800 MT/s"))
	assert.Equal(t, 5600, speedValue("Speed: 5600 MT/s"))
	assert.Equal(t, 0, speedValue("Speed: Unknown"))
	assert.Equal(t, 0, speedValue("no separator"))
}
