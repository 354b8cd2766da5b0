package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeMemoryTreeWins(t *testing.T) {
	tree := []MemoryModule{{Slot: "CPU0_DIMM_A1", SizeGiB: 16}}
	res := []MemoryModule{{Slot: "DIMM_A1", SizeGiB: 32}, {Slot: "DIMM_B1", SizeGiB: 32}}

	merged := MergeMemory(tree, res, nil)
	require.Len(t, merged, 1)
	assert.Equal(t, "CPU0_DIMM_A1", merged[0].Slot)
}

func TestMergeMemoryResourcesFallback(t *testing.T) {
	res := []MemoryModule{{Slot: "DIMM_A1", SizeGiB: 32}}
	merged := MergeMemory(nil, res, nil)
	require.Len(t, merged, 1)
	assert.Equal(t, 32.0, merged[0].SizeGiB)
}

func TestMergeMemoryDefensiveExclusion(t *testing.T) {
	tree := []MemoryModule{
		{Slot: "CPU0_DIMM_A1", SizeGiB: 16},
		{Slot: "Internal", Description: "L1 cache", SizeGiB: 0.1},
		{Slot: "DIMM_X", Description: "System Board Or Motherboard", SizeGiB: 512},
		{Slot: "DIMM_Y", SizeGiB: 0},
	}
	merged := MergeMemory(tree, nil, nil)
	require.Len(t, merged, 1)
	assert.Equal(t, "CPU0_DIMM_A1", merged[0].Slot)
}

func TestMergeMemoryFirmwareSpeeds(t *testing.T) {
	tree := []MemoryModule{
		{Slot: "CPU0_DIMM_A1", SizeGiB: 16, ClockMHz: 5600},
		{Slot: "DIMM_B1", SizeGiB: 16},
		{Slot: "CPU9_DIMM_Z9", SizeGiB: 16, ClockMHz: 5600},
	}
	speeds := map[string]int{
		"CPU0_DIMM_A1": 4800, // exact match, overrides the tree figure
		"CPU0_DIMM_B1": 4400, // substring match against the trimmed slot
	}

	merged := MergeMemory(tree, nil, speeds)
	require.Len(t, merged, 3)
	assert.Equal(t, 4800, merged[0].ClockMHz)
	assert.Equal(t, 4400, merged[1].ClockMHz)
	assert.Equal(t, 5600, merged[2].ClockMHz) // no match, tree figure kept
}

func TestMergeStorageDedup(t *testing.T) {
	blocks := []StorageDevice{
		{Name: "nvme0n1", Serial: "S1", SizeGB: 1920.4, Kind: "block"},
	}
	raid := []StorageDevice{
		{Name: "sdx", Serial: "S1", Kind: "raid_member"}, // same disk seen through RAID
		{Name: "sdy", Serial: "S2", Kind: "raid_member", RAIDMember: true},
	}
	res := []StorageDevice{
		{Name: "nvme0n1", Serial: "S1", Kind: "nvme"},
		{Name: "sdz", Serial: "", Kind: "disk"}, // serial-less, identity by name
		{Name: "sdz", Serial: "", Kind: "disk"},
	}

	merged := MergeStorage(blocks, raid, res)
	require.Len(t, merged, 3)
	// First source claiming a serial wins.
	assert.Equal(t, "block", merged[0].Kind)
	assert.Equal(t, "S2", merged[1].Serial)
	assert.True(t, merged[1].RAIDMember)
	assert.Equal(t, "sdz", merged[2].Name)
}

func TestEnrichPorts(t *testing.T) {
	ports := []NetworkPort{
		{Name: "enp12s0np0", MAC: "A0:88:C2:11:22:33", Vendor: "--"},
		{Name: "eno1", MAC: "3c:ec:ef:44:55:66", Product: "existing product"},
	}
	tree := []NetworkPort{
		{MAC: "a0:88:c2:11:22:33", Vendor: "Mellanox Technologies", Product: "ConnectX-7", BusInfo: "pci@0000:0c:00.0"},
		{MAC: "3c:ec:ef:44:55:66", Product: "tree product"},
	}

	out := EnrichPorts(ports, tree)
	require.Len(t, out, 2)

	// "--" counts as blank and gets replaced; matching is case-insensitive.
	assert.Equal(t, "Mellanox Technologies", out[0].Vendor)
	assert.Equal(t, "ConnectX-7", out[0].Product)
	assert.Equal(t, "pci@0000:0c:00.0", out[0].BusInfo)

	// Existing values are never overwritten.
	assert.Equal(t, "existing product", out[1].Product)
}

func TestGroupAdapterCards(t *testing.T) {
	ports := []NetworkPort{
		{MAC: "a0:88:c2:11:22:34", Vendor: "Mellanox Technologies", Product: "ConnectX-7", SRIOVMaxVF: 8, NUMANode: 0},
		{MAC: "a0:88:c2:11:22:33", Vendor: "Mellanox Technologies", Product: "ConnectX-7", SRIOVMaxVF: 16, NUMANode: 0},
		{MAC: "3c:ec:ef:44:55:66", Vendor: "Intel", Product: "Intel I350", NUMANode: 1},
		{MAC: "bad", Vendor: "Weird", Product: "NIC"},
	}

	cards := GroupAdapterCards(ports)
	require.Len(t, cards, 3)

	// Two ports share the five-octet prefix and collapse into one card.
	assert.Equal(t, 2, cards[0].Ports)
	assert.Equal(t, []string{"a0:88:c2:11:22:33", "a0:88:c2:11:22:34"}, cards[0].MACs)
	assert.Equal(t, 16, cards[0].SRIOVMaxVF)
	assert.Equal(t, "Mellanox Technologies ConnectX-7", cards[0].Model)

	// Vendor already embedded in the product name is not repeated.
	assert.Equal(t, "Intel I350", cards[1].Model)
	assert.Equal(t, 1, cards[1].Ports)

	// A MAC too short for a prefix becomes a single-port card at the end.
	assert.Equal(t, 1, cards[2].Ports)
	assert.Equal(t, []string{"bad"}, cards[2].MACs)
}

func TestGroupAdapterCardsPortCountPreserved(t *testing.T) {
	ports := []NetworkPort{
		{MAC: "a0:88:c2:11:22:33"},
		{MAC: "a0:88:c2:11:22:34"},
		{MAC: "a0:88:c2:99:88:77"},
	}
	cards := GroupAdapterCards(ports)
	total := 0
	for _, c := range cards {
		total += c.Ports
	}
	assert.Equal(t, len(ports), total)
}

func TestSplitPciByCategory(t *testing.T) {
	devs := []PciDevice{
		{Product: "nic", Category: "network"},
		{Product: "hba", Category: "storage"},
		{Product: "vga", Category: "display"},
	}
	network, storage := SplitPciByCategory(devs)
	require.Len(t, network, 1)
	require.Len(t, storage, 1)
	assert.Equal(t, "nic", network[0].Product)
	assert.Equal(t, "hba", storage[0].Product)
}
