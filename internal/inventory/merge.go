package inventory

import (
	"sort"
	"strings"
)

// Cross-source merger. Each entity kind has a fixed source-priority order;
// the first source to claim an identity key wins, and lower-priority sources
// may only fill fields the record does not already carry.

// Defensive exclusion list applied after merging; extractors already filter,
// but a record slipping through from any source must still never reach the
// inventory (the "l1 "-style entries carry a trailing space to avoid
// matching part numbers).
var mergedDimmExclude = []string{"cache", "l1 ", "l2 ", "l3 ", "system board", "motherboard"}

// MergeMemory reconciles DIMM lists. The hardware tree is the primary
// source; the resource document is consulted only when the tree yielded
// nothing. Firmware-decoder speeds override both, matched by slot locator.
func MergeMemory(tree, resources []MemoryModule, speeds map[string]int) []MemoryModule {
	dimms := tree
	if len(dimms) == 0 {
		dimms = resources
	}

	var out []MemoryModule
	for _, d := range dimms {
		if d.SizeGiB <= 0 {
			continue
		}
		slot := strings.ToLower(d.Slot)
		desc := strings.ToLower(d.Description)
		excluded := false
		for _, kw := range mergedDimmExclude {
			if strings.Contains(slot, kw) || strings.Contains(desc, kw) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		if mhz, ok := firmwareSpeed(d.Slot, speeds); ok {
			d.ClockMHz = mhz
		}
		out = append(out, d)
	}
	return out
}

// firmwareSpeed looks up a slot's configured speed, trying an exact locator
// match first and falling back to substring matching either way (the fleet
// service sometimes trims slot names).
func firmwareSpeed(slot string, speeds map[string]int) (int, bool) {
	if slot == "" || len(speeds) == 0 {
		return 0, false
	}
	if mhz, ok := speeds[slot]; ok {
		return mhz, true
	}
	keys := make([]string, 0, len(speeds))
	for k := range speeds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(k, slot) || strings.Contains(slot, k) {
			return speeds[k], true
		}
	}
	return 0, false
}

// MergeStorage deduplicates storage devices across sources. Lists are given
// in priority order (direct block devices, then RAID members, then
// resource-document disks); the first occurrence of a serial wins, with the
// logical name as identity fallback for serial-less records.
func MergeStorage(lists ...[]StorageDevice) []StorageDevice {
	seen := make(map[string]bool)
	var out []StorageDevice
	for _, list := range lists {
		for _, d := range list {
			key := d.Serial
			if key == "" {
				key = "name:" + d.Name
			}
			if key != "" && key != "name:" {
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			out = append(out, d)
		}
	}
	return out
}

// EnrichPorts fills blank product/vendor fields of the fleet record's ports
// from hardware-tree NICs matched on MAC address. Existing values are never
// overwritten; a "--" vendor placeholder counts as blank.
func EnrichPorts(ports, treeNICs []NetworkPort) []NetworkPort {
	if len(treeNICs) == 0 {
		return ports
	}

	byMAC := make(map[string]NetworkPort, len(treeNICs))
	for _, n := range treeNICs {
		if mac := normalizeMAC(n.MAC); mac != "" {
			byMAC[mac] = n
		}
	}

	for i := range ports {
		src, ok := byMAC[normalizeMAC(ports[i].MAC)]
		if !ok {
			continue
		}
		if ports[i].Product == "" {
			ports[i].Product = src.Product
		}
		if ports[i].Vendor == "" || ports[i].Vendor == "--" {
			ports[i].Vendor = src.Vendor
		}
		if ports[i].Description == "" {
			ports[i].Description = src.Description
		}
		if ports[i].BusInfo == "" {
			ports[i].BusInfo = src.BusInfo
		}
	}
	return ports
}

func normalizeMAC(mac string) string {
	return strings.ToLower(strings.TrimSpace(mac))
}

// macPrefixLen covers the first five octets ("aa:bb:cc:dd:ee"); ports on
// the same physical card share that prefix.
const macPrefixLen = 14

// GroupAdapterCards groups NIC ports into physical adapter cards by MAC
// prefix. A port whose MAC is too short to carry five octets becomes a
// single-port card. Card order follows first appearance of each prefix.
func GroupAdapterCards(ports []NetworkPort) []NetworkAdapterCard {
	if len(ports) == 0 {
		return nil
	}

	groups := make(map[string][]NetworkPort)
	var order []string
	var singletons []NetworkPort
	for _, p := range ports {
		mac := normalizeMAC(p.MAC)
		if len(mac) < macPrefixLen {
			singletons = append(singletons, p)
			continue
		}
		prefix := mac[:macPrefixLen]
		if _, ok := groups[prefix]; !ok {
			order = append(order, prefix)
		}
		groups[prefix] = append(groups[prefix], p)
	}

	var cards []NetworkAdapterCard
	for _, prefix := range order {
		members := groups[prefix]
		rep := members[0]

		macs := make([]string, 0, len(members))
		maxVF := 0
		for _, p := range members {
			macs = append(macs, p.MAC)
			if p.SRIOVMaxVF > maxVF {
				maxVF = p.SRIOVMaxVF
			}
		}
		sort.Strings(macs)

		cards = append(cards, NetworkAdapterCard{
			Model:      cardModel(rep.Vendor, rep.Product),
			Ports:      len(members),
			MACs:       macs,
			SRIOVMaxVF: maxVF,
			NUMANode:   rep.NUMANode,
		})
	}
	for _, p := range singletons {
		cards = append(cards, NetworkAdapterCard{
			Model:      cardModel(p.Vendor, p.Product),
			Ports:      1,
			MACs:       []string{p.MAC},
			SRIOVMaxVF: p.SRIOVMaxVF,
			NUMANode:   p.NUMANode,
		})
	}
	return cards
}

// cardModel builds the card label, avoiding "Mellanox Mellanox ConnectX"
// style duplication when the vendor already appears in the product name.
func cardModel(vendor, product string) string {
	switch {
	case product != "" && vendor != "" && !strings.Contains(strings.ToLower(product), strings.ToLower(vendor)):
		return vendor + " " + product
	case product != "":
		return product
	case vendor != "":
		return vendor
	}
	return "--"
}

// SplitPciByCategory partitions PCI devices into the two retained
// categories.
func SplitPciByCategory(devs []PciDevice) (network, storage []PciDevice) {
	for _, d := range devs {
		switch d.Category {
		case "network":
			network = append(network, d)
		case "storage":
			storage = append(storage, d)
		}
	}
	return network, storage
}
