package inventory

import (
	"strings"

	"github.com/tidwall/gjson"
)

// The resource-enumeration payload is the machine-resources JSON document.
// Key names vary across producer versions, so fields are read through
// ordered candidate paths; gjson tolerates whatever shape shows up.

var dimmExclude = []string{"cache", "l1", "l2", "l3", "system board", "motherboard"}

// MemoryFromResources extracts DIMM entries from the resource document.
// DIMMs live either under per-NUMA-node containers (memory.nodes[].dimms[])
// or in a flat list (memory.dimms[]); the flat list is consulted only when
// the grouped layout yields nothing.
func MemoryFromResources(doc gjson.Result) []MemoryModule {
	var dimms []MemoryModule
	doc.Get("memory.nodes").ForEach(func(_, node gjson.Result) bool {
		node.Get("dimms").ForEach(func(_, d gjson.Result) bool {
			if m, ok := dimmFromEntry(d); ok {
				dimms = append(dimms, m)
			}
			return true
		})
		return true
	})
	if len(dimms) == 0 {
		doc.Get("memory.dimms").ForEach(func(_, d gjson.Result) bool {
			if m, ok := dimmFromEntry(d); ok {
				dimms = append(dimms, m)
			}
			return true
		})
	}
	return dimms
}

func dimmFromEntry(d gjson.Result) (MemoryModule, bool) {
	slot := firstString(d, "slot", "locator")
	desc := firstString(d, "type", "description")
	for _, kw := range dimmExclude {
		if strings.Contains(strings.ToLower(slot), kw) || strings.Contains(strings.ToLower(desc), kw) {
			return MemoryModule{}, false
		}
	}
	sizeMiB := d.Get("size").Int()
	if sizeMiB <= 0 {
		return MemoryModule{}, false
	}

	clock := d.Get("configured_speed").Int()
	if clock == 0 {
		clock = d.Get("speed").Int()
	}

	return MemoryModule{
		Slot:        slot,
		Description: desc,
		SizeGiB:     MebibytesToGiB(sizeMiB),
		Vendor:      d.Get("vendor").String(),
		Part:        d.Get("part_number").String(),
		Serial:      d.Get("serial").String(),
		ClockMHz:    int(clock),
		WidthBits:   int(d.Get("data_width").Int()),
	}, true
}

// StorageFromResources extracts disks from the resource document's storage
// section. These may include disks hidden behind RAID controllers that the
// fleet record cannot see.
func StorageFromResources(doc gjson.Result) []StorageDevice {
	var disks []StorageDevice
	doc.Get("storage.disks").ForEach(func(_, d gjson.Result) bool {
		kind := d.Get("type").String()
		if kind == "" {
			kind = "disk"
		}
		disks = append(disks, StorageDevice{
			Name:     firstString(d, "name", "device_name"),
			Model:    firstString(d, "model", "model_name"),
			Serial:   firstString(d, "serial", "serial_number"),
			SizeGB:   StorageSizeGB(d.Get("size").Int()),
			Firmware: firstString(d, "firmware_version", "firmware"),
			NUMANode: numaOrUnknown(d, "numa_node"),
			Kind:     kind,
		})
		return true
	})
	return disks
}

// Drivers that pin a PCI device to a category regardless of class code.
var networkDrivers = map[string]bool{
	"mlx5_core": true, "i40e": true, "ice": true, "bnxt_en": true,
	"igb": true, "ixgbe": true, "e1000": true,
}

var storageDrivers = map[string]bool{
	"nvme": true, "megaraid_sas": true, "mpt3sas": true, "ahci": true,
}

// PciFromResources extracts peripheral bus devices of interest from the
// resource document. Devices arrive either pre-categorized (network[] /
// storage[] arrays) or in flat pci[] arrays that need classification by
// class code, driver, or product keywords. Only network and storage
// categories are retained.
func PciFromResources(doc gjson.Result) []PciDevice {
	var out []PciDevice

	add := func(d gjson.Result, category string) {
		if category == "" {
			category = classifyPci(d)
		}
		if category != "network" && category != "storage" {
			return
		}
		out = append(out, normalizePci(d, category))
	}

	// network/storage may instead be dicts (cards/disks containers); only the
	// pre-categorized array layout contributes here.
	if v := doc.Get("network"); v.IsArray() {
		v.ForEach(func(_, d gjson.Result) bool { add(d, "network"); return true })
	}
	if v := doc.Get("storage"); v.IsArray() {
		v.ForEach(func(_, d gjson.Result) bool { add(d, "storage"); return true })
	}
	doc.Get("pci").ForEach(func(_, d gjson.Result) bool { add(d, ""); return true })
	doc.Get("resources.pci").ForEach(func(_, d gjson.Result) bool { add(d, ""); return true })

	return out
}

func classifyPci(d gjson.Result) string {
	class := strings.ToLower(firstString(d, "class", "pci_class", "class_id"))
	driver := strings.ToLower(d.Get("driver").String())
	product := strings.ToLower(firstString(d, "product", "device"))

	switch {
	case strings.Contains(class, "network"), strings.Contains(class, "ethernet"),
		strings.HasPrefix(class, "02"),
		networkDrivers[driver],
		strings.Contains(product, "ethernet"), strings.Contains(product, "connectx"),
		strings.Contains(product, "network"):
		return "network"
	case strings.Contains(class, "storage"), strings.Contains(class, "mass"),
		strings.Contains(class, "raid"), strings.Contains(class, "nvme"),
		strings.Contains(class, "sata"), strings.Contains(class, "sas"),
		strings.HasPrefix(class, "01"),
		storageDrivers[driver],
		strings.Contains(product, "nvme"), strings.Contains(product, "raid"),
		strings.Contains(product, "sas"), strings.Contains(product, "ssd"):
		return "storage"
	}
	return ""
}

func normalizePci(d gjson.Result, category string) PciDevice {
	dev := PciDevice{
		Vendor:    firstString(d, "vendor", "vendor_name", "subvendor"),
		VendorID:  d.Get("vendor_id").String(),
		Product:   firstString(d, "product", "product_name", "device"),
		ProductID: firstString(d, "product_id", "device_id"),
		Driver:    firstString(d, "driver", "driver_name", "module"),
		NUMANode:  numaOrUnknown(d, "numa_node", "numa"),
		Address:   firstString(d, "pci_address", "address", "bus_address", "id"),
		Category:  category,
	}
	dev.VendorID = cleanHexID(dev.VendorID)
	dev.ProductID = cleanHexID(dev.ProductID)
	return dev
}

// cleanHexID clears values that are really vendor names, keeping only
// plausible hex device ids.
func cleanHexID(v string) string {
	v = strings.TrimSpace(v)
	if len(v) <= 6 {
		return v
	}
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return ""
		}
	}
	return v
}

// firstString returns the first present, non-empty string among the
// candidate keys.
func firstString(d gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := d.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// numaOrUnknown reads a NUMA affinity, defaulting to -1 when absent.
func numaOrUnknown(d gjson.Result, keys ...string) int {
	for _, k := range keys {
		if v := d.Get(k); v.Exists() {
			return int(v.Int())
		}
	}
	return -1
}
