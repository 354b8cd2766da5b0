package inventory

import (
	"sort"

	"github.com/tidwall/gjson"
)

// The fleet-inventory record is the machine document from the fleet
// management service: block-device, RAID-set, interface, and NUMA-node
// lists. It is the primary source for storage and network ports.

// PortsFromMachine extracts physical NIC ports from the machine record's
// interface list. Virtual interfaces (bonds, bridges, VLANs) are skipped.
func PortsFromMachine(machine gjson.Result) []NetworkPort {
	var ports []NetworkPort
	machine.Get("interface_set").ForEach(func(_, iface gjson.Result) bool {
		if iface.Get("type").String() != "physical" {
			return true
		}
		ports = append(ports, NetworkPort{
			Name:       iface.Get("name").String(),
			MAC:        iface.Get("mac_address").String(),
			Vendor:     iface.Get("vendor").String(),
			Product:    iface.Get("product").String(),
			LinkSpeed:  int(iface.Get("link_speed").Int()),
			SRIOVMaxVF: int(iface.Get("sriov_max_vf").Int()),
			Firmware:   iface.Get("firmware_version").String(),
			NUMANode:   numaOrUnknown(iface, "numa_node"),
		})
		return true
	})
	return ports
}

// BlockDevicesFromMachine extracts the directly visible physical block
// devices. This is the highest-priority storage source.
func BlockDevicesFromMachine(machine gjson.Result) []StorageDevice {
	var devs []StorageDevice
	machine.Get("physicalblockdevice_set").ForEach(func(_, bd gjson.Result) bool {
		devs = append(devs, StorageDevice{
			Name:     bd.Get("name").String(),
			Model:    bd.Get("model").String(),
			Serial:   bd.Get("serial").String(),
			SizeGB:   StorageSizeGB(bd.Get("size").Int()),
			Firmware: bd.Get("firmware_version").String(),
			NUMANode: numaOrUnknown(bd, "numa_node"),
			Kind:     "block",
		})
		return true
	})
	return devs
}

// RAIDMembersFromMachine extracts member and spare disks from the machine
// record's RAID sets, tagged with their group name and level.
func RAIDMembersFromMachine(machine gjson.Result) []StorageDevice {
	raids := machine.Get("raid_set")
	if !raids.Exists() {
		raids = machine.Get("raids")
	}

	var devs []StorageDevice
	raids.ForEach(func(_, raid gjson.Result) bool {
		name := raid.Get("name").String()
		level := raid.Get("level").String()
		member := func(_, m gjson.Result) bool {
			devs = append(devs, StorageDevice{
				Name:       m.Get("name").String(),
				Model:      m.Get("model").String(),
				Serial:     m.Get("serial").String(),
				SizeGB:     StorageSizeGB(m.Get("size").Int()),
				Firmware:   m.Get("firmware_version").String(),
				NUMANode:   numaOrUnknown(m, "numa_node"),
				Kind:       "raid_member",
				RAIDMember: true,
				RAIDName:   name,
				RAIDLevel:  level,
			})
			return true
		}
		raid.Get("devices").ForEach(member)
		raid.Get("spare_devices").ForEach(member)
		return true
	})
	return devs
}

// NumaFromMachine extracts the NUMA topology, sorted by node index.
func NumaFromMachine(machine gjson.Result) []NumaNode {
	var nodes []NumaNode
	machine.Get("numanode_set").ForEach(func(_, n gjson.Result) bool {
		node := NumaNode{
			Index:    numaOrUnknown(n, "index"),
			MemoryMB: n.Get("memory").Int(),
		}
		n.Get("cores").ForEach(func(_, c gjson.Result) bool {
			node.Cores = append(node.Cores, int(c.Int()))
			return true
		})
		nodes = append(nodes, node)
		return true
	})
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Index < nodes[j].Index })
	return nodes
}
