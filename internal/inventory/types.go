package inventory

// MemoryModule represents one populated DIMM slot
type MemoryModule struct {
	Slot        string  `json:"slot"`
	Description string  `json:"description,omitempty"`
	SizeGiB     float64 `json:"size_gib"`
	Vendor      string  `json:"vendor,omitempty"`
	Part        string  `json:"part_number,omitempty"`
	Serial      string  `json:"serial,omitempty"`
	ClockMHz    int     `json:"clock_mhz,omitempty"`
	WidthBits   int     `json:"width_bits,omitempty"`
}

// StorageDevice represents one physical or RAID-member disk
type StorageDevice struct {
	Name       string  `json:"name"`
	Model      string  `json:"model,omitempty"`
	Serial     string  `json:"serial,omitempty"`
	SizeGB     float64 `json:"size_gb"`
	Firmware   string  `json:"firmware,omitempty"`
	NUMANode   int     `json:"numa_node"`
	Kind       string  `json:"kind"` // block, raid_member, or source-reported type
	RAIDMember bool    `json:"raid_member"`
	RAIDName   string  `json:"raid_name,omitempty"`
	RAIDLevel  string  `json:"raid_level,omitempty"`
}

// NetworkPort represents one physical NIC port
type NetworkPort struct {
	Name        string `json:"name,omitempty"`
	MAC         string `json:"mac"`
	Vendor      string `json:"vendor,omitempty"`
	Product     string `json:"product,omitempty"`
	Description string `json:"description,omitempty"`
	BusInfo     string `json:"businfo,omitempty"`
	LinkSpeed   int    `json:"link_speed,omitempty"` // Mbps
	SRIOVMaxVF  int    `json:"sriov_max_vf,omitempty"`
	Firmware    string `json:"firmware,omitempty"`
	NUMANode    int    `json:"numa_node"`
}

// NetworkAdapterCard represents one physical adapter grouping its ports.
// Ports on the same card share the first five octets of their MAC address.
type NetworkAdapterCard struct {
	Model      string   `json:"model"`
	Ports      int      `json:"ports"`
	MACs       []string `json:"macs"`
	SRIOVMaxVF int      `json:"sriov_max_vf,omitempty"`
	NUMANode   int      `json:"numa_node"`
}

// PciDevice represents one network or storage device on the expansion bus
type PciDevice struct {
	Vendor    string `json:"vendor,omitempty"`
	VendorID  string `json:"vendor_id,omitempty"`
	Product   string `json:"product,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	Driver    string `json:"driver,omitempty"`
	NUMANode  int    `json:"numa_node"`
	Address   string `json:"pci_address,omitempty"`
	Category  string `json:"category"` // network or storage
}

// NumaNode represents one memory/CPU locality domain
type NumaNode struct {
	Index    int   `json:"index"`
	MemoryMB int64 `json:"memory_mb"`
	Cores    []int `json:"cores"`
}

// Inventory is the consolidated per-machine hardware inventory produced by
// the merger from all usable sources.
type Inventory struct {
	Memory       []MemoryModule       `json:"memory"`
	Storage      []StorageDevice      `json:"storage"`
	Ports        []NetworkPort        `json:"network_ports"`
	AdapterCards []NetworkAdapterCard `json:"adapter_cards"`
	PciNetwork   []PciDevice          `json:"pci_network"`
	PciStorage   []PciDevice          `json:"pci_storage"`
	NumaNodes    []NumaNode           `json:"numa_nodes"`
}
