package inventory

import (
	"bytes"
	"encoding/xml"
	"regexp"
	"strconv"
	"strings"
)

// The hardware-tree payload is lshw XML: a nested <node> tree where each
// node carries an id, a class, and optional child elements. Depending on the
// capture path the document root is either <list> or a bare <node>, possibly
// preceded by non-XML noise.

type hwNode struct {
	ID            string      `xml:"id,attr"`
	Class         string      `xml:"class,attr"`
	Description   string      `xml:"description"`
	Slot          *string     `xml:"slot"`
	Size          *hwScalar   `xml:"size"`
	Width         *hwScalar   `xml:"width"`
	Clock         *hwScalar   `xml:"clock"`
	Vendor        string      `xml:"vendor"`
	Product       string      `xml:"product"`
	Serial        string      `xml:"serial"`
	LogicalNames  []string    `xml:"logicalname"`
	BusInfo       string      `xml:"businfo"`
	Configuration *hwSettings `xml:"configuration"`
	Children      []hwNode    `xml:"node"`
}

type hwScalar struct {
	Units string `xml:"units,attr"`
	Value string `xml:",chardata"`
}

type hwSettings struct {
	Settings []hwSetting `xml:"setting"`
}

type hwSetting struct {
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

// parseHardwareTree decodes the lshw XML payload into its top-level nodes.
// Returns nil on malformed or empty input; callers treat that as an empty
// contribution from this source.
func parseHardwareTree(raw []byte) []hwNode {
	raw = trimToMarkup(raw)
	if len(raw) == 0 {
		return nil
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "list":
			var doc struct {
				Nodes []hwNode `xml:"node"`
			}
			if err := dec.DecodeElement(&doc, &start); err != nil {
				return nil
			}
			return doc.Nodes
		case "node":
			var n hwNode
			if err := dec.DecodeElement(&n, &start); err != nil {
				return nil
			}
			return []hwNode{n}
		default:
			return nil
		}
	}
}

// trimToMarkup drops any leading noise before the first XML marker.
func trimToMarkup(raw []byte) []byte {
	for _, marker := range [][]byte{[]byte("<?xml"), []byte("<list"), []byte("<node")} {
		if idx := bytes.Index(raw, marker); idx >= 0 {
			return raw[idx:]
		}
	}
	return nil
}

// walkNodes visits every node in the tree, depth first.
func walkNodes(nodes []hwNode, fn func(*hwNode)) {
	for i := range nodes {
		fn(&nodes[i])
		walkNodes(nodes[i].Children, fn)
	}
}

var descExclude = []string{"cache", "system board", "motherboard"}

var slotKeywords = []string{"DIMM", "CPU", "MEM", "PROC", "BANK", "SLOT", "CHANNEL", "P0_", "P1_", "NODE"}

// MemoryFromTree extracts populated DIMM slots from the hardware tree.
// Cache, system-board, and aggregate controller nodes are excluded; a slot
// is accepted only when its size is positive.
func MemoryFromTree(raw []byte) []MemoryModule {
	nodes := parseHardwareTree(raw)
	if nodes == nil {
		return nil
	}

	var dimms []MemoryModule
	walkNodes(nodes, func(n *hwNode) {
		desc := strings.ToLower(n.Description)
		for _, kw := range descExclude {
			if strings.Contains(desc, kw) {
				return
			}
		}
		// Parent controller nodes aggregate their banks; skip them.
		if len(n.Children) > 0 {
			return
		}

		isBank := strings.HasPrefix(n.ID, "bank:")
		isMemSlot := n.Class == "memory" && n.Slot != nil && n.Size != nil
		isMemNumbered := n.Class == "memory" && strings.Contains(n.ID, ":") && n.Size != nil
		if !isBank && !isMemSlot && !isMemNumbered {
			return
		}

		slot := ""
		if n.Slot != nil {
			slot = strings.TrimSpace(*n.Slot)
		}
		if slot != "" && !slotLooksLikeDIMM(slot) {
			return
		}

		size := 0.0
		if n.Size != nil {
			if raw, err := strconv.ParseInt(strings.TrimSpace(n.Size.Value), 10, 64); err == nil {
				size = MemSizeGiB(raw, n.Size.Units)
			}
		}
		if size <= 0 {
			return
		}

		width := 0
		if n.Width != nil {
			if raw, err := strconv.ParseInt(strings.TrimSpace(n.Width.Value), 10, 64); err == nil {
				width = WidthBits(raw, n.Width.Units)
			}
		}

		dimms = append(dimms, MemoryModule{
			Slot:        slot,
			Description: strings.TrimSpace(n.Description),
			SizeGiB:     size,
			Vendor:      strings.TrimSpace(n.Vendor),
			Part:        strings.TrimSpace(n.Product),
			Serial:      strings.TrimSpace(n.Serial),
			ClockMHz:    dimmClock(n),
			WidthBits:   width,
		})
	})
	return dimms
}

func slotLooksLikeDIMM(slot string) bool {
	upper := strings.ToUpper(slot)
	for _, kw := range slotKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// The clock figure hides in several places depending on the lshw version.
// Each strategy is tried in order; the first hit wins and later strategies
// are never consulted.
var dimmClockStrategies = []func(*hwNode) (int, bool){
	clockFromDescription,
	clockFromSettings,
	clockFromBusClock,
}

func dimmClock(n *hwNode) int {
	for _, strategy := range dimmClockStrategies {
		if mhz, ok := strategy(n); ok {
			return mhz
		}
	}
	return 0
}

var descSpeedRe = regexp.MustCompile(`(\d{3,5})\s*MHz`)

// clockFromDescription pulls a MHz figure out of the description text,
// e.g. "DDR5 Synchronous Registered (Buffered) 4800 MHz (0.2 ns)". Values
// below 800 MHz are not plausible memory clocks and are rejected.
func clockFromDescription(n *hwNode) (int, bool) {
	m := descSpeedRe.FindStringSubmatch(n.Description)
	if m == nil {
		return 0, false
	}
	mhz, err := strconv.Atoi(m[1])
	if err != nil || mhz < 800 {
		return 0, false
	}
	return mhz, true
}

// clockFromSettings reads the speed out of <configuration><setting>
// elements, normalizing Hz to MHz when the raw value is too large.
func clockFromSettings(n *hwNode) (int, bool) {
	if n.Configuration == nil {
		return 0, false
	}
	for _, s := range n.Configuration.Settings {
		switch strings.ToLower(s.ID) {
		case "speed", "configured_speed", "configured_clock_speed":
			if mhz := ClockMHz(joinDigits(s.Value)); mhz > 0 {
				return mhz, true
			}
		}
	}
	return 0, false
}

// clockFromBusClock falls back to the generic <clock> element (a bus clock
// in Hz), used only when nothing better resolved.
func clockFromBusClock(n *hwNode) (int, bool) {
	if n.Clock == nil {
		return 0, false
	}
	hz, err := strconv.ParseInt(strings.TrimSpace(n.Clock.Value), 10, 64)
	if err != nil || hz <= 0 {
		return 0, false
	}
	return int(hz / 1_000_000), true
}

// StorageFromTree extracts disk nodes from the hardware tree.
func StorageFromTree(raw []byte) []StorageDevice {
	nodes := parseHardwareTree(raw)
	if nodes == nil {
		return nil
	}

	var disks []StorageDevice
	walkNodes(nodes, func(n *hwNode) {
		if n.Class != "disk" && !strings.HasPrefix(n.ID, "disk") {
			return
		}

		size := 0.0
		if n.Size != nil {
			if raw, err := strconv.ParseInt(strings.TrimSpace(n.Size.Value), 10, 64); err == nil {
				if n.Size.Units == "" || n.Size.Units == "bytes" {
					size = StorageSizeGB(raw)
				} else {
					size = float64(raw)
				}
			}
		}

		name := ""
		if len(n.LogicalNames) > 0 {
			name = strings.TrimSpace(n.LogicalNames[0])
		}

		disks = append(disks, StorageDevice{
			Name:     name,
			Model:    strings.TrimSpace(n.Product),
			Serial:   strings.TrimSpace(n.Serial),
			SizeGB:   size,
			NUMANode: -1,
			Kind:     "disk",
		})
	})
	return disks
}

// PortsFromTree extracts network device nodes from the hardware tree. lshw
// reports the MAC address in the <serial> element for NICs. Nodes with
// neither product nor vendor carry nothing worth enriching with and are
// dropped.
func PortsFromTree(raw []byte) []NetworkPort {
	nodes := parseHardwareTree(raw)
	if nodes == nil {
		return nil
	}

	var ports []NetworkPort
	walkNodes(nodes, func(n *hwNode) {
		if n.Class != "network" {
			return
		}
		product := strings.TrimSpace(n.Product)
		vendor := strings.TrimSpace(n.Vendor)
		if product == "" && vendor == "" {
			return
		}
		name := ""
		if len(n.LogicalNames) > 0 {
			name = strings.TrimSpace(n.LogicalNames[0])
		}
		ports = append(ports, NetworkPort{
			Name:        name,
			MAC:         strings.ToLower(strings.TrimSpace(n.Serial)),
			Vendor:      vendor,
			Product:     product,
			Description: strings.TrimSpace(n.Description),
			BusInfo:     strings.TrimSpace(n.BusInfo),
			NUMANode:    -1,
		})
	})
	return ports
}
