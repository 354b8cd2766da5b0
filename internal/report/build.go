package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/luis15pt/Nexgen-MAAS-validation/internal/diag"
	"github.com/luis15pt/Nexgen-MAAS-validation/internal/inventory"
	"github.com/luis15pt/Nexgen-MAAS-validation/internal/verdict"
	"github.com/luis15pt/Nexgen-MAAS-validation/internal/version"
)

// Payloads carries everything the transport layer fetched. Any of them may
// be absent; the report is best-effort from whatever resolved.
type Payloads struct {
	Install      gjson.Result
	HasInstall   bool
	Inventory    gjson.Result
	HasInventory bool
	Stress       gjson.Result
	HasStress    bool

	Machine      gjson.Result
	HasMachine   bool
	HardwareTree []byte
	Resources    gjson.Result
	HasResources bool
	FirmwareText string

	Scripts  []ScriptRun
	Hostname string
	MAASURL  string
	SystemID string
}

// ScriptRun is one commissioning script's execution summary, for the
// report's script table.
type ScriptRun struct {
	Name    string
	Status  string
	Runtime string
}

// KV is one key-value row in the hardware/software panels.
type KV struct {
	Key   string
	Value string
}

// GPU is one accelerator row in the report's GPU table.
type GPU struct {
	Index       int
	Serial      string
	PCIeGen     string
	PCIeWidth   string
	PCIeCur     string
	NUMANode    string
	TempIdleC   string
	PowerDrawW  string
	PowerLimitW string
	ECC         ECCCounters
	Metrics     diag.StressMetrics
}

// ECCCounters are the per-GPU error-correction counts shown in the ECC
// column.
type ECCCounters struct {
	CorrectedVolatile   int64
	UncorrectedVolatile int64
	RetiredPagesSBit    int64
	RetiredPagesDBit    int64
}

// Data is everything the HTML template renders.
type Data struct {
	Hostname     string
	FQDN         string
	SerialNumber string
	Platform     string
	Motherboard  string
	BIOS         string
	CPULabel     string
	RAMGB        float64
	Software     []KV

	GeneratedAt      string
	RunID            string
	GeneratorVersion string
	MAASLink         string
	DataSource       string
	ScriptMeta       []string

	Stages  []verdict.StageVerdict
	Overall verdict.Status
	Issues  []verdict.Issue

	GPUCount  int
	GPUModel  string
	VRAMLabel string
	GPUs      []GPU
	HasStress bool

	StressLevel    string
	StressDuration string
	StressExit     string
	Matrix         diag.Matrix

	Inventory inventory.Inventory
	NumaGPUs  map[int][]int

	Scripts []ScriptRun
}

var stageLabels = []string{"Install", "Inventory", "Stress Test"}

// Build runs the reconciliation core over the fetched payloads and
// assembles the report data.
func Build(p Payloads, log zerolog.Logger) *Data {
	d := &Data{
		GeneratedAt:      time.Now().UTC().Format("2006-01-02 15:04 UTC"),
		RunID:            uuid.NewString(),
		GeneratorVersion: version.Version,
		DataSource:       "Local files",
		NumaGPUs:         make(map[int][]int),
		Scripts:          p.Scripts,
	}
	if p.HasMachine {
		d.DataSource = "MAAS API"
	}
	if p.MAASURL != "" && p.SystemID != "" {
		d.MAASLink = strings.TrimRight(p.MAASURL, "/") + "/r/machine/" + p.SystemID + "/commissioning"
	}

	// --- Hardware inventory reconciliation ---
	d.Inventory = buildInventory(p, log)

	// --- Identity, metrics, verdicts from the stage payloads ---
	buildSystemInfo(d, p)
	buildGPUs(d, p)
	buildVerdicts(d, p)
	buildStress(d, p)

	return d
}

// buildInventory runs every extractor over its payload and merges the
// per-kind candidate lists into the canonical inventory.
func buildInventory(p Payloads, log zerolog.Logger) inventory.Inventory {
	var inv inventory.Inventory

	// Memory: hardware tree first, resource document as fallback, firmware
	// text for authoritative speeds.
	treeDimms := inventory.MemoryFromTree(p.HardwareTree)
	if p.HardwareTree != nil && treeDimms == nil {
		log.Warn().Msg("hardware tree yielded no memory modules")
	}
	var resDimms []inventory.MemoryModule
	if p.HasResources {
		resDimms = inventory.MemoryFromResources(p.Resources)
	}
	speeds := inventory.MemorySpeedsFromFirmware(p.FirmwareText)
	inv.Memory = inventory.MergeMemory(treeDimms, resDimms, speeds)

	// Storage: block devices, RAID members, then resource-document disks.
	var blocks, raidMembers, resDisks []inventory.StorageDevice
	if p.HasMachine {
		blocks = inventory.BlockDevicesFromMachine(p.Machine)
		raidMembers = inventory.RAIDMembersFromMachine(p.Machine)
	}
	if p.HasResources {
		resDisks = inventory.StorageFromResources(p.Resources)
	}
	inv.Storage = inventory.MergeStorage(blocks, raidMembers, resDisks)

	// Network: fleet record ports enriched from the hardware tree, then
	// grouped into physical cards.
	if p.HasMachine {
		inv.Ports = inventory.PortsFromMachine(p.Machine)
	}
	inv.Ports = inventory.EnrichPorts(inv.Ports, inventory.PortsFromTree(p.HardwareTree))
	inv.AdapterCards = inventory.GroupAdapterCards(inv.Ports)

	if p.HasResources {
		inv.PciNetwork, inv.PciStorage = inventory.SplitPciByCategory(inventory.PciFromResources(p.Resources))
	}
	if p.HasMachine {
		inv.NumaNodes = inventory.NumaFromMachine(p.Machine)
	}

	log.Info().
		Int("dimms", len(inv.Memory)).
		Int("storage", len(inv.Storage)).
		Int("ports", len(inv.Ports)).
		Int("cards", len(inv.AdapterCards)).
		Msg("inventory reconciled")
	return inv
}

func buildSystemInfo(d *Data, p Payloads) {
	sysInfo := gjson.Result{}
	if p.HasInventory {
		sysInfo = p.Inventory.Get("system")
	} else if p.HasStress {
		sysInfo = p.Stress.Get("system")
	}
	hw := p.Machine.Get("hardware_info")

	d.Hostname = p.Hostname
	if d.Hostname == "" {
		d.Hostname = p.Machine.Get("hostname").String()
	}
	if d.Hostname == "" {
		d.Hostname = sysInfo.Get("hostname").String()
	}
	if d.Hostname == "" {
		d.Hostname = "Unknown"
	}
	d.FQDN = p.Machine.Get("fqdn").String()

	d.Platform = strings.TrimSpace(hw.Get("system_vendor").String() + " " + hw.Get("system_product").String())
	if d.Platform == "" {
		d.Platform = sysInfo.Get("product_name").String()
	}
	d.SerialNumber = hw.Get("system_serial").String()
	if d.SerialNumber == "" {
		d.SerialNumber = sysInfo.Get("serial_number").String()
	}

	d.Motherboard = hw.Get("mainboard_product").String()
	if d.Motherboard == "" {
		d.Motherboard = sysInfo.Get("motherboard").String()
	}
	if v := hw.Get("mainboard_vendor").String(); v != "" && d.Motherboard != "" {
		d.Motherboard = v + " " + d.Motherboard
	}
	if ver := hw.Get("mainboard_firmware_version").String(); ver != "" {
		d.BIOS = ver
		if date := hw.Get("mainboard_firmware_date").String(); date != "" {
			d.BIOS = fmt.Sprintf("%s (%s)", ver, date)
		}
	}

	cpu := hw.Get("cpu_model").String()
	if cpu == "" {
		cpu = sysInfo.Get("cpu_model").String()
	}
	threads := p.Machine.Get("cpu_count").Int()
	if threads == 0 {
		threads = sysInfo.Get("cpu_total_threads").Int()
	}
	totalCores := 0
	for _, n := range d.Inventory.NumaNodes {
		totalCores += len(n.Cores)
	}
	sockets := len(d.Inventory.NumaNodes)
	switch {
	case sockets > 1 && totalCores > 0:
		d.CPULabel = fmt.Sprintf("%dx %s - %d cores / %d threads", sockets, cpu, totalCores, threads)
	case totalCores > 0:
		d.CPULabel = fmt.Sprintf("%s - %d cores / %d threads", cpu, totalCores, threads)
	default:
		d.CPULabel = fmt.Sprintf("%s - %d threads", cpu, threads)
	}

	if ramMB := p.Machine.Get("memory").Int(); ramMB > 0 {
		d.RAMGB = float64(ramMB) / 1024
	} else {
		d.RAMGB = sysInfo.Get("ram_total_gb").Float()
	}

	kernel := sysInfo.Get("kernel_version").String()
	if kernel == "" {
		kernel = p.Machine.Get("osystem").String()
	}
	d.Software = []KV{
		{"Kernel", kernel},
		{"Architecture", p.Machine.Get("architecture").String()},
	}
	if inst := p.Install.Get("install"); inst.Exists() {
		d.Software = append(d.Software,
			KV{"NVIDIA Driver", fmt.Sprintf("%s (%s)", inst.Get("driver_package").String(), inst.Get("nvidia_driver_version").String())},
			KV{"CUDA", fmt.Sprintf("%s (reports %s)", inst.Get("cuda_package").String(), inst.Get("cuda_version").String())},
			KV{"DCGM", "v" + inst.Get("dcgm_version").String()},
		)
	} else {
		if drv := sysInfo.Get("nvidia_driver_version").String(); drv != "" {
			d.Software = append(d.Software, KV{"NVIDIA Driver", drv})
		}
		if cuda := sysInfo.Get("cuda_version").String(); cuda != "" {
			d.Software = append(d.Software, KV{"CUDA", cuda})
		}
	}

	for _, label := range stageLabels {
		data, ok := stagePayload(p, label)
		if !ok {
			continue
		}
		m := data.Get("report_metadata")
		dur := m.Get("duration_seconds").Int()
		if dur == 0 {
			dur = m.Get("test_duration_seconds").Int()
		}
		d.ScriptMeta = append(d.ScriptMeta, fmt.Sprintf("%s v%s - %s (%s)",
			label, m.Get("script_version").String(), m.Get("generated_at").String(), FormatDuration(dur)))
	}
}

func buildGPUs(d *Data, p Payloads) {
	gpus := p.Inventory.Get("gpus").Array()
	d.GPUCount = len(gpus)
	if d.GPUCount == 0 {
		d.GPUCount = int(p.Install.Get("install.gpu_count").Int())
	}
	if d.GPUCount == 0 && p.HasStress {
		d.GPUCount = int(p.Stress.Get("system.gpu_count").Int())
	}
	if len(gpus) > 0 {
		d.GPUModel = gpus[0].Get("name").String()
		d.VRAMLabel = strings.TrimSpace(fmt.Sprintf("%s MiB %s",
			humanize.Comma(gpus[0].Get("vram_mib").Int()), gpus[0].Get("vram_type").String()))
	}

	for _, g := range gpus {
		gpu := GPU{
			Index:       int(g.Get("gpu_index").Int()),
			Serial:      g.Get("serial").String(),
			PCIeGen:     firstOf(g, "pcie_gen_max", "pcie_gen_current"),
			PCIeWidth:   firstOf(g, "pcie_width_max", "pcie_width_current"),
			NUMANode:    numberOrEmpty(g.Get("numa_node")),
			TempIdleC:   numberOrEmpty(g.Get("temp_idle_c")),
			PowerDrawW:  numberOrEmpty(g.Get("power_draw_w")),
			PowerLimitW: numberOrEmpty(g.Get("power_limit_w")),
		}
		gpu.PCIeCur = g.Get("pcie_width_current").String()
		if gpu.PCIeCur == "" {
			gpu.PCIeCur = gpu.PCIeWidth
		}
		ecc := g.Get("ecc")
		gpu.ECC = ECCCounters{
			CorrectedVolatile:   ecc.Get("corrected_volatile").Int(),
			UncorrectedVolatile: ecc.Get("uncorrected_volatile").Int(),
			RetiredPagesSBit:    ecc.Get("retired_pages_sbit").Int(),
			RetiredPagesDBit:    ecc.Get("retired_pages_dbit").Int(),
		}
		d.GPUs = append(d.GPUs, gpu)

		if numa := g.Get("numa_node"); numa.Exists() {
			d.NumaGPUs[int(numa.Int())] = append(d.NumaGPUs[int(numa.Int())], gpu.Index)
		}
	}

	// The inventory payload may also carry an explicit GPU-to-NUMA mapping.
	p.Inventory.Get("numa_topology.gpu_to_numa_mapping").ForEach(func(_, m gjson.Result) bool {
		node := int(m.Get("numa_node").Int())
		idx := int(m.Get("gpu_index").Int())
		if !containsInt(d.NumaGPUs[node], idx) {
			d.NumaGPUs[node] = append(d.NumaGPUs[node], idx)
		}
		return true
	})
}

func buildVerdicts(d *Data, p Payloads) {
	var issues []verdict.Issue
	var raw []verdict.StageVerdict
	for _, label := range stageLabels {
		data, ok := stagePayload(p, label)
		if !ok {
			raw = append(raw, verdict.StageVerdict{Stage: label, Status: verdict.NA})
			continue
		}
		data.Get("verdict.issues").ForEach(func(_, iss gjson.Result) bool {
			issues = append(issues, verdict.Issue{
				Severity:    iss.Get("severity").String(),
				Description: iss.Get("issue").String(),
				Stage:       label,
			})
			return true
		})
		raw = append(raw, verdict.StageVerdict{
			Stage:  label,
			Status: verdict.ParseStatus(data.Get("verdict.overall").String()),
		})
	}

	d.Issues = verdict.FilterIssues(issues, p.HasStress)
	d.Stages = verdict.Recompute(raw, d.Issues)
	d.Overall = verdict.Overall(d.Stages)
}

func buildStress(d *Data, p Payloads) {
	if !p.HasStress {
		return
	}
	dcgm := p.Stress.Get("dcgm_diagnostics")
	d.StressLevel = dcgm.Get("run_level").String()
	d.StressDuration = FormatDuration(dcgm.Get("duration_seconds").Int())
	d.StressExit = dcgm.Get("exit_code").String()

	tests := diag.ParseReport(dcgm)
	if d.GPUCount > 0 {
		metrics := diag.BuildStressMetrics(tests, d.GPUCount)
		d.HasStress = diag.HasMetrics(metrics)
		for i := range d.GPUs {
			if d.GPUs[i].Index < len(metrics) {
				d.GPUs[i].Metrics = metrics[d.GPUs[i].Index]
			}
		}
		d.Matrix = diag.BuildMatrix(tests, d.GPUCount)
	}
}

func stagePayload(p Payloads, label string) (gjson.Result, bool) {
	switch label {
	case "Install":
		return p.Install, p.HasInstall
	case "Inventory":
		return p.Inventory, p.HasInventory
	case "Stress Test":
		return p.Stress, p.HasStress
	}
	return gjson.Result{}, false
}

func firstOf(g gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := g.Get(k); v.Exists() {
			return v.String()
		}
	}
	return ""
}

func numberOrEmpty(v gjson.Result) string {
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return v.String()
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
