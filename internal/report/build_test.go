package report

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/luis15pt/Nexgen-MAAS-validation/internal/verdict"
)

const inventoryPayload = `{
	"system": {
		"hostname": "gpu-node-01",
		"product_name": "SYS-821GE-TNHR",
		"serial_number": "S511069X",
		"cpu_model": "INTEL(R) XEON(R) PLATINUM 8568Y+",
		"cpu_total_threads": 192,
		"ram_total_gb": 2048,
		"kernel_version": "5.15.0-119-generic",
		"nvidia_driver_version": "580.65.06",
		"cuda_version": "12.8"
	},
	"gpus": [
		{"gpu_index": 0, "name": "NVIDIA H100 80GB HBM3", "serial": "1650223034768",
		 "vram_mib": 81559, "vram_type": "HBM3",
		 "pcie_gen_max": "5", "pcie_gen_current": "1",
		 "pcie_width_max": "16", "pcie_width_current": "16",
		 "numa_node": 0, "temp_idle_c": 28, "power_draw_w": 70.1, "power_limit_w": 700,
		 "ecc": {"corrected_volatile": 0, "uncorrected_volatile": 0, "retired_pages_sbit": 0, "retired_pages_dbit": 0}},
		{"gpu_index": 1, "name": "NVIDIA H100 80GB HBM3", "serial": "1650223034769",
		 "vram_mib": 81559, "vram_type": "HBM3",
		 "pcie_gen_max": "5", "pcie_width_max": "16", "pcie_width_current": "8",
		 "numa_node": 1, "temp_idle_c": 30, "power_draw_w": 71.5, "power_limit_w": 700,
		 "ecc": {"corrected_volatile": 3, "uncorrected_volatile": 0, "retired_pages_sbit": 1, "retired_pages_dbit": 0}}
	],
	"verdict": {
		"overall": "WARN",
		"issues": [
			{"severity": "warning", "issue": "GPU 0 PCIe link degradation: gen 5 -> gen 1"},
			{"severity": "warning", "issue": "GPU ECC error counters unavailable"}
		]
	},
	"report_metadata": {"script_version": "2.4.0", "generated_at": "2025-11-02 09:14", "duration_seconds": 75}
}`

const stressPayload = `{
	"system": {"gpu_count": 2},
	"verdict": {"overall": "PASS", "issues": []},
	"dcgm_diagnostics": {
		"run_level": "3",
		"duration_seconds": 3723,
		"exit_code": 0,
		"test_results": [
			{"test": "diagnostic", "results": [
				{"status": "Pass", "gpu_id": 0, "info": "GPU 0 calculated approximately 41234.5 gigaflops"},
				{"status": "Pass", "gpu_id": 1, "info": "GPU 1 calculated approximately 40918.2 gigaflops"}
			]}
		]
	},
	"report_metadata": {"script_version": "3.1.0", "generated_at": "2025-11-02 10:30", "test_duration_seconds": 3723}
}`

func testPayloads() Payloads {
	return Payloads{
		Inventory:    gjson.Parse(inventoryPayload),
		HasInventory: true,
		Stress:       gjson.Parse(stressPayload),
		HasStress:    true,
	}
}

func TestBuildVerdicts(t *testing.T) {
	d := Build(testPayloads(), zerolog.Nop())

	require.Len(t, d.Stages, 3)
	assert.Equal(t, verdict.NA, d.Stages[0].Status) // no install payload

	// Both inventory issues are known-spurious with stress data present, so
	// the WARN upgrades to PASS.
	assert.Equal(t, verdict.Pass, d.Stages[1].Status)
	assert.Equal(t, verdict.Pass, d.Stages[2].Status)
	assert.Equal(t, verdict.Pass, d.Overall)
	assert.Empty(t, d.Issues)
}

func TestBuildVerdictsWithoutStress(t *testing.T) {
	p := testPayloads()
	p.Stress = gjson.Result{}
	p.HasStress = false

	d := Build(p, zerolog.Nop())

	// The counters complaint survives without stress data; the WARN stands.
	require.Len(t, d.Issues, 1)
	assert.Contains(t, d.Issues[0].Description, "counters unavailable")
	assert.Equal(t, verdict.Warn, d.Stages[1].Status)
	assert.Equal(t, verdict.Warn, d.Overall)
}

func TestBuildSystemInfo(t *testing.T) {
	d := Build(testPayloads(), zerolog.Nop())

	assert.Equal(t, "gpu-node-01", d.Hostname)
	assert.Equal(t, "SYS-821GE-TNHR", d.Platform)
	assert.Equal(t, "S511069X", d.SerialNumber)
	assert.Contains(t, d.CPULabel, "192 threads")
	assert.Equal(t, 2048.0, d.RAMGB)
	require.Len(t, d.ScriptMeta, 2)
	assert.Contains(t, d.ScriptMeta[0], "Inventory v2.4.0")
	assert.Contains(t, d.ScriptMeta[1], "1h 2m 3s")
}

func TestBuildGPUs(t *testing.T) {
	d := Build(testPayloads(), zerolog.Nop())

	assert.Equal(t, 2, d.GPUCount)
	assert.Equal(t, "NVIDIA H100 80GB HBM3", d.GPUModel)
	require.Len(t, d.GPUs, 2)

	// Gen drops at idle; only width degradation flags.
	assert.False(t, pcieDegraded(d.GPUs[0]))
	assert.True(t, pcieDegraded(d.GPUs[1]))
	assert.Equal(t, "Gen5 x16 (now x8)", pcieLabel(d.GPUs[1]))

	assert.Equal(t, "OK", eccSummary(d.GPUs[0].ECC))
	assert.Equal(t, "CV:3 RS:1", eccSummary(d.GPUs[1].ECC))

	assert.Equal(t, []int{0}, d.NumaGPUs[0])
	assert.Equal(t, []int{1}, d.NumaGPUs[1])

	// Stress metrics land on the matching GPU row.
	assert.Equal(t, "41234.5", d.GPUs[0].Metrics.GFLOPS)
	assert.Equal(t, "40918.2", d.GPUs[1].Metrics.GFLOPS)
	require.Len(t, d.Matrix.Rows, 1)
}

func TestRender(t *testing.T) {
	d := Build(testPayloads(), zerolog.Nop())

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, d))

	html := buf.String()
	assert.Contains(t, html, "gpu-node-01")
	assert.Contains(t, html, "NVIDIA H100 80GB HBM3")
	assert.Contains(t, html, "Stage Verdicts")
	assert.Contains(t, html, "Gen5 x16 (now x8)")
	assert.Contains(t, html, "Diagnostic Matrix")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "45s", FormatDuration(45))
	assert.Equal(t, "2m 5s", FormatDuration(125))
	assert.Equal(t, "1h 2m 3s", FormatDuration(3723))
}
