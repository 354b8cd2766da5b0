package diag

import "regexp"

// StressMetrics holds the per-GPU figures pulled out of the diagnostic info
// strings. Values stay as the report printed them; rendering decides units.
type StressMetrics struct {
	GFLOPS      string
	PCIeBW      string
	PCIeLatency string
	PowerAvg    string
	PowerMax    string
	StressLevel string
	MemoryPct   string
}

var (
	gflopsRe   = regexp.MustCompile(`approximately\s+([\d.]+)\s+gigaflops`)
	pcieBWRe   = regexp.MustCompile(`bidirectional bandwidth[:\s]+([\d.]+)`)
	pcieLatRe  = regexp.MustCompile(`GPU to Host latency[:\s]+([\d.]+)`)
	powerAvgRe = regexp.MustCompile(`average power usage[:\s]+([\d.]+)`)
	powerMaxRe = regexp.MustCompile(`max power[:\s]+([\d.]+)`)
	stressRe   = regexp.MustCompile(`stress level\s+(\d+)`)
	memPctRe   = regexp.MustCompile(`\(([\d.]+)%\)`)
)

func extractNum(info string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(info); m != nil {
		return m[1]
	}
	return ""
}

// BuildStressMetrics walks every test in the report and collects metrics
// per resolved GPU id.
func BuildStressMetrics(tests []TestResult, nGPUs int) []StressMetrics {
	metrics := make([]StressMetrics, nGPUs)
	skipped := RemapSkipped(tests, nGPUs)

	for _, t := range tests {
		ids := MapEntries(t.Entries, nGPUs, skipped)
		for i, e := range t.Entries {
			gpu := ids[i].ID
			if gpu < 0 || gpu >= nGPUs || e.Info == "" {
				continue
			}
			m := &metrics[gpu]
			switch t.Name {
			case "diagnostic":
				if v := extractNum(e.Info, gflopsRe); v != "" {
					m.GFLOPS = v
				}
			case "pcie":
				if v := extractNum(e.Info, pcieBWRe); v != "" {
					m.PCIeBW = v
				}
				if v := extractNum(e.Info, pcieLatRe); v != "" {
					m.PCIeLatency = v
				}
			case "targeted_power":
				if v := extractNum(e.Info, powerAvgRe); v != "" {
					m.PowerAvg = v
				}
				if v := extractNum(e.Info, powerMaxRe); v != "" {
					m.PowerMax = v
				}
			case "targeted_stress":
				if v := extractNum(e.Info, stressRe); v != "" {
					m.StressLevel = v
				}
			case "memory":
				if v := extractNum(e.Info, memPctRe); v != "" {
					m.MemoryPct = v
				}
			}
		}
	}
	return metrics
}

// HasMetrics reports whether any GPU collected at least one figure.
func HasMetrics(metrics []StressMetrics) bool {
	for _, m := range metrics {
		if m != (StressMetrics{}) {
			return true
		}
	}
	return false
}
