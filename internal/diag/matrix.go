package diag

import "strings"

// CellStatus is the rendered state of one (test, GPU) matrix cell.
type CellStatus string

const (
	CellPass    CellStatus = "pass"
	CellFail    CellStatus = "fail"
	CellWarn    CellStatus = "warn"
	CellSkip    CellStatus = "skip"
	CellUnknown CellStatus = "unknown"
)

// MatrixRow is one test's resolved per-GPU statuses.
type MatrixRow struct {
	Test  string
	Cells []CellStatus
	// Inferred marks cells whose GPU id came from a positional fallback.
	Inferred []bool
}

// Matrix is the test-by-GPU status grid plus entry totals across the
// report.
type Matrix struct {
	Rows    []MatrixRow
	GPUs    int
	Passed  int
	Failed  int
	Warned  int
	Skipped int
}

// BuildMatrix resolves every test's entries onto GPU columns. A column
// with no resolved entry for a test stays unknown rather than defaulting
// to a pass or fail.
func BuildMatrix(tests []TestResult, nGPUs int) Matrix {
	mx := Matrix{GPUs: nGPUs}
	if len(tests) == 0 || nGPUs <= 0 {
		return mx
	}
	skipped := RemapSkipped(tests, nGPUs)

	for _, t := range tests {
		row := MatrixRow{
			Test:     t.Name,
			Cells:    make([]CellStatus, nGPUs),
			Inferred: make([]bool, nGPUs),
		}
		for i := range row.Cells {
			row.Cells[i] = CellUnknown
		}

		ids := MapEntries(t.Entries, nGPUs, skipped)
		for i, e := range t.Entries {
			gpu := ids[i].ID
			if gpu < 0 || gpu >= nGPUs {
				continue
			}
			row.Cells[gpu] = statusCell(e.Status)
			row.Inferred[gpu] = ids[i].Confidence == ConfidenceFallback
		}
		mx.Rows = append(mx.Rows, row)

		for _, e := range t.Entries {
			switch statusCell(e.Status) {
			case CellPass:
				mx.Passed++
			case CellFail:
				mx.Failed++
			case CellWarn:
				mx.Warned++
			case CellSkip:
				mx.Skipped++
			}
		}
	}
	return mx
}

func statusCell(status string) CellStatus {
	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "pass"):
		return CellPass
	case strings.Contains(s, "fail"):
		return CellFail
	case strings.Contains(s, "warn"):
		return CellWarn
	case strings.Contains(s, "skip"):
		return CellSkip
	}
	return CellUnknown
}
