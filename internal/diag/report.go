// Package diag resolves per-device identity inside diagnostic test reports
// and extracts per-GPU stress metrics. The position of an entry in a test's
// result array does not reliably correspond to a physical GPU index: some
// GPUs may be skipped entirely and entries may or may not carry an explicit
// device id.
package diag

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ResultEntry is one per-device measurement inside a test's result array.
// It is consumed as-is; identity is resolved externally.
type ResultEntry struct {
	Status string
	Info   string
	GPUID  *int // explicit device id, when the report carries one
}

// TestResult is one named diagnostic test with its per-device entries.
type TestResult struct {
	Name    string
	Entries []ResultEntry
}

// ParseReport reads the diagnostic payload's test list. The info field may
// be a single string or a list of strings; lists are joined with "; ".
func ParseReport(doc gjson.Result) []TestResult {
	var tests []TestResult
	doc.Get("test_results").ForEach(func(_, t gjson.Result) bool {
		test := TestResult{Name: t.Get("test").String()}
		t.Get("results").ForEach(func(_, r gjson.Result) bool {
			entry := ResultEntry{
				Status: r.Get("status").String(),
				Info:   infoString(r.Get("info")),
			}
			if gid := r.Get("gpu_id"); gid.Exists() && gid.Type == gjson.Number {
				id := int(gid.Int())
				entry.GPUID = &id
			}
			test.Entries = append(test.Entries, entry)
			return true
		})
		tests = append(tests, test)
		return true
	})
	return tests
}

func infoString(info gjson.Result) string {
	if info.IsArray() {
		var parts []string
		info.ForEach(func(_, v gjson.Result) bool {
			if s := strings.TrimSpace(v.String()); s != "" {
				parts = append(parts, s)
			}
			return true
		})
		return strings.Join(parts, "; ")
	}
	return strings.TrimSpace(info.String())
}
