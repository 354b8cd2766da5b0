package diag

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Confidence tags how an entry's GPU id was established.
type Confidence int

const (
	// ConfidenceExplicit: the entry carried the id itself, in its id field
	// or its info text.
	ConfidenceExplicit Confidence = iota
	// ConfidenceRemap: inferred by pairing row-remapping skip entries with
	// GPUs known to be skipped elsewhere in the report.
	ConfidenceRemap
	// ConfidenceEliminated: the only consistent assignment left once all
	// other entries were resolved.
	ConfidenceEliminated
	// ConfidenceFallback: nothing resolved; the array position was used.
	// Downstream rendering must treat these as unconfirmed.
	ConfidenceFallback
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceExplicit:
		return "explicit"
	case ConfidenceRemap:
		return "remap"
	case ConfidenceEliminated:
		return "eliminated"
	default:
		return "fallback"
	}
}

// Assignment maps one result-array position to a physical GPU id.
type Assignment struct {
	ID         int
	Confidence Confidence
}

var gpuIDRe = regexp.MustCompile(`\bGPU\s+(\d+)\b`)

const remapMarker = "row remapping"

// explicitID tries to determine the GPU id from the entry itself: the
// explicit id field first, then patterns like "GPU 3 calculated ..." or
// "ECC is not enabled on GPU 7" in the info text.
func explicitID(e ResultEntry) (int, bool) {
	if e.GPUID != nil {
		return *e.GPUID, true
	}
	if m := gpuIDRe.FindStringSubmatch(e.Info); m != nil {
		id, err := strconv.Atoi(m[1])
		if err == nil {
			return id, true
		}
	}
	return 0, false
}

func hasRemapMarker(e ResultEntry) bool {
	return strings.Contains(strings.ToLower(e.Info), remapMarker)
}

// RemapSkipped identifies GPU ids excluded from testing because their
// memory rows were already remapped around a prior fault. It scans every
// test that carries both resolved ids and a remap marker: the ids absent
// from such a test are the skipped set.
func RemapSkipped(tests []TestResult, nGPUs int) map[int]bool {
	skipped := make(map[int]bool)
	for _, t := range tests {
		found := make(map[int]bool)
		hasRemap := false
		for _, e := range t.Entries {
			if id, ok := explicitID(e); ok && id >= 0 && id < nGPUs {
				found[id] = true
			}
			if hasRemapMarker(e) {
				hasRemap = true
			}
		}
		if !hasRemap || len(found) == 0 {
			continue
		}
		for id := 0; id < nGPUs; id++ {
			if !found[id] {
				skipped[id] = true
			}
		}
	}
	return skipped
}

// MapEntries maps each result-array position to a physical GPU id using
// three passes: explicit ids, remap-skip pairing, then elimination. Every
// position receives exactly one id in [0, nGPUs); when elimination cannot
// settle the remainder, the array position is used and the assignment is
// flagged as a fallback.
func MapEntries(entries []ResultEntry, nGPUs int, remapSkipped map[int]bool) []Assignment {
	n := len(entries)
	mapping := make([]*Assignment, n)

	// --- Pass 1: explicit id field or info-string extraction ---
	for i, e := range entries {
		if id, ok := explicitID(e); ok && id >= 0 && id < nGPUs {
			mapping[i] = &Assignment{ID: id, Confidence: ConfidenceExplicit}
		}
	}

	// --- Pass 2: pair remap-skip entries with known-skipped GPUs ---
	var remapIdx []int
	for i, e := range entries {
		if mapping[i] == nil && hasRemapMarker(e) {
			remapIdx = append(remapIdx, i)
		}
	}
	assigned := make(map[int]bool)
	for _, a := range mapping {
		if a != nil {
			assigned[a.ID] = true
		}
	}
	var unassignedRemap []int
	for id := range remapSkipped {
		if !assigned[id] {
			unassignedRemap = append(unassignedRemap, id)
		}
	}
	sort.Ints(unassignedRemap)
	// Pairing happens only on an exact count match; anything looser would
	// guess. Sorted order is a deterministic tie-break, not a semantic one.
	if len(remapIdx) > 0 && len(remapIdx) == len(unassignedRemap) {
		for k, i := range remapIdx {
			mapping[i] = &Assignment{ID: unassignedRemap[k], Confidence: ConfidenceRemap}
		}
	}

	// --- Pass 3: fill the remainder by elimination ---
	known := make(map[int]bool)
	for _, a := range mapping {
		if a != nil {
			known[a.ID] = true
		}
	}
	var missing []int
	for id := 0; id < nGPUs; id++ {
		if !known[id] {
			missing = append(missing, id)
		}
	}
	var unknownIdx []int
	for i := range mapping {
		if mapping[i] == nil {
			unknownIdx = append(unknownIdx, i)
		}
	}
	if len(missing) == len(unknownIdx) {
		for k, i := range unknownIdx {
			mapping[i] = &Assignment{ID: missing[k], Confidence: ConfidenceEliminated}
		}
	} else {
		// Last resort: array position, clamped into range.
		for _, i := range unknownIdx {
			id := i
			if id >= nGPUs {
				id = 0
			}
			mapping[i] = &Assignment{ID: id, Confidence: ConfidenceFallback}
		}
	}

	out := make([]Assignment, n)
	for i, a := range mapping {
		out[i] = *a
	}
	return out
}
