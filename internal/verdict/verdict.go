// Package verdict filters known-spurious issues out of the commissioning
// stages' reports and recomputes the per-stage and overall verdicts.
package verdict

import "strings"

// Status is a stage outcome. NA marks a stage with no usable data.
type Status string

const (
	Fail Status = "FAIL"
	Warn Status = "WARN"
	Pass Status = "PASS"
	NA   Status = "N/A"
)

// Worst-first ordering used for the overall verdict.
var priority = map[Status]int{Fail: 0, Warn: 1, Pass: 2, NA: 3}

func rank(s Status) int {
	if p, ok := priority[s]; ok {
		return p
	}
	return 3
}

// ParseStatus normalizes a raw verdict string from a stage payload.
// Unrecognized values count as N/A.
func ParseStatus(s string) Status {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case Fail:
		return Fail
	case Warn:
		return Warn
	case Pass:
		return Pass
	}
	return NA
}

// Issue is one reported anomaly, tagged with the stage that raised it.
type Issue struct {
	Severity    string `json:"severity"`
	Description string `json:"issue"`
	Stage       string `json:"source"`
}

// StageVerdict is one stage's name and status.
type StageVerdict struct {
	Stage  string `json:"stage"`
	Status Status `json:"status"`
}

// FilterIssues drops issues known to be spurious:
//
//   - "counters unavailable": the inventory stage could not query a live
//     counter, which is moot once the stress stage has validated the same
//     hardware; suppressed only when stress data is present.
//   - "pcie link degradation": GPUs drop the negotiated link generation at
//     idle to save power, so a gen-only downgrade is expected behavior.
//     Width degradation is the real fault signal and is flagged elsewhere,
//     never suppressed here.
func FilterIssues(issues []Issue, stressPresent bool) []Issue {
	var out []Issue
	for _, iss := range issues {
		desc := strings.ToLower(iss.Description)
		if stressPresent && strings.Contains(desc, "counters unavailable") {
			continue
		}
		if strings.Contains(desc, "pcie link degradation") {
			continue
		}
		out = append(out, iss)
	}
	return out
}

// Recompute derives final per-stage verdicts from the raw ones and the
// surviving issues. A WARN stage whose issues were all filtered away is
// upgraded to PASS; a FAIL is never upgraded.
func Recompute(raw []StageVerdict, surviving []Issue) []StageVerdict {
	withIssues := make(map[string]bool)
	for _, iss := range surviving {
		withIssues[iss.Stage] = true
	}

	out := make([]StageVerdict, len(raw))
	for i, sv := range raw {
		if sv.Status == Warn && !withIssues[sv.Stage] {
			sv.Status = Pass
		}
		out[i] = sv
	}
	return out
}

// Overall returns the worst status across stages. With no stages at all the
// result is N/A.
func Overall(stages []StageVerdict) Status {
	overall := NA
	for _, sv := range stages {
		if rank(sv.Status) < rank(overall) {
			overall = sv.Status
		}
	}
	return overall
}
