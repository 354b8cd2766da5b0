// Package report assembles the reconciled hardware and diagnostic data
// into a single self-contained HTML certificate.
package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/Masterminds/sprig/v3"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/luis15pt/Nexgen-MAAS-validation/internal/diag"
	"github.com/luis15pt/Nexgen-MAAS-validation/internal/verdict"
)

//go:embed report.gohtml
var templateFS embed.FS

// Render writes the HTML report for d to w.
func Render(w io.Writer, d *Data) error {
	tmpl, err := template.New("report.gohtml").
		Funcs(sprig.FuncMap()).
		Funcs(template.FuncMap{
			"badge":    badgeClass,
			"cell":     cellGlyph,
			"dash":     dash,
			"gib":      func(v float64) string { return humanize.CommafWithDigits(v, 1) + " GiB" },
			"gb":       func(v float64) string { return humanize.CommafWithDigits(v, 1) + " GB" },
			"ecc":      eccSummary,
			"pcie":     pcieLabel,
			"degraded": pcieDegraded,
		}).
		ParseFS(templateFS, "report.gohtml")
	if err != nil {
		return errors.Wrap(err, "parse report template")
	}
	if err := tmpl.Execute(w, d); err != nil {
		return errors.Wrap(err, "render report")
	}
	return nil
}

// FormatDuration renders a second count as "4h 2m 11s" with zero leading
// units dropped.
func FormatDuration(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func badgeClass(s verdict.Status) string {
	switch s {
	case verdict.Pass:
		return "pass"
	case verdict.Warn:
		return "warn"
	case verdict.Fail:
		return "fail"
	default:
		return "na"
	}
}

func cellGlyph(c diag.CellStatus) template.HTML {
	switch c {
	case diag.CellPass:
		return `<span class="c-pass">&#10003;</span>`
	case diag.CellFail:
		return `<span class="c-fail">&#10007;</span>`
	case diag.CellWarn:
		return `<span class="c-warn">!</span>`
	case diag.CellSkip:
		return `<span class="c-skip">&ndash;</span>`
	}
	return `<span class="c-skip">?</span>`
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "--"
	}
	return s
}

// eccSummary compresses the four ECC counters into "CV:n UV:n RS:n RD:n",
// listing only non-zero counts.
func eccSummary(e ECCCounters) string {
	var parts []string
	if e.CorrectedVolatile > 0 {
		parts = append(parts, fmt.Sprintf("CV:%d", e.CorrectedVolatile))
	}
	if e.UncorrectedVolatile > 0 {
		parts = append(parts, fmt.Sprintf("UV:%d", e.UncorrectedVolatile))
	}
	if e.RetiredPagesSBit > 0 {
		parts = append(parts, fmt.Sprintf("RS:%d", e.RetiredPagesSBit))
	}
	if e.RetiredPagesDBit > 0 {
		parts = append(parts, fmt.Sprintf("RD:%d", e.RetiredPagesDBit))
	}
	if len(parts) == 0 {
		return "OK"
	}
	return strings.Join(parts, " ")
}

// pcieLabel renders "Gen5 x16"; a link running below its maximum width is
// shown as "Gen5 x16 (now x8)".
func pcieLabel(g GPU) string {
	if g.PCIeGen == "" && g.PCIeWidth == "" {
		return "--"
	}
	label := fmt.Sprintf("Gen%s x%s", dash(g.PCIeGen), dash(g.PCIeWidth))
	if pcieDegraded(g) {
		label += fmt.Sprintf(" (now x%s)", g.PCIeCur)
	}
	return label
}

func pcieDegraded(g GPU) bool {
	return g.PCIeCur != "" && g.PCIeWidth != "" && g.PCIeCur != g.PCIeWidth
}
