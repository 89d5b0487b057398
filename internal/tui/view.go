package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/pkarhu/comptune/internal/bode"
)

var blockInfo = map[string]string{
	"gain":           "flat gain",
	"leadlag":        "first-order lead or lag",
	"sos":            "second-order resonance",
	"real_pole_zero": "independent real pole and zero",
}

func (m model) View() string {
	switch m.state {
	case statePicker:
		return m.viewPicker()
	case statePrompt:
		return m.viewPrompt()
	}
	return m.viewMain()
}

func (m model) viewMain() string {
	var b strings.Builder

	s := m.sess.Settings
	header := fmt.Sprintf("%g–%g Hz, %d pts", s.FreqMinHz, s.FreqMaxHz, s.GridPoints)
	b.WriteString("\n   " + cyan.Render("comptune") + "  " + dim.Render(header))
	if m.sess.Measured != nil {
		tag := fmt.Sprintf("measured: %d pts", len(m.sess.Measured.FreqHz))
		if s.SmoothEnabled {
			tag += fmt.Sprintf(", smoothed w=%d", s.SmoothWindow)
		}
		b.WriteString("  " + yellow.Render(tag))
	}
	b.WriteString("\n\n")

	magH, phH := m.chartHeights()
	magData, colors := m.chartData(func(c bode.Curve) []float64 { return c.MagDB })
	writeIndented(&b, asciigraph.PlotMany(magData,
		asciigraph.Height(magH),
		asciigraph.Width(m.chartWidth()),
		asciigraph.Caption("magnitude (dB)"),
		asciigraph.SeriesColors(colors...)))
	b.WriteString("\n")

	phData, colors := m.chartData(func(c bode.Curve) []float64 { return c.PhaseDeg })
	writeIndented(&b, asciigraph.PlotMany(phData,
		asciigraph.Height(phH),
		asciigraph.Width(m.chartWidth()),
		asciigraph.Caption("phase (deg)"),
		asciigraph.SeriesColors(colors...)))

	b.WriteString(m.legend() + "\n")

	m.viewBlocks(&b)
	m.viewReport(&b)

	if m.warn != "" {
		b.WriteString("\n   " + yellow.Render(m.warn) + "\n")
	}
	if m.status != "" {
		b.WriteString("   " + white.Render(m.status) + "\n")
	}
	b.WriteString("\n" + dim.Render("   a add  d del  e on/off  tab param  ←→ adjust  K/J move  u undo  r redo  c ref  i fwd/inv  g overlay  w smooth  o data  l/s preset  n note  q quit") + "\n")

	return b.String()
}

// chartData assembles the plotted series in a fixed order: reference,
// current, then the measured overlay resampled onto the grid axis.
func (m model) chartData(sel func(bode.Curve) []float64) ([][]float64, []asciigraph.AnsiColor) {
	var data [][]float64
	var colors []asciigraph.AnsiColor

	if m.sess.Reference().Len() > 0 {
		data = append(data, sel(m.ref))
		colors = append(colors, asciigraph.Blue)
	}
	data = append(data, sel(m.cur))
	colors = append(colors, asciigraph.Green)

	if m.showMeasured {
		if mc, ok := m.sess.MeasuredDisplay(m.showInverse); ok {
			data = append(data, sampleOnto(mc.FreqHz, sel(mc), m.sess.Grid.Hz))
			colors = append(colors, asciigraph.Yellow)
		}
	}
	return data, colors
}

func (m model) legend() string {
	parts := []string{}
	if m.sess.Reference().Len() > 0 {
		parts = append(parts, blue.Render("── reference"))
	}
	parts = append(parts, green.Render("── current"))
	if m.showMeasured && m.sess.Measured != nil {
		name := "── measured"
		if m.showInverse {
			name = "── measured (inverse)"
		}
		parts = append(parts, yellow.Render(name))
	}
	return "   " + strings.Join(parts, "   ")
}

func (m model) viewBlocks(b *strings.Builder) {
	b.WriteString("\n   " + dim.Render("blocks") + "\n")
	blocks := m.sess.Compensator().Blocks()
	if len(blocks) == 0 {
		b.WriteString("     " + dimmer.Render("(empty cascade is the identity; press a to add a block)") + "\n")
		return
	}
	for i, in := range blocks {
		badge := green.Render(" on")
		if !in.Enabled {
			badge = dimmer.Render("off")
		}

		var params []string
		for j, sp := range in.Block.Schema() {
			p := fmt.Sprintf("%s=%.4g%s", sp.Name, in.Params[sp.Name], sp.Unit)
			if i == m.cursor && j == m.paramCur {
				p = magenta.Render(p)
			} else if i == m.cursor {
				p = white.Render(p)
			} else {
				p = dim.Render(p)
			}
			params = append(params, p)
		}

		name := fmt.Sprintf("%-14s", in.Type())
		if i == m.cursor {
			b.WriteString("   " + cyan.Render("▸ ") + white.Render(name) + badge + "  " + strings.Join(params, "  ") + "\n")
		} else {
			b.WriteString("     " + dim.Render(name) + badge + "  " + strings.Join(params, "  ") + "\n")
		}
	}
}

func (m model) viewReport(b *strings.Builder) {
	if len(m.rows) == 0 {
		return
	}
	b.WriteString("\n   " + dim.Render(fmt.Sprintf("%8s %9s %9s %9s %9s %9s %9s",
		"f (Hz)", "ref dB", "cur dB", "Δ dB", "ref °", "cur °", "Δ °")) + "\n")
	for _, r := range m.rows {
		b.WriteString("   " + white.Render(fmt.Sprintf("%8.4g", r.FreqHz)) +
			dim.Render(fmt.Sprintf(" %9.2f", r.RefMagDB)) +
			white.Render(fmt.Sprintf(" %9.2f", r.MagDB)) +
			magenta.Render(fmt.Sprintf(" %9.2f", r.DeltaMagDB)) +
			dim.Render(fmt.Sprintf(" %9.1f", r.RefPhaseDeg)) +
			white.Render(fmt.Sprintf(" %9.1f", r.PhaseDeg)) +
			magenta.Render(fmt.Sprintf(" %9.1f", r.DeltaPhaseDeg)) + "\n")
	}
	if len(m.markerPhases) == len(m.sess.Settings.MarkerFreqsHz) && len(m.markerPhases) > 0 {
		parts := make([]string, len(m.markerPhases))
		for i, f := range m.sess.Settings.MarkerFreqsHz {
			parts[i] = dim.Render(fmt.Sprintf("%g Hz ", f)) + white.Render(fmt.Sprintf("%.1f°", m.markerPhases[i]))
		}
		b.WriteString("   " + dim.Render("phase markers:  ") + strings.Join(parts, "   ") + "\n")
	}
}

func (m model) viewPicker() string {
	var b strings.Builder

	b.WriteString("\n      " + cyan.Render("add block") + "  " + dim.Render("or load a starter cascade") + "\n")
	b.WriteString(dimmer.Render("      "+strings.Repeat("─", 34)) + "\n\n")

	for i, it := range m.picker {
		label := it.typ
		desc := blockInfo[it.typ]
		if it.typ == "" {
			label = it.preset
			desc = "starter preset"
		}
		if i == m.pickerCur {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-16s", label)) + dim.Render(desc) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-16s", label)) + dimmer.Render(desc) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter confirm   esc back") + "\n")

	return b.String()
}

func (m model) viewPrompt() string {
	var b strings.Builder

	b.WriteString("\n\n      " + m.input.View() + "\n\n")
	b.WriteString(dim.Render("      enter confirm   esc cancel") + "\n")

	return b.String()
}

func (m model) chartWidth() int {
	w := m.width - 14
	if w < 40 {
		w = 40
	}
	if w > 110 {
		w = 110
	}
	return w
}

func (m model) chartHeights() (int, int) {
	if m.height < 34 {
		return 7, 5
	}
	return 10, 8
}

func writeIndented(b *strings.Builder, chart string) {
	for _, line := range strings.Split(chart, "\n") {
		b.WriteString("   " + line + "\n")
	}
}

// sampleOnto moves a measured series onto the evaluation axis by linear
// interpolation in log frequency. Axis points outside the measured span
// come back NaN, which the plot renders as gaps.
func sampleOnto(freq, vals []float64, axis []float64) []float64 {
	out := make([]float64, len(axis))
	for i, f := range axis {
		out[i] = interpLog(freq, vals, f)
	}
	return out
}

func interpLog(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if n == 0 || x < xs[0] || x > xs[n-1] {
		return math.NaN()
	}
	j := sort.SearchFloat64s(xs, x)
	if j < n && xs[j] == x {
		return ys[j]
	}
	lo, hi := xs[j-1], xs[j]
	t := (math.Log10(x) - math.Log10(lo)) / (math.Log10(hi) - math.Log10(lo))
	return ys[j-1] + t*(ys[j]-ys[j-1])
}
