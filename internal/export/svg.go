// Package export renders tuning results to files: a standalone Bode SVG
// and response tables in CSV or JSON.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkarhu/comptune/internal/bode"
)

// Default stroke colors for the well-known series.
const (
	ColorCurrent   = "#00ff00"
	ColorReference = "#00bfff"
	ColorMeasured  = "#ff8c00"
)

// Series is one named curve to draw.
type Series struct {
	Name  string
	Color string
	Curve bode.Curve
}

// BodeSVG renders the series as stacked magnitude and phase panels on a
// log frequency axis. Series with fewer than two points are skipped; an
// empty result string means nothing was drawable.
func BodeSVG(series []Series, width, height int) string {
	var drawable []Series
	fmin, fmax := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		if len(s.Curve.FreqHz) < 2 {
			continue
		}
		drawable = append(drawable, s)
		for _, f := range s.Curve.FreqHz {
			if f < fmin {
				fmin = f
			}
			if f > fmax {
				fmax = f
			}
		}
	}
	if len(drawable) == 0 || !(fmin > 0) || !(fmax > fmin) {
		return ""
	}

	const (
		left   = 56.0
		right  = 16.0
		top    = 28.0
		bottom = 36.0
		gap    = 28.0
	)
	w := float64(width)
	h := float64(height)
	plotW := w - left - right
	panelH := (h - top - bottom - gap) / 2

	logMin := math.Log10(fmin)
	logMax := math.Log10(fmax)
	span := logMax - logMin
	logMin -= span * 0.02
	logMax += span * 0.02
	xOf := func(f float64) float64 {
		return left + (math.Log10(f)-logMin)/(logMax-logMin)*plotW
	}

	var decades []float64
	for k := math.Ceil(math.Log10(fmin)); math.Pow(10, k) <= fmax; k++ {
		decades = append(decades, math.Pow(10, k))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	panels := []struct {
		label  string
		y0     float64
		values func(bode.Curve) []float64
	}{
		{"magnitude (dB)", top, func(c bode.Curve) []float64 { return c.MagDB }},
		{"phase (deg)", top + panelH + gap, func(c bode.Curve) []float64 { return c.PhaseDeg }},
	}

	for _, p := range panels {
		minY, maxY := math.Inf(1), math.Inf(-1)
		for _, s := range drawable {
			for _, v := range p.values(s.Curve) {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					continue
				}
				if v < minY {
					minY = v
				}
				if v > maxY {
					maxY = v
				}
			}
		}
		if minY > maxY {
			minY, maxY = -1, 1
		}
		rangeY := maxY - minY
		if rangeY == 0 {
			rangeY = 1
		}
		minY -= rangeY * 0.1
		maxY += rangeY * 0.1
		rangeY = maxY - minY
		yOf := func(v float64) float64 {
			return p.y0 + panelH - (v-minY)/rangeY*panelH
		}

		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="none" stroke="#333333"/>
`, left, p.y0, plotW, panelH))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" fill="#999999" font-family="monospace" font-size="12">%s</text>
`, left, p.y0-8, p.label))

		for _, f := range decades {
			x := xOf(f)
			sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#222222"/>
`, x, p.y0, x, p.y0+panelH))
		}
		mid := (minY + maxY) / 2
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#222222"/>
`, left, yOf(mid), left+plotW, yOf(mid)))
		for _, v := range []float64{maxY, mid, minY} {
			sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" fill="#777777" font-family="monospace" font-size="10" text-anchor="end">%.3g</text>
`, left-6, yOf(v)+3, v))
		}

		for _, s := range drawable {
			color := s.Color
			if color == "" {
				color = ColorCurrent
			}
			d := pathData(s.Curve.FreqHz, p.values(s.Curve), xOf, yOf)
			if d == "" {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="%s"/>
`, color, d))
		}
	}

	for _, f := range decades {
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" fill="#777777" font-family="monospace" font-size="10" text-anchor="middle">%g</text>
`, xOf(f), h-bottom+16, f))
	}
	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" fill="#999999" font-family="monospace" font-size="12" text-anchor="middle">frequency (Hz)</text>
`, left+plotW/2, h-6))

	x := left
	for _, s := range drawable {
		color := s.Color
		if color == "" {
			color = ColorCurrent
		}
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="16" fill="%s" font-family="monospace" font-size="12">%s</text>
`, x, color, s.Name))
		x += float64(10*len(s.Name) + 24)
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// pathData builds an SVG path, lifting the pen across non-finite values
// so singular points leave gaps instead of spikes.
func pathData(xs, ys []float64, xOf, yOf func(float64) float64) string {
	var sb strings.Builder
	pen := false
	for i := range xs {
		v := ys[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			pen = false
			continue
		}
		x := xOf(xs[i])
		y := yOf(v)
		if !pen {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(fmt.Sprintf("M%.1f,%.1f", x, y))
			pen = true
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}
	return sb.String()
}
