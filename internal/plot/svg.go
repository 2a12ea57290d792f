package plot

import (
	"fmt"
	"io"
	"strings"
)

// SVG renders plots as standalone vector documents.
type SVG struct {
	Width, Height int
	Background    string
}

func NewSVG() SVG {
	return SVG{Width: 800, Height: 480, Background: "#ffffff"}
}

func (SVG) Ext() string { return ".svg" }

func (r SVG) TimeSeries(w io.Writer, ts []float64, ys [][]float64) error {
	if len(ts) < 2 || len(ys) == 0 {
		return ErrNoData
	}
	b, err := extent(ts, ys...)
	if err != nil {
		return err
	}
	var sb strings.Builder
	r.header(&sb)
	for i, series := range ys {
		r.path(&sb, b, ts, series, hex(palette[i%len(palette)]))
	}
	sb.WriteString("</svg>\n")
	_, err = io.WriteString(w, sb.String())
	return err
}

func (r SVG) PhaseSpace(w io.Writer, xs, ys []float64) error {
	if len(xs) < 2 {
		return ErrNoData
	}
	b, err := extent(xs, ys)
	if err != nil {
		return err
	}
	var sb strings.Builder
	r.header(&sb)
	r.path(&sb, b, xs, ys, hex(palette[0]))
	sb.WriteString("</svg>\n")
	_, err = io.WriteString(w, sb.String())
	return err
}

func (r SVG) header(sb *strings.Builder) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, r.Width, r.Height, r.Width, r.Height, r.Background)
}

// path writes one polyline. Non-finite points break the line.
func (r SVG) path(sb *strings.Builder, b bounds, xs, ys []float64, stroke string) {
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, stroke)
	move := true
	for i := range xs {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			move = true
			continue
		}
		x, y := b.project(xs[i], ys[i], r.Width, r.Height)
		if move {
			fmt.Fprintf(sb, "M%.1f,%.1f", x, y)
			move = false
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}
