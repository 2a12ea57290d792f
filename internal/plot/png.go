package plot

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
)

// PNG rasterises plots with the standard image encoders.
type PNG struct {
	Width, Height int
	Margin        int
}

func NewPNG() PNG {
	return PNG{Width: 800, Height: 480, Margin: 40}
}

func (PNG) Ext() string { return ".png" }

func (r PNG) TimeSeries(w io.Writer, ts []float64, ys [][]float64) error {
	if len(ts) < 2 || len(ys) == 0 {
		return ErrNoData
	}
	b, err := extent(ts, ys...)
	if err != nil {
		return err
	}
	img := r.canvas()
	for i, series := range ys {
		r.polyline(img, b, ts, series, palette[i%len(palette)])
	}
	return png.Encode(w, img)
}

func (r PNG) PhaseSpace(w io.Writer, xs, ys []float64) error {
	if len(xs) < 2 {
		return ErrNoData
	}
	b, err := extent(xs, ys)
	if err != nil {
		return err
	}
	img := r.canvas()
	r.polyline(img, b, xs, ys, palette[0])
	return png.Encode(w, img)
}

func (r PNG) canvas() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	axis := color.RGBA{0x44, 0x44, 0x44, 0xff}
	m := r.Margin
	line(img, m, r.Height-m, r.Width-m, r.Height-m, axis)
	line(img, m, m, m, r.Height-m, axis)
	return img
}

func (r PNG) polyline(img *image.RGBA, b bounds, xs, ys []float64, c color.RGBA) {
	w, h := r.Width-2*r.Margin, r.Height-2*r.Margin
	havePrev := false
	var px, py int
	for i := range xs {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			havePrev = false
			continue
		}
		fx, fy := b.project(xs[i], ys[i], w, h)
		x, y := int(math.Round(fx))+r.Margin, int(math.Round(fy))+r.Margin
		if havePrev {
			line(img, px, py, x, y, c)
		}
		px, py, havePrev = x, y, true
	}
}

// line draws with Bresenham's algorithm, clipped to the image.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	bounds := img.Bounds()
	for {
		if image.Pt(x0, y0).In(bounds) {
			img.SetRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
