package mapview

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
)

// TurbidityPalette is the color ramp of the turbidity layer, low to high.
var TurbidityPalette = []string{"#0000FF", "#3399FF", "#66CC00", "#FFFF00", "#FF9900", "#FF0000"}

// Colormap is a piecewise linear color ramp. Index holds one value per
// color, ascending.
type Colormap struct {
	Colors  []string  `json:"colors"`
	Index   []float64 `json:"index"`
	VMin    float64   `json:"vmin"`
	VMax    float64   `json:"vmax"`
	Caption string    `json:"caption"`
}

// TurbidityColormap is the legend shown next to the map.
func TurbidityColormap() Colormap {
	return NewColormap(TurbidityPalette, -1, 1, "Turbidity Values")
}

// NewColormap spreads colors evenly over [vmin, vmax].
func NewColormap(colors []string, vmin, vmax float64, caption string) Colormap {
	index := make([]float64, len(colors))
	for i := range colors {
		if len(colors) == 1 {
			index[i] = vmin
			continue
		}
		index[i] = vmin + (vmax-vmin)*float64(i)/float64(len(colors)-1)
	}
	return Colormap{Colors: colors, Index: index, VMin: vmin, VMax: vmax, Caption: caption}
}

// Validate checks that colors parse and the index is ascending.
func (c Colormap) Validate() error {
	if len(c.Colors) == 0 {
		return eris.New("mapview: colormap has no colors")
	}
	if len(c.Index) != len(c.Colors) {
		return eris.Errorf("mapview: %d colors but %d index values", len(c.Colors), len(c.Index))
	}
	for i, hex := range c.Colors {
		if _, err := colorful.Hex(hex); err != nil {
			return eris.Wrapf(err, "mapview: color %q", hex)
		}
		if i > 0 && c.Index[i] < c.Index[i-1] {
			return eris.New("mapview: colormap index is not ascending")
		}
	}
	return nil
}

// ColorAt returns the color for v. Values outside the index are clamped.
func (c Colormap) ColorAt(v float64) colorful.Color {
	cols := make([]colorful.Color, len(c.Colors))
	for i, hex := range c.Colors {
		col, err := colorful.Hex(hex)
		if err != nil {
			col = colorful.Color{}
		}
		cols[i] = col
	}

	if len(cols) == 1 || v <= c.Index[0] {
		return cols[0]
	}
	last := len(cols) - 1
	if v >= c.Index[last] {
		return cols[last]
	}
	for i := 1; i <= last; i++ {
		if v <= c.Index[i] {
			span := c.Index[i] - c.Index[i-1]
			if span == 0 {
				return cols[i]
			}
			return cols[i-1].BlendRgb(cols[i], (v-c.Index[i-1])/span).Clamped()
		}
	}
	return cols[last]
}

// Gradient renders the ramp as a CSS linear-gradient.
func (c Colormap) Gradient() string {
	stops := make([]string, len(c.Colors))
	span := c.VMax - c.VMin
	for i, hex := range c.Colors {
		pct := 0.0
		if span != 0 {
			pct = (c.Index[i] - c.VMin) / span * 100
		}
		stops[i] = fmt.Sprintf("%s %.0f%%", strings.ToLower(hex), pct)
	}
	return "linear-gradient(to right, " + strings.Join(stops, ", ") + ")"
}

// Ticks are the labelled values under the ramp.
func (c Colormap) Ticks() []string {
	out := make([]string, len(c.Index))
	for i, v := range c.Index {
		out[i] = fmt.Sprintf("%.1f", v)
	}
	return out
}

// RenderPNG draws the ramp with its caption and tick labels.
func (c Colormap) RenderPNG(width, height int) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if width < 40 || height < 40 {
		return nil, eris.Errorf("mapview: legend size %dx%d too small", width, height)
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	const pad = 10.0
	barTop := 22.0
	barHeight := float64(height) - barTop - 22
	barWidth := float64(width) - 2*pad

	for x := 0; x < int(barWidth); x++ {
		v := c.VMin + (c.VMax-c.VMin)*float64(x)/barWidth
		r, g, b := c.ColorAt(v).RGB255()
		dc.SetRGB255(int(r), int(g), int(b))
		dc.DrawRectangle(pad+float64(x), barTop, 1, barHeight)
		dc.Fill()
	}

	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawRectangle(pad, barTop, barWidth, barHeight)
	dc.Stroke()

	dc.DrawStringAnchored(c.Caption, float64(width)/2, 10, 0.5, 0.5)
	span := c.VMax - c.VMin
	for i, label := range c.Ticks() {
		x := pad
		if span != 0 {
			x += (c.Index[i] - c.VMin) / span * barWidth
		}
		dc.DrawStringAnchored(label, x, barTop+barHeight+10, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, eris.Wrap(err, "mapview: encode legend")
	}
	return buf.Bytes(), nil
}
