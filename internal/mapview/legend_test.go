package mapview

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurbidityColormap(t *testing.T) {
	cm := TurbidityColormap()
	require.NoError(t, cm.Validate())

	assert.Equal(t, "Turbidity Values", cm.Caption)
	assert.Equal(t, -1.0, cm.VMin)
	assert.Equal(t, 1.0, cm.VMax)
	assert.Len(t, cm.Index, len(TurbidityPalette))
	assert.Equal(t, -1.0, cm.Index[0])
	assert.Equal(t, 1.0, cm.Index[len(cm.Index)-1])
}

func TestColormap_ColorAt(t *testing.T) {
	cm := TurbidityColormap()

	tests := []struct {
		name string
		v    float64
		want string
	}{
		{"low end", -1, "#0000ff"},
		{"below range", -5, "#0000ff"},
		{"high end", 1, "#ff0000"},
		{"above range", 7, "#ff0000"},
		{"on a stop", cm.Index[3], "#ffff00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cm.ColorAt(tt.v).Hex())
		})
	}
}

func TestColormap_ColorAtInterpolates(t *testing.T) {
	cm := NewColormap([]string{"#000000", "#ffffff"}, 0, 1, "")
	mid := cm.ColorAt(0.5)
	want := colorful.Color{R: 0.5, G: 0.5, B: 0.5}
	assert.InDelta(t, want.R, mid.R, 1e-9)
	assert.InDelta(t, want.G, mid.G, 1e-9)
	assert.InDelta(t, want.B, mid.B, 1e-9)
}

func TestColormap_Validate(t *testing.T) {
	assert.Error(t, Colormap{}.Validate())
	assert.Error(t, Colormap{Colors: []string{"#000000"}, Index: []float64{0, 1}}.Validate())
	assert.Error(t, Colormap{Colors: []string{"nope"}, Index: []float64{0}}.Validate())
	assert.Error(t, Colormap{Colors: []string{"#000000", "#ffffff"}, Index: []float64{1, 0}}.Validate())
}

func TestColormap_Gradient(t *testing.T) {
	g := TurbidityColormap().Gradient()
	assert.Contains(t, g, "linear-gradient(to right, #0000ff 0%")
	assert.Contains(t, g, "#ff0000 100%)")
}

func TestColormap_Ticks(t *testing.T) {
	cm := NewColormap([]string{"#000000", "#888888", "#ffffff"}, -1, 1, "")
	assert.Equal(t, []string{"-1.0", "0.0", "1.0"}, cm.Ticks())
}

func TestColormap_RenderPNG(t *testing.T) {
	data, err := TurbidityColormap().RenderPNG(300, 70)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 70, img.Bounds().Dy())

	_, err = TurbidityColormap().RenderPNG(10, 10)
	assert.Error(t, err)
}
