package input

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/water-quality/internal/aoi"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	req, err := Parse(DefaultForm())
	require.NoError(t, err)

	assert.InDelta(t, 1.845125, req.Coordinate.Lat, 1e-9)
	assert.InDelta(t, 35.304635, req.Coordinate.Lon, 1e-9)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), req.Start)
	assert.Equal(t, time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), req.End)
	assert.InDelta(t, 2.0, req.BufferKm, 1e-9)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Form)
		want   error
	}{
		{"non-numeric buffer", func(f *Form) { f.BufferKm = "two" }, ErrInvalidBuffer},
		{"empty buffer", func(f *Form) { f.BufferKm = " " }, ErrInvalidBuffer},
		{"zero buffer", func(f *Form) { f.BufferKm = "0" }, ErrInvalidBuffer},
		{"negative buffer", func(f *Form) { f.BufferKm = "-1" }, ErrInvalidBuffer},
		{"bad coordinate", func(f *Form) { f.Coordinate = "somewhere" }, aoi.ErrInvalidCoordinate},
		{"three tokens", func(f *Form) { f.Coordinate = "1,2,3" }, aoi.ErrInvalidCoordinate},
		{"latitude out of range", func(f *Form) { f.Coordinate = "91, 35" }, ErrOutOfRange},
		{"longitude out of range", func(f *Form) { f.Coordinate = "1, 181" }, ErrOutOfRange},
		{"bad start", func(f *Form) { f.Start = "01/01/2020" }, ErrInvalidDate},
		{"bad end", func(f *Form) { f.End = "2020-13-01" }, ErrInvalidDate},
		{"end before start", func(f *Form) { f.End = "2019-12-31" }, ErrInvalidDateRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultForm()
			tt.mutate(&f)
			req, err := Parse(f)
			assert.Nil(t, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_SameDayRange(t *testing.T) {
	t.Parallel()

	f := DefaultForm()
	f.End = f.Start
	_, err := Parse(f)
	assert.NoError(t, err)
}

func TestFormFromValues(t *testing.T) {
	t.Parallel()

	f := FormFromValues(url.Values{"coord": {"-1.2, 36.8"}, "buffer": {""}})
	assert.Equal(t, "-1.2, 36.8", f.Coordinate)
	assert.Equal(t, "", f.BufferKm)
	assert.Equal(t, DefaultStart, f.Start)
	assert.Equal(t, DefaultEnd, f.End)

	assert.Equal(t, DefaultForm(), FormFromValues(url.Values{}))
	assert.Equal(t, f, FormFromValues(f.Values()))
}
