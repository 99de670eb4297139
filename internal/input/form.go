// Package input collects and validates the four sidebar inputs that drive
// an analysis run.
package input

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"github.com/sells-group/water-quality/internal/aoi"
)

// Defaults shown in the sidebar.
const (
	DefaultCoordinate = "1.845125, 35.304635"
	DefaultStart      = "2020-01-01"
	DefaultEnd        = "2020-12-31"
	DefaultBufferKm   = "2"
)

// Sentinel errors for user-correctable input.
var (
	ErrInvalidBuffer    = eris.New("invalid buffer size: enter a positive number of kilometers")
	ErrInvalidDate      = eris.New("invalid date: use YYYY-MM-DD")
	ErrInvalidDateRange = eris.New("invalid date range: end date is before start date")
	ErrOutOfRange       = eris.New("invalid coordinate: latitude must be within ±90 and longitude within ±180")
)

// Form is the raw text of the sidebar controls.
type Form struct {
	Coordinate string `json:"coordinate" yaml:"coordinate"`
	Start      string `json:"start" yaml:"start"`
	End        string `json:"end" yaml:"end"`
	BufferKm   string `json:"buffer_km" yaml:"buffer_km"`
}

// DefaultForm returns the controls as first shown.
func DefaultForm() Form {
	return Form{
		Coordinate: DefaultCoordinate,
		Start:      DefaultStart,
		End:        DefaultEnd,
		BufferKm:   DefaultBufferKm,
	}
}

// FormFromValues reads the controls from query or form values. Absent
// fields keep their defaults; present-but-empty fields stay empty so they
// fail validation instead of silently reverting.
func FormFromValues(v url.Values) Form {
	f := DefaultForm()
	if _, ok := v["coord"]; ok {
		f.Coordinate = v.Get("coord")
	}
	if _, ok := v["start"]; ok {
		f.Start = v.Get("start")
	}
	if _, ok := v["end"]; ok {
		f.End = v.Get("end")
	}
	if _, ok := v["buffer"]; ok {
		f.BufferKm = v.Get("buffer")
	}
	return f
}

// Values is the inverse of FormFromValues.
func (f Form) Values() url.Values {
	return url.Values{
		"coord":  {f.Coordinate},
		"start":  {f.Start},
		"end":    {f.End},
		"buffer": {f.BufferKm},
	}
}

// Request is a validated analysis request.
type Request struct {
	Coordinate aoi.Coordinate `json:"coordinate"`
	Lat        float64        `json:"-" validate:"gte=-90,lte=90"`
	Lon        float64        `json:"-" validate:"gte=-180,lte=180"`
	Start      time.Time      `json:"start" validate:"required"`
	End        time.Time      `json:"end" validate:"required,gtefield=Start"`
	BufferKm   float64        `json:"buffer_km" validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Parse validates the form. The buffer text is checked before it is
// converted, so a non-numeric radius is an ordinary input error.
func Parse(f Form) (*Request, error) {
	buffer, err := parseBuffer(f.BufferKm)
	if err != nil {
		return nil, err
	}

	start, err := time.Parse(time.DateOnly, strings.TrimSpace(f.Start))
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidDate, "start %q", f.Start)
	}
	end, err := time.Parse(time.DateOnly, strings.TrimSpace(f.End))
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidDate, "end %q", f.End)
	}

	coord, err := aoi.ParseCoordinate(f.Coordinate)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Coordinate: coord,
		Lat:        coord.Lat,
		Lon:        coord.Lon,
		Start:      start,
		End:        end,
		BufferKm:   buffer,
	}
	if err := validate.Struct(req); err != nil {
		return nil, translate(err)
	}
	return req, nil
}

func parseBuffer(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, ErrInvalidBuffer
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidBuffer
	}
	return v, nil
}

// translate maps the first failing field to a user-facing sentinel.
func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return eris.Wrap(err, "input: validate")
	}
	switch verrs[0].Field() {
	case "BufferKm":
		return ErrInvalidBuffer
	case "End":
		return ErrInvalidDateRange
	case "Lat", "Lon":
		return ErrOutOfRange
	default:
		return ErrInvalidDate
	}
}
