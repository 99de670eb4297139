package mapview

import (
	"embed"
	"html/template"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/water-quality/internal/analysis"
	"github.com/sells-group/water-quality/internal/input"
)

// Title heads the page.
const Title = "Water Quality Analysis using Google Earth Engine and Sentinel-2 Imagery"

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

// Page is the data behind one render of the tool.
type Page struct {
	Title  string
	Form   input.Form
	View   *View
	Scene  *analysis.Scene
	Mean   *float64
	Errors []string
	Notice string
}

// NewPage starts a page for the given inputs.
func NewPage(form input.Form) *Page {
	return &Page{Title: Title, Form: form}
}

// MeanText formats the mean turbidity, which may be missing.
func (p *Page) MeanText() string {
	return FormatMean(p.Mean)
}

// FormatMean renders a possibly missing statistic.
func FormatMean(v *float64) string {
	if v == nil {
		return "not available"
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}

// AddError appends a user-visible error.
func (p *Page) AddError(msg string) {
	p.Errors = append(p.Errors, msg)
}

// GradientCSS is Gradient marked safe for a style attribute.
func (c Colormap) GradientCSS() template.CSS {
	return template.CSS(c.Gradient())
}

// Render writes the page as HTML.
func Render(w io.Writer, p *Page) error {
	if err := pageTemplate.Execute(w, p); err != nil {
		return eris.Wrap(err, "mapview: render page")
	}
	return nil
}
