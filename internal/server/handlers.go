package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/water-quality/internal/analysis"
	"github.com/sells-group/water-quality/internal/aoi"
	"github.com/sells-group/water-quality/internal/export"
	"github.com/sells-group/water-quality/internal/input"
	"github.com/sells-group/water-quality/internal/mapview"
	"github.com/sells-group/water-quality/internal/monitoring"
	"github.com/sells-group/water-quality/internal/resilience"
)

// unavailable is shown for failures that may go away on retry.
const unavailable = "The imagery service is temporarily unavailable. Please try again in a moment."

// run executes the pipeline for form and fills a page with whatever could
// be computed. The page is always renderable.
func (s *Server) run(ctx context.Context, form input.Form) (*mapview.Page, *analysis.Result, error) {
	page := mapview.NewPage(form)

	req, err := input.Parse(form)
	if err != nil {
		monitoring.IncRun("invalid_input")
		page.AddError(userMessage(err))
		return page, nil, err
	}

	res, err := s.runner.Run(ctx, *req)
	if err != nil {
		page.AddError(userMessage(err))
	}
	if res == nil {
		return page, nil, err
	}

	// A map is shown for a complete run and for the no-data case, where it
	// still marks the area that was searched.
	if err == nil || errors.Is(err, analysis.ErrNoScene) {
		view := s.presenter.Build(ctx, res)
		page.View = &view
		page.Scene = res.Scene
		page.Mean = res.Stats.Mean
	}
	return page, res, err
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, _, _ := s.run(r.Context(), input.FormFromValues(r.URL.Query()))
	s.render(w, page)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		page := mapview.NewPage(input.DefaultForm())
		page.AddError("Could not read the submitted form.")
		s.render(w, page)
		return
	}

	page, res, err := s.run(r.Context(), input.FormFromValues(r.PostForm))
	if err != nil {
		page.AddError("Nothing was exported.")
		s.render(w, page)
		return
	}

	report, err := s.exporter.Export(r.Context(), mapview.Raster{Image: res.Rasters.WaterMask}, res.Area)
	switch {
	case err != nil:
		zap.L().Warn("server: export failed", zap.Error(err), zap.String("request_id", RequestIDFrom(r.Context())))
		page.AddError(exportMessage(err))
	default:
		page.Notice = fmt.Sprintf("Saved %d water bodies to %s.", report.Features, export.FileName)
	}
	s.render(w, page)
}

// analysisResponse is the JSON form of a run.
type analysisResponse struct {
	Input  input.Form       `json:"input"`
	Result *analysis.Result `json:"result,omitempty"`
	View   *mapview.View    `json:"view,omitempty"`
	Errors []string         `json:"errors,omitempty"`
}

func (s *Server) handleAnalysisAPI(w http.ResponseWriter, r *http.Request) {
	form := input.FormFromValues(r.URL.Query())
	page, res, err := s.run(r.Context(), form)

	status := http.StatusOK
	switch {
	case err == nil, errors.Is(err, analysis.ErrNoScene):
	case isInputError(err):
		status = http.StatusBadRequest
	case errors.Is(err, resilience.ErrCircuitOpen), resilience.IsTransient(err):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusBadGateway
	}

	writeJSON(w, status, analysisResponse{
		Input:  form,
		Result: res,
		View:   page.View,
		Errors: page.Errors,
	})
}

func (s *Server) handleLegend(w http.ResponseWriter, _ *http.Request) {
	data, err := mapview.TurbidityColormap().RenderPNG(320, 70)
	if err != nil {
		zap.L().Error("server: render legend", zap.Error(err))
		http.Error(w, "legend unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]string{"status": "ok"}
	if s.health != nil {
		for k, v := range s.health() {
			body[k] = v
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) render(w http.ResponseWriter, page *mapview.Page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := mapview.Render(w, page); err != nil {
		zap.L().Error("server: render page", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func isInputError(err error) bool {
	for _, target := range []error{
		aoi.ErrInvalidCoordinate,
		aoi.ErrInvalidRadius,
		input.ErrInvalidBuffer,
		input.ErrInvalidDate,
		input.ErrInvalidDateRange,
		input.ErrOutOfRange,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// userMessage turns a pipeline error into page text.
func userMessage(err error) string {
	switch {
	case errors.Is(err, aoi.ErrInvalidCoordinate):
		return "Invalid coordinate input. Please enter comma-separated latitude and longitude."
	case isInputError(err):
		return err.Error()
	case errors.Is(err, analysis.ErrNoScene):
		return analysis.ErrNoScene.Error()
	case errors.Is(err, resilience.ErrCircuitOpen), resilience.IsTransient(err):
		return unavailable
	default:
		return "Analysis failed: " + err.Error()
	}
}

func exportMessage(err error) string {
	switch {
	case errors.Is(err, export.ErrNotVectorizable):
		return export.ErrNotVectorizable.Error()
	case errors.Is(err, resilience.ErrCircuitOpen), resilience.IsTransient(err):
		return unavailable
	default:
		return "Export failed: " + err.Error()
	}
}
