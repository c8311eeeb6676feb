// Package api exposes HTTP handlers for the dashboard.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"example.com/cancerdash/internal/auth"
	"example.com/cancerdash/internal/domain"
	"example.com/cancerdash/internal/observability"
)

// DatasetReloader re-reads the dataset source and swaps the served snapshot.
type DatasetReloader interface {
	Reload(ctx context.Context) (domain.DatasetInfo, error)
}

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service  *domain.Service
	reloader DatasetReloader // nil when the store does not support reloads
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, reloader DatasetReloader) *Handler {
	return &Handler{service: service, reloader: reloader}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/dimensions", h.dimensions)
	mux.HandleFunc("/v1/series", h.series)
	mux.HandleFunc("/v1/summary", h.summary)
	mux.HandleFunc("/v1/admin/reload", h.reload)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) dimensions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	dims, err := h.service.Dimensions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	info, err := h.service.Info(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := DimensionsResponse{
		Regions:     dims.Geos,
		CancerTypes: dims.CancerTypes,
		Sexes:       dims.Sexes,
		Defaults: FilterDefaults{
			Region:     domain.DefaultGeo,
			CancerType: domain.DefaultCancerType,
			Sexes:      []string{domain.DefaultSex},
		},
		Dataset: DatasetView{
			Rows:       info.Rows,
			Source:     info.Source,
			LoadedAt:   info.LoadedAt,
			YearCutoff: h.service.YearCutoff(),
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) series(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	filter := filterFromQuery(r)
	series, err := h.service.Series(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	observability.RecordSeriesQuery(string(filter.Measure))

	resp := SeriesResponse{
		Measure:    string(filter.Measure),
		Region:     filter.Geo,
		CancerType: filter.CancerType,
		Series:     make([]SeriesView, 0, len(series)),
	}
	for _, s := range series {
		resp.Series = append(resp.Series, toSeriesView(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	filter := filterFromQuery(r)
	summary, err := h.service.Summary(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := SummaryResponse{
		Measure:    string(filter.Measure),
		Region:     filter.Geo,
		CancerType: filter.CancerType,
		Sexes:      filter.Sexes,
		Count:      summary.Count,
		Suppressed: summary.Suppressed,
		Min:        summary.Min,
		Max:        summary.Max,
		Mean:       summary.Mean,
		Median:     summary.Median,
		StdDev:     summary.StdDev,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeDatasetAdmin) {
		writeError(w, http.StatusForbidden, "forbidden", "scope dataset:admin required")
		return
	}

	if h.reloader == nil {
		writeError(w, http.StatusConflict, "reload_unavailable", "dataset store does not support reloads")
		return
	}

	info, err := h.reloader.Reload(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	observability.RecordReload()
	observability.RecordDatasetLoaded(info.Rows, info.LoadedAt)

	writeJSON(w, http.StatusOK, DatasetView{
		Rows:       info.Rows,
		Source:     info.Source,
		LoadedAt:   info.LoadedAt,
		YearCutoff: h.service.YearCutoff(),
	})
}

// filterFromQuery parses filter parameters, falling back to the dashboard's
// default selections when a parameter is omitted.
func filterFromQuery(r *http.Request) domain.Filter {
	q := r.URL.Query()

	measure := domain.Measure(strings.TrimSpace(q.Get("measure")))
	if measure == "" {
		measure = domain.MeasureNewCases
	}

	region := strings.TrimSpace(q.Get("region"))
	if region == "" {
		region = domain.DefaultGeo
	}

	cancerType := strings.TrimSpace(q.Get("cancer_type"))
	if cancerType == "" {
		cancerType = domain.DefaultCancerType
	}

	sexes := make([]string, 0, len(q["sex"]))
	for _, sex := range q["sex"] {
		if trimmed := strings.TrimSpace(sex); trimmed != "" {
			sexes = append(sexes, trimmed)
		}
	}
	if len(sexes) == 0 {
		sexes = []string{domain.DefaultSex}
	}

	return domain.Filter{
		Measure:    measure,
		Geo:        region,
		CancerType: cancerType,
		Sexes:      sexes,
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownMeasure), errors.Is(err, domain.ErrNoSexSelected):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNoObservations):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

// DimensionsResponse lists the filterable dimensions and dataset metadata.
type DimensionsResponse struct {
	Regions     []string       `json:"regions"`
	CancerTypes []string       `json:"cancer_types"`
	Sexes       []string       `json:"sexes"`
	Defaults    FilterDefaults `json:"defaults"`
	Dataset     DatasetView    `json:"dataset"`
}

// FilterDefaults carries the initial dashboard selections.
type FilterDefaults struct {
	Region     string   `json:"region"`
	CancerType string   `json:"cancer_type"`
	Sexes      []string `json:"sexes"`
}

// DatasetView describes the served dataset snapshot.
type DatasetView struct {
	Rows       int       `json:"rows"`
	Source     string    `json:"source"`
	LoadedAt   time.Time `json:"loaded_at"`
	YearCutoff int       `json:"year_cutoff"`
}

// PointView is one (year, value) pair of a plotted line.
type PointView struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// TrendView describes the fitted trend line of a series.
type TrendView struct {
	Intercept float64     `json:"intercept"`
	Slope     float64     `json:"slope"`
	Points    []PointView `json:"points"`
}

// SeriesView is the plotted line for one sex.
type SeriesView struct {
	Sex    string      `json:"sex"`
	Points []PointView `json:"points"`
	Trend  *TrendView  `json:"trend,omitempty"`
}

// SeriesResponse packages the lines for one chart.
type SeriesResponse struct {
	Measure    string       `json:"measure"`
	Region     string       `json:"region"`
	CancerType string       `json:"cancer_type"`
	Series     []SeriesView `json:"series"`
}

// SummaryResponse carries aggregate statistics for a filter.
type SummaryResponse struct {
	Measure    string   `json:"measure"`
	Region     string   `json:"region"`
	CancerType string   `json:"cancer_type"`
	Sexes      []string `json:"sexes"`
	Count      int      `json:"count"`
	Suppressed int      `json:"suppressed"`
	Min        float64  `json:"min"`
	Max        float64  `json:"max"`
	Mean       float64  `json:"mean"`
	Median     float64  `json:"median"`
	StdDev     float64  `json:"std_dev"`
}

func toSeriesView(s domain.Series) SeriesView {
	view := SeriesView{
		Sex:    s.Sex,
		Points: make([]PointView, 0, len(s.Points)),
	}
	for _, p := range s.Points {
		view.Points = append(view.Points, PointView(p))
	}
	if s.Trend != nil {
		trend := TrendView{
			Intercept: s.Trend.Intercept,
			Slope:     s.Trend.Slope,
			Points:    make([]PointView, 0, len(s.Trend.Points)),
		}
		for _, p := range s.Trend.Points {
			trend.Points = append(trend.Points, PointView(p))
		}
		view.Trend = &trend
	}
	return view
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
