// Package domain defines the business logic for the incidence dashboard.
package domain

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrUnknownMeasure is returned when the filter names a measure the dataset does not carry.
	ErrUnknownMeasure = errors.New("unknown measure")
	// ErrNoObservations is returned when the filter matches no plottable rows.
	ErrNoObservations = errors.New("no observations match the filter")
	// ErrNoSexSelected is returned when the filter requests zero sexes.
	ErrNoSexSelected = errors.New("at least one sex must be selected")
)

// Filter narrows the dataset to the slice a chart renders. Empty Geo or
// CancerType means no constraint on that dimension.
type Filter struct {
	Measure    Measure
	Geo        string
	CancerType string
	Sexes      []string
}

// Point is a single plotted (year, value) pair.
type Point struct {
	Year  int
	Value float64
}

// Trend is the ordinary least-squares line fitted to a series.
type Trend struct {
	Intercept float64
	Slope     float64
	Points    []Point
}

// Series is the plotted line for one sex.
type Series struct {
	Sex    string
	Points []Point
	Trend  *Trend
}

// Dimensions lists the distinct filter values present in the dataset, in
// order of first appearance.
type Dimensions struct {
	Geos        []string
	CancerTypes []string
	Sexes       []string
}

// DatasetInfo describes the currently served dataset snapshot.
type DatasetInfo struct {
	Rows     int
	Source   string
	LoadedAt time.Time
}

// MeasureSummary aggregates the values matched by a filter.
type MeasureSummary struct {
	Count      int
	Suppressed int
	Min        float64
	Max        float64
	Mean       float64
	Median     float64
	StdDev     float64
}

// Repository provides read access to the loaded dataset.
type Repository interface {
	Dimensions(ctx context.Context) (Dimensions, error)
	Observations(ctx context.Context, f Filter) ([]Observation, error)
	Info(ctx context.Context) (DatasetInfo, error)
}

// Service answers dashboard queries over a dataset repository.
type Service struct {
	repo       Repository
	yearCutoff int
}

// NewService constructs a Service. Observations after yearCutoff are excluded
// from every series; a cutoff of 0 disables the truncation.
func NewService(repo Repository, yearCutoff int) *Service {
	return &Service{repo: repo, yearCutoff: yearCutoff}
}

// YearCutoff reports the reference-year truncation applied to series.
func (s *Service) YearCutoff() int {
	return s.yearCutoff
}

// Dimensions returns the distinct filter values of the dataset.
func (s *Service) Dimensions(ctx context.Context) (Dimensions, error) {
	return s.repo.Dimensions(ctx)
}

// Info reports metadata about the served dataset snapshot.
func (s *Service) Info(ctx context.Context) (DatasetInfo, error) {
	return s.repo.Info(ctx)
}

// Series builds one plotted line per requested sex, each with a fitted trend
// line when the series carries at least two points. Suppressed cells and
// observations past the year cutoff are skipped.
func (s *Service) Series(ctx context.Context, f Filter) ([]Series, error) {
	if f.Measure.Characteristic() == "" {
		return nil, ErrUnknownMeasure
	}
	if len(f.Sexes) == 0 {
		return nil, ErrNoSexSelected
	}

	obs, err := s.repo.Observations(ctx, f)
	if err != nil {
		return nil, err
	}

	bySex := make(map[string][]Point, len(f.Sexes))
	for _, o := range obs {
		if o.Suppressed {
			continue
		}
		if s.yearCutoff > 0 && o.RefDate > s.yearCutoff {
			continue
		}
		bySex[o.Sex] = append(bySex[o.Sex], Point{Year: o.RefDate, Value: o.Value})
	}

	out := make([]Series, 0, len(f.Sexes))
	total := 0
	for _, sex := range f.Sexes {
		points := bySex[sex]
		sort.Slice(points, func(i, j int) bool { return points[i].Year < points[j].Year })
		total += len(points)
		out = append(out, Series{Sex: sex, Points: points, Trend: fitTrend(points)})
	}
	if total == 0 {
		return nil, ErrNoObservations
	}
	return out, nil
}

// Summary computes aggregate statistics over the values matched by the
// filter, pooled across the requested sexes.
func (s *Service) Summary(ctx context.Context, f Filter) (MeasureSummary, error) {
	if f.Measure.Characteristic() == "" {
		return MeasureSummary{}, ErrUnknownMeasure
	}
	if len(f.Sexes) == 0 {
		return MeasureSummary{}, ErrNoSexSelected
	}

	obs, err := s.repo.Observations(ctx, f)
	if err != nil {
		return MeasureSummary{}, err
	}

	summary := MeasureSummary{}
	values := make(stats.Float64Data, 0, len(obs))
	for _, o := range obs {
		if s.yearCutoff > 0 && o.RefDate > s.yearCutoff {
			continue
		}
		if o.Suppressed {
			summary.Suppressed++
			continue
		}
		values = append(values, o.Value)
	}
	if len(values) == 0 {
		return MeasureSummary{}, ErrNoObservations
	}

	summary.Count = len(values)
	if summary.Min, err = values.Min(); err != nil {
		return MeasureSummary{}, err
	}
	if summary.Max, err = values.Max(); err != nil {
		return MeasureSummary{}, err
	}
	if summary.Mean, err = values.Mean(); err != nil {
		return MeasureSummary{}, err
	}
	if summary.Median, err = values.Median(); err != nil {
		return MeasureSummary{}, err
	}
	if len(values) > 1 {
		if summary.StdDev, err = values.StandardDeviationSample(); err != nil {
			return MeasureSummary{}, err
		}
	}
	return summary, nil
}

// fitTrend fits value ~ year by ordinary least squares and evaluates the
// line at each observed year. Series shorter than two points get no trend.
func fitTrend(points []Point) *Trend {
	if len(points) < 2 {
		return nil
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.Year)
		ys[i] = p.Value
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	fitted := make([]Point, len(points))
	for i, p := range points {
		fitted[i] = Point{Year: p.Year, Value: alpha + beta*float64(p.Year)}
	}
	return &Trend{Intercept: alpha, Slope: beta, Points: fitted}
}
