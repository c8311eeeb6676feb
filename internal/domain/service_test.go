package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	obs  []Observation
	dims Dimensions
	info DatasetInfo
	last Filter
}

func (r *stubRepo) Dimensions(ctx context.Context) (Dimensions, error) {
	return r.dims, nil
}

func (r *stubRepo) Observations(ctx context.Context, f Filter) ([]Observation, error) {
	r.last = f
	return r.obs, nil
}

func (r *stubRepo) Info(ctx context.Context) (DatasetInfo, error) {
	return r.info, nil
}

func obsRow(year int, sex string, value float64) Observation {
	return Observation{
		RefDate:        year,
		Geo:            DefaultGeo,
		CancerType:     DefaultCancerType,
		Sex:            sex,
		Characteristic: MeasureNewCases.Characteristic(),
		Value:          value,
	}
}

func TestSeriesSortsAndTruncates(t *testing.T) {
	repo := &stubRepo{obs: []Observation{
		obsRow(2016, "Both sexes", 190000),
		obsRow(2014, "Both sexes", 180000),
		obsRow(2019, "Both sexes", 210000), // past the cutoff
		obsRow(2015, "Both sexes", 185000),
	}}
	service := NewService(repo, 2017)

	series, err := service.Series(context.Background(), Filter{
		Measure: MeasureNewCases,
		Geo:     DefaultGeo,
		Sexes:   []string{"Both sexes"},
	})
	require.NoError(t, err)
	require.Len(t, series, 1)

	years := make([]int, 0, len(series[0].Points))
	for _, p := range series[0].Points {
		years = append(years, p.Year)
	}
	require.Equal(t, []int{2014, 2015, 2016}, years)
}

func TestSeriesSkipsSuppressedCells(t *testing.T) {
	suppressed := obsRow(2015, "Male", 0)
	suppressed.Suppressed = true

	repo := &stubRepo{obs: []Observation{
		obsRow(2014, "Male", 90000),
		suppressed,
		obsRow(2016, "Male", 95000),
	}}
	service := NewService(repo, 2017)

	series, err := service.Series(context.Background(), Filter{
		Measure: MeasureNewCases,
		Sexes:   []string{"Male"},
	})
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Len(t, series[0].Points, 2)
}

func TestSeriesFitsTrendOnKnownLine(t *testing.T) {
	// Values on y = 2x + 1; the fit must recover it exactly.
	repo := &stubRepo{obs: []Observation{
		obsRow(2010, "Both sexes", 2*2010+1),
		obsRow(2011, "Both sexes", 2*2011+1),
		obsRow(2012, "Both sexes", 2*2012+1),
		obsRow(2013, "Both sexes", 2*2013+1),
	}}
	service := NewService(repo, 2017)

	series, err := service.Series(context.Background(), Filter{
		Measure: MeasureNewCases,
		Sexes:   []string{"Both sexes"},
	})
	require.NoError(t, err)
	require.Len(t, series, 1)

	trend := series[0].Trend
	require.NotNil(t, trend)
	require.InDelta(t, 2.0, trend.Slope, 1e-9)
	require.InDelta(t, 1.0, trend.Intercept, 1e-9)
	require.Len(t, trend.Points, 4)
	require.InDelta(t, float64(2*2010+1), trend.Points[0].Value, 1e-9)
}

func TestSeriesSinglePointHasNoTrend(t *testing.T) {
	repo := &stubRepo{obs: []Observation{obsRow(2015, "Female", 88000)}}
	service := NewService(repo, 2017)

	series, err := service.Series(context.Background(), Filter{
		Measure: MeasureNewCases,
		Sexes:   []string{"Female"},
	})
	require.NoError(t, err)
	require.Nil(t, series[0].Trend)
}

func TestSeriesKeepsRequestedSexOrder(t *testing.T) {
	repo := &stubRepo{obs: []Observation{
		obsRow(2014, "Female", 85000),
		obsRow(2014, "Male", 90000),
	}}
	service := NewService(repo, 2017)

	series, err := service.Series(context.Background(), Filter{
		Measure: MeasureNewCases,
		Sexes:   []string{"Male", "Female"},
	})
	require.NoError(t, err)
	require.Len(t, series, 2)
	require.Equal(t, "Male", series[0].Sex)
	require.Equal(t, "Female", series[1].Sex)
}

func TestSeriesValidation(t *testing.T) {
	service := NewService(&stubRepo{}, 2017)

	_, err := service.Series(context.Background(), Filter{
		Measure: Measure("bogus"),
		Sexes:   []string{"Both sexes"},
	})
	require.ErrorIs(t, err, ErrUnknownMeasure)

	_, err = service.Series(context.Background(), Filter{Measure: MeasureNewCases})
	require.ErrorIs(t, err, ErrNoSexSelected)

	_, err = service.Series(context.Background(), Filter{
		Measure: MeasureNewCases,
		Sexes:   []string{"Both sexes"},
	})
	require.ErrorIs(t, err, ErrNoObservations)
}

func TestSummaryStats(t *testing.T) {
	suppressed := obsRow(2013, "Both sexes", 0)
	suppressed.Suppressed = true

	repo := &stubRepo{obs: []Observation{
		obsRow(2014, "Both sexes", 10),
		obsRow(2015, "Both sexes", 20),
		obsRow(2016, "Both sexes", 30),
		suppressed,
	}}
	service := NewService(repo, 2017)

	summary, err := service.Summary(context.Background(), Filter{
		Measure: MeasureNewCases,
		Sexes:   []string{"Both sexes"},
	})
	require.NoError(t, err)
	require.Equal(t, 3, summary.Count)
	require.Equal(t, 1, summary.Suppressed)
	require.InDelta(t, 10, summary.Min, 1e-9)
	require.InDelta(t, 30, summary.Max, 1e-9)
	require.InDelta(t, 20, summary.Mean, 1e-9)
	require.InDelta(t, 20, summary.Median, 1e-9)
	require.InDelta(t, 10, summary.StdDev, 1e-9)
}

func TestSummaryCutoffAppliesToSuppressedRows(t *testing.T) {
	inWindow := obsRow(2015, "Both sexes", 0)
	inWindow.Suppressed = true
	pastCutoff := obsRow(2019, "Both sexes", 0)
	pastCutoff.Suppressed = true

	repo := &stubRepo{obs: []Observation{
		obsRow(2014, "Both sexes", 10),
		obsRow(2016, "Both sexes", 20),
		obsRow(2019, "Both sexes", 999), // excluded by cutoff
		inWindow,
		pastCutoff, // excluded by cutoff, must not count as suppressed
	}}
	service := NewService(repo, 2017)

	summary, err := service.Summary(context.Background(), Filter{
		Measure: MeasureNewCases,
		Sexes:   []string{"Both sexes"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Count)
	require.Equal(t, 1, summary.Suppressed)
	require.InDelta(t, 20, summary.Max, 1e-9)
}

func TestInfoPassesThrough(t *testing.T) {
	loaded := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubRepo{info: DatasetInfo{Rows: 42, Source: "data.csv", LoadedAt: loaded}}
	service := NewService(repo, 2017)

	info, err := service.Info(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, info.Rows)
	require.Equal(t, loaded, info.LoadedAt)
}
