// Package dataset decodes the Statistics Canada incidence extract and serves
// it from memory.
package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"example.com/cancerdash/internal/domain"
)

// Column names of the StatCan table 13-10-0111-01 CSV download.
const (
	colRefDate        = "REF_DATE"
	colGeo            = "GEO"
	colCancerType     = "Primary types of cancer (ICD-O-3)"
	colSex            = "Sex"
	colCharacteristic = "Characteristics"
	colValue          = "VALUE"
)

// ErrEmptyDataset is returned when the file decodes to zero usable rows.
var ErrEmptyDataset = errors.New("dataset contains no usable rows")

// Load reads and decodes the dataset file at path.
func Load(path string) ([]domain.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses an incidence extract. Extra columns are ignored; a missing
// required column is an error. Rows whose VALUE cell is not numeric (the
// extract uses symbols for suppressed cells) are kept but marked suppressed.
func Decode(r io.Reader) ([]domain.Observation, error) {
	df := dataframe.ReadCSV(r, dataframe.WithTypes(map[string]series.Type{
		colRefDate: series.String,
		colValue:   series.String,
	}))
	if df.Err != nil {
		return nil, fmt.Errorf("read csv: %w", df.Err)
	}

	required := []string{colRefDate, colGeo, colCancerType, colSex, colCharacteristic, colValue}
	have := make(map[string]struct{}, len(df.Names()))
	for _, name := range df.Names() {
		have[name] = struct{}{}
	}
	for _, name := range required {
		if _, ok := have[name]; !ok {
			return nil, fmt.Errorf("dataset missing required column %q", name)
		}
	}

	records := df.Select(required).Records()
	obs := make([]domain.Observation, 0, len(records)-1)
	for _, rec := range records[1:] {
		year, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			// Some extracts carry range-style REF_DATE rows; they are not plottable.
			continue
		}
		o := domain.Observation{
			RefDate:        year,
			Geo:            rec[1],
			CancerType:     rec[2],
			Sex:            rec[3],
			Characteristic: rec[4],
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(rec[5]), 64); err == nil {
			o.Value = v
		} else {
			o.Suppressed = true
		}
		obs = append(obs, o)
	}
	if len(obs) == 0 {
		return nil, ErrEmptyDataset
	}
	return obs, nil
}
