package domain

// Measure identifies one of the two plotted characteristics of the dataset.
type Measure string

const (
	MeasureNewCases       Measure = "new_cases"
	MeasureAgeAtDiagnosis Measure = "age_at_diagnosis"
)

// characteristicLabels maps measures onto the Characteristics column values
// used by the Statistics Canada incidence extract.
var characteristicLabels = map[Measure]string{
	MeasureNewCases:       "Number of new cancer cases",
	MeasureAgeAtDiagnosis: "Average age at diagnosis",
}

// Characteristic returns the dataset label backing the measure, or "" when
// the measure is unknown.
func (m Measure) Characteristic() string {
	return characteristicLabels[m]
}

// Default filter selections shown when the dashboard first loads.
const (
	DefaultGeo        = "Canada"
	DefaultCancerType = "Total, all primary sites of cancer [C00.0-C80.9]"
	DefaultSex        = "Both sexes"
)

// Observation is one row of the incidence dataset.
type Observation struct {
	RefDate        int
	Geo            string
	CancerType     string
	Sex            string
	Characteristic string
	Value          float64
	Suppressed     bool
}
