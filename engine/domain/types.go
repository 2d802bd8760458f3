// Package domain defines the coverage dataset types and the validation gate
// applied when a dataset is loaded.
package domain

// VehicleModel identifies a vehicle model, e.g. "Camry". It is opaque to the
// grid: ordering is plain lexical string order.
type VehicleModel = string

// ModelYear is a production year.
type ModelYear = int

// CoverageMap maps each vehicle model to the model-years marked covered.
type CoverageMap map[VehicleModel][]ModelYear

// Clone returns a deep copy of m. A nil map clones to an empty one.
func (m CoverageMap) Clone() CoverageMap {
	out := make(CoverageMap, len(m))
	for model, years := range m {
		cp := make([]ModelYear, len(years))
		copy(cp, years)
		out[model] = cp
	}
	return out
}

// Dataset is the static coverage document fed into a grid.
type Dataset struct {
	VehicleModels []VehicleModel `json:"vehicle-models"`
	Years         []ModelYear    `json:"years"`
	Coverage      CoverageMap    `json:"coverage"`
}

// MinModelYear is the earliest year accepted by strict validation.
const MinModelYear = 1980

// MaxModelYear is the latest year accepted by strict validation (current + 1
// for next-year models).
const MaxModelYear = 2027
