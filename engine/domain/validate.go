package domain

import (
	"strconv"
	"strings"
)

// ValidateDataset checks a dataset strictly. The grid itself never requires
// this: malformed coverage is tolerated and simply rendered as-is. Loaders run
// it when strict mode is enabled.
func ValidateDataset(d Dataset) error {
	if len(d.VehicleModels) == 0 {
		return NewValidationError("vehicle-models", "", ErrEmptyUniverse)
	}
	if len(d.Years) == 0 {
		return NewValidationError("years", "", ErrEmptyUniverse)
	}

	models := make(map[VehicleModel]bool, len(d.VehicleModels))
	for _, m := range d.VehicleModels {
		if strings.TrimSpace(m) == "" {
			return NewValidationError("vehicle-models", m, ErrEmptyModel)
		}
		if models[m] {
			return NewValidationError("vehicle-models", m, ErrDuplicateModel)
		}
		models[m] = true
	}

	years := make(map[ModelYear]bool, len(d.Years))
	for _, y := range d.Years {
		if err := validateYear("years", y); err != nil {
			return err
		}
		if years[y] {
			return NewValidationError("years", strconv.Itoa(y), ErrDuplicateYear)
		}
		years[y] = true
	}

	for model, covered := range d.Coverage {
		if !models[model] {
			return NewValidationError("coverage", model, ErrUnknownModel)
		}
		seen := make(map[ModelYear]bool, len(covered))
		for _, y := range covered {
			if !years[y] {
				return NewValidationError("coverage."+model, strconv.Itoa(y), ErrUnknownYear)
			}
			if seen[y] {
				return NewValidationError("coverage."+model, strconv.Itoa(y), ErrDuplicateYear)
			}
			seen[y] = true
		}
	}
	return nil
}

func validateYear(field string, y ModelYear) error {
	if y < MinModelYear || y > MaxModelYear {
		return NewValidationError(field, strconv.Itoa(y), ErrYearOutOfRange)
	}
	return nil
}
