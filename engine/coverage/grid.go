// Package coverage implements the vehicle-model × model-year coverage grid:
// the owner of the normalized coverage map, the toggle cells rendered from
// it, and the registry of mounted grids.
//
// A Grid sorts its axes and fills in missing coverage entries exactly once,
// at construction. Toggling a cell mutates the grid's map through a callback,
// but never re-renders cells that are already mounted.
package coverage

import (
	"slices"
	"sort"
	"sync"

	"github.com/WessleyAI/wessley-coverage/engine/domain"
	"github.com/WessleyAI/wessley-coverage/pkg/fn"
)

// Grid owns the sorted axes and the normalized coverage map.
type Grid struct {
	mu       sync.Mutex
	models   []domain.VehicleModel
	years    []domain.ModelYear
	coverage domain.CoverageMap
}

// New builds a grid from an unordered model universe, an unordered year
// universe and a coverage map that may omit models. Inputs are copied.
func New(models []domain.VehicleModel, years []domain.ModelYear, cov domain.CoverageMap) *Grid {
	sortedModels := slices.Clone(models)
	sort.Strings(sortedModels)

	sortedYears := slices.Clone(years)
	sortDescending(sortedYears)

	normalized := fn.Reduce(sortedModels, make(domain.CoverageMap, len(sortedModels)),
		func(acc domain.CoverageMap, model domain.VehicleModel) domain.CoverageMap {
			acc[model] = slices.Clone(cov[model])
			if acc[model] == nil {
				acc[model] = []domain.ModelYear{}
			}
			return acc
		})

	return &Grid{
		models:   sortedModels,
		years:    sortedYears,
		coverage: normalized,
	}
}

// FromDataset builds a grid from a loaded dataset.
func FromDataset(d domain.Dataset) *Grid {
	return New(d.VehicleModels, d.Years, d.Coverage)
}

// Models returns the row axis, ascending.
func (g *Grid) Models() []domain.VehicleModel { return slices.Clone(g.models) }

// Years returns the column axis, most recent first.
func (g *Grid) Years() []domain.ModelYear { return slices.Clone(g.years) }

// Coverage returns a deep copy of the current coverage map.
func (g *Grid) Coverage() domain.CoverageMap {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.coverage.Clone()
}

// CoveredYears returns a copy of the years currently covered for model.
func (g *Grid) CoveredYears(model domain.VehicleModel) []domain.ModelYear {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.coverage[model])
}

// IsCovered reports whether year is covered for model.
func (g *Grid) IsCovered(model domain.VehicleModel, year domain.ModelYear) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Contains(g.coverage[model], year)
}

// InUniverse reports whether model and year are both axes of the grid.
func (g *Grid) InUniverse(model domain.VehicleModel, year domain.ModelYear) bool {
	_, okModel := slices.BinarySearch(g.models, model)
	return okModel && slices.Contains(g.years, year)
}

// SetCoverage marks year as covered or not covered for model. Requests that
// match the current state are no-ops. It reports whether the map changed.
//
// Models outside the universe are ignored.
func (g *Grid) SetCoverage(model domain.VehicleModel, year domain.ModelYear, covered bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	years, ok := g.coverage[model]
	if !ok {
		return false
	}
	idx := slices.Index(years, year)
	switch {
	case covered && idx < 0:
		years = append(years, year)
		// Display order comes from the year axis; this only keeps the
		// per-model list ordered.
		sortDescending(years)
	case !covered && idx >= 0:
		years = slices.Delete(years, idx, idx+1)
	default:
		return false
	}
	g.coverage[model] = years
	return true
}

func sortDescending(years []domain.ModelYear) {
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
}
