package coverage

import "github.com/WessleyAI/wessley-coverage/engine/domain"

// Layout is one render of a grid: row labels, column headers and a cell at
// every intersection.
type Layout struct {
	// ContainerStyle is passed through untouched to the outermost container.
	ContainerStyle string
	Models         []domain.VehicleModel
	Years          []domain.ModelYear
	Rows           []Row
}

// Row is the cells of a single vehicle model, in column order.
type Row struct {
	Model domain.VehicleModel
	Cells []*Cell
}

// At returns the cell at row i, column j.
func (l Layout) At(i, j int) *Cell { return l.Rows[i].Cells[j] }

// Layout renders the grid. Each cell is seeded from the coverage map as it is
// at call time and reports toggles back through SetCoverage. listener, when
// non-nil, is called after every toggle that changed the map.
func (g *Grid) Layout(containerStyle string, listener func(model domain.VehicleModel, year domain.ModelYear, covered bool)) Layout {
	models, years := g.Models(), g.Years()
	snapshot := g.Coverage()

	rows := make([]Row, len(models))
	for i, model := range models {
		covered := make(map[domain.ModelYear]bool, len(snapshot[model]))
		for _, y := range snapshot[model] {
			covered[y] = true
		}
		cells := make([]*Cell, len(years))
		for j, year := range years {
			cells[j] = NewCell(covered[year], g.callback(model, year, listener))
		}
		rows[i] = Row{Model: model, Cells: cells}
	}

	return Layout{
		ContainerStyle: containerStyle,
		Models:         models,
		Years:          years,
		Rows:           rows,
	}
}

func (g *Grid) callback(model domain.VehicleModel, year domain.ModelYear, listener func(domain.VehicleModel, domain.ModelYear, bool)) func(bool) {
	return func(covered bool) {
		if g.SetCoverage(model, year, covered) && listener != nil {
			listener(model, year, covered)
		}
	}
}
