package coverage

// State is the visual state of a cell.
type State int

const (
	StateUncovered State = iota
	StateCovered
)

func (s State) String() string {
	if s == StateCovered {
		return "covered"
	}
	return "uncovered"
}

// Class returns the CSS class the web view styles the state with.
func (s State) Class() string {
	return "coverage-table-" + s.String()
}

// Cell is a two-state toggle. Its state is seeded once at creation and is
// never resynchronized from the grid afterwards. A Cell is owned by a single
// UI loop and is not safe for concurrent use.
type Cell struct {
	covered  bool
	onChange func(covered bool)
}

// NewCell creates a cell with the given initial state. onChange may be nil.
func NewCell(covered bool, onChange func(covered bool)) *Cell {
	return &Cell{covered: covered, onChange: onChange}
}

// Covered reports the cell's local state.
func (c *Cell) Covered() bool { return c.covered }

// State returns the cell's visual state.
func (c *Cell) State() State {
	if c.covered {
		return StateCovered
	}
	return StateUncovered
}

// Toggle flips the cell. The owner is notified before the local state
// changes. Returns the new state.
func (c *Cell) Toggle() bool {
	next := !c.covered
	if c.onChange != nil {
		c.onChange(next)
	}
	c.covered = next
	return next
}
