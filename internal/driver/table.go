package driver

import (
	"fmt"
	"slices"

	"github.com/roach88/hdlreplay/internal/ir"
)

// Table is a DriverTable: per-endpoint bit occupancy plus the ordered list
// of assignments driving it.
//
// A Table is not safe for concurrent use. Each elaboration owns its tables.
type Table struct {
	order   []ir.Endpoint // registration order
	widths  map[ir.Endpoint]int
	occ     map[ir.Endpoint]*bitset
	drivers map[ir.Endpoint][]ir.Driver

	// base holds per-endpoint driver counts at Fork time, so Join appends
	// only what an outcome added.
	base map[ir.Endpoint]int
}

// New creates an empty table.
func New() *Table {
	return &Table{
		widths:  make(map[ir.Endpoint]int),
		occ:     make(map[ir.Endpoint]*bitset),
		drivers: make(map[ir.Endpoint][]ir.Driver),
	}
}

// RegisterEndpoint creates a zero-initialized occupancy map for dest.
// Registering the same endpoint again with the same width is a no-op;
// a different width is a RangeError.
func (t *Table) RegisterEndpoint(dest ir.Endpoint, width int) error {
	if width <= 0 {
		return &RangeError{Dest: dest, Width: width, Msg: "endpoint width must be positive"}
	}
	if existing, ok := t.widths[dest]; ok {
		if existing != width {
			return &RangeError{Dest: dest, Width: existing, Range: ir.FullRange(width),
				Msg: fmt.Sprintf("re-registered with width %d", width)}
		}
		return nil
	}
	t.order = append(t.order, dest)
	t.widths[dest] = width
	t.occ[dest] = newBitset(width)
	return nil
}

// Width returns the registered width of dest.
func (t *Table) Width(dest ir.Endpoint) (int, bool) {
	w, ok := t.widths[dest]
	return w, ok
}

// Endpoints returns the registered endpoints in registration order.
func (t *Table) Endpoints() []ir.EndpointDecl {
	out := make([]ir.EndpointDecl, len(t.order))
	for i, ep := range t.order {
		out[i] = ir.EndpointDecl{Name: ep, Width: t.widths[ep]}
	}
	return out
}

// AssignPort drives rng of dest from source.
//
// The range must lie within [0, width). If any bit in the range is already
// occupied on this path, AssignPort returns a MultiDriveError and leaves the
// table unchanged; otherwise the bits are marked and (rng, source) appended.
func (t *Table) AssignPort(dest ir.Endpoint, rng ir.BitRange, source ir.Operand) error {
	return t.Assign(dest, ir.Driver{Range: rng, Source: source})
}

// Assign is AssignPort for a fully described driver entry (site and path).
func (t *Table) Assign(dest ir.Endpoint, d ir.Driver) error {
	width, ok := t.widths[dest]
	if !ok {
		return fmt.Errorf("assign %s%s: %w", dest, d.Range, ErrUnknownEndpoint)
	}
	if !d.Range.Within(width) {
		return &RangeError{Dest: dest, Range: d.Range, Width: width, Msg: "range outside endpoint"}
	}

	occ := t.occ[dest]
	if bit := occ.firstSet(d.Range.Lo, d.Range.Hi); bit >= 0 {
		existing := t.driverAt(dest, bit)
		return &MultiDriveError{
			Dest:     dest,
			Range:    d.Range,
			Conflict: existing.Range.Intersect(d.Range),
			Source:   d.Source,
			Existing: existing.Source,
		}
	}

	occ.set(d.Range.Lo, d.Range.Hi)
	t.drivers[dest] = append(t.drivers[dest], d)
	return nil
}

// driverAt returns the most recent driver entry covering bit.
func (t *Table) driverAt(dest ir.Endpoint, bit int) ir.Driver {
	list := t.drivers[dest]
	for i := len(list) - 1; i >= 0; i-- {
		if r := list[i].Range; r.Lo <= bit && bit < r.Hi {
			return list[i]
		}
	}
	return ir.Driver{Range: ir.Bits(bit, bit+1)}
}

// Occupied returns the number of driven bits of dest on this path.
func (t *Table) Occupied(dest ir.Endpoint) int {
	occ, ok := t.occ[dest]
	if !ok {
		return 0
	}
	return occ.count()
}

// Drivers returns the ordered driver entries of dest.
func (t *Table) Drivers(dest ir.Endpoint) []ir.Driver {
	return slices.Clone(t.drivers[dest])
}

// Snapshot returns every endpoint's driver list. Endpoints without drivers
// map to an empty (non-nil) list.
func (t *Table) Snapshot() map[ir.Endpoint][]ir.Driver {
	out := make(map[ir.Endpoint][]ir.Driver, len(t.order))
	for _, ep := range t.order {
		list := slices.Clone(t.drivers[ep])
		if list == nil {
			list = []ir.Driver{}
		}
		out[ep] = list
	}
	return out
}

// Fork clones the table for one mutually exclusive outcome.
func (t *Table) Fork() *Table {
	c := &Table{
		order:   slices.Clone(t.order),
		widths:  make(map[ir.Endpoint]int, len(t.widths)),
		occ:     make(map[ir.Endpoint]*bitset, len(t.occ)),
		drivers: make(map[ir.Endpoint][]ir.Driver, len(t.drivers)),
		base:    make(map[ir.Endpoint]int, len(t.drivers)),
	}
	for ep, w := range t.widths {
		c.widths[ep] = w
	}
	for ep, b := range t.occ {
		c.occ[ep] = b.clone()
	}
	for ep, list := range t.drivers {
		c.drivers[ep] = slices.Clone(list)
		c.base[ep] = len(list)
	}
	return c
}

// Join merges forked outcomes back: occupancy becomes the union of every
// outcome's bits and each outcome's new driver entries are appended in
// outcome order. Endpoints first registered inside an outcome are adopted.
func (t *Table) Join(outcomes ...*Table) error {
	for _, out := range outcomes {
		for _, ep := range out.order {
			if err := t.RegisterEndpoint(ep, out.widths[ep]); err != nil {
				return err
			}
			t.occ[ep].union(out.occ[ep])
			added := out.drivers[ep][out.base[ep]:]
			t.drivers[ep] = append(t.drivers[ep], added...)
		}
	}
	return nil
}
