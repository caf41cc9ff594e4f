package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hdlreplay/internal/ir"
)

func newTable(t *testing.T, decls ...ir.EndpointDecl) *Table {
	t.Helper()
	tbl := New()
	for _, d := range decls {
		require.NoError(t, tbl.RegisterEndpoint(d.Name, d.Width))
	}
	return tbl
}

func TestAssignPort_DisjointRanges(t *testing.T) {
	tbl := newTable(t, ir.EndpointDecl{Name: "out", Width: 8})

	require.NoError(t, tbl.AssignPort("out", ir.Bits(0, 4), "a"))
	require.NoError(t, tbl.AssignPort("out", ir.Bits(4, 8), "b"))

	drivers := tbl.Drivers("out")
	require.Len(t, drivers, 2)
	assert.Equal(t, ir.Bits(0, 4), drivers[0].Range)
	assert.Equal(t, ir.Operand("a"), drivers[0].Source)
	assert.Equal(t, ir.Bits(4, 8), drivers[1].Range)
	assert.Equal(t, ir.Operand("b"), drivers[1].Source)
	assert.Equal(t, 8, tbl.Occupied("out"))
}

func TestAssignPort_UnconditionalRedrive(t *testing.T) {
	tbl := newTable(t, ir.EndpointDecl{Name: "out", Width: 8})

	require.NoError(t, tbl.AssignPort("out", ir.FullRange(8), "a"))
	err := tbl.AssignPort("out", ir.FullRange(8), "b")
	require.Error(t, err)

	var md *MultiDriveError
	require.ErrorAs(t, err, &md)
	assert.Equal(t, ir.Endpoint("out"), md.Dest)
	assert.Equal(t, ir.FullRange(8), md.Range)
	assert.Equal(t, ir.FullRange(8), md.Conflict)
	assert.Equal(t, ir.Operand("a"), md.Existing)
	assert.True(t, IsMultiDriveError(err))

	// Rejected assignment leaves the table unchanged
	assert.Len(t, tbl.Drivers("out"), 1)
}

func TestAssignPort_PartialOverlap(t *testing.T) {
	tbl := newTable(t, ir.EndpointDecl{Name: "out", Width: 16})

	require.NoError(t, tbl.AssignPort("out", ir.Bits(0, 6), "a"))
	err := tbl.AssignPort("out", ir.Bits(4, 10), "b")

	var md *MultiDriveError
	require.ErrorAs(t, err, &md)
	assert.Equal(t, ir.Bits(4, 6), md.Conflict)
}

func TestAssignPort_WideEndpoint(t *testing.T) {
	tbl := newTable(t, ir.EndpointDecl{Name: "bus", Width: 200})

	require.NoError(t, tbl.AssignPort("bus", ir.Bits(0, 64), "lo"))
	require.NoError(t, tbl.AssignPort("bus", ir.Bits(64, 130), "mid"))
	require.NoError(t, tbl.AssignPort("bus", ir.Bits(131, 200), "hi"))
	assert.Equal(t, 199, tbl.Occupied("bus"))

	require.NoError(t, tbl.AssignPort("bus", ir.Bits(130, 131), "gap"))

	err := tbl.AssignPort("bus", ir.Bits(199, 200), "last")
	assert.True(t, IsMultiDriveError(err))
}

func TestAssignPort_RangeErrors(t *testing.T) {
	tbl := newTable(t, ir.EndpointDecl{Name: "out", Width: 8})

	tests := []struct {
		name string
		rng  ir.BitRange
	}{
		{"past width", ir.Bits(4, 9)},
		{"negative", ir.Bits(-1, 2)},
		{"empty", ir.Bits(3, 3)},
		{"inverted", ir.Bits(5, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tbl.AssignPort("out", tt.rng, "x")
			var re *RangeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, 8, re.Width)
		})
	}
}

func TestAssignPort_UnknownEndpoint(t *testing.T) {
	tbl := New()
	err := tbl.AssignPort("ghost", ir.Bits(0, 1), "x")
	assert.ErrorIs(t, err, ErrUnknownEndpoint)
}

func TestRegisterEndpoint(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.RegisterEndpoint("out", 8))
	require.NoError(t, tbl.RegisterEndpoint("out", 8), "same width is idempotent")

	var re *RangeError
	require.ErrorAs(t, tbl.RegisterEndpoint("out", 4), &re)
	require.ErrorAs(t, tbl.RegisterEndpoint("zero", 0), &re)

	assert.Equal(t, []ir.EndpointDecl{{Name: "out", Width: 8}}, tbl.Endpoints())
}

func TestForkJoin_ExclusiveOutcomes(t *testing.T) {
	tbl := newTable(t, ir.EndpointDecl{Name: "out", Width: 8})

	onTrue, onFalse := tbl.Fork(), tbl.Fork()
	require.NoError(t, onTrue.AssignPort("out", ir.FullRange(8), "a"))
	require.NoError(t, onFalse.AssignPort("out", ir.FullRange(8), "b"))
	require.NoError(t, tbl.Join(onTrue, onFalse))

	drivers := tbl.Drivers("out")
	require.Len(t, drivers, 2)
	assert.Equal(t, ir.Operand("a"), drivers[0].Source)
	assert.Equal(t, ir.Operand("b"), drivers[1].Source)

	// After the join, an unconditional write conflicts with either outcome
	assert.True(t, IsMultiDriveError(tbl.AssignPort("out", ir.Bits(0, 1), "c")))
}

func TestForkJoin_ForkSeesParentBits(t *testing.T) {
	tbl := newTable(t, ir.EndpointDecl{Name: "out", Width: 8})
	require.NoError(t, tbl.AssignPort("out", ir.Bits(0, 4), "a"))

	child := tbl.Fork()
	assert.True(t, IsMultiDriveError(child.AssignPort("out", ir.Bits(2, 3), "b")))
	require.NoError(t, child.AssignPort("out", ir.Bits(4, 8), "c"))

	// Fork does not leak into the parent until joined
	require.NoError(t, tbl.AssignPort("out", ir.Bits(4, 8), "d"))
}

func TestForkJoin_EndpointRegisteredInOutcome(t *testing.T) {
	tbl := New()
	child := tbl.Fork()
	require.NoError(t, child.RegisterEndpoint("tmp", 4))
	require.NoError(t, child.AssignPort("tmp", ir.FullRange(4), "x"))
	require.NoError(t, tbl.Join(child))

	w, ok := tbl.Width("tmp")
	require.True(t, ok)
	assert.Equal(t, 4, w)
	assert.Len(t, tbl.Drivers("tmp"), 1)
}

func TestSnapshot_EmptyListsNotNil(t *testing.T) {
	tbl := newTable(t, ir.EndpointDecl{Name: "a", Width: 1}, ir.EndpointDecl{Name: "b", Width: 2})
	require.NoError(t, tbl.AssignPort("b", ir.Bits(0, 2), "x"))

	snap := tbl.Snapshot()
	require.Contains(t, snap, ir.Endpoint("a"))
	assert.NotNil(t, snap["a"])
	assert.Empty(t, snap["a"])
	assert.Len(t, snap["b"], 1)
}
