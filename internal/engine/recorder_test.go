package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hdlreplay/internal/ir"
)

func at(key string) ir.SiteID {
	return ir.SiteID{Key: key}
}

func TestRecorder_BranchExploresBothOutcomes(t *testing.T) {
	r := NewRecorder("mux", 0)
	require.NoError(t, r.RegisterEndpoint("out", 8))

	var outcomes []bool
	for !r.Done() {
		r.OnEnterConstruction()
		taken, err := r.OnBranchDecision(at("if"), "en")
		require.NoError(t, err)
		outcomes = append(outcomes, taken)

		src := ir.Operand("b")
		if taken {
			src = "a"
		}
		require.NoError(t, r.OnAssignment(at("out="+string(src)), "out", ir.FullRange(8), src))

		_, err = r.OnConstructionExit()
		require.NoError(t, err)
	}

	assert.Equal(t, []bool{true, false}, outcomes)
	assert.Equal(t, 2, r.Invocations())
	assert.Equal(t, 0, r.Depth())

	tree := r.Tree()
	require.NotNil(t, tree)
	assert.Equal(t, "module mux\n  port out[8]\n  if en\n    out[0:8) = a\n  else\n    out[0:8) = b\n",
		ir.FormatString(tree))
}

func TestRecorder_SwitchFallthroughKeepsExtrasOnCase(t *testing.T) {
	// case 0 runs its own statement and then falls into case 1's body;
	// the default runs nothing before the common tail.
	r := NewRecorder("fall", 0)
	require.NoError(t, r.RegisterEndpoint("a", 1))
	require.NoError(t, r.RegisterEndpoint("b", 1))
	require.NoError(t, r.RegisterEndpoint("tail", 1))

	for !r.Done() {
		r.OnEnterConstruction()
		v, err := r.OnSwitchDecision(at("sw"), "sel", []int64{0, 1})
		require.NoError(t, err)
		if v == 0 {
			require.NoError(t, r.OnAssignment(at("case0"), "a", ir.FullRange(1), "x"))
		}
		if v == 0 || v == 1 {
			require.NoError(t, r.OnAssignment(at("case1"), "b", ir.FullRange(1), "y"))
		}
		require.NoError(t, r.OnAssignment(at("tail"), "tail", ir.FullRange(1), "z"))
		_, err = r.OnConstructionExit()
		require.NoError(t, err)
	}

	assert.Equal(t, 3, r.Invocations())
	root := r.Tree().Root
	require.Len(t, root, 2)

	sw := root[0].(*ir.SwitchNode)
	require.Len(t, sw.Cases, 3)
	assert.Len(t, sw.Cases[0].Children, 2, "case 0 keeps its own statement and the shared case 1 body")
	assert.Len(t, sw.Cases[1].Children, 1)
	assert.Empty(t, sw.Cases[2].Children)
	assert.Equal(t, ir.Endpoint("tail"), root[1].(*ir.AssignNode).Dest)
}

func TestRecorder_PrefixMismatch(t *testing.T) {
	r := NewRecorder("top", 0)

	r.OnEnterConstruction()
	_, err := r.OnBranchDecision(at("a"), "x")
	require.NoError(t, err)
	done, err := r.OnConstructionExit()
	require.NoError(t, err)
	require.False(t, done)

	r.OnEnterConstruction()
	_, err = r.OnBranchDecision(at("other"), "x")
	require.Error(t, err)
	assert.True(t, IsDivergenceError(err))

	// Sticky: the recorder refuses further events
	_, err = r.OnConstructionExit()
	assert.True(t, IsDivergenceError(err))
}

func TestRecorder_ExitBeforeReachingDecision(t *testing.T) {
	r := NewRecorder("top", 0)

	r.OnEnterConstruction()
	_, err := r.OnBranchDecision(at("a"), "x")
	require.NoError(t, err)
	_, err = r.OnConstructionExit()
	require.NoError(t, err)

	r.OnEnterConstruction()
	_, err = r.OnConstructionExit()
	require.Error(t, err)
	assert.True(t, IsDivergenceError(err))
	assert.Contains(t, err.Error(), "ended before reaching")
}

func TestRecorder_EventOutsideInvocation(t *testing.T) {
	r := NewRecorder("top", 0)

	_, err := r.OnBranchDecision(at("a"), "x")
	assert.ErrorIs(t, err, ErrNotConstructing)

	_, err = r.OnConstructionExit()
	assert.ErrorIs(t, err, ErrNotConstructing)
}

func TestRecorder_Reset(t *testing.T) {
	r := NewRecorder("top", 0)
	r.OnEnterConstruction()
	_, err := r.OnConstructionExit()
	require.NoError(t, err)
	require.True(t, r.Done())

	r.Reset()
	assert.False(t, r.Done())
	assert.Nil(t, r.Tree())
	assert.Equal(t, 0, r.Invocations())
}

func TestRecorder_EventBoundIsPerInvocation(t *testing.T) {
	r := NewRecorder("top", 2)
	require.NoError(t, r.RegisterEndpoint("out", 1))

	for !r.Done() {
		r.OnEnterConstruction()
		_, err := r.OnBranchDecision(at("if"), "en")
		require.NoError(t, err)
		require.NoError(t, r.OnAssignment(at("out"), "out", ir.FullRange(1), "a"))
		_, err = r.OnConstructionExit()
		require.NoError(t, err)
	}
	assert.Equal(t, 2, r.Invocations())
}

func TestRecorder_EventBoundExceeded(t *testing.T) {
	r := NewRecorder("top", 2)
	require.NoError(t, r.RegisterEndpoint("out", 3))

	r.OnEnterConstruction()
	require.NoError(t, r.OnAssignment(at("b0"), "out", ir.Bits(0, 1), "a"))
	require.NoError(t, r.OnAssignment(at("b1"), "out", ir.Bits(1, 2), "a"))
	err := r.OnAssignment(at("b2"), "out", ir.Bits(2, 3), "a")
	require.Error(t, err)

	var ee *ElaborationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ErrCodeNonDeterministic, ee.Code)
	assert.Equal(t, at("b2"), ee.Site)
	assert.Equal(t, 1, ee.Invocation)
	assert.Contains(t, err.Error(), "events per invocation (3 > 2)")
}

func TestRecorder_ReplayedStatementKeepsRecordedOccurrence(t *testing.T) {
	// The second "set" is reported as occurrence 0 when the first iteration
	// skipped its conditional assignment; replay must still see it as #1.
	r := NewRecorder("top", 0)
	require.NoError(t, r.RegisterEndpoint("out", 2))

	var sites []ir.SiteID
	for !r.Done() {
		r.OnEnterConstruction()
		seen := 0
		for i := 0; i < 2; i++ {
			taken, err := r.OnBranchDecision(ir.SiteID{Key: "en", Occurrence: i}, "en")
			require.NoError(t, err)
			if taken {
				site := ir.SiteID{Key: "set", Occurrence: seen}
				seen++
				require.NoError(t, r.OnAssignment(site, "out", ir.Bits(i, i+1), "a"))
			}
		}
		_, err := r.OnConstructionExit()
		require.NoError(t, err)
	}

	assert.Equal(t, 3, r.Invocations())
	for _, n := range r.Tree().Root {
		br := n.(*ir.BranchNode)
		sites = append(sites, br.True[0].NodeSite())
	}
	assert.Equal(t, []ir.SiteID{{Key: "set", Occurrence: 0}, {Key: "set", Occurrence: 1}}, sites)
}

func TestDefaultCandidate(t *testing.T) {
	tests := []struct {
		name       string
		candidates []int64
		want       int64
	}{
		{"none", nil, -1},
		{"positive", []int64{0, 1, 2}, -1},
		{"collides once", []int64{-1, 0}, -2},
		{"collides twice", []int64{-2, -1}, -3},
		{"gap", []int64{-1, -3}, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultCandidate(tt.candidates))
		})
	}
}
