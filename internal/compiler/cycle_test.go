package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hdlreplay/internal/ir"
)

func instanceOf(module string) ir.Stmt {
	return ir.Stmt{Kind: ir.StmtInstance, Instance: "u_" + module, Module: module}
}

func TestAnalyzeInstances_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeInstances(nil))
}

func TestAnalyzeInstances_DAG(t *testing.T) {
	lib := ir.Library{
		"top":  {Name: "top", Body: []ir.Stmt{instanceOf("alu"), instanceOf("regs")}},
		"alu":  {Name: "alu", Body: []ir.Stmt{instanceOf("add")}},
		"regs": {Name: "regs"},
		"add":  {Name: "add"},
	}
	assert.Empty(t, AnalyzeInstances(lib))
}

func TestAnalyzeInstances_SelfLoop(t *testing.T) {
	lib := ir.Library{
		"rec": {Name: "rec", Body: []ir.Stmt{{
			Kind: ir.StmtIf, Cond: "c",
			Then: []ir.Stmt{instanceOf("rec")},
		}}},
	}

	errs := AnalyzeInstances(lib)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrRecursiveInstance, errs[0].Code)
	assert.Equal(t, "rec", errs[0].Module)
	assert.Contains(t, errs[0].Message, "rec → rec")
}

func TestAnalyzeInstances_Cycle(t *testing.T) {
	lib := ir.Library{
		"a":    {Name: "a", Body: []ir.Stmt{instanceOf("b")}},
		"b":    {Name: "b", Body: []ir.Stmt{{Kind: ir.StmtSwitch, Value: "s", Default: []ir.Stmt{instanceOf("c")}}}},
		"c":    {Name: "c", Body: []ir.Stmt{instanceOf("a")}},
		"leaf": {Name: "leaf"},
	}

	errs := AnalyzeInstances(lib)
	require.Len(t, errs, 1)
	assert.Equal(t, "recursive instantiation: a → b → c → a", errs[0].Message)
}

func TestAnalyzeInstances_UnknownModuleIgnored(t *testing.T) {
	// Unknown modules are reported by Validate, not as graph nodes
	lib := ir.Library{"a": {Name: "a", Body: []ir.Stmt{instanceOf("missing")}}}
	assert.Empty(t, AnalyzeInstances(lib))
}
