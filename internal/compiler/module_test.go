package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hdlreplay/internal/ir"
)

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func TestCompileModuleBasic(t *testing.T) {
	v := compileString(t, `
		module: mux: {
			ports: {
				out: 8
				en:  1
			}
			body: [{
				when: "en"
				then: [{assign: "out", source: "a"}]
				otherwise: [{assign: "out", source: "b", range: [0, 4]}]
			}]
		}
	`)

	spec, err := CompileModule(v.LookupPath(cue.ParsePath("module.mux")))
	require.NoError(t, err)

	assert.Equal(t, "mux", spec.Name)
	assert.Equal(t, []ir.EndpointDecl{{Name: "out", Width: 8}, {Name: "en", Width: 1}}, spec.Ports)
	require.Len(t, spec.Body, 1)

	s := spec.Body[0]
	assert.Equal(t, ir.StmtIf, s.Kind)
	assert.Equal(t, "body.0", s.ID)
	assert.Equal(t, ir.Operand("en"), s.Cond)
	require.Len(t, s.Then, 1)
	assert.Equal(t, "body.0.then.0", s.Then[0].ID)
	assert.Nil(t, s.Then[0].Range)
	require.Len(t, s.Else, 1)
	assert.Equal(t, "body.0.else.0", s.Else[0].ID)
	require.NotNil(t, s.Else[0].Range)
	assert.Equal(t, ir.Bits(0, 4), *s.Else[0].Range)
}

func TestCompileModuleSwitch(t *testing.T) {
	v := compileString(t, `
		module: dec: {
			ports: out: 2
			body: [{
				id: "decode"
				select: "sel"
				cases: [
					{match: 0, body: [{assign: "out", source: "1"}], fallthrough: true},
					{match: 1, body: [{assign: "out", source: "2"}]},
				]
				default: [{assign: "out", source: "0"}]
			}]
		}
	`)

	spec, err := CompileModule(v.LookupPath(cue.ParsePath("module.dec")))
	require.NoError(t, err)

	s := spec.Body[0]
	assert.Equal(t, ir.StmtSwitch, s.Kind)
	assert.Equal(t, "decode", s.ID)
	assert.Equal(t, ir.Operand("sel"), s.Value)
	require.Len(t, s.Cases, 2)
	assert.Equal(t, int64(0), s.Cases[0].Match)
	assert.True(t, s.Cases[0].Fallthrough)
	assert.False(t, s.Cases[1].Fallthrough)
	assert.Equal(t, "body.0.case.1.0", s.Cases[1].Body[0].ID)
	require.Len(t, s.Default, 1)
	assert.Equal(t, "body.0.default.0", s.Default[0].ID)
}

func TestCompileLibrary(t *testing.T) {
	v := compileString(t, `
		module: cell: {
			ports: q: 1
			body: [{assign: "q", source: "d"}]
		}
		module: top: {
			ports: out: 1
			body: [
				{instance: "u0", module: "cell"},
				{assign: "out", source: "u0.q"},
			]
		}
	`)

	lib, err := CompileLibrary(v)
	require.NoError(t, err)
	require.Len(t, lib, 2)

	top := lib["top"]
	require.NotNil(t, top)
	assert.Equal(t, ir.StmtInstance, top.Body[0].Kind)
	assert.Equal(t, "u0", top.Body[0].Instance)
	assert.Equal(t, "cell", top.Body[0].Module)
}

func TestCompileLibraryEmpty(t *testing.T) {
	lib, err := CompileLibrary(compileString(t, `other: 1`))
	require.NoError(t, err)
	assert.Empty(t, lib)
}

func TestCompileModuleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing body",
			src:  `module: m: { ports: out: 1 }`,
			want: "body is required",
		},
		{
			name: "ambiguous statement",
			src:  `module: m: { body: [{assign: "out", source: "a", when: "en"}] }`,
			want: "exactly one of",
		},
		{
			name: "empty statement",
			src:  `module: m: { body: [{}] }`,
			want: "exactly one of",
		},
		{
			name: "missing source",
			src:  `module: m: { body: [{assign: "out"}] }`,
			want: "source is required",
		},
		{
			name: "bad range",
			src:  `module: m: { body: [{assign: "out", source: "a", range: [1]}] }`,
			want: "range must be [lo, hi]",
		},
		{
			name: "non-integer width",
			src:  `module: m: { ports: out: "wide", body: [] }`,
			want: "port width must be an integer",
		},
		{
			name: "non-integer match",
			src:  `module: m: { body: [{select: "s", cases: [{match: "x"}]}] }`,
			want: "case match must be an integer",
		},
		{
			name: "missing module",
			src:  `module: m: { body: [{instance: "u0"}] }`,
			want: "module is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := compileString(t, tt.src)
			_, err := CompileModule(v.LookupPath(cue.ParsePath("module.m")))
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Contains(t, ce.Message, tt.want)
		})
	}
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "body.0", Message: "bad"}
	assert.Equal(t, "body.0: bad", err.Error())
}
