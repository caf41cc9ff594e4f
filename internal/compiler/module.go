package compiler

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/hdlreplay/internal/ir"
)

// CompileLibrary compiles every module under the "module" field of v.
//
//	module: mux: {
//		ports: out: 8
//		body: [{when: "en", then: [{assign: "out", source: "a"}], otherwise: [{assign: "out", source: "b"}]}]
//	}
func CompileLibrary(v cue.Value) (ir.Library, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	lib := ir.Library{}
	modulesVal := v.LookupPath(cue.ParsePath("module"))
	if !modulesVal.Exists() {
		return lib, nil
	}
	iter, err := modulesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		spec, err := CompileModule(iter.Value())
		if err != nil {
			return nil, err
		}
		lib[spec.Name] = spec
	}
	return lib, nil
}

// CompileModule parses a CUE value into a ModuleSpec.
//
// The CUE value should be the module struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`module: mux: { ... }`)
//	spec, err := CompileModule(v.LookupPath(cue.ParsePath("module.mux")))
func CompileModule(v cue.Value) (*ir.ModuleSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.ModuleSpec{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	var err error
	spec.Ports, err = parsePorts(v)
	if err != nil {
		return nil, err
	}

	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return nil, &CompileError{
			Field:   "body",
			Message: "body is required",
			Pos:     v.Pos(),
		}
	}
	spec.Body, err = parseStmts(bodyVal, "body")
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// parsePorts reads "ports: {name: width}" in declaration order.
func parsePorts(v cue.Value) ([]ir.EndpointDecl, error) {
	var ports []ir.EndpointDecl

	portsVal := v.LookupPath(cue.ParsePath("ports"))
	if !portsVal.Exists() {
		return ports, nil
	}
	iter, err := portsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		width, err := iter.Value().Int64()
		if err != nil {
			return nil, &CompileError{
				Field:   "ports." + iter.Label(),
				Message: "port width must be an integer",
				Pos:     iter.Value().Pos(),
			}
		}
		ports = append(ports, ir.EndpointDecl{Name: ir.Endpoint(iter.Label()), Width: int(width)})
	}
	return ports, nil
}

// stmtKinds maps the discriminating field of a statement to its kind.
var stmtKinds = []struct {
	field string
	kind  ir.StmtKind
}{
	{"assign", ir.StmtAssign},
	{"when", ir.StmtIf},
	{"select", ir.StmtSwitch},
	{"instance", ir.StmtInstance},
}

func parseStmts(v cue.Value, prefix string) ([]ir.Stmt, error) {
	list, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: prefix, Message: "statement list expected", Pos: v.Pos()}
	}

	var stmts []ir.Stmt
	for i := 0; list.Next(); i++ {
		s, err := parseStmt(list.Value(), prefix+"."+strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func parseStmt(v cue.Value, path string) (ir.Stmt, error) {
	s := ir.Stmt{ID: path}

	found := 0
	for _, k := range stmtKinds {
		if v.LookupPath(cue.ParsePath(k.field)).Exists() {
			s.Kind = k.kind
			found++
		}
	}
	if found != 1 {
		return s, &CompileError{
			Field:   path,
			Message: "statement must have exactly one of assign, when, select, instance",
			Pos:     v.Pos(),
		}
	}

	if idVal := v.LookupPath(cue.ParsePath("id")); idVal.Exists() {
		id, err := idVal.String()
		if err != nil {
			return s, formatCUEError(err)
		}
		s.ID = id
	}

	var err error
	switch s.Kind {
	case ir.StmtAssign:
		err = parseAssign(v, path, &s)
	case ir.StmtIf:
		err = parseIf(v, path, &s)
	case ir.StmtSwitch:
		err = parseSwitch(v, path, &s)
	case ir.StmtInstance:
		err = parseInstance(v, path, &s)
	}
	return s, err
}

func parseAssign(v cue.Value, path string, s *ir.Stmt) error {
	dest, err := requireString(v, "assign", path)
	if err != nil {
		return err
	}
	source, err := requireString(v, "source", path)
	if err != nil {
		return err
	}
	s.Dest, s.Source = ir.Endpoint(dest), ir.Operand(source)

	rangeVal := v.LookupPath(cue.ParsePath("range"))
	if !rangeVal.Exists() {
		return nil
	}
	var bounds []int64
	iter, err := rangeVal.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		n, err := iter.Value().Int64()
		if err != nil {
			return formatCUEError(err)
		}
		bounds = append(bounds, n)
	}
	if len(bounds) != 2 {
		return &CompileError{
			Field:   path + ".range",
			Message: "range must be [lo, hi]",
			Pos:     rangeVal.Pos(),
		}
	}
	r := ir.Bits(int(bounds[0]), int(bounds[1]))
	s.Range = &r
	return nil
}

func parseIf(v cue.Value, path string, s *ir.Stmt) error {
	cond, err := requireString(v, "when", path)
	if err != nil {
		return err
	}
	s.Cond = ir.Operand(cond)

	if s.Then, err = optionalStmts(v, "then", path+".then"); err != nil {
		return err
	}
	s.Else, err = optionalStmts(v, "otherwise", path+".else")
	return err
}

func parseSwitch(v cue.Value, path string, s *ir.Stmt) error {
	value, err := requireString(v, "select", path)
	if err != nil {
		return err
	}
	s.Value = ir.Operand(value)

	casesVal := v.LookupPath(cue.ParsePath("cases"))
	if casesVal.Exists() {
		iter, err := casesVal.List()
		if err != nil {
			return formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			cv := iter.Value()
			casePath := path + ".case." + strconv.Itoa(i)

			match, err := cv.LookupPath(cue.ParsePath("match")).Int64()
			if err != nil {
				return &CompileError{Field: casePath + ".match", Message: "case match must be an integer", Pos: cv.Pos()}
			}
			body, err := optionalStmts(cv, "body", casePath)
			if err != nil {
				return err
			}
			sc := ir.SwitchCase{Match: match, Body: body}
			if ft := cv.LookupPath(cue.ParsePath("fallthrough")); ft.Exists() {
				if sc.Fallthrough, err = ft.Bool(); err != nil {
					return formatCUEError(err)
				}
			}
			s.Cases = append(s.Cases, sc)
		}
	}

	s.Default, err = optionalStmts(v, "default", path+".default")
	return err
}

func parseInstance(v cue.Value, path string, s *ir.Stmt) error {
	name, err := requireString(v, "instance", path)
	if err != nil {
		return err
	}
	module, err := requireString(v, "module", path)
	if err != nil {
		return err
	}
	s.Instance, s.Module = name, module
	return nil
}

func requireString(v cue.Value, field, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: path + "." + field, Message: field + " is required", Pos: v.Pos()}
	}
	str, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: path + "." + field, Message: field + " must be a string", Pos: fv.Pos()}
	}
	return str, nil
}

func optionalStmts(v cue.Value, field, path string) ([]ir.Stmt, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	return parseStmts(fv, path)
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
