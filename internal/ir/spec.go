package ir

// ModuleSpec is a declarative construction body: ports plus a statement list.
// It is compiled from CUE module descriptions and interpreted by package elab.
type ModuleSpec struct {
	Name  string         `json:"name"`
	Ports []EndpointDecl `json:"ports"`
	Body  []Stmt         `json:"body"`
}

// StmtKind tags the variants of Stmt.
type StmtKind string

const (
	StmtAssign   StmtKind = "assign"
	StmtIf       StmtKind = "if"
	StmtSwitch   StmtKind = "switch"
	StmtInstance StmtKind = "instance"
)

// Stmt is one statement of a declarative body. Which fields are meaningful
// depends on Kind:
//
//	assign:   Dest, Range (nil = full width), Source
//	if:       Cond, Then, Else
//	switch:   Value, Cases, Default
//	instance: Instance (instance name), Module (module name)
type Stmt struct {
	Kind StmtKind `json:"kind"`

	// ID is the statement path ("body.2.then.0") used as its call-site key.
	ID string `json:"id"`

	Dest   Endpoint  `json:"dest,omitempty"`
	Range  *BitRange `json:"range,omitempty"`
	Source Operand   `json:"source,omitempty"`

	Cond Operand `json:"cond,omitempty"`
	Then []Stmt  `json:"then,omitempty"`
	Else []Stmt  `json:"else,omitempty"`

	Value   Operand      `json:"value,omitempty"`
	Cases   []SwitchCase `json:"cases,omitempty"`
	Default []Stmt       `json:"default,omitempty"`

	Instance string `json:"instance,omitempty"`
	Module   string `json:"module,omitempty"`
}

// SwitchCase is one declared case of a switch statement. A case with
// Fallthrough set continues into the next case's body, as in C.
type SwitchCase struct {
	Match       int64  `json:"match"`
	Body        []Stmt `json:"body"`
	Fallthrough bool   `json:"fallthrough,omitempty"`
}

// Library is a set of module specs addressable by name.
type Library map[string]*ModuleSpec
