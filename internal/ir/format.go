package ir

import (
	"fmt"
	"io"
	"strings"
)

// Format writes an indented, human-readable rendering of the tree.
//
//	module mux
//	  port out[8]
//	  if en
//	    out[0:8) = a
//	  else
//	    out[0:8) = b
func Format(w io.Writer, t *Tree) error {
	p := &printer{w: w}
	p.line(0, "module %s", t.Module)
	for _, ep := range t.Endpoints {
		p.line(1, "port %s[%d]", ep.Name, ep.Width)
	}
	p.nodes(1, t.Root)
	return p.err
}

// FormatString renders the tree with Format.
func FormatString(t *Tree) string {
	var sb strings.Builder
	_ = Format(&sb, t)
	return sb.String()
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}

func (p *printer) nodes(depth int, nodes []Node) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *BranchNode:
			p.line(depth, "if %s", v.Cond)
			p.nodes(depth+1, v.True)
			if len(v.False) > 0 {
				p.line(depth, "else")
				p.nodes(depth+1, v.False)
			}
		case *SwitchNode:
			p.line(depth, "switch %s", v.Value)
			for _, c := range v.Cases {
				if c.Default {
					p.line(depth+1, "default")
				} else {
					p.line(depth+1, "case %d", c.Candidate)
				}
				p.nodes(depth+2, c.Children)
			}
		case *AssignNode:
			p.line(depth, "%s%s = %s", v.Dest, v.Range, v.Source)
		}
	}
}
