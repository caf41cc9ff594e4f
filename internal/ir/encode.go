package ir

import (
	"encoding/json"
	"fmt"
)

// TreeValue converts a tree to its canonical Value form.
func TreeValue(t *Tree) Object {
	endpoints := make(Array, len(t.Endpoints))
	for i, ep := range t.Endpoints {
		endpoints[i] = Object{
			"name":  String(ep.Name),
			"width": Int(ep.Width),
		}
	}
	return Object{
		"module":    String(t.Module),
		"endpoints": endpoints,
		"root":      NodesValue(t.Root),
	}
}

// NodesValue converts a node list to its canonical Value form.
func NodesValue(nodes []Node) Array {
	out := make(Array, len(nodes))
	for i, n := range nodes {
		out[i] = nodeValue(n)
	}
	return out
}

func nodeValue(n Node) Object {
	switch v := n.(type) {
	case *BranchNode:
		return Object{
			"kind":  String("branch"),
			"site":  siteValue(v.Site),
			"cond":  String(v.Cond),
			"true":  NodesValue(v.True),
			"false": NodesValue(v.False),
		}
	case *SwitchNode:
		cases := make(Array, len(v.Cases))
		for i, c := range v.Cases {
			obj := Object{"children": NodesValue(c.Children)}
			if c.Default {
				obj["default"] = Bool(true)
			} else {
				obj["candidate"] = Int(c.Candidate)
			}
			cases[i] = obj
		}
		return Object{
			"kind":  String("switch"),
			"site":  siteValue(v.Site),
			"value": String(v.Value),
			"cases": cases,
		}
	case *AssignNode:
		return Object{
			"kind":   String("assign"),
			"site":   siteValue(v.Site),
			"dest":   String(v.Dest),
			"range":  rangeValue(v.Range),
			"source": String(v.Source),
		}
	default:
		panic(fmt.Sprintf("ir: unknown node type %T", n))
	}
}

func siteValue(s SiteID) Object {
	return Object{"key": String(s.Key), "occurrence": Int(s.Occurrence)}
}

func rangeValue(r BitRange) Object {
	return Object{"lo": Int(r.Lo), "hi": Int(r.Hi)}
}

// DriversValue converts driver tables to their canonical Value form.
func DriversValue(drivers map[Endpoint][]Driver) Object {
	out := make(Object, len(drivers))
	for ep, list := range drivers {
		arr := make(Array, len(list))
		for i, d := range list {
			path := make(Array, len(d.Path))
			for j, step := range d.Path {
				path[j] = Object{"site": siteValue(step.Site), "outcome": String(step.Outcome)}
			}
			arr[i] = Object{
				"range":  rangeValue(d.Range),
				"source": String(d.Source),
				"site":   siteValue(d.Site),
				"path":   path,
			}
		}
		out[string(ep)] = arr
	}
	return out
}

// MarshalTree encodes a tree as canonical JSON.
func MarshalTree(t *Tree) ([]byte, error) {
	data, err := MarshalCanonical(TreeValue(t))
	if err != nil {
		return nil, fmt.Errorf("marshal tree: %w", err)
	}
	return data, nil
}

// MarshalDrivers encodes driver tables as canonical JSON.
func MarshalDrivers(drivers map[Endpoint][]Driver) ([]byte, error) {
	data, err := MarshalCanonical(DriversValue(drivers))
	if err != nil {
		return nil, fmt.Errorf("marshal drivers: %w", err)
	}
	return data, nil
}

// wireNode mirrors the canonical node encoding for decoding.
type wireNode struct {
	Kind   string     `json:"kind"`
	Site   SiteID     `json:"site"`
	Cond   Operand    `json:"cond"`
	True   []wireNode `json:"true"`
	False  []wireNode `json:"false"`
	Value  Operand    `json:"value"`
	Cases  []wireCase `json:"cases"`
	Dest   Endpoint   `json:"dest"`
	Range  BitRange   `json:"range"`
	Source Operand    `json:"source"`
}

type wireCase struct {
	Candidate int64      `json:"candidate"`
	Default   bool       `json:"default"`
	Children  []wireNode `json:"children"`
}

type wireTree struct {
	Module    string         `json:"module"`
	Endpoints []EndpointDecl `json:"endpoints"`
	Root      []wireNode     `json:"root"`
}

// UnmarshalTree decodes a tree produced by MarshalTree.
func UnmarshalTree(data []byte) (*Tree, error) {
	var w wireTree
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal tree: %w", err)
	}
	root, err := fromWire(w.Root)
	if err != nil {
		return nil, fmt.Errorf("unmarshal tree: %w", err)
	}
	return &Tree{Module: w.Module, Endpoints: w.Endpoints, Root: root}, nil
}

// UnmarshalDrivers decodes driver tables produced by MarshalDrivers.
func UnmarshalDrivers(data []byte) (map[Endpoint][]Driver, error) {
	var drivers map[Endpoint][]Driver
	if err := json.Unmarshal(data, &drivers); err != nil {
		return nil, fmt.Errorf("unmarshal drivers: %w", err)
	}
	return drivers, nil
}

func fromWire(nodes []wireNode) ([]Node, error) {
	out := make([]Node, 0, len(nodes))
	for i, w := range nodes {
		switch w.Kind {
		case "branch":
			t, err := fromWire(w.True)
			if err != nil {
				return nil, err
			}
			f, err := fromWire(w.False)
			if err != nil {
				return nil, err
			}
			out = append(out, &BranchNode{Site: w.Site, Cond: w.Cond, True: t, False: f})
		case "switch":
			cases := make([]Case, len(w.Cases))
			for j, c := range w.Cases {
				children, err := fromWire(c.Children)
				if err != nil {
					return nil, err
				}
				cases[j] = Case{Candidate: c.Candidate, Default: c.Default, Children: children}
			}
			out = append(out, &SwitchNode{Site: w.Site, Value: w.Value, Cases: cases})
		case "assign":
			out = append(out, &AssignNode{Site: w.Site, Dest: w.Dest, Range: w.Range, Source: w.Source})
		default:
			return nil, fmt.Errorf("node[%d]: unknown kind %q", i, w.Kind)
		}
	}
	return out, nil
}
