package ir

func sampleTree() *Tree {
	return &Tree{
		Module: "alu",
		Endpoints: []EndpointDecl{
			{Name: "out", Width: 8},
			{Name: "flag", Width: 1},
		},
		Root: []Node{
			&SwitchNode{
				Site:  SiteID{Key: "op"},
				Value: "op",
				Cases: []Case{
					{Candidate: 0, Children: []Node{
						&BranchNode{
							Site:  SiteID{Key: "carry"},
							Cond:  "cin",
							True:  []Node{&AssignNode{Site: SiteID{Key: "add"}, Dest: "out", Range: Bits(0, 8), Source: "a+b+1"}},
							False: []Node{&AssignNode{Site: SiteID{Key: "add", Occurrence: 1}, Dest: "out", Range: Bits(0, 8), Source: "a+b"}},
						},
					}},
					{Candidate: 1, Children: []Node{
						&AssignNode{Site: SiteID{Key: "and"}, Dest: "out", Range: Bits(0, 8), Source: "a&b"},
					}},
					{Default: true},
				},
			},
			&AssignNode{Site: SiteID{Key: "flag"}, Dest: "flag", Range: FullRange(1), Source: "z"},
		},
	}
}
