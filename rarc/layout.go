package rarc

// DotPlacement selects where the synthetic "." and ".." entries are written
// within each directory's entry range.
type DotPlacement uint8

const (
	// DotEntriesFirst writes "." and ".." before the children.
	DotEntriesFirst DotPlacement = iota
	// DotEntriesLast writes them after the children, as Nintendo's tools do.
	DotEntriesLast
)

// String returns the placement name.
func (p DotPlacement) String() string {
	switch p {
	case DotEntriesFirst:
		return "first"
	case DotEntriesLast:
		return "last"
	default:
		return "unknown"
	}
}

// NodeOrder selects how directory nodes are numbered.
type NodeOrder uint8

const (
	// NodeOrderDepthFirst numbers nodes in pre-order.
	NodeOrderDepthFirst NodeOrder = iota
	// NodeOrderBreadthFirst numbers nodes level by level.
	NodeOrderBreadthFirst
)

// String returns the order name.
func (o NodeOrder) String() string {
	switch o {
	case NodeOrderDepthFirst:
		return "depth-first"
	case NodeOrderBreadthFirst:
		return "breadth-first"
	default:
		return "unknown"
	}
}

// Layout holds the ordering conventions used when serializing. The zero
// value writes dot entries first and numbers nodes depth-first.
type Layout struct {
	DotEntries DotPlacement
	NodeOrder  NodeOrder
}

// orderNodes lists the directories of the tree in the given order. The root
// is always first. It fails when a directory is reachable twice.
func orderNodes(root *Directory, order NodeOrder) ([]*Directory, error) {
	seen := make(map[*Directory]struct{})
	visit := func(d *Directory) error {
		if _, dup := seen[d]; dup {
			return invariantf("directory %q is reachable more than once", d.Name)
		}
		seen[d] = struct{}{}
		return nil
	}

	if order == NodeOrderBreadthFirst {
		if err := visit(root); err != nil {
			return nil, err
		}
		nodes := []*Directory{root}
		for i := 0; i < len(nodes); i++ {
			for _, e := range nodes[i].Entries {
				if sub, ok := e.(*Directory); ok && sub != nil {
					if err := visit(sub); err != nil {
						return nil, err
					}
					nodes = append(nodes, sub)
				}
			}
		}
		return nodes, nil
	}

	var nodes []*Directory
	stack := []*Directory{root}
	for len(stack) > 0 {
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := visit(d); err != nil {
			return nil, err
		}
		nodes = append(nodes, d)
		for i := len(d.Entries) - 1; i >= 0; i-- {
			if sub, ok := d.Entries[i].(*Directory); ok && sub != nil {
				stack = append(stack, sub)
			}
		}
	}
	return nodes, nil
}

// detectNodeOrder reports which ordering numbers the parsed directories by
// their on-disk indices. It falls back to depth-first.
func detectNodeOrder(root *Directory) (NodeOrder, bool) {
	for _, order := range []NodeOrder{NodeOrderDepthFirst, NodeOrderBreadthFirst} {
		nodes, err := orderNodes(root, order)
		if err != nil {
			return NodeOrderDepthFirst, false
		}
		match := true
		for i, d := range nodes {
			if d.ID != i {
				match = false
				break
			}
		}
		if match {
			return order, true
		}
	}
	return NodeOrderDepthFirst, false
}
