package yamlcfg

// Document is a fully-parsed configuration file together with its anchor
// index, so that aliases (`*name`) anywhere in the tree can be resolved back
// to the node anchored as `&name`, regardless of where in the tree each
// appears.
type Document struct {
	Root    *Node
	anchors map[string]*Node
}

// NewDocument indexes every anchored node reachable from root.
func NewDocument(root *Node) *Document {
	d := &Document{Root: root, anchors: make(map[string]*Node)}
	d.index(root)
	return d
}

func (d *Document) index(n *Node) {
	if n == nil {
		return
	}
	if n.Anchor != "" {
		d.anchors[n.Anchor] = n
	}

	switch n.Kind {
	case KindSequence:
		for _, c := range n.Sequence {
			d.index(c)
		}
	case KindMapping:
		for _, key := range n.Mapping.Keys {
			v, _ := n.Mapping.Get(key)
			d.index(v)
		}
	}
}

// Resolve follows an alias node to its anchored target. It returns the node
// unchanged if it is not an alias.
func (d *Document) Resolve(n *Node) (*Node, bool) {
	if n.Kind != KindAlias {
		return n, true
	}
	target, ok := d.anchors[n.Alias]
	return target, ok
}
