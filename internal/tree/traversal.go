package tree

// Walk visits the subtree in pre-order (parent before children), calling fn
// for each node. Traversal stops if fn returns false.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, p := range n.Prerequisites {
		p.Walk(fn)
	}
}

// PostOrder returns the subtree's nodes with every prerequisite listed before
// the concept it supports. Duplicate concept names across branches are kept;
// use ConceptOrder when a deduplicated linear order is needed.
func (n *Node) PostOrder() []*Node {
	var out []*Node
	n.postOrder(&out)
	return out
}

func (n *Node) postOrder(out *[]*Node) {
	for _, p := range n.Prerequisites {
		p.postOrder(out)
	}
	*out = append(*out, n)
}

// ConceptOrder returns the nodes in teaching order: post-order, so every
// prerequisite precedes the concept it supports, with each concept name
// appearing exactly once. A name may legitimately recur across branches, but
// re-teaching it wastes narrative budget, so only its first occurrence is
// kept.
func (n *Node) ConceptOrder() []*Node {
	seen := map[string]bool{}
	var out []*Node
	n.conceptOrder(seen, &out)
	return out
}

func (n *Node) conceptOrder(seen map[string]bool, out *[]*Node) {
	key := NormalizeConcept(n.Concept)
	if seen[key] {
		return
	}
	seen[key] = true
	for _, p := range n.Prerequisites {
		p.conceptOrder(seen, out)
	}
	*out = append(*out, n)
}

// Find returns the first node in pre-order whose normalized concept matches,
// or nil.
func (n *Node) Find(concept string) *Node {
	key := NormalizeConcept(concept)
	var found *Node
	n.Walk(func(node *Node) bool {
		if NormalizeConcept(node.Concept) == key {
			found = node
			return false
		}
		return true
	})
	return found
}
