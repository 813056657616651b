package rfptree

// UpdateLeaf returns a copy of root in which only the extracted_data of the
// leaf at path is replaced by text. Pages, sibling subtrees and the key order
// of every ancestor are kept; untouched subtrees are shared with root.
//
// When path does not resolve to a leaf the original tree is returned
// unchanged with found=false.
func UpdateLeaf(root Node, path []string, text string) (updated Node, found bool) {
	if len(path) == 0 {
		leaf, ok := root.(*Leaf)
		if !ok || leaf == nil {
			return root, false
		}
		return &Leaf{ExtractedData: text, Pages: leaf.Pages}, true
	}

	branch, ok := root.(*Branch)
	if !ok || branch == nil {
		return root, false
	}
	i := branch.index(path[0])
	if i < 0 {
		return root, false
	}
	child, ok := UpdateLeaf(branch.Sections[i].Node, path[1:], text)
	if !ok {
		return root, false
	}

	sections := make([]Section, len(branch.Sections))
	copy(sections, branch.Sections)
	sections[i].Node = child
	return &Branch{Sections: sections}, true
}

// Lookup returns the node at path.
func Lookup(root Node, path []string) (Node, bool) {
	n := root
	for _, key := range path {
		b, ok := n.(*Branch)
		if !ok || b == nil {
			return nil, false
		}
		if n, ok = b.Get(key); !ok {
			return nil, false
		}
	}
	return n, n != nil
}
