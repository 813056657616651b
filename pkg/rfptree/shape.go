package rfptree

import "slices"

// StructureErrors lists every place where next departs from the structure of
// prev. Section names, their order and nesting must match, leaves must stay
// leaves and their pages must not change. Only extracted_data may differ.
func StructureErrors(prev, next Node) []string {
	var errs []string
	compareShape(prev, next, nil, &errs)
	return errs
}

func compareShape(prev, next Node, path []string, errs *[]string) {
	at := formatPath(path)
	switch p := prev.(type) {
	case *Leaf:
		n, ok := next.(*Leaf)
		if !ok {
			*errs = append(*errs, at+" must stay a leaf")
			return
		}
		if !slices.Equal(p.Pages, n.Pages) {
			*errs = append(*errs, at+" pages cannot change")
		}
	case *Branch:
		n, ok := next.(*Branch)
		if !ok {
			if next == nil && p.Len() == 0 {
				return
			}
			*errs = append(*errs, at+" must stay a section")
			return
		}
		sub := path[:len(path):len(path)]
		before := len(*errs)
		for _, s := range p.Sections {
			if _, found := n.Get(s.Name); !found {
				*errs = append(*errs, formatPath(append(sub, s.Name))+" is missing")
			}
		}
		for _, s := range n.Sections {
			if _, found := p.Get(s.Name); !found {
				*errs = append(*errs, formatPath(append(sub, s.Name))+" is not an existing section")
			}
		}
		if len(*errs) == before && !slices.Equal(p.Keys(), n.Keys()) {
			*errs = append(*errs, at+" section order cannot change")
		}
		for _, s := range p.Sections {
			if child, found := n.Get(s.Name); found {
				compareShape(s.Node, child, append(sub, s.Name), errs)
			}
		}
	case nil:
		if b, ok := next.(*Branch); next != nil && !(ok && b.Len() == 0) {
			*errs = append(*errs, at+" is not an existing section")
		}
	}
}
