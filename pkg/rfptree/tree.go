// Package rfptree models the extracted content of an RFP document: an ordered
// tree of named sections whose leaves carry extracted text and the source
// pages it was found on.
package rfptree

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Node is either a *Leaf or a *Branch.
type Node interface {
	isNode()
}

// Leaf holds the text extracted for a section and the pages it came from.
type Leaf struct {
	ExtractedData string `json:"extracted_data"`
	Pages         []int  `json:"pages"`
}

func (*Leaf) isNode() {}

// MarshalJSON always emits pages as an array, never null.
func (l *Leaf) MarshalJSON() ([]byte, error) {
	pages := l.Pages
	if pages == nil {
		pages = []int{}
	}
	return json.Marshal(struct {
		ExtractedData string `json:"extracted_data"`
		Pages         []int  `json:"pages"`
	}{l.ExtractedData, pages})
}

// Section is a named child of a Branch.
type Section struct {
	Name string
	Node Node
}

// Branch is an ordered mapping from section name to child node. Section order
// is the order the keys appeared in the source document and is kept through
// every encode, decode and edit.
type Branch struct {
	Sections []Section
}

func (*Branch) isNode() {}

// NewBranch builds a branch from the given sections, in order.
func NewBranch(sections ...Section) *Branch {
	return &Branch{Sections: sections}
}

// Get returns the child stored under name.
func (b *Branch) Get(name string) (Node, bool) {
	if i := b.index(name); i >= 0 {
		return b.Sections[i].Node, true
	}
	return nil, false
}

// Keys returns the section names in order.
func (b *Branch) Keys() []string {
	keys := make([]string, len(b.Sections))
	for i, s := range b.Sections {
		keys[i] = s.Name
	}
	return keys
}

// Len returns the number of direct children.
func (b *Branch) Len() int {
	return len(b.Sections)
}

func (b *Branch) index(name string) int {
	for i, s := range b.Sections {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// MarshalJSON writes the branch as a JSON object with keys in section order.
func (b *Branch) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range b.Sections {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := Marshal(s.Node)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", s.Name, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// IsLeaf reports whether n is a leaf.
func IsLeaf(n Node) bool {
	_, ok := n.(*Leaf)
	return ok
}

// Marshal encodes a node. A nil node encodes as an empty object.
func Marshal(n Node) ([]byte, error) {
	switch v := n.(type) {
	case nil:
		return []byte("{}"), nil
	case *Leaf:
		if v == nil {
			return []byte("{}"), nil
		}
		return v.MarshalJSON()
	case *Branch:
		if v == nil {
			return []byte("{}"), nil
		}
		return v.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown node type %T", n)
	}
}

// Walk visits every leaf depth-first in section order. The path slice is
// reused between calls; copy it to keep it.
func Walk(root Node, fn func(path []string, leaf *Leaf)) {
	walk(root, nil, fn)
}

func walk(n Node, path []string, fn func([]string, *Leaf)) {
	switch v := n.(type) {
	case *Leaf:
		fn(path, v)
	case *Branch:
		for _, s := range v.Sections {
			walk(s.Node, append(path, s.Name), fn)
		}
	}
}

// Tree wraps a root node so it can sit in a JSON document as a field.
type Tree struct {
	Root Node
}

// MarshalJSON implements json.Marshaler.
func (t Tree) MarshalJSON() ([]byte, error) {
	return Marshal(t.Root)
}

// UnmarshalJSON validates the input and keeps key order.
func (t *Tree) UnmarshalJSON(data []byte) error {
	root, err := Parse(data)
	if err != nil {
		return err
	}
	t.Root = root
	return nil
}

// IsEmpty reports whether the tree has no content.
func (t Tree) IsEmpty() bool {
	switch v := t.Root.(type) {
	case nil:
		return true
	case *Branch:
		return v == nil || v.Len() == 0
	}
	return false
}
