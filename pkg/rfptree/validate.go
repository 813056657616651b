package rfptree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Result reports whether a raw tree is structurally valid and, if not, every
// offending path.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidationError is returned by Parse for structurally invalid input.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid rfp tree: " + strings.Join(e.Errors, "; ")
}

// Validate walks a raw JSON document and collects an error for every value
// that is neither a leaf nor an object.
func Validate(data []byte) Result {
	_, errs := build(data)
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

// Parse validates and decodes a raw JSON document into a tree. Invalid input
// yields a *ValidationError listing all path errors.
func Parse(data []byte) (Node, error) {
	root, errs := build(data)
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return root, nil
}

func build(data []byte) (Node, []string) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, []string{"root must be an object"}
	}
	if !json.Valid(data) {
		var scratch json.RawMessage
		err := json.Unmarshal(data, &scratch)
		if err == nil {
			err = errors.New("malformed document")
		}
		return nil, []string{fmt.Sprintf("invalid JSON: %v", err)}
	}
	p := &parser{dec: json.NewDecoder(bytes.NewReader(data))}
	p.dec.UseNumber()
	root, err := p.value()
	if err != nil {
		return nil, []string{fmt.Sprintf("invalid JSON: %v", err)}
	}
	if root.node == nil {
		return nil, []string{"root must be an object"}
	}
	if len(p.errs) == 0 {
		return root.node, nil
	}
	return root.node, p.errs
}

// parser builds a tree in a single pass over the token stream. path is the
// key stack of the value being read and errs collects path errors in
// document order.
type parser struct {
	dec  *json.Decoder
	path []string
	errs []string
}

// value is one decoded JSON value. node is set for objects only; text and
// pages are kept so the enclosing object can recognise a leaf.
type value struct {
	node    Node
	text    string
	isText  bool
	pages   []int
	isPages bool
}

func (p *parser) value() (value, error) {
	tok, err := p.dec.Token()
	if err != nil {
		return value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		if t == '{' {
			return p.object()
		}
		return p.array()
	case string:
		return value{text: t, isText: true}, nil
	}
	return value{}, nil
}

type slot struct {
	key        string
	v          value
	start, end int
}

// object reads the members of an object whose opening brace was consumed. A
// repeated key keeps its first position and its last value.
func (p *parser) object() (value, error) {
	mark := len(p.errs)
	var slots []slot
	seen := make(map[string]int)
	dup := false
	for p.dec.More() {
		tok, err := p.dec.Token()
		if err != nil {
			return value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return value{}, fmt.Errorf("unexpected token %v", tok)
		}
		p.path = append(p.path, key)
		start := len(p.errs)
		v, err := p.value()
		if err != nil {
			return value{}, err
		}
		if v.node == nil {
			p.errs = append(p.errs, formatPath(p.path)+" must be an object")
		}
		p.path = p.path[:len(p.path)-1]

		s := slot{key: key, v: v, start: start, end: len(p.errs)}
		if i, ok := seen[key]; ok {
			slots[i].v, slots[i].start, slots[i].end = s.v, s.start, s.end
			dup = true
			continue
		}
		seen[key] = len(slots)
		slots = append(slots, s)
	}
	if _, err := p.dec.Token(); err != nil {
		return value{}, err
	}

	if leaf, ok := leafFromSlots(slots); ok {
		p.errs = p.errs[:mark]
		return value{node: leaf}, nil
	}
	if dup {
		var kept []string
		for _, s := range slots {
			kept = append(kept, p.errs[s.start:s.end]...)
		}
		p.errs = append(p.errs[:mark], kept...)
	}
	branch := &Branch{Sections: make([]Section, 0, len(slots))}
	for _, s := range slots {
		if s.v.node != nil {
			branch.Sections = append(branch.Sections, Section{Name: s.key, Node: s.v.node})
		}
	}
	return value{node: branch}, nil
}

// array reads an array whose opening bracket was consumed and reports
// whether every element is an integral number.
func (p *parser) array() (value, error) {
	pages := make([]int, 0)
	ok := true
	for p.dec.More() {
		tok, err := p.dec.Token()
		if err != nil {
			return value{}, err
		}
		switch t := tok.(type) {
		case json.Delim:
			ok = false
			if err := p.skip(); err != nil {
				return value{}, err
			}
		case json.Number:
			n, isInt := integral(t)
			if !isInt {
				ok = false
			}
			pages = append(pages, n)
		default:
			ok = false
		}
	}
	if _, err := p.dec.Token(); err != nil {
		return value{}, err
	}
	if !ok {
		return value{}, nil
	}
	return value{pages: pages, isPages: true}, nil
}

// skip consumes the rest of a container whose opening delimiter was read.
func (p *parser) skip() error {
	for depth := 1; depth > 0; {
		tok, err := p.dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			default:
				depth--
			}
		}
	}
	return nil
}

func formatPath(path []string) string {
	if len(path) == 0 {
		return "root"
	}
	return strings.Join(path, " > ")
}

// leafFromSlots recognises a leaf: a string extracted_data and a pages array
// whose elements are all integral numbers. Extra members are ignored.
func leafFromSlots(slots []slot) (*Leaf, bool) {
	var data, pages *value
	for i := range slots {
		switch slots[i].key {
		case "extracted_data":
			data = &slots[i].v
		case "pages":
			pages = &slots[i].v
		}
	}
	if data == nil || !data.isText || pages == nil || !pages.isPages {
		return nil, false
	}
	return &Leaf{ExtractedData: data.text, Pages: pages.pages}, true
}

func integral(n json.Number) (int, bool) {
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
