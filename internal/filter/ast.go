// Package filter parses the client filter language and compiles it into
// document store predicates.
//
// A filter is a boolean expression of conditions:
//
//	age gt '5' and (name eq 'bob' or role in 'admin,owner')
//
// Each condition is `field operator value`. Values may be bare words, quoted
// 'strings', or carry a type hint such as guid'5f1d...' or int'42'.
// "and" binds tighter than "or"; parentheses group.
package filter

import (
	"strings"
)

// Connective joins the children of a Composite
type Connective string

const (
	And Connective = "and"
	Or  Connective = "or"
)

// Node is either a *Leaf or a *Composite
type Node interface {
	String() string
	node()
}

// Value is the right hand side of a condition
type Value struct {
	Raw    string // value with quotes and hint stripped
	Hint   string // type hint before the quotes, e.g. "guid"
	Quoted bool
}

// String renders the value the way it is written in a filter
func (v Value) String() string {
	if !v.Quoted {
		return v.Raw
	}
	return v.Hint + "'" + v.Raw + "'"
}

// Leaf is a single `field operator value` condition
type Leaf struct {
	Field    string
	Operator string
	Value    Value
}

func (*Leaf) node() {}

// String renders the condition
func (l *Leaf) String() string {
	return l.Field + " " + l.Operator + " " + l.Value.String()
}

// Composite joins two or more nodes with one connective
type Composite struct {
	Connective Connective
	Children   []Node
}

func (*Composite) node() {}

// String renders the composite, parenthesising nested composites
func (c *Composite) String() string {
	parts := make([]string, len(c.Children))
	for i, child := range c.Children {
		if _, nested := child.(*Composite); nested {
			parts[i] = "(" + child.String() + ")"
			continue
		}
		parts[i] = child.String()
	}
	return strings.Join(parts, " "+string(c.Connective)+" ")
}

// combine builds the node for children joined by conn. Children that are
// composites of the same connective are flattened; one child is returned as is.
func combine(conn Connective, children []Node) Node {
	if len(children) == 1 {
		return children[0]
	}

	flat := make([]Node, 0, len(children))
	for _, child := range children {
		if c, ok := child.(*Composite); ok && c.Connective == conn {
			flat = append(flat, c.Children...)
			continue
		}
		flat = append(flat, child)
	}
	return &Composite{Connective: conn, Children: flat}
}
