// Package schema provides the document schema descriptors that drive route
// generation and relationship discovery.
package schema

import (
	"fmt"
	"strings"
)

// Kind represents the declared type of a document field
type Kind int

const (
	KindMixed Kind = iota
	KindString
	KindNumber
	KindBool
	KindDate
	KindObjectID
	KindArray
	KindObject
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindMixed:
		return "mixed"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindObjectID:
		return "objectId"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// ParseKind converts a string to a Kind
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "mixed", "any", "":
		return KindMixed, nil
	case "string", "text":
		return KindString, nil
	case "number", "int", "float", "decimal":
		return KindNumber, nil
	case "bool", "boolean":
		return KindBool, nil
	case "date", "timestamp":
		return KindDate, nil
	case "objectid", "id", "ref":
		return KindObjectID, nil
	case "array":
		return KindArray, nil
	case "object", "map":
		return KindObject, nil
	default:
		return 0, fmt.Errorf("unknown field type: %s", s)
	}
}

// Cardinality is how many references one side of a relationship holds
type Cardinality int

const (
	// One means the field holds at most one reference
	One Cardinality = iota
	// Many means the field holds an array of references
	Many
)

// String returns the string representation of the cardinality
func (c Cardinality) String() string {
	switch c {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return "unknown"
	}
}

// Reference marks a field as pointing at documents of another collection
type Reference struct {
	Target     string // Model name of the referenced collection
	ForeignKey string // Field on the target expected to mirror the reference back
}

// FieldType describes a single field of a document schema
type FieldType struct {
	Kind     Kind
	Ref      *Reference // Set when Kind is KindObjectID and the id points at another collection
	Elem     *FieldType // For arrays
	Required bool
}

// IsReference returns true if the field holds a single foreign reference
func (f *FieldType) IsReference() bool {
	return f != nil && f.Ref != nil
}

// IsReferenceArray returns true if the field holds a list of foreign references
func (f *FieldType) IsReferenceArray() bool {
	return f != nil && f.Kind == KindArray && f.Elem.IsReference()
}

// String returns a string representation of the field type
func (f *FieldType) String() string {
	switch {
	case f == nil:
		return "<nil>"
	case f.Ref != nil:
		return fmt.Sprintf("ref<%s.%s>", f.Ref.Target, f.Ref.ForeignKey)
	case f.Kind == KindArray && f.Elem != nil:
		return fmt.Sprintf("[%s]", f.Elem.String())
	default:
		return f.Kind.String()
	}
}

// Descriptor maps field names to their declared types
type Descriptor map[string]*FieldType

// Fields returns the field names of the descriptor in a stable order
func (d Descriptor) Fields() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sortStrings(names)
	return names
}

// Has returns true if the descriptor declares the field
func (d Descriptor) Has(name string) bool {
	_, ok := d[name]
	return ok
}

// Collection is a registered document collection together with its route options
type Collection struct {
	Name           string // Model name, e.g. "User"
	Plural         string // Collection and route key, e.g. "users"
	Prefix         *string
	Descriptor     Descriptor
	DisabledRoutes []string
	Middleware     map[string][]string // comma separated operation list -> middleware names
}

// NewCollection creates a Collection with a pluralized key derived from its name
func NewCollection(name string, descriptor Descriptor) *Collection {
	if descriptor == nil {
		descriptor = make(Descriptor)
	}
	return &Collection{
		Name:       name,
		Plural:     Pluralize(name),
		Descriptor: descriptor,
		Middleware: make(map[string][]string),
	}
}

// RoutePrefix returns the URL prefix routes for this collection are mounted on
func (c *Collection) RoutePrefix() string {
	if c.Prefix != nil {
		if *c.Prefix == "" {
			return ""
		}
		return "/" + strings.Trim(*c.Prefix, "/")
	}
	return "/" + c.Plural
}

// RouteDisabled returns true if the named operation must not be mounted
func (c *Collection) RouteDisabled(operation string) bool {
	for _, disabled := range c.DisabledRoutes {
		if disabled == operation {
			return true
		}
	}
	return false
}
