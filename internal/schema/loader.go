package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a collections file (YAML or JSON)
type File struct {
	Collections []CollectionSpec `yaml:"collections"`
}

// CollectionSpec declares one collection in a collections file
type CollectionSpec struct {
	Name       string                `yaml:"name"`
	Plural     string                `yaml:"plural"`
	Prefix     *string               `yaml:"prefix"`
	Disable    []string              `yaml:"disable"`
	Middleware map[string][]string   `yaml:"middleware"`
	Fields     map[string]*FieldType `yaml:"fields"`
}

// fieldSpec is the mapping form of a field declaration
type fieldSpec struct {
	Type       string     `yaml:"type"`
	Ref        string     `yaml:"ref"`
	ForeignKey string     `yaml:"foreignKey"`
	Many       bool       `yaml:"many"`
	Required   bool       `yaml:"required"`
	Items      *FieldType `yaml:"items"`
}

// UnmarshalYAML accepts three field forms:
//
//	age: number                              # scalar
//	tags: [string]                           # array of the single element type
//	author: { ref: User, foreignKey: posts } # reference, many: true for arrays
func (f *FieldType) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		kind, err := ParseKind(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		f.Kind = kind
		return nil

	case yaml.SequenceNode:
		if len(node.Content) != 1 {
			return fmt.Errorf("line %d: array field must declare exactly one element type", node.Line)
		}
		elem := &FieldType{}
		if err := node.Content[0].Decode(elem); err != nil {
			return err
		}
		f.Kind = KindArray
		f.Elem = elem
		return nil

	case yaml.MappingNode:
		var spec fieldSpec
		if err := node.Decode(&spec); err != nil {
			return err
		}
		return f.fromSpec(spec, node.Line)

	default:
		return fmt.Errorf("line %d: unsupported field declaration", node.Line)
	}
}

func (f *FieldType) fromSpec(spec fieldSpec, line int) error {
	f.Required = spec.Required

	if spec.Ref != "" {
		if spec.ForeignKey == "" {
			return fmt.Errorf("line %d: reference to %s must declare a foreignKey", line, spec.Ref)
		}
		ref := &FieldType{
			Kind:     KindObjectID,
			Ref:      &Reference{Target: spec.Ref, ForeignKey: spec.ForeignKey},
			Required: spec.Required,
		}
		if spec.Many {
			f.Kind = KindArray
			f.Elem = ref
			return nil
		}
		*f = *ref
		return nil
	}

	kind, err := ParseKind(spec.Type)
	if err != nil {
		return fmt.Errorf("line %d: %w", line, err)
	}
	f.Kind = kind
	if kind == KindArray {
		f.Elem = spec.Items
	}
	return nil
}

// Parse decodes a collections document
func Parse(data []byte) ([]*Collection, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse collections: %w", err)
	}

	collections := make([]*Collection, 0, len(file.Collections))
	for i, spec := range file.Collections {
		if spec.Name == "" {
			return nil, fmt.Errorf("collection #%d has no name", i+1)
		}
		collection := NewCollection(spec.Name, Descriptor(spec.Fields))
		if spec.Plural != "" {
			collection.Plural = spec.Plural
		}
		collection.Prefix = spec.Prefix
		collection.DisabledRoutes = spec.Disable
		if spec.Middleware != nil {
			collection.Middleware = spec.Middleware
		}
		collections = append(collections, collection)
	}

	return collections, nil
}

// LoadFile reads and decodes a collections file
func LoadFile(path string) ([]*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}
