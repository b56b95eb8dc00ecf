// Package query reads the read-shaping parameters of a collection request:
// field selection, relation inclusion, filters, sort order and paging.
//
// Bare parameters (fields=a,b) address the collection being queried.
// Bracketed parameters (fields[author]=name) address a related key.
package query

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/mcrud/mcrud/internal/filter"
)

// ErrInvalidParam is returned for a skip or limit that is not a non-negative integer
var ErrInvalidParam = errors.New("invalid query parameter")

// keyedPattern matches parameters like fields[key], include[key] and filter[key]
var keyedPattern = regexp.MustCompile(`^(fields|include|filter)\[([^\]]+)\]$`)

// Params holds the parsed parameters of one request. Maps are keyed by the
// collection key or relation key they apply to; the empty key holds the bare
// form of the parameter.
type Params struct {
	Root    string
	Fields  map[string][]string
	Include map[string][]string
	Filters map[string]bson.M
	Sort    []string
	Skip    int64
	Limit   int64
}

// Parse reads the query string of r. root is the key of the collection the
// request addresses; bare parameters apply to it. Malformed filters return an
// error wrapping filter.ErrMalformedFilter.
func Parse(r *http.Request, root string) (*Params, error) {
	p := &Params{
		Root:    root,
		Fields:  make(map[string][]string),
		Include: make(map[string][]string),
		Filters: make(map[string]bson.M),
	}

	values := r.URL.Query()
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		value := vals[0]

		kind, target := key, ""
		if matches := keyedPattern.FindStringSubmatch(key); len(matches) == 3 {
			kind, target = matches[1], matches[2]
		}

		switch kind {
		case "fields":
			p.Fields[target] = splitList(value)
		case "include":
			p.Include[target] = splitList(value)
		case "filter":
			predicate, err := filter.CompileString(value)
			if err != nil {
				return nil, err
			}
			p.Filters[target] = predicate
		}
	}

	p.Sort = splitList(values.Get("sort"))

	var err error
	if p.Skip, err = nonNegative(values, "skip"); err != nil {
		return nil, err
	}
	if p.Limit, err = nonNegative(values, "limit"); err != nil {
		return nil, err
	}

	return p, nil
}

// FieldsFor returns the selected fields for key, or nil for all fields
func (p *Params) FieldsFor(key string) []string {
	if fields, ok := p.Fields[key]; ok {
		return fields
	}
	if key == p.Root {
		return p.Fields[""]
	}
	return nil
}

// IncludeFor returns the relation keys to populate on documents reached by key
func (p *Params) IncludeFor(key string) []string {
	if include, ok := p.Include[key]; ok {
		return include
	}
	if key == p.Root {
		return p.Include[""]
	}
	return nil
}

// FilterFor returns the predicate for documents reached by key. It is never nil.
func (p *Params) FilterFor(key string) bson.M {
	if predicate, ok := p.Filters[key]; ok {
		return predicate
	}
	if key == p.Root {
		if predicate, ok := p.Filters[""]; ok {
			return predicate
		}
	}
	return bson.M{}
}

func nonNegative(values map[string][]string, name string) (int64, error) {
	vals := values[name]
	if len(vals) == 0 || vals[0] == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(vals[0], 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidParam, name, vals[0])
	}
	return n, nil
}

func splitList(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
