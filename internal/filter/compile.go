package filter

import (
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/mcrud/mcrud/internal/docid"
)

// comparison operators and their store equivalents
var comparisons = map[string]string{
	"eq":  "$eq",
	"ne":  "$ne",
	"gt":  "$gt",
	"gte": "$gte",
	"lt":  "$lt",
	"lte": "$lte",
}

// Compile turns a parsed filter into a store predicate. A nil node compiles
// to the empty predicate. Leaves with an unsupported operator, and geo leaves
// with too few components, compile to the empty predicate.
func Compile(n Node) bson.M {
	switch node := n.(type) {
	case *Leaf:
		return compileLeaf(node)
	case *Composite:
		children := make(bson.A, 0, len(node.Children))
		for _, child := range node.Children {
			children = append(children, Compile(child))
		}
		return bson.M{"$" + string(node.Connective): children}
	default:
		return bson.M{}
	}
}

// CompileString parses and compiles a filter expression
func CompileString(input string) (bson.M, error) {
	node, err := Parse(input)
	if err != nil {
		return nil, err
	}
	return Compile(node), nil
}

func compileLeaf(leaf *Leaf) bson.M {
	op := strings.ToLower(leaf.Operator)

	if mongoOp, ok := comparisons[op]; ok {
		return bson.M{leaf.Field: bson.M{mongoOp: convert(leaf.Value.Raw, leaf.Value.Hint)}}
	}

	switch op {
	case "in", "nin":
		parts := splitList(leaf.Value.Raw)
		values := make(bson.A, 0, len(parts))
		for _, part := range parts {
			values = append(values, convert(part, leaf.Value.Hint))
		}
		return bson.M{leaf.Field: bson.M{"$" + op: values}}
	case "nearsphere":
		return compileNearSphere(leaf)
	default:
		return bson.M{}
	}
}

// compileNearSphere reads "lat,lng,maxDistance[,minDistance]"
func compileNearSphere(leaf *Leaf) bson.M {
	parts := splitList(leaf.Value.Raw)
	if len(parts) < 3 {
		return bson.M{}
	}

	var minDistance interface{} = float64(0)
	if len(parts) > 3 {
		minDistance = number(parts[3])
	}

	return bson.M{leaf.Field: bson.M{
		"$nearSphere": bson.M{
			"$geometry": bson.M{
				"type":        "Point",
				"coordinates": bson.A{number(parts[0]), number(parts[1])},
			},
			"$minDistance": minDistance,
			"$maxDistance": number(parts[2]),
		},
	}}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// number parses a float, keeping the raw string when it is not one
func number(s string) interface{} {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// convert applies a type hint to a raw value. Unknown hints, and values the
// hint cannot parse, leave the raw string.
func convert(raw, hint string) interface{} {
	switch strings.ToLower(hint) {
	case "guid", "id", "oid":
		return docid.Coerce(raw)
	case "int":
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	case "float":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case "bool":
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	case "date":
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return raw
}
