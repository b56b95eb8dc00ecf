package memstore

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// applyUpdate mutates doc with the $set, $unset, $addToSet and $pull operators
func applyUpdate(doc bson.M, update bson.M) error {
	for op, arg := range update {
		fields, ok := toMap(arg)
		if !ok {
			return fmt.Errorf("update operator %s expects a document", op)
		}

		switch op {
		case "$set":
			for field, value := range fields {
				doc[field] = clone(value)
			}
		case "$unset":
			for field := range fields {
				delete(doc, field)
			}
		case "$addToSet":
			for field, value := range fields {
				doc[field] = addToSet(doc[field], eachValues(value))
			}
		case "$pull":
			for field, value := range fields {
				doc[field] = pull(doc[field], value)
			}
		default:
			return fmt.Errorf("unsupported update operator %s", op)
		}
	}
	return nil
}

// eachValues unwraps {$each: [...]}
func eachValues(v interface{}) []interface{} {
	if m, ok := toMap(v); ok {
		if each, ok := m["$each"]; ok {
			return toList(each)
		}
	}
	return []interface{}{v}
}

func addToSet(current interface{}, values []interface{}) interface{} {
	list, ok := asList(current)
	if !ok {
		list = make([]interface{}, 0, len(values))
		if current != nil {
			list = append(list, current)
		}
	}

	out := make(primitive.A, 0, len(list)+len(values))
	out = append(out, list...)
	for _, v := range values {
		if !containsValue(out, v) {
			out = append(out, clone(v))
		}
	}
	return out
}

// pull removes matching elements. The condition is a value, or {$in: [...]}.
func pull(current interface{}, cond interface{}) interface{} {
	list, ok := asList(current)
	if !ok {
		return current
	}

	remove := []interface{}{cond}
	if m, ok := toMap(cond); ok {
		if in, ok := m["$in"]; ok {
			remove = toList(in)
		}
	}

	out := make(primitive.A, 0, len(list))
	for _, item := range list {
		if !containsValue(remove, item) {
			out = append(out, item)
		}
	}
	return out
}

func containsValue(list []interface{}, v interface{}) bool {
	for _, item := range list {
		if valuesEqual(item, v) {
			return true
		}
	}
	return false
}

// clone deep copies maps and arrays so stored documents never alias caller data
func clone(v interface{}) interface{} {
	if m, ok := toMap(v); ok {
		out := make(bson.M, len(m))
		for k, item := range m {
			out[k] = clone(item)
		}
		return out
	}
	if l, ok := asList(v); ok {
		out := make(primitive.A, len(l))
		for i, item := range l {
			out[i] = clone(item)
		}
		return out
	}
	return v
}

func cloneDoc(doc bson.M) bson.M {
	if doc == nil {
		return nil
	}
	return clone(doc).(bson.M)
}
