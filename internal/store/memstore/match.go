package memstore

import (
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Match reports whether doc satisfies filter. It understands the predicate
// subset the filter compiler and the integrity engine emit; $nearSphere is not
// evaluated and always matches.
func Match(doc bson.M, filter bson.M) bool {
	for key, cond := range filter {
		switch key {
		case "$and":
			for _, sub := range subFilters(cond) {
				if !Match(doc, sub) {
					return false
				}
			}
		case "$or":
			subs := subFilters(cond)
			if len(subs) == 0 {
				continue
			}
			matched := false
			for _, sub := range subs {
				if Match(doc, sub) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		default:
			value, present := lookup(doc, key)
			if !matchField(value, present, cond) {
				return false
			}
		}
	}
	return true
}

func subFilters(v interface{}) []bson.M {
	out := make([]bson.M, 0)
	for _, item := range toList(v) {
		if m, ok := toMap(item); ok {
			out = append(out, m)
		}
	}
	return out
}

func lookup(doc bson.M, path string) (interface{}, bool) {
	var current interface{} = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := toMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func matchField(value interface{}, present bool, cond interface{}) bool {
	ops, ok := toMap(cond)
	if !ok || !isOperatorMap(ops) {
		return equalsOrContains(value, cond)
	}

	for op, arg := range ops {
		if !evalOperator(op, value, present, arg) {
			return false
		}
	}
	return true
}

func isOperatorMap(m bson.M) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func evalOperator(op string, value interface{}, present bool, arg interface{}) bool {
	switch op {
	case "$eq":
		return equalsOrContains(value, arg)
	case "$ne":
		return !equalsOrContains(value, arg)
	case "$gt":
		return anyCompare(value, arg, func(c int) bool { return c > 0 })
	case "$gte":
		return anyCompare(value, arg, func(c int) bool { return c >= 0 })
	case "$lt":
		return anyCompare(value, arg, func(c int) bool { return c < 0 })
	case "$lte":
		return anyCompare(value, arg, func(c int) bool { return c <= 0 })
	case "$in":
		for _, candidate := range toList(arg) {
			if equalsOrContains(value, candidate) {
				return true
			}
		}
		return false
	case "$nin":
		for _, candidate := range toList(arg) {
			if equalsOrContains(value, candidate) {
				return false
			}
		}
		return true
	case "$exists":
		want, _ := arg.(bool)
		return present == want
	case "$nearSphere":
		return true
	default:
		return false
	}
}

// equalsOrContains is the implicit equality of a document store: an array
// field matches when the whole array or any element equals want
func equalsOrContains(value, want interface{}) bool {
	if valuesEqual(value, want) {
		return true
	}
	if list, ok := asList(value); ok {
		for _, item := range list {
			if valuesEqual(item, want) {
				return true
			}
		}
	}
	return false
}

func anyCompare(value, arg interface{}, accept func(int) bool) bool {
	if list, ok := asList(value); ok {
		for _, item := range list {
			if c, ok := compare(item, arg); ok && accept(c) {
				return true
			}
		}
		return false
	}
	c, ok := compare(value, arg)
	return ok && accept(c)
}

func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if c, ok := compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// compare orders two scalars of the same family
func compare(a, b interface{}) (int, bool) {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return cmpFloat(fa, fb), true
		}
		return 0, false
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case primitive.ObjectID:
		bv, ok := b.(primitive.ObjectID)
		if !ok {
			return 0, false
		}
		return strings.Compare(av.Hex(), bv.Hex()), true
	}

	if ta, ok := toTime(a); ok {
		if tb, ok := toTime(b); ok {
			switch {
			case ta.Before(tb):
				return -1, true
			case ta.After(tb):
				return 1, true
			default:
				return 0, true
			}
		}
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	default:
		return time.Time{}, false
	}
}

func toMap(v interface{}) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return bson.M(m), true
	default:
		return nil, false
	}
}

func asList(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case []interface{}:
		return l, true
	case primitive.A:
		return []interface{}(l), true
	case []bson.M:
		out := make([]interface{}, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	case []string:
		out := make([]interface{}, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	case []primitive.ObjectID:
		out := make([]interface{}, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	default:
		return nil, false
	}
}

func toList(v interface{}) []interface{} {
	if l, ok := asList(v); ok {
		return l
	}
	if v == nil {
		return nil
	}
	return []interface{}{v}
}

func normalize(v interface{}) interface{} {
	if l, ok := asList(v); ok {
		out := make([]interface{}, len(l))
		for i, item := range l {
			out[i] = normalize(item)
		}
		return out
	}
	if m, ok := toMap(v); ok {
		out := make(map[string]interface{}, len(m))
		for k, item := range m {
			out[k] = normalize(item)
		}
		return out
	}
	return v
}
