package integrity

import "github.com/mcrud/mcrud/internal/docid"

// Normalize turns a stored or submitted reference value into a de-duplicated
// id list. Absent and null values become the empty set.
func Normalize(v interface{}) []interface{} {
	return dedupe(docid.List(v))
}

// Union returns a followed by the members of b that a does not hold
func Union(a, b []interface{}) []interface{} {
	out := make([]interface{}, 0, len(a)+len(b))
	out = append(out, a...)
	return dedupe(append(out, b...))
}

// Difference returns the members of a that b does not hold
func Difference(a, b []interface{}) []interface{} {
	exclude := keys(b)
	out := make([]interface{}, 0, len(a))
	for _, id := range a {
		if !exclude[docid.Key(id)] {
			out = append(out, id)
		}
	}
	return out
}

// Contains reports whether set holds id
func Contains(set []interface{}, id interface{}) bool {
	for _, member := range set {
		if docid.Equal(member, id) {
			return true
		}
	}
	return false
}

func dedupe(ids []interface{}) []interface{} {
	seen := make(map[string]bool, len(ids))
	out := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		k := docid.Key(id)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, id)
	}
	return out
}

func keys(ids []interface{}) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[docid.Key(id)] = true
	}
	return out
}
