package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mcrud/mcrud/internal/docid"
	"github.com/mcrud/mcrud/internal/schema"
	"github.com/mcrud/mcrud/internal/store"
	"github.com/mcrud/mcrud/internal/web/response"
)

// maxBodyBytes bounds the size of a request body
const maxBodyBytes = 1 << 20

// decodeBody reads a JSON object from the request body
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	var body map[string]interface{}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", response.ErrInvalidBody, err)
	}
	if body == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", response.ErrInvalidBody)
	}
	return body, nil
}

// documentFrom keeps the declared fields of body, converted to their
// declared types. Undeclared fields are dropped.
func documentFrom(descriptor schema.Descriptor, body map[string]interface{}) (store.Document, error) {
	doc := store.Document{}
	for name, value := range body {
		field, ok := descriptor[name]
		if !ok {
			continue
		}
		converted, err := convertValue(field, value)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", response.ErrInvalidBody, name, err)
		}
		doc[name] = converted
	}
	return doc, nil
}

// missingRequired lists the required fields absent from doc
func missingRequired(descriptor schema.Descriptor, doc store.Document) []error {
	var errs []error
	for _, name := range descriptor.Fields() {
		if !descriptor[name].Required {
			continue
		}
		if value, ok := doc[name]; !ok || value == nil {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	return errs
}

func convertValue(field *schema.FieldType, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch field.Kind {
	case schema.KindObjectID:
		return docid.Coerce(value), nil
	case schema.KindNumber:
		if n, ok := value.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return i, nil
			}
			return n.Float64()
		}
		return nil, fmt.Errorf("expected a number")
	case schema.KindString:
		if _, ok := value.(string); !ok {
			return nil, fmt.Errorf("expected a string")
		}
		return value, nil
	case schema.KindBool:
		if _, ok := value.(bool); !ok {
			return nil, fmt.Errorf("expected a boolean")
		}
		return value, nil
	case schema.KindDate:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected an RFC 3339 date")
		}
		return time.Parse(time.RFC3339, s)
	case schema.KindArray:
		items, ok := value.([]interface{})
		if !ok {
			if field.IsReferenceArray() {
				return docid.List(value), nil
			}
			return nil, fmt.Errorf("expected an array")
		}
		if field.Elem == nil {
			return plain(items), nil
		}
		out := make([]interface{}, 0, len(items))
		for _, item := range items {
			converted, err := convertValue(field.Elem, item)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil
	default:
		return plain(value), nil
	}
}

// plain replaces json.Number inside untyped values with int64 or float64
func plain(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = plain(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = plain(item)
		}
		return out
	default:
		return v
	}
}
