package integrity

import (
	"go.uber.org/multierr"

	"github.com/mcrud/mcrud/internal/relationships"
	"github.com/mcrud/mcrud/internal/store"
)

// Result is the outcome of an integrity operation: the document it produced
// and every error met on the way. A Result can carry both.
type Result struct {
	Document store.Document
	Count    int64 // related documents touched
	Errors   []error
}

// OK reports whether the operation finished without errors
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Err combines the accumulated errors, nil when there are none
func (r Result) Err() error {
	return multierr.Combine(r.Errors...)
}

func failed(err error) Result {
	return Result{Errors: []error{err}}
}

// Action is the back-reference maintenance one patched relationship needs
type Action struct {
	Owner      string
	Related    string
	Type       relationships.Type
	LocalKey   string
	ForeignKey string
	Added      []interface{}
	Deleted    []interface{}
}

// PatchPlan lists the actions to apply once a patch has been persisted
type PatchPlan struct {
	Actions []Action
}

// Empty reports whether the plan has nothing to apply
func (p PatchPlan) Empty() bool {
	for _, a := range p.Actions {
		if len(a.Added) > 0 || len(a.Deleted) > 0 {
			return false
		}
	}
	return true
}
