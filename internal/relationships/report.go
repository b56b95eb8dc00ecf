package relationships

import (
	"fmt"
	"strings"
)

// ReportEntry is one relationship together with its resolution outcome
type ReportEntry struct {
	Relationship Relationship
	Type         Type
	Err          error
}

// Report summarises the relationships of every known collection
type Report struct {
	Collections []string
	Entries     map[string][]ReportEntry // owner -> relationships
	Pending     []PendingReference
	Unresolved  int
}

// Report resolves every relationship and collects the outcome per collection
func (r *Registry) Report() *Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report := &Report{
		Collections: make([]string, len(r.order)),
		Entries:     make(map[string][]ReportEntry),
	}
	copy(report.Collections, r.order)

	for _, owner := range r.order {
		for _, rel := range r.byOwner[owner] {
			t, err := r.resolveLocked(rel)
			if err != nil {
				report.Unresolved++
			}
			report.Entries[owner] = append(report.Entries[owner], ReportEntry{Relationship: rel, Type: t, Err: err})
		}
	}

	report.Pending = r.pendingLocked()

	return report
}

// String formats the report
func (r *Report) String() string {
	var b strings.Builder

	b.WriteString("Relationship Report\n")
	b.WriteString(fmt.Sprintf("Collections: %d\n\n", len(r.Collections)))

	for _, name := range r.Collections {
		entries := r.Entries[name]
		if len(entries) == 0 {
			b.WriteString(fmt.Sprintf("%s (no references)\n", name))
			continue
		}
		b.WriteString(fmt.Sprintf("%s\n", name))
		for _, e := range entries {
			if e.Err != nil {
				b.WriteString(fmt.Sprintf("  %s: %v\n", e.Relationship, e.Err))
				continue
			}
			b.WriteString(fmt.Sprintf("  %s: %s\n", e.Relationship, e.Type))
		}
	}

	if len(r.Pending) > 0 {
		b.WriteString("\nPending references:\n")
		for _, p := range r.Pending {
			b.WriteString(fmt.Sprintf("  %s.%s -> %s (not registered)\n",
				p.Owner, p.Reference.LocalKey, p.Reference.Target))
		}
	}

	return b.String()
}
