package schema

// ReferenceField is a foreign reference discovered in a schema descriptor
type ReferenceField struct {
	LocalKey    string
	Target      string
	ForeignKey  string
	Cardinality Cardinality
}

// ScanReferences walks a descriptor and extracts its declared foreign references.
// A reference field yields cardinality One, an array of references yields Many.
// Fields are visited in name order so discovery is deterministic.
func ScanReferences(descriptor Descriptor) []ReferenceField {
	refs := make([]ReferenceField, 0)

	for _, name := range descriptor.Fields() {
		field := descriptor[name]
		switch {
		case field.IsReference():
			refs = append(refs, ReferenceField{
				LocalKey:    name,
				Target:      field.Ref.Target,
				ForeignKey:  field.Ref.ForeignKey,
				Cardinality: One,
			})
		case field.IsReferenceArray():
			refs = append(refs, ReferenceField{
				LocalKey:    name,
				Target:      field.Elem.Ref.Target,
				ForeignKey:  field.Elem.Ref.ForeignKey,
				Cardinality: Many,
			})
		}
	}

	return refs
}
