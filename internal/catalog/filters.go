package catalog

import (
	"github.com/qdrant/go-client/qdrant"
)

// Filter narrows catalog queries. Zero-value string fields and nil bounds
// mean "no constraint".
type Filter struct {
	Genre        string
	Artist       string
	ListensLower *int64
	ListensUpper *int64
}

// conditions renders the filter as qdrant must-clauses: exact matches for
// the string fields, an open range for the listens bounds.
func (f Filter) conditions() []*qdrant.Condition {
	var must []*qdrant.Condition

	if f.Artist != "" {
		must = append(must, qdrant.NewMatch(PayloadArtist, f.Artist))
	}
	if f.Genre != "" {
		must = append(must, qdrant.NewMatch(PayloadGenre, f.Genre))
	}
	if f.ListensLower != nil || f.ListensUpper != nil {
		r := &qdrant.Range{}
		if f.ListensLower != nil {
			r.Gt = qdrant.PtrOf(float64(*f.ListensLower))
		}
		if f.ListensUpper != nil {
			r.Lt = qdrant.PtrOf(float64(*f.ListensUpper))
		}
		must = append(must, qdrant.NewRange(PayloadListens, r))
	}

	return must
}

// qdrantFilter wraps the must-clauses, or nil when unconstrained
func (f Filter) qdrantFilter() *qdrant.Filter {
	must := f.conditions()
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}
