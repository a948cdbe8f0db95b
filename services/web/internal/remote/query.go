package remote

import (
	"fmt"
	"strings"

	"knowhow/services/catalog-service/pkg/catalogpb"
)

// Filter is one field/operator/value predicate.
type Filter struct {
	Field  string
	Op     string
	Values []string
}

func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Op: catalogpb.OpEq, Values: []string{fmt.Sprint(value)}}
}

// ILike is a case-insensitive pattern match; % matches any run of characters.
func ILike(field, pattern string) Filter {
	return Filter{Field: field, Op: catalogpb.OpILike, Values: []string{pattern}}
}

func In(field string, values ...interface{}) Filter {
	f := Filter{Field: field, Op: catalogpb.OpIn}
	for _, v := range values {
		f.Values = append(f.Values, fmt.Sprint(v))
	}
	return f
}

type Order struct {
	Field string
	Desc  bool
}

type Query struct {
	Filters []Filter
	// AnyOf is a single OR group ANDed with Filters.
	AnyOf     []Filter
	Order     []Order
	Limit     int
	CountOnly bool
	Embed     []string
}

// SearchFields are the course columns free-text search looks at.
var SearchFields = []string{"topic", "description"}

// SearchTerms turns free text into an OR group: any term matching any field.
// Blank input yields no conditions.
func SearchTerms(input string, fields ...string) []Filter {
	if len(fields) == 0 {
		fields = SearchFields
	}
	var out []Filter
	for _, term := range strings.Fields(input) {
		for _, field := range fields {
			out = append(out, ILike(field, "%"+term+"%"))
		}
	}
	return out
}

func toWire(filters []Filter) []catalogpb.Filter {
	if len(filters) == 0 {
		return nil
	}
	out := make([]catalogpb.Filter, 0, len(filters))
	for _, f := range filters {
		w := catalogpb.Filter{Field: f.Field, Op: f.Op}
		if f.Op == catalogpb.OpIn {
			w.Values = f.Values
		} else if len(f.Values) > 0 {
			w.Value = f.Values[0]
		}
		out = append(out, w)
	}
	return out
}
