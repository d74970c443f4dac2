package docstore

import (
	"fmt"
	"sort"
	"strings"
)

// Operator is a property filter comparison.
type Operator string

const (
	Equal              Operator = "="
	LessThan           Operator = "<"
	LessThanOrEqual    Operator = "<="
	GreaterThan        Operator = ">"
	GreaterThanOrEqual Operator = ">="
)

func (o Operator) valid() bool {
	switch o {
	case Equal, LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual:
		return true
	}
	return false
}

func (o Operator) inequality() bool {
	return o != Equal
}

// Filter restricts a query to records whose property compares to Value.
type Filter struct {
	Property string
	Op       Operator
	Value    any
}

// Order sorts query results by a property.
type Order struct {
	Property   string
	Descending bool
}

// Query selects records of a kind, optionally below an ancestor.
type Query struct {
	Kind     string
	Ancestor Key
	Filters  []Filter
	Orders   []Order
}

// NewQuery starts a query over records of kind. An empty kind matches
// every kind and is only meaningful together with an ancestor.
func NewQuery(kind string) *Query {
	return &Query{Kind: kind}
}

// HasAncestor limits the query to ancestor and its descendants.
func (q *Query) HasAncestor(ancestor Key) *Query {
	q.Ancestor = ancestor
	return q
}

// Filter adds a property filter.
func (q *Query) Filter(property string, op Operator, value any) *Query {
	q.Filters = append(q.Filters, Filter{Property: property, Op: op, Value: value})
	return q
}

// Order adds a sort order. A leading "-" sorts descending.
func (q *Query) Order(property string) *Query {
	o := Order{Property: property}
	if strings.HasPrefix(property, "-") {
		o.Property = property[1:]
		o.Descending = true
	}
	q.Orders = append(q.Orders, o)
	return q
}

// Validate enforces the shape the store can serve: inequality filters on a
// single property, which must then be the first sort order.
func (q *Query) Validate() error {
	if q.Kind == "" && q.Ancestor.IsZero() {
		return fmt.Errorf("%w: kindless query requires an ancestor", ErrInvalidQuery)
	}
	inequalityProp := ""
	for _, f := range q.Filters {
		if !f.Op.valid() {
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, f.Op)
		}
		if f.Property == "" {
			return fmt.Errorf("%w: filter without property", ErrInvalidQuery)
		}
		if _, err := normalize(f.Value); err != nil {
			return fmt.Errorf("%w: filter %s: %v", ErrInvalidQuery, f.Property, err)
		}
		if !f.Op.inequality() {
			continue
		}
		if inequalityProp != "" && inequalityProp != f.Property {
			return fmt.Errorf("%w: inequality filters on %q and %q", ErrInvalidQuery, inequalityProp, f.Property)
		}
		inequalityProp = f.Property
	}
	if inequalityProp != "" && len(q.Orders) > 0 && q.Orders[0].Property != inequalityProp {
		return fmt.Errorf("%w: first sort order must be %q when filtering by inequality", ErrInvalidQuery, inequalityProp)
	}
	return nil
}

// Matches reports whether r satisfies the kind, ancestor and filters of q.
// Records missing a filtered property never match.
func (q *Query) Matches(r *Record) bool {
	if q.Kind != "" && r.Key.Kind() != q.Kind {
		return false
	}
	if !q.Ancestor.IsZero() && !r.Key.HasAncestor(q.Ancestor) {
		return false
	}
	for _, f := range q.Filters {
		v, ok := r.Properties[f.Property]
		if !ok {
			return false
		}
		want, _ := normalize(f.Value)
		c, comparable := compareValues(v, want)
		if !comparable {
			return false
		}
		switch f.Op {
		case Equal:
			if c != 0 {
				return false
			}
		case LessThan:
			if c >= 0 {
				return false
			}
		case LessThanOrEqual:
			if c > 0 {
				return false
			}
		case GreaterThan:
			if c <= 0 {
				return false
			}
		case GreaterThanOrEqual:
			if c < 0 {
				return false
			}
		}
	}
	return true
}

// sortRecords applies the query orders. The sort is stable so records keep
// their incoming order when all order properties tie. Missing properties
// sort first.
func (q *Query) sortRecords(records []*Record) {
	if len(q.Orders) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, o := range q.Orders {
			a, aok := records[i].Properties[o.Property]
			b, bok := records[j].Properties[o.Property]
			var c int
			switch {
			case !aok && !bok:
				c = 0
			case !aok:
				c = -1
			case !bok:
				c = 1
			default:
				c, _ = compareValues(a, b)
			}
			if o.Descending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
}
