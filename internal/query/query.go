package query

// Query is a read query. The interface is sealed to this package.
type Query interface {
	queryNode()
}

// Predicate is a WHERE condition. The interface is sealed to this package.
type Predicate interface {
	predicateNode()
}

// Select reads rows from one table.
type Select struct {
	From    string    // table name
	Columns []string  // empty selects every column
	Filter  Predicate // nil matches every row
	OrderBy []string  // ascending; rowid is always appended as the tiebreaker
}

func (Select) queryNode() {}

// Equals matches rows whose field equals a literal value.
type Equals struct {
	Field string
	Value any // string, int, int64, bool or nil
}

func (Equals) predicateNode() {}

// And matches rows satisfying every predicate. An empty And matches every
// row.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where builds an And of Equals from field/value pairs, in the order given.
func Where(pairs ...any) And {
	and := And{Predicates: make([]Predicate, 0, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		field, _ := pairs[i].(string)
		and.Predicates = append(and.Predicates, Equals{Field: field, Value: pairs[i+1]})
	}
	return and
}
