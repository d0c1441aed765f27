package query

// Predicate is a filter condition.
//
// This is a sealed interface; only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Op is a comparison operator for Compare.
type Op string

const (
	OpGt  Op = ">"
	OpGte Op = ">="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpNe  Op = "<>"
)

// Equals matches rows whose field equals Value. A nil Value matches NULL.
type Equals struct {
	Field string
	Value any
}

// Compare matches rows where field Op Value holds.
type Compare struct {
	Field string
	Op    Op
	Value any
}

// In matches rows whose field is one of Values. An empty list matches
// nothing.
type In struct {
	Field  string
	Values []any
}

// And matches rows every predicate matches. An empty And matches all rows.
type And struct {
	Predicates []Predicate
}

func (Equals) predicateNode()  {}
func (Compare) predicateNode() {}
func (In) predicateNode()      {}
func (And) predicateNode()     {}
