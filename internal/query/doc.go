// Package query builds transaction filters and compiles them to
// parameterized SQL.
//
// Filters are trees of predicates over external field names ("account",
// "date", "amount", ...). The compiler maps each field onto its
// transactions column and never interpolates values:
//
//	And{Predicates: []Predicate{
//	  Equals{Field: "account", Value: "acct-1"},
//	  Compare{Field: "date", Op: OpGte, Value: 20240101},
//	}}
//
// compiles to
//
//	acct = ? AND date >= ?   ["acct-1", 20240101]
package query
