// Package query builds read queries over the attempt store.
//
// A query is a small tree: a Select over one table with an optional
// predicate made of Equals and And nodes. Compile turns it into SQLite SQL
// where every value is a ? parameter and every query carries an ORDER BY,
// so callers get the same rows in the same order on every run.
//
//	q := query.Select{
//		From:    "attempts",
//		Filter:  query.And{Predicates: []query.Predicate{
//			query.Equals{Field: "level_id", Value: "1_1"},
//			query.Equals{Field: "succeeded", Value: true},
//		}},
//		OrderBy: []string{"session_id", "attempt"},
//	}
//	sql, args, err := query.Compile(q)
//
// Values are limited to the types the attempt table stores: string, int,
// int64, bool and nil. Identifiers must be plain SQL names; Validate
// reports anything else before it reaches the database.
package query
