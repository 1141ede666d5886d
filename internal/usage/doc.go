// Package usage records token consumption for completed chat requests.
//
// The ledger is a small SQLite database (modernc.org/sqlite, no cgo) with
// one row per successful request. Schema changes ship as embedded SQL
// migrations applied in lexical order on Open.
package usage
