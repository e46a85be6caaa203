// Package models defines the domain types of the split ledger.
//
// The ledger is append-mostly: incomes, expenses, transfers, expense splits
// and settlements are stored as rows, and every balance is derived from them
// on read. Nothing in this package holds a running total.
//
// Amounts are Money values in integer minor units. Relationships are expressed
// with ID strings rather than pointers.
package models
