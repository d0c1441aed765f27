// Package sheet computes the per-month budget figures and serves them as
// named cell values.
//
// A month sheet is named "budget" followed by the YYYYMM month, for example
// "budget202401". Each sheet is derived from the budgeted amounts, the
// transaction activity and the previous month's sheet, and is cached until
// a write marks the cache dirty.
//
// Cells per sheet:
//
//	available-funds       total-income + from-last-month
//	last-month-overspent  negative leftovers of last month not carried over
//	buffered              amount held for next month
//	total-budgeted        negated sum of expense budgets
//	to-budget             available-funds + last-month-overspent + total-budgeted - buffered
//	from-last-month       last month's to-budget + buffered
//	total-income          income category activity
//	total-spent           expense category activity
//	total-leftover        sum of expense leftovers
//	budget-<cat>, sum-amount-<cat>, leftover-<cat>, carryover-<cat>
//	group-budget-<grp>, group-sum-amount-<grp>, group-leftover-<grp>
package sheet
