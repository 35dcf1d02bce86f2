// Package variance detects profit moves between two snapshots and splits each
// move into a revenue-driven and a margin-driven contribution.
//
// The decomposition is
//
//	revenue_contrib = (revenue_new - revenue_old) * margin_old
//	margin_contrib  = revenue_new * (margin_new - margin_old)
//
// which sums to profit_new - profit_old. Division by zero never panics: every
// ratio resolves to 0 when its denominator is zero.
package variance
