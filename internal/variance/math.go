package variance

import "math"

// SafeDiv returns a/b, or 0 when b is zero.
func SafeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// PctChange is (new-old)/old*100, or 0 when old is zero.
func PctChange(newV, oldV float64) float64 {
	if oldV == 0 {
		return 0
	}
	return (newV - oldV) / oldV * 100
}

// Ratio is (new-old)/old, or 0 when old is zero.
func Ratio(newV, oldV float64) float64 {
	if oldV == 0 {
		return 0
	}
	return (newV - oldV) / oldV
}

// Margin is profit over revenue, 0 without revenue.
func Margin(profit, revenue float64) float64 {
	return SafeDiv(profit, revenue)
}

func abs(v float64) float64 { return math.Abs(v) }
