package models

import "math"

// CommissionRate is the share of an order total credited to the delivery
// person who completes it.
const CommissionRate = 0.15

func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func Commission(total float64) float64 {
	return RoundCents(total * CommissionRate)
}
