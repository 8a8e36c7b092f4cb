package dsp

import (
	"math"
)

// Sum returns the sum of x.
func Sum(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}

// Mean returns the arithmetic mean of x, NaN when x is empty.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return Sum(x) / float64(len(x))
}

// Std returns the population standard deviation of x, NaN when x is empty.
func Std(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	m := Mean(x)
	var ss float64
	for _, v := range x {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(x)))
}

// Min returns the smallest element of x, NaN when x is empty.
func Min(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	m := x[0]
	for _, v := range x[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest element of x, NaN when x is empty.
func Max(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	m := x[0]
	for _, v := range x[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Length returns len(x) as a float for uniform statistic typing.
func Length(x []float64) float64 {
	return float64(len(x))
}

// Stat is a named reduction over a sample buffer.
type Stat struct {
	Name string
	Func func([]float64) float64
}

// Stats returns the full statistic set in canonical order.
func Stats() []Stat {
	return []Stat{
		{"sum", Sum},
		{"mean", Mean},
		{"std", Std},
		{"min", Min},
		{"max", Max},
		{"len", Length},
	}
}
