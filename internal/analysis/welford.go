package analysis

import "math"

// running accumulates count, mean and the sum of squared deviations of a
// stream of values using Welford's update.
type running struct {
	count int
	mean  float64
	m2    float64
}

func (r *running) add(v float64) {
	r.count++
	delta := v - r.mean
	r.mean += delta / float64(r.count)
	delta2 := v - r.mean
	r.m2 += delta * delta2
}

// stdDev is the sample standard deviation (n-1 denominator). Fewer than two
// values yield zero.
func (r *running) stdDev() float64 {
	if r.count < 2 {
		return 0
	}
	variance := r.m2 / float64(r.count-1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

func runningOf(values []float64) running {
	var r running
	for _, v := range values {
		r.add(v)
	}
	return r
}
