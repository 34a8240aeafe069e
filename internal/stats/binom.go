// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stats implements the significance filter: exact one-sided
// binomial tests with Bonferroni correction.
package stats

import "math"

// BinomialTailP returns the one-sided p-value P(X >= k) for
// X ~ Binomial(n, p), the "greater" alternative. The sum is computed
// term by term in log space, so it stays exact for the dataset sizes
// this pipeline sees (hundreds to low thousands of records).
func BinomialTailP(k, n int, p float64) float64 {
	switch {
	case n <= 0 || k <= 0:
		return 1.0
	case k > n:
		return 0.0
	case p <= 0:
		return 0.0
	case p >= 1:
		return 1.0
	}

	logP := math.Log(p)
	logQ := math.Log1p(-p)

	sum := 0.0
	for i := k; i <= n; i++ {
		logTerm := logChoose(n, i) + float64(i)*logP + float64(n-i)*logQ
		sum += math.Exp(logTerm)
	}
	if sum > 1.0 {
		return 1.0
	}
	return sum
}

// logChoose returns log(C(n, k)) via the log-gamma function.
func logChoose(n, k int) float64 {
	ln, _ := math.Lgamma(float64(n + 1))
	lk, _ := math.Lgamma(float64(k + 1))
	lnk, _ := math.Lgamma(float64(n - k + 1))
	return ln - lk - lnk
}
