// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Citeseek Contributors

package research

import "github.com/citeseek-dev/citeseek/internal/provider"

// Pricing converts token usage into an estimated spend, in USD per
// million tokens. A zero Pricing estimates zero cost.
type Pricing struct {
	InputPerMTokUSD  float64
	OutputPerMTokUSD float64
}

// Cost estimates the USD cost of one call's usage.
func (p Pricing) Cost(u provider.Usage) float64 {
	return float64(u.InputTokens)/1e6*p.InputPerMTokUSD +
		float64(u.OutputTokens)/1e6*p.OutputPerMTokUSD
}
