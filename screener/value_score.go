package screener

import (
	"sort"

	"sentinel/models"
)

// ValueScore calculates a composite value score for a screener candidate.
// Lower P/E and P/B ratios indicate better value, higher dividend yields are
// favorable. Score range: 0-100, where higher is better value.
func ValueScore(c models.ScreenerCandidate) float64 {
	// P/E of 0 scores 100, P/E of 20 or worse scores 0.
	peScore := max(0, 100-c.PERatio*5)

	// P/B of 0 scores 100, P/B of 2.5 or worse scores 0.
	pbScore := max(0, 100-c.PBRatio*40)

	// Dividend yield in percent: 5% or better scores 100.
	divScore := min(100, c.DividendYield*20)

	// Weighted average: 50% P/E, 30% P/B, 20% dividend.
	return peScore*0.5 + pbScore*0.3 + divScore*0.2
}

// RankByValueScore scores all candidates, sorts them best-value first, and
// returns the top N. A topN of 0 returns the full ranked list.
func RankByValueScore(candidates []models.ScreenerCandidate, topN int) []models.ScreenerCandidate {
	if len(candidates) == 0 {
		return candidates
	}

	for i := range candidates {
		candidates[i].ValueScore = ValueScore(candidates[i])
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ValueScore > candidates[j].ValueScore
	})

	if topN > 0 && topN < len(candidates) {
		return candidates[:topN]
	}
	return candidates
}
