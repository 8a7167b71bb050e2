package match

import (
	"go.uber.org/zap"

	"github.com/sells-group/dds-finder/internal/model"
)

// DefaultThreshold is the minimum similarity accepted as a confident match.
const DefaultThreshold = 0.6

// BestScore returns the index and score of the highest-scoring candidate.
// Ties keep the earliest candidate. The index is -1 when no candidate
// scores above zero.
func BestScore(target string, candidates []model.Provider) (int, float64) {
	best, bestScore := -1, 0.0
	for i, c := range candidates {
		if score := Similarity(target, c.Name); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, bestScore
}

// MatchBest returns the candidate whose name best matches target, provided
// its score reaches threshold. No match is a routine outcome, not an error.
func MatchBest(target string, candidates []model.Provider, threshold float64) (model.Provider, bool) {
	idx, score := BestScore(target, candidates)
	if idx < 0 || score < threshold {
		zap.L().Debug("no dds provider match",
			zap.String("name", target),
			zap.Float64("best_score", score),
		)
		return model.Provider{}, false
	}

	match := candidates[idx]
	zap.L().Info("matched dds provider",
		zap.String("name", target),
		zap.String("provider", match.Name),
		zap.Float64("score", score),
	)
	return match, true
}
