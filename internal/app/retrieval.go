package app

import "math"

// SimilarityFunc scores a pair of embedding vectors. Higher is more similar.
type SimilarityFunc func(a, b []float32) float32

// CosineSimilarity returns dot(a,b) / (|a|*|b|). It is 0 when either vector
// has zero norm or the lengths differ, so degenerate inputs never produce NaN.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// bestMatch scans candidates in order and returns the index and score of the
// highest-scoring one. Strict > comparison keeps the earliest candidate on
// ties, so the result is deterministic. Returns -1 for an empty candidate set.
func bestMatch(query []float32, candidates [][]float32, sim SimilarityFunc) (int, float32) {
	best := -1
	var bestScore float32
	for i, vec := range candidates {
		score := sim(query, vec)
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best, bestScore
}
