package leverage

import "math"

// Scorer computes a similarity score in [0,1] between an intent vector and a
// candidate vector. The pipeline runs it over the full corpus; an index-based
// implementation could replace CosineScorer behind this interface without
// changing the Query contract.
type Scorer interface {
	Score(intent, candidate []float64) float64
}

// CosineScorer is the default scorer: cosine similarity normalized into
// [0,1], so identical directions score 1.0, orthogonal vectors 0.5, and
// opposite directions 0.0.
type CosineScorer struct{}

// Score computes (cos(a,b)+1)/2. A zero-magnitude vector on either side
// scores 0.0.
func (CosineScorer) Score(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}
