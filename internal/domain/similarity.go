package domain

// PairKeySeparator joins two result ids into a comparison key.
const PairKeySeparator = "_to_"

// PairKey returns the canonical comparison key for the ordered pair (a, b).
// Callers pass the result that comes first in pool order as a.
func PairKey(a, b string) string { return a + PairKeySeparator + b }

// SimilarityScore holds the three metric values for one pair of responses
// and their mean. All values are in [0, 1].
type SimilarityScore struct {
	Cosine      float64 `json:"cosine"`
	Jaccard     float64 `json:"jaccard"`
	Levenshtein float64 `json:"levenshtein"`
	Average     float64 `json:"average"`
}

// SimilarityMatrix is the output of the similarity stage.
//
// In all-pairs mode Comparisons holds one entry per unordered pair, keyed by
// PairKey. In reference mode Scores maps every eligible result id to its
// similarity against ReferenceID under Method.
type SimilarityMatrix struct {
	Mode        SimilarityMode             `json:"mode"`
	Comparisons map[string]SimilarityScore `json:"comparisons,omitempty"`
	Method      SimilarityMethod           `json:"method,omitempty"`
	ReferenceID string                     `json:"referenceId,omitempty"`
	Scores      map[string]float64         `json:"scores,omitempty"`
}

// Len returns the number of entries in the matrix.
func (m *SimilarityMatrix) Len() int {
	if m == nil {
		return 0
	}
	if m.Mode == ModeReference {
		return len(m.Scores)
	}
	return len(m.Comparisons)
}
