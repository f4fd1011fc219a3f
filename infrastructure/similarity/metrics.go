package similarity

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/ahrav/go-concord/internal/domain"
)

// ErrUnknownMethod is returned for a similarity method name that is not
// jaccard, cosine or levenshtein.
var ErrUnknownMethod = errors.New("unknown similarity method")

// Jaccard returns the size of the intersection of the two token sets divided
// by the size of their union. Two empty inputs score 1.
func Jaccard(a, b string) float64 {
	setA := toSet(tokenize(a))
	setB := toSet(tokenize(b))

	union := len(setA)
	intersection := 0
	for tok := range setB {
		if _, ok := setA[tok]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return round(float64(intersection) / float64(union))
}

// Cosine returns the cosine of the angle between the term-frequency vectors
// of a and b. If either vector is zero the score is 1 when both are zero and
// 0 otherwise.
func Cosine(a, b string) float64 {
	tfA := termFrequencies(tokenize(a))
	tfB := termFrequencies(tokenize(b))

	var dot, normA, normB float64
	for tok, fa := range tfA {
		normA += fa * fa
		dot += fa * tfB[tok]
	}
	for _, fb := range tfB {
		normB += fb * fb
	}
	if normA == 0 || normB == 0 {
		if normA == normB {
			return 1
		}
		return 0
	}
	return round(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Levenshtein returns 1 - distance/max(len) computed on the raw strings.
// Identical strings score 1. If exactly one string is empty the score is 0.
func Levenshtein(a, b string) float64 {
	if a == b {
		return 1
	}
	lenA, lenB := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if lenA == 0 || lenB == 0 {
		return 0
	}
	// ComputeDistance works on runes, so lengths are counted in runes too.
	distance := levenshtein.ComputeDistance(a, b)
	return round(1 - float64(distance)/float64(max(lenA, lenB)))
}

// Compute scores a and b with a single named method.
func Compute(method domain.SimilarityMethod, a, b string) (float64, error) {
	switch method {
	case domain.MethodJaccard:
		return Jaccard(a, b), nil
	case domain.MethodCosine:
		return Cosine(a, b), nil
	case domain.MethodLevenshtein:
		return Levenshtein(a, b), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// ValidMethod reports whether method names a supported metric.
func ValidMethod(method domain.SimilarityMethod) bool {
	_, err := Compute(method, "", "")
	return err == nil
}

// Score computes all three metrics and their rounded mean.
func Score(a, b string) domain.SimilarityScore {
	s := domain.SimilarityScore{
		Cosine:      Cosine(a, b),
		Jaccard:     Jaccard(a, b),
		Levenshtein: Levenshtein(a, b),
	}
	s.Average = round((s.Cosine + s.Jaccard + s.Levenshtein) / 3)
	return s
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func termFrequencies(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}
