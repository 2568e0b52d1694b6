// Package retrieval ranks embedded candidates against a question
// embedding and classifies the confidence of the nearest match.
package retrieval

import (
	"fmt"
	"sort"

	"github.com/karyon-ai/karyon/internal/vector"
)

// DefaultTopK bounds how many ranked matches are returned.
const DefaultTopK = 5

// Outcome distinguishes the ways retrieval can come up empty. "No
// candidates" means the video has no indexed content for the requested
// mode; "no embeddings" means content exists but was stored without
// vectors and needs reprocessing; "no match" means valid candidates exist
// but none fall within the distance cutoff.
type Outcome int

const (
	OutcomeRanked Outcome = iota
	OutcomeNoCandidates
	OutcomeNoEmbeddings
	OutcomeNoMatch
)

// Match pairs a candidate with its Euclidean distance to the question.
type Match[T any] struct {
	Item     T
	Distance float64
}

// Result is the tagged outcome of one ranking pass. Matches is populated
// only for OutcomeRanked.
type Result[T any] struct {
	Outcome Outcome
	Matches []Match[T]
}

// Rank computes the L2 distance from question to every candidate,
// keeps those within maxDistance, and returns the topK nearest in
// ascending distance order.
func Rank[T any](items []T, embeddingOf func(T) vector.Vector, question vector.Vector, maxDistance float64, topK int) (Result[T], error) {
	if len(items) == 0 {
		return Result[T]{Outcome: OutcomeNoCandidates}, nil
	}
	if len(embeddingOf(items[0])) == 0 {
		return Result[T]{Outcome: OutcomeNoEmbeddings}, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	matches := make([]Match[T], 0, len(items))
	for i, item := range items {
		d, err := vector.Distance(question, embeddingOf(item))
		if err != nil {
			return Result[T]{}, fmt.Errorf("candidate %d: %w", i, err)
		}
		if d <= maxDistance {
			matches = append(matches, Match[T]{Item: item, Distance: d})
		}
	}

	if len(matches) == 0 {
		return Result[T]{Outcome: OutcomeNoMatch}, nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	return Result[T]{Outcome: OutcomeRanked, Matches: matches}, nil
}
