package retrieval

import (
	"context"
	"fmt"

	"github.com/karyon-ai/karyon/internal/model"
	"github.com/karyon-ai/karyon/internal/vector"
)

// Embedder produces one embedding per input text, in input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]vector.Vector, error)
}

// Locator narrows a winning chunk down to the single segment most
// relevant to the question. Segment embeddings are not stored, so the
// locator embeds the segment texts in one batch call at question time.
type Locator struct {
	embedder Embedder
}

func NewLocator(embedder Embedder) *Locator {
	return &Locator{embedder: embedder}
}

// BestSegment returns the segment whose embedding has the highest cosine
// similarity to the question, or nil when the chunk carries no segments.
func (l *Locator) BestSegment(ctx context.Context, segments []model.TranscriptSegment, question vector.Vector) (*model.TranscriptSegment, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	embeddings, err := l.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed segments: %w", err)
	}
	if len(embeddings) != len(segments) {
		return nil, fmt.Errorf("embed segments: got %d embeddings for %d segments", len(embeddings), len(segments))
	}

	q := question.Normalized()
	best := 0
	bestSim := -2.0
	for i, emb := range embeddings {
		sim, err := vector.Dot(q, emb.Normalized())
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		if sim > bestSim {
			bestSim = sim
			best = i
		}
	}
	return &segments[best], nil
}
