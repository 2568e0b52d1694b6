// Package chunker groups time-ordered transcript segments into topically
// coherent chunks using embedding similarity against each chunk's anchor.
package chunker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/karyon-ai/karyon/internal/model"
	"github.com/karyon-ai/karyon/internal/vector"
)

// Embedder is the slice of the embedding provider the chunker needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]vector.Vector, error)
}

// Params are the chunk boundary gates. A chunk closes when it reaches
// MaxDuration regardless of similarity, or when it has reached MinDuration
// and the next segment's similarity to the chunk's anchor drops below
// SimilarityThreshold.
type Params struct {
	MinDuration         float64
	MaxDuration         float64
	SimilarityThreshold float64
}

type Chunker struct {
	embedder Embedder
	logger   *slog.Logger
}

func New(embedder Embedder, logger *slog.Logger) *Chunker {
	return &Chunker{embedder: embedder, logger: logger}
}

// Chunk walks segments in order, comparing each against the current
// chunk's anchor embedding (the embedding of the chunk's first segment).
// The anchor stays fixed for the chunk's lifetime so a chunk remains
// "about" its opening topic instead of drifting with a rolling average.
// Returned chunks carry contiguous 0-based indexes and their own batch-
// computed embeddings; IDs are left unset for the store to assign.
func (c *Chunker) Chunk(ctx context.Context, segments []model.TranscriptSegment, p Params) ([]model.TranscriptChunk, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}

	embeddings, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed segments: %w", err)
	}
	if len(embeddings) != len(segments) {
		return nil, fmt.Errorf("expected %d segment embeddings, got %d", len(segments), len(embeddings))
	}

	// Normalize so dot product equals cosine similarity.
	for i := range embeddings {
		embeddings[i] = embeddings[i].Normalized()
	}

	var chunks []model.TranscriptChunk
	var current *building

	for i, seg := range segments {
		if current == nil {
			current = startChunk(seg, embeddings[i])
			continue
		}

		duration := current.end - current.start
		similarity, err := vector.Dot(current.anchor, embeddings[i])
		if err != nil {
			return nil, fmt.Errorf("segment %d similarity: %w", i, err)
		}

		closeChunk := duration >= p.MaxDuration ||
			(duration >= p.MinDuration && similarity < p.SimilarityThreshold)

		if closeChunk {
			chunks = append(chunks, current.finish(len(chunks)))
			current = startChunk(seg, embeddings[i])
			continue
		}

		current.text.WriteByte(' ')
		current.text.WriteString(seg.Text)
		current.end = seg.End
		current.segments = append(current.segments, seg)
	}

	// The trailing chunk is flushed even below MinDuration.
	chunks = append(chunks, current.finish(len(chunks)))

	if err := c.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}

	if c.logger != nil {
		c.logger.Debug("chunked transcript", "segments", len(segments), "chunks", len(chunks))
	}
	return chunks, nil
}

// building is an in-progress chunk with its fixed anchor embedding.
type building struct {
	text     strings.Builder
	start    float64
	end      float64
	anchor   vector.Vector
	segments []model.TranscriptSegment
}

func startChunk(seg model.TranscriptSegment, anchor vector.Vector) *building {
	b := &building{
		start:    seg.Start,
		end:      seg.End,
		anchor:   anchor,
		segments: []model.TranscriptSegment{seg},
	}
	b.text.WriteString(seg.Text)
	return b
}

func (b *building) finish(index int) model.TranscriptChunk {
	segments := make([]model.TranscriptSegment, len(b.segments))
	copy(segments, b.segments)
	return model.TranscriptChunk{
		ChunkIndex: index,
		Text:       strings.TrimSpace(b.text.String()),
		Start:      b.start,
		End:        b.end,
		Segments:   segments,
	}
}

// embedChunks batch-computes each finished chunk's own embedding in the
// same pass, so chunks are immutable once returned.
func (c *Chunker) embedChunks(ctx context.Context, chunks []model.TranscriptChunk) error {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	embeddings, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("expected %d chunk embeddings, got %d", len(chunks), len(embeddings))
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	return nil
}
