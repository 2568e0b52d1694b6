// Package answer composes grounded answers to questions about a video
// from its retrieved transcript chunks and frame descriptions.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/karyon-ai/karyon/internal/model"
	"github.com/karyon-ai/karyon/internal/openai"
	"github.com/karyon-ai/karyon/internal/retrieval"
	"github.com/karyon-ai/karyon/internal/vector"
)

const (
	answerTemperature = 0.3
	historyWindow     = 10
)

// Embedder covers the embedding calls the service makes per question.
type Embedder interface {
	Embed(ctx context.Context, text string) (vector.Vector, error)
	EmbedBatch(ctx context.Context, texts []string) ([]vector.Vector, error)
}

// Generator produces the final answer text from the assembled prompt.
type Generator interface {
	Complete(ctx context.Context, system string, messages []openai.Message, maxTokens int, temperature float64) (string, error)
}

// ContentStore loads a video's indexed material.
type ContentStore interface {
	ChunksByVideo(ctx context.Context, videoID uuid.UUID) ([]model.TranscriptChunk, error)
	FramesByVideo(ctx context.Context, videoID uuid.UUID) ([]model.VideoFrame, error)
	FramesInWindow(ctx context.Context, videoID uuid.UUID, start, end float64) ([]model.VideoFrame, error)
}

// Params are the retrieval and generation knobs.
type Params struct {
	MaxDistance float64
	TopK        int
	Bounds      retrieval.Bounds
	MaxTokens   int
}

// SourceRef points at one retrieved chunk or frame backing an answer.
type SourceRef struct {
	ChunkID   *int       `json:"chunk_id,omitempty"`
	FrameID   *uuid.UUID `json:"frame_id,omitempty"`
	Start     *float64   `json:"start,omitempty"`
	End       *float64   `json:"end,omitempty"`
	Timestamp *float64   `json:"timestamp,omitempty"`
	Distance  float64    `json:"distance"`
}

// Answer is the full response payload for one question.
type Answer struct {
	Answer      string               `json:"answer"`
	Confidence  retrieval.Confidence `json:"confidence"`
	Timestamp   *float64             `json:"timestamp"`
	Distance    *float64             `json:"distance,omitempty"`
	SegmentText *string              `json:"segment_text"`
	Context     []SourceRef          `json:"context"`
	HasAnswer   bool                 `json:"has_answer"`
}

type Service struct {
	embedder  Embedder
	generator Generator
	store     ContentStore
	locator   *retrieval.Locator
	params    Params
	logger    *slog.Logger
}

func NewService(embedder Embedder, generator Generator, store ContentStore, params Params, logger *slog.Logger) *Service {
	return &Service{
		embedder:  embedder,
		generator: generator,
		store:     store,
		locator:   retrieval.NewLocator(embedder),
		params:    params,
		logger:    logger,
	}
}

func noAnswer(message string) *Answer {
	return &Answer{
		Answer:     message,
		Confidence: retrieval.ConfidenceNone,
		Context:    []SourceRef{},
	}
}

// Ask answers one question about a ready video. history is the prior
// conversation, oldest first, not including the question being asked.
func (s *Service) Ask(ctx context.Context, video model.Video, question string, history []model.ChatMessage) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, model.ErrEmptyQuestion
	}

	q, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	mode := video.Mode
	if !mode.Valid() {
		mode = model.ModeBoth
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	if mode == model.ModeVisual {
		return s.askVisual(ctx, video, question, q, history)
	}
	return s.askTranscript(ctx, video, mode, question, q, history)
}

func (s *Service) askVisual(ctx context.Context, video model.Video, question string, q vector.Vector, history []model.ChatMessage) (*Answer, error) {
	frames, err := s.store.FramesByVideo(ctx, video.ID)
	if err != nil {
		return nil, fmt.Errorf("load frames: %w", err)
	}

	res, err := retrieval.Rank(frames, func(f model.VideoFrame) vector.Vector {
		return vector.Vector(f.Embedding)
	}, q, s.params.MaxDistance, s.params.TopK)
	if err != nil {
		return nil, fmt.Errorf("rank frames: %w", err)
	}

	p := promptFor(model.ModeVisual)
	switch res.Outcome {
	case retrieval.OutcomeNoCandidates:
		return noAnswer(p.noContent), nil
	case retrieval.OutcomeNoEmbeddings:
		return noAnswer(msgNoEmbeddings), nil
	case retrieval.OutcomeNoMatch:
		return noAnswer(msgNothingFound), nil
	}

	lines := make([]string, len(res.Matches))
	refs := make([]SourceRef, len(res.Matches))
	for i, m := range res.Matches {
		f := m.Item
		lines[i] = fmt.Sprintf("[%.1fs] On screen: %s", f.Timestamp, f.VisualContext)
		id, ts := f.ID, f.Timestamp
		refs[i] = SourceRef{FrameID: &id, Timestamp: &ts, Distance: m.Distance}
	}

	best := res.Matches[0]
	text, err := s.generate(ctx, p, video.Title, strings.Join(lines, "\n\n"), history, question)
	if err != nil {
		return nil, err
	}

	ts, dist := best.Item.Timestamp, best.Distance
	return &Answer{
		Answer:     text,
		Confidence: retrieval.Classify(dist, s.params.Bounds),
		Timestamp:  &ts,
		Distance:   &dist,
		Context:    refs,
		HasAnswer:  true,
	}, nil
}

func (s *Service) askTranscript(ctx context.Context, video model.Video, mode model.ProcessingMode, question string, q vector.Vector, history []model.ChatMessage) (*Answer, error) {
	chunks, err := s.store.ChunksByVideo(ctx, video.ID)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	res, err := retrieval.Rank(chunks, func(c model.TranscriptChunk) vector.Vector {
		return vector.Vector(c.Embedding)
	}, q, s.params.MaxDistance, s.params.TopK)
	if err != nil {
		return nil, fmt.Errorf("rank chunks: %w", err)
	}

	p := promptFor(mode)
	switch res.Outcome {
	case retrieval.OutcomeNoCandidates:
		return noAnswer(p.noContent), nil
	case retrieval.OutcomeNoEmbeddings:
		return noAnswer(msgNoEmbeddings), nil
	case retrieval.OutcomeNoMatch:
		return noAnswer(msgNothingFound), nil
	}

	lines := make([]string, len(res.Matches))
	refs := make([]SourceRef, len(res.Matches))
	for i, m := range res.Matches {
		c := m.Item
		line := fmt.Sprintf("[%.1fs - %.1fs]\nSpoken: %s", c.Start, c.End, c.Text)
		if mode == model.ModeBoth {
			frames, err := s.store.FramesInWindow(ctx, video.ID, c.Start, c.End)
			if err != nil {
				return nil, fmt.Errorf("load frames for chunk %d: %w", c.ChunkIndex, err)
			}
			if len(frames) > 0 {
				descs := make([]string, len(frames))
				for j, f := range frames {
					descs[j] = f.VisualContext
				}
				line += "\nOn screen: " + strings.Join(descs, " | ")
			}
		}
		lines[i] = line
		idx, start, end := c.ChunkIndex, c.Start, c.End
		refs[i] = SourceRef{ChunkID: &idx, Start: &start, End: &end, Distance: m.Distance}
	}

	best := res.Matches[0]
	bestTS := best.Item.Start
	var segmentText *string
	segment, err := s.locator.BestSegment(ctx, best.Item.Segments, q)
	if err != nil {
		// The chunk-level answer is still valid without the narrowed
		// segment, so fall back to the chunk start.
		s.logger.Warn("segment location failed", "video_id", video.ID, "error", err)
	} else if segment != nil {
		bestTS = segment.Start
		segmentText = &segment.Text
	}

	text, err := s.generate(ctx, p, video.Title, strings.Join(lines, "\n\n"), history, question)
	if err != nil {
		return nil, err
	}

	dist := best.Distance
	return &Answer{
		Answer:      text,
		Confidence:  retrieval.Classify(dist, s.params.Bounds),
		Timestamp:   &bestTS,
		Distance:    &dist,
		SegmentText: segmentText,
		Context:     refs,
		HasAnswer:   true,
	}, nil
}

func (s *Service) generate(ctx context.Context, p modePrompt, title, context string, history []model.ChatMessage, question string) (string, error) {
	messages := make([]openai.Message, 0, len(history)+1)
	for _, msg := range history {
		if msg.Content == "" || (msg.Role != model.RoleUser && msg.Role != model.RoleAssistant) {
			continue
		}
		messages = append(messages, openai.Message{Role: msg.Role, Content: msg.Content})
	}
	prompt := buildPrompt(p, title, context, history, question)
	messages = append(messages, openai.Message{Role: model.RoleUser, Content: prompt})

	text, err := s.generator.Complete(ctx, systemBase+p.systemNote, messages, s.params.MaxTokens, answerTemperature)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return text, nil
}
