// Package processor runs the per-video analysis pipeline: download,
// transcription, semantic chunking, keyframe analysis, and embedding.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/karyon-ai/karyon/internal/chunker"
	"github.com/karyon-ai/karyon/internal/events"
	"github.com/karyon-ai/karyon/internal/keyframe"
	"github.com/karyon-ai/karyon/internal/model"
	"github.com/karyon-ai/karyon/internal/openai"
	"github.com/karyon-ai/karyon/internal/vector"
)

// Store is the persistence surface the pipeline writes through.
type Store interface {
	VideoByID(ctx context.Context, id uuid.UUID) (*model.Video, error)
	SetStatus(ctx context.Context, id uuid.UUID, status model.Status) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
	SetDownloaded(ctx context.Context, id uuid.UUID, filePath, title string) error
	SetAudioPath(ctx context.Context, id uuid.UUID, audioPath string) error
	ReplaceChunks(ctx context.Context, videoID uuid.UUID, chunks []model.TranscriptChunk) error
	ReplaceFrames(ctx context.Context, videoID uuid.UUID, frames []model.VideoFrame) error
}

// Analyzer is the model-backed surface: transcription, vision, embeddings.
type Analyzer interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) ([]openai.Segment, error)
	AnalyzeFrame(ctx context.Context, jpeg []byte) (string, error)
	EmbedBatch(ctx context.Context, texts []string) ([]vector.Vector, error)
}

// Chunker splits transcript segments into topical chunks.
type Chunker interface {
	Chunk(ctx context.Context, segments []model.TranscriptSegment, p chunker.Params) ([]model.TranscriptChunk, error)
}

// FrameExtractor yields captioned keyframes from a video file.
type FrameExtractor interface {
	Extract(ctx context.Context, videoPath string) ([]keyframe.Keyframe, error)
}

// Media wraps the external download and audio tooling.
type Media interface {
	DownloadYouTube(ctx context.Context, url string, videoID uuid.UUID) (path string, title string, err error)
	ExtractAudio(ctx context.Context, videoPath string) (string, error)
	CheckAudioSize(path string) error
}

// Publisher emits lifecycle events.
type Publisher interface {
	Publish(subject string, data any) error
}

type Processor struct {
	store     Store
	analyzer  Analyzer
	chunker   Chunker
	frames    FrameExtractor
	media     Media
	publisher Publisher
	params    chunker.Params
	logger    *slog.Logger
}

func New(store Store, analyzer Analyzer, ch Chunker, frames FrameExtractor, media Media, publisher Publisher, params chunker.Params, logger *slog.Logger) *Processor {
	return &Processor{
		store:     store,
		analyzer:  analyzer,
		chunker:   ch,
		frames:    frames,
		media:     media,
		publisher: publisher,
		params:    params,
		logger:    logger,
	}
}

// HandleVideoUploaded is the NATS handler for karyon.video.uploaded.
func (p *Processor) HandleVideoUploaded(subject string, data []byte) {
	ctx := context.Background()

	var evt events.VideoUploaded
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse upload event", "error", err)
		return
	}
	id, err := uuid.Parse(evt.VideoID)
	if err != nil {
		p.logger.Error("invalid video id in event", "video_id", evt.VideoID, "error", err)
		return
	}

	if err := p.Process(ctx, id); err != nil {
		p.logger.Error("processing failed", "video_id", id, "error", err)
	}
}

// Process runs the full pipeline for one video. Failures are recorded on
// the video record and announced before returning.
func (p *Processor) Process(ctx context.Context, id uuid.UUID) error {
	video, err := p.store.VideoByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}

	chunkCount, frameCount, err := p.run(ctx, video)
	if err != nil {
		if markErr := p.store.MarkFailed(ctx, id, err.Error()); markErr != nil {
			p.logger.Error("failed to record failure", "video_id", id, "error", markErr)
		}
		p.publish(events.SubjectVideoFailed, events.VideoFailed{VideoID: id.String(), Error: err.Error()})
		return err
	}

	if err := p.store.SetStatus(ctx, id, model.StatusReady); err != nil {
		return fmt.Errorf("mark ready: %w", err)
	}
	p.publish(events.SubjectVideoProcessed, events.VideoProcessed{
		VideoID:    id.String(),
		ChunkCount: chunkCount,
		FrameCount: frameCount,
	})
	p.logger.Info("video processed", "video_id", id, "chunks", chunkCount, "frames", frameCount)
	return nil
}

func (p *Processor) run(ctx context.Context, video *model.Video) (chunkCount, frameCount int, err error) {
	mode := video.Mode
	if !mode.Valid() {
		mode = model.ModeBoth
	}

	if video.FilePath == "" && video.YouTubeURL != "" {
		if err := p.download(ctx, video); err != nil {
			return 0, 0, err
		}
	}
	if video.FilePath == "" {
		return 0, 0, fmt.Errorf("video %s has no file to process", video.ID)
	}

	if mode != model.ModeVisual {
		chunkCount, err = p.transcribe(ctx, video)
		if err != nil {
			return 0, 0, err
		}
	}

	if mode != model.ModeAudio {
		frameCount, err = p.analyzeFrames(ctx, video)
		if err != nil {
			return 0, 0, err
		}
	}

	return chunkCount, frameCount, nil
}

func (p *Processor) download(ctx context.Context, video *model.Video) error {
	if err := p.store.SetStatus(ctx, video.ID, model.StatusDownloading); err != nil {
		return err
	}
	path, title, err := p.media.DownloadYouTube(ctx, video.YouTubeURL, video.ID)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if title == "" {
		title = video.Title
	}
	if err := p.store.SetDownloaded(ctx, video.ID, path, title); err != nil {
		return err
	}
	video.FilePath = path
	video.Title = title
	return nil
}

func (p *Processor) transcribe(ctx context.Context, video *model.Video) (int, error) {
	if err := p.store.SetStatus(ctx, video.ID, model.StatusTranscribing); err != nil {
		return 0, err
	}

	audioPath, err := p.media.ExtractAudio(ctx, video.FilePath)
	if err != nil {
		return 0, fmt.Errorf("extract audio: %w", err)
	}
	if err := p.media.CheckAudioSize(audioPath); err != nil {
		return 0, err
	}
	if err := p.store.SetAudioPath(ctx, video.ID, audioPath); err != nil {
		return 0, err
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return 0, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	raw, err := p.analyzer.Transcribe(ctx, f, video.ID.String()+".mp3")
	if err != nil {
		return 0, fmt.Errorf("transcribe: %w", err)
	}
	segments := make([]model.TranscriptSegment, len(raw))
	for i, s := range raw {
		segments[i] = model.TranscriptSegment{Text: s.Text, Start: s.Start, End: s.End}
	}

	chunks, err := p.chunker.Chunk(ctx, segments, p.params)
	if err != nil {
		return 0, fmt.Errorf("chunk transcript: %w", err)
	}
	for i := range chunks {
		chunks[i].ID = uuid.New()
		chunks[i].VideoID = video.ID
	}

	if err := p.store.ReplaceChunks(ctx, video.ID, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (p *Processor) analyzeFrames(ctx context.Context, video *model.Video) (int, error) {
	if err := p.store.SetStatus(ctx, video.ID, model.StatusAnalyzing); err != nil {
		return 0, err
	}

	keyframes, err := p.frames.Extract(ctx, video.FilePath)
	if err != nil {
		return 0, fmt.Errorf("extract keyframes: %w", err)
	}

	var frames []model.VideoFrame
	for _, kf := range keyframes {
		desc, err := p.analyzer.AnalyzeFrame(ctx, kf.JPEG)
		if err != nil {
			// One bad frame should not sink the run.
			p.logger.Warn("frame analysis failed", "video_id", video.ID, "timestamp", kf.Timestamp, "error", err)
			continue
		}
		if strings.Count(desc, "None") >= 2 {
			continue
		}
		frames = append(frames, model.VideoFrame{
			ID:            uuid.New(),
			VideoID:       video.ID,
			Timestamp:     kf.Timestamp,
			VisualContext: desc,
		})
	}

	if len(frames) > 0 {
		texts := make([]string, len(frames))
		for i, f := range frames {
			texts[i] = f.VisualContext
		}
		embeddings, err := p.analyzer.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed frames: %w", err)
		}
		if len(embeddings) != len(frames) {
			return 0, fmt.Errorf("embed frames: got %d embeddings for %d frames", len(embeddings), len(frames))
		}
		for i := range frames {
			frames[i].Embedding = embeddings[i]
		}
	}

	if err := p.store.ReplaceFrames(ctx, video.ID, frames); err != nil {
		return 0, err
	}
	return len(frames), nil
}

func (p *Processor) publish(subject string, data any) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(subject, data); err != nil {
		p.logger.Error("publish failed", "subject", subject, "error", err)
	}
}
