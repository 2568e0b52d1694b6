package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ProcessingMode selects which analysis paths run for a video and which
// candidate set answers questions.
type ProcessingMode string

const (
	ModeAudio  ProcessingMode = "audio"
	ModeVisual ProcessingMode = "visual"
	ModeBoth   ProcessingMode = "both"
)

// Valid reports whether m is one of the three known modes.
func (m ProcessingMode) Valid() bool {
	switch m {
	case ModeAudio, ModeVisual, ModeBoth:
		return true
	}
	return false
}

// Status is a video's position in the processing state machine. Only the
// video's own processing run advances it.
type Status string

const (
	StatusUploaded     Status = "uploaded"
	StatusDownloading  Status = "downloading"
	StatusTranscribing Status = "transcribing"
	StatusAnalyzing    Status = "analyzing"
	StatusReady        Status = "ready"
	StatusFailed       Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

var (
	ErrVideoNotFound = errors.New("video not found")
	ErrNotReady      = errors.New("video is not ready for questions")
	ErrAudioTooLarge = errors.New("audio file exceeds transcription size limit")
	ErrEmptyQuestion = errors.New("question must not be empty")
)

// Video is the aggregate root owning transcript chunks and frames.
type Video struct {
	ID           uuid.UUID      `json:"id"`
	Title        string         `json:"title"`
	FilePath     string         `json:"file,omitempty"`
	AudioPath    string         `json:"audio_file,omitempty"`
	YouTubeURL   string         `json:"youtube_url,omitempty"`
	Mode         ProcessingMode `json:"processing_mode"`
	Status       Status         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TranscriptSegment is a single timed utterance from the transcription
// service. Segments are time-ordered; start <= end.
type TranscriptSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptChunk is a topically coherent run of segments. Text is the
// trimmed space-joined segment text; Start/End span the constituent
// segments. Embedding is nil until computed.
type TranscriptChunk struct {
	ID         uuid.UUID           `json:"id"`
	VideoID    uuid.UUID           `json:"video_id"`
	ChunkIndex int                 `json:"chunk_index"`
	Text       string              `json:"text"`
	Start      float64             `json:"start"`
	End        float64             `json:"end"`
	Segments   []TranscriptSegment `json:"segments"`
	Embedding  []float64           `json:"-"`
}

// VideoFrame is a selected keyframe with its vision-analysis description.
type VideoFrame struct {
	ID            uuid.UUID `json:"id"`
	VideoID       uuid.UUID `json:"video_id"`
	Timestamp     float64   `json:"timestamp"`
	VisualContext string    `json:"visual_context"`
	Embedding     []float64 `json:"-"`
}

// ChatSession groups the messages one user has exchanged about one video.
type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	VideoID   uuid.UUID `json:"video_id"`
	UserRef   string    `json:"user_ref"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn in a session's append-only log. Sources carries
// the raw answer payload for assistant messages.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []byte    `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
