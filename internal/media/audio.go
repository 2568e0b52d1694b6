// Package media wraps the external binaries karyon shells out to for
// media handling: ffmpeg for audio extraction and yt-dlp for YouTube.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/karyon-ai/karyon/internal/model"
)

// maxAudioBytes is the transcription service's upload limit (25MB).
const maxAudioBytes = 25 * 1024 * 1024

// ExtractAudio pulls the audio track out of a video as a low-bitrate MP3
// to keep the upload under the transcription limit, and returns the
// audio file path.
func ExtractAudio(ctx context.Context, videoPath, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	base := filepath.Base(videoPath)
	audioPath := filepath.Join(outputDir, strings.TrimSuffix(base, filepath.Ext(base))+".mp3")

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-vn",
		"-b:a", "32k",
		"-v", "error",
		"-y",
		audioPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return audioPath, nil
}

// CheckAudioSize enforces the transcription upload limit.
func CheckAudioSize(audioPath string) error {
	info, err := os.Stat(audioPath)
	if err != nil {
		return fmt.Errorf("stat audio: %w", err)
	}
	if info.Size() > maxAudioBytes {
		return fmt.Errorf("%w: %.1fMB, max 25MB", model.ErrAudioTooLarge, float64(info.Size())/1024/1024)
	}
	return nil
}
