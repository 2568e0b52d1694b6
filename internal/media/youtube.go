package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// YouTubeMetadata is the subset of yt-dlp's info JSON the API exposes.
type YouTubeMetadata struct {
	Title       string  `json:"title"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail"`
	Description string  `json:"description"`
}

// DownloadYouTube fetches a YouTube video as MP4 into outputDir and
// returns the downloaded file path.
func DownloadYouTube(ctx context.Context, url string, videoID uuid.UUID, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create video dir: %w", err)
	}

	template := filepath.Join(outputDir, fmt.Sprintf("youtube_%s_%%(id)s.%%(ext)s", videoID))

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-f", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
		"--merge-output-format", "mp4",
		"-o", template,
		"--no-warnings",
		"--print", "after_move:filepath",
		"--no-simulate",
		url,
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	path := strings.TrimSpace(out.String())
	if path == "" {
		return "", fmt.Errorf("yt-dlp produced no output file for %s", url)
	}
	return path, nil
}

// FetchYouTubeMetadata returns a video's metadata without downloading it.
func FetchYouTubeMetadata(ctx context.Context, url string) (YouTubeMetadata, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-J",
		"--no-warnings",
		"--skip-download",
		url,
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return YouTubeMetadata{}, fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var meta YouTubeMetadata
	if err := json.Unmarshal(out.Bytes(), &meta); err != nil {
		return YouTubeMetadata{}, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	if meta.Title == "" {
		meta.Title = "Unknown Title"
	}
	return meta, nil
}
