package media

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"
)

// Toolbox binds the media directory layout to the package's external
// tooling. Videos land in <dir>/videos, extracted audio in <dir>/audio.
type Toolbox struct {
	Dir string
}

func (t Toolbox) VideoDir() string { return filepath.Join(t.Dir, "videos") }
func (t Toolbox) AudioDir() string { return filepath.Join(t.Dir, "audio") }

// DownloadYouTube fetches the video and resolves its title.
func (t Toolbox) DownloadYouTube(ctx context.Context, url string, videoID uuid.UUID) (string, string, error) {
	meta, err := FetchYouTubeMetadata(ctx, url)
	if err != nil {
		return "", "", err
	}
	path, err := DownloadYouTube(ctx, url, videoID, t.VideoDir())
	if err != nil {
		return "", "", err
	}
	return path, meta.Title, nil
}

func (t Toolbox) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	return ExtractAudio(ctx, videoPath, t.AudioDir())
}

func (t Toolbox) CheckAudioSize(path string) error {
	return CheckAudioSize(path)
}
