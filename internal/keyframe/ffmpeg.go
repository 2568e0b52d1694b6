package keyframe

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Extractor runs keyframe detection over a video file using ffmpeg for
// decoding and frame capture.
type Extractor struct {
	changeThreshold float64
	minInterval     float64
	logger          *slog.Logger
}

func NewExtractor(changeThreshold, minInterval float64, logger *slog.Logger) *Extractor {
	return &Extractor{
		changeThreshold: changeThreshold,
		minInterval:     minInterval,
		logger:          logger,
	}
}

// Extract decodes the video at its native frame rate, selects keyframes,
// and captures each selected frame as a JPEG.
func (e *Extractor) Extract(ctx context.Context, videoPath string) ([]Keyframe, error) {
	fps, err := probeFrameRate(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe frame rate: %w", err)
	}

	src, wait, err := openGraySource(ctx, videoPath, fps)
	if err != nil {
		return nil, fmt.Errorf("open video stream: %w", err)
	}

	timestamps, selErr := Select(src, e.changeThreshold, e.minInterval)
	if err := wait(); err != nil && selErr == nil {
		return nil, fmt.Errorf("decode video: %w", err)
	}
	if selErr != nil {
		return nil, selErr
	}

	e.logger.Info("keyframes selected", "video", videoPath, "count", len(timestamps))

	keyframes := make([]Keyframe, 0, len(timestamps))
	for _, ts := range timestamps {
		jpeg, err := captureJPEG(ctx, videoPath, ts)
		if err != nil {
			// A single frame failing to encode is not fatal to the scan.
			e.logger.Warn("frame capture failed", "timestamp", ts, "error", err)
			continue
		}
		keyframes = append(keyframes, Keyframe{Timestamp: ts, JPEG: jpeg})
	}
	return keyframes, nil
}

// grayStream reads raw grayscale frames from an ffmpeg pipe.
type grayStream struct {
	r     io.Reader
	fps   float64
	index int
}

func (s *grayStream) Next() (GrayFrame, error) {
	pixels := make([]byte, graySize)
	if _, err := io.ReadFull(s.r, pixels); err != nil {
		if err == io.ErrUnexpectedEOF {
			return GrayFrame{}, io.EOF
		}
		return GrayFrame{}, err
	}
	frame := GrayFrame{
		Timestamp: float64(s.index) / s.fps,
		Pixels:    pixels,
	}
	s.index++
	return frame, nil
}

func openGraySource(ctx context.Context, videoPath string, fps float64) (FrameSource, func() error, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", videoPath,
		"-vf", fmt.Sprintf("scale=%d:%d,format=gray", GrayWidth, GrayHeight),
		"-f", "rawvideo",
		"-v", "error",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	wait := func() error {
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil
	}
	return &grayStream{r: bufio.NewReaderSize(stdout, graySize), fps: fps}, wait, nil
}

// probeFrameRate returns the video stream's native frame rate via ffprobe.
func probeFrameRate(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate",
		"-of", "csv=p=0",
		videoPath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseFrameRate(strings.TrimSpace(string(out)))
}

// parseFrameRate parses ffprobe's rational rate form, e.g. "30000/1001".
func parseFrameRate(s string) (float64, error) {
	num, den, found := strings.Cut(s, "/")
	if !found {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f <= 0 {
			return 0, fmt.Errorf("invalid frame rate %q", s)
		}
		return f, nil
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	return n / d, nil
}

// captureJPEG grabs the frame nearest to ts as a compressed JPEG.
func captureJPEG(ctx context.Context, videoPath string, ts float64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", strconv.FormatFloat(ts, 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-f", "image2",
		"-v", "error",
		"pipe:1",
	)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("no frame produced at %.3fs", ts)
	}
	return out.Bytes(), nil
}
