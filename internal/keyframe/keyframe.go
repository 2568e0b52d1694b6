// Package keyframe selects visually distinct frames from a video and
// pairs them with vision-analysis descriptions.
package keyframe

import (
	"errors"
	"fmt"
	"io"
)

// Reduced grayscale resolution used for frame comparison. Keeps the pixel
// diff cheap regardless of the source resolution.
const (
	GrayWidth  = 320
	GrayHeight = 180
	graySize   = GrayWidth * GrayHeight
)

// GrayFrame is one decoded frame, reduced to grayscale for comparison.
type GrayFrame struct {
	Timestamp float64
	Pixels    []byte // GrayWidth*GrayHeight luma bytes
}

// FrameSource yields frames in timestamp order. Next returns io.EOF when
// the stream ends.
type FrameSource interface {
	Next() (GrayFrame, error)
}

// Keyframe is a selected frame with its compressed image.
type Keyframe struct {
	Timestamp float64
	JPEG      []byte
}

// Select walks the stream and returns the timestamps of frames worth
// keeping. The first frame is always selected. A later frame is selected
// only when at least minInterval seconds have elapsed since the last
// selection and more than changeThreshold percent of its pixels differ
// from the last selected frame's grayscale image. Comparing against the
// last selected frame (not the immediately preceding one) detects
// cumulative drift since the last capture rather than frame-to-frame
// jitter.
func Select(src FrameSource, changeThreshold, minInterval float64) ([]float64, error) {
	var selected []float64
	var baseline []byte
	lastSelected := -minInterval

	for {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		if len(frame.Pixels) != graySize {
			return nil, fmt.Errorf("frame at %.2fs has %d pixels, want %d", frame.Timestamp, len(frame.Pixels), graySize)
		}

		capture := false
		if baseline == nil {
			capture = true
		} else if frame.Timestamp-lastSelected >= minInterval {
			if percentChanged(baseline, frame.Pixels) > changeThreshold {
				capture = true
			}
		}

		if capture {
			selected = append(selected, frame.Timestamp)
			lastSelected = frame.Timestamp
			baseline = append(baseline[:0], frame.Pixels...)
		}
	}

	return selected, nil
}

// percentChanged returns the percentage of pixels whose values differ
// between the two grayscale images.
func percentChanged(a, b []byte) float64 {
	changed := 0
	for i := range a {
		if a[i] != b[i] {
			changed++
		}
	}
	return float64(changed) / float64(len(a)) * 100
}
