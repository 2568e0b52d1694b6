package openai

import (
	"context"
	"encoding/base64"
	"fmt"
)

// framePrompt asks the vision model for the two content categories karyon
// indexes: on-screen text and visual descriptions. The TEXT:/VISUALS:
// structure lets the caller discard frames with nothing in either.
const framePrompt = `Extract all visible educational content from this video frame:

1. TEXT: Any text, equations, formulas, or code shown (transcribe exactly)
2. VISUALS: Describe any diagrams, graphs, charts, or illustrations

Format:
TEXT: [exact text/equations/code, or "None"]
VISUALS: [description of diagrams/visuals, or "None"]

Be precise with equations - use notation like x^2, sqrt(), fractions, etc.`

// AnalyzeFrame sends a JPEG-encoded frame for vision analysis and returns
// the structured textual description.
func (c *Client) AnalyzeFrame(ctx context.Context, jpeg []byte) (string, error) {
	if len(jpeg) == 0 {
		return "", fmt.Errorf("empty frame")
	}

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)

	content := []map[string]any{
		{"type": "text", "text": framePrompt},
		{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
	}

	return c.postChat(ctx, chatRequest{
		Model:       c.chatModel,
		Messages:    []any{map[string]any{"role": "user", "content": content}},
		MaxTokens:   500,
		Temperature: 0.2,
	})
}
