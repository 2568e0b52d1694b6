package answer

import (
	"fmt"
	"strings"

	"github.com/karyon-ai/karyon/internal/model"
)

const systemBase = "You are a helpful assistant that answers questions about video content. " +
	"You must ONLY use information explicitly stated in the provided context - do not use your general knowledge or training data about the topic. " +
	"Be direct and conversational - skip formal introductions. " +
	"Use conversation history to understand the full context of questions, including follow-ups, corrections, and clarifications. " +
	"Pay attention to timestamps in the context to understand where content appears, but never mention timestamps in your answers as they are displayed separately on the UI."

const (
	msgNoTranscript = "This video has no audio analysis yet."
	msgNoFrames     = "This video has no visual analysis yet."
	msgNoEmbeddings = "This video needs to be reprocessed to enable Q&A. Please delete and re-upload it."
	msgNothingFound = "I couldn't find relevant information in the video to answer your question."
)

// modePrompt carries the prompt fragments that differ between processing
// modes. noContent is the user-facing message when the mode's source
// material is missing entirely.
type modePrompt struct {
	label        string
	instructions string
	systemNote   string
	noContent    string
}

var modePrompts = map[model.ProcessingMode]modePrompt{
	model.ModeBoth: {
		label: "Context from the video (transcript + visual):",
		instructions: `- Use the video transcript AND visual context as your primary sources - do not add examples or information not present in the video
- When the user asks about something shown on screen (equations, code, diagrams), use the "On screen" visual content
- When the user asks what was said, use the "Spoken" transcription content
- Visual content is especially useful for exact equations, code, and diagrams
- When the user asks what the video says or requests clarification, provide the information from the transcript and visual context as necessary
- When the user needs help applying concepts (calculations, derivations, explanations), use what's taught in the video and visual context to help them`,
		systemNote: "",
		noContent:  msgNoTranscript,
	},
	model.ModeVisual: {
		label: "Visual context from the video (with timestamps):",
		instructions: `- Use the visual context as your primary source - do not add examples or information not present in the video
- When the user asks about something shown on screen, use the "On screen" visual content
- When the user asks what the video shows or requests clarification, provide the information from the visual context
- When the user needs help applying concepts (calculations, derivations, explanations), use what's shown in the video to help them
- Note: This video only has visual analysis available, no audio transcript`,
		systemNote: " Note: This video only has visual analysis available, no audio transcript.",
		noContent:  msgNoFrames,
	},
	model.ModeAudio: {
		label: "Context from the video transcript (with timestamps):",
		instructions: `- Use the video transcript as your primary source - do not add examples or information not present in the video
- When the user asks what was said, use the "Spoken" transcription content
- When the user asks what the video says or requests clarification, provide the information from the transcript
- When the user needs help applying concepts (calculations, derivations, explanations), use what's taught in the video to help them
- Note: This video only has audio/transcript analysis available, no visual content`,
		systemNote: " Note: This video only has audio transcript available, no visual analysis.",
		noContent:  msgNoTranscript,
	},
}

// promptFor falls back to the combined prompt when the stored mode is
// unrecognized, matching how unprocessed records default to "both".
func promptFor(mode model.ProcessingMode) modePrompt {
	if p, ok := modePrompts[mode]; ok {
		return p
	}
	return modePrompts[model.ModeBoth]
}

func buildPrompt(p modePrompt, title, context string, history []model.ChatMessage, question string) string {
	var conversation strings.Builder
	if len(history) > 0 {
		conversation.WriteString("\n\nPrevious conversation:\n")
		for _, msg := range history {
			role := "Assistant"
			if msg.Role == model.RoleUser {
				role = "User"
			}
			fmt.Fprintf(&conversation, "%s: %s\n", role, msg.Content)
		}
	}

	return fmt.Sprintf(`You are a helpful assistant that answers questions about video content.

Video: %s

%s
%s%s

Current Question: %s

Instructions:
%s
- Use proper formatting:
  * For equations, use LaTeX with single $ for inline math (e.g., $x^2$) and double $$ for block equations
  * For code, use triple backticks with language identifier (e.g., `+"```"+`python)
- Be direct and conversational - skip formal introductions like "In the video..." or "The video mentions..."
- Use conversation history to understand the full context:
  * Recognize when the user is correcting or clarifying their previous question
  * Understand temporal references (early in video = low timestamps, end = high timestamps)
  * Follow up naturally on previous answers when asked
- If the context doesn't contain enough information, say so clearly
- Do NOT mention timestamps or time ranges in your answer - they are displayed separately by the UI

Answer:`, title, p.label, context, conversation.String(), question, p.instructions)
}
