// Package transcribe sends segment files to an OpenAI-compatible speech to
// text endpoint, one request per segment.
package transcribe

import (
	"context"
	"strings"
)

// Default request parameters.
const (
	DefaultBaseURL  = "https://api.openai.com/v1"
	DefaultModel    = "whisper-1"
	DefaultLanguage = "es"
	DefaultPrompt   = "You are a helpful assistant that transcribes audio to text."
)

// Transcriber turns one audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Transcript is the text of one segment.
type Transcript struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// JoinText concatenates the non-empty texts in order, one per line.
func JoinText(ts []Transcript) string {
	parts := make([]string, 0, len(ts))
	for _, t := range ts {
		if s := strings.TrimSpace(t.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// jsonResponse is the body returned for response_format=json.
type jsonResponse struct {
	Text string `json:"text"`
}

// errorResponse is the OpenAI error envelope.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
