package integration

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// TranscriptTurn is one user or assistant turn extracted from the host's
// JSONL session transcript.
type TranscriptTurn struct {
	Role string
	Text string
}

// TranscriptReader extracts recent conversation turns from a host transcript
// for use as bounded review context.
type TranscriptReader interface {
	RecentTurns(filePath string, n int) ([]TranscriptTurn, error)
}

type transcriptReader struct{}

// NewTranscriptReader creates a TranscriptReader for Claude-style JSONL
// transcripts.
func NewTranscriptReader() TranscriptReader {
	return &transcriptReader{}
}

// transcriptLine is a single line of the JSONL transcript. Only the fields
// needed for turn extraction are decoded.
type transcriptLine struct {
	Type    string          `json:"type"`
	IsMeta  bool            `json:"isMeta,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
}

type transcriptMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type transcriptBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// RecentTurns reads the transcript and returns the last n user/assistant
// turns in chronological order. Malformed lines are skipped; a missing file
// is an error the caller degrades from.
func (r *transcriptReader) RecentTurns(filePath string, n int) ([]TranscriptTurn, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening transcript %s: %w", filePath, err)
	}
	defer func() { _ = f.Close() }()

	var turns []TranscriptTurn
	scanner := bufio.NewScanner(f)
	// Large assistant turns with tool output need a generous line buffer.
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry transcriptLine
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if entry.IsMeta || (entry.Type != "user" && entry.Type != "assistant") {
			continue
		}

		var msg transcriptMessage
		if err := json.Unmarshal(entry.Message, &msg); err != nil {
			continue
		}
		text := extractText(msg.Content)
		if text == "" {
			continue
		}
		turns = append(turns, TranscriptTurn{Role: msg.Role, Text: text})
	}
	if err := scanner.Err(); err != nil {
		return turns, fmt.Errorf("reading transcript: %w", err)
	}

	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

// extractText pulls the plain text out of a message content field, which is
// either a bare string or an array of typed blocks.
func extractText(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(content, &plain); err == nil {
		return strings.TrimSpace(plain)
	}

	var blocks []transcriptBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, strings.TrimSpace(b.Text))
		}
	}
	return strings.Join(parts, "\n")
}

// FormatTurns renders turns as "role: text" lines, truncated from the front
// to at most maxChars bytes so the most recent context survives the cap. The
// cut advances to the next rune boundary so a multi-byte rune is never split.
func FormatTurns(turns []TranscriptTurn, maxChars int) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	s := b.String()
	if maxChars > 0 && len(s) > maxChars {
		start := len(s) - maxChars
		for start < len(s) && !utf8.RuneStart(s[start]) {
			start++
		}
		s = s[start:]
	}
	return s
}
