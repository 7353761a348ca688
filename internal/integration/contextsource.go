package integration

// SessionContextSource turns host transcripts into the bounded plain-text
// context the review prompt carries.
type SessionContextSource struct {
	Reader TranscriptReader
}

// NewSessionContextSource creates a context source over the default
// transcript reader.
func NewSessionContextSource() *SessionContextSource {
	return &SessionContextSource{Reader: NewTranscriptReader()}
}

// RecentContext returns the last turns of the transcript as "role: text"
// lines, truncated from the front to maxChars.
func (s *SessionContextSource) RecentContext(transcriptPath string, turns, maxChars int) (string, error) {
	recent, err := s.Reader.RecentTurns(transcriptPath, turns)
	if err != nil {
		return "", err
	}
	return FormatTurns(recent, maxChars), nil
}
