package bot

import "time"

// Attachment is the subset of Discord attachment metadata the pipeline needs
type Attachment struct {
	ID          string
	URL         string
	ProxyURL    string
	Filename    string
	Size        int
	ContentType string
}

// TranscriptionData is the block merged into message metadata after an
// attachment is processed, consumed downstream by note creation
type TranscriptionData struct {
	Transcript      string  `json:"transcript"`
	Confidence      float64 `json:"confidence"`
	ConfidenceLevel string  `json:"confidence_level"`
	FallbackUsed    bool    `json:"fallback_used"`
	FallbackReason  string  `json:"fallback_reason,omitempty"`
	SavedFilePath   string  `json:"saved_file_path,omitempty"`
}

// MessageContext is an explicit value object for one incoming message,
// replacing ad-hoc metadata dicts. AudioTranscription is set through
// SetTranscription only.
type MessageContext struct {
	ID          string
	ChannelID   string
	ChannelName string
	AuthorID    string
	AuthorName  string
	Content     string
	Timestamp   time.Time
	Attachments []Attachment

	AudioTranscription *TranscriptionData
}

// SetTranscription merges a transcription block into the message. When the
// message had no text content, the transcript backfills it so note creation
// has a body to work with.
func (m *MessageContext) SetTranscription(data *TranscriptionData) {
	m.AudioTranscription = data
	if m.Content == "" && data != nil && !data.FallbackUsed {
		m.Content = data.Transcript
	}
}
