package voice

import "context"

// AudioReply is one chunk of synthesized speech from the hosted voice model.
type AudioReply struct {
	Data       []byte
	SampleRate int
}

// Endpoint is the opaque duplex connection to a hosted voice model.
// One Endpoint is created per audio socket connection and never reused.
//
// AudioReply and Transcription are non-blocking pops: ok=false means
// "nothing yet", not an error. The relay loops poll them.
type Endpoint interface {
	Start(ctx context.Context) error
	Ready() bool

	SendAudio(pcm []byte) error
	SendImage(mimeType string, data []byte) error
	// SendText pushes an out-of-band grounding message into the model.
	SendText(text string) error

	AudioReply() (AudioReply, bool)
	Transcription() (string, bool)

	Stop() error
}

// Factory creates a fresh Endpoint per connection.
type Factory interface {
	New(ctx context.Context, username string) (Endpoint, error)
}
