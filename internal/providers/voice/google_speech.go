package voice

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

// GoogleSpeechFactory builds recognition-only endpoints backed by Google
// Cloud Speech streaming recognition. These endpoints fill the
// transcription queue; they never produce audio replies (a hosted
// full-duplex voice model would).
type GoogleSpeechFactory struct {
	client *speech.Client

	Language     string
	SampleRateHz int32
}

func NewGoogleSpeechFactory(ctx context.Context) (*GoogleSpeechFactory, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeechFactory{
		client:       c,
		Language:     "en-US",
		SampleRateHz: 16000,
	}, nil
}

func (f *GoogleSpeechFactory) Close() error { return f.client.Close() }

func (f *GoogleSpeechFactory) New(ctx context.Context, username string) (Endpoint, error) {
	return &googleSpeechEndpoint{
		factory:     f,
		transcripts: make(chan string, 64),
	}, nil
}

type googleSpeechEndpoint struct {
	factory *GoogleSpeechFactory

	mu     sync.Mutex
	stream speechpb.Speech_StreamingRecognizeClient
	cancel context.CancelFunc

	ready       atomic.Bool
	transcripts chan string
}

func (e *googleSpeechEndpoint) Start(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(ctx)

	stream, err := e.factory.client.StreamingRecognize(streamCtx)
	if err != nil {
		cancel()
		return err
	}

	cfg := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:            e.factory.SampleRateHz,
					LanguageCode:               e.factory.Language,
					EnableAutomaticPunctuation: true,
				},
				InterimResults: false,
			},
		},
	}
	if err := stream.Send(cfg); err != nil {
		cancel()
		return err
	}

	e.mu.Lock()
	e.stream = stream
	e.cancel = cancel
	e.mu.Unlock()
	e.ready.Store(true)

	go e.receive(stream)
	return nil
}

func (e *googleSpeechEndpoint) receive(stream speechpb.Speech_StreamingRecognizeClient) {
	defer e.ready.Store(false)

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			return
		}

		for _, res := range resp.Results {
			if !res.IsFinal || len(res.Alternatives) == 0 {
				continue
			}
			text := res.Alternatives[0].Transcript
			if text == "" {
				continue
			}
			select {
			case e.transcripts <- text:
			default:
				// consumer stalled; drop rather than block the stream
			}
		}
	}
}

func (e *googleSpeechEndpoint) Ready() bool { return e.ready.Load() }

func (e *googleSpeechEndpoint) SendAudio(pcm []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stream == nil {
		return errors.New("voice: endpoint not started")
	}
	return e.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: pcm,
		},
	})
}

// SendImage is a no-op: speech recognition has no visual channel.
func (e *googleSpeechEndpoint) SendImage(mimeType string, data []byte) error { return nil }

// SendText is a no-op: grounding only applies to generative voice models.
func (e *googleSpeechEndpoint) SendText(text string) error { return nil }

func (e *googleSpeechEndpoint) AudioReply() (AudioReply, bool) {
	return AudioReply{}, false
}

func (e *googleSpeechEndpoint) Transcription() (string, bool) {
	select {
	case t := <-e.transcripts:
		return t, true
	default:
		return "", false
	}
}

func (e *googleSpeechEndpoint) Stop() error {
	e.ready.Store(false)

	e.mu.Lock()
	stream := e.stream
	cancel := e.cancel
	e.stream = nil
	e.mu.Unlock()

	var err error
	if stream != nil {
		err = stream.CloseSend()
	}
	if cancel != nil {
		cancel()
	}
	return err
}
