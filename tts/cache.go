package tts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Synthesizer turns text into an audio stream.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

// AudioCache synthesizes speech and stores the MP3 on a filesystem so Twilio
// can fetch it back through the /audio/ route. The filesystem is injectable;
// tests use an in-memory one.
type AudioCache struct {
	synth   Synthesizer
	fs      afero.Fs
	baseURL string // public base URL of the server, no trailing slash
}

// NewAudioCache creates an audio cache. synth may be nil when no TTS key is
// configured; Speak then always reports failure and callers fall back to
// <Say>.
func NewAudioCache(synth Synthesizer, fs afero.Fs, baseURL string) *AudioCache {
	return &AudioCache{
		synth:   synth,
		fs:      fs,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Speak synthesizes text and returns the public playback URL for TwiML
// <Play>.
func (c *AudioCache) Speak(ctx context.Context, text string) (string, error) {
	if c.synth == nil {
		return "", fmt.Errorf("no synthesizer configured")
	}

	audio, err := c.synth.Synthesize(ctx, text)
	if err != nil {
		return "", err
	}
	defer audio.Close()

	name := fmt.Sprintf("reply_%s.mp3", uuid.NewString()[:8])
	f, err := c.fs.Create(name)
	if err != nil {
		return "", fmt.Errorf("creating audio file: %w", err)
	}

	written, err := io.Copy(f, audio)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = c.fs.Remove(name)
		return "", fmt.Errorf("writing audio file: %w", err)
	}

	log.Debug().Str("file", name).Int64("bytes", written).Msg("cached synthesized audio")
	return c.baseURL + "/audio/" + name, nil
}

// Open returns the cached audio file by name for serving.
func (c *AudioCache) Open(name string) (io.ReadCloser, error) {
	// Reject path escapes; names are always flat uuid-based files.
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return nil, fmt.Errorf("invalid audio name %q", name)
	}
	return c.fs.Open(name)
}
