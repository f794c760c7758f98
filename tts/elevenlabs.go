// Package tts synthesizes speech for phone playback with ElevenLabs.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

	// ElevenLabsModelTurbo is the fast turbo v2.5 model, the right tradeoff
	// for a live phone call.
	ElevenLabsModelTurbo = "eleven_turbo_v2_5"
	// ElevenLabsModelMultilingual is the multilingual v2 model.
	ElevenLabsModelMultilingual = "eleven_multilingual_v2"

	// Phone callers are waiting on the line; keep the request budget small.
	defaultElevenLabsTimeout = 5 * time.Second

	serverErrorThreshold = 500

	// Voice settings tuned for consistent, clear phone speech.
	defaultStability       = 0.75
	defaultSimilarityBoost = 0.85
	defaultStyle           = 0.25
)

// ElevenLabs implements speech synthesis using ElevenLabs' API.
type ElevenLabs struct {
	apiKey  string
	baseURL string
	client  *http.Client
	model   string
	voice   string
}

// ElevenLabsOption configures the ElevenLabs client.
type ElevenLabsOption func(*ElevenLabs)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ElevenLabsOption {
	return func(s *ElevenLabs) {
		s.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ElevenLabsOption {
	return func(s *ElevenLabs) {
		s.client = client
	}
}

// WithModel sets the TTS model.
func WithModel(model string) ElevenLabsOption {
	return func(s *ElevenLabs) {
		s.model = model
	}
}

// WithVoice sets the default voice ID.
func WithVoice(voice string) ElevenLabsOption {
	return func(s *ElevenLabs) {
		s.voice = voice
	}
}

// NewElevenLabs creates an ElevenLabs TTS client.
func NewElevenLabs(apiKey, voice string, opts ...ElevenLabsOption) *ElevenLabs {
	s := &ElevenLabs{
		apiKey:  apiKey,
		baseURL: elevenLabsBaseURL,
		client:  &http.Client{Timeout: defaultElevenLabsTimeout},
		model:   ElevenLabsModelTurbo,
		voice:   voice,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the provider identifier.
func (s *ElevenLabs) Name() string {
	return "elevenlabs"
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id,omitempty"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// Synthesize converts text to MP3 audio. The caller owns the returned reader.
func (s *ElevenLabs) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: s.model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       defaultStability,
			SimilarityBoost: defaultSimilarityBoost,
			Style:           defaultStyle,
			UseSpeakerBoost: true,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", s.baseURL, s.voice)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewSynthesisError("elevenlabs", "", "request failed", err, true)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, s.handleError(resp)
	}

	return resp.Body, nil
}

type elevenLabsErrorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

func (s *ElevenLabs) handleError(resp *http.Response) error {
	var errResp elevenLabsErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return NewSynthesisError(
			"elevenlabs",
			fmt.Sprintf("%d", resp.StatusCode),
			"unknown error",
			err,
			resp.StatusCode >= serverErrorThreshold,
		)
	}

	retryable := resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= serverErrorThreshold

	var cause error
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		cause = ErrRateLimited
	case http.StatusUnauthorized:
		cause = fmt.Errorf("invalid API key")
	case http.StatusBadRequest:
		cause = fmt.Errorf("bad request")
	}

	return NewSynthesisError(
		"elevenlabs",
		errResp.Detail.Status,
		errResp.Detail.Message,
		cause,
		retryable,
	)
}
