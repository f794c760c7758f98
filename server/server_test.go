package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotsheetiq/frontdesk/call"
	"github.com/hotsheetiq/frontdesk/config"
	"github.com/hotsheetiq/frontdesk/dialog"
	"github.com/hotsheetiq/frontdesk/directory"
	"github.com/hotsheetiq/frontdesk/rules"
	"github.com/hotsheetiq/frontdesk/tickets"
	"github.com/hotsheetiq/frontdesk/tts"
)

type stubSynth struct {
	audio string
	err   error
}

func (s *stubSynth) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.audio)), nil
}

func newTestServer(t *testing.T, synth tts.Synthesizer) *Server {
	t.Helper()
	cfg := &config.Config{
		Port:           0,
		PublicBaseURL:  "https://example.com",
		MaxCalls:       10,
		SessionTimeout: 30 * time.Minute,
		AllowedOrigins: []string{"*"},
	}
	calls := call.NewManagerWithClient(cfg, nil)
	store := rules.NewStore(nil)
	matcher := directory.NewMatcher(nil)
	admin := rules.NewAdmin(store, matcher)
	issuer := tickets.NewIssuer(nil)
	engine := dialog.NewEngine(store, matcher, issuer, nil)
	audio := tts.NewAudioCache(synth, afero.NewMemMapFs(), cfg.PublicBaseURL)
	hub := NewHub(cfg.AllowedOrigins)
	return NewServer(cfg, calls, engine, admin, store, audio, hub)
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_VoiceWebhookGreets(t *testing.T) {
	srv := newTestServer(t, nil)

	w := postForm(t, srv.Handler(), "/voice", url.Values{
		"CallSid": {"CA1"},
		"From":    {"+15551234567"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/xml", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "reached Grinberg Management")
	assert.Contains(t, body, "<Gather")
	assert.Contains(t, body, `input="speech"`)
	assert.Contains(t, body, `action="/handle-speech/CA1"`)
}

func TestServer_VoiceWebhookRequiresCallSid(t *testing.T) {
	srv := newTestServer(t, nil)

	w := postForm(t, srv.Handler(), "/voice", url.Values{"From": {"+15551234567"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_VoiceWebhookRejectsGet(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/voice", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_ConversationFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	h := srv.Handler()

	postForm(t, h, "/voice", url.Values{"CallSid": {"CA1"}, "From": {"+15551234567"}})

	w := postForm(t, h, "/handle-speech/CA1", url.Values{
		"SpeechResult": {"I have a problem with my washing machine"},
		"From":         {"+15551234567"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "address")

	w = postForm(t, h, "/handle-speech/CA1", url.Values{
		"SpeechResult": {"29 Port Richmond Avenue"},
		"From":         {"+15551234567"},
	})
	body := w.Body.String()
	assert.Contains(t, body, "service ticket #SV-")
	assert.Contains(t, body, "29 Port Richmond Avenue")

	// Confirming does not re-ask for the problem.
	w = postForm(t, h, "/handle-speech/CA1", url.Values{
		"SpeechResult": {"Yes that is correct"},
		"From":         {"+15551234567"},
	})
	body = w.Body.String()
	assert.Contains(t, body, "SV-")
	assert.Contains(t, body, "already in")
}

func TestServer_SpeechWebhookCreatesSessionOnDemand(t *testing.T) {
	srv := newTestServer(t, nil)

	w := postForm(t, srv.Handler(), "/handle-speech/CA9", url.Values{
		"SpeechResult": {"hello"},
		"From":         {"+15551234567"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Chris")
}

func TestServer_SpeechWebhookRequiresSid(t *testing.T) {
	srv := newTestServer(t, nil)

	w := postForm(t, srv.Handler(), "/handle-speech/", url.Values{"SpeechResult": {"hello"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_AdminRules(t *testing.T) {
	srv := newTestServer(t, nil)
	h := srv.Handler()

	payload := `{"instruction": "when someone says banana respond with We love bananas here"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/rules", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp adminRuleResponse
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Applied)
	assert.Contains(t, resp.Confirmation, "banana")

	// The taught rule is live for calls immediately.
	speech := postForm(t, h, "/handle-speech/CA1", url.Values{
		"SpeechResult": {"banana"},
		"From":         {"+15551234567"},
	})
	assert.Contains(t, speech.Body.String(), "We love bananas here")
}

func TestServer_AdminRulesBadRequest(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/rules", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_AdminChanges(t *testing.T) {
	srv := newTestServer(t, nil)
	h := srv.Handler()

	payload := `{"instruction": "when someone says ping respond with pong"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/rules", strings.NewReader(payload))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/admin/changes", nil)
	getW := httptest.NewRecorder()
	h.ServeHTTP(getW, getReq)

	require.Equal(t, http.StatusOK, getW.Code)
	var changes []rules.Change
	require.NoError(t, sonic.Unmarshal(getW.Body.Bytes(), &changes))
	require.Len(t, changes, 1)
	assert.Equal(t, "instant_response", changes[0].Type)
	assert.Equal(t, "ping", changes[0].Trigger)
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, nil)
	h := srv.Handler()

	postForm(t, h, "/voice", url.Values{"CallSid": {"CA1"}, "From": {"+15551234567"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"calls":1`)
}

func TestServer_PlaysSynthesizedAudio(t *testing.T) {
	srv := newTestServer(t, &stubSynth{audio: "mp3bytes"})
	h := srv.Handler()

	w := postForm(t, h, "/voice", url.Values{"CallSid": {"CA1"}, "From": {"+15551234567"}})
	body := w.Body.String()
	require.Contains(t, body, "<Play>")
	require.Contains(t, body, "https://example.com/audio/reply_")

	start := strings.Index(body, "/audio/reply_")
	end := strings.Index(body[start:], ".mp3")
	require.Greater(t, end, 0)
	path := body[start : start+end+len(".mp3")]

	req := httptest.NewRequest(http.MethodGet, path, nil)
	audioW := httptest.NewRecorder()
	h.ServeHTTP(audioW, req)

	require.Equal(t, http.StatusOK, audioW.Code)
	assert.Equal(t, "audio/mpeg", audioW.Header().Get("Content-Type"))
	assert.Equal(t, "mp3bytes", audioW.Body.String())
}

func TestServer_AudioMissing(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/audio/reply_nope.mp3", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_CapReturnsBusyMessage(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.config.MaxCalls = 1
	h := srv.Handler()

	postForm(t, h, "/voice", url.Values{"CallSid": {"CA1"}, "From": {"+15551111111"}})
	w := postForm(t, h, "/voice", url.Values{"CallSid": {"CA2"}, "From": {"+15552222222"}})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "busy")
	assert.Contains(t, w.Body.String(), "<Hangup")
}
