package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go/twiml"

	"github.com/hotsheetiq/frontdesk/call"
	"github.com/hotsheetiq/frontdesk/config"
	"github.com/hotsheetiq/frontdesk/dialog"
	"github.com/hotsheetiq/frontdesk/monitor"
	"github.com/hotsheetiq/frontdesk/rules"
	"github.com/hotsheetiq/frontdesk/tts"
)

const (
	// Polly voice used when synthesized audio isn't available.
	sayVoice = "Polly.Matthew-Neural"

	gatherTimeout       = "8"
	gatherSpeechTimeout = "4"
)

// Server is the Twilio-facing HTTP front end: webhooks for call flow,
// admin endpoints, cached audio, and the monitor websocket.
type Server struct {
	httpServer *http.Server
	config     *config.Config
	calls      *call.Manager
	engine     *dialog.Engine
	admin      *rules.Admin
	store      *rules.Store
	audio      *tts.AudioCache
	hub        *Hub
}

// NewServer wires all handlers onto one mux.
func NewServer(cfg *config.Config, calls *call.Manager, engine *dialog.Engine, admin *rules.Admin, store *rules.Store, audio *tts.AudioCache, hub *Hub) *Server {
	s := &Server{
		config: cfg,
		calls:  calls,
		engine: engine,
		admin:  admin,
		store:  store,
		audio:  audio,
		hub:    hub,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/voice", s.handleVoice)
	mux.HandleFunc("/handle-speech/", s.handleSpeech)
	mux.HandleFunc("/admin/rules", s.handleAdminRules)
	mux.HandleFunc("/admin/changes", s.handleAdminChanges)
	mux.HandleFunc("/audio/", s.handleAudio)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/monitor", hub)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for connections
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("voice server starting")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down voice server")
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// handleVoice answers a new call: greet the caller and gather speech.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	callSID := r.PostFormValue("CallSid")
	caller := r.PostFormValue("From")
	if callSID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	session, created, err := s.calls.EnsureSession(r.Context(), callSID, caller)
	if err != nil {
		log.Error().Err(err).Str("call_sid", callSID).Msg("failed to admit call")
		s.writeTwiML(w, s.hangupTwiML("We're sorry, all lines are busy right now. Please call back in a few minutes."))
		return
	}
	if created {
		log.Info().Str("call_sid", callSID).Str("from", caller).Msg("call started")
		s.hub.Broadcast(monitor.NewCallStartedEvent(callSID, caller))
	}

	s.writeTwiML(w, s.promptTwiML(r.Context(), session.SID, s.admin.Greeting()))
}

// handleSpeech processes one gathered utterance and replies with the next
// prompt.
func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	callSID := strings.TrimPrefix(r.URL.Path, "/handle-speech/")
	if callSID == "" || strings.Contains(callSID, "/") {
		http.Error(w, "missing call sid", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	utterance := r.PostFormValue("SpeechResult")
	caller := r.PostFormValue("From")

	// Re-admit the call if the session expired mid-conversation.
	session, _, err := s.calls.EnsureSession(r.Context(), callSID, caller)
	if err != nil {
		log.Error().Err(err).Str("call_sid", callSID).Msg("failed to resume call")
		s.writeTwiML(w, s.hangupTwiML("We're sorry, something went wrong. Please call back."))
		return
	}

	hadTicket := session.TicketNumber() != ""
	reply := s.engine.HandleTurn(r.Context(), session, utterance)
	s.calls.SyncSession(r.Context(), session)

	stage := session.Stage().String()
	s.hub.Broadcast(monitor.NewTurnEvent(callSID, utterance, reply, stage))
	if !hadTicket {
		if num := session.TicketNumber(); num != "" {
			s.hub.Broadcast(monitor.NewTicketCreatedEvent(callSID, num, dialog.IssueType(session.Problem()), session.Address()))
		}
	}

	s.writeTwiML(w, s.promptTwiML(r.Context(), callSID, reply))
}

// promptTwiML speaks text (cached MP3 when TTS succeeds, otherwise Polly
// <Say>) and gathers the caller's next utterance.
func (s *Server) promptTwiML(ctx context.Context, callSID, text string) string {
	var spoken twiml.Element
	if url, err := s.audio.Speak(ctx, text); err == nil {
		spoken = &twiml.VoicePlay{Url: url}
	} else {
		log.Debug().Err(err).Msg("tts unavailable, falling back to <Say>")
		spoken = &twiml.VoiceSay{Message: text, Voice: sayVoice}
	}

	gather := &twiml.VoiceGather{
		Input:         "speech",
		Action:        fmt.Sprintf("/handle-speech/%s", callSID),
		Method:        "POST",
		Timeout:       gatherTimeout,
		SpeechTimeout: gatherSpeechTimeout,
		InnerElements: []twiml.Element{spoken},
	}
	// If the gather times out with no speech, re-prompt.
	redirect := &twiml.VoiceRedirect{
		Url:    fmt.Sprintf("/handle-speech/%s", callSID),
		Method: "POST",
	}

	out, err := twiml.Voice([]twiml.Element{gather, redirect})
	if err != nil {
		log.Error().Err(err).Msg("twiml render failed")
		return `<?xml version="1.0" encoding="UTF-8"?><Response><Say>Sorry, something went wrong.</Say></Response>`
	}
	return out
}

func (s *Server) hangupTwiML(text string) string {
	say := &twiml.VoiceSay{Message: text, Voice: sayVoice}
	hangup := &twiml.VoiceHangup{}
	out, err := twiml.Voice([]twiml.Element{say, hangup})
	if err != nil {
		return `<?xml version="1.0" encoding="UTF-8"?><Response><Hangup/></Response>`
	}
	return out
}

func (s *Server) writeTwiML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

type adminRuleRequest struct {
	Instruction string `json:"instruction"`
}

type adminRuleResponse struct {
	Applied      bool   `json:"applied"`
	Confirmation string `json:"confirmation"`
}

// handleAdminRules takes a natural-language admin instruction and applies it.
func (s *Server) handleAdminRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	var req adminRuleRequest
	if err := sonic.Unmarshal(body, &req); err != nil || strings.TrimSpace(req.Instruction) == "" {
		http.Error(w, "expected JSON body with instruction", http.StatusBadRequest)
		return
	}

	confirmation, applied := s.admin.Apply(r.Context(), req.Instruction)
	s.writeJSON(w, adminRuleResponse{Applied: applied, Confirmation: confirmation})
}

// handleAdminChanges lists recent admin changes, newest last.
func (s *Server) handleAdminChanges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.store.RecentChanges(50))
}

// handleAudio serves cached synthesized replies back to Twilio.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/audio/")
	f, err := s.audio.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = io.Copy(w, f)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","calls":%d,"rules":%d}`, s.calls.ActiveCallCount(), s.store.Len())
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
