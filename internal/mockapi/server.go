// Package mockapi is an in-process stand-in for the Raven chat API, used for
// local demos and end-to-end tests of the widget.
package mockapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/mail"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/wolfman30/raven-widget/internal/chatapi"
	"github.com/wolfman30/raven-widget/pkg/logging"
)

const maxUploadBytes = 10 << 20

// Config controls the stub.
type Config struct {
	Logger *logging.Logger
	// Profiles are served by business id.
	Profiles map[string]chatapi.BusinessProfile
	// Fallback, when set, is served for unknown business ids.
	Fallback *chatapi.BusinessProfile
	// ReplyDelay holds each chat reply back, to exercise client timeouts.
	ReplyDelay         time.Duration
	CORSAllowedOrigins []string
	// ChatRatePerMinute limits chat sends per client; zero disables it.
	ChatRatePerMinute int
	Now               func() time.Time
}

// Message is a stored conversation turn.
type Message struct {
	Role      string
	Content   string
	Media     []chatapi.MediaAttachment
	CreatedAt time.Time
}

// Conversation is the stub's view of one conversation.
type Conversation struct {
	ID               string
	BusinessID       string
	VisitorID        string
	Contact          chatapi.ContactInfo
	Messages         []Message
	HumanTakeover    bool
	Rating           string
	RatingComment    string
	TranscriptEmails []string
}

type upload struct {
	contentType string
	data        []byte
}

// Server implements the public chat API with scripted replies.
type Server struct {
	logger     *logging.Logger
	profiles   map[string]chatapi.BusinessProfile
	fallback   *chatapi.BusinessProfile
	replyDelay time.Duration
	origins    []string
	chatRate   int
	now        func() time.Time

	mu            sync.RWMutex
	conversations map[string]*Conversation
	uploads       map[string]upload
}

// New builds a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	profiles := make(map[string]chatapi.BusinessProfile, len(cfg.Profiles))
	for id, p := range cfg.Profiles {
		profiles[id] = p
	}
	return &Server{
		logger:        logger,
		profiles:      profiles,
		fallback:      cfg.Fallback,
		replyDelay:    cfg.ReplyDelay,
		origins:       cfg.CORSAllowedOrigins,
		chatRate:      cfg.ChatRatePerMinute,
		now:           now,
		conversations: make(map[string]*Conversation),
		uploads:       make(map[string]upload),
	}
}

// DemoProfile is a bilingual, online profile without lead capture.
func DemoProfile() chatapi.BusinessProfile {
	return chatapi.BusinessProfile{
		Name:             "Raven Demo",
		WelcomeMessage:   "Bonjour! Comment puis-je vous aider?",
		WelcomeMessageEN: "Hello! How can I help you?",
		Language:         "fr",
		WidgetSettings: chatapi.WidgetSettings{
			PrimaryColor:           "#0ea5e9",
			Position:               "bottom-right",
			WelcomeMessageLanguage: "auto",
		},
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(s.origins) > 0 {
		r.Use(CORS(s.origins))
	}
	r.Use(RequestLogger(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/uploads/{name}", s.handleGetUpload)
	r.Route("/api", func(api chi.Router) {
		api.Post("/uploads/image", s.handleUpload)
		api.Route("/chat", func(c chi.Router) {
			c.With(s.chatLimit()).Post("/", s.handleChat)
			c.Get("/business/{businessID}/public", s.handleProfile)
			c.Post("/conversation/{conversationID}/rate", s.handleRate)
			c.Post("/conversation/{conversationID}/transcript", s.handleTranscript)
		})
	})
	return r
}

func (s *Server) chatLimit() func(http.Handler) http.Handler {
	if s.chatRate <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return RateLimit(s.chatRate, s.now)
}

// Conversation returns a copy of a stored conversation.
func (s *Server) Conversation(id string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return Conversation{}, false
	}
	out := *conv
	out.Messages = append([]Message(nil), conv.Messages...)
	out.TranscriptEmails = append([]string(nil), conv.TranscriptEmails...)
	return out, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	profile, ok := s.profiles[businessID]
	if !ok {
		if s.fallback == nil {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		profile = *s.fallback
	}
	profile.BusinessID = businessID
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		http.Error(w, "only images are accepted", http.StatusUnsupportedMediaType)
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}
	if len(data) > maxUploadBytes {
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	s.mu.Lock()
	s.uploads[name] = upload{contentType: contentType, data: data}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, chatapi.UploadResponse{
		Filename:    name,
		URL:         "/uploads/" + name,
		ContentType: contentType,
		Size:        int64(len(data)),
	})
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	up, ok := s.uploads[chi.URLParam(r, "name")]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", up.contentType)
	_, _ = w.Write(up.data)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatapi.ChatPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.BusinessID == "" || req.VisitorID == "" || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "business_id, visitor_id and message are required", http.StatusBadRequest)
		return
	}

	if err := s.wait(r.Context()); err != nil {
		return
	}

	now := s.now().UTC()
	s.mu.Lock()
	conv := s.lookupOrStart(req)
	conv.Messages = append(conv.Messages, Message{Role: "user", Content: req.Message, Media: req.Media, CreatedAt: now})
	rep := scriptReply(req.Message, conv.HumanTakeover, now)
	conv.HumanTakeover = rep.takeover
	conv.Messages = append(conv.Messages, Message{Role: "assistant", Content: rep.text, CreatedAt: now})
	convID := conv.ID
	s.mu.Unlock()

	s.logger.Info("mockapi: chat message", "conversation_id", convID, "business_id", req.BusinessID, "visitor_id", req.VisitorID)
	writeJSON(w, http.StatusOK, chatapi.SendResponse{
		ConversationID:  convID,
		Message:         rep.text,
		CreatedAt:       now.Format(time.RFC3339),
		IsHumanTakeover: rep.takeover,
		AvailableSlots:  rep.slots,
		ShouldClose:     rep.shouldClose,
	})
}

// lookupOrStart must be called with s.mu held. Contact fields are recorded
// only when a conversation starts.
func (s *Server) lookupOrStart(req chatapi.ChatPayload) *Conversation {
	if req.ConversationID != nil {
		if conv, ok := s.conversations[*req.ConversationID]; ok {
			return conv
		}
	}
	conv := &Conversation{
		ID:         uuid.NewString(),
		BusinessID: req.BusinessID,
		VisitorID:  req.VisitorID,
		Contact: chatapi.ContactInfo{
			Name:  req.VisitorName,
			Email: req.VisitorEmail,
			Phone: req.VisitorPhone,
		},
	}
	s.conversations[conv.ID] = conv
	return conv
}

func (s *Server) wait(ctx context.Context) error {
	if s.replyDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.replyDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var req chatapi.RatePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Rating != "positive" && req.Rating != "negative" {
		http.Error(w, "rating must be positive or negative", http.StatusBadRequest)
		return
	}
	err := s.withConversation(chi.URLParam(r, "conversationID"), func(conv *Conversation) {
		conv.Rating = req.Rating
		conv.RatingComment = req.Comment
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	var req chatapi.TranscriptPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		http.Error(w, "invalid email", http.StatusBadRequest)
		return
	}
	err := s.withConversation(chi.URLParam(r, "conversationID"), func(conv *Conversation) {
		conv.TranscriptEmails = append(conv.TranscriptEmails, req.Email)
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

var errConversationNotFound = errors.New("conversation not found")

func (s *Server) withConversation(id string, fn func(*Conversation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return errConversationNotFound
	}
	fn(conv)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
