// Package chat ties visitor identity, the conversation cache and the chat
// API into one session with an ordered in-memory transcript.
package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/wolfman30/raven-widget/internal/chatapi"
	"github.com/wolfman30/raven-widget/internal/convstore"
	"github.com/wolfman30/raven-widget/pkg/logging"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role    Role
	Content string
	Media   []chatapi.MediaAttachment
}

// SendResult is what a successful send hands back to the UI.
type SendResult struct {
	ConversationID  string
	Message         string
	IsHumanTakeover bool
	AvailableSlots  []chatapi.SlotOption
	ShouldClose     bool
}

// Transport is the subset of the chat API a session needs.
type Transport interface {
	FetchBusinessProfile(ctx context.Context, businessID string) (*chatapi.BusinessProfile, error)
	UploadImage(ctx context.Context, filename, contentType string, r io.Reader) (*chatapi.MediaAttachment, error)
	SendMessage(ctx context.Context, req chatapi.SendRequest) (*chatapi.SendResponse, error)
	RateConversation(ctx context.Context, conversationID, rating, comment string) error
	EmailTranscript(ctx context.Context, conversationID, email string) error
}

var _ Transport = (*chatapi.Client)(nil)

// ErrEmptyMessage is returned when neither text nor media is given.
var ErrEmptyMessage = errors.New("chat: message is empty")

// Session is one visitor's conversation with a business. All methods are
// safe for concurrent use; the transcript is only ever appended to until
// ClearConversation.
type Session struct {
	businessID string
	visitorID  string
	transport  Transport
	convs      *convstore.Store
	logger     *logging.Logger

	mu             sync.Mutex
	generation     uint64
	conversationID string
	messages       []Message
	contact        chatapi.ContactInfo
	humanTakeover  bool
}

// NewSession builds a session for a resolved visitor.
func NewSession(businessID, visitorID string, transport Transport, convs *convstore.Store, logger *logging.Logger) *Session {
	if transport == nil {
		panic("chat: transport required")
	}
	if convs == nil {
		panic("chat: conversation store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Session{
		businessID: businessID,
		visitorID:  visitorID,
		transport:  transport,
		convs:      convs,
		logger:     logger,
	}
}

func (s *Session) BusinessID() string { return s.businessID }
func (s *Session) VisitorID() string  { return s.visitorID }

// FetchBusinessProfile loads the business profile for this session.
func (s *Session) FetchBusinessProfile(ctx context.Context) (*chatapi.BusinessProfile, error) {
	return s.transport.FetchBusinessProfile(ctx, s.businessID)
}

// UploadImage uploads a file for use in a later SendMessage.
func (s *Session) UploadImage(ctx context.Context, filename, contentType string, r io.Reader) (*chatapi.MediaAttachment, error) {
	return s.transport.UploadImage(ctx, filename, contentType, r)
}

// SendMessage appends the user message, then sends it. Contact info rides
// along only while no conversation id is known. On failure the user message
// stays in the transcript and the transport error is returned.
func (s *Session) SendMessage(ctx context.Context, content string, media []chatapi.MediaAttachment) (*SendResult, error) {
	if strings.TrimSpace(content) == "" && len(media) == 0 {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	s.messages = append(s.messages, Message{Role: RoleUser, Content: content, Media: cloneMedia(media)})
	if s.conversationID == "" {
		s.conversationID = s.loadConversationID(ctx)
	}
	req := chatapi.SendRequest{
		BusinessID:     s.businessID,
		VisitorID:      s.visitorID,
		Message:        content,
		ConversationID: s.conversationID,
		Media:          media,
	}
	if s.conversationID == "" {
		req.Contact = s.contact
	}
	generation := s.generation
	s.mu.Unlock()

	resp, err := s.transport.SendMessage(ctx, req)
	if err != nil {
		s.logger.Warn("chat send failed", "business_id", s.businessID, "visitor_id", s.visitorID, "error", err)
		return nil, err
	}

	s.mu.Lock()
	if s.generation == generation {
		if resp.ConversationID != "" {
			s.conversationID = resp.ConversationID
			if err := s.convs.Set(ctx, s.businessID, s.visitorID, resp.ConversationID); err != nil {
				s.logger.Warn("failed to cache conversation id", "conversation_id", resp.ConversationID, "error", err)
			}
		}
		s.messages = append(s.messages, Message{Role: RoleAssistant, Content: resp.Message})
		s.humanTakeover = resp.IsHumanTakeover
	}
	s.mu.Unlock()

	return &SendResult{
		ConversationID:  resp.ConversationID,
		Message:         resp.Message,
		IsHumanTakeover: resp.IsHumanTakeover,
		AvailableSlots:  resp.AvailableSlots,
		ShouldClose:     resp.ShouldClose,
	}, nil
}

// loadConversationID must be called with s.mu held.
func (s *Session) loadConversationID(ctx context.Context) string {
	id, ok, err := s.convs.Get(ctx, s.businessID, s.visitorID)
	if err != nil {
		s.logger.Warn("failed to load cached conversation id", "business_id", s.businessID, "visitor_id", s.visitorID, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return id
}

// SetVisitorInfo records the lead-capture contact details.
func (s *Session) SetVisitorInfo(info chatapi.ContactInfo) {
	s.mu.Lock()
	s.contact = info
	s.mu.Unlock()
}

// VisitorInfo returns the recorded contact details.
func (s *Session) VisitorInfo() chatapi.ContactInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contact
}

// ConversationID returns the id known to this session, if any.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// IsHumanTakeover reports the takeover flag of the last reply.
func (s *Session) IsHumanTakeover() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.humanTakeover
}

// Messages returns a copy of the transcript in insertion order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		m.Media = cloneMedia(m.Media)
		out[i] = m
	}
	return out
}

// RateConversation sends a rating. Without a conversation id it does
// nothing; failures are logged and dropped.
func (s *Session) RateConversation(ctx context.Context, rating, comment string) {
	id := s.ConversationID()
	if id == "" {
		return
	}
	if err := s.transport.RateConversation(ctx, id, rating, comment); err != nil {
		s.logger.Warn("rate conversation failed", "conversation_id", id, "error", err)
	}
}

// EmailTranscript asks for the transcript by email and reports success.
func (s *Session) EmailTranscript(ctx context.Context, email string) bool {
	id := s.ConversationID()
	if id == "" {
		return false
	}
	if err := s.transport.EmailTranscript(ctx, id, email); err != nil {
		s.logger.Warn("email transcript failed", "conversation_id", id, "error", err)
		return false
	}
	return true
}

// ClearConversation ends the conversation: the transcript, contact info and
// conversation id are reset and the cached id is evicted. Replies to sends
// still in flight are not recorded.
func (s *Session) ClearConversation(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	s.conversationID = ""
	s.messages = nil
	s.contact = chatapi.ContactInfo{}
	s.humanTakeover = false
	s.mu.Unlock()

	if err := s.convs.Clear(ctx, s.businessID, s.visitorID); err != nil {
		s.logger.Warn("failed to evict conversation id", "business_id", s.businessID, "visitor_id", s.visitorID, "error", err)
	}
}

func cloneMedia(media []chatapi.MediaAttachment) []chatapi.MediaAttachment {
	if len(media) == 0 {
		return nil
	}
	out := make([]chatapi.MediaAttachment, len(media))
	copy(out, media)
	return out
}
