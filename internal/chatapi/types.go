package chatapi

// BusinessProfile is the public snapshot fetched once at widget start.
type BusinessProfile struct {
	BusinessID        string            `json:"business_id"`
	Name              string            `json:"name"`
	WelcomeMessage    string            `json:"welcome_message"`
	WelcomeMessageEN  string            `json:"welcome_message_en"`
	Language          string            `json:"language"`
	WidgetSettings    WidgetSettings    `json:"widget_settings"`
	IsOnline          *bool             `json:"is_online,omitempty"`
	AwayMessage       string            `json:"away_message"`
	AwayMessageEN     string            `json:"away_message_en"`
	LeadCaptureConfig LeadCaptureConfig `json:"lead_capture_config"`
}

// Online reports whether the business accepts live chats. A missing flag
// counts as online.
func (p BusinessProfile) Online() bool {
	return p.IsOnline == nil || *p.IsOnline
}

// WidgetSettings holds theme and language preferences.
type WidgetSettings struct {
	PrimaryColor           string `json:"primary_color,omitempty"`
	Position               string `json:"position,omitempty"`
	WelcomeMessageLanguage string `json:"welcome_message_language,omitempty"`
}

// LeadCaptureConfig controls the pre-chat form.
type LeadCaptureConfig struct {
	Enabled bool        `json:"enabled"`
	Fields  []LeadField `json:"fields"`
}

// LeadField is one configurable field of the pre-chat form. Name is one of
// "name", "email" or "phone".
type LeadField struct {
	Name     string `json:"name"`
	LabelFR  string `json:"label_fr"`
	LabelEN  string `json:"label_en"`
	Required bool   `json:"required"`
	Enabled  bool   `json:"enabled"`
}

// MediaAttachment references an uploaded file.
type MediaAttachment struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// SlotOption is an appointment time offered alongside a reply.
type SlotOption struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Display string `json:"display"`
}

// ContactInfo is the visitor's one-time introduction.
type ContactInfo struct {
	Name  string
	Email string
	Phone string
}

// IsZero reports whether no contact field is set.
func (c ContactInfo) IsZero() bool {
	return c.Name == "" && c.Email == "" && c.Phone == ""
}

// SendRequest is the input to SendMessage. Contact is only put on the wire
// when ConversationID is empty.
type SendRequest struct {
	BusinessID     string
	VisitorID      string
	Message        string
	ConversationID string
	Media          []MediaAttachment
	Contact        ContactInfo
}

// SendResponse is the server reply to a chat message.
type SendResponse struct {
	ConversationID  string       `json:"conversation_id"`
	Message         string       `json:"message"`
	CreatedAt       string       `json:"created_at,omitempty"`
	IsHumanTakeover bool         `json:"is_human_takeover"`
	AvailableSlots  []SlotOption `json:"available_slots,omitempty"`
	ShouldClose     bool         `json:"should_close"`
}

// ChatPayload is the JSON body of POST /api/chat. ConversationID encodes
// as null until the server has assigned one.
type ChatPayload struct {
	BusinessID     string            `json:"business_id"`
	VisitorID      string            `json:"visitor_id"`
	Message        string            `json:"message"`
	ConversationID *string           `json:"conversation_id"`
	Media          []MediaAttachment `json:"media,omitempty"`
	VisitorName    string            `json:"visitor_name,omitempty"`
	VisitorEmail   string            `json:"visitor_email,omitempty"`
	VisitorPhone   string            `json:"visitor_phone,omitempty"`
}

// UploadResponse is the body returned by POST /api/uploads/image.
type UploadResponse struct {
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// RatePayload is the body of the rate endpoint. Rating is "positive" or
// "negative".
type RatePayload struct {
	Rating  string `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// TranscriptPayload is the body of the transcript endpoint.
type TranscriptPayload struct {
	Email string `json:"email"`
}
