// Package widget is the chat widget's state machine. A Controller owns all
// widget state; it is driven from a single goroutine and hands blocking work
// back to its runner as Cmds whose results return through Update.
package widget

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/wolfman30/raven-widget/internal/chat"
	"github.com/wolfman30/raven-widget/internal/chatapi"
	"github.com/wolfman30/raven-widget/internal/observability/metrics"
	"github.com/wolfman30/raven-widget/pkg/logging"
)

const (
	// LongConversationThreshold is the message count that triggers the
	// one-time warning banner.
	LongConversationThreshold = 15

	defaultEndOverlayDelay = 1500 * time.Millisecond

	imageOnlyDisplay = "📷"
	imageOnlyMessage = "📷 Image"
)

// State is the top-level overlay of the widget.
type State int

const (
	StateIdle State = iota
	StateLeadCapture
	StateNormal
	StateEndOfConversation
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLeadCapture:
		return "lead_capture"
	case StateNormal:
		return "normal"
	case StateEndOfConversation:
		return "end_of_conversation"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ItemKind distinguishes entries of the message list.
type ItemKind int

const (
	ItemMessage ItemKind = iota
	ItemAwayBanner
	ItemWarning
)

// Item is one rendered entry of the message list.
type Item struct {
	Kind    ItemKind
	Role    chat.Role
	Text    string
	Media   []chatapi.MediaAttachment
	Read    bool
	IsError bool
}

// Rating values accepted by the end-of-conversation overlay.
const (
	RatingPositive = "positive"
	RatingNegative = "negative"
)

// EndOverlay is the state of the rating and transcript controls.
type EndOverlay struct {
	Rating          string
	Comment         string
	TranscriptEmail string
	// TranscriptStatus is empty until a transcript request completes.
	TranscriptStatus string
	TranscriptOK     bool
	Submitting       bool
}

// LeadField is a lead-capture input as shown to the visitor.
type LeadField struct {
	Name      string
	Label     string
	Required  bool
	InputType string
}

// Session is what the controller needs from a chat session.
type Session interface {
	FetchBusinessProfile(ctx context.Context) (*chatapi.BusinessProfile, error)
	UploadImage(ctx context.Context, filename, contentType string, r io.Reader) (*chatapi.MediaAttachment, error)
	SendMessage(ctx context.Context, content string, media []chatapi.MediaAttachment) (*chat.SendResult, error)
	SetVisitorInfo(info chatapi.ContactInfo)
	VisitorInfo() chatapi.ContactInfo
	RateConversation(ctx context.Context, rating, comment string)
	EmailTranscript(ctx context.Context, email string) bool
	ClearConversation(ctx context.Context)
}

var _ Session = (*chat.Session)(nil)

// Msg is the result of a Cmd, fed back through Update.
type Msg any

// Cmd is blocking work the runner executes off the owning goroutine.
type Cmd func(ctx context.Context) Msg

type profileMsg struct {
	profile *chatapi.BusinessProfile
	err     error
}

type sendDoneMsg struct {
	epoch     uint64
	userIndex int
	draft     string
	warned    bool
	uploaded  bool
	uploadErr error
	result    *chat.SendResult
	err       error
}

type endOverlayMsg struct{ epoch uint64 }

type rateDoneMsg struct{ epoch uint64 }

type transcriptDoneMsg struct {
	epoch uint64
	ok    bool
}

// Options configures a Controller.
type Options struct {
	// Locale is the environment locale used when the language is "auto".
	Locale          string
	EndOverlayDelay time.Duration
	Logger          *logging.Logger
	Metrics         *metrics.WidgetMetrics
}

// Controller is the widget state machine. It is not safe for concurrent use.
type Controller struct {
	session  Session
	logger   *logging.Logger
	metrics  *metrics.WidgetMetrics
	locale   string
	endDelay time.Duration

	ready        bool
	businessName string
	welcomeFR    string
	welcomeEN    string
	awayFR       string
	awayEN       string
	online       bool
	leadConfig   chatapi.LeadCaptureConfig
	lang         Lang
	theme        Theme

	open  bool
	state State
	epoch uint64

	items             []Item
	messageCount      int
	warningShown      bool
	quickActions      []QuickAction
	quickActionsShown bool
	slots             []chatapi.SlotOption
	busy              bool
	humanTakeover     bool
	leadCompleted     bool
	input             string
	pending           *PendingImage
	alert             string
	end               EndOverlay
}

// New builds a closed controller. Call Init and feed its result to Update
// before opening.
func New(session Session, opts Options) *Controller {
	if session == nil {
		panic("widget: session required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	delay := opts.EndOverlayDelay
	if delay <= 0 {
		delay = defaultEndOverlayDelay
	}
	return &Controller{
		session:  session,
		logger:   logger,
		metrics:  opts.Metrics,
		locale:   opts.Locale,
		endDelay: delay,
		lang:     LangFR,
		online:   true,
		state:    StateIdle,
	}
}

// Init returns the profile fetch.
func (c *Controller) Init() Cmd {
	return func(ctx context.Context) Msg {
		profile, err := c.session.FetchBusinessProfile(ctx)
		return profileMsg{profile: profile, err: err}
	}
}

// Run executes cmd and every follow-up synchronously on the calling
// goroutine.
func (c *Controller) Run(ctx context.Context, cmd Cmd) {
	for cmd != nil {
		cmd = c.Update(ctx, cmd(ctx))
	}
}

// Update applies the result of a Cmd and may return a follow-up Cmd.
// Results from before the last reset are dropped.
func (c *Controller) Update(ctx context.Context, msg Msg) Cmd {
	switch msg := msg.(type) {
	case profileMsg:
		if msg.err != nil {
			c.logger.Warn("failed to load business profile, using defaults", "error", msg.err)
		}
		c.applyProfile(msg.profile)
	case sendDoneMsg:
		if msg.epoch != c.epoch {
			return nil
		}
		return c.finishSend(msg)
	case endOverlayMsg:
		if msg.epoch != c.epoch || !c.open {
			return nil
		}
		c.showEndOverlay()
	case rateDoneMsg:
		if msg.epoch != c.epoch {
			return nil
		}
		c.Close(ctx)
	case transcriptDoneMsg:
		if msg.epoch != c.epoch || c.state != StateEndOfConversation {
			return nil
		}
		s := T(c.lang)
		c.end.TranscriptOK = msg.ok
		if msg.ok {
			c.end.TranscriptStatus = s.TranscriptSent
		} else {
			c.end.TranscriptStatus = s.TranscriptError
		}
	}
	return nil
}

func (c *Controller) applyProfile(p *chatapi.BusinessProfile) {
	settings := chatapi.WidgetSettings{WelcomeMessageLanguage: "auto"}
	c.businessName = "Chat"
	c.welcomeFR = defaultWelcomeFR
	c.welcomeEN = defaultWelcomeEN
	c.online = true

	if p != nil {
		if p.Name != "" {
			c.businessName = p.Name
		}
		if p.WelcomeMessage != "" {
			c.welcomeFR = p.WelcomeMessage
			c.welcomeEN = p.WelcomeMessage
		}
		if p.WelcomeMessageEN != "" {
			c.welcomeEN = p.WelcomeMessageEN
		}
		c.awayFR = p.AwayMessage
		c.awayEN = p.AwayMessageEN
		c.online = p.Online()
		c.leadConfig = p.LeadCaptureConfig
		settings.PrimaryColor = p.WidgetSettings.PrimaryColor
		settings.Position = p.WidgetSettings.Position
		if p.WidgetSettings.WelcomeMessageLanguage != "" {
			settings.WelcomeMessageLanguage = p.WidgetSettings.WelcomeMessageLanguage
		}
	}

	// Without a profile the widget stays French; the locale is consulted only
	// for a profile that asks for "auto".
	c.lang = LangFR
	if p != nil {
		c.lang = ResolveLanguage(settings.WelcomeMessageLanguage, c.locale)
	}
	c.theme = ResolveTheme(settings)
	c.ready = true
	c.logger.Debug("widget initialized", "language", string(c.lang), "online", c.online, "lead_capture", c.leadConfig.Enabled)
}

// Open shows the widget. An empty message list is greeted first, and lead
// capture blocks the input until submitted when the business enables it.
func (c *Controller) Open() error {
	if !c.ready {
		return ErrNotReady
	}
	if c.open {
		return nil
	}
	c.open = true
	if len(c.items) == 0 {
		c.greet(true)
	}
	if c.leadConfig.Enabled && !c.leadCompleted {
		c.state = StateLeadCapture
		c.metrics.ObserveOverlay("lead_capture")
	} else {
		c.state = StateNormal
	}
	return nil
}

// Close hides the widget and ends the conversation. Reopening always starts
// a new conversation.
func (c *Controller) Close(ctx context.Context) {
	c.open = false
	c.state = StateIdle
	c.reset(ctx)
	c.leadCompleted = false
	c.input = ""
	c.pending = nil
	c.alert = ""
}

// Toggle opens a closed widget and closes an open one.
func (c *Controller) Toggle(ctx context.Context) error {
	if c.open {
		c.Close(ctx)
		return nil
	}
	return c.Open()
}

// StartNewChat ends the conversation without closing the widget and greets
// again. An unanswered lead-capture form stays in place.
func (c *Controller) StartNewChat(ctx context.Context) error {
	if !c.open {
		return ErrNotOpen
	}
	c.reset(ctx)
	// leadCompleted survives a new chat, so only an unanswered form remains.
	if c.state != StateLeadCapture {
		c.state = StateNormal
	}
	c.greet(false)
	return nil
}

func (c *Controller) reset(ctx context.Context) {
	c.epoch++
	c.session.ClearConversation(ctx)
	c.items = nil
	c.messageCount = 0
	c.warningShown = false
	c.quickActions = nil
	c.quickActionsShown = false
	c.slots = nil
	c.busy = false
	c.humanTakeover = false
	c.end = EndOverlay{}
}

func (c *Controller) greet(withAway bool) {
	if withAway && !c.online {
		c.items = append(c.items, Item{Kind: ItemAwayBanner, Text: c.awayMessage()})
		c.metrics.ObserveOverlay("away_banner")
	}
	c.addMessage(chat.RoleAssistant, c.welcome(), nil, false)
	c.showQuickActions()
}

func (c *Controller) welcome() string {
	if c.lang == LangEN {
		return c.welcomeEN
	}
	return c.welcomeFR
}

func (c *Controller) awayMessage() string {
	msg := c.awayFR
	if c.lang == LangEN {
		msg = c.awayEN
	}
	if msg == "" {
		msg = T(c.lang).AwayDefault
	}
	return msg
}

func (c *Controller) showQuickActions() {
	if c.quickActionsShown {
		return
	}
	c.quickActions = QuickActions(c.lang)
	c.quickActionsShown = true
	c.metrics.ObserveOverlay("quick_actions")
}

// addMessage appends a message and returns its index in the item list.
func (c *Controller) addMessage(role chat.Role, text string, media []chatapi.MediaAttachment, isErr bool) int {
	c.items = append(c.items, Item{Kind: ItemMessage, Role: role, Text: text, Media: media, IsError: isErr})
	idx := len(c.items) - 1
	c.messageCount++
	if c.messageCount >= LongConversationThreshold && !c.warningShown {
		c.items = append(c.items, Item{Kind: ItemWarning, Text: T(c.lang).LongConversation})
		c.warningShown = true
		c.metrics.ObserveOverlay("long_conversation_warning")
	}
	return idx
}

func (c *Controller) checkInput() error {
	if !c.open {
		return ErrNotOpen
	}
	if c.state != StateNormal || c.alert != "" {
		return ErrInputBlocked
	}
	if c.busy {
		return ErrBusy
	}
	return nil
}

// SetInput replaces the draft text.
func (c *Controller) SetInput(text string) {
	c.input = text
}

// Submit sends the draft text and any pending image. With neither it does
// nothing. The returned Cmd uploads the image, then sends.
func (c *Controller) Submit() (Cmd, error) {
	if err := c.checkInput(); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(c.input)
	pending := c.pending
	if content == "" && pending == nil {
		return nil, nil
	}
	c.input = ""
	c.quickActions = nil

	display := content
	var displayMedia []chatapi.MediaAttachment
	if pending != nil {
		if display == "" {
			display = imageOnlyDisplay
		}
		displayMedia = []chatapi.MediaAttachment{{
			Type:        "image",
			URL:         "local://" + pending.Filename,
			Filename:    pending.Filename,
			ContentType: pending.ContentType,
		}}
	}
	warned := c.warningShown
	userIndex := c.addMessage(chat.RoleUser, display, displayMedia, false)
	c.busy = true

	text := content
	if text == "" {
		text = imageOnlyMessage
	}
	epoch := c.epoch
	session := c.session
	return func(ctx context.Context) Msg {
		var media []chatapi.MediaAttachment
		if pending != nil {
			uploaded, err := session.UploadImage(ctx, pending.Filename, pending.ContentType, bytes.NewReader(pending.Data))
			if err != nil {
				return sendDoneMsg{epoch: epoch, userIndex: userIndex, draft: content, warned: warned, uploadErr: err}
			}
			media = []chatapi.MediaAttachment{*uploaded}
		}
		result, err := session.SendMessage(ctx, text, media)
		return sendDoneMsg{epoch: epoch, userIndex: userIndex, uploaded: pending != nil, result: result, err: err}
	}, nil
}

func (c *Controller) finishSend(msg sendDoneMsg) Cmd {
	c.busy = false
	s := T(c.lang)

	if msg.uploadErr != nil {
		c.logger.Warn("image upload failed", "error", msg.uploadErr)
		c.alert = s.UploadFailed
		c.unsend(msg)
		return nil
	}
	if msg.uploaded {
		c.pending = nil
	}
	if msg.err != nil {
		c.logger.Warn("failed to send message", "error", msg.err)
		c.addMessage(chat.RoleAssistant, s.Error, nil, true)
		return nil
	}

	res := msg.result
	if msg.userIndex >= 0 && msg.userIndex < len(c.items) {
		c.items[msg.userIndex].Read = true
	}
	c.humanTakeover = res.IsHumanTakeover
	c.addMessage(chat.RoleAssistant, res.Message, nil, false)
	if len(res.AvailableSlots) > 0 {
		c.slots = append([]chatapi.SlotOption(nil), res.AvailableSlots...)
		c.metrics.ObserveOverlay("slots")
	}
	if res.ShouldClose {
		epoch, delay := c.epoch, c.endDelay
		return func(ctx context.Context) Msg {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return nil
			case <-timer.C:
				return endOverlayMsg{epoch: epoch}
			}
		}
	}
	return nil
}

// unsend withdraws the user message of a send whose upload failed, so
// nothing reached the server, and puts its text back in the draft.
func (c *Controller) unsend(msg sendDoneMsg) {
	if msg.userIndex < 0 || msg.userIndex >= len(c.items) {
		return
	}
	end := msg.userIndex + 1
	if !msg.warned && c.warningShown && end < len(c.items) && c.items[end].Kind == ItemWarning {
		end++
		c.warningShown = false
	}
	c.items = append(c.items[:msg.userIndex], c.items[end:]...)
	c.messageCount--
	if c.input == "" {
		c.input = msg.draft
	}
}

func (c *Controller) showEndOverlay() {
	c.state = StateEndOfConversation
	c.end = EndOverlay{TranscriptEmail: c.session.VisitorInfo().Email}
	c.metrics.ObserveOverlay("end_of_conversation")
}

// UseQuickAction sends the i-th quick action and removes the suggestions.
func (c *Controller) UseQuickAction(i int) (Cmd, error) {
	if err := c.checkInput(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(c.quickActions) {
		return nil, ErrNoSuchOption
	}
	c.input = c.quickActions[i].Message
	c.quickActions = nil
	return c.Submit()
}

// SelectSlot sends the display text of the i-th offered slot and discards
// the slot set.
func (c *Controller) SelectSlot(i int) (Cmd, error) {
	if err := c.checkInput(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(c.slots) {
		return nil, ErrNoSuchOption
	}
	c.input = c.slots[i].Display
	c.slots = nil
	return c.Submit()
}

// InsertEmoji appends the i-th palette emoji to the draft.
func (c *Controller) InsertEmoji(i int) error {
	if err := c.checkInput(); err != nil {
		return err
	}
	if i < 0 || i >= len(Emojis) {
		return ErrNoSuchOption
	}
	c.input += Emojis[i]
	return nil
}

// AttachImage stages an image for the next send. Non-images and files over
// MaxImageBytes raise an alert and are rejected.
func (c *Controller) AttachImage(filename, contentType string, data []byte) error {
	if err := c.checkInput(); err != nil {
		return err
	}
	s := T(c.lang)
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		c.alert = s.InvalidFileType
		return fmt.Errorf("%w: content type %q", ErrInvalidAttachment, contentType)
	}
	if len(data) > MaxImageBytes {
		c.alert = s.FileTooLarge
		return fmt.Errorf("%w: %d bytes", ErrInvalidAttachment, len(data))
	}
	c.pending = &PendingImage{
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
		Label:       previewLabel(filename),
	}
	return nil
}

// RemoveImage drops the staged image.
func (c *Controller) RemoveImage() {
	if !c.busy {
		c.pending = nil
	}
}

// DismissAlert clears the blocking alert.
func (c *Controller) DismissAlert() {
	c.alert = ""
}

// LeadFields lists the enabled lead-capture inputs.
func (c *Controller) LeadFields() []LeadField {
	var fields []LeadField
	for _, f := range c.leadConfig.Fields {
		if !f.Enabled {
			continue
		}
		label := f.LabelFR
		if c.lang == LangEN {
			label = f.LabelEN
		}
		inputType := "text"
		switch f.Name {
		case "email":
			inputType = "email"
		case "phone":
			inputType = "tel"
		}
		fields = append(fields, LeadField{Name: f.Name, Label: label, Required: f.Required, InputType: inputType})
	}
	return fields
}

// SubmitLeadCapture records the visitor's introduction and unblocks input.
// values is keyed by field name.
func (c *Controller) SubmitLeadCapture(values map[string]string) error {
	if !c.open {
		return ErrNotOpen
	}
	if c.state != StateLeadCapture {
		return ErrNoOverlay
	}
	var info chatapi.ContactInfo
	for _, f := range c.LeadFields() {
		v := strings.TrimSpace(values[f.Name])
		if v == "" {
			if f.Required {
				return fmt.Errorf("%w: %s", ErrLeadFieldRequired, f.Name)
			}
			continue
		}
		switch f.Name {
		case "name":
			info.Name = v
		case "email":
			if err := ValidateEmail(v); err != nil {
				return err
			}
			info.Email = v
		case "phone":
			info.Phone = v
		}
	}
	c.session.SetVisitorInfo(info)
	c.leadCompleted = true
	c.state = StateNormal
	return nil
}

// ValidateEmail accepts a bare address such as "ana@example.com".
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

// SelectRating picks RatingPositive or RatingNegative.
func (c *Controller) SelectRating(rating string) error {
	if c.state != StateEndOfConversation {
		return ErrNoOverlay
	}
	if rating != RatingPositive && rating != RatingNegative {
		return ErrNoSuchOption
	}
	c.end.Rating = rating
	return nil
}

// SetRatingComment sets the optional rating comment.
func (c *Controller) SetRatingComment(comment string) {
	c.end.Comment = comment
}

// SetTranscriptEmail sets the transcript recipient.
func (c *Controller) SetTranscriptEmail(email string) {
	c.end.TranscriptEmail = email
}

// SubmitRating sends the selected rating, then closes the widget. Without a
// rating it closes at once and returns no Cmd.
func (c *Controller) SubmitRating(ctx context.Context) (Cmd, error) {
	if c.state != StateEndOfConversation {
		return nil, ErrNoOverlay
	}
	if c.end.Submitting {
		return nil, ErrBusy
	}
	if c.end.Rating == "" {
		c.Close(ctx)
		return nil, nil
	}
	c.end.Submitting = true
	epoch, rating, comment := c.epoch, c.end.Rating, strings.TrimSpace(c.end.Comment)
	session := c.session
	return func(ctx context.Context) Msg {
		session.RateConversation(ctx, rating, comment)
		return rateDoneMsg{epoch: epoch}
	}, nil
}

// Skip dismisses the end-of-conversation overlay and closes the widget.
func (c *Controller) Skip(ctx context.Context) error {
	if c.state != StateEndOfConversation {
		return ErrNoOverlay
	}
	c.Close(ctx)
	return nil
}

// EmailTranscript requests the transcript for the entered address. It does
// not close anything; an empty address is ignored.
func (c *Controller) EmailTranscript() (Cmd, error) {
	if c.state != StateEndOfConversation {
		return nil, ErrNoOverlay
	}
	email := strings.TrimSpace(c.end.TranscriptEmail)
	if email == "" {
		return nil, nil
	}
	epoch := c.epoch
	session := c.session
	return func(ctx context.Context) Msg {
		return transcriptDoneMsg{epoch: epoch, ok: session.EmailTranscript(ctx, email)}
	}, nil
}

func (c *Controller) Ready() bool { return c.ready }
func (c *Controller) IsOpen() bool { return c.open }
func (c *Controller) State() State { return c.state }
func (c *Controller) Lang() Lang { return c.lang }
func (c *Controller) Strings() Strings { return T(c.lang) }
func (c *Controller) Theme() Theme { return c.theme }
func (c *Controller) BusinessName() string { return c.businessName }
func (c *Controller) Online() bool { return c.online }
func (c *Controller) Input() string { return c.input }
func (c *Controller) Busy() bool { return c.busy }
func (c *Controller) Alert() string { return c.alert }
func (c *Controller) MessageCount() int { return c.messageCount }
func (c *Controller) WarningShown() bool { return c.warningShown }
func (c *Controller) HumanTakeover() bool { return c.humanTakeover }
func (c *Controller) EndOverlay() EndOverlay { return c.end }

// Typing reports whether the typing indicator is shown.
func (c *Controller) Typing() bool { return c.busy }

// StatusLabel is the agent status text: live agent during a takeover,
// assistant otherwise.
func (c *Controller) StatusLabel() string {
	if c.humanTakeover {
		return T(c.lang).HumanAgent
	}
	return T(c.lang).AIAssistant
}

// LeadPrompt is the heading of the lead-capture form.
func (c *Controller) LeadPrompt() string { return T(c.lang).LeadPrompt }

// Items returns a copy of the message list.
func (c *Controller) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// QuickActions returns the visible suggestions.
func (c *Controller) QuickActions() []QuickAction {
	return append([]QuickAction(nil), c.quickActions...)
}

// Slots returns the visible slot options.
func (c *Controller) Slots() []chatapi.SlotOption {
	return append([]chatapi.SlotOption(nil), c.slots...)
}

// PendingImage returns the staged image, if any.
func (c *Controller) PendingImage() *PendingImage {
	if c.pending == nil {
		return nil
	}
	p := *c.pending
	return &p
}
