package widget

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/raven-widget/internal/chat"
	"github.com/wolfman30/raven-widget/internal/chatapi"
	"github.com/wolfman30/raven-widget/pkg/logging"
)

type sentMessage struct {
	content string
	media   []chatapi.MediaAttachment
}

type fakeReply struct {
	result *chat.SendResult
	err    error
}

type fakeSession struct {
	profile    *chatapi.BusinessProfile
	profileErr error

	replies   []fakeReply
	sent      []sentMessage
	uploadErr error
	uploads   []string

	contact      chatapi.ContactInfo
	ratings      []string
	transcriptOK bool
	emails       []string
	cleared      int
}

func (f *fakeSession) FetchBusinessProfile(context.Context) (*chatapi.BusinessProfile, error) {
	return f.profile, f.profileErr
}

func (f *fakeSession) UploadImage(_ context.Context, filename, _ string, r io.Reader) (*chatapi.MediaAttachment, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	_, _ = io.ReadAll(r)
	f.uploads = append(f.uploads, filename)
	return &chatapi.MediaAttachment{Type: "image", URL: "http://api/uploads/" + filename}, nil
}

func (f *fakeSession) SendMessage(_ context.Context, content string, media []chatapi.MediaAttachment) (*chat.SendResult, error) {
	f.sent = append(f.sent, sentMessage{content: content, media: media})
	if len(f.replies) == 0 {
		return &chat.SendResult{ConversationID: "conv-1", Message: "ok"}, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.result, r.err
}

func (f *fakeSession) SetVisitorInfo(info chatapi.ContactInfo) { f.contact = info }
func (f *fakeSession) VisitorInfo() chatapi.ContactInfo      { return f.contact }

func (f *fakeSession) RateConversation(_ context.Context, rating, comment string) {
	f.ratings = append(f.ratings, rating+":"+comment)
}

func (f *fakeSession) EmailTranscript(_ context.Context, email string) bool {
	f.emails = append(f.emails, email)
	return f.transcriptOK
}

func (f *fakeSession) ClearConversation(context.Context) {
	f.cleared++
	f.contact = chatapi.ContactInfo{}
}

func boolPtr(b bool) *bool { return &b }

func newController(t *testing.T, session *fakeSession, locale string) *Controller {
	t.Helper()
	c := New(session, Options{Locale: locale, EndOverlayDelay: 5 * time.Millisecond, Logger: logging.Discard()})
	c.Run(context.Background(), c.Init())
	require.True(t, c.Ready())
	return c
}

func englishProfile() *chatapi.BusinessProfile {
	return &chatapi.BusinessProfile{
		Name:             "Glow Clinic",
		WelcomeMessage:   "Bonjour de Glow",
		WelcomeMessageEN: "Hi from Glow",
		WidgetSettings:   chatapi.WidgetSettings{PrimaryColor: "#0ea5e9", WelcomeMessageLanguage: "en"},
	}
}

// send submits text and runs the resulting command to completion.
func send(t *testing.T, c *Controller, text string) {
	t.Helper()
	c.SetInput(text)
	cmd, err := c.Submit()
	require.NoError(t, err)
	c.Run(context.Background(), cmd)
}

func messageTexts(items []Item) []string {
	var out []string
	for _, it := range items {
		if it.Kind == ItemMessage {
			out = append(out, it.Text)
		}
	}
	return out
}

func TestOpen_OfflineShowsAwayBannerBeforeWelcome(t *testing.T) {
	profile := englishProfile()
	profile.IsOnline = boolPtr(false)
	c := newController(t, &fakeSession{profile: profile}, "")

	require.NoError(t, c.Open())
	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, ItemAwayBanner, items[0].Kind)
	assert.Equal(t, T(LangEN).AwayDefault, items[0].Text)
	assert.Equal(t, ItemMessage, items[1].Kind)
	assert.Equal(t, "Hi from Glow", items[1].Text)
	assert.Len(t, c.QuickActions(), 2)
	assert.Equal(t, StateNormal, c.State())
}

func TestOpen_CustomAwayMessage(t *testing.T) {
	profile := englishProfile()
	profile.IsOnline = boolPtr(false)
	profile.AwayMessageEN = "Back Monday"
	c := newController(t, &fakeSession{profile: profile}, "")

	require.NoError(t, c.Open())
	assert.Equal(t, "Back Monday", c.Items()[0].Text)
}

func TestInit_ProfileUnavailableUsesDefaults(t *testing.T) {
	session := &fakeSession{profileErr: chatapi.ErrProfileUnavailable}

	fr := newController(t, session, "fr_CA.UTF-8")
	require.NoError(t, fr.Open())
	assert.Equal(t, []string{defaultWelcomeFR}, messageTexts(fr.Items()))
	assert.Equal(t, LangFR, fr.Lang())
	assert.Equal(t, DefaultPrimaryColor, fr.Theme().Primary)
	assert.Equal(t, PositionBottomRight, fr.Theme().Position)
	assert.Equal(t, "Chat", fr.BusinessName())

	en := newController(t, session, "en_US.UTF-8")
	require.NoError(t, en.Open())
	assert.Equal(t, LangFR, en.Lang(), "locale is ignored without a profile")
	assert.Equal(t, []string{defaultWelcomeFR}, messageTexts(en.Items()))
}

func TestOpen_BeforeInit(t *testing.T) {
	c := New(&fakeSession{}, Options{Logger: logging.Discard()})
	assert.ErrorIs(t, c.Open(), ErrNotReady)
}

func TestSend_TimeoutKeepsUserMessageAndReenables(t *testing.T) {
	session := &fakeSession{
		profile: englishProfile(),
		replies: []fakeReply{{err: chatapi.ErrTimeout}},
	}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	c.SetInput("  hello?  ")
	cmd, err := c.Submit()
	require.NoError(t, err)
	assert.True(t, c.Busy())
	assert.True(t, c.Typing())
	assert.Equal(t, "", c.Input())

	_, err = c.Submit()
	assert.ErrorIs(t, err, ErrBusy)

	c.Run(context.Background(), cmd)
	assert.False(t, c.Busy())

	items := c.Items()
	last := items[len(items)-2:]
	assert.Equal(t, chat.RoleUser, last[0].Role)
	assert.Equal(t, "hello?", last[0].Text)
	assert.False(t, last[0].Read)
	assert.Equal(t, chat.RoleAssistant, last[1].Role)
	assert.Equal(t, T(LangEN).Error, last[1].Text)
	assert.True(t, last[1].IsError)
	assert.Equal(t, []sentMessage{{content: "hello?"}}, session.sent)
}

func TestSend_SuccessMarksReadAndTracksTakeover(t *testing.T) {
	session := &fakeSession{
		profile: englishProfile(),
		replies: []fakeReply{
			{result: &chat.SendResult{Message: "A human here", IsHumanTakeover: true}},
			{result: &chat.SendResult{Message: "Bot again"}},
		},
	}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	assert.Equal(t, "AI Assistant", c.StatusLabel())
	send(t, c, "agent please")
	assert.True(t, c.HumanTakeover())
	assert.Equal(t, "Live Agent", c.StatusLabel())

	items := c.Items()
	assert.True(t, items[1].Read)
	assert.Equal(t, "A human here", items[2].Text)

	send(t, c, "thanks")
	assert.False(t, c.HumanTakeover())
}

func TestSend_EmptyIsNoop(t *testing.T) {
	session := &fakeSession{profile: englishProfile()}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	c.SetInput("   ")
	cmd, err := c.Submit()
	require.NoError(t, err)
	assert.Nil(t, cmd)
	assert.Len(t, c.Items(), 1)
}

func TestSend_RequiresOpen(t *testing.T) {
	c := newController(t, &fakeSession{profile: englishProfile()}, "")
	c.SetInput("hi")
	_, err := c.Submit()
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestSlots_SelectSendsDisplayText(t *testing.T) {
	session := &fakeSession{
		profile: englishProfile(),
		replies: []fakeReply{
			{result: &chat.SendResult{Message: "Pick one", AvailableSlots: []chatapi.SlotOption{{ID: "1", Display: "Mon 10:00"}}}},
			{result: &chat.SendResult{Message: "Booked"}},
		},
	}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	send(t, c, "book")
	slots := c.Slots()
	require.Len(t, slots, 1)
	assert.Equal(t, "Mon 10:00", slots[0].Display)

	cmd, err := c.SelectSlot(0)
	require.NoError(t, err)
	assert.Empty(t, c.Slots())
	c.Run(context.Background(), cmd)

	require.Len(t, session.sent, 2)
	assert.Equal(t, "Mon 10:00", session.sent[1].content)
	assert.Empty(t, c.Slots())

	_, err = c.SelectSlot(0)
	assert.ErrorIs(t, err, ErrNoSuchOption)
}

func TestSlots_NewSetReplacesOld(t *testing.T) {
	session := &fakeSession{
		profile: englishProfile(),
		replies: []fakeReply{
			{result: &chat.SendResult{Message: "a", AvailableSlots: []chatapi.SlotOption{{Display: "Mon"}, {Display: "Tue"}}}},
			{result: &chat.SendResult{Message: "b", AvailableSlots: []chatapi.SlotOption{{Display: "Wed"}}}},
		},
	}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	send(t, c, "one")
	require.Len(t, c.Slots(), 2)
	send(t, c, "two")
	slots := c.Slots()
	require.Len(t, slots, 1)
	assert.Equal(t, "Wed", slots[0].Display)
}

func TestShouldClose_EndOverlayThenSkipStartsFresh(t *testing.T) {
	session := &fakeSession{
		profile: englishProfile(),
		replies: []fakeReply{{result: &chat.SendResult{Message: "Goodbye!", ShouldClose: true}}},
	}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	send(t, c, "bye")
	assert.Equal(t, StateEndOfConversation, c.State())
	assert.Equal(t, "Goodbye!", c.Items()[len(c.Items())-1].Text)

	c.SetInput("more")
	_, err := c.Submit()
	assert.ErrorIs(t, err, ErrInputBlocked)

	require.NoError(t, c.Skip(context.Background()))
	assert.False(t, c.IsOpen())
	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, c.Items())
	assert.Equal(t, 1, session.cleared)

	require.NoError(t, c.Open())
	assert.Equal(t, []string{"Hi from Glow"}, messageTexts(c.Items()))
	assert.Equal(t, 1, c.MessageCount())
}

func TestShouldClose_StaleTimerDropped(t *testing.T) {
	session := &fakeSession{
		profile: englishProfile(),
		replies: []fakeReply{{result: &chat.SendResult{Message: "Goodbye!", ShouldClose: true}}},
	}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	c.SetInput("bye")
	cmd, err := c.Submit()
	require.NoError(t, err)
	timer := c.Update(context.Background(), cmd(context.Background()))
	require.NotNil(t, timer)

	require.NoError(t, c.StartNewChat(context.Background()))
	c.Run(context.Background(), timer)
	assert.Equal(t, StateNormal, c.State())
}

func TestSubmitRating_RatesThenCloses(t *testing.T) {
	session := &fakeSession{
		profile: englishProfile(),
		replies: []fakeReply{{result: &chat.SendResult{Message: "Bye", ShouldClose: true}}},
	}
	c := newController(t, session, "")
	require.NoError(t, c.Open())
	send(t, c, "bye")
	require.Equal(t, StateEndOfConversation, c.State())

	assert.ErrorIs(t, c.SelectRating("meh"), ErrNoSuchOption)
	require.NoError(t, c.SelectRating(RatingPositive))
	c.SetRatingComment("  lovely  ")

	cmd, err := c.SubmitRating(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.True(t, c.EndOverlay().Submitting)
	assert.True(t, c.IsOpen())

	c.Run(context.Background(), cmd)
	assert.Equal(t, []string{"positive:lovely"}, session.ratings)
	assert.False(t, c.IsOpen())
	assert.Empty(t, c.Items())
}

func TestSubmitRating_WithoutSelectionCloses(t *testing.T) {
	session := &fakeSession{
		profile: englishProfile(),
		replies: []fakeReply{{result: &chat.SendResult{Message: "Bye", ShouldClose: true}}},
	}
	c := newController(t, session, "")
	require.NoError(t, c.Open())
	send(t, c, "bye")

	cmd, err := c.SubmitRating(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cmd)
	assert.Empty(t, session.ratings)
	assert.False(t, c.IsOpen())
}

func TestEmailTranscript_DoesNotClose(t *testing.T) {
	profile := englishProfile()
	profile.LeadCaptureConfig = chatapi.LeadCaptureConfig{Enabled: true, Fields: []chatapi.LeadField{
		{Name: "email", LabelEN: "Email", Required: true, Enabled: true},
	}}
	session := &fakeSession{
		profile: profile,
		replies: []fakeReply{{result: &chat.SendResult{Message: "Bye", ShouldClose: true}}},
	}
	c := newController(t, session, "")
	require.NoError(t, c.Open())
	require.NoError(t, c.SubmitLeadCapture(map[string]string{"email": "ana@example.com"}))
	send(t, c, "bye")
	require.Equal(t, StateEndOfConversation, c.State())
	assert.Equal(t, "ana@example.com", c.EndOverlay().TranscriptEmail)

	cmd, err := c.EmailTranscript()
	require.NoError(t, err)
	c.Run(context.Background(), cmd)
	assert.Equal(t, "Send failed", c.EndOverlay().TranscriptStatus)

	session.transcriptOK = true
	cmd, err = c.EmailTranscript()
	require.NoError(t, err)
	c.Run(context.Background(), cmd)
	assert.Equal(t, "Email sent!", c.EndOverlay().TranscriptStatus)
	assert.True(t, c.EndOverlay().TranscriptOK)
	assert.Equal(t, StateEndOfConversation, c.State())
	assert.True(t, c.IsOpen())

	c.SetTranscriptEmail("  ")
	cmd, err = c.EmailTranscript()
	require.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestLongConversationWarning_ShownOnce(t *testing.T) {
	session := &fakeSession{profile: englishProfile()}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	for i := 0; i < 20; i++ {
		send(t, c, "message")
	}
	assert.Equal(t, 41, c.MessageCount())
	assert.True(t, c.WarningShown())

	warnings := 0
	for i, it := range c.Items() {
		if it.Kind == ItemWarning {
			warnings++
			assert.Equal(t, 15, i, "warning follows the fifteenth message")
		}
	}
	assert.Equal(t, 1, warnings)
}

func TestLongConversationWarning_ErrorsCount(t *testing.T) {
	session := &fakeSession{profile: englishProfile()}
	for i := 0; i < 7; i++ {
		session.replies = append(session.replies, fakeReply{err: chatapi.ErrNetworkFailure})
	}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	for i := 0; i < 7; i++ {
		send(t, c, "x")
	}
	assert.Equal(t, 15, c.MessageCount())
	assert.True(t, c.WarningShown())
}

func TestQuickActions(t *testing.T) {
	session := &fakeSession{profile: englishProfile()}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	actions := c.QuickActions()
	require.Len(t, actions, 2)
	assert.Equal(t, "Book Appointment", actions[1].Label)

	cmd, err := c.UseQuickAction(1)
	require.NoError(t, err)
	assert.Empty(t, c.QuickActions())
	c.Run(context.Background(), cmd)
	assert.Equal(t, "I would like to book an appointment", session.sent[0].content)

	_, err = c.UseQuickAction(0)
	assert.ErrorIs(t, err, ErrNoSuchOption)
}

func TestQuickActions_RemovedByManualSend(t *testing.T) {
	c := newController(t, &fakeSession{profile: englishProfile()}, "")
	require.NoError(t, c.Open())
	send(t, c, "hi")
	assert.Empty(t, c.QuickActions())
}

func TestQuickActions_French(t *testing.T) {
	profile := englishProfile()
	profile.WidgetSettings.WelcomeMessageLanguage = "fr"
	c := newController(t, &fakeSession{profile: profile}, "en_US")
	require.NoError(t, c.Open())
	assert.Equal(t, "Prendre RDV", c.QuickActions()[1].Label)
	assert.Equal(t, "Bonjour de Glow", c.Items()[0].Text)
}

func TestStartNewChat(t *testing.T) {
	profile := englishProfile()
	profile.IsOnline = boolPtr(false)
	session := &fakeSession{
		profile: profile,
		replies: []fakeReply{{result: &chat.SendResult{Message: "human", IsHumanTakeover: true, AvailableSlots: []chatapi.SlotOption{{Display: "Fri"}}}}},
	}
	c := newController(t, session, "")

	assert.ErrorIs(t, c.StartNewChat(context.Background()), ErrNotOpen)
	require.NoError(t, c.Open())
	send(t, c, "hi")
	require.True(t, c.HumanTakeover())

	require.NoError(t, c.StartNewChat(context.Background()))
	assert.True(t, c.IsOpen())
	assert.Equal(t, StateNormal, c.State())
	assert.False(t, c.HumanTakeover())
	assert.Empty(t, c.Slots())
	assert.Len(t, c.QuickActions(), 2)
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Hi from Glow", items[0].Text)
	assert.Equal(t, 1, session.cleared)
}

func TestStartNewChat_DropsInFlightReply(t *testing.T) {
	session := &fakeSession{profile: englishProfile()}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	c.SetInput("slow")
	cmd, err := c.Submit()
	require.NoError(t, err)
	require.NoError(t, c.StartNewChat(context.Background()))
	assert.False(t, c.Busy())

	c.Run(context.Background(), cmd)
	assert.Equal(t, []string{"Hi from Glow"}, messageTexts(c.Items()))
}

func leadProfile() *chatapi.BusinessProfile {
	profile := englishProfile()
	profile.LeadCaptureConfig = chatapi.LeadCaptureConfig{
		Enabled: true,
		Fields: []chatapi.LeadField{
			{Name: "name", LabelEN: "Name", LabelFR: "Nom", Required: true, Enabled: true},
			{Name: "email", LabelEN: "Email", LabelFR: "Courriel", Required: false, Enabled: true},
			{Name: "phone", LabelEN: "Phone", LabelFR: "Téléphone", Required: true, Enabled: false},
		},
	}
	return profile
}

func TestLeadCapture_GatesInput(t *testing.T) {
	session := &fakeSession{profile: leadProfile()}
	c := newController(t, session, "")
	require.NoError(t, c.Open())
	assert.Equal(t, StateLeadCapture, c.State())
	assert.Equal(t, "Please introduce yourself to start chatting", c.LeadPrompt())

	fields := c.LeadFields()
	require.Len(t, fields, 2)
	assert.Equal(t, "email", fields[1].InputType)

	c.SetInput("hi")
	_, err := c.Submit()
	assert.ErrorIs(t, err, ErrInputBlocked)
	assert.ErrorIs(t, c.InsertEmoji(0), ErrInputBlocked)

	err = c.SubmitLeadCapture(map[string]string{"email": "ana@example.com"})
	assert.ErrorIs(t, err, ErrLeadFieldRequired)
	err = c.SubmitLeadCapture(map[string]string{"name": "Ana", "email": "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	assert.Equal(t, StateLeadCapture, c.State())

	require.NoError(t, c.SubmitLeadCapture(map[string]string{"name": " Ana ", "email": "ana@example.com", "phone": "555"}))
	assert.Equal(t, StateNormal, c.State())
	assert.Equal(t, chatapi.ContactInfo{Name: "Ana", Email: "ana@example.com"}, session.contact)

	assert.ErrorIs(t, c.SubmitLeadCapture(nil), ErrNoOverlay)
}

func TestLeadCapture_NotRepeatedAfterNewChatButAfterClose(t *testing.T) {
	c := newController(t, &fakeSession{profile: leadProfile()}, "")
	require.NoError(t, c.Open())
	require.NoError(t, c.SubmitLeadCapture(map[string]string{"name": "Ana"}))

	require.NoError(t, c.StartNewChat(context.Background()))
	assert.Equal(t, StateNormal, c.State())

	c.Close(context.Background())
	require.NoError(t, c.Open())
	assert.Equal(t, StateLeadCapture, c.State())

	require.NoError(t, c.StartNewChat(context.Background()))
	assert.Equal(t, StateLeadCapture, c.State())
}

func TestAttachImage(t *testing.T) {
	session := &fakeSession{profile: englishProfile()}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	err := c.AttachImage("notes.pdf", "application/pdf", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidAttachment)
	assert.Equal(t, "Please select an image file", c.Alert())
	c.SetInput("blocked")
	_, err = c.Submit()
	assert.ErrorIs(t, err, ErrInputBlocked)
	c.DismissAlert()
	c.SetInput("")

	err = c.AttachImage("big.png", "image/png", make([]byte, MaxImageBytes+1))
	assert.ErrorIs(t, err, ErrInvalidAttachment)
	assert.Equal(t, "Image too large. Max size: 10MB", c.Alert())
	c.DismissAlert()

	require.NoError(t, c.AttachImage("Screen Shot 2024.png", "image/png", []byte("png")))
	require.NotNil(t, c.PendingImage())
	assert.Equal(t, "Screenshot", c.PendingImage().Label)

	cmd, err := c.Submit()
	require.NoError(t, err)
	c.Run(context.Background(), cmd)

	require.Len(t, session.sent, 1)
	assert.Equal(t, "📷 Image", session.sent[0].content)
	require.Len(t, session.sent[0].media, 1)
	assert.Equal(t, "http://api/uploads/Screen Shot 2024.png", session.sent[0].media[0].URL)
	assert.Nil(t, c.PendingImage())

	user := c.Items()[1]
	assert.Equal(t, "📷", user.Text)
	require.Len(t, user.Media, 1)
	assert.Equal(t, "Screen Shot 2024.png", user.Media[0].Filename)
}

func TestAttachImage_UploadFailureAlertsWithoutSending(t *testing.T) {
	session := &fakeSession{profile: englishProfile(), uploadErr: chatapi.ErrUploadFailed}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	require.NoError(t, c.AttachImage("cat.jpg", "image/jpeg", []byte("jpg")))
	assert.Equal(t, "Image", c.PendingImage().Label)
	send(t, c, "look")

	assert.Empty(t, session.sent)
	assert.Equal(t, "Image upload failed", c.Alert())
	assert.NotNil(t, c.PendingImage())
	assert.False(t, c.Busy())
	assert.Equal(t, []string{"Hi from Glow"}, messageTexts(c.Items()))
	assert.Equal(t, 1, c.MessageCount())
	assert.Equal(t, "look", c.Input())

	c.DismissAlert()
	session.uploadErr = nil
	send(t, c, c.Input())

	require.Len(t, session.sent, 1)
	assert.Equal(t, []string{"Hi from Glow", "look", "ok"}, messageTexts(c.Items()))
	assert.Equal(t, 3, c.MessageCount())
	assert.Nil(t, c.PendingImage())
}

func TestAttachImage_UploadFailureWithdrawsLongConversationWarning(t *testing.T) {
	session := &fakeSession{profile: englishProfile(), uploadErr: chatapi.ErrUploadFailed}
	c := newController(t, session, "")
	require.NoError(t, c.Open())
	c.messageCount = LongConversationThreshold - 1

	require.NoError(t, c.AttachImage("cat.jpg", "image/jpeg", []byte("jpg")))
	send(t, c, "look")

	assert.False(t, c.WarningShown())
	assert.Equal(t, LongConversationThreshold-1, c.MessageCount())
	for _, it := range c.Items() {
		assert.NotEqual(t, ItemWarning, it.Kind)
	}

	c.DismissAlert()
	session.uploadErr = nil
	send(t, c, c.Input())
	assert.True(t, c.WarningShown())
}

func TestAttachImage_RemoveAfterFailedUpload(t *testing.T) {
	session := &fakeSession{profile: englishProfile(), uploadErr: chatapi.ErrUploadFailed}
	c := newController(t, session, "")
	require.NoError(t, c.Open())

	require.NoError(t, c.AttachImage("cat.jpg", "image/jpeg", []byte("jpg")))
	send(t, c, "look")
	c.RemoveImage()
	assert.Nil(t, c.PendingImage())
}

func TestInsertEmoji(t *testing.T) {
	c := newController(t, &fakeSession{profile: englishProfile()}, "")
	require.NoError(t, c.Open())
	c.SetInput("Thanks ")
	require.NoError(t, c.InsertEmoji(3))
	assert.Equal(t, "Thanks 👍", c.Input())
	assert.ErrorIs(t, c.InsertEmoji(len(Emojis)), ErrNoSuchOption)
	assert.Len(t, Emojis, 24)
}

func TestToggle(t *testing.T) {
	session := &fakeSession{profile: englishProfile()}
	c := newController(t, session, "")
	require.NoError(t, c.Toggle(context.Background()))
	assert.True(t, c.IsOpen())
	send(t, c, "hi")
	require.NoError(t, c.Toggle(context.Background()))
	assert.False(t, c.IsOpen())
	assert.Empty(t, c.Items())
	assert.Equal(t, 0, c.MessageCount())
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("a@b.co"))
	for _, bad := range []string{"", "plain", "Ana <a@b.co>", "a@"} {
		if err := ValidateEmail(bad); !errors.Is(err, ErrInvalidEmail) {
			t.Fatalf("ValidateEmail(%q) = %v, want ErrInvalidEmail", bad, err)
		}
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "lead_capture", StateLeadCapture.String())
	assert.True(t, strings.HasPrefix(State(42).String(), "state("))
}
