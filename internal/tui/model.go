package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bspinner "github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/wolfman30/raven-widget/internal/chat"
	"github.com/wolfman30/raven-widget/internal/chatapi"
	"github.com/wolfman30/raven-widget/internal/widget"
)

type focus int

const (
	focusInput focus = iota
	focusChips
	focusAttach
)

// End overlay controls, cycled with tab.
const (
	endRating = iota
	endComment
	endEmail
	endControls
)

// widgetMsg carries a widget Cmd result through the bubbletea loop.
type widgetMsg struct{ msg widget.Msg }

type chip struct {
	label string
	quick int
	slot  int
	emoji int
}

// Model renders a widget.Controller as a terminal chat window.
type Model struct {
	ctx    context.Context
	ctrl   *widget.Controller
	styles styles

	input    textinput.Model
	comment  textinput.Model
	email    textinput.Model
	viewport viewport.Model
	spinner  bspinner.Model

	form       *huh.Form
	leadValues map[string]*string

	focus    focus
	chip     int
	endFocus int
	status   string

	width  int
	height int
}

// NewModel wraps ctrl. ctx bounds every request the model issues.
func NewModel(ctx context.Context, ctrl *widget.Controller) Model {
	in := textinput.New()
	in.CharLimit = 2000
	in.Focus()

	comment := textinput.New()
	comment.CharLimit = 500
	email := textinput.New()
	email.CharLimit = 254

	sp := bspinner.New()
	sp.Spinner = bspinner.Line

	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		styles:   newStyles(ctrl.Theme()),
		input:    in,
		comment:  comment,
		email:    email,
		viewport: viewport.New(80, 16),
		spinner:  sp,
		width:    80,
		height:   24,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.run(m.ctrl.Init()))
}

func (m Model) run(cmd widget.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return widgetMsg{msg: cmd(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case widgetMsg:
		wasEnd := m.ctrl.State() == widget.StateEndOfConversation
		next := m.ctrl.Update(m.ctx, msg.msg)
		if !wasEnd && m.ctrl.State() == widget.StateEndOfConversation {
			m.enterEndOverlay()
		}
		if !m.ctrl.IsOpen() {
			m.reset()
		}
		m.styles = newStyles(m.ctrl.Theme())
		m.refresh()
		return m, m.run(next)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(10, msg.Width-6)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(4, msg.Height-10)
		m.refresh()
		return m, nil
	case bspinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if key.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if !m.ctrl.IsOpen() {
		return m.updateClosed(key)
	}
	if m.ctrl.Alert() != "" {
		m.ctrl.DismissAlert()
		return m, nil
	}
	if m.ctrl.State() == widget.StateEndOfConversation {
		return m.updateEnd(key)
	}
	return m.updateChat(key)
}

func (m Model) updateClosed(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q":
		return m, tea.Quit
	case "enter", "o":
		if err := m.ctrl.Open(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = ""
		m.refresh()
		return m, m.startLeadCapture()
	}
	return m, nil
}

func (m Model) updateChat(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch key.String() {
	case "esc":
		if m.focus == focusAttach {
			m.focus = focusInput
			m.input.SetValue(m.ctrl.Input())
			return m, nil
		}
		m.ctrl.Close(m.ctx)
		m.reset()
		return m, nil
	case "ctrl+n":
		if err := m.ctrl.StartNewChat(m.ctx); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.reset()
		m.refresh()
		return m, m.startLeadCapture()
	case "ctrl+x":
		m.ctrl.RemoveImage()
		return m, nil
	case "ctrl+o":
		m.ctrl.SetInput(m.input.Value())
		m.focus = focusAttach
		m.input.SetValue("")
		return m, nil
	case "tab":
		if m.focus == focusChips {
			m.focus = focusInput
		} else if len(m.chips()) > 0 {
			m.focus = focusChips
			m.chip = 0
		}
		return m, nil
	}

	switch m.focus {
	case focusChips:
		return m.updateChips(key)
	case focusAttach:
		if key.String() == "enter" {
			path := strings.TrimSpace(m.input.Value())
			m.focus = focusInput
			m.input.SetValue(m.ctrl.Input())
			name, contentType, data, err := widget.LoadImageFile(path)
			if err != nil {
				m.status = err.Error()
				return m, nil
			}
			if err := m.ctrl.AttachImage(name, contentType, data); err != nil && m.ctrl.Alert() == "" {
				m.status = err.Error()
			}
			return m, nil
		}
	default:
		if key.String() == "enter" {
			m.ctrl.SetInput(m.input.Value())
			cmd, err := m.ctrl.Submit()
			return m.afterSend(cmd, err)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m Model) updateChips(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	chips := m.chips()
	if len(chips) == 0 {
		m.focus = focusInput
		return m, nil
	}
	switch key.String() {
	case "left", "shift+tab":
		m.chip = (m.chip + len(chips) - 1) % len(chips)
	case "right":
		m.chip = (m.chip + 1) % len(chips)
	case "enter", " ":
		c := chips[min(m.chip, len(chips)-1)]
		m.ctrl.SetInput(m.input.Value())
		switch {
		case c.quick >= 0:
			m.focus = focusInput
			cmd, err := m.ctrl.UseQuickAction(c.quick)
			return m.afterSend(cmd, err)
		case c.slot >= 0:
			m.focus = focusInput
			cmd, err := m.ctrl.SelectSlot(c.slot)
			return m.afterSend(cmd, err)
		default:
			if err := m.ctrl.InsertEmoji(c.emoji); err != nil {
				m.status = err.Error()
			}
			m.input.SetValue(m.ctrl.Input())
			m.input.CursorEnd()
		}
	}
	return m, nil
}

func (m Model) afterSend(cmd widget.Cmd, err error) (tea.Model, tea.Cmd) {
	if err != nil {
		if !errors.Is(err, widget.ErrBusy) {
			m.status = err.Error()
		}
		return m, nil
	}
	m.input.SetValue(m.ctrl.Input())
	m.refresh()
	return m, m.run(cmd)
}

func (m Model) updateEnd(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		if err := m.ctrl.Skip(m.ctx); err != nil {
			m.status = err.Error()
		}
		m.reset()
		return m, nil
	case "tab":
		m.setEndFocus((m.endFocus + 1) % endControls)
		return m, nil
	case "shift+tab":
		m.setEndFocus((m.endFocus + endControls - 1) % endControls)
		return m, nil
	case "ctrl+t":
		return m.sendTranscript()
	case "enter":
		if m.endFocus == endEmail {
			return m.sendTranscript()
		}
		m.ctrl.SetRatingComment(m.comment.Value())
		cmd, err := m.ctrl.SubmitRating(m.ctx)
		if err != nil {
			return m, nil
		}
		if !m.ctrl.IsOpen() {
			m.reset()
		}
		return m, m.run(cmd)
	}

	var cmd tea.Cmd
	switch m.endFocus {
	case endRating:
		switch key.String() {
		case "1", "left", "+":
			_ = m.ctrl.SelectRating(widget.RatingPositive)
		case "2", "right", "-":
			_ = m.ctrl.SelectRating(widget.RatingNegative)
		}
	case endComment:
		m.comment, cmd = m.comment.Update(key)
		m.ctrl.SetRatingComment(m.comment.Value())
	case endEmail:
		m.email, cmd = m.email.Update(key)
		m.ctrl.SetTranscriptEmail(m.email.Value())
	}
	return m, cmd
}

func (m Model) sendTranscript() (tea.Model, tea.Cmd) {
	m.ctrl.SetTranscriptEmail(m.email.Value())
	cmd, err := m.ctrl.EmailTranscript()
	if err != nil {
		return m, nil
	}
	return m, m.run(cmd)
}

func (m *Model) setEndFocus(f int) {
	m.endFocus = f
	m.comment.Blur()
	m.email.Blur()
	switch f {
	case endComment:
		m.comment.Focus()
	case endEmail:
		m.email.Focus()
	}
}

func (m *Model) enterEndOverlay() {
	s := m.ctrl.Strings()
	m.comment.SetValue("")
	m.comment.Placeholder = s.RateComment
	m.email.SetValue(m.ctrl.EndOverlay().TranscriptEmail)
	m.email.Placeholder = "email@example.com"
	m.setEndFocus(endRating)
}

func (m *Model) reset() {
	m.focus = focusInput
	m.chip = 0
	m.input.SetValue("")
	m.form = nil
	m.leadValues = nil
}

// startLeadCapture builds the lead form when the controller asks for one.
func (m *Model) startLeadCapture() tea.Cmd {
	if m.ctrl.State() != widget.StateLeadCapture {
		return nil
	}
	fields := m.ctrl.LeadFields()
	if len(fields) == 0 {
		if err := m.ctrl.SubmitLeadCapture(nil); err != nil {
			m.status = err.Error()
		}
		return nil
	}
	m.leadValues = make(map[string]*string, len(fields))
	inputs := make([]huh.Field, 0, len(fields))
	for _, f := range fields {
		value := new(string)
		m.leadValues[f.Name] = value
		title := f.Label
		if f.Required {
			title += " *"
		}
		inputs = append(inputs, huh.NewInput().
			Key(f.Name).
			Title(title).
			Value(value).
			Validate(leadValidator(f)))
	}
	m.form = huh.NewForm(
		huh.NewGroup(inputs...).Title(m.ctrl.LeadPrompt()),
	).WithTheme(huh.ThemeCharm()).WithShowHelp(false)
	return m.form.Init()
}

func leadValidator(f widget.LeadField) func(string) error {
	return func(v string) error {
		v = strings.TrimSpace(v)
		if v == "" {
			if f.Required {
				return fmt.Errorf("%s: %w", f.Label, widget.ErrLeadFieldRequired)
			}
			return nil
		}
		if f.InputType == "email" {
			return widget.ValidateEmail(v)
		}
		return nil
	}
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.ctrl.Close(m.ctx)
			m.reset()
			return m, nil
		}
	}

	fm, cmd := m.form.Update(msg)
	if f, ok := fm.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		values := make(map[string]string, len(m.leadValues))
		for name, v := range m.leadValues {
			values[name] = *v
		}
		if err := m.ctrl.SubmitLeadCapture(values); err != nil {
			m.status = err.Error()
			return m, m.startLeadCapture()
		}
		m.form = nil
		m.leadValues = nil
		m.refresh()
		return m, nil
	case huh.StateAborted:
		m.ctrl.Close(m.ctx)
		m.reset()
		return m, nil
	}
	return m, cmd
}

func (m Model) chips() []chip {
	var out []chip
	for i, q := range m.ctrl.QuickActions() {
		out = append(out, chip{label: q.Icon + " " + q.Label, quick: i, slot: -1, emoji: -1})
	}
	for i, s := range m.ctrl.Slots() {
		out = append(out, chip{label: s.Display, quick: -1, slot: i, emoji: -1})
	}
	for i, e := range widget.Emojis {
		out = append(out, chip{label: e, quick: -1, slot: -1, emoji: i})
	}
	return out
}

// refresh re-renders the message list into the viewport.
func (m *Model) refresh() {
	width := max(20, m.viewport.Width-4)
	var lines []string
	for _, it := range m.ctrl.Items() {
		lines = append(lines, m.renderItem(it, width))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) renderItem(it widget.Item, width int) string {
	switch it.Kind {
	case widget.ItemAwayBanner:
		return m.styles.away.Width(width).Render(it.Text)
	case widget.ItemWarning:
		return m.styles.warning.Width(width).Render(it.Text)
	}
	text := renderBold(it.Text)
	for _, media := range it.Media {
		text += "\n" + m.styles.receipt.Render(mediaLabel(media))
	}
	if it.Role == chat.RoleUser {
		bubble := m.styles.user.MaxWidth(width).Render(text)
		if it.Read {
			bubble += " " + m.styles.receipt.Render("✓✓")
		}
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble)
	}
	if it.IsError {
		return m.styles.errorMsg.MaxWidth(width).Render(text)
	}
	return m.styles.assistant.MaxWidth(width).Render(text)
}

func mediaLabel(media chatapi.MediaAttachment) string {
	name := media.Filename
	if name == "" {
		name = media.URL
	}
	return "[image] " + name
}

// renderBold turns **text** runs into bold terminal text.
func renderBold(s string) string {
	parts := strings.Split(s, "**")
	if len(parts) < 3 {
		return s
	}
	bold := lipgloss.NewStyle().Bold(true)
	var b strings.Builder
	for i, p := range parts {
		if i%2 == 1 && i < len(parts)-1 {
			b.WriteString(bold.Render(p))
			continue
		}
		if i%2 == 1 {
			b.WriteString("**")
		}
		b.WriteString(p)
	}
	return b.String()
}

func (m Model) View() string {
	if !m.ctrl.IsOpen() {
		launcher := m.styles.launcher.Render("💬 " + m.ctrl.Strings().Open)
		if m.ctrl.Theme().Position == widget.PositionBottomLeft {
			launcher = lipgloss.PlaceHorizontal(m.width, lipgloss.Left, launcher)
		} else {
			launcher = lipgloss.PlaceHorizontal(m.width, lipgloss.Right, launcher)
		}
		help := m.styles.help.Render("enter: open • q: quit")
		if m.status != "" {
			help = m.styles.errorMsg.Render(m.status)
		}
		return lipgloss.JoinVertical(lipgloss.Left, launcher, help)
	}

	s := m.ctrl.Strings()
	sections := []string{m.header(), m.viewport.View()}

	if m.ctrl.Typing() {
		sections = append(sections, m.spinner.View()+" ...")
	}
	if m.form != nil {
		sections = append(sections, m.styles.overlay.Render(m.form.View()))
	} else if m.ctrl.State() == widget.StateEndOfConversation {
		sections = append(sections, m.endView())
	} else {
		if chips := m.chipsView(); chips != "" {
			sections = append(sections, chips)
		}
		if p := m.ctrl.PendingImage(); p != nil {
			sections = append(sections, m.styles.receipt.Render("📎 "+p.Label+" ("+p.Filename+")  ctrl+x: remove"))
		}
		prompt := s.Placeholder
		if m.focus == focusAttach {
			prompt = "image path"
		}
		m.input.Placeholder = prompt
		sections = append(sections, m.input.View())
	}
	if alert := m.ctrl.Alert(); alert != "" {
		sections = append(sections, m.styles.alert.Render(alert))
	}
	if m.status != "" {
		sections = append(sections, m.styles.errorMsg.Render(m.status))
	}
	sections = append(sections, m.styles.help.Render(s.PoweredBy+" Raven • enter: "+s.Send+" • tab: suggestions • ctrl+o: image • ctrl+n: "+s.NewChat+" • esc: "+s.Close))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) header() string {
	status := m.styles.status.Render("● " + m.ctrl.StatusLabel())
	if m.ctrl.HumanTakeover() {
		status = m.styles.statusLive.Render("● " + m.ctrl.StatusLabel())
	}
	if !m.ctrl.Online() {
		status = m.styles.help.Render("● " + m.ctrl.Strings().Offline)
	}
	title := m.styles.header.Render(m.ctrl.BusinessName())
	return lipgloss.JoinHorizontal(lipgloss.Center, title, " ", status, "  ", m.styles.help.Render("[+] [×]"))
}

func (m Model) chipsView() string {
	chips := m.chips()
	qa, slots := len(m.ctrl.QuickActions()), len(m.ctrl.Slots())
	if m.focus != focusChips && qa+slots == 0 {
		return ""
	}
	var rendered []string
	for i, c := range chips {
		if m.focus != focusChips && c.emoji >= 0 {
			break
		}
		style := m.styles.chip
		if m.focus == focusChips && i == m.chip {
			style = m.styles.chipActive
		}
		rendered = append(rendered, style.Render(c.label))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
}

func (m Model) endView() string {
	s := m.ctrl.Strings()
	end := m.ctrl.EndOverlay()

	thumb := func(label, rating string) string {
		if end.Rating == rating {
			return m.styles.chipActive.Render(label)
		}
		return m.styles.chip.Render(label)
	}
	ratingRow := lipgloss.JoinHorizontal(lipgloss.Center,
		thumb("👍", widget.RatingPositive), " ", thumb("👎", widget.RatingNegative))
	if m.endFocus == endRating {
		ratingRow += m.styles.help.Render("  ← 1 / 2 →")
	}

	submit := s.RateSubmit
	if end.Submitting {
		submit = m.spinner.View() + " " + submit
	}
	transcript := s.TranscriptTitle
	if end.TranscriptStatus != "" {
		transcript += "  " + end.TranscriptStatus
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		s.RateTitle,
		ratingRow,
		m.comment.View(),
		m.styles.help.Render("enter: "+submit+" • esc: "+s.RateSkip),
		"",
		transcript,
		m.email.View(),
		m.styles.help.Render("ctrl+t: "+s.TranscriptSend),
	)
	return m.styles.overlay.Render(body)
}
