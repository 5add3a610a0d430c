package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wolfman30/raven-widget/internal/chatapi"
	"github.com/wolfman30/raven-widget/internal/widget"
)

const consoleHelp = `commands:
  /new                 start a new conversation
  /close               close the widget
  /quit                exit
  /quick N             send quick action N
  /slot N              book slot N
  /emoji N             append emoji N to the draft
  /attach PATH         stage an image
  /remove              drop the staged image
  /rate positive|negative [comment]
  /skip                dismiss the rating prompt
  /transcript EMAIL    email the conversation transcript
  /help                show this help
anything else is sent as a message`

// console is a line-oriented front end for terminals without a TTY.
type console struct {
	ctrl    *widget.Controller
	in      *bufio.Scanner
	out     io.Writer
	printed int
	offered string
	state   widget.State
}

// RunConsole drives ctrl from line input until /quit, EOF or ctx ends.
func RunConsole(ctx context.Context, ctrl *widget.Controller, in io.Reader, out io.Writer) error {
	c := &console{ctrl: ctrl, in: bufio.NewScanner(in), out: out}
	if !ctrl.Ready() {
		ctrl.Run(ctx, ctrl.Init())
	}
	if err := ctrl.Open(); err != nil {
		return err
	}
	c.header()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		c.flush()
		if ctrl.IsOpen() && ctrl.State() == widget.StateLeadCapture {
			if !c.leadCapture() {
				return nil
			}
			continue
		}
		c.prompt()
		if !c.in.Scan() {
			return c.in.Err()
		}
		quit, err := c.handle(ctx, strings.TrimSpace(c.in.Text()))
		if err != nil {
			fmt.Fprintf(c.out, "! %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (c *console) header() {
	status := c.ctrl.StatusLabel()
	if !c.ctrl.Online() {
		status = c.ctrl.Strings().Offline
	}
	fmt.Fprintf(c.out, "== %s (%s) ==\n", c.ctrl.BusinessName(), status)
}

func (c *console) prompt() {
	switch {
	case !c.ctrl.IsOpen():
		fmt.Fprint(c.out, "[closed] press enter to open, /quit to exit\n> ")
	case c.ctrl.State() == widget.StateEndOfConversation:
		fmt.Fprint(c.out, "rate> ")
	default:
		fmt.Fprint(c.out, "> ")
	}
}

// flush prints items added since the last call plus any changed
// suggestions, alerts and overlays.
func (c *console) flush() {
	items := c.ctrl.Items()
	if len(items) < c.printed {
		c.printed = 0
	}
	for _, it := range items[c.printed:] {
		fmt.Fprintln(c.out, plainItem(it))
	}
	c.printed = len(items)

	var offered string
	if qa := c.ctrl.QuickActions(); len(qa) > 0 {
		offered = "quick: " + numbered(qa, func(q widget.QuickAction) string { return q.Icon + " " + q.Label })
	}
	if slots := c.ctrl.Slots(); len(slots) > 0 {
		offered = "slots: " + numbered(slots, func(s chatapi.SlotOption) string { return s.Display })
	}
	if offered != c.offered && offered != "" {
		fmt.Fprintln(c.out, offered)
	}
	c.offered = offered

	if alert := c.ctrl.Alert(); alert != "" {
		fmt.Fprintf(c.out, "! %s\n", alert)
		c.ctrl.DismissAlert()
	}

	state := c.ctrl.State()
	if state == widget.StateEndOfConversation && c.state != state {
		s := c.ctrl.Strings()
		fmt.Fprintf(c.out, "%s  /rate positive|negative [comment]  /skip\n", s.RateTitle)
		fmt.Fprintf(c.out, "%s  /transcript EMAIL\n", s.TranscriptTitle)
	}
	c.state = state
}

// leadCapture asks for each enabled field in turn. It reports false on EOF.
func (c *console) leadCapture() bool {
	fmt.Fprintln(c.out, c.ctrl.LeadPrompt())
	values := make(map[string]string)
	for _, f := range c.ctrl.LeadFields() {
		label := f.Label
		if f.Required {
			label += " *"
		}
		fmt.Fprintf(c.out, "%s: ", label)
		if !c.in.Scan() {
			return false
		}
		values[f.Name] = strings.TrimSpace(c.in.Text())
	}
	if err := c.ctrl.SubmitLeadCapture(values); err != nil {
		fmt.Fprintf(c.out, "! %v\n", err)
	}
	return true
}

func (c *console) handle(ctx context.Context, line string) (bool, error) {
	if !c.ctrl.IsOpen() {
		switch line {
		case "/quit":
			return true, nil
		case "", "/open":
			return false, c.ctrl.Open()
		}
		return false, widget.ErrNotOpen
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	if !strings.HasPrefix(cmd, "/") {
		c.ctrl.SetInput(line)
		return false, c.run(ctx)(c.ctrl.Submit())
	}

	switch cmd {
	case "/quit":
		return true, nil
	case "/help":
		fmt.Fprintln(c.out, consoleHelp)
	case "/close":
		c.ctrl.Close(ctx)
	case "/new":
		return false, c.ctrl.StartNewChat(ctx)
	case "/quick":
		i, err := index(arg)
		if err != nil {
			return false, err
		}
		return false, c.run(ctx)(c.ctrl.UseQuickAction(i))
	case "/slot":
		i, err := index(arg)
		if err != nil {
			return false, err
		}
		return false, c.run(ctx)(c.ctrl.SelectSlot(i))
	case "/emoji":
		i, err := index(arg)
		if err != nil {
			return false, err
		}
		if err := c.ctrl.InsertEmoji(i); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "draft: %s\n", c.ctrl.Input())
	case "/attach":
		name, contentType, data, err := widget.LoadImageFile(arg)
		if err != nil {
			return false, err
		}
		if err := c.ctrl.AttachImage(name, contentType, data); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "attached: %s (%s)\n", c.ctrl.PendingImage().Label, name)
	case "/remove":
		c.ctrl.RemoveImage()
	case "/rate":
		rating, comment, _ := strings.Cut(arg, " ")
		if err := c.ctrl.SelectRating(rating); err != nil {
			return false, err
		}
		c.ctrl.SetRatingComment(comment)
		return false, c.run(ctx)(c.ctrl.SubmitRating(ctx))
	case "/skip":
		return false, c.ctrl.Skip(ctx)
	case "/transcript":
		c.ctrl.SetTranscriptEmail(arg)
		if err := c.run(ctx)(c.ctrl.EmailTranscript()); err != nil {
			return false, err
		}
		if st := c.ctrl.EndOverlay().TranscriptStatus; st != "" {
			fmt.Fprintln(c.out, st)
		}
	default:
		return false, fmt.Errorf("unknown command %q, try /help", cmd)
	}
	return false, nil
}

// run returns a helper that executes a controller action's Cmd to
// completion when the action succeeded.
func (c *console) run(ctx context.Context) func(widget.Cmd, error) error {
	return func(cmd widget.Cmd, err error) error {
		if err != nil {
			return err
		}
		c.ctrl.Run(ctx, cmd)
		return nil
	}
}

var errBadIndex = errors.New("expected a number from the list")

func index(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, errBadIndex
	}
	return n - 1, nil
}
