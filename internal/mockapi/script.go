package mockapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/raven-widget/internal/chatapi"
)

var (
	bookingWords  = []string{"book", "appointment", "rendez-vous", "rdv", "réserver"}
	takeoverWords = []string{"agent", "human", "humain", "conseiller"}
	closingWords  = []string{"bye", "goodbye", "au revoir", "that's all", "c'est tout"}
)

// reply is the scripted answer to one visitor message.
type reply struct {
	text        string
	slots       []chatapi.SlotOption
	takeover    bool
	shouldClose bool
}

// scriptReply picks a canned answer. Takeover sticks once requested.
func scriptReply(message string, takeover bool, now time.Time) reply {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, closingWords):
		return reply{text: "Thanks for chatting with us. Have a great day!", takeover: takeover, shouldClose: true}
	case containsAny(lower, takeoverWords):
		return reply{text: "A team member has joined the conversation.", takeover: true}
	case containsAny(lower, bookingWords):
		return reply{text: "Here are our next openings:", slots: nextSlots(now, 3), takeover: takeover}
	case takeover:
		return reply{text: fmt.Sprintf("Noted: %q. I'll look into it.", message), takeover: true}
	default:
		return reply{text: fmt.Sprintf("You said: %s", message)}
	}
}

// nextSlots offers 10:00 on the next n weekdays after now.
func nextSlots(now time.Time, n int) []chatapi.SlotOption {
	slots := make([]chatapi.SlotOption, 0, n)
	day := now
	for len(slots) < n {
		day = day.AddDate(0, 0, 1)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		slots = append(slots, chatapi.SlotOption{
			ID:      fmt.Sprintf("slot-%d", len(slots)+1),
			Date:    day.Format("2006-01-02"),
			Time:    "10:00",
			Display: day.Format("Mon") + " 10:00",
		})
	}
	return slots
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
