package tui

import (
	"fmt"
	"strings"

	"github.com/wolfman30/raven-widget/internal/chat"
	"github.com/wolfman30/raven-widget/internal/widget"
)

// plainItem renders an item as a single line of text.
func plainItem(it widget.Item) string {
	switch it.Kind {
	case widget.ItemAwayBanner:
		return "[away] " + it.Text
	case widget.ItemWarning:
		return "[!] " + it.Text
	}
	var b strings.Builder
	if it.Role == chat.RoleUser {
		b.WriteString("you: ")
	} else {
		b.WriteString("bot: ")
	}
	b.WriteString(stripBold(it.Text))
	for _, m := range it.Media {
		name := m.Filename
		if name == "" {
			name = m.URL
		}
		fmt.Fprintf(&b, " [image: %s]", name)
	}
	return b.String()
}

// stripBold removes **markers** used by the assistant for emphasis.
func stripBold(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

func numbered[T any](items []T, label func(T) string) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, label(it))
	}
	return strings.Join(parts, "  ")
}
