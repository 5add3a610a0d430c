package widget

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wolfman30/raven-widget/internal/chatapi"
)

const (
	DefaultPrimaryColor = "#0ea5e9"
	darkenPercent       = 15
)

// Position places the launcher on screen.
type Position string

const (
	PositionBottomRight Position = "bottom-right"
	PositionBottomLeft  Position = "bottom-left"
)

// Theme is the resolved color scheme of the widget.
type Theme struct {
	Primary     string
	PrimaryDark string
	Position    Position
}

// ResolveTheme derives the theme from widget settings.
func ResolveTheme(settings chatapi.WidgetSettings) Theme {
	primary := strings.TrimSpace(settings.PrimaryColor)
	if primary == "" {
		primary = DefaultPrimaryColor
	}
	dark, err := DarkenColor(primary, darkenPercent)
	if err != nil {
		primary = DefaultPrimaryColor
		dark, _ = DarkenColor(primary, darkenPercent)
	}
	pos := PositionBottomRight
	if Position(settings.Position) == PositionBottomLeft {
		pos = PositionBottomLeft
	}
	return Theme{Primary: primary, PrimaryDark: dark, Position: pos}
}

// DarkenColor subtracts round(2.55*percent) from each RGB channel of a
// #rrggbb color, clamping at zero.
func DarkenColor(hex string, percent float64) (string, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(raw) != 6 {
		return "", fmt.Errorf("widget: invalid color %q", hex)
	}
	num, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return "", fmt.Errorf("widget: invalid color %q: %w", hex, err)
	}
	amt := int(2.55*percent + 0.5)
	r := clamp(int(num>>16) - amt)
	g := clamp(int((num>>8)&0xff) - amt)
	b := clamp(int(num&0xff) - amt)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b), nil
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
