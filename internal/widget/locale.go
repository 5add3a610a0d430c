package widget

import (
	"strings"

	"golang.org/x/text/language"
)

var supported = language.NewMatcher([]language.Tag{language.English, language.French})

// DetectLanguage maps an environment locale such as "fr_CA.UTF-8" to a widget
// language. French locales map to French; everything else, including an
// empty or unparsable locale, maps to English.
func DetectLanguage(locale string) Lang {
	locale = normalizeLocale(locale)
	if locale == "" {
		return LangEN
	}
	if strings.HasPrefix(locale, "fr") {
		return LangFR
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return LangEN
	}
	if _, idx, conf := supported.Match(tag); conf >= language.High && idx == 1 {
		return LangFR
	}
	return LangEN
}

// ResolveLanguage applies the widget language setting: "auto" detects from
// locale, "en" is English, anything else is French.
func ResolveLanguage(setting, locale string) Lang {
	switch strings.ToLower(strings.TrimSpace(setting)) {
	case "auto":
		return DetectLanguage(locale)
	case "en":
		return LangEN
	default:
		return LangFR
	}
}

// normalizeLocale turns POSIX locale names into BCP 47-ish tags.
func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "C" || locale == "POSIX" {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(locale, "_", "-"))
}
