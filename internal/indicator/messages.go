package indicator

import (
	"fmt"
	"os"
	"strings"
)

type locale string

const (
	localeEnglish locale = "en"
	localeGerman  locale = "de"
)

type messages struct {
	starting   string
	listening  string
	auto       string
	errorText  string
	countdownF string
}

func (m messages) countdown(remaining int) string {
	return fmt.Sprintf(m.countdownF, remaining)
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "de") {
		return localeGerman
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeGerman:
		return messages{
			starting:   "Start…",
			listening:  "Höre zu…",
			auto:       "Automatisches Scrollen…",
			errorText:  "Fehler bei der Spracherkennung",
			countdownF: "Start in %d…",
		}
	default:
		return messages{
			starting:   "Starting…",
			listening:  "Listening…",
			auto:       "Auto-scrolling…",
			errorText:  "Speech recognition error",
			countdownF: "Starting in %d…",
		}
	}
}
