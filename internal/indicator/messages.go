package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeEnglish locale = "en"
)

type messages struct {
	running      string
	body         string
	defaultLabel string
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "en") {
		return localeEnglish
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeEnglish:
		fallthrough
	default:
		return messages{
			running:      "Timer running: ",
			body:         "debatebell pause, ring, poi or stop",
			defaultLabel: "Debate timer",
		}
	}
}

// summary renders the notification text for a phase label.
func (m messages) summary(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		label = m.defaultLabel
	}
	return m.running + label
}
