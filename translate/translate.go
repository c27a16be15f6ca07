// Package translate formats user visible messages in the locale of the host.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

// FALLBACK is the language used when the host reports no locale.
const FALLBACK = "en-US"

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("chip8: locale: %v", err)
	}

	SetLanguage(locales...)
}

// SetLanguage selects the message language from a list of BCP 47 tags,
// most preferred first.
func SetLanguage(tags ...string) {
	if len(tags) == 0 {
		tags = []string{FALLBACK}
	}

	printer = message.NewPrinter(message.MatchLanguage(tags...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
