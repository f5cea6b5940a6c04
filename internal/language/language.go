package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"scribe/internal/services"
)

// Auto is the caller-facing sentinel for engine-side language detection.
const Auto = "auto"

// Normalize validates a submitted language option and reduces it to the base
// ISO 639-1 code the engine expects. Empty input and "auto" both normalize to
// the empty string, which means autodetect.
func Normalize(code string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" || trimmed == Auto {
		return "", nil
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", services.Wrap(services.ErrInvalidParameters, "language", "normalize",
			fmt.Sprintf("unrecognized language %q", code), err)
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", services.Wrap(services.ErrInvalidParameters, "language", "normalize",
			fmt.Sprintf("unrecognized language %q", code), nil)
	}
	return base.String(), nil
}

// DisplayName returns a human-readable English name for a normalized code.
// Unknown or empty codes report autodetect.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" || strings.EqualFold(trimmed, Auto) {
		return "Auto-detect"
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return trimmed
	}
	return name
}
