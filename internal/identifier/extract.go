package identifier

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode selects how Extract finds numbers in pasted text.
type Mode int

const (
	// ModeBroad accepts any run of 10 to 25 consecutive digits.
	ModeBroad Mode = iota
	// ModeStrict accepts only runs of exactly 15 digits with no adjacent digits.
	ModeStrict
)

var (
	broadPattern = regexp.MustCompile(`\d{10,25}`)
	// RE2 has no lookaround, so strict mode takes maximal digit runs and
	// keeps the ones of the right length.
	digitRunPattern = regexp.MustCompile(`\d+`)
)

// String returns the config/flag spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeBroad:
		return "broad"
	case ModeStrict:
		return "strict"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts "broad"/"a" and "strict"/"b", case-insensitively.
// An empty value selects ModeBroad.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "broad", "a":
		return ModeBroad, nil
	case "strict", "b":
		return ModeStrict, nil
	default:
		return ModeBroad, fmt.Errorf("unknown extraction mode %q (want broad or strict)", value)
	}
}

// Extract returns every candidate number in text, in order of appearance and
// without deduplication.
func Extract(text string, mode Mode) []string {
	if text == "" {
		return nil
	}
	if mode == ModeStrict {
		runs := digitRunPattern.FindAllString(text, -1)
		out := make([]string, 0, len(runs))
		for _, run := range runs {
			if len(run) == ModernLength {
				out = append(out, run)
			}
		}
		return out
	}
	return broadPattern.FindAllString(text, -1)
}
