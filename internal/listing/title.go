package listing

import (
	"fmt"
	"strings"
)

// ValidateTitle checks the NNNN/TT/AA shape: three slash-separated parts, a
// four-digit number, a free-form middle part, and a two-digit year.
func ValidateTitle(title string) error {
	parts := strings.Split(title, "/")
	if len(parts) != 3 || !digits(parts[0], 4) || !digits(parts[2], 2) {
		return fmt.Errorf("%w: %q", ErrInvalidTitle, title)
	}
	return nil
}

func digits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
