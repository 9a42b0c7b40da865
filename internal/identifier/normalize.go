package identifier

const (
	// ModernLength is the digit count of a current-format process number.
	ModernLength = 15
	// LegacyLength is the digit count of a legacy process number, check digit included.
	LegacyLength = 10
)

// Normalize drops every byte that is not an ASCII decimal digit.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	buf := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			buf = append(buf, c)
		}
	}
	return string(buf)
}

// IsModern reports whether value is exactly ModernLength ASCII digits.
func IsModern(value string) bool {
	return len(value) == ModernLength && isDigits(value)
}

// IsLegacy reports whether value is exactly LegacyLength ASCII digits.
func IsLegacy(value string) bool {
	return len(value) == LegacyLength && isDigits(value)
}

func isDigits(value string) bool {
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return value != ""
}
