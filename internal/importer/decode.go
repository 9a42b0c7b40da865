package importer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText converts raw file bytes to UTF-8.
func decodeText(data []byte, encoding string) ([]byte, error) {
	switch encoding {
	case "", "latin-1":
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode latin-1: %w", err)
		}
		return out, nil
	case "windows-1252":
		out, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode windows-1252: %w", err)
		}
		return out, nil
	case "utf-8":
		return bytes.TrimPrefix(data, utf8BOM), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, encoding)
	}
}

// sniffDelimiter picks ';' when the header line contains one, ',' otherwise.
func sniffDelimiter(text []byte) rune {
	line := text
	if idx := bytes.IndexByte(text, '\n'); idx >= 0 {
		line = text[:idx]
	}
	if bytes.IndexByte(line, ';') >= 0 {
		return ';'
	}
	return ','
}

func parseDelimiter(value string, text []byte) (rune, error) {
	switch value {
	case "", "auto":
		return sniffDelimiter(text), nil
	case ";":
		return ';', nil
	case ",":
		return ',', nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDelimiter, value)
	}
}

// normalizeHeaders trims and upper-cases column names. Repeated names get a
// ".N" suffix, so a second "SITUAÇÃO" column becomes "SITUAÇÃO.1".
func normalizeHeaders(raw []string) []string {
	upper := cases.Upper(language.Und)
	out := make([]string, len(raw))
	taken := make(map[string]bool, len(raw))
	counts := make(map[string]int, len(raw))
	for i, name := range raw {
		name = upper.String(strings.TrimSpace(name))
		candidate := name
		for taken[candidate] {
			counts[name]++
			candidate = name + "." + strconv.Itoa(counts[name])
		}
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}
