package identifier

import "strconv"

// DefaultCenturyCutoff splits two-digit years: prefixes above it are 19xx,
// the rest 20xx. A prefix that appears in both centuries cannot be told
// apart; the cutoff only picks one.
const DefaultCenturyCutoff = 50

const sequenceFragmentLength = 5

// LegacyQuery is the search key derived from a legacy number. Registry
// identifiers that start with YearFull and contain SequenceFragment are
// candidates for the same process.
type LegacyQuery struct {
	YearFull         string `json:"year_full"`
	SequenceFragment string `json:"sequence_fragment"`
}

// DecodeLegacy decodes a normalized 10-digit legacy number using
// DefaultCenturyCutoff. ok is false for any other length.
func DecodeLegacy(normalized string) (LegacyQuery, bool) {
	return DecodeLegacyWithCutoff(normalized, DefaultCenturyCutoff)
}

// DecodeLegacyWithCutoff is DecodeLegacy with an explicit century cutoff.
//
// The trailing check digit is dropped; the first two digits of the remaining
// body become the year, and its last five digits the sequence fragment. Court
// codes in the middle of the body are ignored.
func DecodeLegacyWithCutoff(normalized string, cutoff int) (LegacyQuery, bool) {
	if len(normalized) != LegacyLength {
		return LegacyQuery{}, false
	}
	body := normalized[:LegacyLength-1]
	yearPrefix := body[:2]

	century := "20"
	if year, err := strconv.Atoi(yearPrefix); err == nil && year > cutoff {
		century = "19"
	}

	return LegacyQuery{
		YearFull:         century + yearPrefix,
		SequenceFragment: body[len(body)-sequenceFragmentLength:],
	}, true
}
