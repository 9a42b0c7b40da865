package identifier

// Kind classifies why a resolution ended the way it did. None of these are
// errors: they describe NoMatch and fallback outcomes so callers can report
// them.
type Kind string

const (
	// KindNone marks a clean match.
	KindNone Kind = ""
	// KindValidation marks input with no digits, or no usable numbers in a text.
	KindValidation Kind = "validation"
	// KindNotFound marks well-formed input with no registry counterpart.
	KindNotFound Kind = "not_found"
	// KindAmbiguous marks a legacy lookup with several candidates and no
	// permanent among them, settled by taking the first.
	KindAmbiguous Kind = "ambiguous"
)

// String returns the kind label, "ok" for KindNone.
func (k Kind) String() string {
	if k == KindNone {
		return "ok"
	}
	return string(k)
}
