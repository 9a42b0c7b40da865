package listing

import "errors"

var (
	// ErrTitleRequired is returned when a listing is created without a title.
	ErrTitleRequired = errors.New("listing title is required")
	// ErrInvalidTitle is returned when a rename does not follow NNNN/TT/AA.
	ErrInvalidTitle = errors.New("invalid listing title, use NNNN/TT/AA")
	// ErrInvalidIdentifier is returned for entries that are not 15 digits.
	ErrInvalidIdentifier = errors.New("identifier must have 15 digits")
	// ErrCreatorRequired is returned when no operator name is supplied.
	ErrCreatorRequired = errors.New("operator name is required")
	// ErrForbidden is returned when a user touches someone else's listing.
	ErrForbidden = errors.New("listing belongs to another operator")
)
