package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"permanentes/internal/identifier"
	"permanentes/internal/logging"
	"permanentes/internal/registry"
)

// Store is the registry surface the workflow reads and writes.
type Store interface {
	registry.Listings
	FindByIdentifier(ctx context.Context, id string) (*registry.Record, error)
	FoundInListing(ctx context.Context, listingID int64) ([]registry.Record, error)
}

// ClaimRecorder persists that an operator found a permanent record while
// filling a listing.
type ClaimRecorder interface {
	MarkFound(ctx context.Context, recordID int64, claimant string, at time.Time, listingID int64) error
}

// AddOutcome says what happened to an entered number.
type AddOutcome string

const (
	// OutcomeAdded means the number became an ordinary listing item.
	OutcomeAdded AddOutcome = "added"
	// OutcomeClaimed means the number is in the permanent registry and was
	// claimed for the listing; the physical process must be set aside.
	OutcomeClaimed AddOutcome = "claimed"
	// OutcomeDuplicate means the number was already in the listing.
	OutcomeDuplicate AddOutcome = "duplicate"
)

// AddResult is returned by Service.Add.
type AddResult struct {
	Outcome AddOutcome            `json:"outcome"`
	Item    *registry.ListingItem `json:"item,omitempty"`
	Record  *registry.Record      `json:"record,omitempty"`
	Message string                `json:"message"`
}

// CreateResult is returned by Service.Create.
type CreateResult struct {
	Listing    registry.Listing `json:"listing"`
	Added      int              `json:"added"`
	Permanent  int              `json:"permanent"`
	Invalid    []string         `json:"invalid,omitempty"`
	Duplicates []string         `json:"duplicates,omitempty"`
}

// Detail is a listing with its items and the records claimed through it.
type Detail struct {
	Listing registry.Listing       `json:"listing"`
	Items   []registry.ListingItem `json:"items"`
	Claimed []registry.Record      `json:"claimed"`
}

// Service runs the listing workflow.
type Service struct {
	store  Store
	claims ClaimRecorder
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for claim timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.NewComponentLogger(logger, "listing") }
}

// NewService builds the workflow. claims is usually the same registry store.
func NewService(store Store, claims ClaimRecorder, opts ...Option) *Service {
	s := &Service{
		store:  store,
		claims: claims,
		now:    time.Now,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a listing and bulk-adds entries. Blank entries are ignored,
// entries that are not 15 digits are reported in Invalid, and repeated
// entries in Duplicates. Items are flagged permanent when the number exists
// in the registry; bulk creation never claims records.
func (s *Service) Create(ctx context.Context, title, creator string, entries []string) (CreateResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return CreateResult{}, ErrTitleRequired
	}
	creator = strings.TrimSpace(creator)
	if creator == "" {
		return CreateResult{}, ErrCreatorRequired
	}

	created, err := s.store.CreateListing(ctx, title, creator)
	if err != nil {
		return CreateResult{}, fmt.Errorf("create listing: %w", err)
	}
	ctx = logging.WithListingID(ctx, created.ID)
	logger := logging.WithContext(ctx, s.logger)

	result := CreateResult{Listing: *created}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !identifier.IsModern(entry) {
			result.Invalid = append(result.Invalid, entry)
			logging.WarnWithContext(ctx, s.logger, "entry ignored, not a 15-digit process number", "invalid_entry",
				logging.String("entry", entry),
				logging.String(logging.FieldImpact, "entry was not added to the listing"),
			)
			continue
		}
		rec, err := s.store.FindByIdentifier(ctx, entry)
		if err != nil {
			return result, fmt.Errorf("check %s: %w", entry, err)
		}
		permanent := rec != nil
		if _, err := s.store.AddItem(ctx, created.ID, entry, permanent); err != nil {
			if errors.Is(err, registry.ErrDuplicateItem) {
				result.Duplicates = append(result.Duplicates, entry)
				continue
			}
			return result, fmt.Errorf("add %s: %w", entry, err)
		}
		result.Added++
		if permanent {
			result.Permanent++
		}
	}
	result.Listing.ItemCount = result.Added

	logger.Info("listing created",
		logging.String("title", title),
		logging.String("creator", creator),
		logging.Int("items", result.Added),
		logging.Int("permanent", result.Permanent),
		logging.Int("invalid", len(result.Invalid)),
	)
	return result, nil
}

// List returns the listings created by creator, newest first. An empty
// creator lists every operator's listings.
func (s *Service) List(ctx context.Context, creator string) ([]registry.Listing, error) {
	listings, err := s.store.ListListings(ctx, strings.TrimSpace(creator))
	if err != nil {
		return nil, err
	}
	if listings == nil {
		listings = []registry.Listing{}
	}
	return listings, nil
}

// owned loads a listing and checks that user created it.
func (s *Service) owned(ctx context.Context, listingID int64, user string) (*registry.Listing, error) {
	l, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if l.Creator != strings.TrimSpace(user) {
		return nil, fmt.Errorf("listing %d: %w", listingID, ErrForbidden)
	}
	return l, nil
}

// Add handles one typed number. A number found in the registry is claimed
// for the listing (claimant, time, listing) and not added as an item; any
// other valid number is added unless already present.
func (s *Service) Add(ctx context.Context, listingID int64, user, entered string) (AddResult, error) {
	l, err := s.owned(ctx, listingID, user)
	if err != nil {
		return AddResult{}, err
	}
	entered = strings.TrimSpace(entered)
	if !identifier.IsModern(entered) {
		return AddResult{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, entered)
	}
	ctx = logging.WithListingID(ctx, l.ID)
	logger := logging.WithContext(ctx, s.logger)

	rec, err := s.store.FindByIdentifier(ctx, entered)
	if err != nil {
		return AddResult{}, fmt.Errorf("check %s: %w", entered, err)
	}
	if rec != nil {
		at := s.now().UTC()
		if err := s.claims.MarkFound(ctx, rec.ID, l.Creator, at, l.ID); err != nil {
			return AddResult{}, fmt.Errorf("claim %s: %w", entered, err)
		}
		claimed := *rec
		claimed.FoundBy = l.Creator
		claimed.FoundAt = &at
		claimed.FoundListingID = &l.ID
		logging.WarnWithContext(ctx, s.logger, "permanent process found", "permanent_found",
			logging.String("identifier", entered),
			logging.String("box", rec.Box),
			logging.String(logging.FieldImpact, "process must be set aside for separate filing"),
			logging.Alert("separate process"),
		)
		return AddResult{
			Outcome: OutcomeClaimed,
			Record:  &claimed,
			Message: fmt.Sprintf("process %s was found in the permanent registry; set it aside for separate filing", entered),
		}, nil
	}

	item, err := s.store.AddItem(ctx, l.ID, entered, false)
	if errors.Is(err, registry.ErrDuplicateItem) {
		return AddResult{
			Outcome: OutcomeDuplicate,
			Message: "this process is already in the listing",
		}, nil
	}
	if err != nil {
		return AddResult{}, fmt.Errorf("add %s: %w", entered, err)
	}
	logger.Debug("listing item added", logging.String("identifier", entered))
	return AddResult{
		Outcome: OutcomeAdded,
		Item:    item,
		Message: fmt.Sprintf("process %s added", entered),
	}, nil
}

// Remove deletes an item from its listing. A non-zero listingID must match
// the item's listing.
func (s *Service) Remove(ctx context.Context, listingID, itemID int64, user string) error {
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if listingID != 0 && item.ListingID != listingID {
		return fmt.Errorf("item %d in listing %d: %w", itemID, listingID, registry.ErrNotFound)
	}
	if _, err := s.owned(ctx, item.ListingID, user); err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, itemID); err != nil {
		return fmt.Errorf("remove item %d: %w", itemID, err)
	}
	logging.WithContext(logging.WithListingID(ctx, item.ListingID), s.logger).Info("listing item removed",
		logging.String("identifier", item.Entered),
	)
	return nil
}

// Rename changes the title after validating the NNNN/TT/AA format.
func (s *Service) Rename(ctx context.Context, listingID int64, user, title string) error {
	if _, err := s.owned(ctx, listingID, user); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if err := ValidateTitle(title); err != nil {
		return err
	}
	if err := s.store.RenameListing(ctx, listingID, title); err != nil {
		return fmt.Errorf("rename listing %d: %w", listingID, err)
	}
	logging.WithContext(logging.WithListingID(ctx, listingID), s.logger).Info("listing renamed",
		logging.String("title", title),
	)
	return nil
}

// Show returns the listing with items in entry order and the records
// claimed through it.
func (s *Service) Show(ctx context.Context, listingID int64, user string) (Detail, error) {
	l, err := s.owned(ctx, listingID, user)
	if err != nil {
		return Detail{}, err
	}
	items, err := s.store.ListItems(ctx, l.ID)
	if err != nil {
		return Detail{}, fmt.Errorf("list items: %w", err)
	}
	claimed, err := s.store.FoundInListing(ctx, l.ID)
	if err != nil {
		return Detail{}, fmt.Errorf("list claimed records: %w", err)
	}
	if items == nil {
		items = []registry.ListingItem{}
	}
	if claimed == nil {
		claimed = []registry.Record{}
	}
	return Detail{Listing: *l, Items: items, Claimed: claimed}, nil
}
