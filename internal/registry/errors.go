package registry

import "errors"

// Mutation failures. All leave the registry untouched; callers branch on
// these with errors.Is instead of inferring failure from absent state.
var (
	// ErrNotFound: an ownership record was required and none exists.
	ErrNotFound = errors.New("registry: no ownership record")

	// ErrNotOwner: the caller does not own the parcel or listing.
	ErrNotOwner = errors.New("registry: not the owner")

	// ErrInvalidPrice: listing price must be strictly positive.
	ErrInvalidPrice = errors.New("registry: invalid price")

	// ErrNoListing: an active listing was required and none exists.
	ErrNoListing = errors.New("registry: no active listing")

	// ErrPriceMismatch: purchase price must equal the listing price exactly.
	ErrPriceMismatch = errors.New("registry: price mismatch")

	// ErrSelfTrade: a buyer cannot purchase their own listing.
	ErrSelfTrade = errors.New("registry: self trade")

	// ErrAlreadyOwned: claim requires a previously unowned parcel.
	ErrAlreadyOwned = errors.New("registry: parcel already owned")
)
