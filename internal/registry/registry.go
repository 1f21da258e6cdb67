// Package registry is the authoritative land-ownership and marketplace
// ledger: the ownership map, the listing map, and the append-only event log,
// mutated through four operations (list, cancel, purchase, claim) that each
// apply state change and log append as one atomic unit.
//
// Costs recorded by Claim and Purchase are informational. No balance is
// checked or debited here; payment settlement is the caller's contract,
// performed before the mutation is invoked.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/virtualand/landgrid/internal/grid"
)

// ListingStatus is the lifecycle state of a sell listing.
type ListingStatus string

const (
	StatusActive    ListingStatus = "ACTIVE"
	StatusFulfilled ListingStatus = "FULFILLED"
	StatusCanceled  ListingStatus = "CANCELED"
)

// Ownership records who holds a parcel. Absence means unowned. Records are
// created by Claim or Purchase, replaced by Purchase, and never deleted.
type Ownership struct {
	Owner           string    `json:"owner"`
	AcquisitionCost float64   `json:"acquisition_cost"`
	AcquiredAt      time.Time `json:"acquired_at"`
}

// Listing is an owner's open offer to sell a parcel at a fixed price.
// Only the most recent listing per parcel is held here; superseded listings
// survive only in the event log.
type Listing struct {
	Owner     string        `json:"owner"`
	Price     float64       `json:"price"`
	CreatedAt time.Time     `json:"created_at"`
	Status    ListingStatus `json:"status"`

	// Seq orders listings by creation. Monotonic across the registry's
	// lifetime, restored from snapshots.
	Seq uint64 `json:"seq"`
}

// ListedParcel pairs a listing with its parcel for scan results.
type ListedParcel struct {
	ParcelID int `json:"parcel_id"`
	Listing
}

// PriceFunc quotes the claim cost for an unowned parcel.
type PriceFunc func(c grid.Coord, districtID string) float64

// Registry is the mutable ledger. All mutations serialize on one mutex
// (single logical writer); queries run under a read lock. Construct with
// New and share one instance by reference.
type Registry struct {
	mu        sync.RWMutex
	ownership map[int]Ownership
	listings  map[int]Listing
	events    []Event
	seq       uint64

	price PriceFunc
	now   func() time.Time

	dirty chan struct{}

	subMu     sync.Mutex
	subs      []subscriber
	nextSubID int
}

// New creates an empty registry using price to quote claim costs.
func New(price PriceFunc) *Registry {
	return &Registry{
		ownership: make(map[int]Ownership),
		listings:  make(map[int]Listing),
		price:     price,
		now:       time.Now,
		dirty:     make(chan struct{}, 1),
	}
}

// SetClock overrides the registry's time source. Intended for tests.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Dirty signals once after any number of successful mutations; the
// persistence flusher drains it.
func (r *Registry) Dirty() <-chan struct{} {
	return r.dirty
}

// ListForSale puts a parcel on the market. Requires ownership by owner and a
// strictly positive price. An existing listing, active or not, is
// overwritten; cancellation first is not required.
func (r *Registry) ListForSale(parcelID int, owner string, price float64, districtID string) (Listing, error) {
	if _, err := grid.CoordOf(parcelID); err != nil {
		return Listing{}, err
	}
	if price <= 0 {
		return Listing{}, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	own, ok := r.ownership[parcelID]
	if !ok {
		return Listing{}, fmt.Errorf("%w: parcel %d", ErrNotFound, parcelID)
	}
	if own.Owner != owner {
		return Listing{}, fmt.Errorf("%w: parcel %d owned by %s", ErrNotOwner, parcelID, own.Owner)
	}

	r.seq++
	l := Listing{
		Owner:     owner,
		Price:     price,
		CreatedAt: r.now(),
		Status:    StatusActive,
		Seq:       r.seq,
	}
	r.listings[parcelID] = l
	r.append(Event{
		ParcelID:   parcelID,
		DistrictID: districtID,
		Type:       EventListed,
		Actor:      owner,
		Price:      price,
	})
	return l, nil
}

// CancelListing withdraws an active listing owned by owner.
func (r *Registry) CancelListing(parcelID int, owner string, districtID string) error {
	if _, err := grid.CoordOf(parcelID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[parcelID]
	if !ok || l.Status != StatusActive {
		return fmt.Errorf("%w: parcel %d", ErrNoListing, parcelID)
	}
	if l.Owner != owner {
		return fmt.Errorf("%w: listing for parcel %d held by %s", ErrNotOwner, parcelID, l.Owner)
	}

	l.Status = StatusCanceled
	r.listings[parcelID] = l
	r.append(Event{
		ParcelID:   parcelID,
		DistrictID: districtID,
		Type:       EventCanceled,
		Actor:      owner,
	})
	return nil
}

// Purchase transfers a listed parcel to buyer. The offered price must equal
// the listing price exactly, and the buyer must not be the seller. On
// success the ownership record is replaced, the listing is fulfilled, and a
// SOLD event is appended with the seller as actor and the buyer as
// counterparty.
func (r *Registry) Purchase(parcelID int, buyer string, price float64, districtID string) (Ownership, error) {
	if _, err := grid.CoordOf(parcelID); err != nil {
		return Ownership{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.listings[parcelID]
	if !ok || l.Status != StatusActive {
		return Ownership{}, fmt.Errorf("%w: parcel %d", ErrNoListing, parcelID)
	}
	if price != l.Price {
		return Ownership{}, fmt.Errorf("%w: offered %v, listed at %v", ErrPriceMismatch, price, l.Price)
	}
	if buyer == l.Owner {
		return Ownership{}, fmt.Errorf("%w: %s", ErrSelfTrade, buyer)
	}

	own := Ownership{
		Owner:           buyer,
		AcquisitionCost: price,
		AcquiredAt:      r.now(),
	}
	r.ownership[parcelID] = own
	l.Status = StatusFulfilled
	r.listings[parcelID] = l
	r.append(Event{
		ParcelID:     parcelID,
		DistrictID:   districtID,
		Type:         EventSold,
		Actor:        l.Owner,
		Counterparty: buyer,
		Price:        price,
	})
	return own, nil
}

// Claim establishes initial ownership of an unowned parcel. The cost is
// quoted by the pricing function and recorded on the ownership record;
// nothing is debited here.
func (r *Registry) Claim(parcelID int, claimer string, districtID string) (Ownership, error) {
	coord, err := grid.CoordOf(parcelID)
	if err != nil {
		return Ownership{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if own, ok := r.ownership[parcelID]; ok {
		return Ownership{}, fmt.Errorf("%w: parcel %d held by %s", ErrAlreadyOwned, parcelID, own.Owner)
	}

	cost := r.price(coord, districtID)
	own := Ownership{
		Owner:           claimer,
		AcquisitionCost: cost,
		AcquiredAt:      r.now(),
	}
	r.ownership[parcelID] = own
	r.append(Event{
		ParcelID:   parcelID,
		DistrictID: districtID,
		Type:       EventClaimed,
		Actor:      claimer,
		Price:      cost,
	})
	return own, nil
}

// append stamps, logs, publishes, and marks dirty. Callers hold r.mu, so
// the state change and the log append are observed as one unit.
func (r *Registry) append(e Event) {
	e.ID = uuid.NewString()
	e.Timestamp = r.now()
	r.events = append(r.events, e)
	if len(r.events) > maxEvents {
		r.events = r.events[len(r.events)-maxEvents:]
	}
	r.publish(e)
	select {
	case r.dirty <- struct{}{}:
	default:
	}
}

// OwnershipOf returns the ownership record for a parcel, if any.
func (r *Registry) OwnershipOf(parcelID int) (Ownership, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	own, ok := r.ownership[parcelID]
	return own, ok
}

// Listing returns the parcel's listing only while it is active. Fulfilled
// and canceled listings are not retrievable here; use the event log for
// listing history.
func (r *Registry) Listing(parcelID int) (Listing, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listings[parcelID]
	if !ok || l.Status != StatusActive {
		return Listing{}, false
	}
	return l, true
}

// OwnedParcels returns the parcel ids held by owner, ascending.
func (r *Registry) OwnedParcels(owner string) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []int
	for id, own := range r.ownership {
		if own.Owner == owner {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// ActiveListings returns owner's active listings, newest-created first.
func (r *Registry) ActiveListings(owner string) []ListedParcel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ListedParcel
	for id, l := range r.listings {
		if l.Status == StatusActive && l.Owner == owner {
			out = append(out, ListedParcel{ParcelID: id, Listing: l})
		}
	}
	sortBySeqDesc(out)
	return out
}

// AllActiveListings returns every active listing, newest-created first.
func (r *Registry) AllActiveListings() []ListedParcel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ListedParcel
	for id, l := range r.listings {
		if l.Status == StatusActive {
			out = append(out, ListedParcel{ParcelID: id, Listing: l})
		}
	}
	sortBySeqDesc(out)
	return out
}

func sortBySeqDesc(ls []ListedParcel) {
	sort.Slice(ls, func(i, j int) bool { return ls[i].Seq > ls[j].Seq })
}

// RecentEvents returns up to limit events, most recent first.
func (r *Registry) RecentEvents(limit int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.events)
	if limit < 0 {
		limit = 0
	}
	if limit > n {
		limit = n
	}
	out := make([]Event, limit)
	for i := 0; i < limit; i++ {
		out[i] = r.events[n-1-i]
	}
	return out
}
