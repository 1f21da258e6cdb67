package registry

import "sort"

// SchemaVersion tags the snapshot layout so future migrations can branch
// on it.
const SchemaVersion = 1

// OwnershipRecord is one (parcel, ownership) pair in a snapshot.
type OwnershipRecord struct {
	ParcelID int `json:"parcel_id"`
	Ownership
}

// ListingRecord is one (parcel, listing) pair in a snapshot.
type ListingRecord struct {
	ParcelID int `json:"parcel_id"`
	Listing
}

// Snap is a flat, self-contained copy of the registry: ownership and
// listings as association lists plus the event log. It is what crosses the
// persistence boundary.
type Snap struct {
	SchemaVersion int               `json:"schema_version"`
	Ownership     []OwnershipRecord `json:"ownership"`
	Listings      []ListingRecord   `json:"listings"`
	Events        []Event           `json:"events"`
}

// Snapshot captures current state. Association lists are sorted by parcel
// id so identical states serialize identically.
func (r *Registry) Snapshot() Snap {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Snap{SchemaVersion: SchemaVersion}
	for id, own := range r.ownership {
		s.Ownership = append(s.Ownership, OwnershipRecord{ParcelID: id, Ownership: own})
	}
	for id, l := range r.listings {
		s.Listings = append(s.Listings, ListingRecord{ParcelID: id, Listing: l})
	}
	sort.Slice(s.Ownership, func(i, j int) bool { return s.Ownership[i].ParcelID < s.Ownership[j].ParcelID })
	sort.Slice(s.Listings, func(i, j int) bool { return s.Listings[i].ParcelID < s.Listings[j].ParcelID })
	s.Events = make([]Event, len(r.events))
	copy(s.Events, r.events)
	return s
}

// Restore replaces registry state with a snapshot. An empty snapshot yields
// an empty registry (no owned parcels, no listings, no history).
func (r *Registry) Restore(s Snap) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ownership = make(map[int]Ownership, len(s.Ownership))
	for _, rec := range s.Ownership {
		r.ownership[rec.ParcelID] = rec.Ownership
	}
	r.listings = make(map[int]Listing, len(s.Listings))
	r.seq = 0
	for _, rec := range s.Listings {
		r.listings[rec.ParcelID] = rec.Listing
		if rec.Seq > r.seq {
			r.seq = rec.Seq
		}
	}
	r.events = make([]Event, 0, len(s.Events))
	r.events = append(r.events, s.Events...)
	if len(r.events) > maxEvents {
		r.events = r.events[len(r.events)-maxEvents:]
	}
}
