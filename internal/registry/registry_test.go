package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/virtualand/landgrid/internal/grid"
)

const testDistrict = "DEFI"

func flatPrice(cost float64) PriceFunc {
	return func(grid.Coord, string) float64 { return cost }
}

func newTestRegistry() *Registry {
	return New(flatPrice(100))
}

// claimed returns a registry with parcel p already claimed by owner.
func claimed(t *testing.T, p int, owner string) *Registry {
	t.Helper()
	r := newTestRegistry()
	if _, err := r.Claim(p, owner, testDistrict); err != nil {
		t.Fatalf("setup claim: %v", err)
	}
	return r
}

func TestClaimCreatesOwnership(t *testing.T) {
	r := newTestRegistry()
	own, err := r.Claim(5, "0xA", testDistrict)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if own.Owner != "0xA" || own.AcquisitionCost != 100 {
		t.Fatalf("claim record: %+v", own)
	}
	got, found := r.OwnershipOf(5)
	if !found || got.Owner != "0xA" {
		t.Fatalf("ownership after claim: %+v found=%v", got, found)
	}
}

func TestClaimExclusivity(t *testing.T) {
	r := claimed(t, 5, "0xA")
	if _, err := r.Claim(5, "0xB", testDistrict); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("second claim: want ErrAlreadyOwned, got %v", err)
	}
	own, _ := r.OwnershipOf(5)
	if own.Owner != "0xA" {
		t.Fatalf("ownership changed by failed claim: %+v", own)
	}
	if n := len(r.RecentEvents(10)); n != 1 {
		t.Fatalf("failed claim appended an event: %d events", n)
	}
}

func TestListRequiresOwnership(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.ListForSale(5, "0xA", 100, testDistrict); !errors.Is(err, ErrNotFound) {
		t.Fatalf("list unowned: want ErrNotFound, got %v", err)
	}

	r = claimed(t, 5, "0xA")
	if _, err := r.ListForSale(5, "0xB", 100, testDistrict); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("list by stranger: want ErrNotOwner, got %v", err)
	}
	if _, err := r.ListForSale(5, "0xA", 0, testDistrict); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("zero price: want ErrInvalidPrice, got %v", err)
	}
	if _, err := r.ListForSale(5, "0xA", -10, testDistrict); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("negative price: want ErrInvalidPrice, got %v", err)
	}
}

func TestListingSingleFlight(t *testing.T) {
	r := claimed(t, 5, "0xA")
	if _, err := r.ListForSale(5, "0xA", 100, testDistrict); err != nil {
		t.Fatalf("first list: %v", err)
	}
	if _, err := r.ListForSale(5, "0xA", 200, testDistrict); err != nil {
		t.Fatalf("relist: %v", err)
	}

	l, found := r.Listing(5)
	if !found || l.Price != 200 || l.Status != StatusActive {
		t.Fatalf("after relist: %+v found=%v", l, found)
	}
	if n := len(r.AllActiveListings()); n != 1 {
		t.Fatalf("active listings after relist: %d, want 1", n)
	}
	// Both listing actions are on the record even though only the latest
	// listing is queryable.
	events := r.RecentEvents(10)
	listed := 0
	for _, e := range events {
		if e.Type == EventListed {
			listed++
		}
	}
	if listed != 2 {
		t.Fatalf("LISTED events: %d, want 2", listed)
	}
}

func TestCancelListing(t *testing.T) {
	r := claimed(t, 5, "0xA")
	if err := r.CancelListing(5, "0xA", testDistrict); !errors.Is(err, ErrNoListing) {
		t.Fatalf("cancel without listing: want ErrNoListing, got %v", err)
	}

	if _, err := r.ListForSale(5, "0xA", 100, testDistrict); err != nil {
		t.Fatalf("list: %v", err)
	}
	if err := r.CancelListing(5, "0xB", testDistrict); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("cancel by stranger: want ErrNotOwner, got %v", err)
	}
	if err := r.CancelListing(5, "0xA", testDistrict); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, found := r.Listing(5); found {
		t.Fatalf("canceled listing still queryable")
	}
	if err := r.CancelListing(5, "0xA", testDistrict); !errors.Is(err, ErrNoListing) {
		t.Fatalf("double cancel: want ErrNoListing, got %v", err)
	}
}

func TestPurchase(t *testing.T) {
	r := claimed(t, 5, "0xA")
	if _, err := r.ListForSale(5, "0xA", 250, testDistrict); err != nil {
		t.Fatalf("list: %v", err)
	}

	if _, err := r.Purchase(5, "0xB", 200, testDistrict); !errors.Is(err, ErrPriceMismatch) {
		t.Fatalf("wrong price: want ErrPriceMismatch, got %v", err)
	}

	own, err := r.Purchase(5, "0xB", 250, testDistrict)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if own.Owner != "0xB" || own.AcquisitionCost != 250 {
		t.Fatalf("purchase record: %+v", own)
	}

	// Ownership exclusivity: seller no longer holds the parcel.
	if parcels := r.OwnedParcels("0xA"); len(parcels) != 0 {
		t.Fatalf("seller still owns %v", parcels)
	}
	if parcels := r.OwnedParcels("0xB"); len(parcels) != 1 || parcels[0] != 5 {
		t.Fatalf("buyer parcels: %v", parcels)
	}
	if _, found := r.Listing(5); found {
		t.Fatalf("fulfilled listing still queryable as active")
	}
	if _, err := r.Purchase(5, "0xC", 250, testDistrict); !errors.Is(err, ErrNoListing) {
		t.Fatalf("re-purchase: want ErrNoListing, got %v", err)
	}
}

func TestNoSelfTrade(t *testing.T) {
	r := claimed(t, 5, "0xA")
	if _, err := r.ListForSale(5, "0xA", 100, testDistrict); err != nil {
		t.Fatalf("list: %v", err)
	}
	before := len(r.RecentEvents(10))

	if _, err := r.Purchase(5, "0xA", 100, testDistrict); !errors.Is(err, ErrSelfTrade) {
		t.Fatalf("self trade: want ErrSelfTrade, got %v", err)
	}
	own, _ := r.OwnershipOf(5)
	if own.Owner != "0xA" {
		t.Fatalf("ownership changed by self trade: %+v", own)
	}
	for _, e := range r.RecentEvents(10) {
		if e.Type == EventSold {
			t.Fatalf("SOLD event appended for failed self trade")
		}
	}
	if len(r.RecentEvents(10)) != before {
		t.Fatalf("failed purchase appended an event")
	}
}

func TestOutOfRangeParcels(t *testing.T) {
	r := newTestRegistry()
	if _, err := r.Claim(grid.ParcelCount, "0xA", testDistrict); !errors.Is(err, grid.ErrOutOfRange) {
		t.Fatalf("claim out of range: got %v", err)
	}
	if _, err := r.ListForSale(-1, "0xA", 100, testDistrict); !errors.Is(err, grid.ErrOutOfRange) {
		t.Fatalf("list out of range: got %v", err)
	}
	if err := r.CancelListing(-1, "0xA", testDistrict); !errors.Is(err, grid.ErrOutOfRange) {
		t.Fatalf("cancel out of range: got %v", err)
	}
	if _, err := r.Purchase(grid.ParcelCount+7, "0xA", 100, testDistrict); !errors.Is(err, grid.ErrOutOfRange) {
		t.Fatalf("purchase out of range: got %v", err)
	}
}

func TestEventStateAgreement(t *testing.T) {
	r := newTestRegistry()

	if _, err := r.Claim(9, "0xA", testDistrict); err != nil {
		t.Fatalf("claim: %v", err)
	}
	e := r.RecentEvents(1)[0]
	if e.Type != EventClaimed || e.ParcelID != 9 || e.Actor != "0xA" || e.Price != 100 || e.DistrictID != testDistrict {
		t.Fatalf("claimed event: %+v", e)
	}

	if _, err := r.ListForSale(9, "0xA", 300, testDistrict); err != nil {
		t.Fatalf("list: %v", err)
	}
	e = r.RecentEvents(1)[0]
	if e.Type != EventListed || e.ParcelID != 9 || e.Actor != "0xA" || e.Price != 300 {
		t.Fatalf("listed event: %+v", e)
	}

	if err := r.CancelListing(9, "0xA", testDistrict); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	e = r.RecentEvents(1)[0]
	if e.Type != EventCanceled || e.Actor != "0xA" || e.Price != 0 {
		t.Fatalf("canceled event: %+v", e)
	}

	if _, err := r.ListForSale(9, "0xA", 400, testDistrict); err != nil {
		t.Fatalf("relist: %v", err)
	}
	if _, err := r.Purchase(9, "0xB", 400, testDistrict); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	e = r.RecentEvents(1)[0]
	if e.Type != EventSold || e.Actor != "0xA" || e.Counterparty != "0xB" || e.Price != 400 {
		t.Fatalf("sold event: %+v", e)
	}

	// One event per successful mutation, all distinct ids.
	events := r.RecentEvents(100)
	if len(events) != 5 {
		t.Fatalf("event count: %d, want 5", len(events))
	}
	seen := make(map[string]bool)
	for _, e := range events {
		if e.ID == "" || seen[e.ID] {
			t.Fatalf("event id not unique: %+v", e)
		}
		seen[e.ID] = true
	}
}

func TestEventLogTruncation(t *testing.T) {
	r := claimed(t, 3, "0xA")
	// Each relist appends one LISTED event.
	for i := 0; i < maxEvents+50; i++ {
		if _, err := r.ListForSale(3, "0xA", float64(i+1), testDistrict); err != nil {
			t.Fatalf("relist %d: %v", i, err)
		}
	}
	events := r.RecentEvents(maxEvents * 2)
	if len(events) != maxEvents {
		t.Fatalf("log length: %d, want %d", len(events), maxEvents)
	}
	// Newest first: the last relist price is at the head.
	if events[0].Price != float64(maxEvents+50) {
		t.Fatalf("head event price: %v", events[0].Price)
	}
}

func TestAllActiveListingsOrder(t *testing.T) {
	r := newTestRegistry()
	for _, p := range []int{10, 20, 30} {
		if _, err := r.Claim(p, "0xA", testDistrict); err != nil {
			t.Fatalf("claim %d: %v", p, err)
		}
		if _, err := r.ListForSale(p, "0xA", float64(p), testDistrict); err != nil {
			t.Fatalf("list %d: %v", p, err)
		}
	}

	got := r.AllActiveListings()
	if len(got) != 3 {
		t.Fatalf("listings: %d, want 3", len(got))
	}
	for i, want := range []int{30, 20, 10} {
		if got[i].ParcelID != want {
			t.Fatalf("order[%d]: got parcel %d, want %d", i, got[i].ParcelID, want)
		}
	}

	byOwner := r.ActiveListings("0xA")
	if len(byOwner) != 3 || byOwner[0].ParcelID != 30 {
		t.Fatalf("owner listings: %+v", byOwner)
	}
	if got := r.ActiveListings("0xB"); len(got) != 0 {
		t.Fatalf("stranger listings: %+v", got)
	}
}

func TestSubscribeFeed(t *testing.T) {
	r := newTestRegistry()
	feed, cancel := r.Subscribe()
	defer cancel()

	if _, err := r.Claim(4, "0xA", testDistrict); err != nil {
		t.Fatalf("claim: %v", err)
	}

	select {
	case e := <-feed:
		if e.Type != EventClaimed || e.ParcelID != 4 {
			t.Fatalf("feed event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event delivered to subscriber")
	}
}

func TestSnapshotRestore(t *testing.T) {
	r := claimed(t, 5, "0xA")
	if _, err := r.Claim(6, "0xB", testDistrict); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := r.ListForSale(5, "0xA", 150, testDistrict); err != nil {
		t.Fatalf("list: %v", err)
	}

	snap := r.Snapshot()
	if snap.SchemaVersion != SchemaVersion {
		t.Fatalf("schema version: %d", snap.SchemaVersion)
	}

	restored := newTestRegistry()
	restored.Restore(snap)

	own, found := restored.OwnershipOf(5)
	if !found || own.Owner != "0xA" {
		t.Fatalf("restored ownership: %+v found=%v", own, found)
	}
	l, found := restored.Listing(5)
	if !found || l.Price != 150 {
		t.Fatalf("restored listing: %+v found=%v", l, found)
	}
	if len(restored.RecentEvents(10)) != 3 {
		t.Fatalf("restored events: %d, want 3", len(restored.RecentEvents(10)))
	}

	// Listing sequence continues past the restored high-water mark.
	if _, err := restored.ListForSale(6, "0xB", 99, testDistrict); err != nil {
		t.Fatalf("list after restore: %v", err)
	}
	all := restored.AllActiveListings()
	if all[0].ParcelID != 6 {
		t.Fatalf("newest listing after restore: %+v", all[0])
	}
}

func TestRestoreEmptySnapshot(t *testing.T) {
	r := claimed(t, 5, "0xA")
	r.Restore(Snap{SchemaVersion: SchemaVersion})
	if _, found := r.OwnershipOf(5); found {
		t.Fatalf("ownership survived empty restore")
	}
	if len(r.RecentEvents(10)) != 0 {
		t.Fatalf("events survived empty restore")
	}
}

// End-to-end: claim, list, sell on the 40x40 grid, parcel 817.
func TestMarketplaceScenario(t *testing.T) {
	r := newTestRegistry()

	if _, found := r.OwnershipOf(817); found {
		t.Fatalf("parcel 817 should start unowned")
	}

	if _, err := r.Claim(817, "0xA", "DEFI"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	own, _ := r.OwnershipOf(817)
	if own.Owner != "0xA" {
		t.Fatalf("owner after claim: %+v", own)
	}

	if _, err := r.ListForSale(817, "0xA", 500, "DEFI"); err != nil {
		t.Fatalf("list: %v", err)
	}
	l, found := r.Listing(817)
	if !found || l.Price != 500 || l.Status != StatusActive {
		t.Fatalf("listing: %+v found=%v", l, found)
	}

	if _, err := r.Purchase(817, "0xB", 500, "DEFI"); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	own, _ = r.OwnershipOf(817)
	if own.Owner != "0xB" {
		t.Fatalf("owner after purchase: %+v", own)
	}

	e := r.RecentEvents(1)[0]
	if e.Type != EventSold || e.Actor != "0xA" || e.Counterparty != "0xB" || e.Price != 500 {
		t.Fatalf("sold event: %+v", e)
	}
	// The fulfilled listing is out of the active index but recorded in the
	// snapshot with its terminal status.
	snap := r.Snapshot()
	var rec *ListingRecord
	for i := range snap.Listings {
		if snap.Listings[i].ParcelID == 817 {
			rec = &snap.Listings[i]
		}
	}
	if rec == nil || rec.Status != StatusFulfilled {
		t.Fatalf("listing terminal status: %+v", rec)
	}
}
