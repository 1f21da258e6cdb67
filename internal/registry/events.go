package registry

import "time"

// EventType tags an ownership/listing mutation in the event log.
type EventType string

const (
	EventListed   EventType = "LISTED"
	EventCanceled EventType = "CANCELED"
	EventSold     EventType = "SOLD"
	EventClaimed  EventType = "CLAIMED"
)

// Event is one immutable entry in the append-only mutation log. The shape
// is the external notification/analytics contract and is versioned
// independently of the registry's internal maps.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ParcelID     int       `json:"parcel_id"`
	DistrictID   string    `json:"district_id"`
	Type         EventType `json:"type"`
	Actor        string    `json:"actor"`
	Counterparty string    `json:"counterparty,omitempty"`
	Price        float64   `json:"price,omitempty"`
}

// maxEvents bounds the in-memory log: oldest entries drop first.
const maxEvents = 500

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls this far behind loses events rather than blocking mutations.
const subscriberBuffer = 64

type subscriber struct {
	id int
	ch chan Event
}

// Subscribe registers an event feed consumer. Every successful mutation is
// delivered to the returned channel; slow consumers drop events. The cancel
// func unregisters and closes the channel.
func (r *Registry) Subscribe() (<-chan Event, func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	r.nextSubID++
	sub := subscriber{id: r.nextSubID, ch: make(chan Event, subscriberBuffer)}
	r.subs = append(r.subs, sub)

	cancel := func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		for i, s := range r.subs {
			if s.id == sub.id {
				r.subs = append(r.subs[:i], r.subs[i+1:]...)
				close(s.ch)
				return
			}
		}
	}
	return sub.ch, cancel
}

func (r *Registry) publish(e Event) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, s := range r.subs {
		select {
		case s.ch <- e:
		default:
		}
	}
}
