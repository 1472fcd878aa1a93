package realtime

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/scraplink/chatcore/internal/metrics"
)

const (
	// sendBuffer bounds the per-connection queue. When it is full the event
	// is dropped for that connection; publishing never blocks on a slow
	// subscriber. A dropped client recovers on its next listing fetch.
	sendBuffer = 16

	outboundBuffer = 256
)

// client is one open push channel. A user with several tabs holds several
// clients; publishing fans out to all of them.
type client struct {
	id     string
	userID int
	send   chan []byte
}

func newClient(userID int) *client {
	return &client{
		id:     uuid.NewString(),
		userID: userID,
		send:   make(chan []byte, sendBuffer),
	}
}

type envelope struct {
	userID  int
	payload []byte
}

// Hub owns the registry of open channels. All registry mutation happens on
// the Run goroutine; handlers talk to it through channels only.
type Hub struct {
	register   chan *client
	unregister chan *client
	outbound   chan envelope

	clients map[int]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		outbound:   make(chan envelope, outboundBuffer),
		clients:    make(map[int]map[*client]struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			if h.clients[c.userID] == nil {
				h.clients[c.userID] = make(map[*client]struct{})
			}
			h.clients[c.userID][c] = struct{}{}
			metrics.RealtimeConnections.Inc()

		case c := <-h.unregister:
			if conns, ok := h.clients[c.userID]; ok {
				if _, ok := conns[c]; ok {
					delete(conns, c)
					if len(conns) == 0 {
						delete(h.clients, c.userID)
					}
					close(c.send)
					metrics.RealtimeConnections.Dec()
				}
			}

		case e := <-h.outbound:
			for c := range h.clients[e.userID] {
				select {
				case c.send <- e.payload:
				default:
					// Slow subscriber: drop the event, keep the connection.
					metrics.EventsDropped.Inc()
					log.Printf("realtime: dropping event for user %d (conn %s buffer full)", e.userID, c.id)
				}
			}
		}
	}
}

// Publish is best-effort: if the user has no open channel the event is
// simply not delivered (no durable outbox; the client's next fetch is
// authoritative). Never blocks the caller.
func (h *Hub) Publish(userID int, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("realtime: marshal %s event: %v", ev.Type, err)
		return
	}
	metrics.EventsPublished.WithLabelValues(ev.Type).Inc()

	select {
	case h.outbound <- envelope{userID: userID, payload: payload}:
	default:
		metrics.EventsDropped.Inc()
		log.Printf("realtime: outbound queue full, dropping %s event for user %d", ev.Type, userID)
	}
}
