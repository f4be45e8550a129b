package fanout

import (
	"sync"

	model "auction-house/internal/models"

	"github.com/shopspring/decimal"
)

// Event is the envelope delivered to live viewer sessions.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Session is one connected viewer. Deliver must never block; a session that
// cannot keep up drops events (delivery is at-most-once, fire-and-forget).
type Session interface {
	ID() string
	// UserID is empty for unauthenticated viewers.
	UserID() string
	Deliver(e Event)
}

// Publisher is the post-commit event sink handed to the bid coordinator and
// the settlement engine. Publishing never returns an error: a delivery
// failure must not be able to mask a committed result.
type Publisher interface {
	PublishBidAccepted(auctionID string, bid model.Bid, currentPrice decimal.Decimal)
	PublishBidRejected(auctionID, bidderID, reason string)
	PublishAuctionEnded(auctionID string, winnerID *string, finalPrice decimal.Decimal)
}

// room holds the live viewer sessions of one auction behind its own lock,
// independent of the storage row locks.
type room struct {
	mu      sync.Mutex
	members map[string]Session // key: sessionID
}

// Hub groups viewer sessions into per-auction rooms and fans events out to
// them. It implements Publisher.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]*room               // key: auctionID
	sessions map[string]Session             // every connected session
	joined   map[string]map[string]struct{} // sessionID -> auctionIDs joined
}

// NewHub creates an empty fan-out hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]*room),
		sessions: make(map[string]Session),
		joined:   make(map[string]map[string]struct{}),
	}
}

// Register adds a connected session to the hub before it joins any room.
func (h *Hub) Register(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID()] = s
}

// Join adds a session to an auction room and broadcasts the new viewer
// count to every member, the joiner included. Returns the viewer count.
func (h *Hub) Join(auctionID string, s Session) int {
	h.mu.Lock()
	h.sessions[s.ID()] = s
	r, ok := h.rooms[auctionID]
	if !ok {
		r = &room{members: make(map[string]Session)}
		h.rooms[auctionID] = r
	}
	rooms, ok := h.joined[s.ID()]
	if !ok {
		rooms = make(map[string]struct{})
		h.joined[s.ID()] = rooms
	}
	rooms[auctionID] = struct{}{}
	h.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[s.ID()] = s
	count := len(r.members)
	r.deliverLocked(Event{
		Type:    model.EventViewerJoined,
		Payload: model.ViewerEvent{AuctionID: auctionID, ViewerCount: count},
	})
	return count
}

// Leave removes a session from an auction room and broadcasts the new
// viewer count to the remaining members.
func (h *Hub) Leave(auctionID, sessionID string) {
	h.mu.Lock()
	r := h.rooms[auctionID]
	if rooms, ok := h.joined[sessionID]; ok {
		delete(rooms, auctionID)
	}
	h.mu.Unlock()

	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[sessionID]; !ok {
		return
	}
	delete(r.members, sessionID)
	r.deliverLocked(Event{
		Type:    model.EventViewerLeft,
		Payload: model.ViewerEvent{AuctionID: auctionID, ViewerCount: len(r.members)},
	})
}

// Disconnect removes a session from every room it joined and forgets it.
func (h *Hub) Disconnect(sessionID string) {
	h.mu.Lock()
	rooms := h.joined[sessionID]
	delete(h.joined, sessionID)
	delete(h.sessions, sessionID)
	auctionIDs := make([]string, 0, len(rooms))
	for id := range rooms {
		auctionIDs = append(auctionIDs, id)
	}
	h.mu.Unlock()

	for _, auctionID := range auctionIDs {
		h.mu.Lock()
		r := h.rooms[auctionID]
		h.mu.Unlock()
		if r == nil {
			continue
		}
		r.mu.Lock()
		if _, ok := r.members[sessionID]; ok {
			delete(r.members, sessionID)
			r.deliverLocked(Event{
				Type:    model.EventViewerLeft,
				Payload: model.ViewerEvent{AuctionID: auctionID, ViewerCount: len(r.members)},
			})
		}
		r.mu.Unlock()
	}
}

// ViewerCount returns the number of sessions currently in a room.
func (h *Hub) ViewerCount(auctionID string) int {
	h.mu.RLock()
	r := h.rooms[auctionID]
	h.mu.RUnlock()
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// PublishBidAccepted broadcasts an accepted bid to the auction's room.
func (h *Hub) PublishBidAccepted(auctionID string, bid model.Bid, currentPrice decimal.Decimal) {
	h.broadcast(auctionID, Event{
		Type: model.EventBidAccepted,
		Payload: model.BidAcceptedEvent{
			AuctionID:    auctionID,
			Bid:          bid,
			CurrentPrice: currentPrice,
			ViewerCount:  h.ViewerCount(auctionID),
		},
	})
}

// PublishBidRejected delivers a rejection only to the sessions
// authenticated as the rejected bidder.
func (h *Hub) PublishBidRejected(auctionID, bidderID, reason string) {
	if bidderID == "" {
		return
	}

	h.mu.RLock()
	targets := make([]Session, 0, 1)
	for _, s := range h.sessions {
		if s.UserID() == bidderID {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	e := Event{
		Type:    model.EventBidRejected,
		Payload: model.BidRejectedEvent{AuctionID: auctionID, Reason: reason},
	}
	for _, s := range targets {
		s.Deliver(e)
	}
}

// PublishAuctionEnded broadcasts the settlement outcome to the room.
func (h *Hub) PublishAuctionEnded(auctionID string, winnerID *string, finalPrice decimal.Decimal) {
	h.broadcast(auctionID, Event{
		Type: model.EventAuctionEnded,
		Payload: model.AuctionEndedEvent{
			AuctionID:  auctionID,
			WinnerID:   winnerID,
			FinalPrice: finalPrice,
		},
	})
}

func (h *Hub) broadcast(auctionID string, e Event) {
	h.mu.RLock()
	r := h.rooms[auctionID]
	h.mu.RUnlock()
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliverLocked(e)
}

func (r *room) deliverLocked(e Event) {
	for _, s := range r.members {
		s.Deliver(e)
	}
}
