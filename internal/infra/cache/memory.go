package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammerfall-games/hammerfall/internal/auction"
)

type memoryEntry struct {
	mu            sync.Mutex
	itemID        uuid.UUID
	endTime       time.Time
	startingPrice int64
	bids          map[uuid.UUID]int64
}

// MemoryBidCache implements auction.BidCache in process, with a mutex per
// auction serializing the read-compare-write sequence. Suitable for
// single-process deployments and tests.
type MemoryBidCache struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]*memoryEntry
}

// NewMemoryBidCache creates an empty in-process bid cache.
func NewMemoryBidCache() *MemoryBidCache {
	return &MemoryBidCache{auctions: make(map[uuid.UUID]*memoryEntry)}
}

func (c *MemoryBidCache) entry(auctionID uuid.UUID) *memoryEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auctions[auctionID]
}

func (c *MemoryBidCache) Seed(_ context.Context, au *auction.Auction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auctions[au.ID] = &memoryEntry{
		itemID:        au.ItemID,
		endTime:       au.EndTime,
		startingPrice: au.CurrentBid,
		bids:          make(map[uuid.UUID]int64),
	}
	return nil
}

func (c *MemoryBidCache) Info(_ context.Context, auctionID uuid.UUID) (*auction.CachedAuction, error) {
	e := c.entry(auctionID)
	if e == nil {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return &auction.CachedAuction{
		AuctionID:     auctionID,
		ItemID:        e.itemID,
		EndTime:       e.endTime,
		StartingPrice: e.startingPrice,
	}, nil
}

func (c *MemoryBidCache) TopBid(_ context.Context, auctionID uuid.UUID) (*auction.TopBid, error) {
	e := c.entry(auctionID)
	if e == nil {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.topLocked(), nil
}

func (e *memoryEntry) topLocked() *auction.TopBid {
	var top *auction.TopBid
	for userID, amount := range e.bids {
		if top == nil || amount > top.Amount {
			top = &auction.TopBid{UserID: userID, Amount: amount}
		}
	}
	return top
}

func (c *MemoryBidCache) SubmitBid(_ context.Context, auctionID, userID uuid.UUID, amount int64, now time.Time) (auction.AdmissionResult, error) {
	e := c.entry(auctionID)
	if e == nil {
		return auction.AdmissionResult{Status: auction.AdmissionNotFound}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if now.After(e.endTime) {
		return auction.AdmissionResult{Status: auction.AdmissionEnded}, nil
	}

	currentMax := e.startingPrice
	if top := e.topLocked(); top != nil {
		currentMax = top.Amount
	}
	if amount <= currentMax {
		return auction.AdmissionResult{Status: auction.AdmissionTooLow, CurrentMax: currentMax}, nil
	}

	e.bids[userID] = amount
	return auction.AdmissionResult{Status: auction.AdmissionAccepted, CurrentMax: amount}, nil
}

func (c *MemoryBidCache) Clear(_ context.Context, auctionID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.auctions, auctionID)
	return nil
}
