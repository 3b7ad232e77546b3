package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hammerfall-games/hammerfall/internal/auction"
)

// Admission verdicts returned by the Lua script.
const (
	scriptAccepted = 0
	scriptNotFound = 1
	scriptEnded    = 2
	scriptTooLow   = 3
)

// submitBidScript runs the whole check-then-act admission sequence server
// side, so concurrent bids against one auction are serialized by Redis:
// existence, end time, strictly-greater against max(top of zset, starting
// price), then ZADD (member = bidder, score = amount, so a bidder's new
// bid replaces their previous entry). Returns {verdict, currentMax}.
var submitBidScript = redis.NewScript(`
local info = KEYS[1]
local bids = KEYS[2]
local now = tonumber(ARGV[1])
local amount = tonumber(ARGV[2])
local bidder = ARGV[3]

local end_time = redis.call('HGET', info, 'end_time')
if not end_time then
    return {1, 0}
end
if now > tonumber(end_time) then
    return {2, 0}
end

local top = redis.call('ZRANGE', bids, -1, -1, 'WITHSCORES')
local max
if #top > 0 then
    max = tonumber(top[2])
else
    max = tonumber(redis.call('HGET', info, 'starting_price') or '0')
end

if amount <= max then
    return {3, max}
end

redis.call('ZADD', bids, amount, bidder)
return {0, amount}
`)

// RedisBidCache implements auction.BidCache on Redis: a hash for auction
// metadata and a sorted set of (bidder, amount) for the bid ladder.
type RedisBidCache struct {
	rdb *redis.Client
}

// NewRedisBidCache creates a new Redis-backed bid cache.
func NewRedisBidCache(rdb *redis.Client) *RedisBidCache {
	return &RedisBidCache{rdb: rdb}
}

func infoKey(auctionID uuid.UUID) string {
	return fmt.Sprintf("auction:%s:info", auctionID)
}

func bidsKey(auctionID uuid.UUID) string {
	return fmt.Sprintf("auction:%s:bids", auctionID)
}

// Seed creates the cached state for a newly started auction.
func (c *RedisBidCache) Seed(ctx context.Context, au *auction.Auction) error {
	err := c.rdb.HSet(ctx, infoKey(au.ID), map[string]any{
		"item_id":        au.ItemID.String(),
		"end_time":       strconv.FormatInt(au.EndTime.UnixMilli(), 10),
		"starting_price": strconv.FormatInt(au.CurrentBid, 10),
		"active":         "1",
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to seed auction hash: %w", err)
	}
	return nil
}

// Info returns the cached metadata, or nil if the auction is not cached.
func (c *RedisBidCache) Info(ctx context.Context, auctionID uuid.UUID) (*auction.CachedAuction, error) {
	vals, err := c.rdb.HGetAll(ctx, infoKey(auctionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read auction hash: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	itemID, err := uuid.Parse(vals["item_id"])
	if err != nil {
		return nil, fmt.Errorf("corrupt item_id in auction hash: %w", err)
	}
	endMillis, err := strconv.ParseInt(vals["end_time"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt end_time in auction hash: %w", err)
	}
	startingPrice, err := strconv.ParseInt(vals["starting_price"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt starting_price in auction hash: %w", err)
	}

	return &auction.CachedAuction{
		AuctionID:     auctionID,
		ItemID:        itemID,
		EndTime:       time.UnixMilli(endMillis),
		StartingPrice: startingPrice,
	}, nil
}

// TopBid returns the highest cached bid, or nil if there is none.
func (c *RedisBidCache) TopBid(ctx context.Context, auctionID uuid.UUID) (*auction.TopBid, error) {
	zs, err := c.rdb.ZRevRangeWithScores(ctx, bidsKey(auctionID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read bid set: %w", err)
	}
	if len(zs) == 0 {
		return nil, nil
	}

	member, ok := zs[0].Member.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected member type in bid set")
	}
	userID, err := uuid.Parse(member)
	if err != nil {
		return nil, fmt.Errorf("corrupt bidder id in bid set: %w", err)
	}

	return &auction.TopBid{UserID: userID, Amount: int64(zs[0].Score)}, nil
}

// SubmitBid executes the atomic admission script.
func (c *RedisBidCache) SubmitBid(ctx context.Context, auctionID, userID uuid.UUID, amount int64, now time.Time) (auction.AdmissionResult, error) {
	raw, err := submitBidScript.Run(ctx, c.rdb,
		[]string{infoKey(auctionID), bidsKey(auctionID)},
		now.UnixMilli(), amount, userID.String(),
	).Result()
	if err != nil {
		return auction.AdmissionResult{}, fmt.Errorf("failed to run admission script: %w", err)
	}

	reply, ok := raw.([]any)
	if !ok || len(reply) != 2 {
		return auction.AdmissionResult{}, fmt.Errorf("unexpected admission script reply: %v", raw)
	}
	verdict, ok1 := reply[0].(int64)
	currentMax, ok2 := reply[1].(int64)
	if !ok1 || !ok2 {
		return auction.AdmissionResult{}, fmt.Errorf("unexpected admission script reply: %v", raw)
	}

	res := auction.AdmissionResult{CurrentMax: currentMax}
	switch verdict {
	case scriptAccepted:
		res.Status = auction.AdmissionAccepted
	case scriptNotFound:
		res.Status = auction.AdmissionNotFound
	case scriptEnded:
		res.Status = auction.AdmissionEnded
	case scriptTooLow:
		res.Status = auction.AdmissionTooLow
	default:
		return auction.AdmissionResult{}, fmt.Errorf("unknown admission verdict %d", verdict)
	}
	return res, nil
}

// Clear deletes both the metadata hash and the bid set. Deleting absent
// keys is a no-op, which keeps resolution cleanup idempotent.
func (c *RedisBidCache) Clear(ctx context.Context, auctionID uuid.UUID) error {
	if err := c.rdb.Del(ctx, infoKey(auctionID), bidsKey(auctionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete auction keys: %w", err)
	}
	return nil
}
