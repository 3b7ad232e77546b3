package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hammerfall-games/hammerfall/internal/auction"
	"github.com/hammerfall-games/hammerfall/internal/economy"
	"github.com/hammerfall-games/hammerfall/internal/marketplace"
	"github.com/hammerfall-games/hammerfall/internal/users"
)

// CommandResult is echoed back through the comment channel, so every
// message must be short and displayable as-is.
type CommandResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UserDirectory resolves commenters to accounts.
type UserDirectory interface {
	EnsureAccount(ctx context.Context, username string) (*users.User, string, error)
}

// Auctioneer is the slice of the auction engine the command channel uses.
type Auctioneer interface {
	PlaceBid(ctx context.Context, cmd auction.PlaceBidCommand) (*auction.Bid, error)
}

// Bank is the slice of the economy service the command channel uses.
type Bank interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	Earn(ctx context.Context, userID uuid.UUID) (*economy.EarnResult, error)
}

// Market is the slice of the marketplace the command channel uses.
type Market interface {
	CreateListing(ctx context.Context, sellerID, itemID uuid.UUID, price int64) (*marketplace.Listing, error)
	BuyListing(ctx context.Context, buyerID, listingID uuid.UUID) error
}

// Processor parses scripted comment commands and dispatches them.
type Processor struct {
	userDir    UserDirectory
	auctioneer Auctioneer
	bank       Bank
	market     Market
	logger     *slog.Logger
}

// NewProcessor creates a new command processor
func NewProcessor(userDir UserDirectory, auctioneer Auctioneer, bank Bank, market Market, logger *slog.Logger) *Processor {
	return &Processor{
		userDir:    userDir,
		auctioneer: auctioneer,
		bank:       bank,
		market:     market,
		logger:     logger,
	}
}

// Process handles one comment. auctionID carries the auction the comment
// was posted under, when there is one.
func (p *Processor) Process(ctx context.Context, username, text string, auctionID *uuid.UUID) CommandResult {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(parts) == 0 {
		return CommandResult{Success: false, Message: `Unknown command. Type "help" for commands.`}
	}
	command, args := parts[0], parts[1:]

	user, passwordRaw, err := p.userDir.EnsureAccount(ctx, username)
	if err != nil {
		p.logger.Error("failed to resolve commenter account", "username", username, "error", err)
		return CommandResult{Success: false, Message: "Something went wrong, try again later"}
	}
	if passwordRaw != "" {
		// First contact: the generated password is the user's only way
		// into the dashboard, so it goes to the operator log for manual
		// delivery. There is no other channel back to the commenter.
		p.logger.Info("created account from comment channel",
			"username", username, "password", passwordRaw)
	}

	switch command {
	case "bid":
		return p.handleBid(ctx, user, args, auctionID)
	case "balance":
		return p.handleBalance(ctx, user)
	case "earn":
		return p.handleEarn(ctx, user)
	case "buy":
		return p.handleBuy(ctx, user, args)
	case "sell":
		return p.handleSell(ctx, user, args)
	case "help":
		return CommandResult{Success: true, Message: "Commands: bid <amount>, balance, earn, buy <listing>, sell <item> <price>, help"}
	default:
		return CommandResult{Success: false, Message: `Unknown command. Type "help" for commands.`}
	}
}

func (p *Processor) handleBid(ctx context.Context, user *users.User, args []string, auctionID *uuid.UUID) CommandResult {
	if len(args) == 0 {
		return CommandResult{Success: false, Message: "Invalid bid amount"}
	}
	amount, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return CommandResult{Success: false, Message: "Invalid bid amount"}
	}
	if auctionID == nil {
		return CommandResult{Success: false, Message: "No auction specified. Please comment on a specific auction post."}
	}

	_, err = p.auctioneer.PlaceBid(ctx, auction.PlaceBidCommand{
		AuctionID: *auctionID,
		UserID:    user.ID,
		Amount:    amount,
	})
	if err != nil {
		return CommandResult{Success: false, Message: p.bidRejectionMessage(err, *auctionID)}
	}
	return CommandResult{Success: true, Message: "Bid placed"}
}

// bidRejectionMessage maps admission errors to channel-friendly text.
// Rejections are expected outcomes and are not logged as errors.
func (p *Processor) bidRejectionMessage(err error, auctionID uuid.UUID) string {
	var tooLow *auction.BidTooLowError
	switch {
	case errors.As(err, &tooLow):
		return fmt.Sprintf("Bid must be higher than %d", tooLow.CurrentMax)
	case errors.Is(err, auction.ErrAuctionNotFound):
		return "Auction not found"
	case errors.Is(err, auction.ErrAuctionEnded):
		return "Auction ended"
	case errors.Is(err, auction.ErrInsufficientFunds):
		return "Insufficient funds"
	case errors.Is(err, auction.ErrInvalidBidAmount):
		return "Invalid bid amount"
	default:
		p.logger.Error("bid failed", "auction_id", auctionID, "error", err)
		return "Bid failed"
	}
}

func (p *Processor) handleBalance(ctx context.Context, user *users.User) CommandResult {
	balance, err := p.bank.GetBalance(ctx, user.ID)
	if err != nil {
		p.logger.Error("failed to fetch balance", "user_id", user.ID, "error", err)
		return CommandResult{Success: false, Message: "Failed to fetch balance"}
	}
	return CommandResult{Success: true, Message: fmt.Sprintf("Balance for @%s: $%d", user.Username, balance)}
}

func (p *Processor) handleEarn(ctx context.Context, user *users.User) CommandResult {
	result, err := p.bank.Earn(ctx, user.ID)
	if err != nil {
		if errors.Is(err, economy.ErrAlreadyEarnedToday) {
			return CommandResult{Success: false, Message: "You have already earned your daily reward today!"}
		}
		p.logger.Error("failed to process earn command", "user_id", user.ID, "error", err)
		return CommandResult{Success: false, Message: "Failed to process earn command"}
	}
	return CommandResult{Success: true, Message: fmt.Sprintf("Earned $%d (Streak: %d days)", result.Amount, result.Streak)}
}

func (p *Processor) handleBuy(ctx context.Context, user *users.User, args []string) CommandResult {
	if len(args) == 0 {
		return CommandResult{Success: false, Message: "Usage: buy <listing>"}
	}
	listingID, err := uuid.Parse(args[0])
	if err != nil {
		return CommandResult{Success: false, Message: "Invalid listing id"}
	}

	if err := p.market.BuyListing(ctx, user.ID, listingID); err != nil {
		switch {
		case errors.Is(err, marketplace.ErrListingNotFound):
			return CommandResult{Success: false, Message: "Listing not found or not active"}
		case errors.Is(err, marketplace.ErrOwnListing):
			return CommandResult{Success: false, Message: "Cannot buy your own item"}
		case errors.Is(err, economy.ErrInsufficientFunds):
			return CommandResult{Success: false, Message: "Insufficient funds"}
		case errors.Is(err, marketplace.ErrSellerMissingItem):
			return CommandResult{Success: false, Message: "Seller no longer has the item"}
		default:
			p.logger.Error("buy failed", "listing_id", listingID, "error", err)
			return CommandResult{Success: false, Message: "Purchase failed"}
		}
	}
	return CommandResult{Success: true, Message: "Purchase complete"}
}

func (p *Processor) handleSell(ctx context.Context, user *users.User, args []string) CommandResult {
	if len(args) < 2 {
		return CommandResult{Success: false, Message: "Usage: sell <item> <price>"}
	}
	itemID, err := uuid.Parse(args[0])
	if err != nil {
		return CommandResult{Success: false, Message: "Invalid item id"}
	}
	price, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || price <= 0 {
		return CommandResult{Success: false, Message: "Invalid price"}
	}

	listing, err := p.market.CreateListing(ctx, user.ID, itemID, price)
	if err != nil {
		if errors.Is(err, marketplace.ErrNotOwner) {
			return CommandResult{Success: false, Message: "You do not own this item"}
		}
		p.logger.Error("sell failed", "item_id", itemID, "error", err)
		return CommandResult{Success: false, Message: "Failed to create listing"}
	}
	return CommandResult{Success: true, Message: fmt.Sprintf("Listed for $%d (listing %s)", price, listing.ID)}
}
