package service

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"terminusa/internal/model"
	"terminusa/internal/repository"
)

// PurchaseResult describes a completed trade.
type PurchaseResult struct {
	Listing       model.Listing
	Total         int64
	BuyerBalance  int64
	SellerBalance int64
	// First trade milestone newly unlocked for either side.
	BuyerAchievement  bool
	SellerAchievement bool
}

// MarketService is the player marketplace. Listed goods leave the seller's
// inventory when the listing is created, so a listing can be bought at most once.
type MarketService struct {
	base
}

// NewMarketService creates a new MarketService instance.
func NewMarketService(store repository.Store, opts ...Option) *MarketService {
	return &MarketService{base: newBase(store, opts)}
}

// CreateListing moves qty of item out of seller's inventory into a new listing.
func (s *MarketService) CreateListing(ctx context.Context, seller, item string, qty, unitPrice int64) (int64, error) {
	if err := validateStruct(listingRequest{Item: item, Quantity: qty, UnitPrice: unitPrice}); err != nil {
		return 0, err
	}
	if _, err := totalPrice(unitPrice, qty); err != nil {
		return 0, err
	}

	var id int64
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		if _, err := tx.GetAccount(ctx, seller); err != nil {
			return err
		}
		if _, err := removeItem(ctx, tx, seller, item, qty); err != nil {
			return err
		}
		var err error
		id, err = tx.InsertListing(ctx, &model.Listing{
			Seller:    seller,
			Item:      item,
			UnitPrice: unitPrice,
			Quantity:  qty,
			ListedAt:  s.now(),
		})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list %d %s for %s: %w", qty, item, seller, err)
	}

	log.Info().Str("handle", seller).Int64("listing_id", id).Str("item", item).
		Int64("quantity", qty).Int64("unit_price", unitPrice).Msg("Listing created")
	return id, nil
}

// ListOpen returns every open listing by id, leaving out excludeSeller's own
// when it is not empty.
func (s *MarketService) ListOpen(ctx context.Context, excludeSeller string) ([]model.Listing, error) {
	var listings []model.Listing
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		var err error
		listings, err = tx.ListListings(ctx, excludeSeller)
		return err
	})
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// MyListings returns the open listings of seller.
func (s *MarketService) MyListings(ctx context.Context, seller string) ([]model.Listing, error) {
	var listings []model.Listing
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		if _, err := tx.GetAccount(ctx, seller); err != nil {
			return err
		}
		var err error
		listings, err = tx.ListListingsBySeller(ctx, seller)
		return err
	})
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// Purchase buys a whole listing: the buyer pays unit price times quantity to
// the seller, receives the goods and the listing is deleted. Either every step
// commits or none does.
func (s *MarketService) Purchase(ctx context.Context, buyer string, listingID int64) (*PurchaseResult, error) {
	var result PurchaseResult
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		listing, err := tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.Seller == buyer {
			return fmt.Errorf("%w: %s cannot buy own listing %d", model.ErrInvalidArgument, buyer, listingID)
		}
		total, err := totalPrice(listing.UnitPrice, listing.Quantity)
		if err != nil {
			return err
		}

		accounts, err := lockAccounts(ctx, tx, buyer, listing.Seller)
		if err != nil {
			return err
		}
		b, sel := accounts[buyer], accounts[listing.Seller]

		now := s.now()
		desc := fmt.Sprintf("listing %d: %d %s", listing.ID, listing.Quantity, listing.Item)
		if err := adjustBalance(ctx, tx, b, -total, model.EntryPurchase, desc, now); err != nil {
			return err
		}
		if err := adjustBalance(ctx, tx, sel, total, model.EntrySale, desc, now); err != nil {
			return err
		}
		if _, err := addItem(ctx, tx, buyer, listing.Item, listing.Quantity); err != nil {
			return err
		}
		if err := tx.DeleteListing(ctx, listing.ID); err != nil {
			return err
		}
		if result.BuyerAchievement, err = unlockMilestone(ctx, tx, buyer, model.AchievementQuantumTrade, now); err != nil {
			return err
		}
		if result.SellerAchievement, err = unlockMilestone(ctx, tx, listing.Seller, model.AchievementQuantumTrade, now); err != nil {
			return err
		}

		result.Listing = *listing
		result.Total = total
		result.BuyerBalance = b.Balance
		result.SellerBalance = sel.Balance
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to purchase listing %d for %s: %w", listingID, buyer, err)
	}

	log.Info().Str("handle", buyer).Str("seller", result.Listing.Seller).
		Int64("listing_id", listingID).Int64("amount", result.Total).Msg("Listing purchased")
	return &result, nil
}

// CancelListing returns a listing's goods to its seller and deletes it.
// Only the seller may cancel.
func (s *MarketService) CancelListing(ctx context.Context, seller string, listingID int64) error {
	err := repository.WithTx(ctx, s.store, func(tx repository.Tx) error {
		listing, err := tx.GetListing(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.Seller != seller {
			return fmt.Errorf("listing %d: %w", listingID, model.ErrNotListingOwner)
		}
		a, err := tx.GetAccount(ctx, seller)
		if err != nil {
			return err
		}
		if _, err := addItem(ctx, tx, seller, listing.Item, listing.Quantity); err != nil {
			return err
		}
		a.UpdatedAt = s.now()
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		return tx.DeleteListing(ctx, listingID)
	})
	if err != nil {
		return fmt.Errorf("failed to cancel listing %d for %s: %w", listingID, seller, err)
	}

	log.Info().Str("handle", seller).Int64("listing_id", listingID).Msg("Listing cancelled")
	return nil
}

// totalPrice multiplies without overflowing int64.
func totalPrice(unitPrice, qty int64) (int64, error) {
	if unitPrice <= 0 || qty <= 0 {
		return 0, fmt.Errorf("%w: price %d x quantity %d", model.ErrInvalidArgument, unitPrice, qty)
	}
	if unitPrice > math.MaxInt64/qty {
		return 0, fmt.Errorf("%w: total of %d x %d overflows", model.ErrInvalidArgument, unitPrice, qty)
	}
	return unitPrice * qty, nil
}
