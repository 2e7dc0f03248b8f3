// Property-based tests for currency conservation across the economy.
package service

import (
	"context"
	"errors"
	"testing"

	"pgregory.net/rapid"

	"terminusa/internal/game/combat"
	"terminusa/internal/game/dice"
	"terminusa/internal/model"
)

// isBusinessError reports whether err is an expected, recoverable rejection.
func isBusinessError(err error) bool {
	for _, target := range []error{
		model.ErrInsufficientFunds,
		model.ErrInsufficientQuantity,
		model.ErrInvalidArgument,
		model.ErrNotFound,
		model.ErrNotListingOwner,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// TestConservationOfCurrencyProperty runs random operation sequences and checks
// that total currency moves only by rewards, penalties and direct
// credits/debits, that every balance equals its ledger sum, and that no
// inventory quantity is ever non-positive.
func TestConservationOfCurrencyProperty(t *testing.T) {
	handles := []string{"nova", "orion", "vega"}

	rapid.Check(t, func(rt *rapid.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		for _, h := range handles {
			env.register(t, h)
		}
		expected := int64(len(handles)) * model.DefaultInitialBalance
		seed := rapid.Uint64().Draw(rt, "seed")
		d := dice.NewSeeded(seed)

		steps := rapid.IntRange(1, 25).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			actor := rapid.SampledFrom(handles).Draw(rt, "actor")
			var err error
			switch rapid.IntRange(0, 6).Draw(rt, "op") {
			case 0:
				amount := rapid.Int64Range(-5, 80).Draw(rt, "credit")
				if _, err = env.accounts.Credit(ctx, actor, amount); err == nil {
					expected += amount
				}
			case 1:
				amount := rapid.Int64Range(-5, 200).Draw(rt, "debit")
				if _, err = env.accounts.Debit(ctx, actor, amount); err == nil {
					expected -= amount
				}
			case 2:
				var res *MineResult
				if res, err = env.mining.Mine(ctx, actor, d); err == nil {
					expected += res.Reward
				}
			case 3:
				qty := rapid.Int64Range(0, 60).Draw(rt, "qty")
				price := rapid.Int64Range(0, 20).Draw(rt, "price")
				_, err = env.market.CreateListing(ctx, actor, model.ItemCore, qty, price)
			case 4, 5:
				var open []model.Listing
				open, err = env.market.ListOpen(ctx, "")
				if err != nil || len(open) == 0 {
					break
				}
				l := rapid.SampledFrom(open).Draw(rt, "listing")
				if rapid.Bool().Draw(rt, "cancel") {
					err = env.market.CancelListing(ctx, actor, l.ID)
				} else {
					_, err = env.market.Purchase(ctx, actor, l.ID)
				}
			case 6:
				var out *CombatOutcome
				if out, err = env.combat.ResolveCombat(ctx, actor, d, combat.RetreatBelow(30)); err == nil {
					expected += out.Reward - out.Penalty
				}
			}
			if err != nil && !isBusinessError(err) {
				rt.Fatalf("Unexpected error at step %d: %v", i, err)
			}

			var total int64
			for _, h := range handles {
				a, err := env.accounts.Load(ctx, h)
				if err != nil {
					rt.Fatalf("Load %s: %v", h, err)
				}
				if a.Balance < 0 {
					rt.Fatalf("Negative balance for %s: %d", h, a.Balance)
				}
				if sum := env.ledgerSum(t, h); sum != a.Balance {
					rt.Fatalf("Ledger of %s sums to %d, balance is %d", h, sum, a.Balance)
				}
				for item, qty := range a.Inventory {
					if qty <= 0 {
						rt.Fatalf("Non-positive quantity %d of %s for %s", qty, item, h)
					}
				}
				total += a.Balance
			}
			if total != expected {
				rt.Fatalf("Total currency %d, expected %d after step %d", total, expected, i)
			}
		}
	})
}

// TestPurchaseTransferProperty checks that a purchase moves exactly
// price*quantity between the two parties or, when unaffordable, nothing.
func TestPurchaseTransferProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		env := newTestEnv(t)
		ctx := context.Background()
		env.register(t, "nova")
		env.register(t, "orion")

		buyerBalance := rapid.Int64Range(0, 500).Draw(rt, "buyerBalance")
		qty := rapid.Int64Range(1, 20).Draw(rt, "qty")
		price := rapid.Int64Range(1, 50).Draw(rt, "price")
		env.setBalance(t, "orion", buyerBalance)

		if _, err := env.accounts.AddItem(ctx, "nova", "ore", qty); err != nil {
			rt.Fatalf("AddItem: %v", err)
		}
		id, err := env.market.CreateListing(ctx, "nova", "ore", qty, price)
		if err != nil {
			rt.Fatalf("CreateListing: %v", err)
		}

		_, err = env.market.Purchase(ctx, "orion", id)
		buyer, seller := env.load(t, "orion"), env.load(t, "nova")
		total := price * qty

		if buyer.Balance+seller.Balance != buyerBalance+model.DefaultInitialBalance {
			rt.Fatalf("Trade changed total currency: %d + %d", buyer.Balance, seller.Balance)
		}
		open, lerr := env.market.ListOpen(ctx, "")
		if lerr != nil {
			rt.Fatalf("ListOpen: %v", lerr)
		}

		if buyerBalance >= total {
			if err != nil {
				rt.Fatalf("Affordable purchase failed: %v", err)
			}
			if buyer.Balance != buyerBalance-total || buyer.Inventory.Quantity("ore") != qty || len(open) != 0 {
				rt.Fatalf("Incomplete transfer: buyer=%+v open=%d", buyer, len(open))
			}
			return
		}
		if !errors.Is(err, model.ErrInsufficientFunds) {
			rt.Fatalf("Expected ErrInsufficientFunds, got %v", err)
		}
		if buyer.Balance != buyerBalance || buyer.Inventory.Quantity("ore") != 0 || len(open) != 1 {
			rt.Fatalf("Failed purchase changed state: buyer=%+v open=%d", buyer, len(open))
		}
	})
}
