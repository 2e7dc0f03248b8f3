// Package model defines the records of the Terminusa economy core.
package model

import (
	"sort"
	"time"
)

// Account defaults applied at registration.
const (
	DefaultLevel          = 1
	DefaultInitialBalance = 100
	MaxHealth             = 100
)

// ItemCore is the resource granted by mining and combat rewards.
const ItemCore = "core"

// Account represents a registered player.
type Account struct {
	Handle           string    `db:"handle"`
	CredentialDigest string    `db:"credential_digest"`
	Level            int       `db:"level"`
	Balance          int64     `db:"balance"`
	Health           int       `db:"health"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`

	// Inventory is populated by loaders that need it; nil otherwise.
	Inventory Inventory `db:"-"`
}

// Inventory maps an item name to a strictly positive quantity.
type Inventory map[string]int64

// Quantity returns how many of item are held (0 if absent).
func (inv Inventory) Quantity(item string) int64 {
	return inv[item]
}

// Items returns the item names in lexical order.
func (inv Inventory) Items() []string {
	names := make([]string, 0, len(inv))
	for name := range inv {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy with zero and negative entries dropped.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for name, qty := range inv {
		if qty > 0 {
			out[name] = qty
		}
	}
	return out
}

// Listing is an open sell offer. Its quantity has already been removed
// from the seller's inventory.
type Listing struct {
	ID        int64     `db:"listing_id"`
	Seller    string    `db:"seller"`
	Item      string    `db:"item_name"`
	UnitPrice int64     `db:"unit_price"`
	Quantity  int64     `db:"quantity"`
	ListedAt  time.Time `db:"listed_at"`
}

// Achievement is a static catalog entry.
type Achievement struct {
	ID          int    `db:"achievement_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
}

// UnlockedAchievement is an achievement joined with the time it was unlocked.
type UnlockedAchievement struct {
	AchievementID int       `db:"achievement_id"`
	Name          string    `db:"name"`
	Description   string    `db:"description"`
	UnlockedAt    time.Time `db:"unlocked_at"`
}

// Milestone achievement ids seeded into the catalog.
const (
	AchievementFirstCore       = 1 // first successful mine
	AchievementCorruptionPurge = 2 // first combat win
	AchievementQuantumTrade    = 3 // first completed marketplace trade
)

// AchievementCatalog is the seed data for the achievements table.
func AchievementCatalog() []Achievement {
	return []Achievement{
		{ID: AchievementFirstCore, Name: "First Core", Description: "Mine your first TAC"},
		{ID: AchievementCorruptionPurge, Name: "Corruption Purge", Description: "Defeat your first TAC Goblin"},
		{ID: AchievementQuantumTrade, Name: "Quantum Trade", Description: "Complete your first marketplace transaction"},
	}
}

// LedgerEntry records a single balance change.
type LedgerEntry struct {
	ID          int64     `db:"entry_id"`
	Handle      string    `db:"handle"`
	Amount      int64     `db:"amount"`
	Kind        string    `db:"kind"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Ledger entry kinds for categorizing balance changes.
const (
	EntryInitial       = "initial"        // Initial grant on registration
	EntryMine          = "mine"           // Mining reward
	EntryCombatReward  = "combat_reward"  // Enemy defeated
	EntryDefeatPenalty = "defeat_penalty" // Player defeated
	EntryPurchase      = "purchase"       // Marketplace buyer side
	EntrySale          = "sale"           // Marketplace seller side
	EntryCredit        = "credit"         // Direct credit
	EntryDebit         = "debit"          // Direct debit
)
