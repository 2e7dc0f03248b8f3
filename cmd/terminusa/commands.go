package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"terminusa/internal/game/combat"
	"terminusa/internal/game/dice"
	"terminusa/internal/model"
	"terminusa/internal/service"
)

type appFunc func() *app

// login checks the credential of the --handle account.
func login(cmd *cobra.Command, opts *globalOptions, a *app) (*model.Account, error) {
	if opts.handle == "" {
		return nil, errors.New("--handle is required")
	}
	credential, err := readCredential("Credential")
	if err != nil {
		return nil, err
	}
	return a.accounts.Authenticate(cmd.Context(), opts.handle, credential)
}

func newRegisterCmd(opts *globalOptions, appFn appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.handle == "" {
				return errors.New("--handle is required")
			}
			credential, err := readNewCredential()
			if err != nil {
				return err
			}
			account, err := appFn().accounts.Register(cmd.Context(), opts.handle, credential)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Welcome to Terminusa, %s. Balance: %d", account.Handle, account.Balance))
			return nil
		},
	}
}

func newStatusCmd(opts *globalOptions, appFn appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show balance, health and inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := login(cmd, opts, appFn())
			if err != nil {
				return err
			}
			printHeader(account.Handle)
			printInfo(fmt.Sprintf("Level %d  Balance %d  Health %d/%d", account.Level, account.Balance, account.Health, model.MaxHealth))
			if len(account.Inventory) == 0 {
				printInfo("Inventory is empty.")
				return nil
			}
			for _, item := range account.Inventory.Items() {
				fmt.Printf("  %-20s %d\n", item, account.Inventory.Quantity(item))
			}
			return nil
		},
	}
}

func newMineCmd(opts *globalOptions, appFn appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "Mine cores",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			if _, err := login(cmd, opts, a); err != nil {
				return err
			}
			res, err := a.mining.Mine(cmd.Context(), opts.handle, dice.NewRandom())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Mined %d cores. Balance: %d  Cores held: %d", res.Reward, res.Balance, res.Cores))
			if res.NewAchievement {
				printHeader("Achievement unlocked: First Core")
			}
			return nil
		},
	}
}

func newFightCmd(opts *globalOptions, appFn appFunc) *cobra.Command {
	var (
		seed uint64
		auto bool
	)
	cmd := &cobra.Command{
		Use:   "fight",
		Short: "Fight a corrupted program",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			if _, err := login(cmd, opts, a); err != nil {
				return err
			}

			var d dice.Dice = dice.NewRandom()
			if cmd.Flags().Changed("seed") {
				d = dice.NewSeeded(seed)
			}
			n := &narrator{out: os.Stdout}
			tactic := combat.Tactic(combat.AlwaysEngage)
			if !auto {
				tactic = promptTactic(stdinReader, os.Stdout, n)
			}

			out, err := a.combat.ResolveCombat(cmd.Context(), opts.handle, d, tactic)
			if err != nil {
				return err
			}
			n.turns(out.Turns)
			printOutcome(out)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed the dice for a reproducible fight")
	cmd.Flags().BoolVar(&auto, "auto", false, "engage every round without prompting")
	return cmd
}

func printOutcome(out *service.CombatOutcome) {
	switch out.State {
	case combat.EnemyDefeated:
		printSuccess(fmt.Sprintf("Victory. Reward %d. Balance: %d  Health: %d", out.Reward, out.Balance, out.Health))
		if out.NewAchievement {
			printHeader("Achievement unlocked: Corruption Purge")
		}
	case combat.PlayerDefeated:
		printWarn(fmt.Sprintf("Lost %d. Balance: %d  Health restored to %d", out.Penalty, out.Balance, out.Health))
	case combat.Retreated:
		printInfo(fmt.Sprintf("You got away. Health: %d", out.Health))
	}
}

func newMarketCmd(opts *globalOptions, appFn appFunc) *cobra.Command {
	market := &cobra.Command{
		Use:   "market",
		Short: "Trade items with other players",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show open listings from other sellers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			if _, err := login(cmd, opts, a); err != nil {
				return err
			}
			listings, err := a.market.ListOpen(cmd.Context(), opts.handle)
			if err != nil {
				return err
			}
			printListings(listings, true)
			return nil
		},
	}

	mine := &cobra.Command{
		Use:   "mine",
		Short: "Show your own listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			if _, err := login(cmd, opts, a); err != nil {
				return err
			}
			listings, err := a.market.MyListings(cmd.Context(), opts.handle)
			if err != nil {
				return err
			}
			printListings(listings, false)
			return nil
		},
	}

	sell := &cobra.Command{
		Use:   "sell <item> <quantity> <unit-price>",
		Short: "List items for sale",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := parsePositive("quantity", args[1])
			if err != nil {
				return err
			}
			price, err := parsePositive("unit-price", args[2])
			if err != nil {
				return err
			}
			a := appFn()
			if _, err := login(cmd, opts, a); err != nil {
				return err
			}
			id, err := a.market.CreateListing(cmd.Context(), opts.handle, args[0], qty, price)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Listing #%d created: %d x %s at %d", id, qty, args[0], price))
			return nil
		},
	}

	buy := &cobra.Command{
		Use:   "buy <listing-id>",
		Short: "Buy a whole listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositive("listing-id", args[0])
			if err != nil {
				return err
			}
			a := appFn()
			if _, err := login(cmd, opts, a); err != nil {
				return err
			}
			res, err := a.market.Purchase(cmd.Context(), opts.handle, id)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Bought %d x %s from %s for %d. Balance: %d",
				res.Listing.Quantity, res.Listing.Item, res.Listing.Seller, res.Total, res.BuyerBalance))
			if res.BuyerAchievement {
				printHeader("Achievement unlocked: Quantum Trade")
			}
			return nil
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <listing-id>",
		Short: "Withdraw a listing and take the items back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositive("listing-id", args[0])
			if err != nil {
				return err
			}
			a := appFn()
			if _, err := login(cmd, opts, a); err != nil {
				return err
			}
			if err := a.market.CancelListing(cmd.Context(), opts.handle, id); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Listing #%d cancelled.", id))
			return nil
		},
	}

	market.AddCommand(list, mine, sell, buy, cancel)
	return market
}

func printListings(listings []model.Listing, withSeller bool) {
	if len(listings) == 0 {
		printInfo("No listings.")
		return
	}
	for _, l := range listings {
		line := fmt.Sprintf("#%-5d %-20s x%-6d @ %-8d", l.ID, l.Item, l.Quantity, l.UnitPrice)
		if withSeller {
			line += " by " + l.Seller
		}
		fmt.Println(line)
	}
}

func newAchievementsCmd(opts *globalOptions, appFn appFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "achievements",
		Short: "Show unlocked and locked achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			if _, err := login(cmd, opts, a); err != nil {
				return err
			}
			catalog, err := a.achievements.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			unlocked, err := a.achievements.ListUnlocked(cmd.Context(), opts.handle)
			if err != nil {
				return err
			}

			got := make(map[int]model.UnlockedAchievement, len(unlocked))
			for _, u := range unlocked {
				got[u.AchievementID] = u
			}
			for _, ach := range catalog {
				if u, ok := got[ach.ID]; ok {
					success.Printf("[x] %s", ach.Name)
					fmt.Printf("  %s (%s)\n", ach.Description, u.UnlockedAt.Local().Format("2006-01-02 15:04"))
					continue
				}
				neutral.Printf("[ ] %s", ach.Name)
				fmt.Printf("  %s\n", ach.Description)
			}
			return nil
		},
	}
}

func newHistoryCmd(opts *globalOptions, appFn appFunc) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent balance changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			if _, err := login(cmd, opts, a); err != nil {
				return err
			}
			entries, err := a.accounts.History(cmd.Context(), opts.handle, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				printInfo("No history.")
				return nil
			}
			for _, e := range entries {
				amount := success.Sprintf("%+d", e.Amount)
				if e.Amount < 0 {
					amount = danger.Sprintf("%+d", e.Amount)
				}
				fmt.Printf("%s  %-15s %s  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Kind, amount, e.Description)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", service.DefaultHistoryLimit, "number of entries to show")
	return cmd
}

func parsePositive(name, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return v, nil
}
