package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"terminusa/internal/config"
	"terminusa/internal/game/combat"
	"terminusa/internal/pkg/db"
	"terminusa/internal/pkg/lock"
	"terminusa/internal/repository"
	"terminusa/internal/service"
)

// app owns the store for the lifetime of one command and the services built on it.
type app struct {
	store        repository.Store
	accounts     *service.AccountService
	mining       *service.MiningService
	market       *service.MarketService
	achievements *service.AchievementService
	combat       *service.CombatService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	// Initialize store
	store, err := openStore(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := store.Migrate(ctx); err != nil {
		if cerr := store.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("Failed to close store")
		}
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Initialize services
	rules := service.CombatRules{
		Rules: combat.Rules{
			EnemyHealth:     cfg.Combat.EnemyHealth,
			PlayerDamageMin: cfg.Combat.PlayerDamageMin,
			PlayerDamageMax: cfg.Combat.PlayerDamageMax,
			EnemyDamageMin:  cfg.Combat.EnemyDamageMin,
			EnemyDamageMax:  cfg.Combat.EnemyDamageMax,
		},
		Reward:        cfg.Combat.Reward,
		DefeatPenalty: cfg.Combat.DefeatPenalty,
	}

	// Encounters and saves of one account exclude each other
	locks := service.WithHandleLock(lock.NewHandleLock())

	return &app{
		store:        store,
		accounts:     service.NewAccountService(store, service.NewBcryptHasher(0), cfg.Economy.InitialBalance, locks),
		mining:       service.NewMiningService(store, int(cfg.Economy.MineMin), int(cfg.Economy.MineMax)),
		market:       service.NewMarketService(store),
		achievements: service.NewAchievementService(store),
		combat:       service.NewCombatService(store, rules, locks),
	}, nil
}

// openStore connects the backend selected by cfg.Driver.
func openStore(ctx context.Context, cfg *config.DatabaseConfig) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := db.NewPostgresPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return repository.NewPostgresStore(pool), nil
	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return repository.NewSQLiteStore(sqlDB), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Close releases the store.
func (a *app) Close() error {
	return a.store.Close()
}
