package service

import (
	"context"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"terminusa/internal/model"
	"terminusa/internal/pkg/db"
	"terminusa/internal/pkg/lock"
	"terminusa/internal/repository"
)

const testCredential = "correct horse"

// stepClock advances by one second on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// testEnv wires every service to one SQLite store.
type testEnv struct {
	store        repository.Store
	clock        *stepClock
	accounts     *AccountService
	mining       *MiningService
	market       *MarketService
	achievements *AchievementService
	combat       *CombatService
}

func newTestStore(t testing.TB) *repository.SQLiteStore {
	t.Helper()
	return newTestStoreAt(t, filepath.Join(t.TempDir(), "terminusa.db"))
}

// newTestStoreAt opens a migrated store on path. Several stores may share one file.
func newTestStoreAt(t testing.TB, path string) *repository.SQLiteStore {
	t.Helper()
	ctx := context.Background()

	conn, err := db.OpenSQLite(ctx, path)
	require.NoError(t, err)

	store := repository.NewSQLiteStore(conn)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// newPostgresTestStore starts a PostgreSQL container and returns a migrated store.
// Skips the test if Docker is not available.
func newPostgresTestStore(t *testing.T) *repository.PostgresStore {
	t.Helper()
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	store := repository.NewPostgresStore(pool)
	require.NoError(t, store.Migrate(ctx))

	t.Cleanup(func() {
		_ = store.Close()
		_ = pgContainer.Terminate(ctx)
	})
	return store
}

// forEachBackend runs fn against a fresh store of every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, store repository.Store)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newTestStore(t))
	})
	t.Run("postgres", func(t *testing.T) {
		fn(t, newPostgresTestStore(t))
	})
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, newTestStore(t))
}

func newTestEnvWithStore(t testing.TB, store repository.Store) *testEnv {
	t.Helper()
	clock := newStepClock()
	opt := WithClock(clock.Now)
	locks := WithHandleLock(lock.NewHandleLock())
	return &testEnv{
		store:        store,
		clock:        clock,
		accounts:     NewAccountService(store, NewBcryptHasher(bcrypt.MinCost), model.DefaultInitialBalance, opt, locks),
		mining:       NewMiningService(store, 10, 50, opt),
		market:       NewMarketService(store, opt),
		achievements: NewAchievementService(store, opt),
		combat:       NewCombatService(store, DefaultCombatRules(), opt, locks),
	}
}

func (e *testEnv) register(t testing.TB, handle string) *model.Account {
	t.Helper()
	a, err := e.accounts.Register(context.Background(), handle, testCredential)
	require.NoError(t, err)
	return a
}

// setBalance moves an account to an exact balance through ledgered operations.
func (e *testEnv) setBalance(t testing.TB, handle string, balance int64) {
	t.Helper()
	ctx := context.Background()
	a, err := e.accounts.Load(ctx, handle)
	require.NoError(t, err)
	switch {
	case a.Balance < balance:
		_, err = e.accounts.Credit(ctx, handle, balance-a.Balance)
	case a.Balance > balance:
		_, err = e.accounts.Debit(ctx, handle, a.Balance-balance)
	}
	require.NoError(t, err)
}

func (e *testEnv) load(t testing.TB, handle string) *model.Account {
	t.Helper()
	a, err := e.accounts.Load(context.Background(), handle)
	require.NoError(t, err)
	return a
}

// ledgerSum adds up every ledger entry of handle.
func (e *testEnv) ledgerSum(t testing.TB, handle string) int64 {
	t.Helper()
	entries, err := e.accounts.History(context.Background(), handle, 1_000_000)
	require.NoError(t, err)
	var sum int64
	for _, entry := range entries {
		sum += entry.Amount
	}
	return sum
}
