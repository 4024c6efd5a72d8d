package sponsor

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"truststartup/pkg/testhelpers"
)

func setupSponsorTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL_FOR_TEST")
	if dsn == "" {
		t.Skip("DATABASE_URL_FOR_TEST not set; skipping sponsor repository tests")
	}

	ctx := context.Background()
	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	t.Cleanup(pool.Close)
	return pool
}

func cleanSponsorTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	_, err := pool.Exec(ctx, "TRUNCATE TABLE startups, sessions, users RESTART IDENTITY CASCADE")
	require.NoError(t, err)
}

func TestPostgresSponsorRepository_AssignSlot_FirstFit(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()
	ownerID := testhelpers.CreateTestUser(t, pool)

	first := testhelpers.CreateTestStartup(t, pool, ownerID)
	second := testhelpers.CreateTestStartup(t, pool, ownerID)

	grant, err := repo.AssignSlot(ctx, first, 1, 20, now)
	require.NoError(t, err)
	require.Equal(t, 1, grant.Slot)

	grant, err = repo.AssignSlot(ctx, second, 1, 20, now)
	require.NoError(t, err)
	require.Equal(t, 2, grant.Slot)
}

func TestPostgresSponsorRepository_AssignSlot_ReusesFreedSlot(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()
	ownerID := testhelpers.CreateTestUser(t, pool)

	var ids []int64
	for i := 0; i < 3; i++ {
		id := testhelpers.CreateTestStartup(t, pool, ownerID)
		_, err := repo.AssignSlot(ctx, id, 1, 20, now)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// Free the middle slot. The next assignment must land in the gap.
	require.NoError(t, repo.ClearSponsorship(ctx, ids[1]))

	newcomer := testhelpers.CreateTestStartup(t, pool, ownerID)
	grant, err := repo.AssignSlot(ctx, newcomer, 1, 20, now)
	require.NoError(t, err)
	require.Equal(t, 2, grant.Slot)
}

func TestPostgresSponsorRepository_AssignSlot_Idempotent(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()
	ownerID := testhelpers.CreateTestUser(t, pool)
	id := testhelpers.CreateTestStartup(t, pool, ownerID)

	first, err := repo.AssignSlot(ctx, id, 3, 20, now)
	require.NoError(t, err)

	// Same webhook delivered again.
	second, err := repo.AssignSlot(ctx, id, 3, 20, now.Add(time.Minute))
	require.ErrorIs(t, err, ErrAlreadySponsored)
	require.Equal(t, first.Slot, second.Slot)

	sp, err := repo.GetSponsorship(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sp.ExpiresAt)
	require.WithinDuration(t, first.ExpiresAt, *sp.ExpiresAt, time.Second)
}

func TestPostgresSponsorRepository_AssignSlot_CapacityExceeded(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()
	ownerID := testhelpers.CreateTestUser(t, pool)

	const maxSlots = 3
	for i := 0; i < maxSlots; i++ {
		id := testhelpers.CreateTestStartup(t, pool, ownerID)
		_, err := repo.AssignSlot(ctx, id, 1, maxSlots, now)
		require.NoError(t, err)
	}

	overflow := testhelpers.CreateTestStartup(t, pool, ownerID)
	_, err := repo.AssignSlot(ctx, overflow, 1, maxSlots, now)
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestPostgresSponsorRepository_AssignSlot_UnknownStartup(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)

	_, err := repo.AssignSlot(context.Background(), 424242, 1, 20, time.Now().UTC())
	require.ErrorIs(t, err, ErrStartupNotFound)
}

func TestPostgresSponsorRepository_AssignSlot_ResetsAdCounters(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)
	ctx := context.Background()
	ownerID := testhelpers.CreateTestUser(t, pool)
	id := testhelpers.CreateTestStartup(t, pool, ownerID)

	// A previous campaign left counters behind.
	_, err := pool.Exec(ctx, "UPDATE startups SET ad_views = 10, ad_clicks = 3 WHERE id = $1", id)
	require.NoError(t, err)

	_, err = repo.AssignSlot(ctx, id, 1, 20, time.Now().UTC())
	require.NoError(t, err)

	sp, err := repo.GetSponsorship(ctx, id)
	require.NoError(t, err)
	require.Zero(t, sp.AdViews)
	require.Zero(t, sp.AdClicks)
}

func TestPostgresSponsorRepository_ExtendExpiry_RequiresSlot(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)
	ctx := context.Background()
	ownerID := testhelpers.CreateTestUser(t, pool)
	id := testhelpers.CreateTestStartup(t, pool, ownerID)

	_, err := repo.ExtendExpiry(ctx, id, 1, time.Now().UTC())
	require.ErrorIs(t, err, ErrNotSponsored)
}

func TestPostgresSponsorRepository_ExtendExpiry_AddsToStoredExpiry(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)
	ctx := context.Background()
	ownerID := testhelpers.CreateTestUser(t, pool)
	id := testhelpers.CreateTestStartup(t, pool, ownerID)

	// Mid-month date so month arithmetic is exact on both sides.
	expires := time.Date(2027, time.March, 10, 12, 0, 0, 0, time.UTC)
	testhelpers.SponsorTestStartup(t, pool, id, 1, expires)

	got, err := repo.ExtendExpiry(ctx, id, 2, time.Now().UTC())
	require.NoError(t, err)
	require.WithinDuration(t, expires.AddDate(0, 2, 0), got, time.Second)

	sp, err := repo.GetSponsorship(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 3, sp.DurationMonths)
}

func TestPostgresSponsorRepository_ExtendExpiry_LapsedRestartsFromNow(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)
	ctx := context.Background()
	ownerID := testhelpers.CreateTestUser(t, pool)
	id := testhelpers.CreateTestStartup(t, pool, ownerID)

	// Expiry already passed but the sweeper has not run yet.
	testhelpers.SponsorTestStartup(t, pool, id, 1, time.Now().UTC().Add(-72*time.Hour))

	now := time.Date(2027, time.June, 15, 12, 0, 0, 0, time.UTC)
	got, err := repo.ExtendExpiry(ctx, id, 1, now)
	require.NoError(t, err)
	require.WithinDuration(t, now.AddDate(0, 1, 0), got, time.Second)
}

func TestPostgresSponsorRepository_ExtendExpiry_ConcurrentExtendsBothLand(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)
	ctx := context.Background()
	ownerID := testhelpers.CreateTestUser(t, pool)
	id := testhelpers.CreateTestStartup(t, pool, ownerID)

	expires := time.Date(2027, time.March, 10, 12, 0, 0, 0, time.UTC)
	testhelpers.SponsorTestStartup(t, pool, id, 1, expires)

	// Two founder sessions extend by two months at the same moment. Each
	// extension must stack on whatever the other wrote, never on a stale read.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.ExtendExpiry(ctx, id, 2, time.Now().UTC())
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	sp, err := repo.GetSponsorship(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, sp.ExpiresAt)
	require.WithinDuration(t, expires.AddDate(0, 4, 0), *sp.ExpiresAt, time.Second)
	require.Equal(t, 5, sp.DurationMonths)
}

func TestPostgresSponsorRepository_AssignSlot_ConcurrentClaimsGetDistinctSlots(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)
	ctx := context.Background()
	now := time.Now().UTC()
	ownerID := testhelpers.CreateTestUser(t, pool)

	const claims = 8
	ids := make([]int64, claims)
	for i := range ids {
		ids[i] = testhelpers.CreateTestStartup(t, pool, ownerID)
	}

	// All webhooks land at once. The unique index and the rescan loop must
	// hand every startup its own slot.
	var wg sync.WaitGroup
	grants := make([]Grant, claims)
	errs := make([]error, claims)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			grants[i], errs[i] = repo.AssignSlot(ctx, id, 1, 20, now)
		}(i, id)
	}
	wg.Wait()

	seen := make(map[int]bool, claims)
	for i := range grants {
		require.NoError(t, errs[i])
		slot := grants[i].Slot
		require.GreaterOrEqual(t, slot, 1)
		require.LessOrEqual(t, slot, claims)
		require.False(t, seen[slot], "slot %d granted twice", slot)
		seen[slot] = true
	}
}

func TestPostgresSponsorRepository_ClearSponsorship_KeepsCounters(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)
	ctx := context.Background()
	ownerID := testhelpers.CreateTestUser(t, pool)
	id := testhelpers.CreateTestStartup(t, pool, ownerID)

	_, err := repo.AssignSlot(ctx, id, 1, 20, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, repo.IncrementAdViews(ctx, id))
	require.NoError(t, repo.IncrementAdClicks(ctx, id))

	require.NoError(t, repo.ClearSponsorship(ctx, id))

	sp, err := repo.GetSponsorship(ctx, id)
	require.NoError(t, err)
	require.False(t, sp.IsSponsored)
	require.Nil(t, sp.Slot)
	require.Nil(t, sp.ExpiresAt)
	require.Equal(t, int64(1), sp.AdViews)
	require.Equal(t, int64(1), sp.AdClicks)
}

func TestPostgresSponsorRepository_ReleaseExpired(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)
	ctx := context.Background()
	ownerID := testhelpers.CreateTestUser(t, pool)

	expired := testhelpers.CreateTestStartup(t, pool, ownerID)
	testhelpers.SponsorTestStartup(t, pool, expired, 1, time.Now().UTC().Add(-time.Hour))

	active := testhelpers.CreateTestStartup(t, pool, ownerID)
	testhelpers.SponsorTestStartup(t, pool, active, 2, time.Now().UTC().Add(time.Hour))

	now := time.Now().UTC()
	ids, err := repo.ListExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, []int64{expired}, ids)

	released, err := repo.ReleaseExpired(ctx, expired, now)
	require.NoError(t, err)
	require.True(t, released)

	// Already released; a second pass is a no-op.
	released, err = repo.ReleaseExpired(ctx, expired, now)
	require.NoError(t, err)
	require.False(t, released)

	// The active sponsorship is untouched.
	released, err = repo.ReleaseExpired(ctx, active, now)
	require.NoError(t, err)
	require.False(t, released)
}

func TestPostgresSponsorRepository_ListSponsored_OrderedBySlot(t *testing.T) {
	pool := setupSponsorTestPool(t)
	cleanSponsorTables(t, pool)

	repo := NewPostgresSponsorRepository(pool)
	ctx := context.Background()
	ownerID := testhelpers.CreateTestUser(t, pool)

	a := testhelpers.CreateTestStartup(t, pool, ownerID)
	b := testhelpers.CreateTestStartup(t, pool, ownerID)
	expires := time.Now().UTC().Add(time.Hour)
	testhelpers.SponsorTestStartup(t, pool, a, 5, expires)
	testhelpers.SponsorTestStartup(t, pool, b, 2, expires)

	sponsored, err := repo.ListSponsored(ctx, 20)
	require.NoError(t, err)
	require.Len(t, sponsored, 2)
	require.Equal(t, b, sponsored[0].ID)
	require.Equal(t, a, sponsored[1].ID)
}
