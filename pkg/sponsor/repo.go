package sponsor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrStartupNotFound  = errors.New("startup not found")
	ErrCapacityExceeded = errors.New("all sponsor slots are occupied")
	ErrAlreadySponsored = errors.New("startup is already sponsored")
	ErrNotSponsored     = errors.New("startup does not hold a sponsor slot")
)

type SponsorRepository interface {
	// AssignSlot claims the lowest free slot for the startup inside one
	// transaction. If the startup is already sponsored it returns the
	// existing grant together with ErrAlreadySponsored and mutates nothing.
	AssignSlot(ctx context.Context, startupID int64, months, maxSlots int, now time.Time) (Grant, error)
	GetSponsorship(ctx context.Context, startupID int64) (Sponsorship, error)
	// ExtendExpiry adds months on top of the later of the stored expiry and
	// now, computed inside the UPDATE so concurrent extends cannot overwrite
	// each other. It only touches rows that currently hold a slot and
	// reports ErrNotSponsored otherwise.
	ExtendExpiry(ctx context.Context, startupID int64, months int, now time.Time) (time.Time, error)
	ClearSponsorship(ctx context.Context, startupID int64) error
	ListSponsored(ctx context.Context, limit int) ([]SponsoredStartup, error)
	ListExpired(ctx context.Context, now time.Time) ([]int64, error)
	// ReleaseExpired frees the slot only if the stored expiry is still in
	// the past, so it can never undo a concurrent re-assignment.
	ReleaseExpired(ctx context.Context, startupID int64, now time.Time) (bool, error)
	IncrementAdViews(ctx context.Context, startupID int64) error
	IncrementAdClicks(ctx context.Context, startupID int64) error
}

type postgresSponsorRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSponsorRepository(pool *pgxpool.Pool) SponsorRepository {
	return &postgresSponsorRepository{pool: pool}
}

func (r *postgresSponsorRepository) AssignSlot(ctx context.Context, startupID int64, months, maxSlots int, now time.Time) (Grant, error) {
	// Each unique violation means a concurrent writer committed the chosen
	// slot, which can happen at most maxSlots times before the pool fills,
	// so the rescan loop is bounded by the slot count.
	var lastErr error
	for attempt := 0; attempt <= maxSlots; attempt++ {
		grant, err := r.tryAssignSlot(ctx, startupID, months, maxSlots, now)
		if err != nil {
			if isUniqueViolation(err) {
				// Lost the race for the chosen slot; rescan and retry.
				lastErr = err
				continue
			}
			// ErrAlreadySponsored carries the existing grant so the
			// caller can treat the retry as settled.
			return grant, err
		}
		return grant, nil
	}
	return Grant{}, fmt.Errorf("assign slot: retries exhausted: %w", lastErr)
}

func (r *postgresSponsorRepository) tryAssignSlot(ctx context.Context, startupID int64, months, maxSlots int, now time.Time) (Grant, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Grant{}, err
	}
	defer tx.Rollback(ctx)

	// Lock the target row first. Duplicate webhook deliveries serialize
	// here and the loser sees the sponsorship the winner just wrote.
	var isSponsored bool
	var slot *int
	var since, expires *time.Time
	var duration int
	row := tx.QueryRow(ctx,
		`SELECT is_sponsored, sponsor_slot, sponsor_since, sponsor_expires_at, sponsor_duration_months
         FROM startups WHERE id = $1 AND is_deleted = false
         FOR UPDATE`, startupID)
	if err := row.Scan(&isSponsored, &slot, &since, &expires, &duration); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, ErrStartupNotFound
		}
		return Grant{}, err
	}

	if isSponsored && slot != nil {
		grant := Grant{Slot: *slot, Months: duration}
		if since != nil {
			grant.Since = *since
		}
		if expires != nil {
			grant.ExpiresAt = *expires
		}
		return grant, ErrAlreadySponsored
	}

	// Lock the occupied set while scanning so a released slot cannot
	// reappear mid-decision.
	rows, err := tx.Query(ctx,
		`SELECT sponsor_slot FROM startups
         WHERE is_sponsored = true AND sponsor_slot IS NOT NULL AND id <> $1
         ORDER BY sponsor_slot
         FOR UPDATE`, startupID)
	if err != nil {
		return Grant{}, err
	}

	occupied := make([]int, 0, maxSlots)
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			rows.Close()
			return Grant{}, err
		}
		occupied = append(occupied, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Grant{}, err
	}

	chosen := firstFreeSlot(occupied, maxSlots)
	if chosen == 0 {
		return Grant{}, ErrCapacityExceeded
	}

	expiresAt := now.AddDate(0, months, 0)
	_, err = tx.Exec(ctx,
		`UPDATE startups
         SET is_sponsored = true, sponsor_slot = $2, sponsor_since = $3,
             sponsor_duration_months = $4, sponsor_expires_at = $5,
             ad_views = 0, ad_clicks = 0, ad_generated_revenue = 0
         WHERE id = $1`,
		startupID, chosen, now, months, expiresAt)
	if err != nil {
		return Grant{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Grant{}, err
	}

	return Grant{Slot: chosen, Since: now, ExpiresAt: expiresAt, Months: months}, nil
}

// firstFreeSlot returns the lowest slot in [1, maxSlots] absent from the
// occupied list, or 0 when every slot is taken. Freed low slots are reused
// before the occupied range grows.
func firstFreeSlot(occupied []int, maxSlots int) int {
	sort.Ints(occupied)
	slot := 1
	for _, taken := range occupied {
		if taken == slot {
			slot++
			continue
		}
		if taken > slot {
			break
		}
	}
	if slot > maxSlots {
		return 0
	}
	return slot
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *postgresSponsorRepository) GetSponsorship(ctx context.Context, startupID int64) (Sponsorship, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, is_sponsored, sponsor_slot, sponsor_since,
                sponsor_duration_months, sponsor_expires_at,
                ad_views, ad_clicks, ad_generated_revenue
         FROM startups WHERE id = $1 AND is_deleted = false`, startupID)

	var s Sponsorship
	err := row.Scan(&s.StartupID, &s.OwnerID, &s.IsSponsored, &s.Slot, &s.Since,
		&s.DurationMonths, &s.ExpiresAt, &s.AdViews, &s.AdClicks, &s.AdGeneratedRevenue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sponsorship{}, ErrStartupNotFound
		}
		return Sponsorship{}, err
	}

	return s, nil
}

func (r *postgresSponsorRepository) ExtendExpiry(ctx context.Context, startupID int64, months int, now time.Time) (time.Time, error) {
	// GREATEST picks the stored expiry when it is still in the future and
	// restarts from now for lapsed rows (NULL expiry included).
	row := r.pool.QueryRow(ctx,
		`UPDATE startups
         SET sponsor_expires_at = GREATEST(sponsor_expires_at, $3::timestamptz) + make_interval(months => $2),
             sponsor_duration_months = sponsor_duration_months + $2
         WHERE id = $1 AND is_deleted = false
           AND is_sponsored = true AND sponsor_slot IS NOT NULL
         RETURNING sponsor_expires_at`,
		startupID, months, now)

	var expiresAt time.Time
	if err := row.Scan(&expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrNotSponsored
		}
		return time.Time{}, err
	}
	return expiresAt, nil
}

func (r *postgresSponsorRepository) ClearSponsorship(ctx context.Context, startupID int64) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE startups
         SET is_sponsored = false, sponsor_slot = NULL,
             sponsor_since = NULL, sponsor_expires_at = NULL
         WHERE id = $1 AND is_deleted = false`, startupID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStartupNotFound
	}
	return nil
}

func (r *postgresSponsorRepository) ListSponsored(ctx context.Context, limit int) ([]SponsoredStartup, error) {
	query := `SELECT s.id, s.name, s.website, s.avatar, s.bio, s.category, s.revenue,
                     s.sponsor_slot, s.sponsor_since, s.sponsor_expires_at,
                     s.ad_views, s.ad_clicks,
                     u.id, u.first_name, u.last_name, u.username
              FROM startups s
              LEFT JOIN users u ON u.id = s.owner_id
              WHERE s.is_deleted = false AND s.is_sponsored = true AND s.sponsor_slot IS NOT NULL
              ORDER BY s.sponsor_slot ASC, s.revenue DESC
              LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sponsored := make([]SponsoredStartup, 0)
	for rows.Next() {
		var s SponsoredStartup
		var founderID *int64
		var founderFirst, founderLast, founderUsername *string
		err := rows.Scan(&s.ID, &s.Name, &s.Website, &s.Avatar, &s.Bio, &s.Category, &s.Revenue,
			&s.SponsorSlot, &s.SponsorSince, &s.SponsorExpiresAt,
			&s.AdViews, &s.AdClicks,
			&founderID, &founderFirst, &founderLast, &founderUsername)
		if err != nil {
			return nil, err
		}
		if founderID != nil {
			s.Founder = &Founder{ID: *founderID}
			if founderFirst != nil {
				s.Founder.FirstName = *founderFirst
			}
			if founderLast != nil {
				s.Founder.LastName = *founderLast
			}
			if founderUsername != nil {
				s.Founder.Username = *founderUsername
			}
		}
		sponsored = append(sponsored, s)
	}

	return sponsored, rows.Err()
}

func (r *postgresSponsorRepository) ListExpired(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM startups
         WHERE is_deleted = false AND is_sponsored = true AND sponsor_expires_at < $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *postgresSponsorRepository) ReleaseExpired(ctx context.Context, startupID int64, now time.Time) (bool, error) {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE startups
         SET is_sponsored = false, sponsor_slot = NULL
         WHERE id = $1 AND is_sponsored = true AND sponsor_expires_at < $2`,
		startupID, now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *postgresSponsorRepository) IncrementAdViews(ctx context.Context, startupID int64) error {
	cmd, err := r.pool.Exec(ctx,
		"UPDATE startups SET ad_views = ad_views + 1 WHERE id = $1 AND is_deleted = false", startupID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStartupNotFound
	}
	return nil
}

func (r *postgresSponsorRepository) IncrementAdClicks(ctx context.Context, startupID int64) error {
	cmd, err := r.pool.Exec(ctx,
		"UPDATE startups SET ad_clicks = ad_clicks + 1 WHERE id = $1 AND is_deleted = false", startupID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStartupNotFound
	}
	return nil
}
