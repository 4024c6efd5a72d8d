package startups

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrStartupNotFound = errors.New("startup not found")

type StartupRepository interface {
	CreateStartup(ctx context.Context, input Startup) (Startup, error)
	UpdateStartup(ctx context.Context, id int64, name, bio, avatar string) (Startup, error)
	UpdateStripeKey(ctx context.Context, id int64, stripeKey string) error
	UpdateMetrics(ctx context.Context, id int64, revenue, last30, mrr float64, syncedAt time.Time) error
	DeleteStartup(ctx context.Context, id int64) error
	GetStartupByID(ctx context.Context, id int64) (Startup, error)
	ListStartups(ctx context.Context, limit, offset int) ([]Startup, int64, error)
	SearchStartups(ctx context.Context, q string, limit int) ([]Startup, error)
	ListStartupsByOwner(ctx context.Context, ownerID int64) ([]Startup, error)
	ListStripeKeys(ctx context.Context) ([]StripeKeyRef, error)
}

const startupSelect = `SELECT s.id, s.name, s.company, s.website, s.avatar, s.bio, s.category, s.twitter,
              s.stripe_key, s.owner_id, s.revenue, s.last30_days, s.mrr, s.last_synced,
              s.is_sponsored, s.sponsor_slot, s.sponsor_since, s.sponsor_duration_months, s.sponsor_expires_at,
              s.ad_views, s.ad_clicks, s.ad_generated_revenue, s.created_at,
              u.id, u.first_name, u.last_name, u.username, u.avatar
       FROM startups s
       LEFT JOIN users u ON u.id = s.owner_id`

func scanStartup(row pgx.Row) (Startup, error) {
	var s Startup
	var founderID *int64
	var founderFirst, founderLast, founderUsername, founderAvatar *string

	err := row.Scan(
		&s.ID, &s.Name, &s.Company, &s.Website, &s.Avatar, &s.Bio, &s.Category, &s.Twitter,
		&s.StripeKey, &s.OwnerID, &s.Revenue, &s.Last30Days, &s.MRR, &s.LastSynced,
		&s.IsSponsored, &s.SponsorSlot, &s.SponsorSince, &s.SponsorDurationMonths, &s.SponsorExpiresAt,
		&s.AdViews, &s.AdClicks, &s.AdGeneratedRevenue, &s.CreatedAt,
		&founderID, &founderFirst, &founderLast, &founderUsername, &founderAvatar,
	)
	if err != nil {
		return Startup{}, err
	}

	if founderID != nil {
		s.Founder = &Founder{
			ID:        *founderID,
			FirstName: strOrEmpty(founderFirst),
			LastName:  strOrEmpty(founderLast),
			Username:  strOrEmpty(founderUsername),
			Avatar:    strOrEmpty(founderAvatar),
		}
	}

	return s, nil
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

type postgresStartupRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresStartupRepository(pool *pgxpool.Pool) StartupRepository {
	return &postgresStartupRepository{pool: pool}
}

func (r *postgresStartupRepository) CreateStartup(ctx context.Context, input Startup) (Startup, error) {
	query := `INSERT INTO startups (name, company, website, avatar, bio, category, twitter, stripe_key, owner_id,
                                    revenue, last30_days, mrr, last_synced, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
              RETURNING id`

	var id int64
	err := r.pool.QueryRow(ctx, query,
		input.Name, input.Company, input.Website, input.Avatar, input.Bio, input.Category, input.Twitter,
		input.StripeKey, input.OwnerID, input.Revenue, input.Last30Days, input.MRR, input.LastSynced,
	).Scan(&id)
	if err != nil {
		return Startup{}, err
	}

	return r.GetStartupByID(ctx, id)
}

func (r *postgresStartupRepository) UpdateStartup(ctx context.Context, id int64, name, bio, avatar string) (Startup, error) {
	cmd, err := r.pool.Exec(ctx,
		"UPDATE startups SET name = $1, bio = $2, avatar = $3 WHERE id = $4 AND is_deleted = false",
		name, bio, avatar, id)
	if err != nil {
		return Startup{}, err
	}
	if cmd.RowsAffected() == 0 {
		return Startup{}, ErrStartupNotFound
	}

	return r.GetStartupByID(ctx, id)
}

func (r *postgresStartupRepository) UpdateStripeKey(ctx context.Context, id int64, stripeKey string) error {
	cmd, err := r.pool.Exec(ctx,
		"UPDATE startups SET stripe_key = $1 WHERE id = $2 AND is_deleted = false", stripeKey, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStartupNotFound
	}
	return nil
}

func (r *postgresStartupRepository) UpdateMetrics(ctx context.Context, id int64, revenue, last30, mrr float64, syncedAt time.Time) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE startups SET revenue = $1, last30_days = $2, mrr = $3, last_synced = $4
         WHERE id = $5 AND is_deleted = false`,
		revenue, last30, mrr, syncedAt, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStartupNotFound
	}
	return nil
}

// DeleteStartup soft-deletes the row and releases any held sponsor slot so a
// deleted startup can never keep a slot occupied.
func (r *postgresStartupRepository) DeleteStartup(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE startups
         SET is_deleted = true, is_sponsored = false, sponsor_slot = NULL
         WHERE id = $1 AND is_deleted = false`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStartupNotFound
	}
	return nil
}

func (r *postgresStartupRepository) GetStartupByID(ctx context.Context, id int64) (Startup, error) {
	row := r.pool.QueryRow(ctx, startupSelect+" WHERE s.id = $1 AND s.is_deleted = false", id)

	s, err := scanStartup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Startup{}, ErrStartupNotFound
		}
		return Startup{}, err
	}

	return s, nil
}

func (r *postgresStartupRepository) ListStartups(ctx context.Context, limit, offset int) ([]Startup, int64, error) {
	query := startupSelect + ` WHERE s.is_deleted = false
       ORDER BY s.revenue DESC, s.created_at DESC
       LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	startups := make([]Startup, 0)
	for rows.Next() {
		s, err := scanStartup(rows)
		if err != nil {
			return nil, 0, err
		}
		startups = append(startups, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	countRow := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM startups WHERE is_deleted = false")
	if err := countRow.Scan(&total); err != nil {
		return nil, 0, err
	}

	return startups, total, nil
}

func (r *postgresStartupRepository) SearchStartups(ctx context.Context, q string, limit int) ([]Startup, error) {
	query := startupSelect + ` WHERE s.is_deleted = false
       AND (s.name ILIKE '%' || $1 || '%'
         OR s.company ILIKE '%' || $1 || '%'
         OR s.website ILIKE '%' || $1 || '%'
         OR s.category ILIKE '%' || $1 || '%'
         OR s.twitter ILIKE '%' || $1 || '%'
         OR s.bio ILIKE '%' || $1 || '%')
       ORDER BY s.revenue DESC
       LIMIT $2`

	rows, err := r.pool.Query(ctx, query, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	startups := make([]Startup, 0)
	for rows.Next() {
		s, err := scanStartup(rows)
		if err != nil {
			return nil, err
		}
		startups = append(startups, s)
	}

	return startups, rows.Err()
}

func (r *postgresStartupRepository) ListStartupsByOwner(ctx context.Context, ownerID int64) ([]Startup, error) {
	query := startupSelect + ` WHERE s.is_deleted = false AND s.owner_id = $1
       ORDER BY s.created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	startups := make([]Startup, 0)
	for rows.Next() {
		s, err := scanStartup(rows)
		if err != nil {
			return nil, err
		}
		startups = append(startups, s)
	}

	return startups, rows.Err()
}

func (r *postgresStartupRepository) ListStripeKeys(ctx context.Context) ([]StripeKeyRef, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, stripe_key FROM startups WHERE is_deleted = false AND stripe_key <> ''")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]StripeKeyRef, 0)
	for rows.Next() {
		var ref StripeKeyRef
		if err := rows.Scan(&ref.ID, &ref.StripeKey); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}
