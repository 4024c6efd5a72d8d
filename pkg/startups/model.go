package startups

import "time"

type Startup struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	Website   string `json:"website"`
	Avatar    string `json:"avatar"`
	Bio       string `json:"bio"`
	Category  string `json:"category"`
	Twitter   string `json:"twitter"`
	StripeKey string `json:"stripe_key,omitempty"`
	OwnerID   *int64 `json:"owner_id,omitempty"`

	Revenue    float64    `json:"revenue"`
	Last30Days float64    `json:"last30_days"`
	MRR        float64    `json:"mrr"`
	LastSynced *time.Time `json:"last_synced,omitempty"`

	IsSponsored           bool       `json:"is_sponsored"`
	SponsorSlot           *int       `json:"sponsor_slot,omitempty"`
	SponsorSince          *time.Time `json:"sponsor_since,omitempty"`
	SponsorDurationMonths int        `json:"sponsor_duration_months"`
	SponsorExpiresAt      *time.Time `json:"sponsor_expires_at,omitempty"`

	AdViews            int64   `json:"ad_views"`
	AdClicks           int64   `json:"ad_clicks"`
	AdGeneratedRevenue float64 `json:"ad_generated_revenue"`

	CreatedAt time.Time `json:"created_at"`
	Founder   *Founder  `json:"founder,omitempty"`
}

// Founder is the owner identity attached to public startup reads.
type Founder struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Avatar    string `json:"avatar"`
}

type StartupList struct {
	Items []Startup `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// StripeKeyRef pairs a startup with its connected key for background syncs.
type StripeKeyRef struct {
	ID        int64
	StripeKey string
}
