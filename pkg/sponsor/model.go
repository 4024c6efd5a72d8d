package sponsor

import (
	"os"
	"strconv"
	"time"
)

// DefaultMaxSlots is the sidebar capacity. Every assignment path consults
// the same ceiling; there is no secondary "nominal" range.
const DefaultMaxSlots = 20

// MaxSlotsFromEnv reads SPONSOR_MAX_SLOTS, defaulting to DefaultMaxSlots.
func MaxSlotsFromEnv() int {
	v := os.Getenv("SPONSOR_MAX_SLOTS")
	if v == "" {
		return DefaultMaxSlots
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return DefaultMaxSlots
	}
	return n
}

// Grant describes one paid sponsorship period as held by a startup.
type Grant struct {
	Slot      int       `json:"slot"`
	Since     time.Time `json:"since"`
	ExpiresAt time.Time `json:"expires_at"`
	Months    int       `json:"months"`
}

// Sponsorship is the sponsorship-relevant projection of a startup row.
type Sponsorship struct {
	StartupID          int64
	OwnerID            *int64
	IsSponsored        bool
	Slot               *int
	Since              *time.Time
	DurationMonths     int
	ExpiresAt          *time.Time
	AdViews            int64
	AdClicks           int64
	AdGeneratedRevenue float64
}

// SponsoredStartup is the public shape of a sidebar ad slot.
type SponsoredStartup struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Website          string     `json:"website"`
	Avatar           string     `json:"avatar"`
	Bio              string     `json:"bio"`
	Category         string     `json:"category"`
	Revenue          float64    `json:"revenue"`
	SponsorSlot      int        `json:"sponsor_slot"`
	SponsorSince     *time.Time `json:"sponsor_since,omitempty"`
	SponsorExpiresAt *time.Time `json:"sponsor_expires_at,omitempty"`
	AdViews          int64      `json:"ad_views"`
	AdClicks         int64      `json:"ad_clicks"`
	Founder          *Founder   `json:"founder,omitempty"`
}

type Founder struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}
