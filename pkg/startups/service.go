package startups

import (
	"context"
	"errors"
	"log"
	"time"

	"truststartup/pkg/metrics"
)

var ErrUnauthorized = errors.New("unauthorized")

// SessionResolver turns a bearer token into the user it belongs to.
// Implemented by the users repository.
type SessionResolver interface {
	UserIDByToken(ctx context.Context, token string) (int64, error)
}

// Notifier fans events out to live dashboard subscribers. Optional.
type Notifier interface {
	Publish(eventType string, data any)
}

type CreateStartupInput struct {
	Name      string
	Company   string
	Website   string
	Avatar    string
	Bio       string
	Category  string
	Twitter   string
	StripeKey string
	Token     string
}

type StartupService interface {
	CreateStartup(ctx context.Context, input CreateStartupInput) (Startup, error)
	UpdateStartup(ctx context.Context, id int64, token, name, bio, avatar string) (Startup, error)
	UpdateStripeKey(ctx context.Context, id int64, token, stripeKey string) (Startup, error)
	SyncRevenue(ctx context.Context, id int64, token string) (Startup, error)
	GetStartupByID(ctx context.Context, id int64) (Startup, error)
	ListStartups(ctx context.Context, page, limit int) ([]Startup, int64, error)
	SearchStartups(ctx context.Context, q string) ([]Startup, error)
	ListStartupsByToken(ctx context.Context, token string) ([]Startup, error)
	DeleteStartup(ctx context.Context, id int64, token string) error
	GetMetricsSummary(ctx context.Context, id int64) (metrics.Summary, error)
	GetRevenueHistory(ctx context.Context, id int64, rangeStr string) ([]metrics.Point, error)
	RefreshAll(ctx context.Context) (int, error)
}

type startupService struct {
	repo     StartupRepository
	metrics  metrics.Client
	sessions SessionResolver
	notifier Notifier
}

func NewStartupService(repo StartupRepository, metricsClient metrics.Client, sessions SessionResolver, notifier Notifier) StartupService {
	return &startupService{repo: repo, metrics: metricsClient, sessions: sessions, notifier: notifier}
}

func (s *startupService) CreateStartup(ctx context.Context, input CreateStartupInput) (Startup, error) {
	startup := Startup{
		Name:      input.Name,
		Company:   input.Company,
		Website:   input.Website,
		Avatar:    input.Avatar,
		Bio:       input.Bio,
		Category:  input.Category,
		Twitter:   input.Twitter,
		StripeKey: input.StripeKey,
	}

	// Owner attribution is optional at creation time.
	if input.Token != "" {
		if userID, err := s.sessions.UserIDByToken(ctx, input.Token); err == nil {
			startup.OwnerID = &userID
		}
	}

	// Initial metrics are best effort: a bad key still creates the startup.
	if summary, err := s.metrics.Summary(ctx, input.StripeKey); err != nil {
		log.Printf("startups: initial metrics fetch failed: %v", err)
	} else {
		now := time.Now()
		startup.Revenue = summary.GMVAllTime
		startup.Last30Days = summary.Last30Days
		startup.MRR = summary.MRR
		startup.LastSynced = &now
	}

	return s.repo.CreateStartup(ctx, startup)
}

func (s *startupService) UpdateStartup(ctx context.Context, id int64, token, name, bio, avatar string) (Startup, error) {
	if err := s.authorizeOwner(ctx, id, token); err != nil {
		return Startup{}, err
	}
	return s.repo.UpdateStartup(ctx, id, name, bio, avatar)
}

func (s *startupService) UpdateStripeKey(ctx context.Context, id int64, token, stripeKey string) (Startup, error) {
	if err := s.authorizeOwner(ctx, id, token); err != nil {
		return Startup{}, err
	}

	if err := s.repo.UpdateStripeKey(ctx, id, stripeKey); err != nil {
		return Startup{}, err
	}

	return s.syncMetrics(ctx, id, stripeKey)
}

func (s *startupService) SyncRevenue(ctx context.Context, id int64, token string) (Startup, error) {
	startup, err := s.repo.GetStartupByID(ctx, id)
	if err != nil {
		return Startup{}, err
	}
	if err := s.checkOwner(ctx, startup, token); err != nil {
		return Startup{}, err
	}

	return s.syncMetrics(ctx, id, startup.StripeKey)
}

func (s *startupService) GetStartupByID(ctx context.Context, id int64) (Startup, error) {
	return s.repo.GetStartupByID(ctx, id)
}

func (s *startupService) ListStartups(ctx context.Context, page, limit int) ([]Startup, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit
	return s.repo.ListStartups(ctx, limit, offset)
}

func (s *startupService) SearchStartups(ctx context.Context, q string) ([]Startup, error) {
	return s.repo.SearchStartups(ctx, q, 50)
}

func (s *startupService) ListStartupsByToken(ctx context.Context, token string) ([]Startup, error) {
	userID, err := s.sessions.UserIDByToken(ctx, token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return s.repo.ListStartupsByOwner(ctx, userID)
}

func (s *startupService) DeleteStartup(ctx context.Context, id int64, token string) error {
	if err := s.authorizeOwner(ctx, id, token); err != nil {
		return err
	}
	return s.repo.DeleteStartup(ctx, id)
}

func (s *startupService) GetMetricsSummary(ctx context.Context, id int64) (metrics.Summary, error) {
	startup, err := s.repo.GetStartupByID(ctx, id)
	if err != nil {
		return metrics.Summary{}, err
	}
	return s.metrics.Summary(ctx, startup.StripeKey)
}

func (s *startupService) GetRevenueHistory(ctx context.Context, id int64, rangeStr string) ([]metrics.Point, error) {
	startup, err := s.repo.GetStartupByID(ctx, id)
	if err != nil {
		return nil, err
	}

	days := 90
	switch rangeStr {
	case "7d":
		days = 7
	case "30d":
		days = 30
	}

	return s.metrics.History(ctx, startup.StripeKey, days)
}

// RefreshAll re-syncs revenue figures for every startup with a connected
// key. Individual failures are logged and skipped so one revoked key cannot
// stall the whole sweep.
func (s *startupService) RefreshAll(ctx context.Context) (int, error) {
	refs, err := s.repo.ListStripeKeys(ctx)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, ref := range refs {
		summary, err := s.metrics.Summary(ctx, ref.StripeKey)
		if err != nil {
			log.Printf("startups: refresh metrics for startup %d: %v", ref.ID, err)
			continue
		}
		if err := s.repo.UpdateMetrics(ctx, ref.ID, summary.GMVAllTime, summary.Last30Days, summary.MRR, time.Now()); err != nil {
			log.Printf("startups: store metrics for startup %d: %v", ref.ID, err)
			continue
		}
		refreshed++
	}

	if refreshed > 0 {
		s.notify("metrics.refreshed", map[string]any{"count": refreshed})
	}

	return refreshed, nil
}

func (s *startupService) syncMetrics(ctx context.Context, id int64, stripeKey string) (Startup, error) {
	summary, err := s.metrics.Summary(ctx, stripeKey)
	if err != nil {
		log.Printf("startups: metrics sync for startup %d failed: %v", id, err)
		return s.repo.GetStartupByID(ctx, id)
	}

	if err := s.repo.UpdateMetrics(ctx, id, summary.GMVAllTime, summary.Last30Days, summary.MRR, time.Now()); err != nil {
		return Startup{}, err
	}

	s.notify("metrics.refreshed", map[string]any{"startup_id": id})

	return s.repo.GetStartupByID(ctx, id)
}

func (s *startupService) authorizeOwner(ctx context.Context, id int64, token string) error {
	startup, err := s.repo.GetStartupByID(ctx, id)
	if err != nil {
		return err
	}
	return s.checkOwner(ctx, startup, token)
}

func (s *startupService) checkOwner(ctx context.Context, startup Startup, token string) error {
	if startup.OwnerID == nil || token == "" {
		return ErrUnauthorized
	}
	userID, err := s.sessions.UserIDByToken(ctx, token)
	if err != nil || userID != *startup.OwnerID {
		return ErrUnauthorized
	}
	return nil
}

func (s *startupService) notify(eventType string, data any) {
	if s.notifier != nil {
		s.notifier.Publish(eventType, data)
	}
}
