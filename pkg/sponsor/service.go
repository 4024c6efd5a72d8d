package sponsor

import (
	"context"
	"errors"
	"log"
	"time"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidDuration = errors.New("invalid sponsorship duration")
)

// SessionResolver turns a bearer token into the user it belongs to.
// Implemented by the users repository.
type SessionResolver interface {
	UserIDByToken(ctx context.Context, token string) (int64, error)
}

// Alerter surfaces operational conditions that need a human, most
// importantly a paid sponsorship that could not be assigned a slot.
type Alerter interface {
	CapacityExceeded(startupID int64, months int)
}

// Notifier fans events out to live dashboard subscribers. Optional.
type Notifier interface {
	Publish(eventType string, data any)
}

type SponsorService interface {
	// Assign claims the lowest free slot after a confirmed payment.
	// Safe under webhook retries: an already-sponsored startup keeps its
	// grant and counters untouched.
	Assign(ctx context.Context, startupID int64, paidMonths int) (Grant, error)
	// Extend pushes the expiry forward for the owning founder. The
	// startup must currently hold a slot.
	Extend(ctx context.Context, startupID int64, token string, months int) (time.Time, error)
	// Cancel releases the slot immediately. Ad counters are kept as
	// historical record.
	Cancel(ctx context.Context, startupID int64, token string) error
	ListSponsored(ctx context.Context, limit int) ([]SponsoredStartup, error)
	TrackView(ctx context.Context, startupID int64) error
	TrackClick(ctx context.Context, startupID int64) error
	// ExpireDue releases every slot whose expiry has passed and reports
	// how many were freed.
	ExpireDue(ctx context.Context) (int, error)
}

type sponsorService struct {
	repo     SponsorRepository
	sessions SessionResolver
	alerter  Alerter
	notifier Notifier
	maxSlots int
}

func NewSponsorService(repo SponsorRepository, sessions SessionResolver, alerter Alerter, notifier Notifier, maxSlots int) SponsorService {
	if maxSlots < 1 {
		maxSlots = DefaultMaxSlots
	}
	return &sponsorService{repo: repo, sessions: sessions, alerter: alerter, notifier: notifier, maxSlots: maxSlots}
}

func (s *sponsorService) Assign(ctx context.Context, startupID int64, paidMonths int) (Grant, error) {
	if paidMonths < 1 || paidMonths > 12 {
		return Grant{}, ErrInvalidDuration
	}

	grant, err := s.repo.AssignSlot(ctx, startupID, paidMonths, s.maxSlots, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ErrAlreadySponsored) {
			// Duplicate payment confirmation; the first delivery won.
			log.Printf("sponsor: startup %d already holds slot %d, treating assign as no-op", startupID, grant.Slot)
			return grant, nil
		}
		if errors.Is(err, ErrCapacityExceeded) {
			// Money has changed hands; this must never pass silently.
			log.Printf("sponsor: CAPACITY EXCEEDED, paid sponsorship for startup %d (%d months) has no slot", startupID, paidMonths)
			if s.alerter != nil {
				s.alerter.CapacityExceeded(startupID, paidMonths)
			}
		}
		return Grant{}, err
	}

	log.Printf("sponsor: startup %d assigned slot %d until %s", startupID, grant.Slot, grant.ExpiresAt.Format(time.RFC3339))
	s.notify("sponsor.assigned", map[string]any{"startup_id": startupID, "slot": grant.Slot})

	return grant, nil
}

func (s *sponsorService) Extend(ctx context.Context, startupID int64, token string, months int) (time.Time, error) {
	if months < 1 {
		return time.Time{}, ErrInvalidDuration
	}

	sp, err := s.repo.GetSponsorship(ctx, startupID)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.authorize(ctx, sp, token); err != nil {
		return time.Time{}, err
	}
	if !sp.IsSponsored || sp.Slot == nil {
		// A lapsed or never-sponsored startup has no slot to extend;
		// reviving one goes through payment and Assign.
		return time.Time{}, ErrNotSponsored
	}

	// The repository computes the new expiry from the stored row, so two
	// founders clicking extend at once both add their months.
	newExpiry, err := s.repo.ExtendExpiry(ctx, startupID, months, time.Now().UTC())
	if err != nil {
		return time.Time{}, err
	}

	s.notify("sponsor.extended", map[string]any{"startup_id": startupID, "expires_at": newExpiry})

	return newExpiry, nil
}

func (s *sponsorService) Cancel(ctx context.Context, startupID int64, token string) error {
	sp, err := s.repo.GetSponsorship(ctx, startupID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, sp, token); err != nil {
		return err
	}

	if err := s.repo.ClearSponsorship(ctx, startupID); err != nil {
		return err
	}

	s.notify("sponsor.cancelled", map[string]any{"startup_id": startupID})

	return nil
}

func (s *sponsorService) ListSponsored(ctx context.Context, limit int) ([]SponsoredStartup, error) {
	if limit <= 0 || limit > s.maxSlots {
		limit = s.maxSlots
	}
	return s.repo.ListSponsored(ctx, limit)
}

func (s *sponsorService) TrackView(ctx context.Context, startupID int64) error {
	return s.repo.IncrementAdViews(ctx, startupID)
}

func (s *sponsorService) TrackClick(ctx context.Context, startupID int64) error {
	return s.repo.IncrementAdClicks(ctx, startupID)
}

func (s *sponsorService) ExpireDue(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	ids, err := s.repo.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, id := range ids {
		// The expiry is re-checked inside the release, so a sponsorship
		// refreshed since the scan is left alone.
		ok, err := s.repo.ReleaseExpired(ctx, id, now)
		if err != nil {
			log.Printf("sponsor: release expired slot for startup %d: %v", id, err)
			continue
		}
		if ok {
			released++
			s.notify("sponsor.expired", map[string]any{"startup_id": id})
		}
	}

	return released, nil
}

func (s *sponsorService) authorize(ctx context.Context, sp Sponsorship, token string) error {
	if sp.OwnerID == nil || token == "" {
		return ErrUnauthorized
	}
	userID, err := s.sessions.UserIDByToken(ctx, token)
	if err != nil || userID != *sp.OwnerID {
		return ErrUnauthorized
	}
	return nil
}

func (s *sponsorService) notify(eventType string, data any) {
	if s.notifier != nil {
		s.notifier.Publish(eventType, data)
	}
}
